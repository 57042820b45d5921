package sim

import "time"

// Config mirrors the sim section of config.yaml.
type Config struct {
	StepMS        int        `yaml:"step_ms"`        // integration step
	HoverThrust   float64    `yaml:"hover_thrust"`   // thrust that holds altitude
	ClimbGain     float64    `yaml:"climb_gain"`     // m/s per unit of thrust above hover
	LandRate      float64    `yaml:"land_rate"`      // m/s descent in LAND mode
	PositionSpeed float64    `yaml:"position_speed"` // m/s toward a relative position target
	ScanMS        int        `yaml:"scan_ms"`        // one sensor revolution
	Obstacles     []Obstacle `yaml:"obstacles"`
}

// Obstacle is a fixed point obstacle, metres from the launch point.
type Obstacle struct {
	North float64 `yaml:"north"`
	East  float64 `yaml:"east"`
}

func DefaultConfig() Config {
	return Config{
		StepMS:        20,
		HoverThrust:   0.5,
		ClimbGain:     2,
		LandRate:      0.3,
		PositionSpeed: 0.5,
		ScanMS:        100,
	}
}

func (c *Config) Sanitize() {
	d := DefaultConfig()
	if c.StepMS <= 0 {
		c.StepMS = d.StepMS
	}
	if c.HoverThrust <= 0 || c.HoverThrust >= 1 {
		c.HoverThrust = d.HoverThrust
	}
	if c.ClimbGain <= 0 {
		c.ClimbGain = d.ClimbGain
	}
	if c.LandRate <= 0 {
		c.LandRate = d.LandRate
	}
	if c.PositionSpeed <= 0 {
		c.PositionSpeed = d.PositionSpeed
	}
	if c.ScanMS <= 0 {
		c.ScanMS = d.ScanMS
	}
}

func (c Config) step() time.Duration { return time.Duration(c.StepMS) * time.Millisecond }
func (c Config) scan() time.Duration { return time.Duration(c.ScanMS) * time.Millisecond }
