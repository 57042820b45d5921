package avoid

import "time"

// Config mirrors the avoidance section of config.yaml.
type Config struct {
	Enabled         bool      `yaml:"enabled"`
	SectorDeg       float64   `yaml:"sector_deg"`        // 10 gives 36 sectors
	VehicleRadiusCM float64   `yaml:"vehicle_radius_cm"` // added to the margin for the safety distance
	SafetyMarginCM  float64   `yaml:"safety_margin_cm"`
	SignalThreshold int       `yaml:"signal_threshold"` // weaker returns are ignored
	BadDistances    []float64 `yaml:"bad_distances"`    // sensor error codes, cm
	NudgeM          float64   `yaml:"nudge_m"`          // horizontal escape offset
	ClimbM          float64   `yaml:"climb_m"`          // vertical compensation
	ReactionMS      int       `yaml:"reaction_ms"`
	StabilizeMS     int       `yaml:"stabilize_ms"`
	ResendHz        float64   `yaml:"resend_hz"`
	SeizeTimeoutMS  int       `yaml:"seize_timeout_ms"`
	GapDivisor      float64   `yaml:"gap_divisor"`
}

func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		SectorDeg:       10,
		VehicleRadiusCM: 30,
		SafetyMarginCM:  70,
		SignalThreshold: 100,
		BadDistances:    []float64{1},
		NudgeM:          0.5,
		ClimbM:          0.1,
		ReactionMS:      1500,
		StabilizeMS:     700,
		ResendHz:        30,
		SeizeTimeoutMS:  500,
		GapDivisor:      3,
	}
}

func (c *Config) Sanitize() {
	d := DefaultConfig()
	if c.SectorDeg <= 0 || c.SectorDeg > 180 {
		c.SectorDeg = d.SectorDeg
	}
	if c.VehicleRadiusCM < 0 {
		c.VehicleRadiusCM = d.VehicleRadiusCM
	}
	if c.SafetyMarginCM < 0 {
		c.SafetyMarginCM = d.SafetyMarginCM
	}
	if c.NudgeM <= 0 {
		c.NudgeM = d.NudgeM
	}
	if c.ClimbM < 0 {
		c.ClimbM = d.ClimbM
	}
	if c.ReactionMS < 0 {
		c.ReactionMS = d.ReactionMS
	}
	if c.StabilizeMS < 0 {
		c.StabilizeMS = d.StabilizeMS
	}
	if c.ResendHz <= 0 {
		c.ResendHz = d.ResendHz
	}
	if c.SeizeTimeoutMS <= 0 {
		c.SeizeTimeoutMS = d.SeizeTimeoutMS
	}
	if c.GapDivisor <= 0 {
		c.GapDivisor = d.GapDivisor
	}
}

// Sectors is the number of sectors in a full turn.
func (c Config) Sectors() int { return int(360 / c.SectorDeg) }

// SafetyDistance is the distance in cm below which a return is a threat.
func (c Config) SafetyDistance() float64 { return c.VehicleRadiusCM + c.SafetyMarginCM }

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }
