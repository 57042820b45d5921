package task

// Config mirrors the task section of config.yaml.
type Config struct {
	Takeoff  TakeoffConfig  `yaml:"takeoff"`
	Altitude AltitudeConfig `yaml:"altitude"`
	Move     MoveConfig     `yaml:"move"`
	Yaw      YawConfig      `yaml:"yaw"`
}

type TakeoffConfig struct {
	TargetFraction float64 `yaml:"target_fraction"`  // 0.95 of the target counts as reached
	SmoothFraction float64 `yaml:"smooth_fraction"`  // switch to smooth thrust above 0.6 of the target
	Thrust         float64 `yaml:"thrust"`           // 0.7
	SmoothThrust   float64 `yaml:"smooth_thrust"`    // 0.6
	ArmRetryTicks  int     `yaml:"arm_retry_ticks"`  // ticks between arm attempts
	MaxArmAttempts int     `yaml:"max_arm_attempts"` // 5
	TimeoutTicks   int     `yaml:"timeout_ticks"`    // climb ticks before giving up
	StabilizeTicks int     `yaml:"stabilize_ticks"`  // zero-velocity ticks after the climb
}

// AltitudeConfig tunes the proportional altitude hold shared by Hover and Move.
type AltitudeConfig struct {
	Kp           float64 `yaml:"kp"`
	Tolerance    float64 `yaml:"tolerance"`      // m
	MaxClimbRate float64 `yaml:"max_climb_rate"` // m/s
}

type MoveConfig struct {
	Speed float64 `yaml:"speed"` // m/s
}

type YawConfig struct {
	Speed        float64 `yaml:"speed"`         // deg/s
	Tolerance    float64 `yaml:"tolerance"`     // deg
	TimeoutTicks int     `yaml:"timeout_ticks"` // 0 = no timeout
}

// DefaultConfig returns the tuning used on the reference airframe at a 100 ms tick.
func DefaultConfig() Config {
	return Config{
		Takeoff: TakeoffConfig{
			TargetFraction: 0.95,
			SmoothFraction: 0.6,
			Thrust:         0.7,
			SmoothThrust:   0.6,
			ArmRetryTicks:  10,
			MaxArmAttempts: 5,
			TimeoutTicks:   100,
			StabilizeTicks: 20,
		},
		Altitude: AltitudeConfig{Kp: 0.25, Tolerance: 0.1, MaxClimbRate: 0.5},
		Move:     MoveConfig{Speed: 0.5},
		Yaw:      YawConfig{Speed: 30, Tolerance: 0.5},
	}
}

// Sanitize replaces out-of-range values with defaults.
func (c *Config) Sanitize() {
	d := DefaultConfig()
	if c.Takeoff.TargetFraction <= 0 || c.Takeoff.TargetFraction > 1 {
		c.Takeoff.TargetFraction = d.Takeoff.TargetFraction
	}
	if c.Takeoff.SmoothFraction <= 0 || c.Takeoff.SmoothFraction > c.Takeoff.TargetFraction {
		c.Takeoff.SmoothFraction = d.Takeoff.SmoothFraction
	}
	if c.Takeoff.Thrust <= 0 || c.Takeoff.Thrust > 1 {
		c.Takeoff.Thrust = d.Takeoff.Thrust
	}
	if c.Takeoff.SmoothThrust <= 0 || c.Takeoff.SmoothThrust > 1 {
		c.Takeoff.SmoothThrust = d.Takeoff.SmoothThrust
	}
	if c.Takeoff.ArmRetryTicks < 0 {
		c.Takeoff.ArmRetryTicks = d.Takeoff.ArmRetryTicks
	}
	if c.Takeoff.MaxArmAttempts <= 0 {
		c.Takeoff.MaxArmAttempts = d.Takeoff.MaxArmAttempts
	}
	if c.Takeoff.TimeoutTicks <= 0 {
		c.Takeoff.TimeoutTicks = d.Takeoff.TimeoutTicks
	}
	if c.Takeoff.StabilizeTicks < 0 {
		c.Takeoff.StabilizeTicks = d.Takeoff.StabilizeTicks
	}
	if c.Altitude.Kp <= 0 {
		c.Altitude.Kp = d.Altitude.Kp
	}
	if c.Altitude.Tolerance < 0 {
		c.Altitude.Tolerance = d.Altitude.Tolerance
	}
	if c.Altitude.MaxClimbRate <= 0 {
		c.Altitude.MaxClimbRate = d.Altitude.MaxClimbRate
	}
	if c.Move.Speed <= 0 {
		c.Move.Speed = d.Move.Speed
	}
	if c.Yaw.Speed <= 0 {
		c.Yaw.Speed = d.Yaw.Speed
	}
	if c.Yaw.Tolerance <= 0 {
		c.Yaw.Tolerance = d.Yaw.Tolerance
	}
	if c.Yaw.TimeoutTicks < 0 {
		c.Yaw.TimeoutTicks = 0
	}
}
