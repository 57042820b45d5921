package sched

import "time"

// Config mirrors the scheduler section of config.yaml.
type Config struct {
	TickMS            int     `yaml:"tick_ms"`             // 100 (by default)
	DefaultHoverTicks int     `yaml:"default_hover_ticks"` // idle hover length when armed with nothing queued
	DefaultAltitude   float64 `yaml:"default_altitude"`    // m, used when a directive omits it
	ExitTimeoutMS     int     `yaml:"exit_timeout_ms"`     // bound on waiting for a cancelled task
	LandRetries       int     `yaml:"land_retries"`        // land attempts on the abort path
	Preemption        string  `yaml:"preemption"`          // insert-ahead | evict-top
	PreemptActive     bool    `yaml:"preempt_active"`      // stop the running task for a higher priority one
	StopWhenIdle      bool    `yaml:"stop_when_idle"`      // return once the queue drains on the ground
	EventsCSV         string  `yaml:"events_csv"`          // optional event log path
}

// DefaultConfig is used when no config file is given.
func DefaultConfig() Config {
	return Config{
		TickMS:            100,
		DefaultHoverTicks: 4800,
		DefaultAltitude:   1.0,
		ExitTimeoutMS:     1000,
		LandRetries:       3,
		Preemption:        InsertAhead.String(),
		PreemptActive:     true,
	}
}

// Sanitize applies sanity clamps.
func (c *Config) Sanitize() {
	d := DefaultConfig()
	if c.TickMS <= 0 {
		c.TickMS = d.TickMS
	}
	if c.DefaultHoverTicks <= 0 {
		c.DefaultHoverTicks = d.DefaultHoverTicks
	}
	if c.DefaultAltitude <= 0 {
		c.DefaultAltitude = d.DefaultAltitude
	}
	if c.ExitTimeoutMS <= 0 {
		c.ExitTimeoutMS = d.ExitTimeoutMS
	}
	if c.LandRetries <= 0 {
		c.LandRetries = d.LandRetries
	}
	if _, err := ParsePreemptMode(c.Preemption); err != nil {
		c.Preemption = d.Preemption
	}
}

func (c Config) Tick() time.Duration {
	return time.Duration(c.TickMS) * time.Millisecond
}

// Ticks converts d to a whole number of ticks, rounding up.
func (c Config) Ticks(d time.Duration) int {
	tick := c.Tick()
	if d <= 0 || tick <= 0 {
		return 0
	}
	return int((d + tick - 1) / tick)
}
