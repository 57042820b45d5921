// internal/safety/monitor.go

package safety

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"flightsup/internal/logging"
	"flightsup/internal/vehicle"
)

var (
	ErrVelocityExceeded       = errors.New("airspeed above limit")
	ErrAltitudeExceeded       = errors.New("altitude above limit")
	ErrRollExceeded           = errors.New("roll above limit")
	ErrPitchExceeded          = errors.New("pitch above limit")
	ErrRangefinderMalfunction = errors.New("rangefinder reading implausible")
	ErrTelemetry              = errors.New("telemetry unavailable")
)

// Violation is a failed safety predicate.
type Violation struct {
	Err   error
	Value float64
	Limit float64
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%v: %.3f (limit %.3f)", v.Err, v.Value, v.Limit)
}

func (v *Violation) Unwrap() error { return v.Err }

// Config mirrors the safety section of config.yaml.
type Config struct {
	PeriodMS    int     `yaml:"period_ms"`
	MaxAirspeed float64 `yaml:"max_airspeed"` // m/s
	MaxAltitude float64 `yaml:"max_altitude"` // m
	MaxTiltDeg  float64 `yaml:"max_tilt_deg"` // roll and pitch limit
}

func DefaultConfig() Config {
	return Config{
		PeriodMS:    500,
		MaxAirspeed: 1.0,
		MaxAltitude: 1.5,
		MaxTiltDeg:  30,
	}
}

func (c *Config) Sanitize() {
	d := DefaultConfig()
	if c.PeriodMS <= 0 {
		c.PeriodMS = d.PeriodMS
	}
	if c.MaxAirspeed <= 0 {
		c.MaxAirspeed = d.MaxAirspeed
	}
	if c.MaxAltitude <= 0 {
		c.MaxAltitude = d.MaxAltitude
	}
	if c.MaxTiltDeg <= 0 || c.MaxTiltDeg >= 90 {
		c.MaxTiltDeg = d.MaxTiltDeg
	}
}

// Check evaluates one predicate; nil means safe.
type Check func(s vehicle.Snapshot, c Config) *Violation

// Checks runs in order; the first violation ends the cycle.
var Checks = []Check{
	checkAirspeed,
	checkAltitude,
	checkAttitude,
	checkRangefinder,
}

func checkAirspeed(s vehicle.Snapshot, c Config) *Violation {
	if s.Airspeed > c.MaxAirspeed {
		return &Violation{ErrVelocityExceeded, s.Airspeed, c.MaxAirspeed}
	}
	return nil
}

func checkAltitude(s vehicle.Snapshot, c Config) *Violation {
	if s.RangefinderAltitude > c.MaxAltitude {
		return &Violation{ErrAltitudeExceeded, s.RangefinderAltitude, c.MaxAltitude}
	}
	if s.BarometricAltitude > c.MaxAltitude {
		return &Violation{ErrAltitudeExceeded, s.BarometricAltitude, c.MaxAltitude}
	}
	return nil
}

func checkAttitude(s vehicle.Snapshot, c Config) *Violation {
	limit := c.MaxTiltDeg * math.Pi / 180
	if math.Abs(s.Attitude.Roll) > limit {
		return &Violation{ErrRollExceeded, s.Attitude.Roll, limit}
	}
	if math.Abs(s.Attitude.Pitch) > limit {
		return &Violation{ErrPitchExceeded, s.Attitude.Pitch, limit}
	}
	return nil
}

func checkRangefinder(s vehicle.Snapshot, _ Config) *Violation {
	if s.RangefinderAltitude < 0 || math.IsNaN(s.RangefinderAltitude) {
		return &Violation{ErrRangefinderMalfunction, s.RangefinderAltitude, 0}
	}
	return nil
}

// Sink receives the abort signal.
type Sink interface {
	Abort(reason error)
}

// Monitor periodically evaluates Checks against telemetry and signals the
// first violation of an episode to its Sink. It never commands the vehicle.
type Monitor struct {
	cfg  Config
	tel  vehicle.Telemetry
	sink Sink
	log  *logging.Logger

	tripped  atomic.Bool
	mu       sync.Mutex
	last     error
	stop     chan struct{}
	stopOnce sync.Once
}

func New(cfg Config, tel vehicle.Telemetry, sink Sink, log *logging.Logger) *Monitor {
	cfg.Sanitize()
	return &Monitor{
		cfg:  cfg,
		tel:  tel,
		sink: sink,
		log:  log.With("component", "safety"),
		stop: make(chan struct{}),
	}
}

// Run checks every period until ctx ends or Stop is called.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(m.cfg.PeriodMS) * time.Millisecond)
	defer ticker.Stop()

	m.log.Info("safety monitor started", "period_ms", m.cfg.PeriodMS)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-m.stop:
			m.log.Info("safety monitor stopped")
			return nil
		case <-ticker.C:
			m.Check()
		}
	}
}

// Check runs one cycle and returns the violation found, if any. Only the
// first violation of an episode reaches the Sink.
func (m *Monitor) Check() error {
	snap, err := m.tel.Snapshot()
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrTelemetry, err)
		m.trip(err)
		return err
	}
	for _, check := range Checks {
		if v := check(snap, m.cfg); v != nil {
			m.trip(v)
			return v
		}
	}
	return nil
}

func (m *Monitor) trip(err error) {
	if !m.tripped.CompareAndSwap(false, true) {
		return
	}
	m.mu.Lock()
	m.last = err
	m.mu.Unlock()
	m.log.Error("safety violation", "error", err)
	m.sink.Abort(err)
}

// Violation returns the recorded violation of the current episode.
func (m *Monitor) Violation() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Reset starts a new episode.
func (m *Monitor) Reset() {
	m.mu.Lock()
	m.last = nil
	m.mu.Unlock()
	m.tripped.Store(false)
}

// Stop ends Run. Safe to call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}
