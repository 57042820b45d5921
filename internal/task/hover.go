package task

import (
	"fmt"
	"math"

	"flightsup/internal/vehicle"
)

// altitudeHold returns the NED down velocity that drives alt toward target.
func altitudeHold(cfg AltitudeConfig, target, alt float64) float64 {
	diff := target - alt
	if math.Abs(diff) <= cfg.Tolerance {
		return 0
	}
	return clamp(-cfg.Kp*diff, -cfg.MaxClimbRate, cfg.MaxClimbRate)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type hover struct {
	altitude  float64
	remaining int
}

// NewHover holds position at altitude for ticks scheduler ticks.
func NewHover(v vehicle.Vehicle, cfg Config, altitude float64, ticks int) (*Task, error) {
	if altitude <= 0 {
		return nil, fmt.Errorf("%w: hover altitude %.2f", ErrInvalidParam, altitude)
	}
	if ticks < 0 {
		return nil, fmt.Errorf("%w: hover duration %d ticks", ErrInvalidParam, ticks)
	}
	return newTask(KindHover, v, cfg, &hover{altitude: altitude, remaining: ticks}), nil
}

func (m *hover) describe() string {
	return fmt.Sprintf("hover(%.2fm, %d ticks)", m.altitude, m.remaining)
}

func (m *hover) step(v vehicle.Vehicle, cfg *Config) (bool, error) {
	snap, err := v.Snapshot()
	if err != nil {
		return false, err
	}
	down := altitudeHold(cfg.Altitude, m.altitude, snap.RangefinderAltitude)
	if err := v.SetVelocity(0, 0, down); err != nil {
		return false, err
	}
	m.remaining--
	return m.remaining <= 0, nil
}

func (m *hover) halt(v vehicle.Vehicle) error { return zeroVelocity(v) }

type move struct {
	dir       vehicle.Vector // unit length
	remaining int

	started bool
	holdAlt float64
}

// Normalize scales vec to unit length. The zero vector is rejected.
func Normalize(vec vehicle.Vector) (vehicle.Vector, error) {
	n := math.Sqrt(vec.North*vec.North + vec.East*vec.East + vec.Down*vec.Down)
	if n < 1e-9 || math.IsNaN(n) || math.IsInf(n, 0) {
		return vehicle.Vector{}, ErrZeroDirection
	}
	return vehicle.Vector{North: vec.North / n, East: vec.East / n, Down: vec.Down / n}, nil
}

// NewMove flies along dir at the configured speed for ticks scheduler ticks.
func NewMove(v vehicle.Vehicle, cfg Config, dir vehicle.Vector, ticks int) (*Task, error) {
	unit, err := Normalize(dir)
	if err != nil {
		return nil, err
	}
	if ticks < 0 {
		return nil, fmt.Errorf("%w: move duration %d ticks", ErrInvalidParam, ticks)
	}
	return newTask(KindMove, v, cfg, &move{dir: unit, remaining: ticks}), nil
}

func (m *move) describe() string {
	return fmt.Sprintf("move(%.2f,%.2f,%.2f, %d ticks)", m.dir.North, m.dir.East, m.dir.Down, m.remaining)
}

func (m *move) step(v vehicle.Vehicle, cfg *Config) (bool, error) {
	snap, err := v.Snapshot()
	if err != nil {
		return false, err
	}
	if !m.started {
		m.started = true
		m.holdAlt = snap.RangefinderAltitude
	}

	speed := cfg.Move.Speed
	down := m.dir.Down * speed
	if m.dir.Down == 0 {
		down = altitudeHold(cfg.Altitude, m.holdAlt, snap.RangefinderAltitude)
	}
	if err := v.SetVelocity(m.dir.North*speed, m.dir.East*speed, down); err != nil {
		return false, err
	}
	m.remaining--
	return m.remaining <= 0, nil
}

func (m *move) halt(v vehicle.Vehicle) error { return zeroVelocity(v) }
