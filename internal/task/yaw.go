package task

import (
	"fmt"
	"math"

	"flightsup/internal/vehicle"
)

type yaw struct {
	heading float64
	issued  bool
	ticks   int
}

// NewYaw turns to an absolute heading in degrees.
func NewYaw(v vehicle.Vehicle, cfg Config, heading float64) (*Task, error) {
	if math.IsNaN(heading) || math.IsInf(heading, 0) {
		return nil, fmt.Errorf("%w: heading %v", ErrInvalidParam, heading)
	}
	return newTask(KindYaw, v, cfg, &yaw{heading: wrapDegrees(heading)}), nil
}

func (m *yaw) describe() string { return fmt.Sprintf("yaw(%.1f°)", m.heading) }

func (m *yaw) step(v vehicle.Vehicle, cfg *Config) (bool, error) {
	snap, err := v.Snapshot()
	if err != nil {
		return false, err
	}
	if !m.issued {
		m.issued = true
		dir := vehicle.Clockwise
		if headingError(snap.Heading, m.heading) < 0 {
			dir = vehicle.CounterClockwise
		}
		return false, v.SetYaw(m.heading, cfg.Yaw.Speed, dir, false)
	}

	if math.Abs(headingError(snap.Heading, m.heading)) <= cfg.Yaw.Tolerance {
		return true, nil
	}
	m.ticks++
	if cfg.Yaw.TimeoutTicks > 0 && m.ticks > cfg.Yaw.TimeoutTicks {
		return false, fmt.Errorf("%w: at %.1f° wanted %.1f°", ErrYawTimeout, snap.Heading, m.heading)
	}
	return false, nil
}

func (m *yaw) halt(v vehicle.Vehicle) error { return zeroVelocity(v) }

func wrapDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}

// headingError is the signed shortest rotation from cur to target, in (-180, 180].
func headingError(cur, target float64) float64 {
	diff := math.Mod(target-cur, 360)
	if diff > 180 {
		diff -= 360
	} else if diff <= -180 {
		diff += 360
	}
	return diff
}
