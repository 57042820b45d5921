package task

import (
	"fmt"

	"flightsup/internal/vehicle"
)

type takeoffPhase int

const (
	phaseArm takeoffPhase = iota
	phaseAscend
	phaseClimb
	phaseStabilize
)

type takeoff struct {
	target float64

	phase      takeoffPhase
	attempts   int
	retryWait  int
	climbTicks int
	smooth     bool
	remaining  int
}

// NewTakeoff arms the vehicle and climbs to altitude metres.
func NewTakeoff(v vehicle.Vehicle, cfg Config, altitude float64) (*Task, error) {
	if altitude <= 0 {
		return nil, fmt.Errorf("%w: takeoff altitude %.2f", ErrInvalidParam, altitude)
	}
	return newTask(KindTakeoff, v, cfg, &takeoff{target: altitude}), nil
}

func (m *takeoff) describe() string { return fmt.Sprintf("takeoff(%.2fm)", m.target) }

func (m *takeoff) step(v vehicle.Vehicle, cfg *Config) (bool, error) {
	tc := cfg.Takeoff
	snap, err := v.Snapshot()
	if err != nil {
		return false, err
	}

	switch m.phase {
	case phaseArm:
		if !snap.Armed {
			// 1) wait out the retry delay, then re-issue arm
			if m.retryWait > 0 {
				m.retryWait--
				return false, nil
			}
			if m.attempts >= tc.MaxArmAttempts {
				return false, fmt.Errorf("%w after %d attempts", ErrArmFailed, m.attempts)
			}
			m.attempts++
			m.retryWait = tc.ArmRetryTicks
			return false, v.Arm()
		}
		m.phase = phaseAscend
		fallthrough

	case phaseAscend:
		// 2) a single ascent command; the climb is then only observed
		if err := v.SetAttitude(0, 0, 0, tc.Thrust); err != nil {
			return false, err
		}
		m.phase = phaseClimb
		return false, nil

	case phaseClimb:
		// 3) poll altitude, easing thrust near the target
		alt := snap.RangefinderAltitude
		if alt >= m.target*tc.TargetFraction {
			m.phase = phaseStabilize
			m.remaining = tc.StabilizeTicks
			return m.stabilize(v)
		}
		m.climbTicks++
		if m.climbTicks > tc.TimeoutTicks {
			return false, fmt.Errorf("%w: %.2fm of %.2fm after %d ticks",
				ErrTakeoffTimeout, alt, m.target, m.climbTicks-1)
		}
		if !m.smooth && alt >= m.target*tc.SmoothFraction {
			m.smooth = true
			return false, v.SetAttitude(0, 0, 0, tc.SmoothThrust)
		}
		return false, nil

	default:
		// 4) hold position before handing over to the next task
		return m.stabilize(v)
	}
}

func (m *takeoff) stabilize(v vehicle.Vehicle) (bool, error) {
	if err := zeroVelocity(v); err != nil {
		return false, err
	}
	m.remaining--
	return m.remaining <= 0, nil
}

func (m *takeoff) halt(v vehicle.Vehicle) error {
	if m.phase == phaseArm {
		return nil
	}
	return zeroVelocity(v)
}
