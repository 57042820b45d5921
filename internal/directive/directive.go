// internal/directive/directive.go

package directive

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"flightsup/internal/sched"
	"flightsup/internal/task"
	"flightsup/internal/vehicle"
)

var ErrInvalidDirective = errors.New("invalid directive")

const (
	CmdTakeoff = "takeoff"
	CmdHover   = "hover"
	CmdMove    = "move"
	CmdLand    = "land"
	CmdYaw     = "yaw"
	CmdExit    = "exit"
)

// Directive is the external shape of an operator or network command.
// Duration is in seconds. A move uses Direction when set, otherwise the
// North/East/Down vector.
type Directive struct {
	Command   string  `json:"command" msgpack:"command" yaml:"command"`
	Altitude  float64 `json:"altitude,omitempty" msgpack:"altitude,omitempty" yaml:"altitude,omitempty"`
	Duration  float64 `json:"duration,omitempty" msgpack:"duration,omitempty" yaml:"duration,omitempty"`
	North     float64 `json:"north,omitempty" msgpack:"north,omitempty" yaml:"north,omitempty"`
	East      float64 `json:"east,omitempty" msgpack:"east,omitempty" yaml:"east,omitempty"`
	Down      float64 `json:"down,omitempty" msgpack:"down,omitempty" yaml:"down,omitempty"`
	Direction string  `json:"direction,omitempty" msgpack:"direction,omitempty" yaml:"direction,omitempty"`
	Heading   float64 `json:"heading,omitempty" msgpack:"heading,omitempty" yaml:"heading,omitempty"`
	Priority  string  `json:"priority,omitempty" msgpack:"priority,omitempty" yaml:"priority,omitempty"`
}

// Target is the directive API a Directive is applied to.
type Target interface {
	AddTakeoffTask(altitude float64, p sched.Priority) error
	AddHoverTask(altitude float64, d time.Duration, p sched.Priority) error
	AddLinearMovementTask(dir vehicle.Direction, d time.Duration, p sched.Priority) error
	AddMoveTask(vec vehicle.Vector, d time.Duration, p sched.Priority) error
	AddLandTask(p sched.Priority) error
	AddYawTask(heading float64, p sched.Priority) error
	AddExitTask(p sched.Priority) error
}

var kinds = map[string]task.Kind{
	CmdTakeoff: task.KindTakeoff,
	CmdHover:   task.KindHover,
	CmdMove:    task.KindMove,
	CmdLand:    task.KindLand,
	CmdYaw:     task.KindYaw,
	CmdExit:    task.KindExit,
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidDirective, fmt.Sprintf(format, args...))
}

// Validate checks the fields the command needs and returns the priority
// to enqueue it with.
func (d Directive) Validate() (sched.Priority, error) {
	cmd := strings.ToLower(strings.TrimSpace(d.Command))
	kind, ok := kinds[cmd]
	if !ok {
		return 0, invalid("unknown command %q", d.Command)
	}

	p := sched.DefaultPriority(kind)
	if d.Priority != "" {
		var err error
		if p, err = sched.ParsePriority(d.Priority); err != nil {
			return 0, invalid("%v", err)
		}
	}

	switch cmd {
	case CmdTakeoff:
		if !(d.Altitude > 0) || math.IsInf(d.Altitude, 0) {
			return 0, invalid("takeoff needs a positive altitude")
		}
	case CmdHover:
		if !(d.Duration > 0) || math.IsInf(d.Duration, 0) {
			return 0, invalid("hover needs a positive duration")
		}
		if d.Altitude < 0 {
			return 0, invalid("hover altitude %.2f", d.Altitude)
		}
	case CmdMove:
		if !(d.Duration > 0) || math.IsInf(d.Duration, 0) {
			return 0, invalid("move needs a positive duration")
		}
		if d.Direction != "" {
			if _, err := vehicle.ParseDirection(d.Direction); err != nil {
				return 0, invalid("%v", err)
			}
		} else if d.North == 0 && d.East == 0 && d.Down == 0 {
			return 0, invalid("move needs a direction or a non-zero vector")
		}
	case CmdYaw:
		if math.IsNaN(d.Heading) || math.IsInf(d.Heading, 0) {
			return 0, invalid("yaw heading %v", d.Heading)
		}
	}
	return p, nil
}

func (d Directive) duration() time.Duration {
	return time.Duration(d.Duration * float64(time.Second))
}

// Apply validates d and hands it to the directive API.
func Apply(d Directive, t Target) error {
	p, err := d.Validate()
	if err != nil {
		return err
	}

	switch strings.ToLower(strings.TrimSpace(d.Command)) {
	case CmdTakeoff:
		return t.AddTakeoffTask(d.Altitude, p)
	case CmdHover:
		return t.AddHoverTask(d.Altitude, d.duration(), p)
	case CmdMove:
		if d.Direction != "" {
			dir, _ := vehicle.ParseDirection(d.Direction)
			return t.AddLinearMovementTask(dir, d.duration(), p)
		}
		return t.AddMoveTask(vehicle.Vector{North: d.North, East: d.East, Down: d.Down}, d.duration(), p)
	case CmdLand:
		return t.AddLandTask(p)
	case CmdYaw:
		return t.AddYawTask(d.Heading, p)
	default:
		return t.AddExitTask(p)
	}
}
