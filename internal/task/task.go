// internal/task/task.go

package task

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"flightsup/internal/vehicle"
)

var (
	ErrTakeoffTimeout = errors.New("takeoff did not reach target altitude in time")
	ErrArmFailed      = errors.New("vehicle did not arm")
	ErrYawTimeout     = errors.New("yaw did not reach target heading in time")
	ErrEmergencyLand  = errors.New("exit requested while armed")
	ErrZeroDirection  = errors.New("movement direction is the zero vector")
	ErrInvalidParam   = errors.New("invalid task parameter")
)

// Kind enumerates the closed set of task variants.
type Kind int

const (
	KindTakeoff Kind = iota + 1
	KindHover
	KindMove
	KindLand
	KindYaw
	KindExit
)

func (k Kind) String() string {
	switch k {
	case KindTakeoff:
		return "Takeoff"
	case KindHover:
		return "Hover"
	case KindMove:
		return "Move"
	case KindLand:
		return "Land"
	case KindYaw:
		return "Yaw"
	case KindExit:
		return "Exit"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// maneuver is the per-variant behaviour behind a Task.
type maneuver interface {
	// step runs one tick and reports whether the goal is satisfied.
	step(v vehicle.Vehicle, cfg *Config) (bool, error)
	// halt brings the vehicle to a safe state after an exit request.
	halt(v vehicle.Vehicle) error
	describe() string
}

// Task is one unit of flight work advanced one quantum per scheduler tick.
//
// Perform must only be called from the scheduler goroutine. The state
// queries and ExitTask may be called from any goroutine.
type Task struct {
	ID    uuid.UUID
	kind  Kind
	label string // describe() at construction
	v     vehicle.Vehicle
	cfg   Config
	m     maneuver

	done      atomic.Bool // goal satisfied; never reset
	cancelled atomic.Bool // stopped after an exit request; never reset

	exitRequested atomic.Bool
	handle        chan struct{}
	signalOnce    sync.Once
}

func newTask(kind Kind, v vehicle.Vehicle, cfg Config, m maneuver) *Task {
	return &Task{
		ID:     uuid.New(),
		kind:   kind,
		label:  m.describe(),
		v:      v,
		cfg:    cfg,
		m:      m,
		handle: make(chan struct{}),
	}
}

func (t *Task) Kind() Kind { return t.kind }

// Done reports whether the task's goal was reached. A cancelled task is
// terminal but not done; use Finished for terminality.
func (t *Task) Done() bool { return t.done.Load() }

// Cancelled reports whether the task stopped because of an exit request.
func (t *Task) Cancelled() bool { return t.cancelled.Load() }

// Finished reports whether Perform has returned true, either because the
// goal was reached or because an exit request was honoured.
func (t *Task) Finished() bool { return t.Done() || t.Cancelled() }

// Interruptible reports whether an exit request stops the task. Landing
// always runs to completion.
func (t *Task) Interruptible() bool { return t.kind != KindLand }

// ExitRequested reports whether ExitTask has been called.
func (t *Task) ExitRequested() bool { return t.exitRequested.Load() }

func (t *Task) String() string {
	return fmt.Sprintf("%s %s", t.label, t.ID.String()[:8])
}

// Perform runs one quantum and reports whether the task is terminal.
// Once it has returned true it keeps returning true without commanding
// the vehicle.
func (t *Task) Perform() (bool, error) {
	if t.Finished() {
		return true, nil
	}

	if t.exitRequested.Load() && t.Interruptible() {
		if err := t.m.halt(t.v); err != nil {
			return false, fmt.Errorf("%s: halt: %w", t.kind, err)
		}
		t.cancelled.Store(true)
		t.signal()
		return true, nil
	}

	done, err := t.m.step(t.v, &t.cfg)
	if err != nil {
		return false, fmt.Errorf("%s: %w", t.kind, err)
	}
	if done {
		t.done.Store(true)
		t.signal()
	}
	return done, nil
}

// ExitTask requests cooperative cancellation and returns a handle that is
// closed once the vehicle is in a safe state. For a Land task the request
// is ignored and the handle closes when landing completes.
func (t *Task) ExitTask() <-chan struct{} {
	t.exitRequested.Store(true)
	return t.handle
}

// Handle returns the cancellation handle without requesting an exit.
func (t *Task) Handle() <-chan struct{} { return t.handle }

func (t *Task) signal() {
	t.signalOnce.Do(func() { close(t.handle) })
}

// zeroVelocity is the safe state for every motion variant.
func zeroVelocity(v vehicle.Vehicle) error {
	return v.SetVelocity(0, 0, 0)
}
