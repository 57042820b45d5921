// internal/sched/schedulerEvent.go

package sched

import (
	"fmt"
	"time"

	"flightsup/internal/task"
)

// StatusKind represents the type of scheduler event
type StatusKind int

const (
	StatusIdle     StatusKind = iota
	StatusEnqueue             // directive accepted into the queue
	StatusEvict               // queued task discarded by an evict-top push
	StatusDispatch            // task became current
	StatusPreempt             // current task asked to stop for a higher priority one
	StatusFinish              // task reached its goal
	StatusCancel              // task stopped after an exit request
	StatusAvoid               // obstacle reaction took control
	StatusResume              // obstacle reaction released control
	StatusAbort               // emergency landing path entered
)

func (k StatusKind) String() string {
	switch k {
	case StatusIdle:
		return "Idle"
	case StatusEnqueue:
		return "Enqueue"
	case StatusEvict:
		return "Evict"
	case StatusDispatch:
		return "Dispatch"
	case StatusPreempt:
		return "Preempt"
	case StatusFinish:
		return "Finish"
	case StatusCancel:
		return "Cancel"
	case StatusAvoid:
		return "Avoid"
	case StatusResume:
		return "Resume"
	case StatusAbort:
		return "Abort"
	default:
		return fmt.Sprintf("Status(%d)", int(k))
	}
}

// StatusEvent is a scheduler state change.
type StatusEvent struct {
	Time     time.Time
	Tick     int64
	Kind     StatusKind
	TaskID   string
	TaskKind task.Kind
	Priority Priority
	Detail   string
}

func taskEvent(kind StatusKind, t *task.Task, p Priority) StatusEvent {
	ev := StatusEvent{Kind: kind, Priority: p}
	if t != nil {
		ev.TaskID = t.ID.String()
		ev.TaskKind = t.Kind()
	}
	return ev
}
