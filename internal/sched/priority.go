package sched

import (
	"fmt"
	"strings"

	"flightsup/internal/task"
)

// Priority orders queued tasks; lower values run first.
type Priority int

const (
	High   Priority = 1
	Medium Priority = 2
	Low    Priority = 3
)

func (p Priority) String() string {
	switch p {
	case High:
		return "HIGH"
	case Medium:
		return "MEDIUM"
	case Low:
		return "LOW"
	default:
		return fmt.Sprintf("Priority(%d)", int(p))
	}
}

func (p Priority) Valid() bool { return p >= High && p <= Low }

// ParsePriority accepts high/medium/med/low in any case, or 1..3.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "1":
		return High, nil
	case "medium", "med", "2":
		return Medium, nil
	case "low", "3":
		return Low, nil
	default:
		return 0, fmt.Errorf("unknown priority %q", s)
	}
}

// DefaultPriority is the priority used when a directive names none.
func DefaultPriority(k task.Kind) Priority {
	switch k {
	case task.KindTakeoff, task.KindExit:
		return High
	case task.KindHover:
		return Low
	default:
		return Medium
	}
}
