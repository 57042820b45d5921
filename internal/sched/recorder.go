package sched

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"sync"
	"time"
)

// csvRecorder appends scheduler events to a CSV file.
type csvRecorder struct {
	mu  sync.Mutex
	out io.Closer
	w   *csv.Writer
}

func openCSVRecorder(path string) (*csvRecorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	r := newCSVRecorder(f, f)
	return r, r.w.Error()
}

func newCSVRecorder(w io.Writer, c io.Closer) *csvRecorder {
	r := &csvRecorder{out: c, w: csv.NewWriter(w)}
	// write header
	_ = r.w.Write([]string{"timestamp", "tick", "event", "task_id", "task_kind", "priority", "detail"})
	r.w.Flush()
	return r
}

func (r *csvRecorder) record(ev StatusEvent) error {
	kind := ""
	if ev.TaskKind != 0 {
		kind = ev.TaskKind.String()
	}
	prio := ""
	if ev.Priority != 0 {
		prio = ev.Priority.String()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.w.Write([]string{
		ev.Time.Format(time.RFC3339Nano),
		strconv.FormatInt(ev.Tick, 10),
		ev.Kind.String(),
		ev.TaskID,
		kind,
		prio,
		ev.Detail,
	})
	r.w.Flush()
	return r.w.Error()
}

func (r *csvRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.w.Flush()
	if r.out == nil {
		return r.w.Error()
	}
	return r.out.Close()
}
