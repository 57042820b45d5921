package sched

import (
	"fmt"
	"time"

	"flightsup/internal/task"
	"flightsup/internal/vehicle"
)

// The Add*Task methods are the only way directives become tasks. They are
// safe to call from any goroutine while Run is active.

func (s *Scheduler) AddTakeoffTask(altitude float64, p Priority) error {
	t, err := task.NewTakeoff(s.v, s.taskCfg, altitude)
	if err != nil {
		return err
	}
	return s.enqueue(t, p)
}

// AddHoverTask holds altitude for d. A non-positive altitude means the
// configured default altitude.
func (s *Scheduler) AddHoverTask(altitude float64, d time.Duration, p Priority) error {
	if altitude <= 0 {
		altitude = s.cfg.DefaultAltitude
	}
	t, err := task.NewHover(s.v, s.taskCfg, altitude, s.cfg.Ticks(d))
	if err != nil {
		return err
	}
	return s.enqueue(t, p)
}

// AddLinearMovementTask moves along a named axis direction for d.
func (s *Scheduler) AddLinearMovementTask(dir vehicle.Direction, d time.Duration, p Priority) error {
	vec, ok := dir.Vector()
	if !ok {
		return fmt.Errorf("%w: direction %q", task.ErrInvalidParam, dir)
	}
	return s.AddMoveTask(vec, d, p)
}

// AddMoveTask moves along an arbitrary NED vector for d; the vector is
// normalized, only its direction matters.
func (s *Scheduler) AddMoveTask(vec vehicle.Vector, d time.Duration, p Priority) error {
	t, err := task.NewMove(s.v, s.taskCfg, vec, s.cfg.Ticks(d))
	if err != nil {
		return err
	}
	return s.enqueue(t, p)
}

func (s *Scheduler) AddLandTask(p Priority) error {
	return s.enqueue(task.NewLand(s.v, s.taskCfg), p)
}

func (s *Scheduler) AddYawTask(heading float64, p Priority) error {
	t, err := task.NewYaw(s.v, s.taskCfg, heading)
	if err != nil {
		return err
	}
	return s.enqueue(t, p)
}

func (s *Scheduler) AddExitTask(p Priority) error {
	return s.enqueue(task.NewExit(s.v, s.taskCfg), p)
}

func (s *Scheduler) enqueue(t *task.Task, p Priority) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPriority, int(p))
	}
	s.mu.Lock()
	halted, stopped := s.halted, s.stopped
	s.mu.Unlock()
	switch {
	case halted:
		return ErrHalted
	case stopped:
		return ErrStopped
	}

	evicted, evictedPri, ok := s.queue.Push(p, t)
	evs := []StatusEvent{taskEvent(StatusEnqueue, t, p)}
	if ok {
		ev := taskEvent(StatusEvict, evicted, evictedPri)
		ev.Detail = fmt.Sprintf("replaced by %s", t)
		evs = append(evs, ev)
	}
	s.emit(evs...)
	return nil
}
