// internal/sched/scheduler.go

package sched

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"flightsup/internal/logging"
	"flightsup/internal/task"
	"flightsup/internal/vehicle"
	"flightsup/internal/wait"
)

var (
	ErrHalted           = errors.New("scheduler halted")
	ErrStopped          = errors.New("scheduler stopped")
	ErrAvoidanceActive  = errors.New("avoidance reaction already in control")
	ErrNotInterruptible = errors.New("current task cannot be interrupted")
	ErrInvalidPriority  = errors.New("invalid priority")
	ErrInterrupted      = errors.New("operator interrupt")
	ErrAborted          = errors.New("abort requested")
)

// AbortError is returned by Run after the emergency landing path ran.
type AbortError struct {
	Cause   error
	LandErr error // set when every land attempt failed
}

func (e *AbortError) Error() string {
	if e.LandErr != nil {
		return fmt.Sprintf("emergency landing after %v: %v", e.Cause, e.LandErr)
	}
	return fmt.Sprintf("emergency landing after %v", e.Cause)
}

func (e *AbortError) Unwrap() []error {
	errs := []error{e.Cause}
	if e.LandErr != nil {
		errs = append(errs, e.LandErr)
	}
	return errs
}

type abortSignal struct{ reason error }

type subscriber struct {
	id int
	fn func(StatusEvent)
}

// Scheduler owns the current task, pulls work from the priority queue and
// drives it one quantum per tick.
type Scheduler struct {
	// Scheduler-related
	mu          sync.Mutex              // protects the fields below up to abort
	cfg         Config                  // sanitized scheduler config
	taskCfg     task.Config             // tuning handed to every task
	v           vehicle.Vehicle         // the airframe all tasks command
	queue       *Queue[*task.Task]      // pending directives
	current     *task.Task              // task being performed, nil when idle
	currentPri  Priority                // priority current was dispatched with
	avoidance   bool                    // an obstacle reaction holds actuation
	avoidDone   chan struct{}           // closed when that reaction releases
	avoidCancel context.CancelCauseFunc // stops that reaction's commands
	halted      bool                    // abort path entered; no more seizes or enqueues
	stopped     bool                    // Run returned; no more seizes or enqueues

	abort atomic.Pointer[abortSignal] // one-shot, first reason wins
	ticks atomic.Int64                // loop iterations so far

	// hooks and logging-related
	hooksMu  sync.Mutex
	onAbort  []func()
	subs     []subscriber
	nextSub  int
	log      *logging.Logger
	recorder *csvRecorder
}

// New creates a Scheduler. Invalid config values are replaced by defaults.
func New(cfg Config, taskCfg task.Config, v vehicle.Vehicle, log *logging.Logger) (*Scheduler, error) {
	cfg.Sanitize()
	taskCfg.Sanitize()
	mode, err := ParsePreemptMode(cfg.Preemption)
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		cfg:     cfg,
		taskCfg: taskCfg,
		v:       v,
		queue:   NewQueue[*task.Task](mode),
		log:     log.With("component", "scheduler"),
	}
	if cfg.EventsCSV != "" {
		rec, err := openCSVRecorder(cfg.EventsCSV)
		if err != nil {
			return nil, fmt.Errorf("open event log: %w", err)
		}
		s.recorder = rec
	}
	return s, nil
}

func (s *Scheduler) Config() Config { return s.cfg }

// OnAbort registers fn to run first on the abort path.
func (s *Scheduler) OnAbort(fn func()) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.onAbort = append(s.onAbort, fn)
}

// Subscribe registers fn for every status event and returns a function
// that removes it. fn runs on the goroutine that caused the event.
func (s *Scheduler) Subscribe(fn func(StatusEvent)) (unsubscribe func()) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	return func() {
		s.hooksMu.Lock()
		defer s.hooksMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Abort requests the emergency landing path. Only the first reason is kept.
func (s *Scheduler) Abort(reason error) {
	if reason == nil {
		reason = ErrAborted
	}
	if s.abort.CompareAndSwap(nil, &abortSignal{reason: reason}) {
		s.log.Warn("abort requested", "reason", reason)
	}
}

// AbortReason returns the pending abort reason, if any.
func (s *Scheduler) AbortReason() error {
	if sig := s.abort.Load(); sig != nil {
		return sig.reason
	}
	return nil
}

// Current returns the task being performed, or nil.
func (s *Scheduler) Current() *task.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Pending returns the number of queued tasks.
func (s *Scheduler) Pending() int { return s.queue.Len() }

// Ticks returns how many loop iterations have run.
func (s *Scheduler) Ticks() int64 { return s.ticks.Load() }

// Run drives Tick from a TickClock until an Exit task completes, the queue
// drains with StopWhenIdle set, or the abort path runs. Cancelling ctx
// while airborne takes the abort path.
func (s *Scheduler) Run(ctx context.Context) error {
	clock := NewTickClock(s.cfg.Tick())
	clock.Start(ctx)
	defer func() {
		// stop the underlying clock to release its goroutine
		clock.Stop()
		if n := clock.Overruns(); n > 0 {
			s.log.Warn("scheduler ticks dropped", "overruns", n, "fired", clock.Count())
		}
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
		s.closeRecorder()
	}()

	s.log.Info("scheduler started", "tick", s.cfg.Tick(), "preemption", s.queue.mode)
	for {
		select {
		case <-ctx.Done():
			snap, err := s.v.Snapshot()
			if err == nil && !snap.Armed {
				s.log.Info("scheduler stopped on the ground")
				return nil
			}
			return s.emergencyLand(fmt.Errorf("%w: %w", ErrInterrupted, context.Cause(ctx)))

		case <-clock.C:
			cont, err := s.Tick()
			if !cont {
				return err
			}
		}
	}
}

// Tick runs one iteration of the main loop. It returns false when the loop
// should stop; the error is non-nil when the abort path ran.
func (s *Scheduler) Tick() (bool, error) {
	s.ticks.Add(1)

	// 1) a pending abort wins over everything else
	if sig := s.abort.Load(); sig != nil {
		return false, s.emergencyLand(sig.reason)
	}

	// 2) pick the task to drive this tick
	t, stop, err := s.advance()
	if err != nil {
		return false, s.emergencyLand(err)
	}
	if stop {
		s.log.Info("queue drained on the ground; stopping")
		return false, nil
	}
	if t == nil {
		return true, nil
	}

	// 3) one quantum, outside the lock
	finished, err := t.Perform()
	if err != nil {
		return false, s.emergencyLand(err)
	}
	if finished {
		s.complete(t)
		if t.Kind() == task.KindExit && t.Done() {
			s.log.Info("exit task completed")
			return false, nil
		}
	}
	return true, nil
}

func (s *Scheduler) advance() (*task.Task, bool, error) {
	var evs []StatusEvent
	t, stop, err := s.advanceLocked(&evs)
	s.emit(evs...)
	return t, stop, err
}

func (s *Scheduler) advanceLocked(evs *[]StatusEvent) (*task.Task, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Active: keep driving the current task
	if t := s.current; t != nil && !t.Finished() {
		if s.avoidance {
			// only a task draining an exit request may still command
			if t.ExitRequested() {
				return t, false, nil
			}
			return nil, false, nil
		}
		s.preemptLocked(t, evs)
		return t, false, nil
	}

	// Idle: start the next task unless a reaction holds actuation
	s.current = nil
	if s.avoidance {
		return nil, false, nil
	}

	next, p, ok := s.queue.Pop()
	if !ok {
		snap, err := s.v.Snapshot()
		if err != nil {
			return nil, false, err
		}
		if !snap.Armed {
			return nil, s.cfg.StopWhenIdle, nil
		}

		// airborne with nothing to do: hold where we are
		alt := snap.RangefinderAltitude
		if alt <= 0 {
			alt = s.cfg.DefaultAltitude
		}
		next, err = task.NewHover(s.v, s.taskCfg, alt, s.cfg.DefaultHoverTicks)
		if err != nil {
			return nil, false, err
		}
		p = Low
		*evs = append(*evs, taskEvent(StatusIdle, next, p))
	}

	s.current, s.currentPri = next, p
	*evs = append(*evs, taskEvent(StatusDispatch, next, p))
	return next, false, nil
}

// preemptLocked asks t to stop when a strictly higher priority task waits.
func (s *Scheduler) preemptLocked(t *task.Task, evs *[]StatusEvent) {
	if !s.cfg.PreemptActive || !t.Interruptible() || t.ExitRequested() {
		return
	}
	top, p, ok := s.queue.Top()
	if !ok || p >= s.currentPri {
		return
	}
	t.ExitTask()
	ev := taskEvent(StatusPreempt, t, s.currentPri)
	ev.Detail = fmt.Sprintf("by %s at %s", top, p)
	*evs = append(*evs, ev)
}

func (s *Scheduler) complete(t *task.Task) {
	s.mu.Lock()
	p := s.currentPri
	if s.current == t {
		s.current = nil
	}
	s.mu.Unlock()

	kind := StatusFinish
	if t.Cancelled() {
		kind = StatusCancel
	}
	s.emit(taskEvent(kind, t, p))
}

// Seize hands actuation to an obstacle reaction. It cancels the current
// task and waits up to timeout for it to reach a safe state; no task is
// dispatched until release is called.
//
// The returned context is cancelled with the abort reason when the abort
// path starts. The reaction must issue no further commands once it is done
// and must still call release; the landing command waits for it.
func (s *Scheduler) Seize(ctx context.Context, timeout time.Duration) (context.Context, func(), error) {
	s.mu.Lock()
	switch {
	case s.halted:
		s.mu.Unlock()
		return nil, nil, ErrHalted
	case s.stopped:
		s.mu.Unlock()
		return nil, nil, ErrStopped
	case s.avoidance:
		s.mu.Unlock()
		return nil, nil, ErrAvoidanceActive
	}
	t, p := s.current, s.currentPri
	if t != nil && t.Finished() {
		t = nil
	}
	if t != nil && !t.Interruptible() {
		s.mu.Unlock()
		return nil, nil, ErrNotInterruptible
	}

	actx, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})
	s.avoidance = true
	s.avoidDone = done
	s.avoidCancel = cancel
	var handle <-chan struct{}
	if t != nil {
		handle = t.ExitTask()
	}
	s.mu.Unlock()
	s.emit(taskEvent(StatusAvoid, t, p))

	// the scheduler loop performs the draining tick, so wait unlocked
	if handle != nil {
		if err := wait.Await(actx, handle, timeout); err != nil {
			s.log.Warn("preempted task did not confirm a safe state", "task", t.String(), "error", err)
		}
	}

	var once sync.Once
	return actx, func() {
		once.Do(func() {
			s.mu.Lock()
			if t != nil && s.current == t {
				s.current = nil
			}
			s.avoidance = false
			s.avoidDone = nil
			s.avoidCancel = nil
			s.mu.Unlock()
			cancel(nil)
			close(done)
			s.emit(StatusEvent{Kind: StatusResume})
		})
	}, nil
}

// emergencyLand is the abort path. It stops the safety checks, brings the
// current task to a safe state and commands an unconditional land.
func (s *Scheduler) emergencyLand(cause error) error {
	s.log.Error("emergency landing initiated", "reason", cause)

	// 1) stop periodic checks so they do not re-trigger
	s.hooksMu.Lock()
	hooks := append([]func(){}, s.onAbort...)
	s.hooksMu.Unlock()
	for _, fn := range hooks {
		fn()
	}

	// 2) no more dispatches or seizes
	s.mu.Lock()
	s.halted = true
	t, p := s.current, s.currentPri
	s.current = nil
	avoidDone, avoidCancel := s.avoidDone, s.avoidCancel
	s.mu.Unlock()
	s.emit(StatusEvent{Kind: StatusAbort, Detail: cause.Error()})

	// 3) a reaction in flight stops at its next command and releases
	timeout := time.Duration(s.cfg.ExitTimeoutMS) * time.Millisecond
	if avoidDone != nil {
		avoidCancel(cause)
		if err := wait.Await(context.Background(), avoidDone, timeout); err != nil {
			s.log.Warn("avoidance reaction did not release control", "error", err)
		}
	}

	// 4) stop the current task
	if t != nil && !t.Finished() && t.Interruptible() {
		s.drain(t, p, timeout)
	}

	// 5) land
	err := s.land()
	if err != nil {
		s.log.Error("emergency landing failed", "error", err)
	}
	return &AbortError{Cause: cause, LandErr: err}
}

// drain performs t until its cancellation handle closes or timeout passes.
func (s *Scheduler) drain(t *task.Task, p Priority, timeout time.Duration) {
	h := t.ExitTask()
	deadline := time.Now().Add(timeout)
	for !wait.Closed(h) {
		if _, err := t.Perform(); err != nil {
			s.log.Warn("task failed while stopping", "task", t.String(), "error", err)
		}
		if wait.Closed(h) {
			break
		}
		if time.Now().After(deadline) {
			s.log.Warn("task did not reach a safe state in time", "task", t.String(), "timeout", timeout)
			return
		}
		time.Sleep(s.cfg.Tick())
	}
	s.emit(taskEvent(StatusCancel, t, p))
}

func (s *Scheduler) land() error {
	var errs []error
	for attempt := 1; attempt <= s.cfg.LandRetries; attempt++ {
		err := s.v.Land()
		if err == nil {
			s.log.Info("land commanded", "attempt", attempt)
			return nil
		}
		s.log.Warn("land command failed", "attempt", attempt, "error", err)
		errs = append(errs, err)
		if attempt < s.cfg.LandRetries {
			time.Sleep(s.cfg.Tick())
		}
	}
	return fmt.Errorf("land failed after %d attempts: %w", s.cfg.LandRetries, errors.Join(errs...))
}

func (s *Scheduler) emit(evs ...StatusEvent) {
	if len(evs) == 0 {
		return
	}
	s.hooksMu.Lock()
	subs := append([]subscriber(nil), s.subs...)
	rec := s.recorder
	s.hooksMu.Unlock()

	for _, ev := range evs {
		ev.Time = time.Now()
		ev.Tick = s.ticks.Load()
		s.handleEvent(ev, rec)
		for _, sub := range subs {
			sub.fn(ev)
		}
	}
}

func (s *Scheduler) handleEvent(ev StatusEvent, rec *csvRecorder) {
	args := []any{"tick", ev.Tick, "event", ev.Kind.String()}
	if ev.TaskID != "" {
		args = append(args, "task", ev.TaskKind.String(), "task_id", ev.TaskID)
	}
	if ev.Priority != 0 {
		args = append(args, "priority", ev.Priority.String())
	}
	if ev.Detail != "" {
		args = append(args, "detail", ev.Detail)
	}

	switch ev.Kind {
	case StatusAbort, StatusEvict, StatusPreempt:
		s.log.Warn("scheduler event", args...)
	default:
		s.log.Info("scheduler event", args...)
	}

	// CSV output
	if rec != nil {
		if err := rec.record(ev); err != nil {
			s.log.Warn("event log write failed", "error", err)
		}
	}
}

func (s *Scheduler) closeRecorder() {
	s.hooksMu.Lock()
	rec := s.recorder
	s.recorder = nil
	s.hooksMu.Unlock()
	if rec != nil {
		if err := rec.Close(); err != nil {
			s.log.Warn("closing event log", "error", err)
		}
	}
}
