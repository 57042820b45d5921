// internal/avoid/reactor.go

package avoid

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"flightsup/internal/logging"
	"flightsup/internal/vehicle"
	"flightsup/internal/wait"
)

// Sample is one return of the ranging sensor. Angle 0 points north.
type Sample struct {
	Angle    float64 // degrees
	Distance float64 // cm
	Signal   int
}

// Sensor delivers batches of samples. Scan blocks until a batch is ready.
type Sensor interface {
	Scan(ctx context.Context) ([]Sample, error)
}

// Controller grants exclusive actuation to a reaction. The returned context
// ends when the controller takes actuation back; the reaction must stop
// commanding the vehicle and then call release.
type Controller interface {
	Seize(ctx context.Context, timeout time.Duration) (context.Context, func(), error)
}

// Reactor watches the sensor and, when an obstacle comes inside the safety
// distance, takes control and nudges the vehicle toward free space.
type Reactor struct {
	cfg      Config
	sensor   Sensor
	v        vehicle.Vehicle
	ctl      Controller
	strategy Strategy
	log      *logging.Logger

	inFlight atomic.Bool // one reaction at a time
	wg       sync.WaitGroup
}

func New(cfg Config, sensor Sensor, v vehicle.Vehicle, ctl Controller, log *logging.Logger) *Reactor {
	cfg.Sanitize()
	return &Reactor{
		cfg:      cfg,
		sensor:   sensor,
		v:        v,
		ctl:      ctl,
		strategy: GapStrategy{Divisor: cfg.GapDivisor},
		log:      log.With("component", "avoidance"),
	}
}

// SetStrategy replaces the heading strategy. Call before Run.
func (r *Reactor) SetStrategy(s Strategy) { r.strategy = s }

// Run scans until ctx ends or the sensor fails, then waits for any
// reaction in flight.
func (r *Reactor) Run(ctx context.Context) error {
	defer r.wg.Wait()

	r.log.Info("obstacle avoidance started", "safety_distance_cm", r.cfg.SafetyDistance())
	for {
		samples, err := r.sensor.Scan(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("obstacle sensor: %w", err)
		}
		heading, ok := r.Evaluate(samples)
		if !ok {
			continue
		}
		r.trigger(ctx, heading)
	}
}

// Evaluate returns the escape heading for a batch, or false if nothing is
// inside the safety distance.
func (r *Reactor) Evaluate(samples []Sample) (float64, bool) {
	flagged := r.flagged(samples)
	if len(flagged) == 0 {
		return 0, false
	}
	return r.strategy.Heading(flagged, r.cfg.Sectors(), r.cfg.SectorDeg)
}

func (r *Reactor) flagged(samples []Sample) []int {
	n := r.cfg.Sectors()
	limit := r.cfg.SafetyDistance()
	var out []int
	for _, s := range samples {
		if s.Signal < r.cfg.SignalThreshold || s.Distance <= 0 || r.bad(s.Distance) {
			continue
		}
		if s.Distance >= limit {
			continue
		}
		angle := math.Mod(s.Angle, 360)
		if angle < 0 {
			angle += 360
		}
		sector := int(angle/r.cfg.SectorDeg) + 1
		if sector > n {
			sector = n
		}
		out = append(out, sector)
	}
	return out
}

func (r *Reactor) bad(d float64) bool {
	for _, b := range r.cfg.BadDistances {
		if d == b {
			return true
		}
	}
	return false
}

func (r *Reactor) trigger(ctx context.Context, heading float64) {
	if !r.inFlight.CompareAndSwap(false, true) {
		r.log.Debug("reaction already in flight; threat ignored", "heading", heading)
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.inFlight.Store(false)
		if err := r.React(ctx, heading); err != nil {
			r.log.Warn("obstacle reaction failed", "heading", heading, "error", err)
		}
	}()
}

// React performs one reaction toward heading. It does nothing when the
// vehicle is on the ground.
func (r *Reactor) React(ctx context.Context, heading float64) error {
	snap, err := r.v.Snapshot()
	if err != nil {
		return err
	}
	if !snap.Armed {
		return nil
	}

	actx, release, err := r.ctl.Seize(ctx, ms(r.cfg.SeizeTimeoutMS))
	if err != nil {
		return fmt.Errorf("seize control: %w", err)
	}
	defer release()
	r.log.Warn("obstacle inside safety distance; reacting", "heading", heading)

	// 1) nudge toward free space with a little climb
	if actx.Err() != nil {
		return revoked(actx)
	}
	rad := heading * math.Pi / 180
	north := r.cfg.NudgeM * math.Cos(rad)
	east := r.cfg.NudgeM * math.Sin(rad)
	if err := r.v.SetRelativePosition(north, east, -r.cfg.ClimbM); err != nil {
		return err
	}
	if wait.Sleep(actx, ms(r.cfg.ReactionMS)) != nil {
		return revoked(actx)
	}

	// 2) settle before handing control back
	interval := time.Duration(float64(time.Second) / r.cfg.ResendHz)
	deadline := time.Now().Add(ms(r.cfg.StabilizeMS))
	for time.Now().Before(deadline) {
		if actx.Err() != nil {
			return revoked(actx)
		}
		if err := r.v.SetVelocity(0, 0, 0); err != nil {
			return err
		}
		if wait.Sleep(actx, interval) != nil {
			return revoked(actx)
		}
	}
	r.log.Info("obstacle reaction complete")
	return nil
}

func revoked(ctx context.Context) error {
	return fmt.Errorf("reaction stopped: %w", context.Cause(ctx))
}

// InFlight reports whether a reaction is running.
func (r *Reactor) InFlight() bool { return r.inFlight.Load() }
