// Package app wires the scheduler and its concurrent activities into one
// flight supervisor.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"flightsup/internal/avoid"
	"flightsup/internal/config"
	"flightsup/internal/directive"
	"flightsup/internal/logging"
	"flightsup/internal/safety"
	"flightsup/internal/sched"
	"flightsup/internal/sim"
	"flightsup/internal/telemetry"
	"flightsup/internal/vehicle"
	"flightsup/internal/wait"
)

// ErrNoVehicle is returned when neither a vehicle nor the simulator is given.
var ErrNoVehicle = errors.New("no vehicle link configured; use the simulator")

const touchdownTimeout = 60 * time.Second

// Options selects what the supervisor flies and which inputs it accepts.
type Options struct {
	Config config.Config

	// Vehicle and Sensor are the hardware links. With Sim set they are
	// replaced by the simulator.
	Vehicle vehicle.Vehicle
	Sensor  avoid.Sensor
	Sim     bool

	// Console enables the operator prompt when In is non-nil.
	In  io.Reader
	Out io.Writer

	Mission *directive.Mission
}

// Supervisor runs the scheduler loop together with the safety monitor,
// the avoidance reactor, the directive listener and the telemetry
// publisher.
type Supervisor struct {
	cfg config.Config
	log *logging.Logger

	v       vehicle.Vehicle
	simV    *sim.Vehicle
	sched   *sched.Scheduler
	monitor *safety.Monitor
	reactor *avoid.Reactor

	listener  *directive.Listener
	publisher *telemetry.Publisher
	console   *directive.Console
	mission   *directive.Mission
}

// New builds every component. Nothing runs until Run.
func New(opts Options, log *logging.Logger) (*Supervisor, error) {
	cfg := opts.Config
	cfg.Sanitize()

	s := &Supervisor{cfg: cfg, log: log.With("component", "supervisor"), mission: opts.Mission}

	sensor := opts.Sensor
	switch {
	case opts.Sim:
		s.simV = sim.NewVehicle(cfg.Sim)
		s.v = s.simV
		sensor = sim.NewSensor(s.simV, cfg.Sim)
	case opts.Vehicle != nil:
		s.v = opts.Vehicle
	default:
		return nil, ErrNoVehicle
	}

	sc, err := sched.New(cfg.Scheduler, cfg.Task, s.v, log)
	if err != nil {
		return nil, err
	}
	s.sched = sc

	s.monitor = safety.New(cfg.Safety, s.v, sc, log)
	sc.OnAbort(s.monitor.Stop)

	if cfg.Avoidance.Enabled && sensor != nil {
		s.reactor = avoid.New(cfg.Avoidance, sensor, s.v, sc, log)
	}

	if cfg.Channel.Listen != "" {
		l, err := directive.Listen(cfg.Channel, sc, log)
		if err != nil {
			return nil, fmt.Errorf("directive channel: %w", err)
		}
		s.listener = l
	}

	if cfg.Telemetry.Enabled {
		s.publisher = telemetry.New(cfg.Telemetry, s.v, log)
		sc.Subscribe(s.publisher.Observe)
	}

	if opts.In != nil {
		out := opts.Out
		if out == nil {
			out = io.Discard
		}
		s.console = &directive.Console{In: opts.In, Out: out, Target: sc}
	}
	return s, nil
}

// Scheduler exposes the directive API.
func (s *Supervisor) Scheduler() *sched.Scheduler { return s.sched }

// Vehicle is the airframe being flown.
func (s *Supervisor) Vehicle() vehicle.Vehicle { return s.v }

// Monitor is the safety monitor.
func (s *Supervisor) Monitor() *safety.Monitor { return s.monitor }

// Run flies until the scheduler loop stops and returns its result.
// Cancelling ctx is an operator interrupt: the scheduler lands if airborne
// and the other activities keep running until it is done.
func (s *Supervisor) Run(ctx context.Context) error {
	if s.mission != nil {
		if err := s.mission.Submit(s.sched); err != nil {
			return fmt.Errorf("mission %q: %w", s.mission.Name, err)
		}
		s.log.Info("mission queued", "mission", s.mission.Name, "directives", len(s.mission.Directives))
	}

	auxCtx, stopAux := context.WithCancel(context.WithoutCancel(ctx))
	defer stopAux()

	eg, egCtx := errgroup.WithContext(auxCtx)
	if s.simV != nil {
		eg.Go(func() error { return s.simV.Run(egCtx) })
	}
	eg.Go(func() error { return s.monitor.Run(egCtx) })
	if s.reactor != nil {
		eg.Go(func() error {
			// flight continues without avoidance
			if err := s.reactor.Run(egCtx); err != nil {
				s.log.Error("obstacle avoidance stopped", "error", err)
			}
			return nil
		})
	}
	if s.listener != nil {
		eg.Go(func() error {
			if err := s.listener.Serve(egCtx); err != nil {
				s.log.Error("directive channel stopped", "error", err)
			}
			return nil
		})
	}
	if s.publisher != nil {
		eg.Go(func() error {
			if err := s.publisher.Run(egCtx); err != nil {
				s.log.Error("telemetry stopped", "error", err)
			}
			return nil
		})
	}

	// the console blocks on its reader, so it is not waited for
	if s.console != nil {
		go func() {
			if err := s.console.Run(egCtx); err != nil {
				s.log.Warn("console input ended", "error", err)
			}
		}()
	}

	var runErr error
	eg.Go(func() error {
		defer stopAux()
		runErr = s.sched.Run(ctx)
		if s.simV != nil {
			s.awaitTouchdown(egCtx)
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		return errors.Join(runErr, err)
	}
	if runErr != nil {
		s.log.Error("flight ended with an emergency landing", "error", runErr)
	} else {
		s.log.Info("flight ended")
	}
	return runErr
}

// awaitTouchdown keeps the simulated airframe stepping until it disarms.
func (s *Supervisor) awaitTouchdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, touchdownTimeout)
	defer cancel()
	tick := s.sched.Config().Tick()
	for {
		snap, err := s.v.Snapshot()
		if err != nil || !snap.Armed {
			return
		}
		if wait.Sleep(ctx, tick) != nil {
			s.log.Warn("vehicle still armed after the scheduler stopped", "altitude", snap.RangefinderAltitude)
			return
		}
	}
}
