// Package telemetry publishes vehicle and scheduler state through expvar
// so it can be scraped from /debug/vars while flying.
package telemetry

import (
	"context"
	"errors"
	"expvar"
	"net"
	"net/http"
	"sync"
	"time"

	"flightsup/internal/logging"
	"flightsup/internal/sched"
	"flightsup/internal/vehicle"
)

// Config mirrors the telemetry section of config.yaml.
type Config struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"` // serves /debug/vars; empty publishes without serving
	PeriodMS int    `yaml:"period_ms"`
}

func DefaultConfig() Config {
	return Config{Addr: "127.0.0.1:6060", PeriodMS: 200}
}

func (c *Config) Sanitize() {
	if c.PeriodMS <= 0 {
		c.PeriodMS = DefaultConfig().PeriodMS
	}
}

var registerMu sync.Mutex

// publishedMap returns the process-wide expvar map with the given name,
// creating it on first use. expvar panics on duplicate registration.
func publishedMap(name string) *expvar.Map {
	registerMu.Lock()
	defer registerMu.Unlock()
	if m, ok := expvar.Get(name).(*expvar.Map); ok {
		return m
	}
	return expvar.NewMap(name)
}

// Publisher samples the vehicle metric table and counts scheduler events.
type Publisher struct {
	cfg    Config
	tel    vehicle.Telemetry
	vars   *expvar.Map
	events *expvar.Map
	log    *logging.Logger

	mu   sync.Mutex
	addr net.Addr
}

func New(cfg Config, tel vehicle.Telemetry, log *logging.Logger) *Publisher {
	cfg.Sanitize()
	return &Publisher{
		cfg:    cfg,
		tel:    tel,
		vars:   publishedMap("vehicle"),
		events: publishedMap("scheduler_events"),
		log:    log.With("component", "telemetry"),
	}
}

// Publish writes every metric of s.
func (p *Publisher) Publish(s vehicle.Snapshot) {
	for _, m := range vehicle.Metrics {
		setFloat(p.vars, m.Name, m.Read(s))
	}
}

// Observe counts ev by kind. It is meant to be passed to
// Scheduler.Subscribe.
func (p *Publisher) Observe(ev sched.StatusEvent) {
	p.events.Add(ev.Kind.String(), 1)
}

// Value returns the last published value of a vehicle metric.
func (p *Publisher) Value(name string) (float64, bool) {
	f, ok := p.vars.Get(name).(*expvar.Float)
	if !ok {
		return 0, false
	}
	return f.Value(), true
}

// Count returns how many events of kind were observed by this process.
func (p *Publisher) Count(kind sched.StatusKind) int64 {
	n, ok := p.events.Get(kind.String()).(*expvar.Int)
	if !ok {
		return 0
	}
	return n.Value()
}

// Addr is the bound HTTP address, or nil before Run has started serving.
func (p *Publisher) Addr() net.Addr {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addr
}

// Run samples telemetry every period until ctx ends, serving /debug/vars
// when an address is configured. Telemetry read errors are logged and
// skipped.
func (p *Publisher) Run(ctx context.Context) error {
	if p.cfg.Addr != "" {
		ln, err := net.Listen("tcp", p.cfg.Addr)
		if err != nil {
			return err
		}
		p.mu.Lock()
		p.addr = ln.Addr()
		p.mu.Unlock()

		server := &http.Server{Handler: http.DefaultServeMux}
		go func() {
			if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				p.log.Warn("telemetry server stopped", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
		p.log.Info("telemetry endpoint ready", "url", "http://"+ln.Addr().String()+"/debug/vars")
	}

	ticker := time.NewTicker(time.Duration(p.cfg.PeriodMS) * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s, err := p.tel.Snapshot()
			if err != nil {
				p.log.Debug("telemetry sample skipped", "error", err)
				continue
			}
			p.Publish(s)
		}
	}
}

func setFloat(m *expvar.Map, key string, value float64) {
	if f, ok := m.Get(key).(*expvar.Float); ok {
		f.Set(value)
		return
	}
	f := new(expvar.Float)
	f.Set(value)
	m.Set(key, f)
}
