package avoid

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flightsup/internal/testutil"
)

type fakeController struct {
	mu       sync.Mutex
	seizes   int
	releases int
	err      error
	revoke   error // cancels the granted context on the first seize
}

func (f *fakeController) Seize(ctx context.Context, _ time.Duration) (context.Context, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, nil, f.err
	}
	f.seizes++
	granted, cancel := context.WithCancelCause(ctx)
	if f.revoke != nil {
		cancel(f.revoke)
	}
	return granted, func() {
		cancel(nil)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.releases++
	}, nil
}

func (f *fakeController) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seizes, f.releases
}

type scriptedSensor struct {
	batches chan []Sample
	err     error
}

func (s *scriptedSensor) Scan(ctx context.Context) ([]Sample, error) {
	if s.err != nil {
		return nil, s.err
	}
	select {
	case b := <-s.batches:
		return b, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.ReactionMS = 5
	cfg.StabilizeMS = 5
	cfg.ResendHz = 1000
	return cfg
}

func TestGapStrategy(t *testing.T) {
	tests := []struct {
		name    string
		flagged []int
		divisor float64
		want    float64
	}{
		{"single sector", []int{1}, 3, 130},
		{"cluster", []int{3, 1, 2, 2}, 3, 140},
		{"tie picks first gap", []int{10, 28}, 3, 160},
		{"wraps past 360", []int{30, 35}, 3, 90},
		{"halfway divisor", []int{1}, 2, 190},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := GapStrategy{Divisor: tt.divisor}.Heading(tt.flagged, 36, 10)
			require.True(t, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	_, ok := GapStrategy{Divisor: 3}.Heading(nil, 36, 10)
	assert.False(t, ok)
}

func TestEvaluateFiltersSamples(t *testing.T) {
	r := New(fastConfig(), nil, testutil.NewFakeVehicle(), &fakeController{}, nil)

	tests := []struct {
		name    string
		samples []Sample
		ok      bool
		want    float64
	}{
		{"nothing", nil, false, 0},
		{"weak signal", []Sample{{Angle: 5, Distance: 50, Signal: 20}}, false, 0},
		{"error code", []Sample{{Angle: 5, Distance: 1, Signal: 200}}, false, 0},
		{"far away", []Sample{{Angle: 5, Distance: 150, Signal: 200}}, false, 0},
		{"close", []Sample{{Angle: 5, Distance: 50, Signal: 200}}, true, 130},
		{"negative angle wraps", []Sample{{Angle: -355, Distance: 50, Signal: 200}}, true, 130},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Evaluate(tt.samples)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

type fixedStrategy float64

func (f fixedStrategy) Heading([]int, int, float64) (float64, bool) { return float64(f), true }

func TestSetStrategy(t *testing.T) {
	r := New(fastConfig(), nil, testutil.NewFakeVehicle(), &fakeController{}, nil)
	r.SetStrategy(fixedStrategy(45))
	got, ok := r.Evaluate([]Sample{{Angle: 90, Distance: 10, Signal: 255}})
	require.True(t, ok)
	assert.Equal(t, 45.0, got)
}

func TestReactCommands(t *testing.T) {
	v := testutil.NewArmedFakeVehicle(1.0)
	ctl := &fakeController{}
	r := New(fastConfig(), nil, v, ctl, nil)

	require.NoError(t, r.React(context.Background(), 90))

	cmds := v.Commands()
	require.NotEmpty(t, cmds)
	assert.Equal(t, "relpos", cmds[0].Name)
	assert.InDelta(t, 0, cmds[0].Args[0], 1e-9)
	assert.InDelta(t, 0.5, cmds[0].Args[1], 1e-9)
	assert.InDelta(t, -0.1, cmds[0].Args[2], 1e-9)
	for _, c := range cmds[1:] {
		assert.True(t, c.IsZeroVelocity())
	}

	seizes, releases := ctl.counts()
	assert.Equal(t, 1, seizes)
	assert.Equal(t, 1, releases)
}

func TestReactSkipsOnTheGround(t *testing.T) {
	v := testutil.NewFakeVehicle()
	ctl := &fakeController{}
	r := New(fastConfig(), nil, v, ctl, nil)

	require.NoError(t, r.React(context.Background(), 90))
	assert.Empty(t, v.Commands())
	seizes, _ := ctl.counts()
	assert.Zero(t, seizes)
}

func TestReactSeizeRefused(t *testing.T) {
	v := testutil.NewArmedFakeVehicle(1.0)
	refused := errors.New("landing")
	r := New(fastConfig(), nil, v, &fakeController{err: refused}, nil)

	assert.ErrorIs(t, r.React(context.Background(), 90), refused)
	assert.Empty(t, v.Commands())
}

func TestReactStopsWhenControlRevoked(t *testing.T) {
	v := testutil.NewArmedFakeVehicle(1.0)
	landing := errors.New("landing")
	ctl := &fakeController{revoke: landing}
	r := New(fastConfig(), nil, v, ctl, nil)

	err := r.React(context.Background(), 90)
	assert.ErrorIs(t, err, landing)
	assert.Empty(t, v.Commands())
	_, releases := ctl.counts()
	assert.Equal(t, 1, releases)
}

func TestRunIgnoresThreatsWhileReacting(t *testing.T) {
	v := testutil.NewArmedFakeVehicle(1.0)
	ctl := &fakeController{}
	cfg := fastConfig()
	cfg.ReactionMS = 50

	threat := []Sample{{Angle: 0, Distance: 40, Signal: 200}}
	sensor := &scriptedSensor{batches: make(chan []Sample, 2)}
	sensor.batches <- threat
	sensor.batches <- threat

	r := New(cfg, sensor, v, ctl, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, releases := ctl.counts()
		return releases == 1
	}, 2*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	seizes, _ := ctl.counts()
	assert.Equal(t, 1, seizes)
	assert.Equal(t, 1, v.Count("relpos"))
	assert.False(t, r.InFlight())
}

func TestRunSensorFailure(t *testing.T) {
	sensor := &scriptedSensor{err: errors.New("serial port closed")}
	r := New(fastConfig(), sensor, testutil.NewFakeVehicle(), &fakeController{}, nil)
	assert.ErrorContains(t, r.Run(context.Background()), "serial port closed")
}

func TestConfigDerived(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 36, cfg.Sectors())
	assert.Equal(t, 100.0, cfg.SafetyDistance())

	bad := Config{SectorDeg: -1, GapDivisor: 0}
	bad.Sanitize()
	assert.Equal(t, 10.0, bad.SectorDeg)
	assert.Equal(t, 3.0, bad.GapDivisor)
}
