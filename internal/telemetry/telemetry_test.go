package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flightsup/internal/sched"
	"flightsup/internal/testutil"
	"flightsup/internal/vehicle"
)

func TestPublish(t *testing.T) {
	p := New(Config{}, testutil.NewFakeVehicle(), nil)
	p.Publish(vehicle.Snapshot{RangefinderAltitude: 1.25, Heading: 90, Armed: true})

	alt, ok := p.Value("altitude_rangefinder")
	require.True(t, ok)
	assert.Equal(t, 1.25, alt)
	armed, _ := p.Value("armed")
	assert.Equal(t, 1.0, armed)

	_, ok = p.Value("no_such_metric")
	assert.False(t, ok)
}

func TestObserveCountsByKind(t *testing.T) {
	p := New(Config{}, testutil.NewFakeVehicle(), nil)
	before := p.Count(sched.StatusDispatch)

	p.Observe(sched.StatusEvent{Kind: sched.StatusDispatch})
	p.Observe(sched.StatusEvent{Kind: sched.StatusDispatch})
	p.Observe(sched.StatusEvent{Kind: sched.StatusFinish})

	assert.Equal(t, before+2, p.Count(sched.StatusDispatch))
	assert.Positive(t, p.Count(sched.StatusFinish))
}

func TestPublishersShareRegistration(t *testing.T) {
	assert.NotPanics(t, func() {
		New(Config{}, testutil.NewFakeVehicle(), nil)
		New(Config{}, testutil.NewFakeVehicle(), nil)
	})
}

func TestRunServesDebugVars(t *testing.T) {
	v := testutil.NewArmedFakeVehicle(0.75)
	p := New(Config{Addr: "127.0.0.1:0", PeriodMS: 10}, v, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool {
		alt, ok := p.Value("altitude_barometric")
		return ok && alt == 0.75 && p.Addr() != nil
	}, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + p.Addr().String() + "/debug/vars")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var vars map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&vars))
	assert.Contains(t, vars, "vehicle")
	assert.Contains(t, vars, "scheduler_events")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("publisher did not stop")
	}
}

func TestRunSkipsTelemetryErrors(t *testing.T) {
	v := testutil.NewArmedFakeVehicle(1)
	v.SnapshotErr = vehicle.ErrLinkLost
	p := New(Config{PeriodMS: 5}, v, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.NoError(t, p.Run(ctx))
}

func TestSanitize(t *testing.T) {
	c := Config{PeriodMS: -1}
	c.Sanitize()
	assert.Equal(t, DefaultConfig().PeriodMS, c.PeriodMS)
}
