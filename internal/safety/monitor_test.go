package safety

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flightsup/internal/testutil"
	"flightsup/internal/vehicle"
)

type sinkRecorder struct {
	mu      sync.Mutex
	reasons []error
}

func (s *sinkRecorder) Abort(reason error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reasons = append(s.reasons, reason)
}

func (s *sinkRecorder) all() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.reasons...)
}

func TestChecks(t *testing.T) {
	tests := []struct {
		name string
		snap vehicle.Snapshot
		want error
	}{
		{"safe", vehicle.Snapshot{RangefinderAltitude: 1, BarometricAltitude: 1, Airspeed: 0.5}, nil},
		{"airspeed", vehicle.Snapshot{Airspeed: 1.2}, ErrVelocityExceeded},
		{"rangefinder altitude", vehicle.Snapshot{RangefinderAltitude: 1.6}, ErrAltitudeExceeded},
		{"barometric altitude", vehicle.Snapshot{BarometricAltitude: 1.6}, ErrAltitudeExceeded},
		{"roll", vehicle.Snapshot{Attitude: vehicle.Attitude{Roll: -0.6}}, ErrRollExceeded},
		{"pitch", vehicle.Snapshot{Attitude: vehicle.Attitude{Pitch: 0.6}}, ErrPitchExceeded},
		{"negative rangefinder", vehicle.Snapshot{RangefinderAltitude: -0.2}, ErrRangefinderMalfunction},
		{"nan rangefinder", vehicle.Snapshot{RangefinderAltitude: math.NaN()}, ErrRangefinderMalfunction},
		// airspeed is checked before altitude
		{"order", vehicle.Snapshot{Airspeed: 3, RangefinderAltitude: 3}, ErrVelocityExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := testutil.NewFakeVehicle()
			v.Update(func(s *vehicle.Snapshot) { *s = tt.snap })
			sink := &sinkRecorder{}
			m := New(DefaultConfig(), v, sink, nil)

			err := m.Check()
			if tt.want == nil {
				assert.NoError(t, err)
				assert.Empty(t, sink.all())
				return
			}
			assert.ErrorIs(t, err, tt.want)
			require.Len(t, sink.all(), 1)
			assert.ErrorIs(t, sink.all()[0], tt.want)
			assert.Equal(t, err, m.Violation())
		})
	}
}

func TestViolationMessage(t *testing.T) {
	v := &Violation{Err: ErrVelocityExceeded, Value: 1.5, Limit: 1}
	assert.Equal(t, "airspeed above limit: 1.500 (limit 1.000)", v.Error())
}

func TestSignalsOncePerEpisode(t *testing.T) {
	v := testutil.NewFakeVehicle()
	v.Update(func(s *vehicle.Snapshot) { s.Airspeed = 5 })
	sink := &sinkRecorder{}
	m := New(DefaultConfig(), v, sink, nil)

	for range 3 {
		assert.Error(t, m.Check())
	}
	assert.Len(t, sink.all(), 1)

	m.Reset()
	assert.NoError(t, m.Violation())
	assert.Error(t, m.Check())
	assert.Len(t, sink.all(), 2)
}

func TestTelemetryErrorAborts(t *testing.T) {
	v := testutil.NewFakeVehicle()
	v.SnapshotErr = vehicle.ErrLinkLost
	sink := &sinkRecorder{}
	m := New(DefaultConfig(), v, sink, nil)

	err := m.Check()
	assert.ErrorIs(t, err, ErrTelemetry)
	assert.ErrorIs(t, err, vehicle.ErrLinkLost)
	require.Len(t, sink.all(), 1)
}

func TestNeverActuates(t *testing.T) {
	v := testutil.NewFakeVehicle()
	v.Update(func(s *vehicle.Snapshot) { s.Airspeed = 5 })
	m := New(DefaultConfig(), v, &sinkRecorder{}, nil)
	_ = m.Check()
	assert.Empty(t, v.Commands())
}

func TestRunAndStop(t *testing.T) {
	v := testutil.NewFakeVehicle()
	v.Update(func(s *vehicle.Snapshot) { s.BarometricAltitude = 10 })
	sink := &sinkRecorder{}
	cfg := DefaultConfig()
	cfg.PeriodMS = 1
	m := New(cfg, v, sink, nil)

	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background()) }()

	require.Eventually(t, func() bool { return len(sink.all()) == 1 }, time.Second, time.Millisecond)
	m.Stop()
	m.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
	assert.True(t, errors.Is(sink.all()[0], ErrAltitudeExceeded))
}

func TestSanitize(t *testing.T) {
	cfg := Config{MaxTiltDeg: 120}
	cfg.Sanitize()
	assert.Equal(t, DefaultConfig(), cfg)
}
