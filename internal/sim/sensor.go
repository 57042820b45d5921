package sim

import (
	"context"
	"math"

	"flightsup/internal/avoid"
	"flightsup/internal/wait"
)

// Sensor reports the configured obstacles relative to the vehicle, one
// sample per obstacle per revolution. Angles are bearings from north.
type Sensor struct {
	v         *Vehicle
	obstacles []Obstacle
	cfg       Config
}

func NewSensor(v *Vehicle, cfg Config) *Sensor {
	cfg.Sanitize()
	return &Sensor{v: v, obstacles: cfg.Obstacles, cfg: cfg}
}

const returnSignal = 200

func (s *Sensor) Scan(ctx context.Context) ([]avoid.Sample, error) {
	if err := wait.Sleep(ctx, s.cfg.scan()); err != nil {
		return nil, err
	}
	north, east, _ := s.v.Position()
	out := make([]avoid.Sample, 0, len(s.obstacles))
	for _, o := range s.obstacles {
		dn, de := o.North-north, o.East-east
		out = append(out, avoid.Sample{
			Angle:    wrap(math.Atan2(de, dn) * 180 / math.Pi),
			Distance: math.Hypot(dn, de) * 100,
			Signal:   returnSignal,
		})
	}
	return out, nil
}

var _ avoid.Sensor = (*Sensor)(nil)
