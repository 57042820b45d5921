// Package sim provides a point-mass vehicle and a ranging sensor for
// flying the supervisor without hardware.
package sim

import (
	"context"
	"math"
	"sync"
	"time"

	"flightsup/internal/vehicle"
)

type control int

const (
	controlNone control = iota
	controlAttitude
	controlVelocity
	controlPosition
)

// Vehicle is a kinematic airframe. Commands take effect on the next Step.
type Vehicle struct {
	cfg Config

	mu       sync.Mutex
	pos      [3]float64 // north, east, up
	vel      [3]float64 // last integrated velocity, same frame
	control  control
	thrust   float64
	velocity vehicle.Vector
	target   [3]float64
	heading  float64
	yawTo    float64
	yawRate  float64
	yawDir   vehicle.YawDirection
	yawing   bool
	armed    bool
	mode     vehicle.Mode
	linkLost bool
}

func NewVehicle(cfg Config) *Vehicle {
	cfg.Sanitize()
	return &Vehicle{cfg: cfg, mode: vehicle.ModeGuided}
}

// SetLinkLost makes every call fail with vehicle.ErrLinkLost until cleared.
func (v *Vehicle) SetLinkLost(lost bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.linkLost = lost
}

// Position returns north, east and altitude in metres.
func (v *Vehicle) Position() (north, east, alt float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pos[0], v.pos[1], v.pos[2]
}

func (v *Vehicle) command(fn func()) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.linkLost {
		return vehicle.ErrLinkLost
	}
	fn()
	return nil
}

func (v *Vehicle) Arm() error {
	return v.command(func() {
		if !v.armed && v.mode == vehicle.ModeLand {
			v.mode = vehicle.ModeGuided
		}
		v.armed = true
		v.control = controlNone
	})
}

func (v *Vehicle) Disarm() error {
	return v.command(func() { v.armed = false })
}

func (v *Vehicle) Land() error { return v.SetMode(vehicle.ModeLand) }

func (v *Vehicle) SetMode(m vehicle.Mode) error {
	return v.command(func() { v.mode = m })
}

func (v *Vehicle) SetVelocity(north, east, down float64) error {
	return v.command(func() {
		v.control = controlVelocity
		v.velocity = vehicle.Vector{North: north, East: east, Down: down}
	})
}

func (v *Vehicle) SetRelativePosition(north, east, down float64) error {
	return v.command(func() {
		v.control = controlPosition
		v.target = [3]float64{v.pos[0] + north, v.pos[1] + east, math.Max(0, v.pos[2]-down)}
	})
}

func (v *Vehicle) SetAttitude(_, _, _, thrust float64) error {
	return v.command(func() {
		v.control = controlAttitude
		v.thrust = thrust
	})
}

func (v *Vehicle) SetYaw(heading, speed float64, dir vehicle.YawDirection, relative bool) error {
	return v.command(func() {
		if relative {
			heading = v.heading + float64(dir)*heading
		}
		v.yawTo = wrap(heading)
		v.yawRate = math.Abs(speed)
		v.yawDir = dir
		v.yawing = true
	})
}

func (v *Vehicle) Snapshot() (vehicle.Snapshot, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.linkLost {
		return vehicle.Snapshot{}, vehicle.ErrLinkLost
	}
	rad := v.heading * math.Pi / 180
	return vehicle.Snapshot{
		RangefinderAltitude: v.pos[2],
		BarometricAltitude:  v.pos[2],
		Airspeed:            math.Hypot(v.vel[0], v.vel[1]),
		Attitude: vehicle.Attitude{
			Roll:  0.1 * v.vel[1],
			Pitch: -0.1 * v.vel[0],
			Yaw:   rad,
		},
		Heading: v.heading,
		Armed:   v.armed,
		Mode:    v.mode,
	}, nil
}

// Step integrates dt of flight.
func (v *Vehicle) Step(dt time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	sec := dt.Seconds()
	if sec <= 0 {
		return
	}

	var vel [3]float64
	if v.armed {
		switch {
		case v.mode == vehicle.ModeLand:
			vel[2] = -v.cfg.LandRate
		case v.control == controlAttitude:
			vel[2] = (v.thrust - v.cfg.HoverThrust) * v.cfg.ClimbGain
		case v.control == controlVelocity:
			vel = [3]float64{v.velocity.North, v.velocity.East, -v.velocity.Down}
		case v.control == controlPosition:
			vel = toward(v.pos, v.target, v.cfg.PositionSpeed, sec)
		}
	}
	for i := range v.pos {
		v.pos[i] += vel[i] * sec
	}
	if v.pos[2] <= 0 {
		v.pos[2] = 0
		if vel[2] < 0 {
			vel[2] = 0
		}
		if v.mode == vehicle.ModeLand {
			v.armed = false
		}
	}
	v.vel = vel

	if v.yawing && v.armed {
		v.stepYaw(sec)
	}
}

func (v *Vehicle) stepYaw(sec float64) {
	remaining := wrap(float64(v.yawDir) * (v.yawTo - v.heading))
	turn := v.yawRate * sec
	if remaining <= turn {
		v.heading = v.yawTo
		v.yawing = false
		return
	}
	v.heading = wrap(v.heading + float64(v.yawDir)*turn)
}

// Run steps the vehicle in real time until ctx ends.
func (v *Vehicle) Run(ctx context.Context) error {
	step := v.cfg.step()
	ticker := time.NewTicker(step)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			v.Step(step)
		}
	}
}

// toward returns the velocity that moves from toward to at speed without
// overshooting within one step of sec seconds.
func toward(from, to [3]float64, speed, sec float64) [3]float64 {
	var d [3]float64
	dist := 0.0
	for i := range d {
		d[i] = to[i] - from[i]
		dist += d[i] * d[i]
	}
	dist = math.Sqrt(dist)
	if dist == 0 {
		return d
	}
	scale := speed / dist
	if dist <= speed*sec {
		scale = 1 / sec
	}
	for i := range d {
		d[i] *= scale
	}
	return d
}

func wrap(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

var _ vehicle.Vehicle = (*Vehicle)(nil)
