// Package testutil provides shared test doubles.
package testutil

import (
	"math"
	"sync"

	"flightsup/internal/vehicle"
)

// Command is one recorded actuation call.
type Command struct {
	Name string // arm, disarm, land, mode, velocity, relpos, attitude, yaw
	Args []float64
	Mode vehicle.Mode
}

// IsZeroVelocity reports whether c is a velocity command with all components zero.
func (c Command) IsZeroVelocity() bool {
	if c.Name != "velocity" {
		return false
	}
	for _, a := range c.Args {
		if a != 0 {
			return false
		}
	}
	return true
}

// FakeVehicle is a test double for vehicle.Vehicle. It records every
// command and evolves its state a little on each Snapshot so tasks can
// make progress without a physics model.
type FakeVehicle struct {
	mu       sync.Mutex
	state    vehicle.Snapshot
	commands []Command

	// ArmFailures is the number of Arm calls that are accepted but do not arm.
	ArmFailures int
	// AscentStep is the altitude gained per Snapshot while climbing under thrust.
	AscentStep float64
	// LandModeLag is the number of SetMode(LAND) calls ignored before the mode changes.
	LandModeLag int
	// DisarmAfter is the number of Snapshots in LAND mode before touchdown.
	DisarmAfter int
	// YawStep is the heading change in degrees per Snapshot toward a yaw target.
	YawStep float64
	// Err, when set, is returned by every actuation call.
	Err error
	// SnapshotErr, when set, is returned by Snapshot.
	SnapshotErr error
	// LandErrs are returned by successive Land calls before they succeed.
	LandErrs []error

	climbing      bool
	yawTarget     float64
	yawing        bool
	landSnapshots int
}

func NewFakeVehicle() *FakeVehicle {
	return &FakeVehicle{state: vehicle.Snapshot{Mode: vehicle.ModeGuided}}
}

// NewArmedFakeVehicle returns a fake already airborne at altitude.
func NewArmedFakeVehicle(altitude float64) *FakeVehicle {
	f := NewFakeVehicle()
	f.state.Armed = true
	f.state.RangefinderAltitude = altitude
	f.state.BarometricAltitude = altitude
	return f
}

// Update mutates the state under the lock.
func (f *FakeVehicle) Update(fn func(*vehicle.Snapshot)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.state)
}

// State returns the current state without advancing it.
func (f *FakeVehicle) State() vehicle.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Commands returns a copy of the recorded commands.
func (f *FakeVehicle) Commands() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command(nil), f.commands...)
}

// Named returns the recorded commands with the given name.
func (f *FakeVehicle) Named(name string) []Command {
	var out []Command
	for _, c := range f.Commands() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many commands with the given name were recorded.
func (f *FakeVehicle) Count(name string) int {
	return len(f.Named(name))
}

// Last returns the most recent command, if any.
func (f *FakeVehicle) Last() (Command, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.commands) == 0 {
		return Command{}, false
	}
	return f.commands[len(f.commands)-1], true
}

// ResetCommands clears the command log.
func (f *FakeVehicle) ResetCommands() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = nil
}

func (f *FakeVehicle) record(c Command) error {
	f.commands = append(f.commands, c)
	return f.Err
}

func (f *FakeVehicle) Arm() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Command{Name: "arm"}); err != nil {
		return err
	}
	if f.ArmFailures > 0 {
		f.ArmFailures--
		return nil
	}
	f.state.Armed = true
	return nil
}

func (f *FakeVehicle) Disarm() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Command{Name: "disarm"}); err != nil {
		return err
	}
	f.state.Armed = false
	return nil
}

func (f *FakeVehicle) Land() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Command{Name: "land"}); err != nil {
		return err
	}
	if len(f.LandErrs) > 0 {
		err := f.LandErrs[0]
		f.LandErrs = f.LandErrs[1:]
		return err
	}
	f.state.Mode = vehicle.ModeLand
	f.climbing = false
	return nil
}

func (f *FakeVehicle) SetMode(m vehicle.Mode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Command{Name: "mode", Mode: m}); err != nil {
		return err
	}
	if m == vehicle.ModeLand && f.LandModeLag > 0 {
		f.LandModeLag--
		return nil
	}
	f.state.Mode = m
	return nil
}

func (f *FakeVehicle) SetVelocity(north, east, down float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Command{Name: "velocity", Args: []float64{north, east, down}}); err != nil {
		return err
	}
	f.climbing = false
	return nil
}

func (f *FakeVehicle) SetRelativePosition(north, east, down float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record(Command{Name: "relpos", Args: []float64{north, east, down}})
}

func (f *FakeVehicle) SetAttitude(roll, pitch, yawRate, thrust float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Command{Name: "attitude", Args: []float64{roll, pitch, yawRate, thrust}}); err != nil {
		return err
	}
	f.climbing = thrust > 0.5
	return nil
}

func (f *FakeVehicle) SetYaw(heading, speed float64, dir vehicle.YawDirection, relative bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rel := 0.0
	if relative {
		rel = 1
	}
	if err := f.record(Command{Name: "yaw", Args: []float64{heading, speed, float64(dir), rel}}); err != nil {
		return err
	}
	f.yawTarget = heading
	if relative {
		f.yawTarget = math.Mod(f.state.Heading+float64(dir)*heading+360, 360)
	}
	f.yawing = true
	return nil
}

func (f *FakeVehicle) Snapshot() (vehicle.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SnapshotErr != nil {
		return vehicle.Snapshot{}, f.SnapshotErr
	}

	if f.climbing && f.state.Armed && f.AscentStep > 0 {
		f.state.RangefinderAltitude += f.AscentStep
		f.state.BarometricAltitude += f.AscentStep
	}
	if f.yawing && f.YawStep > 0 {
		f.state.Heading = stepHeading(f.state.Heading, f.yawTarget, f.YawStep)
		if f.state.Heading == f.yawTarget {
			f.yawing = false
		}
	}
	if f.state.Mode == vehicle.ModeLand && f.state.Armed {
		f.landSnapshots++
		if f.landSnapshots > f.DisarmAfter {
			f.state.Armed = false
			f.state.RangefinderAltitude = 0
			f.state.BarometricAltitude = 0
		}
	}
	return f.state, nil
}

// stepHeading moves cur toward target by at most step degrees along the shorter arc.
func stepHeading(cur, target, step float64) float64 {
	diff := math.Mod(target-cur+540, 360) - 180
	if math.Abs(diff) <= step {
		return target
	}
	if diff < 0 {
		step = -step
	}
	return math.Mod(cur+step+360, 360)
}

var _ vehicle.Vehicle = (*FakeVehicle)(nil)
