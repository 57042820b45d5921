// internal/vehicle/vehicle.go

package vehicle

import (
	"errors"
	"fmt"
	"strings"
)

// Link errors are fatal for the current task and are never retried by it.
var (
	ErrLinkLost        = errors.New("vehicle link lost")
	ErrCommandRejected = errors.New("vehicle rejected command")
)

// Mode is the autopilot flight mode.
type Mode string

const (
	ModeGuided       Mode = "GUIDED"
	ModeGuidedNoGPS  Mode = "GUIDED_NOGPS"
	ModeLand         Mode = "LAND"
	ModeStabilize    Mode = "STABILIZE"
	ModeLoiter       Mode = "LOITER"
	ModeReturnToHome Mode = "RTL"
)

// YawDirection selects the rotation sense of a yaw command.
type YawDirection int

const (
	Clockwise        YawDirection = 1
	CounterClockwise YawDirection = -1
)

func (d YawDirection) String() string {
	if d == CounterClockwise {
		return "ccw"
	}
	return "cw"
}

// Attitude angles are in radians.
type Attitude struct {
	Roll  float64
	Pitch float64
	Yaw   float64
}

// Snapshot is a read-only view of the vehicle state at one instant.
type Snapshot struct {
	RangefinderAltitude float64 // m
	BarometricAltitude  float64 // m
	Airspeed            float64 // m/s
	Attitude            Attitude
	Heading             float64 // degrees, 0..360
	Armed               bool
	Mode                Mode
}

// Actuator issues commands. Velocities are NED (north, east, down) in m/s.
type Actuator interface {
	Arm() error
	Disarm() error
	Land() error
	SetMode(m Mode) error
	SetVelocity(north, east, down float64) error
	SetRelativePosition(north, east, down float64) error
	SetAttitude(roll, pitch, yawRate, thrust float64) error
	SetYaw(heading, speed float64, dir YawDirection, relative bool) error
}

// Telemetry reads vehicle state.
type Telemetry interface {
	Snapshot() (Snapshot, error)
}

// Vehicle is the full actuation and telemetry surface of one airframe.
type Vehicle interface {
	Actuator
	Telemetry
}

// Vector is a NED triple.
type Vector struct {
	North, East, Down float64
}

// Direction names one of the six axis-aligned movement directions.
type Direction string

const (
	Up       Direction = "up"
	Down     Direction = "down"
	Left     Direction = "left"
	Right    Direction = "right"
	Forward  Direction = "forward"
	Backward Direction = "backward"
)

// Console directions are (forward, left, up) triples: up is (0,0,1),
// left is (0,1,0). Vector converts them to NED.
var directions = map[Direction][3]float64{
	Up:       {0, 0, 1},
	Down:     {0, 0, -1},
	Left:     {0, 1, 0},
	Right:    {0, -1, 0},
	Forward:  {1, 0, 0},
	Backward: {-1, 0, 0},
}

// Vector returns the NED unit vector of the direction.
func (d Direction) Vector() (Vector, bool) {
	flu, ok := directions[d]
	if !ok {
		return Vector{}, false
	}
	return Vector{North: flu[0], East: -flu[1], Down: -flu[2]}, true
}

// ParseDirection accepts a direction name in any case.
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := directions[d]; !ok {
		return "", fmt.Errorf("unknown direction %q", s)
	}
	return d, nil
}
