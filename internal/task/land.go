package task

import (
	"flightsup/internal/vehicle"
)

type land struct{}

// NewLand switches the vehicle to LAND and waits for touchdown and disarm.
func NewLand(v vehicle.Vehicle, cfg Config) *Task {
	return newTask(KindLand, v, cfg, land{})
}

func (land) describe() string { return "land" }

func (land) step(v vehicle.Vehicle, _ *Config) (bool, error) {
	snap, err := v.Snapshot()
	if err != nil {
		return false, err
	}
	if snap.Mode != vehicle.ModeLand {
		return false, v.SetMode(vehicle.ModeLand)
	}
	return !snap.Armed, nil
}

// landing cannot be cancelled
func (land) halt(vehicle.Vehicle) error { return nil }

type exit struct{}

// NewExit ends the scheduler loop. Performed while armed it fails with
// ErrEmergencyLand so the caller lands first.
func NewExit(v vehicle.Vehicle, cfg Config) *Task {
	return newTask(KindExit, v, cfg, exit{})
}

func (exit) describe() string { return "exit" }

func (exit) step(v vehicle.Vehicle, _ *Config) (bool, error) {
	snap, err := v.Snapshot()
	if err != nil {
		return false, err
	}
	if snap.Armed {
		return false, ErrEmergencyLand
	}
	return true, nil
}

func (exit) halt(vehicle.Vehicle) error { return nil }
