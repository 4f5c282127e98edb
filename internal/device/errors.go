package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, device.ErrInvalidTimeOfDay) {
//	    // drop the command
//	}
var (
	// ErrDeviceNotFound is returned when no device matches a (type, description) pair.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when registering a (type, description) pair twice.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidDeviceType is returned when a device type is not recognised.
	ErrInvalidDeviceType = errors.New("device: invalid type")

	// ErrInvalidStatus is returned when a status value is not recognised.
	ErrInvalidStatus = errors.New("device: invalid status")

	// ErrInvalidAction is returned when an action value is not recognised.
	ErrInvalidAction = errors.New("device: invalid action")

	// ErrInvalidTimeOfDay is returned when a time-of-day string cannot be parsed.
	ErrInvalidTimeOfDay = errors.New("device: invalid time of day")

	// ErrInvalidConfig is returned when a device cannot be built from its configuration.
	ErrInvalidConfig = errors.New("device: invalid configuration")
)
