package controller

import "errors"

var (
	// ErrDeviceNotFound is returned when no device matches the command target.
	ErrDeviceNotFound = errors.New("controller: device not found")

	// ErrCapabilityMismatch is returned when the target lacks the capability
	// the action requires.
	ErrCapabilityMismatch = errors.New("controller: capability mismatch")
)
