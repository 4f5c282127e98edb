package scheduler

import "errors"

var (
	// ErrNotSchedulable is returned for devices that cannot carry jobs.
	ErrNotSchedulable = errors.New("scheduler: device is not schedulable")

	// ErrTimeNotSet is returned when the time for an action is not configured.
	ErrTimeNotSet = errors.New("scheduler: time not set")

	// ErrNoActions is returned for schedulable devices that are neither
	// Shuttable nor Switchable.
	ErrNoActions = errors.New("scheduler: device has no schedulable actions")
)
