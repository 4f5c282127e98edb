package gpio

import "errors"

// Domain-specific errors for GPIO operations.
var (
	// ErrConnectionUnavailable is returned when the hardware cannot be initialised.
	ErrConnectionUnavailable = errors.New("gpio: connection unavailable")

	// ErrNotOpened is returned when the connection is used before Open.
	ErrNotOpened = errors.New("gpio: connection not opened")

	// ErrPinNotAttached is returned when reading or writing a pin that is not attached.
	ErrPinNotAttached = errors.New("gpio: pin not attached")

	// ErrPinNotFound is returned when the driver has no pin with the requested number.
	ErrPinNotFound = errors.New("gpio: pin not found")

	// ErrPinInUse is returned when a pin number is already attached under another name.
	ErrPinInUse = errors.New("gpio: pin number already attached")

	// ErrWrongMode is returned when writing to an input pin.
	ErrWrongMode = errors.New("gpio: wrong pin mode")
)
