package gpio

import "time"

// Mode is the direction of a pin.
type Mode int

// Pin modes.
const (
	ModeOutput Mode = iota
	ModeInput
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeInput {
		return "input"
	}
	return "output"
}

// EdgeFunc receives the level of an input pin after an edge.
type EdgeFunc func(high bool)

// Pin describes one pin a device wants attached.
type Pin struct {
	// Name identifies the pin on the connection, e.g. "Kitchen_openPin".
	Name string

	// Number is the BCM GPIO number.
	Number int

	Mode Mode

	// OnEdge is called for every edge on an input pin. Ignored for outputs.
	OnEdge EdgeFunc
}

// Line is an opened pin handed out by a Driver.
type Line interface {
	// Out drives an output line.
	Out(high bool) error

	// Read returns the current level.
	Read() (bool, error)

	// WaitForEdge blocks until an edge occurs or timeout elapses.
	// It returns false on timeout.
	WaitForEdge(timeout time.Duration) bool

	// Halt releases the line.
	Halt() error
}

// Driver opens lines on a particular backend.
type Driver interface {
	// Init prepares the backend. It is called once by Connection.Open.
	Init() error

	// Open configures the pin in the requested mode and returns its line.
	Open(pin Pin) (Line, error)
}
