package gpio

import (
	"fmt"
	"time"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// PeriphDriver drives Raspberry Pi header pins through periph.io.
//
// Pins are looked up by their BCM name ("GPIO17"). Inputs are configured with
// the internal pull-up and edge detection on both edges.
type PeriphDriver struct{}

// Init loads the periph host drivers. It fails when the process lacks
// access to /dev/gpiomem or the board is not supported.
func (PeriphDriver) Init() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("initialising periph host: %w", err)
	}
	return nil
}

// Open implements Driver.
func (PeriphDriver) Open(pin Pin) (Line, error) {
	p := gpioreg.ByName(fmt.Sprintf("GPIO%d", pin.Number))
	if p == nil {
		return nil, fmt.Errorf("%w: GPIO%d", ErrPinNotFound, pin.Number)
	}

	switch pin.Mode {
	case ModeInput:
		if err := p.In(pgpio.PullUp, pgpio.BothEdges); err != nil {
			return nil, fmt.Errorf("configuring %s as input: %w", p.Name(), err)
		}
	default:
		if err := p.Out(pgpio.Low); err != nil {
			return nil, fmt.Errorf("configuring %s as output: %w", p.Name(), err)
		}
	}

	return &periphLine{pin: p}, nil
}

type periphLine struct {
	pin pgpio.PinIO
}

func (l *periphLine) Out(high bool) error {
	return l.pin.Out(pgpio.Level(high))
}

func (l *periphLine) Read() (bool, error) {
	return bool(l.pin.Read()), nil
}

func (l *periphLine) WaitForEdge(timeout time.Duration) bool {
	return l.pin.WaitForEdge(timeout)
}

func (l *periphLine) Halt() error {
	return l.pin.Halt()
}
