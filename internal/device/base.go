package device

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/almue/almue-core/internal/gpio"
)

// Logger defines the logging interface used by devices.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// PinConnection is the part of gpio.Connection devices use.
type PinConnection interface {
	IsOpened() bool
	Add(pin gpio.Pin) error
	Remove(name string) error
	Contains(name string) bool
	Write(name string, high bool) error
}

// Timer is a cancellable one-shot timer.
type Timer interface {
	Stop() bool
}

// Clock schedules safety timers.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock returns a Clock backed by the time package.
func SystemClock() Clock {
	return systemClock{}
}

// Options carries the collaborators shared by all devices.
type Options struct {
	// Clock drives shutter safety timers. Defaults to SystemClock.
	Clock Clock

	// Logger defaults to a no-op logger.
	Logger Logger

	// OnChange receives every change notification. May be nil.
	OnChange ChangeHandler

	// OnPulse receives every counted wind pulse. May be nil.
	OnPulse PulseHandler
}

// PulseHandler is called after a wind monitor counted a pulse.
type PulseHandler func(d Device, count, threshold int)

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = SystemClock()
	}
	if o.Logger == nil {
		o.Logger = noopLogger{}
	}
	return o
}

// base holds the state common to all variants.
//
// Methods ending in Locked require mu to be held. Collected changes are
// emitted by the public method after mu is released.
type base struct {
	mu sync.Mutex

	self        Device
	typ         Type
	description string
	floor       string

	conn     PinConnection
	clock    Clock
	logger   Logger
	onChange ChangeHandler
	onPulse  PulseHandler

	// disabled starts true so that construction attaches the pins of an
	// enabled device through the normal path.
	disabled bool
}

func newBase(typ Type, description, floor string, conn PinConnection, opts Options) base {
	opts = opts.withDefaults()
	return base{
		typ:         typ,
		description: description,
		floor:       floor,
		conn:        conn,
		clock:       opts.Clock,
		logger:      opts.Logger,
		onChange:    opts.OnChange,
		onPulse:     opts.OnPulse,
		disabled:    true,
	}
}

// ID returns "<type segment>/<description>".
func (b *base) ID() string {
	return b.typ.Segment() + "/" + b.description
}

// Type returns the device variant.
func (b *base) Type() Type { return b.typ }

// Description returns the configured description.
func (b *base) Description() string { return b.description }

// Floor returns the configured floor.
func (b *base) Floor() string { return b.floor }

// Disabled reports whether the device is out of service.
func (b *base) Disabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disabled
}

// active reports whether hardware may be touched. Requires mu.
func (b *base) active() bool {
	return !b.disabled && b.conn != nil && b.conn.IsOpened()
}

// emit delivers changes to the handler. Must be called without mu.
func (b *base) emit(changes []Change) {
	if b.onChange == nil {
		return
	}
	for _, c := range changes {
		b.onChange(b.self, c)
	}
}

// setDisabledLocked attaches or detaches pins and flips the flag.
// It reports whether the value changed.
func (b *base) setDisabledLocked(disabled bool, pins []gpio.Pin) (bool, error) {
	if b.disabled == disabled {
		return false, nil
	}
	if b.conn == nil {
		return false, fmt.Errorf("%s: no pin connection", b.ID())
	}

	if !disabled {
		if err := b.attachLocked(pins); err != nil {
			return false, err
		}
	} else {
		if err := b.detachLocked(pins); err != nil {
			return false, err
		}
	}

	b.disabled = disabled
	return true, nil
}

func (b *base) attachLocked(pins []gpio.Pin) error {
	var attached []string
	for _, p := range pins {
		if b.conn.Contains(p.Name) {
			continue
		}
		if err := b.conn.Add(p); err != nil {
			for _, name := range attached {
				b.conn.Remove(name) //nolint:errcheck // rolling back a failed attach
			}
			return fmt.Errorf("attaching %s: %w", p.Name, err)
		}
		attached = append(attached, p.Name)
	}
	return nil
}

func (b *base) detachLocked(pins []gpio.Pin) error {
	var errs []error
	for _, p := range pins {
		if !b.conn.Contains(p.Name) {
			continue
		}
		if err := b.conn.Remove(p.Name); err != nil {
			errs = append(errs, fmt.Errorf("detaching %s: %w", p.Name, err))
		}
	}
	return errors.Join(errs...)
}
