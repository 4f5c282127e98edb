package outputtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/almue/almue-core/internal/gpio"
	"github.com/almue/almue-core/internal/infrastructure/config"
)

// Sequence timings.
const (
	StepHold   = 2 * time.Second
	AllLowHold = 5 * time.Second
	SweepHold  = 250 * time.Millisecond
)

// Logger defines the logging interface used by the runner.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// PinWriter is the part of *gpio.Connection the runner drives.
type PinWriter interface {
	Add(pin gpio.Pin) error
	Remove(name string) error
	Write(name string, high bool) error
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Runner executes the sequence.
type Runner struct {
	conn   PinWriter
	pins   []gpio.Pin
	sleep  SleepFunc
	logger Logger
}

// New creates a runner for pins. Use PinsFromConfig to collect them.
func New(conn PinWriter, pins []gpio.Pin) *Runner {
	return &Runner{
		conn:   conn,
		pins:   pins,
		sleep:  Sleep,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger.
func (r *Runner) SetLogger(logger Logger) {
	r.logger = logger
}

// SetSleep replaces the wait function. Tests use it to skip real time.
func (r *Runner) SetSleep(sleep SleepFunc) {
	r.sleep = sleep
}

// PinsFromConfig returns the output pins of set: each shutter's open and
// close pin, then each lighting's switch pin, in file order. Names follow
// the device naming so the log lines match normal operation.
func PinsFromConfig(set *config.DeviceSet) []gpio.Pin {
	if set == nil {
		return nil
	}
	pins := make([]gpio.Pin, 0, 2*len(set.Shutters)+len(set.Lightings))
	for _, s := range set.Shutters {
		pins = append(pins,
			gpio.Pin{Name: s.Description + "_openPin", Number: s.OpenPin, Mode: gpio.ModeOutput},
			gpio.Pin{Name: s.Description + "_closePin", Number: s.ClosePin, Mode: gpio.ModeOutput},
		)
	}
	for _, l := range set.Lightings {
		pins = append(pins, gpio.Pin{Name: l.Description, Number: l.SwitchPin, Mode: gpio.ModeOutput})
	}
	return pins
}

// Run attaches every pin, runs the sequence and detaches the pins again.
// A cancelled ctx stops the sequence between steps and returns ctx.Err().
func (r *Runner) Run(ctx context.Context) (err error) {
	for _, p := range r.pins {
		if addErr := r.conn.Add(p); addErr != nil {
			r.detach() //nolint:errcheck // the attach error is reported
			return fmt.Errorf("attaching %s (pin %d): %w", p.Name, p.Number, addErr)
		}
	}
	defer func() {
		if detachErr := r.detach(); detachErr != nil && err == nil {
			err = detachErr
		}
	}()

	r.logger.Info("output test started", "pins", len(r.pins))

	for _, p := range r.pins {
		if err := r.blink(ctx, p, StepHold); err != nil {
			return err
		}
	}

	if err := r.setAll(false); err != nil {
		return err
	}
	if err := r.sleep(ctx, AllLowHold); err != nil {
		return err
	}
	if err := r.setAll(true); err != nil {
		return err
	}

	for _, p := range r.pins {
		if err := r.blink(ctx, p, SweepHold); err != nil {
			return err
		}
	}
	for i := len(r.pins) - 1; i >= 0; i-- {
		if err := r.blink(ctx, r.pins[i], SweepHold); err != nil {
			return err
		}
	}

	r.logger.Info("output test finished")
	return nil
}

// blink drives p low for hold, then high for hold.
func (r *Runner) blink(ctx context.Context, p gpio.Pin, hold time.Duration) error {
	if err := r.conn.Write(p.Name, false); err != nil {
		return fmt.Errorf("writing %s: %w", p.Name, err)
	}
	if err := r.sleep(ctx, hold); err != nil {
		return err
	}
	if err := r.conn.Write(p.Name, true); err != nil {
		return fmt.Errorf("writing %s: %w", p.Name, err)
	}
	return r.sleep(ctx, hold)
}

func (r *Runner) setAll(high bool) error {
	for _, p := range r.pins {
		if err := r.conn.Write(p.Name, high); err != nil {
			return fmt.Errorf("writing %s: %w", p.Name, err)
		}
	}
	return nil
}

func (r *Runner) detach() error {
	var errs []error
	for _, p := range r.pins {
		if err := r.conn.Remove(p.Name); err != nil && !errors.Is(err, gpio.ErrPinNotAttached) {
			r.logger.Warn("detaching pin failed", "pin", p.Name, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
