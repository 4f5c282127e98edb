package device

import (
	"fmt"

	"github.com/almue/almue-core/internal/gpio"
)

// LightingSettings is the construction input of a Lighting.
type LightingSettings struct {
	Description  string
	Floor        string
	SwitchPin    int
	Disabled     bool
	TimerEnabled bool
	OnTime       TimeOfDay
	OffTime      TimeOfDay
	Status       Status
}

// Lighting is a lighting circuit switched by a single relay.
type Lighting struct {
	base

	switchPin gpio.Pin

	status       Status
	timerEnabled bool
	onTime       TimeOfDay
	offTime      TimeOfDay
	jobsCreated  bool
}

// NewLighting builds a lighting circuit and attaches its pin unless it is disabled.
func NewLighting(s LightingSettings, conn PinConnection, opts Options) (*Lighting, error) {
	if s.Description == "" {
		return nil, fmt.Errorf("%w: lighting description is required", ErrInvalidConfig)
	}
	if s.Status == "" {
		s.Status = StatusUndefined
	}

	l := &Lighting{
		base:         newBase(TypeLighting, s.Description, s.Floor, conn, opts),
		switchPin:    gpio.Pin{Name: s.Description, Number: s.SwitchPin, Mode: gpio.ModeOutput},
		status:       s.Status,
		timerEnabled: s.TimerEnabled,
		onTime:       s.OnTime,
		offTime:      s.OffTime,
	}
	l.self = l

	if !s.Disabled {
		l.mu.Lock()
		_, err := l.setDisabledLocked(false, l.pins())
		l.mu.Unlock()
		if err != nil {
			return nil, fmt.Errorf("enabling lighting %s: %w", s.Description, err)
		}
	}
	return l, nil
}

func (l *Lighting) pins() []gpio.Pin {
	return []gpio.Pin{l.switchPin}
}

// SwitchOn energises the relay.
func (l *Lighting) SwitchOn() error {
	return l.switchTo(true, StatusOn)
}

// SwitchOff releases the relay.
func (l *Lighting) SwitchOff() error {
	return l.switchTo(false, StatusOff)
}

func (l *Lighting) switchTo(high bool, st Status) error {
	l.mu.Lock()
	if !l.active() {
		l.mu.Unlock()
		return nil
	}

	target := st
	err := l.conn.Write(l.switchPin.Name, high)
	if err != nil {
		l.logger.Error("lighting output failed", "device", l.description, "error", err)
		target = StatusFailState
	} else {
		l.logger.Info("lighting switched", "device", l.description, "status", string(st))
	}

	var changes []Change
	if l.status != target {
		l.status = target
		changes = append(changes, StatusChanged{Status: target})
	}
	l.mu.Unlock()

	l.emit(changes)
	return err
}

// Status returns the last switched state.
func (l *Lighting) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// SetDisabled takes the circuit out of or back into service.
func (l *Lighting) SetDisabled(disabled bool) error {
	l.mu.Lock()
	changed, err := l.setDisabledLocked(disabled, l.pins())
	l.mu.Unlock()

	if changed {
		l.emit([]Change{DisabledChanged{Disabled: disabled}})
	}
	return err
}

// OnTime returns the daily switch-on time.
func (l *Lighting) OnTime() TimeOfDay {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.onTime
}

// SetOnTime sets the daily switch-on time.
func (l *Lighting) SetOnTime(t TimeOfDay) {
	l.mu.Lock()
	changed := l.onTime != t
	l.onTime = t
	l.mu.Unlock()

	if changed {
		l.emit([]Change{OnTimeChanged{Time: t}})
	}
}

// OffTime returns the daily switch-off time.
func (l *Lighting) OffTime() TimeOfDay {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.offTime
}

// SetOffTime sets the daily switch-off time.
func (l *Lighting) SetOffTime(t TimeOfDay) {
	l.mu.Lock()
	changed := l.offTime != t
	l.offTime = t
	l.mu.Unlock()

	if changed {
		l.emit([]Change{OffTimeChanged{Time: t}})
	}
}

// TimerEnabled reports whether daily jobs should exist.
func (l *Lighting) TimerEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.timerEnabled
}

// SetTimerEnabled sets the timer flag.
func (l *Lighting) SetTimerEnabled(enabled bool) {
	l.mu.Lock()
	changed := l.timerEnabled != enabled
	l.timerEnabled = enabled
	l.mu.Unlock()

	if changed {
		l.emit([]Change{TimerEnabledChanged{Enabled: enabled}})
	}
}

// JobsCreated reports whether the scheduler holds jobs for this circuit.
func (l *Lighting) JobsCreated() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.jobsCreated
}

// SetJobsCreated is called by the scheduler.
func (l *Lighting) SetJobsCreated(created bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.jobsCreated = created
}

// Release detaches the pin without changing the disabled flag.
func (l *Lighting) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	return l.detachLocked(l.pins())
}
