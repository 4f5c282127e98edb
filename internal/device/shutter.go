package device

import (
	"fmt"
	"time"

	"github.com/almue/almue-core/internal/gpio"
)

// ShutterSettings is the construction input of a Shutter.
type ShutterSettings struct {
	Description          string
	Floor                string
	OpenPin              int
	ClosePin             int
	CompleteWayInSeconds int
	EmergencyEnabled     bool
	Disabled             bool
	TimerEnabled         bool
	OpenTime             TimeOfDay
	CloseTime            TimeOfDay
	Status               Status
}

// Shutter is a motorised roller shutter driven by two relays.
//
// Open and Close energise one relay and arm a safety timer for the
// complete travel time. When the timer fires the relays are released and
// the status becomes Opened or Closed. Stop releases both relays and
// leaves the status as it is.
type Shutter struct {
	base

	openPin     gpio.Pin
	closePin    gpio.Pin
	completeWay int

	status           Status
	timerEnabled     bool
	onTime           TimeOfDay
	offTime          TimeOfDay
	jobsCreated      bool
	emergencyEnabled bool

	timer Timer
	// generation invalidates callbacks of timers that were replaced or stopped.
	generation uint64
}

// NewShutter builds a shutter and attaches its pins unless it is disabled.
func NewShutter(s ShutterSettings, conn PinConnection, opts Options) (*Shutter, error) {
	if s.Description == "" {
		return nil, fmt.Errorf("%w: shutter description is required", ErrInvalidConfig)
	}
	if s.CompleteWayInSeconds <= 0 {
		return nil, fmt.Errorf("%w: shutter %s: complete way must be positive", ErrInvalidConfig, s.Description)
	}
	if s.Status == "" {
		s.Status = StatusUndefined
	}

	sh := &Shutter{
		base:             newBase(TypeShutter, s.Description, s.Floor, conn, opts),
		openPin:          gpio.Pin{Name: s.Description + "_openPin", Number: s.OpenPin, Mode: gpio.ModeOutput},
		closePin:         gpio.Pin{Name: s.Description + "_closePin", Number: s.ClosePin, Mode: gpio.ModeOutput},
		completeWay:      s.CompleteWayInSeconds,
		status:           s.Status,
		timerEnabled:     s.TimerEnabled,
		onTime:           s.OpenTime,
		offTime:          s.CloseTime,
		emergencyEnabled: s.EmergencyEnabled,
	}
	sh.self = sh

	if !s.Disabled {
		sh.mu.Lock()
		_, err := sh.setDisabledLocked(false, sh.pins())
		sh.mu.Unlock()
		if err != nil {
			return nil, fmt.Errorf("enabling shutter %s: %w", s.Description, err)
		}
	}
	return sh, nil
}

func (s *Shutter) pins() []gpio.Pin {
	return []gpio.Pin{s.closePin, s.openPin}
}

// CompleteWayInSeconds returns the full travel time.
func (s *Shutter) CompleteWayInSeconds() int { return s.completeWay }

// Open starts moving the shutter up.
func (s *Shutter) Open() error {
	return s.move(s.openPin, s.closePin, StatusOpened, "opens completely")
}

// Close starts moving the shutter down.
func (s *Shutter) Close() error {
	return s.move(s.closePin, s.openPin, StatusClosed, "closes completely")
}

func (s *Shutter) move(on, off gpio.Pin, final Status, verb string) error {
	s.mu.Lock()
	if !s.active() {
		s.mu.Unlock()
		return nil
	}

	s.armLocked(final)
	s.logger.Info("shutter "+verb, "device", s.description)

	var changes []Change
	if c := s.setStatusLocked(StatusUndefined); c != nil {
		changes = append(changes, c)
	}
	err := s.conn.Write(off.Name, false)
	if err == nil {
		err = s.conn.Write(on.Name, true)
	}
	if err != nil {
		changes = append(changes, s.failLocked(err)...)
	}
	s.mu.Unlock()

	s.emit(changes)
	return err
}

// Stop cancels the safety timer and releases both relays. Calling it twice is harmless.
func (s *Shutter) Stop() error {
	s.mu.Lock()
	if !s.active() {
		s.mu.Unlock()
		return nil
	}
	s.logger.Info("shutter stops", "device", s.description)
	err := s.stopLocked()
	var changes []Change
	if err != nil {
		changes = s.failLocked(err)
	}
	s.mu.Unlock()

	s.emit(changes)
	return err
}

// armLocked replaces any running safety timer.
func (s *Shutter) armLocked(final Status) {
	s.cancelTimerLocked()
	gen := s.generation
	s.timer = s.clock.AfterFunc(time.Duration(s.completeWay)*time.Second, func() {
		s.expire(gen, final)
	})
}

func (s *Shutter) cancelTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.generation++
}

func (s *Shutter) stopLocked() error {
	s.cancelTimerLocked()
	errOpen := s.conn.Write(s.openPin.Name, false)
	errClose := s.conn.Write(s.closePin.Name, false)
	if errOpen != nil {
		return errOpen
	}
	return errClose
}

// expire is the safety timer callback.
func (s *Shutter) expire(gen uint64, final Status) {
	s.mu.Lock()
	if gen != s.generation || !s.active() {
		s.mu.Unlock()
		return
	}

	var changes []Change
	if err := s.stopLocked(); err != nil {
		s.logger.Error("shutter stop after travel failed", "device", s.description, "error", err)
		changes = s.failLocked(err)
	} else if c := s.setStatusLocked(final); c != nil {
		changes = append(changes, c)
	}
	s.mu.Unlock()

	s.emit(changes)
}

// failLocked marks the shutter failed after a hardware write error.
func (s *Shutter) failLocked(err error) []Change {
	s.logger.Error("shutter output failed", "device", s.description, "error", err)
	s.cancelTimerLocked()
	if c := s.setStatusLocked(StatusFailState); c != nil {
		return []Change{c}
	}
	return nil
}

func (s *Shutter) setStatusLocked(st Status) Change {
	if s.status == st {
		return nil
	}
	s.status = st
	return StatusChanged{Status: st}
}

// Status returns the last known position.
func (s *Shutter) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Moving reports whether a safety timer is armed.
func (s *Shutter) Moving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// SetDisabled takes the shutter out of or back into service.
// A moving shutter is stopped before its pins are detached.
func (s *Shutter) SetDisabled(disabled bool) error {
	s.mu.Lock()
	if disabled && s.active() && s.timer != nil {
		if err := s.stopLocked(); err != nil {
			s.logger.Warn("stopping shutter before disable failed", "device", s.description, "error", err)
		}
	}
	changed, err := s.setDisabledLocked(disabled, s.pins())
	s.mu.Unlock()

	if changed {
		s.emit([]Change{DisabledChanged{Disabled: disabled}})
	}
	return err
}

// OnTime returns the daily open time.
func (s *Shutter) OnTime() TimeOfDay {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onTime
}

// SetOnTime sets the daily open time.
func (s *Shutter) SetOnTime(t TimeOfDay) {
	s.mu.Lock()
	changed := s.onTime != t
	s.onTime = t
	s.mu.Unlock()

	if changed {
		s.emit([]Change{OnTimeChanged{Time: t}})
	}
}

// OffTime returns the daily close time.
func (s *Shutter) OffTime() TimeOfDay {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offTime
}

// SetOffTime sets the daily close time.
func (s *Shutter) SetOffTime(t TimeOfDay) {
	s.mu.Lock()
	changed := s.offTime != t
	s.offTime = t
	s.mu.Unlock()

	if changed {
		s.emit([]Change{OffTimeChanged{Time: t}})
	}
}

// TimerEnabled reports whether daily jobs should exist.
func (s *Shutter) TimerEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timerEnabled
}

// SetTimerEnabled sets the timer flag.
func (s *Shutter) SetTimerEnabled(enabled bool) {
	s.mu.Lock()
	changed := s.timerEnabled != enabled
	s.timerEnabled = enabled
	s.mu.Unlock()

	if changed {
		s.emit([]Change{TimerEnabledChanged{Enabled: enabled}})
	}
}

// JobsCreated reports whether the scheduler holds jobs for this shutter.
func (s *Shutter) JobsCreated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobsCreated
}

// SetJobsCreated is called by the scheduler.
func (s *Shutter) SetJobsCreated(created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobsCreated = created
}

// EmergencyEnabled reports whether wind emergencies open this shutter.
func (s *Shutter) EmergencyEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emergencyEnabled
}

// SetEmergencyEnabled sets the emergency flag.
func (s *Shutter) SetEmergencyEnabled(enabled bool) {
	s.mu.Lock()
	changed := s.emergencyEnabled != enabled
	s.emergencyEnabled = enabled
	s.mu.Unlock()

	if changed {
		s.emit([]Change{EmergencyEnabledChanged{Enabled: enabled}})
	}
}

// HandleEmergency opens the shutter when emergencies are enabled.
func (s *Shutter) HandleEmergency(source Device) {
	if !s.EmergencyEnabled() {
		return
	}
	s.logger.Info("emergency opens shutter", "device", s.description, "source", source.ID())
	if err := s.Open(); err != nil {
		s.logger.Error("emergency open failed", "device", s.description, "error", err)
	}
}

// Release stops the shutter and detaches its pins without changing the disabled flag.
func (s *Shutter) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active() {
		if err := s.stopLocked(); err != nil {
			s.logger.Warn("stopping shutter on release failed", "device", s.description, "error", err)
		}
	} else {
		s.cancelTimerLocked()
	}
	if s.conn == nil {
		return nil
	}
	return s.detachLocked(s.pins())
}
