package device

// Change is a property change reported by a device.
//
// The set of implementations is closed: DisabledChanged, TimerEnabledChanged,
// OnTimeChanged, OffTimeChanged, StatusChanged and EmergencyEnabledChanged.
type Change interface {
	// Field names the changed property.
	Field() string

	// State returns the change as a history snapshot.
	State() State

	isChange()
}

// ChangeHandler receives change notifications. It is called without any
// device lock held.
type ChangeHandler func(d Device, c Change)

// DisabledChanged reports a new value of the disabled flag.
type DisabledChanged struct{ Disabled bool }

// TimerEnabledChanged reports a new value of the timer flag.
type TimerEnabledChanged struct{ Enabled bool }

// OnTimeChanged reports a new on (open) time.
type OnTimeChanged struct{ Time TimeOfDay }

// OffTimeChanged reports a new off (close) time.
type OffTimeChanged struct{ Time TimeOfDay }

// StatusChanged reports a new device status.
type StatusChanged struct{ Status Status }

// EmergencyEnabledChanged reports a new value of the emergency flag.
type EmergencyEnabledChanged struct{ Enabled bool }

func (DisabledChanged) Field() string         { return "disabled" }
func (TimerEnabledChanged) Field() string     { return "timer_enabled" }
func (OnTimeChanged) Field() string           { return "on_time" }
func (OffTimeChanged) Field() string          { return "off_time" }
func (StatusChanged) Field() string           { return "device_status" }
func (EmergencyEnabledChanged) Field() string { return "emergency_enabled" }

func (c DisabledChanged) State() State         { return State{c.Field(): c.Disabled} }
func (c TimerEnabledChanged) State() State     { return State{c.Field(): c.Enabled} }
func (c OnTimeChanged) State() State           { return State{c.Field(): c.Time.String()} }
func (c OffTimeChanged) State() State          { return State{c.Field(): c.Time.String()} }
func (c StatusChanged) State() State           { return State{c.Field(): string(c.Status)} }
func (c EmergencyEnabledChanged) State() State { return State{c.Field(): c.Enabled} }

func (DisabledChanged) isChange()         {}
func (TimerEnabledChanged) isChange()     {}
func (OnTimeChanged) isChange()           {}
func (OffTimeChanged) isChange()          {}
func (StatusChanged) isChange()           {}
func (EmergencyEnabledChanged) isChange() {}
