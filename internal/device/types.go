package device

import (
	"fmt"
	"strings"
	"time"
)

// Type identifies the concrete device variant.
// The value is also the job group name used by the scheduler.
type Type string

// Type constants.
const (
	TypeShutter     Type = "Shutter"
	TypeLighting    Type = "Lighting"
	TypeWindMonitor Type = "WindMonitor"
)

// AllTypes returns all valid device types.
func AllTypes() []Type {
	return []Type{TypeShutter, TypeLighting, TypeWindMonitor}
}

// Segment returns the lower-case form used in topics, IDs and URLs.
func (t Type) Segment() string {
	return strings.ToLower(string(t))
}

// ParseType accepts either the canonical name or its lower-case segment.
func ParseType(s string) (Type, error) {
	for _, t := range AllTypes() {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDeviceType, s)
}

// Status is the last known physical state of a device.
type Status string

// Status constants. The string values appear in the retained config document.
const (
	StatusUndefined Status = "Undefined"
	StatusOpened    Status = "Opened"
	StatusClosed    Status = "Closed"
	StatusOn        Status = "On"
	StatusOff       Status = "Off"
	StatusFailState Status = "FailState"
)

// AllStatuses returns all valid status values.
func AllStatuses() []Status {
	return []Status{StatusUndefined, StatusOpened, StatusClosed, StatusOn, StatusOff, StatusFailState}
}

// ParseStatus converts a configuration value to a Status. Empty means Undefined.
func ParseStatus(s string) (Status, error) {
	if s == "" {
		return StatusUndefined, nil
	}
	for _, st := range AllStatuses() {
		if s == string(st) {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Action is an operation that can be requested on a device.
type Action string

// Action constants.
const (
	ActionOpen             Action = "Open"
	ActionClose            Action = "Close"
	ActionStop             Action = "Stop"
	ActionOn               Action = "On"
	ActionOff              Action = "Off"
	ActionEnableDevice     Action = "EnableDevice"
	ActionDisableDevice    Action = "DisableDevice"
	ActionEnableEmergency  Action = "EnableEmergency"
	ActionDisableEmergency Action = "DisableEmergency"
	ActionEnableTimer      Action = "EnableTimer"
	ActionDisableTimer     Action = "DisableTimer"
	ActionSetOnTime        Action = "SetOnTime"
	ActionSetOffTime       Action = "SetOffTime"
)

// AllActions returns all valid actions.
func AllActions() []Action {
	return []Action{
		ActionOpen, ActionClose, ActionStop, ActionOn, ActionOff,
		ActionEnableDevice, ActionDisableDevice,
		ActionEnableEmergency, ActionDisableEmergency,
		ActionEnableTimer, ActionDisableTimer,
		ActionSetOnTime, ActionSetOffTime,
	}
}

// ParseAction converts a string to an Action, ignoring case.
func ParseAction(s string) (Action, error) {
	for _, a := range AllActions() {
		if strings.EqualFold(s, string(a)) {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
}

// State is a JSON-serialisable snapshot stored in the state history.
type State map[string]any

// TimeOfDay is a wall-clock time without a date, in the site's local zone.
// The zero value is "unset".
type TimeOfDay struct {
	hour, minute, second int
	set                  bool
}

// NewTimeOfDay builds a TimeOfDay. Out-of-range values return ErrInvalidTimeOfDay.
func NewTimeOfDay(hour, minute, second int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: %02d:%02d:%02d", ErrInvalidTimeOfDay, hour, minute, second)
	}
	return TimeOfDay{hour: hour, minute: minute, second: second, set: true}, nil
}

// ParseTimeOfDay accepts "HH:MM:SS" or "HH:MM". An empty string yields the unset value.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TimeOfDay{}, nil
	}
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return NewTimeOfDay(t.Hour(), t.Minute(), t.Second())
		}
	}
	return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
}

// MustTimeOfDay is ParseTimeOfDay for constants. It panics on bad input.
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// IsSet reports whether the time was configured.
func (t TimeOfDay) IsSet() bool { return t.set }

// Hour returns the hour component.
func (t TimeOfDay) Hour() int { return t.hour }

// Minute returns the minute component.
func (t TimeOfDay) Minute() int { return t.minute }

// Second returns the second component.
func (t TimeOfDay) Second() int { return t.second }

// String formats as "HH:MM:SS", or "" when unset.
func (t TimeOfDay) String() string {
	if !t.set {
		return ""
	}
	return fmt.Sprintf("%02d:%02d:%02d", t.hour, t.minute, t.second)
}

// On returns the instant of t on the calendar day of now, interpreted in loc.
// The result is converted to UTC.
func (t TimeOfDay) On(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), t.hour, t.minute, t.second, 0, loc).UTC()
}

// MarshalText implements encoding.TextMarshaler.
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
