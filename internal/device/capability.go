package device

// Device is implemented by every variant.
type Device interface {
	// ID is "<type segment>/<description>", unique across the installation.
	ID() string
	Type() Type
	Description() string
	Floor() string

	// Release stops timers and detaches all pins. Used on shutdown.
	Release() error
}

// Switchable devices can be turned on and off.
type Switchable interface {
	Device
	SwitchOn() error
	SwitchOff() error
}

// Shuttable devices travel between an open and a closed end position.
type Shuttable interface {
	Device
	Open() error
	Close() error
	CompleteWayInSeconds() int
}

// Stoppable devices can interrupt a running movement.
type Stoppable interface {
	Device
	Stop() error
}

// Schedulable devices carry a daily on/off (open/close) time.
//
// JobsCreated is owned by the scheduler; the device only stores it.
type Schedulable interface {
	Device
	OnTime() TimeOfDay
	SetOnTime(TimeOfDay)
	OffTime() TimeOfDay
	SetOffTime(TimeOfDay)
	TimerEnabled() bool
	SetTimerEnabled(bool)
	JobsCreated() bool
	SetJobsCreated(bool)
}

// EmergencyReceiver devices react to emergency broadcasts.
type EmergencyReceiver interface {
	Device
	EmergencyEnabled() bool
	SetEmergencyEnabled(bool)

	// HandleEmergency is called by a notifier. It does nothing unless
	// EmergencyEnabled is true.
	HandleEmergency(source Device)
}

// EmergencyNotifier devices broadcast emergencies to subscribed receivers.
// Subscribing the same receiver twice keeps a single subscription.
type EmergencyNotifier interface {
	Device
	Subscribe(r EmergencyReceiver)
	Unsubscribe(r EmergencyReceiver)
	Subscribers() []EmergencyReceiver
}

// Disableable devices can be taken out of service. Disabling detaches the
// device's pins from the connection; enabling attaches them again.
type Disableable interface {
	Device
	Disabled() bool
	SetDisabled(disabled bool) error
}

// StatusProvider devices report their last known physical state.
type StatusProvider interface {
	Device
	Status() Status
}
