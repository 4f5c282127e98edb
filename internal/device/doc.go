// Package device models the physical devices of an almue installation.
//
// Three variants exist:
//
//	┌──────────────┬──────────────────────────────────────────────────────────┐
//	│ Shutter      │ Shuttable, Stoppable, Schedulable, EmergencyReceiver,    │
//	│              │ Disableable, StatusProvider                              │
//	│ Lighting     │ Switchable, Schedulable, Disableable, StatusProvider     │
//	│ WindMonitor  │ EmergencyNotifier, Disableable                           │
//	└──────────────┴──────────────────────────────────────────────────────────┘
//
// Callers never switch on the concrete type. They ask for a capability with
// a type assertion:
//
//	if s, ok := d.(device.Shuttable); ok {
//	    err = s.Open()
//	}
//
// # Hardware
//
// Every device owns a set of pins on the shared gpio connection. The pins
// are attached while the device is enabled and detached while it is
// disabled. A disabled device never writes to its outputs; its operations
// return nil without side effects.
//
// A shutter drives its "open" or "close" relay for CompleteWayInSeconds and
// then stops itself. The safety timer runs on a Clock so tests can advance
// time by hand.
//
// # Change notifications
//
// Every effective change of a persisted property (disabled, timer flag,
// on/off time, status, emergency flag) is reported exactly once to the
// ChangeHandler given at construction. Handlers run after the device lock
// has been released, so they may call back into the device.
//
// # Thread Safety
//
// Each device serialises its own operations, including timer callbacks,
// with a private mutex. Registry is safe for concurrent use.
package device
