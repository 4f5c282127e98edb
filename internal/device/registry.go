package device

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry indexes the live devices by (type, description).
//
// Devices are added once at startup and never removed while the process
// runs. All public methods are thread-safe.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]Device // keyed by Device.ID()
	logger  Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		devices: make(map[string]Device),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Add registers a device. The (type, description) pair must be unique.
func (r *Registry) Add(d Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[d.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrDeviceExists, d.ID())
	}
	r.devices[d.ID()] = d
	r.logger.Debug("device registered", "id", d.ID())
	return nil
}

// Get returns the device with the given type and description.
func (r *Registry) Get(typ Type, description string) (Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[typ.Segment()+"/"+description]
	if !ok {
		return nil, fmt.Errorf("%w: %s %q", ErrDeviceNotFound, typ, description)
	}
	return d, nil
}

// All returns every device ordered by ID.
func (r *Registry) All() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Count returns the number of registered devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// ReleaseAll releases every device's hardware.
func (r *Registry) ReleaseAll() error {
	var errs []error
	for _, d := range r.All() {
		if err := d.Release(); err != nil {
			errs = append(errs, fmt.Errorf("releasing %s: %w", d.ID(), err))
		}
	}
	return errors.Join(errs...)
}

// With returns every registered device implementing capability T, ordered by ID.
//
//	for _, n := range device.With[device.EmergencyNotifier](reg) { ... }
func With[T any](r *Registry) []T {
	var out []T
	for _, d := range r.All() {
		if c, ok := d.(T); ok {
			out = append(out, c)
		}
	}
	return out
}
