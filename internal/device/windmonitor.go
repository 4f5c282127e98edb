package device

import (
	"fmt"
	"sort"
	"sync"

	"github.com/almue/almue-core/internal/gpio"
)

// DefaultPulseThreshold is the number of pulses a wind monitor tolerates
// before it starts broadcasting emergencies.
const DefaultPulseThreshold = 10

// WindMonitorSettings is the construction input of a WindMonitor.
type WindMonitorSettings struct {
	Description    string
	InPin          int
	Disabled       bool
	PulseThreshold int
}

// WindMonitor counts anemometer pulses on an input pin.
//
// Every falling edge increments the counter. Once the counter exceeds the
// threshold each further falling edge broadcasts an emergency to all
// subscribed receivers. The counter is never reset while the process runs.
type WindMonitor struct {
	base

	inPin     gpio.Pin
	threshold int

	// notifyMu guards the counter and subscribers. It is separate from
	// base.mu because edges arrive on the connection's watcher goroutine,
	// which Remove waits for while base.mu is held.
	notifyMu    sync.Mutex
	pulses      int
	subscribers map[string]EmergencyReceiver
}

// NewWindMonitor builds a wind monitor and attaches its input unless it is disabled.
func NewWindMonitor(s WindMonitorSettings, conn PinConnection, opts Options) (*WindMonitor, error) {
	if s.Description == "" {
		return nil, fmt.Errorf("%w: wind monitor description is required", ErrInvalidConfig)
	}
	if s.PulseThreshold <= 0 {
		s.PulseThreshold = DefaultPulseThreshold
	}

	w := &WindMonitor{
		base:        newBase(TypeWindMonitor, s.Description, "", conn, opts),
		threshold:   s.PulseThreshold,
		subscribers: make(map[string]EmergencyReceiver),
	}
	w.self = w
	w.inPin = gpio.Pin{
		Name:   s.Description + "_inPin",
		Number: s.InPin,
		Mode:   gpio.ModeInput,
		OnEdge: w.HandleEdge,
	}

	if !s.Disabled {
		w.mu.Lock()
		_, err := w.setDisabledLocked(false, w.pins())
		w.mu.Unlock()
		if err != nil {
			return nil, fmt.Errorf("enabling wind monitor %s: %w", s.Description, err)
		}
	}
	return w, nil
}

func (w *WindMonitor) pins() []gpio.Pin {
	return []gpio.Pin{w.inPin}
}

// HandleEdge processes one level change of the input pin.
func (w *WindMonitor) HandleEdge(high bool) {
	if high {
		return
	}

	w.notifyMu.Lock()
	w.pulses++
	count := w.pulses
	var receivers []EmergencyReceiver
	if count > w.threshold {
		receivers = w.subscribersLocked()
	}
	w.notifyMu.Unlock()

	if w.onPulse != nil {
		w.onPulse(w, count, w.threshold)
	}
	if count <= w.threshold {
		w.logger.Debug("wind pulse", "device", w.description, "count", count)
		return
	}

	w.logger.Warn("wind threshold exceeded", "device", w.description, "count", count, "receivers", len(receivers))
	for _, r := range receivers {
		r.HandleEmergency(w)
	}
}

// Pulses returns the number of falling edges seen so far.
func (w *WindMonitor) Pulses() int {
	w.notifyMu.Lock()
	defer w.notifyMu.Unlock()
	return w.pulses
}

// Threshold returns the configured pulse threshold.
func (w *WindMonitor) Threshold() int { return w.threshold }

// Subscribe adds a receiver. Subscribing twice keeps one subscription.
func (w *WindMonitor) Subscribe(r EmergencyReceiver) {
	w.notifyMu.Lock()
	defer w.notifyMu.Unlock()
	w.subscribers[r.ID()] = r
}

// Unsubscribe removes a receiver. Unknown receivers are ignored.
func (w *WindMonitor) Unsubscribe(r EmergencyReceiver) {
	w.notifyMu.Lock()
	defer w.notifyMu.Unlock()
	delete(w.subscribers, r.ID())
}

// Subscribers returns the subscribed receivers sorted by ID.
func (w *WindMonitor) Subscribers() []EmergencyReceiver {
	w.notifyMu.Lock()
	defer w.notifyMu.Unlock()
	return w.subscribersLocked()
}

func (w *WindMonitor) subscribersLocked() []EmergencyReceiver {
	out := make([]EmergencyReceiver, 0, len(w.subscribers))
	for _, r := range w.subscribers {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// SetDisabled takes the monitor out of or back into service.
func (w *WindMonitor) SetDisabled(disabled bool) error {
	w.mu.Lock()
	changed, err := w.setDisabledLocked(disabled, w.pins())
	w.mu.Unlock()

	if changed {
		w.emit([]Change{DisabledChanged{Disabled: disabled}})
	}
	return err
}

// Release detaches the input without changing the disabled flag.
func (w *WindMonitor) Release() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return nil
	}
	return w.detachLocked(w.pins())
}
