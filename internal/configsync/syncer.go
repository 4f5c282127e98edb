package configsync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/almue/almue-core/internal/device"
	"github.com/almue/almue-core/internal/infrastructure/config"
)

const recordTimeout = 5 * time.Second

// Logger defines the logging interface used by the syncer.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// StateRecorder stores change snapshots.
type StateRecorder interface {
	RecordStateChange(ctx context.Context, deviceID string, state device.State, source string) error
}

// StatusWriter stores status changes as time series.
type StatusWriter interface {
	WriteStatusChange(deviceID, deviceType, status string)
}

// Event describes one applied change.
type Event struct {
	DeviceID    string       `json:"device_id"`
	DeviceType  device.Type  `json:"device_type"`
	Description string       `json:"description"`
	Floor       string       `json:"floor,omitempty"`
	Field       string       `json:"field"`
	State       device.State `json:"state"`

	// Change is the original notification.
	Change device.Change `json:"-"`

	// Persisted is true when the configuration file was rewritten.
	Persisted bool `json:"persisted"`
}

// Listener is notified after a change was applied.
type Listener interface {
	DeviceChanged(ev Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ev Event)

// DeviceChanged calls f(ev).
func (f ListenerFunc) DeviceChanged(ev Event) { f(ev) }

// Syncer owns the in-memory DeviceSet and its file.
type Syncer struct {
	mu   sync.Mutex
	path string
	set  *config.DeviceSet
	save func(path string, set *config.DeviceSet) error

	history   StateRecorder
	status    StatusWriter
	listeners []Listener
	logger    Logger
}

// New creates a syncer for set, persisted at path. The set is copied.
func New(path string, set *config.DeviceSet) *Syncer {
	if set == nil {
		set = &config.DeviceSet{}
	}
	return &Syncer{
		path:   path,
		set:    set.Clone(),
		save:   config.SaveDeviceSet,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the syncer.
func (s *Syncer) SetLogger(logger Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// SetStateRecorder enables state history rows.
func (s *Syncer) SetStateRecorder(r StateRecorder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = r
}

// SetStatusWriter enables time series points for status changes.
func (s *Syncer) SetStatusWriter(w StatusWriter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = w
}

// AddListener registers l. Listeners are called in registration order.
func (s *Syncer) AddListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Snapshot returns a copy of the current configuration.
func (s *Syncer) Snapshot() *config.DeviceSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set.Clone()
}

// ConfigJSON returns the payload of the retained config topic.
func (s *Syncer) ConfigJSON() ([]byte, error) {
	s.mu.Lock()
	out := s.set.Clone()
	s.mu.Unlock()

	// The client expects arrays, never null.
	if out.Shutters == nil {
		out.Shutters = []config.ShutterConfig{}
	}
	if out.Lightings == nil {
		out.Lightings = []config.LightingConfig{}
	}
	if out.WindMonitors == nil {
		out.WindMonitors = []config.WindMonitorConfig{}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encoding device configuration: %w", err)
	}
	return b, nil
}

// HandleChange is a device.ChangeHandler.
func (s *Syncer) HandleChange(d device.Device, c device.Change) {
	s.mu.Lock()
	changed, err := apply(s.set, d, c)
	persisted := false
	if err != nil {
		s.logger.Error("change not applied", "device", d.ID(), "field", c.Field(), "error", err)
	} else if changed {
		if err := s.save(s.path, s.set); err != nil {
			s.logger.Error("saving device configuration failed", "path", s.path, "error", err)
		} else {
			persisted = true
			s.logger.Debug("device configuration saved", "device", d.ID(), "field", c.Field())
		}
	}
	history, status, logger := s.history, s.status, s.logger
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	if history != nil {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		if err := history.RecordStateChange(ctx, d.ID(), c.State(), device.StateHistorySourceDevice); err != nil {
			logger.Warn("recording state history failed", "device", d.ID(), "error", err)
		}
		cancel()
	}
	if sc, ok := c.(device.StatusChanged); ok && status != nil {
		status.WriteStatusChange(d.ID(), string(d.Type()), string(sc.Status))
	}

	ev := Event{
		DeviceID:    d.ID(),
		DeviceType:  d.Type(),
		Description: d.Description(),
		Floor:       d.Floor(),
		Field:       c.Field(),
		State:       c.State(),
		Change:      c,
		Persisted:   persisted,
	}
	for _, l := range listeners {
		l.DeviceChanged(ev)
	}
}

// RecordStartup writes one "startup" history row per device with its
// current status.
func (s *Syncer) RecordStartup(ctx context.Context, devices []device.Device) {
	s.mu.Lock()
	history, logger := s.history, s.logger
	s.mu.Unlock()
	if history == nil {
		return
	}

	for _, d := range devices {
		state := device.State{}
		if sp, ok := d.(device.StatusProvider); ok {
			state["device_status"] = string(sp.Status())
		}
		if dd, ok := d.(device.Disableable); ok {
			state["disabled"] = dd.Disabled()
		}
		if err := history.RecordStateChange(ctx, d.ID(), state, device.StateHistorySourceStartup); err != nil {
			logger.Warn("recording startup state failed", "device", d.ID(), "error", err)
		}
	}
}
