package device

import (
	"context"
	"time"
)

// State history sources.
const (
	StateHistorySourceDevice  = "device"
	StateHistorySourceStartup = "startup"
)

// StateHistoryEntry is one recorded change of a device.
//
// State holds only the changed property, e.g. {"device_status":"Opened"};
// a startup row holds the full snapshot of the device.
type StateHistoryEntry struct {
	ID        int64     `json:"id"`
	DeviceID  string    `json:"device_id"`
	State     State     `json:"state"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// StateHistoryRepository stores the local change trail of the devices.
// It keeps working while InfluxDB is disabled or unreachable.
type StateHistoryRepository interface {
	RecordStateChange(ctx context.Context, deviceID string, state State, source string) error

	// GetHistory returns at most limit entries of deviceID, newest first.
	GetHistory(ctx context.Context, deviceID string, limit int) ([]StateHistoryEntry, error)

	// PruneHistory deletes entries created before cutoff.
	PruneHistory(ctx context.Context, cutoff time.Time) (int64, error)
}
