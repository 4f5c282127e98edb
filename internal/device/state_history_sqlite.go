package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// History limits applied by GetHistory.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// historyTimeLayout matches the column default of the state_history migration.
const historyTimeLayout = "2006-01-02T15:04:05Z"

const (
	insertHistorySQL = `INSERT INTO state_history (device_id, state, source, created_at) VALUES (?, ?, ?, ?)`

	selectHistorySQL = `SELECT id, device_id, state, source, created_at
		FROM state_history
		WHERE device_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	pruneHistorySQL = `DELETE FROM state_history WHERE created_at < ?`
)

var errEmptyDeviceID = errors.New("device: history device id is required")

// SQLiteStateHistoryRepository keeps the state history in the
// state_history table.
type SQLiteStateHistoryRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStateHistoryRepository creates a repository on db.
func NewSQLiteStateHistoryRepository(db *sql.DB) *SQLiteStateHistoryRepository {
	return &SQLiteStateHistoryRepository{db: db, now: time.Now}
}

// RecordStateChange appends one row. An empty source records as
// StateHistorySourceDevice.
func (r *SQLiteStateHistoryRepository) RecordStateChange(ctx context.Context, deviceID string, state State, source string) error {
	if deviceID == "" {
		return errEmptyDeviceID
	}
	if source == "" {
		source = StateHistorySourceDevice
	}
	if state == nil {
		state = State{}
	}

	encoded, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding state of %s: %w", deviceID, err)
	}
	created := r.now().UTC().Format(historyTimeLayout)
	if _, err := r.db.ExecContext(ctx, insertHistorySQL, deviceID, string(encoded), source, created); err != nil {
		return fmt.Errorf("recording state of %s: %w", deviceID, err)
	}
	return nil
}

// GetHistory returns the newest entries of deviceID. limit is clamped to
// 1..MaxHistoryLimit; zero or less selects DefaultHistoryLimit.
func (r *SQLiteStateHistoryRepository) GetHistory(ctx context.Context, deviceID string, limit int) ([]StateHistoryEntry, error) {
	if deviceID == "" {
		return nil, errEmptyDeviceID
	}
	limit = clampHistoryLimit(limit)

	rows, err := r.db.QueryContext(ctx, selectHistorySQL, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history of %s: %w", deviceID, err)
	}
	defer rows.Close()

	entries := make([]StateHistoryEntry, 0, limit)
	for rows.Next() {
		e, err := scanHistoryRow(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history of %s: %w", deviceID, err)
	}
	return entries, nil
}

// PruneHistory deletes every entry created before cutoff and returns the
// number of deleted rows.
func (r *SQLiteStateHistoryRepository) PruneHistory(ctx context.Context, cutoff time.Time) (int64, error) {
	if cutoff.IsZero() {
		return 0, fmt.Errorf("device: prune cutoff is required")
	}
	res, err := r.db.ExecContext(ctx, pruneHistorySQL, cutoff.UTC().Format(historyTimeLayout))
	if err != nil {
		return 0, fmt.Errorf("pruning state history: %w", err)
	}
	return res.RowsAffected()
}

func clampHistoryLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	default:
		return limit
	}
}

func scanHistoryRow(rows *sql.Rows) (StateHistoryEntry, error) {
	var (
		e       StateHistoryEntry
		encoded string
		created string
	)
	if err := rows.Scan(&e.ID, &e.DeviceID, &encoded, &e.Source, &created); err != nil {
		return e, fmt.Errorf("scanning history row: %w", err)
	}
	if err := json.Unmarshal([]byte(encoded), &e.State); err != nil {
		return e, fmt.Errorf("decoding state of row %d: %w", e.ID, err)
	}
	t, err := time.Parse(time.RFC3339, created)
	if err != nil {
		return e, fmt.Errorf("parsing created_at of row %d: %w", e.ID, err)
	}
	e.CreatedAt = t
	return e, nil
}
