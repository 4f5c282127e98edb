package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/almue/almue-core/internal/device"
)

// handleGetDeviceHistory returns state history entries for a device, newest first.
//
// Query parameters:
//   - limit: max results (default 50, max 200)
func (s *Server) handleGetDeviceHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w, "state history not configured")
		return
	}
	d := s.lookupDevice(w, r)
	if d == nil {
		return
	}

	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	entries, err := s.history.GetHistory(r.Context(), d.ID(), limit)
	if err != nil {
		s.logger.Error("failed to read state history", "device", d.ID(), "error", err)
		writeInternalError(w, "failed to read state history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": d.ID(),
		"history":   entries,
		"count":     len(entries),
	})
}

// parseHistoryLimit parses the limit query value, clamped to device.MaxHistoryLimit.
func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return device.DefaultHistoryLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	if n > device.MaxHistoryLimit {
		n = device.MaxHistoryLimit
	}
	return n, nil
}
