package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/almue/almue-core/internal/audit"
)

var (
	validSources  = map[string]bool{audit.SourceMQTT: true, audit.SourceAPI: true, audit.SourceScheduler: true}
	validOutcomes = map[string]bool{audit.OutcomeOK: true, audit.OutcomeRejected: true, audit.OutcomeFailed: true}
)

// handleListAuditLogs returns one page of command audit entries, newest first.
//
// Query parameters: action, device_id, source (mqtt, api, scheduler),
// outcome (ok, rejected, failed), limit (default 50, max 200) and offset.
func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeUnavailable(w, "audit logging not configured")
		return
	}

	filter, err := parseAuditFilter(r.URL.Query())
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list audit logs", "error", err)
		writeInternalError(w, "failed to list audit logs")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func parseAuditFilter(q url.Values) (audit.Filter, error) {
	f := audit.Filter{
		Action:   q.Get("action"),
		DeviceID: q.Get("device_id"),
		Source:   q.Get("source"),
		Outcome:  q.Get("outcome"),
	}
	if f.Source != "" && !validSources[f.Source] {
		return f, fmt.Errorf("unknown source %q", f.Source)
	}
	if f.Outcome != "" && !validOutcomes[f.Outcome] {
		return f, fmt.Errorf("unknown outcome %q", f.Outcome)
	}

	var err error
	if f.Limit, err = nonNegativeInt(q, "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = nonNegativeInt(q, "offset"); err != nil {
		return f, err
	}
	return f, nil
}

// nonNegativeInt parses q[key]; a missing value is zero.
func nonNegativeInt(q url.Values, key string) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}
