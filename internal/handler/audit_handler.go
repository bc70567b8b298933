package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"studio-backend/internal/domain"
	"studio-backend/internal/observability"
)

const maxAuditQueryLimit = 10000

// AuditQuerier reads the audit log.
type AuditQuerier interface {
	Query(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditLogEntry, error)
}

// AuditHandler serves the audit log to admins
type AuditHandler struct {
	log AuditQuerier
}

func NewAuditHandler(log AuditQuerier) *AuditHandler {
	return &AuditHandler{log: log}
}

// AuditQueryResponse lists matching entries, newest first
type AuditQueryResponse struct {
	Entries []domain.AuditLogEntry `json:"entries"`
	Count   int                    `json:"count"`
}

// Query handles GET /api/v1/admin/audit
func (h *AuditHandler) Query(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseAuditFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.log.Query(r.Context(), filter)
	if err != nil {
		observability.FromContext(r.Context()).Error("audit query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if entries == nil {
		entries = []domain.AuditLogEntry{}
	}

	writeJSON(w, http.StatusOK, AuditQueryResponse{Entries: entries, Count: len(entries)})
}

// ParseAuditFilter reads event_type, username, severity, start_date,
// end_date (RFC3339) and limit from query parameters.
func ParseAuditFilter(q url.Values) (domain.AuditFilter, error) {
	var filter domain.AuditFilter

	if v := q.Get("event_type"); v != "" {
		filter.EventType = domain.AuditEventType(v)
		if !filter.EventType.Valid() {
			return filter, fmt.Errorf("invalid event_type %q", v)
		}
	}

	if v := q.Get("severity"); v != "" {
		filter.Severity = domain.Severity(v)
		if !filter.Severity.Valid() {
			return filter, fmt.Errorf("invalid severity %q", v)
		}
	}

	filter.Username = q.Get("username")

	var err error
	if filter.StartDate, err = parseTimeParam(q, "start_date"); err != nil {
		return filter, err
	}
	if filter.EndDate, err = parseTimeParam(q, "end_date"); err != nil {
		return filter, err
	}
	if !filter.StartDate.IsZero() && !filter.EndDate.IsZero() && filter.EndDate.Before(filter.StartDate) {
		return filter, fmt.Errorf("end_date is before start_date")
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > maxAuditQueryLimit {
			return filter, fmt.Errorf("limit must be between 1 and %d", maxAuditQueryLimit)
		}
		filter.Limit = limit
	}

	return filter, nil
}

func parseTimeParam(q url.Values, name string) (time.Time, error) {
	v := q.Get(name)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: expected RFC3339 timestamp", name)
	}
	return t, nil
}
