package api

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/nerrad567/gray-logic-velux/internal/audit"
)

// recordAudit stores e with the caller taken from the token claims.
// Failures are logged; the request still succeeds.
func (s *Server) recordAudit(r *http.Request, e audit.Entry) {
	if s.audit == nil {
		return
	}
	if claims := claimsFromContext(r.Context()); claims != nil {
		e.Subject = claims.Subject
		e.Role = string(claims.Role)
	}
	if err := s.audit.Record(r.Context(), &e); err != nil {
		s.logger.Warn("recording audit entry failed",
			"action", e.Action,
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
	}
}

// settingKeys returns the keys of settings, sorted. Values are left out so
// passwords never reach the audit trail.
func settingKeys(settings map[string]string) []string {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// handleListAudit returns audit entries, most recent first.
//
// Query parameters: action, item, limit (default 50, max 200), offset.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeUnavailable(w, "audit trail not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action: q.Get("action"),
		Item:   q.Get("item"),
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeBadRequest(w, name+" must be a non-negative integer")
			return
		}
		*dst = n
	}

	res, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing audit entries failed", "error", err)
		writeInternalError(w, "listing audit entries failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
