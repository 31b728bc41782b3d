package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-velux/internal/audit"
	"github.com/nerrad567/gray-logic-velux/internal/bridges/velux"
)

// statusResponse is the body of GET /velux/status.
type statusResponse struct {
	Name               string         `json:"name"`
	Cycle              uint64         `json:"cycle"`
	ProperlyConfigured bool           `json:"properly_configured"`
	ConfigVersion      uint64         `json:"config_version"`
	Items              int            `json:"items"`
	DeviceUpdates      uint64         `json:"device_updates"`
	LastCycle          *cycleResponse `json:"last_cycle,omitempty"`
}

// cycleResponse is the JSON form of a velux.CycleReport.
type cycleResponse struct {
	Cycle          uint64   `json:"cycle"`
	ConfigVersion  uint64   `json:"config_version"`
	Refreshed      []string `json:"refreshed"`
	NotDue         int      `json:"not_due"`
	NotRefreshable int      `json:"not_refreshable"`
	Missing        []string `json:"missing"`
	Empty          bool     `json:"empty"`
	Started        string   `json:"started,omitempty"`
	DurationMs     float64  `json:"duration_ms"`
}

func newCycleResponse(r velux.CycleReport) cycleResponse {
	resp := cycleResponse{
		Cycle:          r.Cycle,
		ConfigVersion:  r.ConfigVersion,
		Refreshed:      r.Refreshed,
		NotDue:         r.NotDue,
		NotRefreshable: r.NotRefreshable,
		Missing:        r.Missing,
		Empty:          r.Empty,
		DurationMs:     float64(r.Duration) / float64(time.Millisecond),
	}
	if resp.Refreshed == nil {
		resp.Refreshed = []string{}
	}
	if resp.Missing == nil {
		resp.Missing = []string{}
	}
	if !r.Started.IsZero() {
		resp.Started = r.Started.UTC().Format(time.RFC3339Nano)
	}
	return resp
}

// itemTypeResponse is the JSON form of a velux.ItemType.
type itemTypeResponse struct {
	Name           string `json:"name"`
	Capabilities   string `json:"capabilities"`
	Refreshable    bool   `json:"refreshable"`
	AcceptsCommand bool   `json:"accepts_commands"`
	RefreshDivider int    `json:"refresh_divider,omitempty"`
}

func newItemTypeResponse(t velux.ItemType) itemTypeResponse {
	resp := itemTypeResponse{
		Name:           t.Name,
		Capabilities:   t.Capabilities.String(),
		Refreshable:    t.IsRefreshable(),
		AcceptsCommand: t.AcceptsCommands(),
	}
	if resp.Refreshable {
		resp.RefreshDivider = t.RefreshDivider
	}
	return resp
}

// itemResponse is one entry of GET /velux/items.
type itemResponse struct {
	Name     string            `json:"name"`
	Provider string            `json:"provider"`
	Valid    bool              `json:"valid"`
	Thing    string            `json:"thing,omitempty"`
	Type     *itemTypeResponse `json:"type,omitempty"`
}

// commandRequest is the body of POST /velux/items/{name}/command.
type commandRequest struct {
	Command string `json:"command"`
}

// dispatchResponse reports what happened to a command.
type dispatchResponse struct {
	Item     string `json:"item"`
	Command  string `json:"command"`
	Kind     string `json:"kind"`
	Provider string `json:"provider,omitempty"`
	Outcome  string `json:"outcome"`
}

// configErrorResponse is a 400 body naming the rejected setting.
type configErrorResponse struct {
	Error
	Key string `json:"key"`
}

// handleVeluxStatus returns the binding's cycle and configuration state.
func (s *Server) handleVeluxStatus(w http.ResponseWriter, _ *http.Request) {
	st := s.binding.Status()
	resp := statusResponse{
		Name:               velux.ServiceName,
		Cycle:              st.Cycle,
		ProperlyConfigured: st.ProperlyConfigured,
		ConfigVersion:      st.ConfigVersion,
		Items:              st.Items,
		DeviceUpdates:      st.DeviceUpdates,
	}
	if st.LastCycle.Cycle != 0 {
		last := newCycleResponse(st.LastCycle)
		resp.LastCycle = &last
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetConfig returns the bridge configuration with the password masked.
func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.binding.Configuration())
}

// handlePutConfig applies a JSON object of settings.
//
// Settings are applied in declaration order and stop at the first invalid
// value; keys before it keep their new values and a refresh cycle still
// runs. The response names the rejected key.
func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "reading request body failed")
		return
	}

	settings, err := velux.DecodeSettings(body)
	if err != nil {
		writeBadRequest(w, "body must be a JSON object of string, number or boolean values")
		return
	}

	// A GET body sent back unchanged carries the masked password.
	if pw, ok := settings[velux.KeyPassword]; ok && isMasked(pw) {
		delete(settings, velux.KeyPassword)
	}

	err = s.binding.Apply(context.WithoutCancel(r.Context()), settings)
	entry := audit.Entry{
		Action:  audit.ActionConfigure,
		Outcome: "ok",
		Details: map[string]any{
			"keys":           settingKeys(settings),
			"config_version": s.binding.Configuration().Version,
		},
	}
	if err != nil {
		var cfgErr *velux.ConfigError
		if errors.As(err, &cfgErr) {
			entry.Outcome = "rejected"
			entry.Details["rejected_key"] = cfgErr.Key
			s.recordAudit(r, entry)
			writeJSON(w, http.StatusBadRequest, configErrorResponse{
				Error: Error{
					Status:  http.StatusBadRequest,
					Code:    ErrCodeValidation,
					Message: cfgErr.Error(),
				},
				Key: cfgErr.Key,
			})
			return
		}
		s.logger.Error("applying configuration failed", "error", err)
		writeInternalError(w, "applying configuration failed")
		return
	}

	s.recordAudit(r, entry)
	writeJSON(w, http.StatusOK, s.binding.Configuration())
}

// handleListItems lists bound items in refresh order.
func (s *Server) handleListItems(w http.ResponseWriter, _ *http.Request) {
	bound := s.binding.Registry().Items()
	items := make([]itemResponse, 0, len(bound))
	for _, b := range bound {
		item := itemResponse{
			Name:     b.Name,
			Provider: b.Provider,
			Valid:    b.Valid,
		}
		if b.Valid {
			t := newItemTypeResponse(b.Config.Type)
			item.Type = &t
			item.Thing = b.Config.Thing
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

// handleListItemTypes lists the item type catalog.
func (s *Server) handleListItemTypes(w http.ResponseWriter, _ *http.Request) {
	catalog := velux.ItemTypes()
	types := make([]itemTypeResponse, 0, len(catalog))
	for _, t := range catalog {
		types = append(types, newItemTypeResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"item_types": types,
		"count":      len(types),
	})
}

// handleItemCommand sends a command to one item. "REFRESH" or an empty
// command reads the current value.
func (s *Server) handleItemCommand(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	// The handler outlives the request.
	ctx := context.WithoutCancel(r.Context())
	res := s.binding.HandleCommand(ctx, name, req.Command)

	resp := dispatchResponse{
		Item:     res.Item,
		Command:  string(res.Command),
		Kind:     res.Kind(),
		Provider: res.Provider,
		Outcome:  string(res.Outcome),
	}
	s.recordAudit(r, audit.Entry{
		Action:  audit.ActionCommand,
		Item:    name,
		Outcome: resp.Outcome,
		Details: map[string]any{"command": resp.Command, "kind": resp.Kind},
	})

	switch res.Outcome {
	case velux.OutcomeForwarded:
		writeJSON(w, http.StatusAccepted, resp)
	case velux.OutcomeUnknownItem:
		writeError(w, http.StatusNotFound, resp.Outcome, "item not bound: "+name)
	case velux.OutcomeNotPermitted:
		writeError(w, http.StatusConflict, resp.Outcome, "item does not accept commands: "+name)
	case velux.OutcomeNoPublisher:
		writeError(w, http.StatusServiceUnavailable, resp.Outcome, "no event publisher registered")
	default:
		writeInternalError(w, "unexpected dispatch outcome")
	}
}

// handleRefresh runs one refresh cycle immediately.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	report := s.binding.Tick(context.WithoutCancel(r.Context()))
	s.recordAudit(r, audit.Entry{
		Action:  audit.ActionRefresh,
		Outcome: "ok",
		Details: map[string]any{"cycle": report.Cycle, "refreshed": len(report.Refreshed)},
	})
	writeJSON(w, http.StatusOK, newCycleResponse(report))
}

// isMasked reports whether v is a non-empty run of '*'.
func isMasked(v string) bool {
	return v != "" && strings.Trim(v, "*") == ""
}
