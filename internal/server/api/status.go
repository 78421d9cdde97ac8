package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/posegate/internal/actuator"
	"github.com/ayusman/posegate/internal/gesture"
	"github.com/ayusman/posegate/internal/store"
)

// Status is the runtime state reported by GET /api/status.
type Status struct {
	Enabled    bool              `json:"enabled"`
	Running    bool              `json:"running"`
	SessionID  string            `json:"session_id,omitempty"`
	Session    *gesture.Snapshot `json:"session,omitempty"`
	Dispatcher *actuator.Stats   `json:"dispatcher,omitempty"`
	Cooldown   string            `json:"cooldown_remaining,omitempty"`
}

// Controller exposes runtime state and the detection toggle.
type Controller interface {
	Status() Status
	SetEnabled(enabled bool) error
}

// StatusHandler serves GET /api/status.
type StatusHandler struct {
	ctl Controller
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(ctl Controller) *StatusHandler {
	return &StatusHandler{ctl: ctl}
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.ctl.Status())
}

// EnabledHandler serves POST /api/enabled.
type EnabledHandler struct {
	ctl Controller
}

// NewEnabledHandler creates an EnabledHandler.
func NewEnabledHandler(ctl Controller) *EnabledHandler {
	return &EnabledHandler{ctl: ctl}
}

type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

type enabledResponse struct {
	Enabled bool `json:"enabled"`
}

func (h *EnabledHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req enabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	if err := h.ctl.SetEnabled(*req.Enabled); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update detection state")
		return
	}

	writeJSON(w, http.StatusOK, enabledResponse{Enabled: *req.Enabled})
}

// SettingsController is a Controller for processes that serve the API
// without running the pipeline. The toggle is persisted so the next run
// picks it up.
type SettingsController struct {
	store *store.Store
}

// NewSettingsController creates a SettingsController.
func NewSettingsController(s *store.Store) *SettingsController {
	return &SettingsController{store: s}
}

// Status reports the persisted toggle.
func (c *SettingsController) Status() Status {
	return Status{Enabled: c.store.Settings().GetBool(store.SettingEnabled, true)}
}

// SetEnabled persists the toggle.
func (c *SettingsController) SetEnabled(enabled bool) error {
	return c.store.Settings().SetBool(store.SettingEnabled, enabled)
}
