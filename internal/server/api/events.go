package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ayusman/posegate/internal/gesture"
	"github.com/ayusman/posegate/internal/store"
)

// MaxEventLimit caps the limit query parameter.
const MaxEventLimit = 1000

// EventHandler serves the fired-event log.
type EventHandler struct {
	store *store.Store
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(s *store.Store) *EventHandler {
	return &EventHandler{store: s}
}

// EventResponse is the JSON form of a logged event.
type EventResponse struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	Label     string `json:"label"`
	ModeCount int    `json:"mode_count"`
	Required  int    `json:"required"`
	Capacity  int    `json:"capacity"`
	Frame     uint64 `json:"frame"`
	FiredAt   string `json:"fired_at"`
	Actuated  bool   `json:"actuated"`
	Error     string `json:"error,omitempty"`
}

type listEventsResponse struct {
	Events []EventResponse `json:"events"`
	Total  int             `json:"total"`
}

// ToEventResponse converts a stored event to its JSON form.
func ToEventResponse(e *store.Event) EventResponse {
	return EventResponse{
		ID:        e.ID,
		SessionID: e.SessionID,
		Label:     e.Label,
		ModeCount: e.ModeCount,
		Required:  e.Required,
		Capacity:  e.Capacity,
		Frame:     e.Frame,
		FiredAt:   e.FiredAt.Format(time.RFC3339Nano),
		Actuated:  e.Actuated,
		Error:     e.Error,
	}
}

// ServeHTTP handles GET /api/events?limit=n&label=L&session=S&since=RFC3339.
func (h *EventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	filter := store.EventFilter{SessionID: q.Get("session")}

	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = min(n, MaxEventLimit)
	}
	if s := q.Get("label"); s != "" {
		label, err := gesture.ParseLabel(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Label = string(label)
	}
	if s := q.Get("since"); s != "" {
		since, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC 3339")
			return
		}
		filter.Since = since
	}

	events, err := h.store.Events().List(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}
	total, err := h.store.Events().Count(filter.Label)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count events")
		return
	}

	response := listEventsResponse{
		Events: make([]EventResponse, 0, len(events)),
		Total:  total,
	}
	for _, e := range events {
		response.Events = append(response.Events, ToEventResponse(e))
	}

	writeJSON(w, http.StatusOK, response)
}
