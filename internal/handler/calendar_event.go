package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/homehub/internal/mapping"
	"github.com/dukerupert/homehub/internal/model"
	"github.com/dukerupert/homehub/internal/store"
	"github.com/dukerupert/homehub/internal/websocket"
)

type CalendarEventHandler struct {
	eventStore  *store.EventStore
	memberStore *store.FamilyMemberStore
	notifier
	logger *slog.Logger
}

func NewCalendarEventHandler(es *store.EventStore, ms *store.FamilyMemberStore, hub Broadcaster, logger *slog.Logger) *CalendarEventHandler {
	return &CalendarEventHandler{eventStore: es, memberStore: ms, notifier: notifier{hub}, logger: logger}
}

type eventRequest struct {
	Title     string   `json:"title"`
	Date      string   `json:"date"`
	StartHour *float64 `json:"start_hour"`
	Duration  *float64 `json:"duration"`
	MemberID  *int64   `json:"member_id"`
	Color     string   `json:"color"`
}

// parseAndValidate decodes an event body and fills defaults. An event with
// no explicit color takes its member's color.
func (h *CalendarEventHandler) parseAndValidate(w http.ResponseWriter, r *http.Request) (*eventRequest, bool) {
	var req eventRequest
	if !decodeJSON(w, r, &req) {
		return nil, false
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeMessage(w, http.StatusBadRequest, "title is required")
		return nil, false
	}
	if !validDate(req.Date) {
		writeMessage(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return nil, false
	}

	if req.StartHour == nil {
		v := 9.0
		req.StartHour = &v
	}
	if *req.StartHour < 0 || *req.StartHour >= 24 {
		writeMessage(w, http.StatusBadRequest, "start_hour must be between 0 and 24")
		return nil, false
	}
	if req.Duration == nil {
		v := 1.0
		req.Duration = &v
	}
	if *req.Duration <= 0 || *req.Duration > 24 {
		writeMessage(w, http.StatusBadRequest, "duration must be between 0 and 24 hours")
		return nil, false
	}

	if req.Color != "" && !hexColorRegexp.MatchString(req.Color) {
		writeMessage(w, http.StatusBadRequest, "color must be a hex color (e.g. #FF0000)")
		return nil, false
	}

	if req.MemberID != nil {
		member, err := h.memberStore.GetByID(r.Context(), *req.MemberID)
		if err != nil {
			writeError(w, r, h.logger, err)
			return nil, false
		}
		if member == nil {
			writeMessage(w, http.StatusBadRequest, "family member not found")
			return nil, false
		}
		if req.Color == "" {
			req.Color = member.Color
		}
	}
	if req.Color == "" {
		req.Color = mapping.DefaultColor
	}

	return &req, true
}

func (h *CalendarEventHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseAndValidate(w, r)
	if !ok {
		return
	}

	event, err := h.eventStore.Create(r.Context(), req.Title, req.Date, *req.StartHour, *req.Duration, req.MemberID, req.Color)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.broadcast(websocket.IDMessage(websocket.EntityEvent, websocket.ActionCreated, event.ID))
	writeJSON(w, http.StatusCreated, event)
}

func (h *CalendarEventHandler) List(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")

	if start == "" || end == "" {
		writeMessage(w, http.StatusBadRequest, "start and end query parameters are required")
		return
	}
	if !validDate(start) || !validDate(end) {
		writeMessage(w, http.StatusBadRequest, "start and end must be YYYY-MM-DD")
		return
	}

	events, err := h.eventStore.ListByDateRange(r.Context(), start, end)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if events == nil {
		events = []model.CalendarEvent{}
	}

	writeJSON(w, http.StatusOK, events)
}

func (h *CalendarEventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	event, err := h.eventStore.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if event == nil {
		writeMessage(w, http.StatusNotFound, "event not found")
		return
	}

	writeJSON(w, http.StatusOK, event)
}

func (h *CalendarEventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.eventStore.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if existing == nil {
		writeMessage(w, http.StatusNotFound, "event not found")
		return
	}

	req, ok := h.parseAndValidate(w, r)
	if !ok {
		return
	}

	event, err := h.eventStore.Update(r.Context(), id, req.Title, req.Date, *req.StartHour, *req.Duration, req.MemberID, req.Color)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.broadcast(websocket.IDMessage(websocket.EntityEvent, websocket.ActionUpdated, id))
	writeJSON(w, http.StatusOK, event)
}

func (h *CalendarEventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.eventStore.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if existing == nil {
		writeMessage(w, http.StatusNotFound, "event not found")
		return
	}

	if err := h.eventStore.Delete(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.broadcast(websocket.IDMessage(websocket.EntityEvent, websocket.ActionDeleted, id))
	w.WriteHeader(http.StatusNoContent)
}

func validDate(s string) bool {
	if !dateRegexp.MatchString(s) {
		return false
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// parseFlexibleTime accepts RFC3339 or a bare date, read as midnight in loc.
func parseFlexibleTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", s, loc)
}
