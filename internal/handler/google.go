package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/homehub/internal/google"
	"github.com/dukerupert/homehub/internal/ledger"
	"github.com/dukerupert/homehub/internal/mapping"
	"github.com/dukerupert/homehub/internal/model"
	"github.com/dukerupert/homehub/internal/store"
	"github.com/dukerupert/homehub/internal/websocket"
)

const (
	oauthStateCookie = "homehub_oauth_state"
	defaultEventDays = 7
)

type GoogleHandler struct {
	client      *google.Client
	mappings    *mapping.Service
	ledger      *ledger.Ledger
	memberStore *store.FamilyMemberStore
	loc         *time.Location
	notifier
	logger *slog.Logger
}

func NewGoogleHandler(c *google.Client, ms *mapping.Service, l *ledger.Ledger, members *store.FamilyMemberStore, loc *time.Location, hub Broadcaster, logger *slog.Logger) *GoogleHandler {
	if loc == nil {
		loc = time.Local
	}
	return &GoogleHandler{
		client:      c,
		mappings:    ms,
		ledger:      l,
		memberStore: members,
		loc:         loc,
		notifier:    notifier{hub},
		logger:      logger,
	}
}

// requireConfigured answers 503 when no OAuth client is configured.
func (h *GoogleHandler) requireConfigured(w http.ResponseWriter) bool {
	if h.client == nil || !h.client.Configured() {
		writeMessage(w, http.StatusServiceUnavailable, "google integration is not configured")
		return false
	}
	return true
}

func (h *GoogleHandler) AuthURL(w http.ResponseWriter, r *http.Request) {
	if !h.requireConfigured(w) {
		return
	}

	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/api/google/auth",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"url": h.client.AuthURL(state)})
}

func (h *GoogleHandler) AuthCallback(w http.ResponseWriter, r *http.Request) {
	if !h.requireConfigured(w) {
		return
	}

	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		writeMessage(w, http.StatusBadRequest, "invalid oauth state")
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		writeMessage(w, http.StatusBadRequest, "code is required")
		return
	}

	if err := h.client.Exchange(r.Context(), code); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Path: "/api/google/auth", MaxAge: -1})
	h.broadcast(websocket.NewMessage(websocket.EntitySettings, websocket.ActionUpdated, "google", nil))
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *GoogleHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if !h.requireConfigured(w) {
		return
	}
	if err := h.client.Disconnect(r.Context()); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.broadcast(websocket.NewMessage(websocket.EntitySettings, websocket.ActionUpdated, "google", nil))
	w.WriteHeader(http.StatusNoContent)
}

// Events returns live calendar events with their resolved member. start and
// end default to the next seven days.
func (h *GoogleHandler) Events(w http.ResponseWriter, r *http.Request) {
	if !h.requireConfigured(w) {
		return
	}

	y, m, d := time.Now().In(h.loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, h.loc)
	end := start.AddDate(0, 0, defaultEventDays)

	if v := r.URL.Query().Get("start"); v != "" {
		t, err := parseFlexibleTime(v, h.loc)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "start must be RFC3339 or YYYY-MM-DD format")
			return
		}
		start = t
	}
	if v := r.URL.Query().Get("end"); v != "" {
		t, err := parseFlexibleTime(v, h.loc)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "end must be RFC3339 or YYYY-MM-DD format")
			return
		}
		end = t
	}
	if !start.Before(end) {
		writeMessage(w, http.StatusBadRequest, "start must be before end")
		return
	}

	events, err := h.client.ListEvents(r.Context(), start, end)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	overrides, err := h.mappings.EventOverrides(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	members, err := h.memberStore.List(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	resolved := mapping.ResolveEvents(events, overrides, members)
	if resolved == nil {
		resolved = []mapping.ResolvedEvent{}
	}
	writeJSON(w, http.StatusOK, resolved)
}

// SetEventMapping assigns an event to a member name. A null member removes
// the override; an empty string records a deliberate clear.
func (h *GoogleHandler) SetEventMapping(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	var req struct {
		Member *string `json:"member"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	var err error
	if req.Member == nil {
		err = h.mappings.ClearCalendarEventMapping(r.Context(), eventID)
	} else {
		err = h.mappings.SetCalendarEventMapping(r.Context(), eventID, strings.TrimSpace(*req.Member))
	}
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityMapping, websocket.ActionUpdated, eventID, map[string]any{"kind": model.MappingCalendarEvent}))
	writeJSON(w, http.StatusOK, map[string]any{"event_id": eventID, "member": req.Member})
}

type taskListView struct {
	model.TaskList
	MemberID          *int64 `json:"member_id"`
	Mapped            bool   `json:"mapped"`
	SuggestedMemberID *int64 `json:"suggested_member_id,omitempty"`
}

func (h *GoogleHandler) TaskLists(w http.ResponseWriter, r *http.Request) {
	if !h.requireConfigured(w) {
		return
	}

	lists, err := h.client.ListTaskLists(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	overrides, err := h.mappings.TaskListOverrides(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	members, err := h.memberStore.List(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	out := make([]taskListView, 0, len(lists))
	for _, l := range lists {
		v := taskListView{TaskList: l}
		v.MemberID, v.Mapped = mapping.ResolveTaskList(l.ID, overrides)
		if _, set := overrides[l.ID]; !set {
			if m := mapping.SuggestTaskListMember(l.Title, members); m != nil {
				v.SuggestedMemberID = &m.ID
			}
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

// SetTaskListMapping assigns a list to a member. A null member_id records a
// deliberate clear; "reset": true removes the mapping row entirely.
func (h *GoogleHandler) SetTaskListMapping(w http.ResponseWriter, r *http.Request) {
	listID := r.PathValue("listId")
	var req struct {
		MemberID *int64 `json:"member_id"`
		Reset    bool   `json:"reset"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.MemberID != nil {
		member, err := h.memberStore.GetByID(r.Context(), *req.MemberID)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		if member == nil {
			writeMessage(w, http.StatusBadRequest, "family member not found")
			return
		}
	}

	var err error
	if req.Reset {
		err = h.mappings.ClearTaskListMapping(r.Context(), listID)
	} else {
		err = h.mappings.SetTaskListMapping(r.Context(), listID, req.MemberID)
	}
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityMapping, websocket.ActionUpdated, listID, map[string]any{"kind": model.MappingTaskList}))
	writeJSON(w, http.StatusOK, map[string]any{"list_id": listID, "member_id": req.MemberID})
}

type taskView struct {
	model.ExternalTask
	ListTitle   string `json:"list_title"`
	MemberID    *int64 `json:"member_id"`
	MemberName  string `json:"member_name,omitempty"`
	MemberColor string `json:"member_color,omitempty"`
}

func (h *GoogleHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	if !h.requireConfigured(w) {
		return
	}

	lists, tasks, err := h.client.ListAllTasks(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	overrides, err := h.mappings.TaskListOverrides(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	members, err := h.memberStore.List(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	titles := make(map[string]string, len(lists))
	for _, l := range lists {
		titles[l.ID] = l.Title
	}
	byID := make(map[int64]model.FamilyMember, len(members))
	for _, m := range members {
		byID[m.ID] = m
	}

	out := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		v := taskView{ExternalTask: t, ListTitle: titles[t.ListID]}
		if id, ok := mapping.ResolveTaskList(t.ListID, overrides); ok {
			v.MemberID = id
			if m, found := byID[*id]; found {
				v.MemberName = m.Name
				v.MemberColor = m.Color
			}
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *GoogleHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	if !h.requireConfigured(w) {
		return
	}

	listID := r.PathValue("listId")
	var req struct {
		Title string `json:"title"`
		Notes string `json:"notes"`
		Due   string `json:"due"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeMessage(w, http.StatusBadRequest, "title is required")
		return
	}
	var due *time.Time
	if req.Due != "" {
		t, err := parseFlexibleTime(req.Due, h.loc)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "due must be RFC3339 or YYYY-MM-DD format")
			return
		}
		due = &t
	}

	task, err := h.client.CreateTask(r.Context(), listID, req.Title, req.Notes, due)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityGoogle, websocket.ActionCreated, task.ID, map[string]any{"list_id": listID}))
	writeJSON(w, http.StatusCreated, task)
}

// UpdateStatus completes or reopens a task, moving one point for the
// list's member either way.
func (h *GoogleHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	listID, taskID := r.PathValue("listId"), r.PathValue("taskId")
	var req struct {
		Status model.TaskStatus `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	task, err := h.ledger.SetGoogleTaskStatus(r.Context(), listID, taskID, req.Status)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	action := websocket.ActionCompleted
	if req.Status == model.TaskNeedsAction {
		action = websocket.ActionReopened
	}
	h.broadcast(websocket.NewMessage(websocket.EntityGoogle, action, taskID, map[string]any{"list_id": listID}))
	h.broadcast(websocket.NewMessage(websocket.EntityMember, websocket.ActionUpdated, "", nil))
	writeJSON(w, http.StatusOK, task)
}

func (h *GoogleHandler) MoveTask(w http.ResponseWriter, r *http.Request) {
	listID, taskID := r.PathValue("listId"), r.PathValue("taskId")
	var req struct {
		ToList string `json:"to_list"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ToList == "" {
		writeMessage(w, http.StatusBadRequest, "to_list is required")
		return
	}
	if req.ToList == listID {
		writeMessage(w, http.StatusBadRequest, "task is already in that list")
		return
	}

	moved, err := h.ledger.TransferGoogleTask(r.Context(), listID, taskID, req.ToList)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityGoogle, websocket.ActionMoved, moved.ID, map[string]any{
		"from_list": listID,
		"to_list":   req.ToList,
	}))
	h.broadcast(websocket.NewMessage(websocket.EntityMember, websocket.ActionUpdated, "", nil))
	writeJSON(w, http.StatusOK, moved)
}

func (h *GoogleHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if !h.requireConfigured(w) {
		return
	}

	listID, taskID := r.PathValue("listId"), r.PathValue("taskId")
	if err := h.client.DeleteTask(r.Context(), listID, taskID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityGoogle, websocket.ActionDeleted, taskID, map[string]any{"list_id": listID}))
	w.WriteHeader(http.StatusNoContent)
}
