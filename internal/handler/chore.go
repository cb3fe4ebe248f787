package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/homehub/internal/ledger"
	"github.com/dukerupert/homehub/internal/model"
	"github.com/dukerupert/homehub/internal/store"
	"github.com/dukerupert/homehub/internal/websocket"
)

type ChoreHandler struct {
	choreStore  *store.ChoreStore
	memberStore *store.FamilyMemberStore
	ledger      *ledger.Ledger
	notifier
	logger *slog.Logger
}

func NewChoreHandler(cs *store.ChoreStore, ms *store.FamilyMemberStore, l *ledger.Ledger, hub Broadcaster, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{choreStore: cs, memberStore: ms, ledger: l, notifier: notifier{hub}, logger: logger}
}

type choreRequest struct {
	Title      string `json:"title"`
	Points     *int   `json:"points"`
	AssignedTo *int64 `json:"assigned_to"`
	Recurring  string `json:"recurring"`
}

// validate trims and checks req, answering 400 itself when invalid.
func (h *ChoreHandler) validate(w http.ResponseWriter, r *http.Request, req *choreRequest) bool {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeMessage(w, http.StatusBadRequest, "title is required")
		return false
	}
	if req.Points != nil && *req.Points < 0 {
		writeMessage(w, http.StatusBadRequest, "points must not be negative")
		return false
	}
	if req.AssignedTo != nil {
		member, err := h.memberStore.GetByID(r.Context(), *req.AssignedTo)
		if err != nil {
			writeError(w, r, h.logger, err)
			return false
		}
		if member == nil {
			writeMessage(w, http.StatusBadRequest, "family member not found")
			return false
		}
	}
	return true
}

func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	chores, err := h.choreStore.List(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if chores == nil {
		chores = []model.ChoreWithAssignee{}
	}
	writeJSON(w, http.StatusOK, chores)
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req choreRequest
	if !decodeJSON(w, r, &req) || !h.validate(w, r, &req) {
		return
	}

	points := 1
	if req.Points != nil {
		points = *req.Points
	}

	chore, err := h.choreStore.Create(r.Context(), req.Title, points, req.AssignedTo, req.Recurring)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.broadcast(websocket.IDMessage(websocket.EntityChore, websocket.ActionCreated, chore.ID))
	writeJSON(w, http.StatusCreated, chore)
}

func (h *ChoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.choreStore.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if existing == nil {
		writeMessage(w, http.StatusNotFound, "chore not found")
		return
	}

	var req choreRequest
	if !decodeJSON(w, r, &req) || !h.validate(w, r, &req) {
		return
	}

	points := existing.Points
	if req.Points != nil {
		points = *req.Points
	}

	// A completed chore's reopen must debit exactly what its completion
	// credited, to the member who received it.
	if existing.Completed && (points != existing.Points || !sameMember(existing.AssignedTo, req.AssignedTo)) {
		writeMessage(w, http.StatusConflict, "reopen the chore before changing its points or assignee")
		return
	}

	chore, err := h.choreStore.Update(r.Context(), id, req.Title, points, req.AssignedTo, req.Recurring)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.broadcast(websocket.IDMessage(websocket.EntityChore, websocket.ActionUpdated, id))
	writeJSON(w, http.StatusOK, chore)
}

func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.choreStore.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if existing == nil {
		writeMessage(w, http.StatusNotFound, "chore not found")
		return
	}

	if err := h.choreStore.Delete(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.broadcast(websocket.IDMessage(websocket.EntityChore, websocket.ActionDeleted, id))
	w.WriteHeader(http.StatusNoContent)
}

// Toggle flips completion and moves the assignee's points.
func (h *ChoreHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	chore, completion, err := h.ledger.ToggleChore(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	action := websocket.ActionCompleted
	if !chore.Completed {
		action = websocket.ActionReopened
	}
	h.broadcast(websocket.IDMessage(websocket.EntityChore, action, id))
	if completion != nil && completion.MemberID != nil {
		h.broadcast(websocket.IDMessage(websocket.EntityMember, websocket.ActionUpdated, *completion.MemberID))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"chore":      chore,
		"completion": completion,
	})
}

func (h *ChoreHandler) WeeklyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.ledger.WeeklyStats(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if stats == nil {
		stats = []model.WeeklyMemberStats{}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *ChoreHandler) DailyStats(w http.ResponseWriter, r *http.Request) {
	days, ok := intQuery(w, r, "days")
	if !ok {
		return
	}

	stats, err := h.ledger.DailyStats(r.Context(), days)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if stats == nil {
		stats = []model.DailyStats{}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *ChoreHandler) History(w http.ResponseWriter, r *http.Request) {
	days, ok := intQuery(w, r, "days")
	if !ok {
		return
	}

	var memberID *int64
	if v := r.URL.Query().Get("member"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "member must be an id")
			return
		}
		memberID = &id
	}

	history, err := h.ledger.History(r.Context(), days, memberID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func sameMember(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// intQuery reads an optional integer query parameter; absent yields 0.
func intQuery(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, name+" must be a number")
		return 0, false
	}
	return n, true
}
