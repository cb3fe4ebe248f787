package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/homehub/internal/model"
	"github.com/dukerupert/homehub/internal/store"
	"github.com/dukerupert/homehub/internal/websocket"
)

const (
	defaultMemberColor = "#3B82F6"
	defaultMemberEmoji = "😀"
)

type FamilyMemberHandler struct {
	store *store.FamilyMemberStore
	notifier
	logger *slog.Logger
}

func NewFamilyMemberHandler(s *store.FamilyMemberStore, hub Broadcaster, logger *slog.Logger) *FamilyMemberHandler {
	return &FamilyMemberHandler{store: s, notifier: notifier{hub}, logger: logger}
}

type memberRequest struct {
	Name        string `json:"name"`
	Color       string `json:"color"`
	AvatarEmoji string `json:"avatar_emoji"`
	Points      int    `json:"points"`
}

func (h *FamilyMemberHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.store.List(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if members == nil {
		members = []model.FamilyMember{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *FamilyMemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeMessage(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Color == "" {
		req.Color = defaultMemberColor
	}
	if !hexColorRegexp.MatchString(req.Color) {
		writeMessage(w, http.StatusBadRequest, "color must be a hex color (e.g. #FF0000)")
		return
	}
	if req.AvatarEmoji == "" {
		req.AvatarEmoji = defaultMemberEmoji
	}

	exists, err := h.store.NameExists(r.Context(), req.Name, 0)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if exists {
		writeMessage(w, http.StatusConflict, "a family member with that name already exists")
		return
	}

	member, err := h.store.Create(r.Context(), req.Name, req.Color, req.AvatarEmoji, req.Points)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.broadcast(websocket.IDMessage(websocket.EntityMember, websocket.ActionCreated, member.ID))
	writeJSON(w, http.StatusCreated, member)
}

// Update edits display fields. Points are only moved by the ledger.
func (h *FamilyMemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if existing == nil {
		writeMessage(w, http.StatusNotFound, "family member not found")
		return
	}

	var req memberRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		req.Name = existing.Name
	}
	if req.Color == "" {
		req.Color = existing.Color
	}
	if !hexColorRegexp.MatchString(req.Color) {
		writeMessage(w, http.StatusBadRequest, "color must be a hex color (e.g. #FF0000)")
		return
	}
	if req.AvatarEmoji == "" {
		req.AvatarEmoji = existing.AvatarEmoji
	}

	exists, err := h.store.NameExists(r.Context(), req.Name, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if exists {
		writeMessage(w, http.StatusConflict, "a family member with that name already exists")
		return
	}

	member, err := h.store.Update(r.Context(), id, req.Name, req.Color, req.AvatarEmoji)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.broadcast(websocket.IDMessage(websocket.EntityMember, websocket.ActionUpdated, id))
	writeJSON(w, http.StatusOK, member)
}

// Delete removes the member with their chores, local events and task-list
// mappings.
func (h *FamilyMemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if existing == nil {
		writeMessage(w, http.StatusNotFound, "family member not found")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Info("family member deleted", "member_id", id, "name", existing.Name)
	h.broadcast(websocket.IDMessage(websocket.EntityMember, websocket.ActionDeleted, id))
	w.WriteHeader(http.StatusNoContent)
}

func (h *FamilyMemberHandler) UpdateSortOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		writeMessage(w, http.StatusBadRequest, "ids is required")
		return
	}

	if err := h.store.UpdateSortOrder(r.Context(), req.IDs); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityMember, websocket.ActionUpdated, "", nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
