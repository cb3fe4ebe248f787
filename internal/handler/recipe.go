package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/homehub/internal/meal"
	"github.com/dukerupert/homehub/internal/model"
	"github.com/dukerupert/homehub/internal/store"
	"github.com/dukerupert/homehub/internal/websocket"
)

type RecipeHandler struct {
	store *store.RecipeStore
	notifier
	logger *slog.Logger
}

func NewRecipeHandler(s *store.RecipeStore, hub Broadcaster, logger *slog.Logger) *RecipeHandler {
	return &RecipeHandler{store: s, notifier: notifier{hub}, logger: logger}
}

type recipeRequest struct {
	Title       string   `json:"title"`
	Emoji       string   `json:"emoji"`
	Photo       *string  `json:"photo"`
	PrepTime    string   `json:"prep_time"`
	CookTime    string   `json:"cook_time"`
	Servings    int      `json:"servings"`
	Category    string   `json:"category"`
	IsFavorite  bool     `json:"is_favorite"`
	Ingredients []string `json:"ingredients"`
	Steps       []string `json:"steps"`
}

func (req recipeRequest) recipe() (model.Recipe, string) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return model.Recipe{}, "title is required"
	}
	if req.Servings < 0 {
		return model.Recipe{}, "servings must not be negative"
	}
	emoji := req.Emoji
	if emoji == "" {
		emoji = meal.DefaultEmoji
	}
	return model.Recipe{
		Title:       title,
		Emoji:       emoji,
		Photo:       req.Photo,
		PrepTime:    req.PrepTime,
		CookTime:    req.CookTime,
		Servings:    req.Servings,
		Category:    strings.TrimSpace(req.Category),
		IsFavorite:  req.IsFavorite,
		Ingredients: trimLines(req.Ingredients),
		Steps:       trimLines(req.Steps),
	}, ""
}

func trimLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.store.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if recipes == nil {
		recipes = []model.Recipe{}
	}
	writeJSON(w, http.StatusOK, recipes)
}

func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	recipe, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if recipe == nil {
		writeMessage(w, http.StatusNotFound, "recipe not found")
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req recipeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, msg := req.recipe()
	if msg != "" {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}

	recipe, err := h.store.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.broadcast(websocket.IDMessage(websocket.EntityRecipe, websocket.ActionCreated, recipe.ID))
	writeJSON(w, http.StatusCreated, recipe)
}

// Update replaces a recipe. Planned meals keep the snapshot they were
// assigned with.
func (h *RecipeHandler) Update(w http.ResponseWriter, r *http.Request) {
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
		writeMessage(w, http.StatusNotFound, "recipe not found")
		return
	}

	var req recipeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, msg := req.recipe()
	if msg != "" {
		writeMessage(w, http.StatusBadRequest, msg)
		return
	}

	recipe, err := h.store.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.broadcast(websocket.IDMessage(websocket.EntityRecipe, websocket.ActionUpdated, id))
	writeJSON(w, http.StatusOK, recipe)
}

func (h *RecipeHandler) SetFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		IsFavorite bool `json:"is_favorite"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	recipe, err := h.store.SetFavorite(r.Context(), id, req.IsFavorite)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if recipe == nil {
		writeMessage(w, http.StatusNotFound, "recipe not found")
		return
	}

	h.broadcast(websocket.IDMessage(websocket.EntityRecipe, websocket.ActionUpdated, id))
	writeJSON(w, http.StatusOK, recipe)
}

func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
		writeMessage(w, http.StatusNotFound, "recipe not found")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.broadcast(websocket.IDMessage(websocket.EntityRecipe, websocket.ActionDeleted, id))
	w.WriteHeader(http.StatusNoContent)
}
