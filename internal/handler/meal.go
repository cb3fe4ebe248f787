package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/homehub/internal/meal"
	"github.com/dukerupert/homehub/internal/model"
	"github.com/dukerupert/homehub/internal/store"
	"github.com/dukerupert/homehub/internal/websocket"
)

type MealHandler struct {
	engine  *meal.Engine
	recipes *store.RecipeStore
	notifier
	logger *slog.Logger
}

func NewMealHandler(e *meal.Engine, rs *store.RecipeStore, hub Broadcaster, logger *slog.Logger) *MealHandler {
	return &MealHandler{engine: e, recipes: rs, notifier: notifier{hub}, logger: logger}
}

func slotID(date string, mealType model.MealType) string {
	return date + "/" + string(mealType)
}

func (h *MealHandler) Week(w http.ResponseWriter, r *http.Request) {
	days, err := h.engine.Week(r.Context(), r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

func (h *MealHandler) Today(w http.ResponseWriter, r *http.Request) {
	day, err := h.engine.Today(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

// Set assigns a recipe to a slot. Given only a recipe_id, the snapshot is
// taken from the stored recipe.
func (h *MealHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date     string         `json:"date"`
		MealType model.MealType `json:"meal_type"`
		model.RecipeSnapshot
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	snap := req.RecipeSnapshot
	if snap.RecipeID != nil && snap.Title == "" {
		recipe, err := h.recipes.GetByID(r.Context(), *snap.RecipeID)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		if recipe == nil {
			writeMessage(w, http.StatusBadRequest, "recipe not found")
			return
		}
		snap.Title = recipe.Title
		if snap.Emoji == "" {
			snap.Emoji = recipe.Emoji
		}
		if snap.Photo == nil {
			snap.Photo = recipe.Photo
		}
	}

	slot, err := h.engine.SetMeal(r.Context(), req.Date, req.MealType, snap)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityMeal, websocket.ActionUpdated, slotID(slot.Date, slot.MealType), nil))
	writeJSON(w, http.StatusOK, slot)
}

func (h *MealHandler) Remove(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	mealType := model.MealType(r.PathValue("mealType"))

	removed, err := h.engine.RemoveMeal(r.Context(), date, mealType)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if removed {
		h.broadcast(websocket.NewMessage(websocket.EntityMeal, websocket.ActionDeleted, slotID(date, mealType), nil))
	}
	writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
}

func (h *MealHandler) Complete(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	mealType := model.MealType(r.PathValue("mealType"))

	entry, err := h.engine.CompleteMeal(r.Context(), date, mealType)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityMeal, websocket.ActionCompleted, slotID(date, mealType), nil))
	writeJSON(w, http.StatusCreated, entry)
}

func (h *MealHandler) ShoppingList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.engine.GenerateShoppingList(r.Context(), q.Get("start"), q.Get("end"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *MealHandler) CheckShoppingItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Start   string `json:"start"`
		End     string `json:"end"`
		Name    string `json:"name"`
		Checked bool   `json:"checked"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.engine.SetShoppingItemChecked(r.Context(), req.Start, req.End, req.Name, req.Checked); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityShopping, websocket.ActionUpdated, "", map[string]any{
		"start":   req.Start,
		"end":     req.End,
		"item":    meal.ItemKey(req.Name),
		"checked": req.Checked,
	}))
	writeJSON(w, http.StatusOK, map[string]any{"name": req.Name, "checked": req.Checked})
}

func (h *MealHandler) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	history, err := h.engine.History(r.Context(), q.Get("start"), q.Get("end"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if history == nil {
		history = []model.MealHistory{}
	}
	writeJSON(w, http.StatusOK, history)
}
