package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"

	"github.com/dukerupert/homehub/internal/google"
	"github.com/dukerupert/homehub/internal/ledger"
	"github.com/dukerupert/homehub/internal/meal"
	"github.com/dukerupert/homehub/internal/middleware"
	"github.com/dukerupert/homehub/internal/weather"
	"github.com/dukerupert/homehub/internal/websocket"
)

var (
	hexColorRegexp = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	dateRegexp     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Broadcaster fans out change notifications. *websocket.Hub satisfies it.
type Broadcaster interface {
	Broadcast(msg websocket.Message)
}

type notifier struct {
	hub Broadcaster
}

func (n notifier) broadcast(msg websocket.Message) {
	if n.hub != nil {
		n.hub.Broadcast(msg)
	}
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads the request body into v, answering 400 itself on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

// writeError classifies err into a response. Validation, not-found and
// upstream failures carry their message; anything else is logged and
// answered with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var upstream *google.UpstreamError
	switch {
	case errors.Is(err, meal.ErrInvalidMealType),
		errors.Is(err, meal.ErrMissingDate),
		errors.Is(err, meal.ErrInvalidDate),
		errors.Is(err, meal.ErrMissingItem),
		errors.Is(err, ledger.ErrInvalidStatus):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, meal.ErrNotFound), errors.Is(err, ledger.ErrNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, google.ErrNotConnected):
		writeMessage(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ledger.ErrNoProvider), errors.Is(err, weather.ErrNotConfigured):
		writeMessage(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &upstream), errors.Is(err, weather.ErrUpstream):
		logger.Warn("upstream failure", "path", r.URL.Path, "error", err)
		writeMessage(w, http.StatusBadGateway, err.Error())
	default:
		logger.Error("request failed",
			"request_id", middleware.RequestIDFrom(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}
