package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/homehub/internal/weather"
)

type WeatherHandler struct {
	service *weather.Service
	logger  *slog.Logger
}

func NewWeatherHandler(s *weather.Service, logger *slog.Logger) *WeatherHandler {
	return &WeatherHandler{service: s, logger: logger}
}

func (h *WeatherHandler) Current(w http.ResponseWriter, r *http.Request) {
	conditions, err := h.service.Current(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, conditions)
}
