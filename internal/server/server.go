package server

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/homehub/internal/config"
	"github.com/dukerupert/homehub/internal/google"
	"github.com/dukerupert/homehub/internal/handler"
	"github.com/dukerupert/homehub/internal/ledger"
	"github.com/dukerupert/homehub/internal/mapping"
	"github.com/dukerupert/homehub/internal/meal"
	"github.com/dukerupert/homehub/internal/middleware"
	"github.com/dukerupert/homehub/internal/secrets"
	"github.com/dukerupert/homehub/internal/store"
	"github.com/dukerupert/homehub/internal/weather"
	ws "github.com/dukerupert/homehub/internal/websocket"
)

const (
	rateBurst = 60
	rateIdle  = 10 * time.Minute
)

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	familyMemberH  *handler.FamilyMemberHandler
	choreH         *handler.ChoreHandler
	calendarEventH *handler.CalendarEventHandler
	recipeH        *handler.RecipeHandler
	mealH          *handler.MealHandler
	googleH        *handler.GoogleHandler
	settingsH      *handler.SettingsHandler
	weatherH       *handler.WeatherHandler
	rateLimiter    *middleware.RateLimiter
	allowedOrigins []string
	logger         *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	hub := ws.NewHub(logger.With("component", "websocket"))

	familyMemberStore := store.NewFamilyMemberStore(db)
	choreStore := store.NewChoreStore(db)
	completionStore := store.NewCompletionStore(db)
	eventStore := store.NewEventStore(db)
	recipeStore := store.NewRecipeStore(db)
	mealStore := store.NewMealStore(db)
	settingsStore := store.NewSettingsStore(db)
	mappingStore := store.NewMappingStore(db)
	resetStore := store.NewResetStore(db)

	sealer, err := secrets.NewSealer(cfg.SecretKey)
	if errors.Is(err, secrets.ErrNoKey) {
		logger.Warn("no secret_key configured, credentials are stored unencrypted")
		sealer = nil
	} else if err != nil {
		return nil, err
	}
	vault := secrets.NewVault(settingsStore, sealer)

	mappingSvc := mapping.NewService(mappingStore, logger.With("component", "mapping"))

	googleClient := google.NewClient(google.Config{
		ClientID:      cfg.Google.ClientID,
		ClientSecret:  cfg.Google.ClientSecret,
		RedirectURL:   cfg.Google.RedirectURL,
		CalendarID:    cfg.Google.CalendarID,
		RatePerMinute: cfg.Google.RatePerMinute,
		Timeout:       cfg.OutboundTimeout,
		Location:      cfg.Location,
	}, vault, logger)

	ledgerOpts := []ledger.Option{ledger.WithLocation(cfg.Location)}
	if googleClient.Configured() {
		ledgerOpts = append(ledgerOpts, ledger.WithTaskProvider(googleClient))
	}
	pointsLedger := ledger.New(choreStore, completionStore, familyMemberStore, mappingSvc,
		logger.With("component", "ledger"), ledgerOpts...)

	mealEngine := meal.NewEngine(mealStore, recipeStore, logger.With("component", "meal"),
		meal.WithLocation(cfg.Location))

	weatherSvc := weather.NewService(weatherLocator(settingsStore, cfg.Weather), cfg.OutboundTimeout, logger)

	return &Server{
		db:             db,
		hub:            hub,
		familyMemberH:  handler.NewFamilyMemberHandler(familyMemberStore, hub, logger.With("component", "family_member")),
		choreH:         handler.NewChoreHandler(choreStore, familyMemberStore, pointsLedger, hub, logger.With("component", "chore")),
		calendarEventH: handler.NewCalendarEventHandler(eventStore, familyMemberStore, hub, logger.With("component", "calendar")),
		recipeH:        handler.NewRecipeHandler(recipeStore, hub, logger.With("component", "recipe")),
		mealH:          handler.NewMealHandler(mealEngine, recipeStore, hub, logger.With("component", "meal")),
		googleH:        handler.NewGoogleHandler(googleClient, mappingSvc, pointsLedger, familyMemberStore, cfg.Location, hub, logger.With("component", "google")),
		settingsH:      handler.NewSettingsHandler(settingsStore, mappingStore, mappingSvc, vault, resetStore, hub, logger.With("component", "settings")),
		weatherH:       handler.NewWeatherHandler(weatherSvc, logger.With("component", "weather")),
		rateLimiter:    middleware.NewRateLimiter(cfg.RatePerMinute, rateBurst, rateIdle),
		allowedOrigins: cfg.AllowedOrigins,
		logger:         logger,
	}, nil
}

// weatherLocator reads the location from settings, falling back to the
// configured defaults for any key that is unset.
func weatherLocator(settings *store.SettingsStore, fallback config.Weather) weather.Locator {
	return func(ctx context.Context) (weather.Location, error) {
		values, err := settings.GetWeatherSettings(ctx)
		if err != nil {
			return weather.Location{}, err
		}
		loc := weather.Location{
			Latitude:  fallback.Latitude,
			Longitude: fallback.Longitude,
			Units:     fallback.Units,
		}
		if v := values["weather_latitude"]; v != "" {
			loc.Latitude = v
		}
		if v := values["weather_longitude"]; v != "" {
			loc.Longitude = v
		}
		if v := values["weather_units"]; v != "" {
			loc.Units = v
		}
		return loc, nil
	}
}

// Hub returns the live-sync hub so shutdown can close its clients.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.Handler(s.hub, s.allowedOrigins, s.logger.With("component", "websocket")))

	s.registerAPIRoutes(mux)

	limited := middleware.RateLimit(s.rateLimiter, middleware.RealIP)(mux)
	logged := middleware.RequestLogger(s.logger.With("component", "http"))(limited)
	return middleware.Recover(s.logger.With("component", "http"))(logged)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check failed", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write([]byte(`{"status":"` + status + `"}`))
}

func (s *Server) registerAPIRoutes(mux *http.ServeMux) {
	// Settings and family
	mux.HandleFunc("GET /api/settings", s.settingsH.Get)
	mux.HandleFunc("PUT /api/settings", s.settingsH.Update)
	mux.HandleFunc("POST /api/settings/reset", s.settingsH.Reset)
	mux.HandleFunc("GET /api/settings/family", s.familyMemberH.List)
	mux.HandleFunc("POST /api/settings/family", s.familyMemberH.Create)
	mux.HandleFunc("PUT /api/settings/family/sort", s.familyMemberH.UpdateSortOrder)
	mux.HandleFunc("PUT /api/settings/family/{id}", s.familyMemberH.Update)
	mux.HandleFunc("DELETE /api/settings/family/{id}", s.familyMemberH.Delete)

	// Chores and points
	mux.HandleFunc("GET /api/tasks", s.choreH.List)
	mux.HandleFunc("POST /api/tasks", s.choreH.Create)
	mux.HandleFunc("PUT /api/tasks/{id}", s.choreH.Update)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.choreH.Delete)
	mux.HandleFunc("PUT /api/tasks/{id}/toggle", s.choreH.Toggle)
	mux.HandleFunc("GET /api/tasks/analytics/weekly", s.choreH.WeeklyStats)
	mux.HandleFunc("GET /api/tasks/analytics/daily", s.choreH.DailyStats)
	mux.HandleFunc("GET /api/tasks/analytics/history", s.choreH.History)

	// Recipes
	mux.HandleFunc("GET /api/recipes", s.recipeH.List)
	mux.HandleFunc("POST /api/recipes", s.recipeH.Create)
	mux.HandleFunc("GET /api/recipes/{id}", s.recipeH.Get)
	mux.HandleFunc("PUT /api/recipes/{id}", s.recipeH.Update)
	mux.HandleFunc("DELETE /api/recipes/{id}", s.recipeH.Delete)
	mux.HandleFunc("PUT /api/recipes/{id}/favorite", s.recipeH.SetFavorite)

	// Meals
	mux.HandleFunc("GET /api/meals/week", s.mealH.Week)
	mux.HandleFunc("GET /api/meals/today", s.mealH.Today)
	mux.HandleFunc("POST /api/meals", s.mealH.Set)
	mux.HandleFunc("DELETE /api/meals/{date}/{mealType}", s.mealH.Remove)
	mux.HandleFunc("POST /api/meals/{date}/{mealType}/complete", s.mealH.Complete)
	mux.HandleFunc("GET /api/meals/shopping-list", s.mealH.ShoppingList)
	mux.HandleFunc("PUT /api/meals/shopping-list/check", s.mealH.CheckShoppingItem)
	mux.HandleFunc("GET /api/meals/history", s.mealH.History)

	// Local calendar
	mux.HandleFunc("GET /api/calendar/events", s.calendarEventH.List)
	mux.HandleFunc("POST /api/calendar/events", s.calendarEventH.Create)
	mux.HandleFunc("GET /api/calendar/events/{id}", s.calendarEventH.Get)
	mux.HandleFunc("PUT /api/calendar/events/{id}", s.calendarEventH.Update)
	mux.HandleFunc("DELETE /api/calendar/events/{id}", s.calendarEventH.Delete)

	// Google
	mux.HandleFunc("GET /api/google/auth/url", s.googleH.AuthURL)
	mux.HandleFunc("GET /api/google/auth/callback", s.googleH.AuthCallback)
	mux.HandleFunc("DELETE /api/google/auth", s.googleH.Disconnect)
	mux.HandleFunc("GET /api/google/calendar/events", s.googleH.Events)
	mux.HandleFunc("PUT /api/google/calendar/events/{id}/mapping", s.googleH.SetEventMapping)
	mux.HandleFunc("GET /api/google/tasks/lists", s.googleH.TaskLists)
	mux.HandleFunc("PUT /api/google/tasks/lists/{listId}/mapping", s.googleH.SetTaskListMapping)
	mux.HandleFunc("GET /api/google/tasks", s.googleH.Tasks)
	mux.HandleFunc("POST /api/google/tasks/{listId}", s.googleH.CreateTask)
	mux.HandleFunc("PATCH /api/google/tasks/{listId}/{taskId}", s.googleH.UpdateStatus)
	mux.HandleFunc("POST /api/google/tasks/{listId}/{taskId}/move", s.googleH.MoveTask)
	mux.HandleFunc("DELETE /api/google/tasks/{listId}/{taskId}", s.googleH.DeleteTask)

	// Weather
	mux.HandleFunc("GET /api/weather", s.weatherH.Current)
}
