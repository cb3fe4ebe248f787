package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/homehub/internal/mapping"
	"github.com/dukerupert/homehub/internal/model"
	"github.com/dukerupert/homehub/internal/secrets"
	"github.com/dukerupert/homehub/internal/store"
	"github.com/dukerupert/homehub/internal/websocket"
)

// Settings keys with these prefixes address the mapping table rather than
// the settings table.
const (
	eventMappingPrefix    = "calendarEventMapping_"
	taskListMappingPrefix = "taskListMapping_"
)

type SettingsHandler struct {
	settingsStore *store.SettingsStore
	mappingStore  *store.MappingStore
	mappings      *mapping.Service
	vault         *secrets.Vault
	resetStore    *store.ResetStore
	notifier
	logger *slog.Logger
}

func NewSettingsHandler(ss *store.SettingsStore, mst *store.MappingStore, ms *mapping.Service, v *secrets.Vault, rs *store.ResetStore, hub Broadcaster, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{
		settingsStore: ss,
		mappingStore:  mst,
		mappings:      ms,
		vault:         v,
		resetStore:    rs,
		notifier:      notifier{hub},
		logger:        logger,
	}
}

// Get returns every non-credential setting plus the mapping rows rendered
// under their synthetic keys.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	out, err := h.render(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *SettingsHandler) render(ctx context.Context) (map[string]string, error) {
	all, err := h.settingsStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(all))
	for k, v := range all {
		if secrets.IsCredentialKey(k) {
			continue
		}
		out[k] = v
	}

	rows, err := h.mappingStore.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range rows {
		switch m.Kind {
		case model.MappingCalendarEvent:
			out[eventMappingPrefix+m.ExternalID] = m.Target
		case model.MappingTaskList:
			out[taskListMappingPrefix+m.ExternalID] = m.Target
		}
	}
	return out, nil
}

type settingsUpdate struct {
	plain        map[string]string
	removed      []string
	credentials  map[string]*string
	eventMaps    map[string]*string
	taskListMaps map[string]*string
}

// classify sorts a request body by destination and validates values. A null
// value removes the key.
func classify(req map[string]any) (*settingsUpdate, error) {
	u := &settingsUpdate{
		plain:        map[string]string{},
		credentials:  map[string]*string{},
		eventMaps:    map[string]*string{},
		taskListMaps: map[string]*string{},
	}

	for key, raw := range req {
		if strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("setting key must not be empty")
		}

		var value *string
		switch v := raw.(type) {
		case nil:
		case string:
			value = &v
		case bool, float64:
			s := fmt.Sprint(v)
			value = &s
		default:
			return nil, fmt.Errorf("%s must be a string, number or boolean", key)
		}

		switch {
		case strings.HasPrefix(key, eventMappingPrefix):
			id := strings.TrimPrefix(key, eventMappingPrefix)
			if id == "" {
				return nil, fmt.Errorf("%s needs an event id", key)
			}
			u.eventMaps[id] = value
		case strings.HasPrefix(key, taskListMappingPrefix):
			id := strings.TrimPrefix(key, taskListMappingPrefix)
			if id == "" {
				return nil, fmt.Errorf("%s needs a list id", key)
			}
			if value != nil && *value != "" {
				if _, err := strconv.ParseInt(*value, 10, 64); err != nil {
					return nil, fmt.Errorf("%s must be a member id", key)
				}
			}
			u.taskListMaps[id] = value
		case secrets.IsCredentialKey(key):
			u.credentials[key] = value
		case value == nil:
			u.removed = append(u.removed, key)
		default:
			if err := validateSetting(key, *value); err != nil {
				return nil, err
			}
			u.plain[key] = *value
		}
	}
	return u, nil
}

func validateSetting(key, value string) error {
	switch key {
	case "dark_mode":
		if value != "true" && value != "false" {
			return fmt.Errorf("dark_mode must be \"true\" or \"false\"")
		}
	case "week_start":
		if value != "monday" && value != "sunday" {
			return fmt.Errorf("week_start must be monday or sunday")
		}
	case "weather_units":
		if value != "fahrenheit" && value != "celsius" {
			return fmt.Errorf("weather_units must be fahrenheit or celsius")
		}
	case "weather_latitude", "weather_longitude":
		if value == "" {
			return nil
		}
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("%s must be a number", key)
		}
	case "idle_timeout_minutes":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > 60 {
			return fmt.Errorf("idle_timeout_minutes must be 1-60")
		}
	}
	return nil
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req map[string]any
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := classify(req)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.apply(r.Context(), u); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntitySettings, websocket.ActionUpdated, "", nil))
	if len(u.eventMaps)+len(u.taskListMaps) > 0 {
		h.broadcast(websocket.NewMessage(websocket.EntityMapping, websocket.ActionUpdated, "", nil))
	}

	out, err := h.render(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *SettingsHandler) apply(ctx context.Context, u *settingsUpdate) error {
	if len(u.plain) > 0 {
		if err := h.settingsStore.SetMany(ctx, u.plain); err != nil {
			return err
		}
	}
	for _, key := range u.removed {
		if err := h.settingsStore.Delete(ctx, key); err != nil {
			return err
		}
	}

	for key, value := range u.credentials {
		var err error
		if value == nil || *value == "" {
			err = h.vault.Delete(ctx, key)
		} else {
			err = h.vault.Put(ctx, key, *value)
		}
		if err != nil {
			return err
		}
		h.logger.Info("credential updated", "key", key, "cleared", value == nil || *value == "")
	}

	for id, value := range u.eventMaps {
		var err error
		if value == nil {
			err = h.mappings.ClearCalendarEventMapping(ctx, id)
		} else {
			err = h.mappings.SetCalendarEventMapping(ctx, id, strings.TrimSpace(*value))
		}
		if err != nil {
			return err
		}
	}

	for id, value := range u.taskListMaps {
		var err error
		switch {
		case value == nil:
			err = h.mappings.ClearTaskListMapping(ctx, id)
		case *value == "":
			err = h.mappings.SetTaskListMapping(ctx, id, nil)
		default:
			memberID, _ := strconv.ParseInt(*value, 10, 64)
			err = h.mappings.SetTaskListMapping(ctx, id, &memberID)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Reset wipes all household content. Settings survive.
func (h *SettingsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.resetStore.Reset(r.Context()); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Warn("household data reset")
	h.broadcast(websocket.NewMessage(websocket.EntityEverything, websocket.ActionReset, "", nil))
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
