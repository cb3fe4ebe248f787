package store

import (
	"context"
	"errors"
	"testing"

	"github.com/dukerupert/homehub/internal/model"
)

func setupSettingsTestDB(t *testing.T) *SettingsStore {
	t.Helper()
	return NewSettingsStore(openTestDB(t))
}

func TestSettingsSeedData(t *testing.T) {
	ss := setupSettingsTestDB(t)

	settings, err := ss.GetAll(context.Background())
	if err != nil {
		t.Fatalf("get all: %v", err)
	}

	expected := map[string]string{
		"dark_mode":     "false",
		"weather_units": "fahrenheit",
		"week_start":    "monday",
	}
	for key, want := range expected {
		if got := settings[key]; got != want {
			t.Errorf("setting %q = %q, want %q", key, got, want)
		}
	}
}

func TestSettingsGetNotFound(t *testing.T) {
	ss := setupSettingsTestDB(t)

	_, err := ss.Get(context.Background(), "nonexistent_key")
	if !errors.Is(err, ErrSettingNotFound) {
		t.Errorf("err = %v, want ErrSettingNotFound", err)
	}
}

func TestSettingsSetAndDelete(t *testing.T) {
	ctx := context.Background()
	ss := setupSettingsTestDB(t)

	if err := ss.Set(ctx, "dark_mode", "true"); err != nil {
		t.Fatalf("set: %v", err)
	}
	val, err := ss.Get(ctx, "dark_mode")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if val != "true" {
		t.Errorf("dark_mode = %q, want %q", val, "true")
	}

	if err := ss.Delete(ctx, "dark_mode"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := ss.Get(ctx, "dark_mode"); !errors.Is(err, ErrSettingNotFound) {
		t.Errorf("after delete err = %v", err)
	}
}

func TestSettingsSetMany(t *testing.T) {
	ctx := context.Background()
	ss := setupSettingsTestDB(t)

	err := ss.SetMany(ctx, map[string]string{
		"weather_latitude":  "45.52",
		"weather_longitude": "-122.68",
	})
	if err != nil {
		t.Fatalf("set many: %v", err)
	}

	weather, err := ss.GetWeatherSettings(ctx)
	if err != nil {
		t.Fatalf("weather settings: %v", err)
	}
	if weather["weather_latitude"] != "45.52" || weather["weather_longitude"] != "-122.68" {
		t.Errorf("weather = %v", weather)
	}
	if weather["weather_units"] != "fahrenheit" {
		t.Errorf("units = %q", weather["weather_units"])
	}
}

func TestMappingClearedIsDistinctFromAbsent(t *testing.T) {
	ctx := context.Background()
	ms := NewMappingStore(openTestDB(t))

	if _, ok, _ := ms.Get(ctx, model.MappingCalendarEvent, "evt-1"); ok {
		t.Fatal("expected no mapping")
	}

	if err := ms.Set(ctx, model.MappingCalendarEvent, "evt-1", "Alice"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := ms.Set(ctx, model.MappingCalendarEvent, "evt-1", ""); err != nil {
		t.Fatalf("clear: %v", err)
	}

	target, ok, err := ms.Get(ctx, model.MappingCalendarEvent, "evt-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || target != "" {
		t.Errorf("target = %q, ok = %v; want cleared row", target, ok)
	}

	// Same id under another kind is independent.
	if _, ok, _ := ms.Get(ctx, model.MappingTaskList, "evt-1"); ok {
		t.Error("kinds should not collide")
	}

	if err := ms.Delete(ctx, model.MappingCalendarEvent, "evt-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	all, _ := ms.ListAll(ctx)
	if len(all) != 0 {
		t.Errorf("mappings left = %d", len(all))
	}
}

func TestMappingList(t *testing.T) {
	ctx := context.Background()
	ms := NewMappingStore(openTestDB(t))

	ms.Set(ctx, model.MappingTaskList, "a", "1")
	ms.Set(ctx, model.MappingTaskList, "b", "2")
	ms.Set(ctx, model.MappingCalendarEvent, "e", "Bob")

	lists, err := ms.List(ctx, model.MappingTaskList)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(lists) != 2 || lists["a"] != "1" || lists["b"] != "2" {
		t.Errorf("lists = %v", lists)
	}
}
