package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrSettingNotFound is returned by Get for keys that were never written.
var ErrSettingNotFound = errors.New("setting not found")

var weatherKeys = []string{
	"weather_latitude",
	"weather_longitude",
	"weather_units",
}

var displayKeys = []string{
	"dark_mode",
	"week_start",
	"idle_timeout_minutes",
}

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("setting %q: %w", key, ErrSettingNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *SettingsStore) GetAll(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("get all settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

const upsertSetting = `INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

func (s *SettingsStore) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, upsertSetting, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// SetMany writes all pairs in one transaction.
func (s *SettingsStore) SetMany(ctx context.Context, values map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for key, value := range values {
		if _, err := tx.ExecContext(ctx, upsertSetting, key, value, now); err != nil {
			return fmt.Errorf("set setting %q: %w", key, err)
		}
	}
	return tx.Commit()
}

func (s *SettingsStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete setting %q: %w", key, err)
	}
	return nil
}

func (s *SettingsStore) getGroup(ctx context.Context, group string, keys []string) (map[string]string, error) {
	settings := make(map[string]string)
	for _, key := range keys {
		var value string
		err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get %s setting %q: %w", group, key, err)
		}
		settings[key] = value
	}
	return settings, nil
}

func (s *SettingsStore) GetWeatherSettings(ctx context.Context) (map[string]string, error) {
	return s.getGroup(ctx, "weather", weatherKeys)
}

func (s *SettingsStore) GetDisplaySettings(ctx context.Context) (map[string]string, error) {
	return s.getGroup(ctx, "display", displayKeys)
}
