// Package config loads homehub settings from the environment, an optional
// .env file and an optional homehub.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "HOMEHUB"

	keyPort            = "port"
	keyDBPath          = "db_path"
	keyLogLevel        = "log_level"
	keyLogFormat       = "log_format"
	keySecretKey       = "secret_key"
	keyTimezone        = "timezone"
	keyOutboundTimeout = "outbound_timeout"
	keyAllowedOrigins  = "allowed_origins"
	keyRatePerMinute   = "rate_per_minute"

	keyGoogleClientID     = "google.client_id"
	keyGoogleClientSecret = "google.client_secret"
	keyGoogleRedirectURL  = "google.redirect_url"
	keyGoogleCalendarID   = "google.calendar_id"
	keyGoogleRate         = "google.rate_per_minute"

	keyWeatherLatitude  = "weather.latitude"
	keyWeatherLongitude = "weather.longitude"
	keyWeatherUnits     = "weather.units"
)

type Google struct {
	ClientID      string
	ClientSecret  string
	RedirectURL   string
	CalendarID    string
	RatePerMinute int
}

type Weather struct {
	Latitude  string
	Longitude string
	Units     string
}

type Config struct {
	Port            string
	DBPath          string
	LogLevel        string
	LogFormat       string
	SecretKey       string
	Timezone        string
	OutboundTimeout time.Duration
	AllowedOrigins  []string
	RatePerMinute   int

	Google  Google
	Weather Weather

	// Location is Timezone resolved; local day boundaries use it.
	Location *time.Location
}

// Options controls where Load looks.
type Options struct {
	// EnvFile is loaded into the process environment when present.
	// Existing variables win.
	EnvFile string
	// ConfigFile overrides the homehub.yaml search.
	ConfigFile string
	// ConfigDirs are searched for homehub.yaml when ConfigFile is empty.
	ConfigDirs []string
}

func DefaultOptions() Options {
	return Options{EnvFile: ".env", ConfigDirs: []string{"."}}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyPort, "8080")
	v.SetDefault(keyDBPath, "homehub.db")
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFormat, "text")
	v.SetDefault(keySecretKey, "")
	v.SetDefault(keyTimezone, "Local")
	v.SetDefault(keyOutboundTimeout, 10*time.Second)
	v.SetDefault(keyAllowedOrigins, []string{})
	v.SetDefault(keyRatePerMinute, 300)
	v.SetDefault(keyGoogleClientID, "")
	v.SetDefault(keyGoogleClientSecret, "")
	v.SetDefault(keyGoogleRedirectURL, "")
	v.SetDefault(keyGoogleCalendarID, "primary")
	v.SetDefault(keyGoogleRate, 60)
	v.SetDefault(keyWeatherLatitude, "")
	v.SetDefault(keyWeatherLongitude, "")
	v.SetDefault(keyWeatherUnits, "fahrenheit")
}

// Load resolves configuration. Precedence, highest first: HOMEHUB_* environment
// variables (including those from the .env file), homehub.yaml, defaults.
// A missing .env or homehub.yaml is not an error.
func Load(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("homehub")
		v.SetConfigType("yaml")
		for _, dir := range opts.ConfigDirs {
			v.AddConfigPath(dir)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Port:            v.GetString(keyPort),
		DBPath:          v.GetString(keyDBPath),
		LogLevel:        v.GetString(keyLogLevel),
		LogFormat:       v.GetString(keyLogFormat),
		SecretKey:       v.GetString(keySecretKey),
		Timezone:        v.GetString(keyTimezone),
		OutboundTimeout: v.GetDuration(keyOutboundTimeout),
		AllowedOrigins:  splitList(v.GetStringSlice(keyAllowedOrigins)),
		RatePerMinute:   v.GetInt(keyRatePerMinute),
		Google: Google{
			ClientID:      v.GetString(keyGoogleClientID),
			ClientSecret:  v.GetString(keyGoogleClientSecret),
			RedirectURL:   v.GetString(keyGoogleRedirectURL),
			CalendarID:    v.GetString(keyGoogleCalendarID),
			RatePerMinute: v.GetInt(keyGoogleRate),
		},
		Weather: Weather{
			Latitude:  v.GetString(keyWeatherLatitude),
			Longitude: v.GetString(keyWeatherLongitude),
			Units:     v.GetString(keyWeatherUnits),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	c.Location = loc

	if c.OutboundTimeout <= 0 {
		return fmt.Errorf("outbound_timeout must be positive, got %s", c.OutboundTimeout)
	}
	if c.RatePerMinute <= 0 {
		return fmt.Errorf("rate_per_minute must be positive, got %d", c.RatePerMinute)
	}
	return nil
}

// GoogleConfigured reports whether OAuth client credentials are present.
func (c *Config) GoogleConfigured() bool {
	return c.Google.ClientID != "" && c.Google.ClientSecret != ""
}

// splitList accepts both YAML lists and comma-separated env values.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
