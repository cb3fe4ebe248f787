// Package weather fetches current conditions from open-meteo for the
// household's configured location.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const (
	cacheTTL       = 30 * time.Minute
	defaultBaseURL = "https://api.open-meteo.com/v1/forecast"
)

var (
	ErrNotConfigured = errors.New("weather location not configured")
	// ErrUpstream wraps every failure talking to the forecast API.
	ErrUpstream = errors.New("weather provider unavailable")
)

// Location is where and in which unit to report weather. Units is
// "fahrenheit" or "celsius".
type Location struct {
	Latitude  string
	Longitude string
	Units     string
}

func (l Location) Configured() bool {
	return l.Latitude != "" && l.Longitude != ""
}

func (l Location) key() string {
	return l.Latitude + "," + l.Longitude + "," + l.Units
}

// Locator supplies the current location, usually from settings, so a change
// in settings takes effect without a restart.
type Locator func(ctx context.Context) (Location, error)

type Conditions struct {
	Temperature float64   `json:"temperature"`
	Code        int       `json:"code"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Unit        string    `json:"unit"`
	FetchedAt   time.Time `json:"fetched_at"`
	Stale       bool      `json:"stale"`
}

type Service struct {
	locate  Locator
	client  *http.Client
	baseURL string
	logger  *slog.Logger

	mu        sync.Mutex
	cacheKey  string
	cached    *Conditions
	lastFetch time.Time
}

func NewService(locate Locator, timeout time.Duration, logger *slog.Logger) *Service {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		locate:  locate,
		client:  &http.Client{Timeout: timeout},
		baseURL: defaultBaseURL,
		logger:  logger.With("component", "weather"),
	}
}

// Current returns cached conditions while fresh. When a refresh fails and
// older data for the same location exists, that data is returned marked
// stale; otherwise the fetch error is returned.
func (s *Service) Current(ctx context.Context) (*Conditions, error) {
	loc, err := s.locate(ctx)
	if err != nil {
		return nil, fmt.Errorf("load weather location: %w", err)
	}
	if !loc.Configured() {
		return nil, ErrNotConfigured
	}
	if loc.Units == "" {
		loc.Units = "fahrenheit"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && s.cacheKey == loc.key() && time.Since(s.lastFetch) < cacheTTL {
		c := *s.cached
		return &c, nil
	}

	data, err := s.fetch(ctx, loc)
	if err != nil {
		if s.cached != nil && s.cacheKey == loc.key() {
			s.logger.Warn("weather refresh failed, serving stale data", "error", err)
			c := *s.cached
			c.Stale = true
			return &c, nil
		}
		return nil, err
	}

	s.cached = data
	s.cacheKey = loc.key()
	s.lastFetch = time.Now()
	c := *data
	return &c, nil
}

type apiResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		WeatherCode int     `json:"weather_code"`
	} `json:"current"`
	Daily struct {
		TempMax []float64 `json:"temperature_2m_max"`
		TempMin []float64 `json:"temperature_2m_min"`
	} `json:"daily"`
}

func (s *Service) fetch(ctx context.Context, loc Location) (*Conditions, error) {
	q := url.Values{}
	q.Set("latitude", loc.Latitude)
	q.Set("longitude", loc.Longitude)
	q.Set("current", "temperature_2m,weather_code")
	q.Set("daily", "temperature_2m_max,temperature_2m_min")
	q.Set("timezone", "auto")
	q.Set("forecast_days", "1")
	q.Set("temperature_unit", loc.Units)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build weather request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrUpstream, err)
	}

	desc, icon := Describe(body.Current.WeatherCode)
	c := &Conditions{
		Temperature: body.Current.Temperature,
		Code:        body.Current.WeatherCode,
		Description: desc,
		Icon:        icon,
		Unit:        "F",
		FetchedAt:   time.Now().UTC(),
	}
	if loc.Units == "celsius" {
		c.Unit = "C"
	}
	if len(body.Daily.TempMax) > 0 {
		c.High = body.Daily.TempMax[0]
	}
	if len(body.Daily.TempMin) > 0 {
		c.Low = body.Daily.TempMin[0]
	}
	return c, nil
}

// Describe maps a WMO weather code to a description and icon.
func Describe(code int) (string, string) {
	switch code {
	case 0:
		return "Clear sky", "☀️"
	case 1:
		return "Mainly clear", "🌤️"
	case 2:
		return "Partly cloudy", "⛅"
	case 3:
		return "Overcast", "☁️"
	case 45, 48:
		return "Foggy", "🌫️"
	case 51, 53:
		return "Drizzle", "🌦️"
	case 55, 56, 57:
		return "Heavy drizzle", "🌧️"
	case 61, 80:
		return "Light rain", "🌦️"
	case 63, 65, 66, 67, 81:
		return "Rain", "🌧️"
	case 82:
		return "Violent showers", "⛈️"
	case 71, 73, 85:
		return "Snow", "🌨️"
	case 75, 77, 86:
		return "Heavy snow", "❄️"
	case 95, 96, 99:
		return "Thunderstorm", "⛈️"
	default:
		return "Unknown", "🌡️"
	}
}
