// Package google talks to Google Calendar and Google Tasks on behalf of the
// household account. The OAuth token lives sealed in the settings table.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/tasks/v1"

	"github.com/dukerupert/homehub/internal/store"
)

// TokenKey is the settings key holding the serialized OAuth token. Its
// suffix marks it as a credential, so it is sealed and hidden from reads.
const TokenKey = "google_token"

const (
	DefaultRatePerMinute = 60
	DefaultTimeout       = 10 * time.Second
	DefaultCalendarID    = "primary"
)

var ErrNotConnected = errors.New("google account not connected")

// UpstreamError is a failed call to a Google API.
type UpstreamError struct {
	Op     string
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("google %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("google %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// TokenStore persists the token; *secrets.Vault satisfies it.
type TokenStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type Config struct {
	ClientID      string
	ClientSecret  string
	RedirectURL   string
	CalendarID    string
	RatePerMinute int
	Timeout       time.Duration
	Location      *time.Location

	// Endpoint overrides the API base URL. Tests point it at httptest.
	Endpoint string
}

type Client struct {
	oauth      *oauth2.Config
	tokens     TokenStore
	limiter    *rate.Limiter
	timeout    time.Duration
	calendarID string
	loc        *time.Location
	endpoint   string
	logger     *slog.Logger
}

func NewClient(cfg Config, tokens TokenStore, logger *slog.Logger) *Client {
	perMinute := cfg.RatePerMinute
	if perMinute <= 0 {
		perMinute = DefaultRatePerMinute
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     googleoauth.Endpoint,
			Scopes:       []string{calendar.CalendarReadonlyScope, tasks.TasksScope},
		},
		tokens:     tokens,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		timeout:    timeout,
		calendarID: calendarID,
		loc:        loc,
		endpoint:   cfg.Endpoint,
		logger:     logger.With("component", "google"),
	}
}

// Configured reports whether OAuth client credentials were supplied.
func (c *Client) Configured() bool {
	return c.oauth.ClientID != "" && c.oauth.ClientSecret != ""
}

func (c *Client) AuthURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token and stores it.
func (c *Client) Exchange(ctx context.Context, code string) error {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: c.timeout})
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return c.classify("exchange code", err)
	}
	if err := c.saveToken(ctx, tok); err != nil {
		return err
	}
	c.logger.Info("google account connected")
	return nil
}

func (c *Client) Disconnect(ctx context.Context) error {
	return c.tokens.Delete(ctx, TokenKey)
}

func (c *Client) Connected(ctx context.Context) bool {
	_, err := c.loadToken(ctx)
	return err == nil
}

func (c *Client) loadToken(ctx context.Context) (*oauth2.Token, error) {
	raw, err := c.tokens.Get(ctx, TokenKey)
	if errors.Is(err, store.ErrSettingNotFound) {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, ErrNotConnected
	}
	return &tok, nil
}

func (c *Client) saveToken(ctx context.Context, tok *oauth2.Token) error {
	b, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := c.tokens.Put(ctx, TokenKey, string(b)); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// savingSource writes refreshed tokens back to the store.
type savingSource struct {
	mu     sync.Mutex
	base   oauth2.TokenSource
	last   string
	save   func(*oauth2.Token) error
	logger *slog.Logger
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := s.save(tok); err != nil {
			s.logger.Error("failed to persist refreshed token", "error", err)
		}
	}
	return tok, nil
}

// httpClient returns a client authorized with the stored token.
func (c *Client) httpClient(ctx context.Context) (*http.Client, error) {
	tok, err := c.loadToken(ctx)
	if err != nil {
		return nil, err
	}

	refreshCtx := context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, &http.Client{Timeout: c.timeout})
	src := &savingSource{
		base: c.oauth.TokenSource(refreshCtx, tok),
		last: tok.AccessToken,
		save: func(t *oauth2.Token) error {
			return c.saveToken(context.WithoutCancel(ctx), t)
		},
		logger: c.logger,
	}

	return &http.Client{
		Timeout:   c.timeout,
		Transport: &oauth2.Transport{Source: src, Base: http.DefaultTransport},
	}, nil
}

func (c *Client) options(ctx context.Context) ([]option.ClientOption, error) {
	hc, err := c.httpClient(ctx)
	if err != nil {
		return nil, err
	}
	opts := []option.ClientOption{option.WithHTTPClient(hc)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	return opts, nil
}

func (c *Client) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

// classify maps transport and API failures onto ErrNotConnected or an
// UpstreamError.
func (c *Client) classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotConnected) {
		return err
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		c.logger.Warn("google token rejected", "op", op, "error", err)
		return fmt.Errorf("%s: %w", op, ErrNotConnected)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusUnauthorized {
			return fmt.Errorf("%s: %w", op, ErrNotConnected)
		}
		return &UpstreamError{Op: op, Status: apiErr.Code, Err: err}
	}
	return &UpstreamError{Op: op, Err: err}
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
