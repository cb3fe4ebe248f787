package google

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/dukerupert/homehub/internal/model"
	"github.com/dukerupert/homehub/internal/store"
)

type memTokens struct {
	mu     sync.Mutex
	values map[string]string
}

func (m *memTokens) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", store.ErrSettingNotFound
	}
	return v, nil
}

func (m *memTokens) Put(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memTokens) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func connectedTokens(t *testing.T) *memTokens {
	t.Helper()
	b, err := json.Marshal(&oauth2.Token{AccessToken: "test-token", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	return &memTokens{values: map[string]string{TokenKey: string(b)}}
}

func newTestClient(t *testing.T, tokens TokenStore, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(Config{
		ClientID:      "id",
		ClientSecret:  "secret",
		RatePerMinute: 6000,
		Endpoint:      srv.URL + "/",
		Location:      time.UTC,
	}, tokens, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestNotConnected(t *testing.T) {
	c := newTestClient(t, &memTokens{values: map[string]string{}}, http.NotFoundHandler())

	_, err := c.ListTaskLists(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.False(t, c.Connected(context.Background()))
}

func TestListTaskListsAndTasks(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		switch {
		case strings.HasSuffix(r.URL.Path, "/users/@me/lists"):
			writeJSON(w, http.StatusOK, map[string]any{
				"items": []map[string]string{{"id": "l1", "title": "Alice's chores"}},
			})
		case strings.HasSuffix(r.URL.Path, "/lists/l1/tasks"):
			writeJSON(w, http.StatusOK, map[string]any{
				"items": []map[string]string{
					{"id": "t1", "title": "Feed cat", "status": "completed"},
					{"id": "t2", "title": "Dishes", "status": "needsAction", "due": "2026-03-05T00:00:00.000Z"},
				},
			})
		default:
			http.NotFound(w, r)
		}
	})
	c := newTestClient(t, connectedTokens(t), mux)

	lists, all, err := c.ListAllTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.TaskList{{ID: "l1", Title: "Alice's chores"}}, lists)
	require.Len(t, all, 2)
	assert.True(t, all[0].Completed())
	assert.Equal(t, "l1", all[1].ListID)
	require.NotNil(t, all[1].Due)
	assert.Equal(t, 5, all[1].Due.Day())
	assert.Equal(t, "Bearer test-token", gotAuth)
}

func TestErrorClassification(t *testing.T) {
	status := http.StatusUnauthorized
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, status, map[string]any{"error": map[string]any{"code": status, "message": "nope"}})
	})
	c := newTestClient(t, connectedTokens(t), handler)

	_, err := c.ListTaskLists(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)

	status = http.StatusInternalServerError
	_, err = c.ListTaskLists(context.Background())
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream), "got %v", err)
	assert.Equal(t, http.StatusInternalServerError, upstream.Status)
}

func TestGetTaskNotFound(t *testing.T) {
	c := newTestClient(t, connectedTokens(t), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{"code": 404, "message": "gone"}})
	}))

	task, err := c.GetTask(context.Background(), "l1", "missing")
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestMoveTaskInsertsThenDeletes(t *testing.T) {
	var calls []string
	var inserted map[string]any
	c := newTestClient(t, connectedTokens(t), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodPost:
			json.NewDecoder(r.Body).Decode(&inserted)
			writeJSON(w, http.StatusOK, map[string]string{"id": "new", "title": "Rake leaves", "status": "needsAction"})
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))

	moved, err := c.MoveTask(context.Background(),
		model.ExternalTask{ID: "t1", ListID: "from", Title: "Rake leaves", Status: model.TaskCompleted}, "to")
	require.NoError(t, err)
	assert.Equal(t, "to", moved.ListID)
	assert.False(t, moved.Completed())
	assert.Equal(t, "needsAction", inserted["status"])

	require.Len(t, calls, 2)
	assert.True(t, strings.HasPrefix(calls[0], "POST ") && strings.HasSuffix(calls[0], "/lists/to/tasks"), calls[0])
	assert.True(t, strings.HasPrefix(calls[1], "DELETE ") && strings.HasSuffix(calls[1], "/lists/from/tasks/t1"), calls[1])
}

func TestListEventsConvertsAllDay(t *testing.T) {
	c := newTestClient(t, connectedTokens(t), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"items": []map[string]any{
				{"id": "e1", "summary": "[Alice] Dentist", "start": map[string]string{"dateTime": "2026-03-04T09:00:00Z"}, "end": map[string]string{"dateTime": "2026-03-04T10:00:00Z"}},
				{"id": "e2", "summary": "Holiday", "start": map[string]string{"date": "2026-03-05"}, "end": map[string]string{"date": "2026-03-06"}},
				{"id": "e3", "summary": "Cancelled", "status": "cancelled"},
			},
		})
	}))

	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	events, err := c.ListEvents(context.Background(), start, start.AddDate(0, 0, 7))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "[Alice] Dentist", events[0].Title)
	assert.False(t, events[0].AllDay)
	assert.True(t, events[1].AllDay)
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), events[1].Start)
}

func TestAuthURL(t *testing.T) {
	c := newTestClient(t, &memTokens{values: map[string]string{}}, http.NotFoundHandler())
	url := c.AuthURL("state-123")
	assert.Contains(t, url, "state=state-123")
	assert.Contains(t, url, "access_type=offline")
	assert.True(t, c.Configured())
}
