package mapping

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/homehub/internal/database"
	"github.com/dukerupert/homehub/internal/model"
	"github.com/dukerupert/homehub/internal/store"
)

var members = []model.FamilyMember{
	{ID: 1, Name: "Alice", Color: "#FF0000"},
	{ID: 2, Name: "Bob", Color: "#00FF00"},
}

func TestResolveEventOverrideWins(t *testing.T) {
	e := model.ExternalEvent{ID: "e1", Title: "[Alice] Dentist"}

	r := ResolveEvent(e, map[string]string{"e1": "Bob"}, members)

	assert.Equal(t, "Bob", r.Member)
	assert.Equal(t, "#00FF00", r.Color)
	assert.Equal(t, SourceOverride, r.Source)
	assert.Equal(t, "Dentist", r.Title)
}

func TestResolveEventPrefix(t *testing.T) {
	r := ResolveEvent(model.ExternalEvent{ID: "e1", Title: "[Alice]   Swim practice"}, nil, members)

	assert.Equal(t, "Alice", r.Member)
	assert.Equal(t, "#FF0000", r.Color)
	assert.Equal(t, SourcePrefix, r.Source)
	assert.Equal(t, "Swim practice", r.Title)
}

func TestResolveEventDefault(t *testing.T) {
	r := ResolveEvent(model.ExternalEvent{ID: "e1", Title: "Block party"}, map[string]string{"other": "Bob"}, members)

	assert.Equal(t, Family, r.Member)
	assert.Equal(t, DefaultColor, r.Color)
	assert.Equal(t, SourceDefault, r.Source)
	assert.Equal(t, "Block party", r.Title)
}

func TestResolveEventEmptyTitle(t *testing.T) {
	r := ResolveEvent(model.ExternalEvent{ID: "e1"}, nil, members)

	assert.Equal(t, Family, r.Member)
	assert.Equal(t, "", r.Title)
}

func TestResolveEventClearedOverride(t *testing.T) {
	r := ResolveEvent(model.ExternalEvent{ID: "e1", Title: "[Alice] Dentist"}, map[string]string{"e1": ""}, members)

	// Cleared stays cleared; the prefix is not consulted again.
	assert.Equal(t, "", r.Member)
	assert.Equal(t, SourceOverride, r.Source)
	assert.Equal(t, DefaultColor, r.Color)
	assert.Equal(t, "Dentist", r.Title)
}

func TestResolveEventUnknownOverride(t *testing.T) {
	r := ResolveEvent(model.ExternalEvent{ID: "e1", Title: "Trip"}, map[string]string{"e1": "Grandma"}, members)

	assert.Equal(t, "Grandma", r.Member)
	assert.Equal(t, DefaultColor, r.Color)
}

func TestResolveEventColorIsExactName(t *testing.T) {
	r := ResolveEvent(model.ExternalEvent{ID: "e1", Title: "[alice] Piano"}, nil, members)

	assert.Equal(t, "alice", r.Member)
	assert.Equal(t, DefaultColor, r.Color)
}

func TestResolveTaskList(t *testing.T) {
	overrides := map[string]string{"l1": "2", "l2": "", "l3": "Bob"}

	id, ok := ResolveTaskList("l1", overrides)
	require.True(t, ok)
	assert.Equal(t, int64(2), *id)

	for _, list := range []string{"l2", "l3", "missing"} {
		id, ok := ResolveTaskList(list, overrides)
		assert.False(t, ok, list)
		assert.Nil(t, id, list)
	}
}

func TestSuggestTaskListMember(t *testing.T) {
	got := SuggestTaskListMember("Alice's chores", members)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.ID)

	got = SuggestTaskListMember("BOB", members)
	require.NotNil(t, got)
	assert.Equal(t, "Bob", got.Name)

	assert.Nil(t, SuggestTaskListMember("Groceries", members))
	assert.Nil(t, SuggestTaskListMember("", members))
}

func TestServiceRoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewService(store.NewMappingStore(db), slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, svc.SetCalendarEventMapping(ctx, "e1", "Alice"))
	require.NoError(t, svc.SetCalendarEventMapping(ctx, "e1", "Alice"))
	memberID := int64(2)
	require.NoError(t, svc.SetTaskListMapping(ctx, "l1", &memberID))

	events, err := svc.EventOverrides(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"e1": "Alice"}, events)

	id, err := svc.MemberForTaskList(ctx, "l1")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, int64(2), *id)

	require.NoError(t, svc.SetTaskListMapping(ctx, "l1", nil))
	id, err = svc.MemberForTaskList(ctx, "l1")
	require.NoError(t, err)
	assert.Nil(t, id)

	require.NoError(t, svc.ClearCalendarEventMapping(ctx, "e1"))
	events, err = svc.EventOverrides(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
}
