package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/homehub/internal/database"
	"github.com/dukerupert/homehub/internal/mapping"
	"github.com/dukerupert/homehub/internal/model"
	"github.com/dukerupert/homehub/internal/store"
)

// 2026-03-04 is a Wednesday.
var fixedNow = time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC)

type fakeTasks struct {
	tasks map[string]*model.ExternalTask // keyed by list/id
	fail  error
}

func newFakeTasks() *fakeTasks {
	return &fakeTasks{tasks: map[string]*model.ExternalTask{}}
}

func (f *fakeTasks) add(t model.ExternalTask) {
	f.tasks[t.ListID+"/"+t.ID] = &t
}

func (f *fakeTasks) GetTask(_ context.Context, listID, taskID string) (*model.ExternalTask, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	t, ok := f.tasks[listID+"/"+taskID]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTasks) SetTaskStatus(_ context.Context, listID, taskID string, status model.TaskStatus) (*model.ExternalTask, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	t, ok := f.tasks[listID+"/"+taskID]
	if !ok {
		return nil, errors.New("remote: not found")
	}
	t.Status = status
	cp := *t
	return &cp, nil
}

func (f *fakeTasks) MoveTask(_ context.Context, task model.ExternalTask, toList string) (*model.ExternalTask, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	delete(f.tasks, task.ListID+"/"+task.ID)
	task.ID = task.ID + "-moved"
	task.ListID = toList
	task.Status = model.TaskNeedsAction
	f.add(task)
	return &task, nil
}

type fixture struct {
	ledger      *Ledger
	members     *store.FamilyMemberStore
	chores      *store.ChoreStore
	completions *store.CompletionStore
	mappings    *mapping.Service
	tasks       *fakeTasks
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := fixture{
		members:     store.NewFamilyMemberStore(db),
		chores:      store.NewChoreStore(db),
		completions: store.NewCompletionStore(db),
		mappings:    mapping.NewService(store.NewMappingStore(db), logger),
		tasks:       newFakeTasks(),
	}
	f.ledger = New(f.chores, f.completions, f.members, f.mappings, logger,
		WithLocation(time.UTC),
		WithClock(func() time.Time { return fixedNow }),
		WithTaskProvider(f.tasks),
	)
	return f
}

func (f fixture) member(t *testing.T, name string) *model.FamilyMember {
	t.Helper()
	m, err := f.members.Create(context.Background(), name, "#123456", "🙂", 0)
	require.NoError(t, err)
	return m
}

// assertConserved checks that a member's running total equals the sum of
// their audit rows.
func (f fixture) assertConserved(t *testing.T, id int64) int {
	t.Helper()
	ctx := context.Background()
	m, err := f.members.GetByID(ctx, id)
	require.NoError(t, err)
	sum, err := f.completions.SumForMember(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, m.Points, sum, "running total and audit trail diverged")
	return m.Points
}

func TestToggleChoreCreditsAndDebits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.member(t, "Alice")
	chore, err := f.chores.Create(ctx, "Vacuum", 3, &alice.ID, "")
	require.NoError(t, err)

	c, completion, err := f.ledger.ToggleChore(ctx, chore.ID)
	require.NoError(t, err)
	assert.True(t, c.Completed)
	require.NotNil(t, completion)
	assert.Equal(t, 3, completion.PointsEarned)
	assert.Equal(t, model.KindCompleted, completion.Kind)
	assert.Equal(t, 3, f.assertConserved(t, alice.ID))

	c, completion, err = f.ledger.ToggleChore(ctx, chore.ID)
	require.NoError(t, err)
	assert.False(t, c.Completed)
	require.NotNil(t, completion)
	assert.Equal(t, -3, completion.PointsEarned)
	assert.Equal(t, model.KindReopened, completion.Kind)
	assert.Equal(t, 0, f.assertConserved(t, alice.ID))
}

func TestToggleChoreUnassigned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	chore, err := f.chores.Create(ctx, "Mop", 2, nil, "")
	require.NoError(t, err)

	c, completion, err := f.ledger.ToggleChore(ctx, chore.ID)
	require.NoError(t, err)
	assert.True(t, c.Completed)
	assert.Nil(t, completion)

	rows, err := f.ledger.History(ctx, 7, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestToggleChoreNotFound(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.ledger.ToggleChore(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGoogleTaskCompleteAndReopen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bob := f.member(t, "Bob")
	require.NoError(t, f.mappings.SetTaskListMapping(ctx, "list-b", &bob.ID))
	f.tasks.add(model.ExternalTask{ID: "t1", ListID: "list-b", Title: "Feed cat", Status: model.TaskNeedsAction})

	task, err := f.ledger.CompleteGoogleTask(ctx, "list-b", "t1")
	require.NoError(t, err)
	assert.True(t, task.Completed())
	assert.Equal(t, 1, f.assertConserved(t, bob.ID))

	// Completing an already completed task moves nothing.
	_, err = f.ledger.CompleteGoogleTask(ctx, "list-b", "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, f.assertConserved(t, bob.ID))

	_, err = f.ledger.ReopenGoogleTask(ctx, "list-b", "t1")
	require.NoError(t, err)
	assert.Equal(t, 0, f.assertConserved(t, bob.ID))

	rows, err := f.ledger.History(ctx, 1, &bob.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, model.TaskSourceGoogle, rows[0].TaskSource)
}

func TestReopenPendingGoogleTaskMovesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bob := f.member(t, "Bob")
	require.NoError(t, f.mappings.SetTaskListMapping(ctx, "list-b", &bob.ID))
	f.tasks.add(model.ExternalTask{ID: "t1", ListID: "list-b", Title: "Feed cat", Status: model.TaskNeedsAction})

	for i := 0; i < 3; i++ {
		task, err := f.ledger.ReopenGoogleTask(ctx, "list-b", "t1")
		require.NoError(t, err)
		assert.False(t, task.Completed())
	}
	assert.Equal(t, 0, f.assertConserved(t, bob.ID))

	rows, err := f.ledger.History(ctx, 7, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSetStatusMissingGoogleTask(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.CompleteGoogleTask(context.Background(), "list-b", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGoogleTaskUnmappedListMovesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.tasks.add(model.ExternalTask{ID: "t1", ListID: "misc", Title: "Call plumber"})

	_, err := f.ledger.CompleteGoogleTask(ctx, "misc", "t1")
	require.NoError(t, err)

	rows, err := f.ledger.History(ctx, 7, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestGoogleTaskRemoteFailureMovesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bob := f.member(t, "Bob")
	require.NoError(t, f.mappings.SetTaskListMapping(ctx, "list-b", &bob.ID))
	f.tasks.add(model.ExternalTask{ID: "t1", ListID: "list-b", Title: "Feed cat"})
	f.tasks.fail = errors.New("upstream down")

	_, err := f.ledger.CompleteGoogleTask(ctx, "list-b", "t1")
	require.Error(t, err)
	assert.Equal(t, 0, f.assertConserved(t, bob.ID))
}

func TestSetGoogleTaskStatusInvalid(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.SetGoogleTaskStatus(context.Background(), "l", "t", model.TaskStatus("done"))
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestTransferCompletedTaskDebitsSource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.member(t, "Alice")
	bob := f.member(t, "Bob")
	require.NoError(t, f.mappings.SetTaskListMapping(ctx, "list-a", &alice.ID))
	require.NoError(t, f.mappings.SetTaskListMapping(ctx, "list-b", &bob.ID))
	f.tasks.add(model.ExternalTask{ID: "t1", ListID: "list-a", Title: "Rake leaves", Status: model.TaskNeedsAction})

	_, err := f.ledger.CompleteGoogleTask(ctx, "list-a", "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, f.assertConserved(t, alice.ID))

	moved, err := f.ledger.TransferGoogleTask(ctx, "list-a", "t1", "list-b")
	require.NoError(t, err)
	assert.Equal(t, "list-b", moved.ListID)
	assert.False(t, moved.Completed())

	assert.Equal(t, 0, f.assertConserved(t, alice.ID))
	assert.Equal(t, 0, f.assertConserved(t, bob.ID))
}

func TestTransferPendingTaskMovesNoPoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.member(t, "Alice")
	require.NoError(t, f.mappings.SetTaskListMapping(ctx, "list-a", &alice.ID))
	f.tasks.add(model.ExternalTask{ID: "t1", ListID: "list-a", Title: "Rake leaves", Status: model.TaskNeedsAction})

	_, err := f.ledger.TransferGoogleTask(ctx, "list-a", "t1", "list-b")
	require.NoError(t, err)

	rows, err := f.ledger.History(ctx, 7, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestTransferMissingTask(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.TransferGoogleTask(context.Background(), "list-a", "nope", "list-b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGoogleOpsWithoutProvider(t *testing.T) {
	f := newFixture(t)
	l := New(f.chores, f.completions, f.members, f.mappings, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := l.CompleteGoogleTask(context.Background(), "l", "t")
	assert.ErrorIs(t, err, ErrNoProvider)
}
