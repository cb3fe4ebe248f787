// Package ledger keeps family members' point totals in step with task
// completions and derives the weekly and daily analytics from the audit trail.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/homehub/internal/model"
	"github.com/dukerupert/homehub/internal/store"
)

// googleTaskPoints is what every Google task is worth; they carry no value of
// their own.
const googleTaskPoints = 1

var (
	ErrNotFound      = errors.New("task not found")
	ErrInvalidStatus = errors.New("invalid task status")
)

type ChoreToggler interface {
	Toggle(ctx context.Context, id int64, settle func(model.Chore) *store.PointEntry) (*model.Chore, *model.TaskCompletion, error)
}

type CompletionLog interface {
	Record(ctx context.Context, e store.PointEntry) (*model.TaskCompletion, error)
	ListSince(ctx context.Context, since time.Time, memberID *int64, limit int) ([]model.TaskCompletion, error)
}

type MemberLister interface {
	List(ctx context.Context) ([]model.FamilyMember, error)
}

// ListOwners resolves the member a task list is assigned to, if any.
type ListOwners interface {
	MemberForTaskList(ctx context.Context, listID string) (*int64, error)
}

// TaskProvider is the remote task service. Ledger operations call it before
// touching local points, so a failed remote call moves nothing.
type TaskProvider interface {
	GetTask(ctx context.Context, listID, taskID string) (*model.ExternalTask, error)
	SetTaskStatus(ctx context.Context, listID, taskID string, status model.TaskStatus) (*model.ExternalTask, error)
	MoveTask(ctx context.Context, task model.ExternalTask, toList string) (*model.ExternalTask, error)
}

type Ledger struct {
	chores      ChoreToggler
	completions CompletionLog
	members     MemberLister
	owners      ListOwners
	tasks       TaskProvider
	logger      *slog.Logger

	loc *time.Location
	now func() time.Time
}

type Option func(*Ledger)

func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) { l.loc = loc }
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithTaskProvider enables the Google task operations.
func WithTaskProvider(p TaskProvider) Option {
	return func(l *Ledger) { l.tasks = p }
}

func New(chores ChoreToggler, completions CompletionLog, members MemberLister, owners ListOwners, logger *slog.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		chores:      chores,
		completions: completions,
		members:     members,
		owners:      owners,
		logger:      logger.With("component", "ledger"),
		loc:         time.Local,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ErrNoProvider is returned by Google task operations when no provider is set.
var ErrNoProvider = errors.New("no task provider configured")

// ToggleChore flips a chore between pending and completed. The assignee, if
// any, gains the chore's points on completion and loses them on reopen.
func (l *Ledger) ToggleChore(ctx context.Context, id int64) (*model.Chore, *model.TaskCompletion, error) {
	at := l.now()
	chore, completion, err := l.chores.Toggle(ctx, id, func(c model.Chore) *store.PointEntry {
		if c.AssignedTo == nil {
			return nil
		}
		e := &store.PointEntry{
			MemberID:  *c.AssignedTo,
			TaskTitle: c.Title,
			Source:    model.TaskSourceLocal,
			Kind:      model.KindCompleted,
			Points:    c.Points,
			At:        at,
		}
		if !c.Completed {
			e.Kind = model.KindReopened
			e.Points = -c.Points
		}
		return e
	})
	if err != nil {
		return nil, nil, fmt.Errorf("toggle chore %d: %w", id, err)
	}
	if chore == nil {
		return nil, nil, ErrNotFound
	}

	l.logger.Info("chore toggled", "chore_id", id, "completed", chore.Completed, "points_moved", completion != nil)
	return chore, completion, nil
}

// CompleteGoogleTask marks a remote task done and credits the list's member.
func (l *Ledger) CompleteGoogleTask(ctx context.Context, listID, taskID string) (*model.ExternalTask, error) {
	return l.SetGoogleTaskStatus(ctx, listID, taskID, model.TaskCompleted)
}

// ReopenGoogleTask marks a remote task pending and debits the list's member.
func (l *Ledger) ReopenGoogleTask(ctx context.Context, listID, taskID string) (*model.ExternalTask, error) {
	return l.SetGoogleTaskStatus(ctx, listID, taskID, model.TaskNeedsAction)
}

// SetGoogleTaskStatus writes the status remotely, then moves one point for
// the member mapped to the list. Points only move on a real transition; a
// task already in the requested state is returned untouched.
func (l *Ledger) SetGoogleTaskStatus(ctx context.Context, listID, taskID string, status model.TaskStatus) (*model.ExternalTask, error) {
	if status != model.TaskCompleted && status != model.TaskNeedsAction {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if l.tasks == nil {
		return nil, ErrNoProvider
	}

	current, err := l.tasks.GetTask(ctx, listID, taskID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNotFound
	}
	if current.Completed() == (status == model.TaskCompleted) {
		return current, nil
	}

	task, err := l.tasks.SetTaskStatus(ctx, listID, taskID, status)
	if err != nil {
		return nil, err
	}

	points, kind := googleTaskPoints, model.KindCompleted
	if status == model.TaskNeedsAction {
		points, kind = -googleTaskPoints, model.KindReopened
	}
	if err := l.creditList(ctx, listID, task.Title, kind, points); err != nil {
		return task, err
	}
	return task, nil
}

// TransferGoogleTask moves a task to another list. The moved task always
// arrives pending; if it had been completed, the source list's member loses
// the point it earned. The destination member gains nothing until the task
// is completed again.
func (l *Ledger) TransferGoogleTask(ctx context.Context, fromList, taskID, toList string) (*model.ExternalTask, error) {
	if l.tasks == nil {
		return nil, ErrNoProvider
	}

	task, err := l.tasks.GetTask(ctx, fromList, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrNotFound
	}

	moved, err := l.tasks.MoveTask(ctx, *task, toList)
	if err != nil {
		return nil, err
	}

	if task.Completed() {
		if err := l.creditList(ctx, fromList, task.Title, model.KindReopened, -googleTaskPoints); err != nil {
			return moved, err
		}
	}
	l.logger.Info("google task moved", "task", task.Title, "from", fromList, "to", toList, "was_completed", task.Completed())
	return moved, nil
}

func (l *Ledger) creditList(ctx context.Context, listID, title string, kind model.CompletionKind, points int) error {
	memberID, err := l.owners.MemberForTaskList(ctx, listID)
	if err != nil {
		return fmt.Errorf("resolve list owner: %w", err)
	}
	if memberID == nil {
		return nil
	}

	c, err := l.completions.Record(ctx, store.PointEntry{
		MemberID:  *memberID,
		TaskTitle: title,
		Source:    model.TaskSourceGoogle,
		Kind:      kind,
		Points:    points,
		At:        l.now(),
	})
	if err != nil {
		return fmt.Errorf("record google points: %w", err)
	}
	if c == nil {
		l.logger.Warn("task list mapped to missing member", "list_id", listID, "member_id", *memberID)
	}
	return nil
}
