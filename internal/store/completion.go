package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/homehub/internal/model"
)

// PointEntry is one signed point movement for a member. It is only ever
// applied together with its audit row, inside a single transaction.
type PointEntry struct {
	MemberID  int64
	TaskTitle string
	Source    model.TaskSource
	Kind      model.CompletionKind
	Points    int
	At        time.Time
}

type CompletionStore struct {
	db *sql.DB
}

func NewCompletionStore(db *sql.DB) *CompletionStore {
	return &CompletionStore{db: db}
}

const completionCols = `id, member_id, member_name, task_title, task_source, kind, points_earned, completed_at`

func scanCompletion(scanner interface{ Scan(...any) error }) (*model.TaskCompletion, error) {
	var c model.TaskCompletion
	var memberID sql.NullInt64

	err := scanner.Scan(&c.ID, &memberID, &c.MemberName, &c.TaskTitle, &c.TaskSource, &c.Kind, &c.PointsEarned, &c.CompletedAt)
	if err != nil {
		return nil, err
	}
	if memberID.Valid {
		c.MemberID = &memberID.Int64
	}
	return &c, nil
}

// applyPoints moves the member's running total and appends the matching audit
// row. A member that no longer exists yields (nil, nil) and writes nothing.
func applyPoints(ctx context.Context, tx *sql.Tx, e PointEntry) (*model.TaskCompletion, error) {
	var name string
	err := tx.QueryRowContext(ctx,
		`UPDATE family_members SET points = points + ? WHERE id = ? RETURNING name`,
		e.Points, e.MemberID,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update member points: %w", err)
	}

	at := e.At.UTC()
	if e.At.IsZero() {
		at = time.Now().UTC()
	}
	result, err := tx.ExecContext(ctx,
		`INSERT INTO task_completions (member_id, member_name, task_title, task_source, kind, points_earned, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.MemberID, name, e.TaskTitle, e.Source, e.Kind, e.Points, at,
	)
	if err != nil {
		return nil, fmt.Errorf("insert completion: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	memberID := e.MemberID
	return &model.TaskCompletion{
		ID:           id,
		MemberID:     &memberID,
		MemberName:   name,
		TaskTitle:    e.TaskTitle,
		TaskSource:   e.Source,
		Kind:         e.Kind,
		PointsEarned: e.Points,
		CompletedAt:  at,
	}, nil
}

// Record applies a single point entry in its own transaction.
func (s *CompletionStore) Record(ctx context.Context, e PointEntry) (*model.TaskCompletion, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	c, err := applyPoints(ctx, tx, e)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return c, nil
}

// ListSince returns audit rows at or after since, newest first. A nil
// memberID matches every member; limit <= 0 means no limit.
func (s *CompletionStore) ListSince(ctx context.Context, since time.Time, memberID *int64, limit int) ([]model.TaskCompletion, error) {
	query := `SELECT ` + completionCols + ` FROM task_completions WHERE completed_at >= ?`
	args := []any{since.UTC()}
	if memberID != nil {
		query += ` AND member_id = ?`
		args = append(args, *memberID)
	}
	query += ` ORDER BY completed_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	var completions []model.TaskCompletion
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		completions = append(completions, *c)
	}
	return completions, rows.Err()
}

// SumForMember returns the signed total of every audit row for the member.
func (s *CompletionStore) SumForMember(ctx context.Context, memberID int64) (int, error) {
	var sum int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(points_earned), 0) FROM task_completions WHERE member_id = ?`,
		memberID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum points: %w", err)
	}
	return sum, nil
}
