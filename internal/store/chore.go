package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/homehub/internal/model"
)

type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var c model.Chore
	var assignedTo sql.NullInt64
	var completed int

	err := scanner.Scan(
		&c.ID, &c.Title, &c.Points, &assignedTo, &completed,
		&c.Recurring, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Completed = completed != 0
	if assignedTo.Valid {
		c.AssignedTo = &assignedTo.Int64
	}
	return &c, nil
}

const choreCols = `id, title, points, assigned_to, completed, recurring, created_at, updated_at`

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func (s *ChoreStore) Create(ctx context.Context, title string, points int, assignedTo *int64, recurring string) (*model.Chore, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO chores (title, points, assigned_to, recurring) VALUES (?, ?, ?, ?)`,
		title, points, nullID(assignedTo), recurring,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *ChoreStore) GetByID(ctx context.Context, id int64) (*model.Chore, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

// List returns every chore joined with its assignee, open chores first.
func (s *ChoreStore) List(ctx context.Context) ([]model.ChoreWithAssignee, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.title, c.points, c.assigned_to, c.completed, c.recurring, c.created_at, c.updated_at,
		        COALESCE(m.name, ''), COALESCE(m.color, '')
		 FROM chores c
		 LEFT JOIN family_members m ON m.id = c.assigned_to
		 ORDER BY c.completed ASC, c.title ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()

	var chores []model.ChoreWithAssignee
	for rows.Next() {
		var c model.ChoreWithAssignee
		var assignedTo sql.NullInt64
		var completed int
		if err := rows.Scan(
			&c.ID, &c.Title, &c.Points, &assignedTo, &completed, &c.Recurring, &c.CreatedAt, &c.UpdatedAt,
			&c.MemberName, &c.MemberColor,
		); err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		c.Completed = completed != 0
		if assignedTo.Valid {
			c.AssignedTo = &assignedTo.Int64
		}
		chores = append(chores, c)
	}
	return chores, rows.Err()
}

func (s *ChoreStore) ListByAssignee(ctx context.Context, memberID int64) ([]model.Chore, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+choreCols+` FROM chores WHERE assigned_to = ? ORDER BY title ASC`,
		memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chores by assignee: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

// Update edits a chore's definition. Completion state is only ever changed
// through Toggle.
func (s *ChoreStore) Update(ctx context.Context, id int64, title string, points int, assignedTo *int64, recurring string) (*model.Chore, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE chores SET title = ?, points = ?, assigned_to = ?, recurring = ?, updated_at = ? WHERE id = ?`,
		title, points, nullID(assignedTo), recurring, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update chore: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *ChoreStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chores WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chore: %w", err)
	}
	return nil
}

// Toggle flips a chore's completion flag and, in the same transaction,
// applies the point entry settle derives from the chore's new state. settle
// may return nil when no points move. An unknown id yields (nil, nil, nil).
func (s *ChoreStore) Toggle(ctx context.Context, id int64, settle func(model.Chore) *PointEntry) (*model.Chore, *model.TaskCompletion, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Writing first takes SQLite's write lock before anything is read.
	row := tx.QueryRowContext(ctx,
		`UPDATE chores SET completed = 1 - completed, updated_at = ? WHERE id = ? RETURNING `+choreCols,
		time.Now().UTC(), id,
	)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("toggle chore: %w", err)
	}

	var completion *model.TaskCompletion
	if entry := settle(*c); entry != nil {
		completion, err = applyPoints(ctx, tx, *entry)
		if err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}
	return c, completion, nil
}
