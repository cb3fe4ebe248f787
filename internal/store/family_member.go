package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/dukerupert/homehub/internal/model"
)

type FamilyMemberStore struct {
	db *sql.DB
}

func NewFamilyMemberStore(db *sql.DB) *FamilyMemberStore {
	return &FamilyMemberStore{db: db}
}

const memberCols = `id, name, color, avatar_emoji, points, sort_order, created_at, updated_at`

func scanMember(scanner interface{ Scan(...any) error }) (*model.FamilyMember, error) {
	var m model.FamilyMember
	err := scanner.Scan(&m.ID, &m.Name, &m.Color, &m.AvatarEmoji, &m.Points, &m.SortOrder, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a member at the end of the sort order with the given
// starting point balance.
func (s *FamilyMemberStore) Create(ctx context.Context, name, color, avatarEmoji string, points int) (*model.FamilyMember, error) {
	var maxOrder int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(sort_order), -1) FROM family_members").Scan(&maxOrder)
	if err != nil {
		return nil, fmt.Errorf("query max sort_order: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO family_members (name, color, avatar_emoji, points, sort_order) VALUES (?, ?, ?, ?, ?)",
		name, color, avatarEmoji, points, maxOrder+1,
	)
	if err != nil {
		return nil, fmt.Errorf("insert family member: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *FamilyMemberStore) List(ctx context.Context) ([]model.FamilyMember, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+memberCols+" FROM family_members ORDER BY sort_order, name")
	if err != nil {
		return nil, fmt.Errorf("query family members: %w", err)
	}
	defer rows.Close()

	var members []model.FamilyMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan family member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func (s *FamilyMemberStore) GetByID(ctx context.Context, id int64) (*model.FamilyMember, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+memberCols+" FROM family_members WHERE id = ?", id)
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query family member: %w", err)
	}
	return m, nil
}

func (s *FamilyMemberStore) Update(ctx context.Context, id int64, name, color, avatarEmoji string) (*model.FamilyMember, error) {
	_, err := s.db.ExecContext(ctx,
		"UPDATE family_members SET name = ?, color = ?, avatar_emoji = ? WHERE id = ?",
		name, color, avatarEmoji, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update family member: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Delete removes a member together with the chores and local calendar events
// assigned to them and any task-list mapping that targets them. Audit rows
// keep their copied member name and are left untouched.
func (s *FamilyMemberStore) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chores WHERE assigned_to = ?", id); err != nil {
		return fmt.Errorf("delete member chores: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM calendar_events WHERE member_id = ?", id); err != nil {
		return fmt.Errorf("delete member events: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM mappings WHERE kind = ? AND target = ?",
		model.MappingTaskList, strconv.FormatInt(id, 10),
	); err != nil {
		return fmt.Errorf("delete member mappings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM family_members WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete family member: %w", err)
	}

	return tx.Commit()
}

func (s *FamilyMemberStore) UpdateSortOrder(ctx context.Context, ids []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "UPDATE family_members SET sort_order = ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	for i, id := range ids {
		if _, err := stmt.ExecContext(ctx, i, id); err != nil {
			return fmt.Errorf("update sort order for id %d: %w", id, err)
		}
	}

	return tx.Commit()
}

func (s *FamilyMemberStore) NameExists(ctx context.Context, name string, excludeID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM family_members WHERE name = ? COLLATE NOCASE AND id != ?",
		name, excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check name exists: %w", err)
	}
	return count > 0, nil
}
