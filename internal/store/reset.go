package store

import (
	"context"
	"database/sql"
	"fmt"
)

// resetTables lists user-content tables, children before parents.
var resetTables = []string{
	"task_completions",
	"chores",
	"calendar_events",
	"meal_history",
	"meal_slots",
	"dinner_slots",
	"recipes",
	"mappings",
	"shopping_checks",
	"family_members",
}

type ResetStore struct {
	db *sql.DB
}

func NewResetStore(db *sql.DB) *ResetStore {
	return &ResetStore{db: db}
}

// Reset wipes every user-content table in one transaction. Settings are kept.
func (s *ResetStore) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range resetTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}
