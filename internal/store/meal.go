package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/homehub/internal/model"
)

type MealStore struct {
	db *sql.DB
}

func NewMealStore(db *sql.DB) *MealStore {
	return &MealStore{db: db}
}

const mealSlotCols = `id, date, meal_type, recipe_id, recipe_title, recipe_emoji, recipe_photo, updated_at`

// mealOrder sorts slots breakfast, lunch, dinner, snack within a day.
const mealOrder = `CASE meal_type WHEN 'breakfast' THEN 0 WHEN 'lunch' THEN 1 WHEN 'dinner' THEN 2 ELSE 3 END`

func scanSnapshot(recipeID sql.NullInt64, photo sql.NullString, snap *model.RecipeSnapshot) {
	if recipeID.Valid {
		id := recipeID.Int64
		snap.RecipeID = &id
	}
	if photo.Valid {
		p := photo.String
		snap.Photo = &p
	}
}

func scanMealSlot(scanner interface{ Scan(...any) error }) (*model.MealSlot, error) {
	var m model.MealSlot
	var recipeID sql.NullInt64
	var photo sql.NullString

	err := scanner.Scan(&m.ID, &m.Date, &m.MealType, &recipeID, &m.Title, &m.Emoji, &photo, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	scanSnapshot(recipeID, photo, &m.RecipeSnapshot)
	return &m, nil
}

// Upsert replaces the slot for (date, mealType) wholesale, creating it if
// absent. Fields left nil in snap are written as NULL, not preserved.
func (s *MealStore) Upsert(ctx context.Context, date string, mealType model.MealType, snap model.RecipeSnapshot) (*model.MealSlot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`INSERT INTO meal_slots (date, meal_type, recipe_id, recipe_title, recipe_emoji, recipe_photo, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(date, meal_type) DO UPDATE SET
		     recipe_id = excluded.recipe_id,
		     recipe_title = excluded.recipe_title,
		     recipe_emoji = excluded.recipe_emoji,
		     recipe_photo = excluded.recipe_photo,
		     updated_at = excluded.updated_at
		 RETURNING `+mealSlotCols,
		date, mealType, nullID(snap.RecipeID), snap.Title, snap.Emoji, nullString(snap.Photo), time.Now().UTC(),
	)
	slot, err := scanMealSlot(row)
	if err != nil {
		return nil, fmt.Errorf("upsert meal slot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return slot, nil
}

func (s *MealStore) Get(ctx context.Context, date string, mealType model.MealType) (*model.MealSlot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+mealSlotCols+` FROM meal_slots WHERE date = ? AND meal_type = ?`, date, mealType)
	slot, err := scanMealSlot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get meal slot: %w", err)
	}
	return slot, nil
}

// Delete reports whether a slot existed.
func (s *MealStore) Delete(ctx context.Context, date string, mealType model.MealType) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM meal_slots WHERE date = ? AND meal_type = ?`, date, mealType)
	if err != nil {
		return false, fmt.Errorf("delete meal slot: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ListRange returns slots with start <= date <= end, both YYYY-MM-DD.
func (s *MealStore) ListRange(ctx context.Context, start, end string) ([]model.MealSlot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+mealSlotCols+` FROM meal_slots
		 WHERE date >= ? AND date <= ?
		 ORDER BY date ASC, `+mealOrder,
		start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("list meal slots: %w", err)
	}
	defer rows.Close()

	var slots []model.MealSlot
	for rows.Next() {
		slot, err := scanMealSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meal slot: %w", err)
		}
		slots = append(slots, *slot)
	}
	return slots, rows.Err()
}

// Complete copies the slot into meal_history. It returns nil when there is
// no slot to copy. Repeated calls append repeated rows.
func (s *MealStore) Complete(ctx context.Context, date string, mealType model.MealType, at time.Time) (*model.MealHistory, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO meal_history (date, meal_type, recipe_id, recipe_title, recipe_emoji, recipe_photo, completed_at)
		 SELECT date, meal_type, recipe_id, recipe_title, recipe_emoji, recipe_photo, ?
		 FROM meal_slots WHERE date = ? AND meal_type = ?
		 RETURNING id, date, meal_type, recipe_id, recipe_title, recipe_emoji, recipe_photo, completed_at`,
		at.UTC(), date, mealType,
	)
	h, err := scanMealHistory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("complete meal: %w", err)
	}
	return h, nil
}

func scanMealHistory(scanner interface{ Scan(...any) error }) (*model.MealHistory, error) {
	var h model.MealHistory
	var recipeID sql.NullInt64
	var photo sql.NullString

	err := scanner.Scan(&h.ID, &h.Date, &h.MealType, &recipeID, &h.Title, &h.Emoji, &photo, &h.CompletedAt)
	if err != nil {
		return nil, err
	}
	scanSnapshot(recipeID, photo, &h.RecipeSnapshot)
	return &h, nil
}

// ListHistory returns history rows for dates in [start, end], newest first.
// An empty bound is open.
func (s *MealStore) ListHistory(ctx context.Context, start, end string) ([]model.MealHistory, error) {
	query := `SELECT id, date, meal_type, recipe_id, recipe_title, recipe_emoji, recipe_photo, completed_at
		FROM meal_history WHERE 1 = 1`
	var args []any
	if start != "" {
		query += ` AND date >= ?`
		args = append(args, start)
	}
	if end != "" {
		query += ` AND date <= ?`
		args = append(args, end)
	}
	query += ` ORDER BY completed_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list meal history: %w", err)
	}
	defer rows.Close()

	var out []model.MealHistory
	for rows.Next() {
		h, err := scanMealHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meal history: %w", err)
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}

func (s *MealStore) SetChecked(ctx context.Context, start, end, itemKey string, checked bool) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO shopping_checks (range_start, range_end, item_key, checked, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(range_start, range_end, item_key) DO UPDATE SET checked = excluded.checked, updated_at = excluded.updated_at`,
		start, end, itemKey, boolInt(checked), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set shopping check: %w", err)
	}
	return nil
}

// CheckedKeys returns the item keys currently checked for a range.
func (s *MealStore) CheckedKeys(ctx context.Context, start, end string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_key FROM shopping_checks WHERE range_start = ? AND range_end = ? AND checked = 1`,
		start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("list shopping checks: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan shopping check: %w", err)
		}
		keys[key] = true
	}
	return keys, rows.Err()
}
