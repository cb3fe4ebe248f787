package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/homehub/internal/model"
)

type RecipeStore struct {
	db *sql.DB
}

func NewRecipeStore(db *sql.DB) *RecipeStore {
	return &RecipeStore{db: db}
}

const recipeCols = `id, title, emoji, photo, prep_time, cook_time, servings, category, is_favorite, ingredients, steps, created_at, updated_at`

func scanRecipe(scanner interface{ Scan(...any) error }) (*model.Recipe, error) {
	var r model.Recipe
	var photo sql.NullString
	var favorite int
	var ingredients, steps string

	err := scanner.Scan(
		&r.ID, &r.Title, &r.Emoji, &photo, &r.PrepTime, &r.CookTime, &r.Servings,
		&r.Category, &favorite, &ingredients, &steps, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.IsFavorite = favorite != 0
	if photo.Valid {
		r.Photo = &photo.String
	}
	// A damaged list reads as empty here; aggregation reads the raw text instead.
	if err := json.Unmarshal([]byte(ingredients), &r.Ingredients); err != nil {
		r.Ingredients = []string{}
	}
	if err := json.Unmarshal([]byte(steps), &r.Steps); err != nil {
		r.Steps = []string{}
	}
	return &r, nil
}

func encodeLines(lines []string) (string, error) {
	if lines == nil {
		lines = []string{}
	}
	b, err := json.Marshal(lines)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *RecipeStore) Create(ctx context.Context, r model.Recipe) (*model.Recipe, error) {
	ingredients, err := encodeLines(r.Ingredients)
	if err != nil {
		return nil, fmt.Errorf("encode ingredients: %w", err)
	}
	steps, err := encodeLines(r.Steps)
	if err != nil {
		return nil, fmt.Errorf("encode steps: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO recipes (title, emoji, photo, prep_time, cook_time, servings, category, is_favorite, ingredients, steps)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Title, r.Emoji, nullString(r.Photo), r.PrepTime, r.CookTime, r.Servings, r.Category,
		boolInt(r.IsFavorite), ingredients, steps,
	)
	if err != nil {
		return nil, fmt.Errorf("insert recipe: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *RecipeStore) GetByID(ctx context.Context, id int64) (*model.Recipe, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recipeCols+` FROM recipes WHERE id = ?`, id)
	r, err := scanRecipe(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	return r, nil
}

// List returns recipes, favorites first. An empty category matches all.
func (s *RecipeStore) List(ctx context.Context, category string) ([]model.Recipe, error) {
	query := `SELECT ` + recipeCols + ` FROM recipes`
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY is_favorite DESC, title ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	defer rows.Close()

	var recipes []model.Recipe
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recipe: %w", err)
		}
		recipes = append(recipes, *r)
	}
	return recipes, rows.Err()
}

func (s *RecipeStore) Update(ctx context.Context, id int64, r model.Recipe) (*model.Recipe, error) {
	ingredients, err := encodeLines(r.Ingredients)
	if err != nil {
		return nil, fmt.Errorf("encode ingredients: %w", err)
	}
	steps, err := encodeLines(r.Steps)
	if err != nil {
		return nil, fmt.Errorf("encode steps: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE recipes SET title = ?, emoji = ?, photo = ?, prep_time = ?, cook_time = ?, servings = ?,
		        category = ?, is_favorite = ?, ingredients = ?, steps = ?, updated_at = ?
		 WHERE id = ?`,
		r.Title, r.Emoji, nullString(r.Photo), r.PrepTime, r.CookTime, r.Servings, r.Category,
		boolInt(r.IsFavorite), ingredients, steps, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update recipe: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *RecipeStore) SetFavorite(ctx context.Context, id int64, favorite bool) (*model.Recipe, error) {
	_, err := s.db.ExecContext(ctx, `UPDATE recipes SET is_favorite = ? WHERE id = ?`, boolInt(favorite), id)
	if err != nil {
		return nil, fmt.Errorf("set favorite: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *RecipeStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}
	return nil
}

// ListIngredients returns the raw ingredient text of each requested recipe,
// in ascending id order. Ids with no recipe are silently absent.
func (s *RecipeStore) ListIngredients(ctx context.Context, ids []int64) ([]model.RecipeIngredients, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, ingredients FROM recipes WHERE id IN (`+placeholders+`) ORDER BY id ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	defer rows.Close()

	var out []model.RecipeIngredients
	for rows.Next() {
		var ri model.RecipeIngredients
		if err := rows.Scan(&ri.RecipeID, &ri.Title, &ri.Raw); err != nil {
			return nil, fmt.Errorf("scan ingredients: %w", err)
		}
		out = append(out, ri)
	}
	return out, rows.Err()
}

// SetRawIngredients overwrites the serialized ingredient text verbatim. It
// exists for importers that hand over pre-serialized data.
func (s *RecipeStore) SetRawIngredients(ctx context.Context, id int64, raw string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE recipes SET ingredients = ? WHERE id = ?`, raw, id)
	if err != nil {
		return fmt.Errorf("set raw ingredients: %w", err)
	}
	return nil
}
