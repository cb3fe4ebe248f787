package model

import "time"

type Recipe struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Emoji       string    `json:"emoji"`
	Photo       *string   `json:"photo"`
	PrepTime    string    `json:"prep_time"`
	CookTime    string    `json:"cook_time"`
	Servings    int       `json:"servings"`
	Category    string    `json:"category"`
	IsFavorite  bool      `json:"is_favorite"`
	Ingredients []string  `json:"ingredients"`
	Steps       []string  `json:"steps"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RecipeIngredients is the raw serialized ingredient list of one recipe, as
// read for shopping-list aggregation. Raw is decoded by the caller so a
// malformed row can be skipped without failing the whole read.
type RecipeIngredients struct {
	RecipeID int64
	Title    string
	Raw      string
}
