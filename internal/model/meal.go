package model

import "time"

type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

// MealTypes lists the recognized slots in display order.
var MealTypes = []MealType{MealBreakfast, MealLunch, MealDinner, MealSnack}

// Valid reports whether t is one of the recognized meal types.
func (t MealType) Valid() bool {
	for _, m := range MealTypes {
		if t == m {
			return true
		}
	}
	return false
}

// RecipeSnapshot is the denormalized copy of a recipe's display fields kept
// on a slot, so plans survive edits to or deletion of the source recipe.
type RecipeSnapshot struct {
	RecipeID *int64  `json:"recipe_id"`
	Title    string  `json:"recipe_title"`
	Emoji    string  `json:"recipe_emoji"`
	Photo    *string `json:"recipe_photo"`
}

type MealSlot struct {
	ID       int64    `json:"id"`
	Date     string   `json:"date"`
	MealType MealType `json:"meal_type"`
	RecipeSnapshot
	UpdatedAt time.Time `json:"updated_at"`
}

type MealHistory struct {
	ID       int64    `json:"id"`
	Date     string   `json:"date"`
	MealType MealType `json:"meal_type"`
	RecipeSnapshot
	CompletedAt time.Time `json:"completed_at"`
}

type ShoppingItem struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Checked  bool     `json:"checked"`
	Recipes  []string `json:"recipes"`
}

type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type ShoppingList struct {
	Items     []ShoppingItem `json:"items"`
	DateRange DateRange      `json:"dateRange"`
	MealCount int            `json:"mealCount"`
}
