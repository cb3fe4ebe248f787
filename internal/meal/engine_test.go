package meal

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/homehub/internal/database"
	"github.com/dukerupert/homehub/internal/model"
	"github.com/dukerupert/homehub/internal/store"
)

type fixture struct {
	engine  *Engine
	recipes *store.RecipeStore
	slots   *store.MealStore
}

// 2026-03-04 is a Wednesday.
var fixedNow = time.Date(2026, 3, 4, 18, 30, 0, 0, time.UTC)

func newFixture(t *testing.T) fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	slots := store.NewMealStore(db)
	recipes := store.NewRecipeStore(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := NewEngine(slots, recipes, logger,
		WithLocation(time.UTC),
		WithClock(func() time.Time { return fixedNow }),
	)
	return fixture{engine: engine, recipes: recipes, slots: slots}
}

func (f fixture) recipe(t *testing.T, title string, ingredients ...string) *model.Recipe {
	t.Helper()
	r, err := f.recipes.Create(context.Background(), model.Recipe{Title: title, Ingredients: ingredients})
	require.NoError(t, err)
	return r
}

func (f fixture) plan(t *testing.T, date string, mealType model.MealType, r *model.Recipe) {
	t.Helper()
	snap := model.RecipeSnapshot{Title: "Leftovers"}
	if r != nil {
		snap = model.RecipeSnapshot{RecipeID: &r.ID, Title: r.Title}
	}
	_, err := f.engine.SetMeal(context.Background(), date, mealType, snap)
	require.NoError(t, err)
}

func TestShoppingListAggregatesAcrossRecipes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	carnitas := f.recipe(t, "Carnitas", "2 lb pork shoulder", "Tortillas", "1 lime")
	tacos := f.recipe(t, "Fish Tacos", "tortillas ", "1 Lime", "cod")
	pasta := f.recipe(t, "Pasta", "spaghetti")

	f.plan(t, "2026-03-02", model.MealDinner, carnitas)
	f.plan(t, "2026-03-03", model.MealDinner, tacos)
	f.plan(t, "2026-03-04", model.MealLunch, carnitas)
	f.plan(t, "2026-03-05", model.MealBreakfast, nil)
	f.plan(t, "2026-03-10", model.MealDinner, pasta)

	list, err := f.engine.GenerateShoppingList(ctx, "2026-03-02", "2026-03-08")
	require.NoError(t, err)

	assert.Equal(t, 4, list.MealCount)
	assert.Equal(t, model.DateRange{Start: "2026-03-02", End: "2026-03-08"}, list.DateRange)

	var names []string
	for _, it := range list.Items {
		names = append(names, it.Name)
	}
	assert.Equal(t, []string{"1 lime", "2 lb pork shoulder", "cod", "Tortillas"}, names)

	byName := map[string]model.ShoppingItem{}
	for _, it := range list.Items {
		byName[it.Name] = it
	}
	assert.Equal(t, []string{"Carnitas", "Fish Tacos"}, byName["Tortillas"].Recipes)
	assert.Equal(t, []string{"Carnitas", "Fish Tacos"}, byName["1 lime"].Recipes)
	assert.Equal(t, []string{"Fish Tacos"}, byName["cod"].Recipes)

	// Ids follow first-seen order, not sorted order.
	assert.Equal(t, 1, byName["2 lb pork shoulder"].ID)
	assert.Equal(t, 2, byName["Tortillas"].ID)
	assert.Equal(t, 3, byName["1 lime"].ID)
	assert.Equal(t, 4, byName["cod"].ID)

	assert.Equal(t, "Meat & Seafood", byName["2 lb pork shoulder"].Category)
	assert.Equal(t, "Bakery", byName["Tortillas"].Category)
	for _, it := range list.Items {
		assert.False(t, it.Checked, it.Name)
	}
}

func TestShoppingListEmptyRange(t *testing.T) {
	f := newFixture(t)

	list, err := f.engine.GenerateShoppingList(context.Background(), "2026-03-02", "2026-03-08")
	require.NoError(t, err)
	assert.Empty(t, list.Items)
	assert.NotNil(t, list.Items)
	assert.Equal(t, 0, list.MealCount)
}

func TestShoppingListSlotsWithoutRecipes(t *testing.T) {
	f := newFixture(t)
	f.plan(t, "2026-03-02", model.MealDinner, nil)
	f.plan(t, "2026-03-03", model.MealDinner, nil)

	list, err := f.engine.GenerateShoppingList(context.Background(), "2026-03-02", "2026-03-08")
	require.NoError(t, err)
	assert.Empty(t, list.Items)
	assert.NotNil(t, list.Items)
	assert.Equal(t, 0, list.MealCount)
}

func TestShoppingListTrimsFirstSpelling(t *testing.T) {
	f := newFixture(t)

	r := f.recipe(t, "Guacamole", "  Avocado ", "avocado", " 1 onion")
	f.plan(t, "2026-03-02", model.MealLunch, r)

	list, err := f.engine.GenerateShoppingList(context.Background(), "2026-03-02", "2026-03-02")
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "1 onion", list.Items[0].Name)
	assert.Equal(t, "Avocado", list.Items[1].Name)
}

func TestShoppingListSkipsMalformedRecipe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	good := f.recipe(t, "Salad", "lettuce")
	bad := f.recipe(t, "Broken", "placeholder")
	require.NoError(t, f.recipes.SetRawIngredients(ctx, bad.ID, "{not json"))

	f.plan(t, "2026-03-02", model.MealLunch, good)
	f.plan(t, "2026-03-02", model.MealDinner, bad)

	list, err := f.engine.GenerateShoppingList(ctx, "2026-03-02", "2026-03-02")
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "lettuce", list.Items[0].Name)
	assert.Equal(t, 2, list.MealCount)
}

func TestShoppingListRemembersChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.recipe(t, "Omelette", "Eggs", "Chives")
	f.plan(t, "2026-03-02", model.MealBreakfast, r)

	require.NoError(t, f.engine.SetShoppingItemChecked(ctx, "2026-03-02", "2026-03-08", "  EGGS ", true))

	list, err := f.engine.GenerateShoppingList(ctx, "2026-03-02", "2026-03-08")
	require.NoError(t, err)
	for _, it := range list.Items {
		assert.Equal(t, it.Name == "Eggs", it.Checked, it.Name)
	}

	other, err := f.engine.GenerateShoppingList(ctx, "2026-03-02", "2026-03-03")
	require.NoError(t, err)
	for _, it := range other.Items {
		assert.False(t, it.Checked, "checks belong to their own range")
	}

	assert.ErrorIs(t, f.engine.SetShoppingItemChecked(ctx, "2026-03-02", "2026-03-08", " ", true), ErrMissingItem)
}

func TestSetMealValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.SetMeal(ctx, "2026-03-02", model.MealType("brunch"), model.RecipeSnapshot{})
	assert.ErrorIs(t, err, ErrInvalidMealType)

	_, err = f.engine.SetMeal(ctx, "", model.MealDinner, model.RecipeSnapshot{})
	assert.ErrorIs(t, err, ErrMissingDate)

	_, err = f.engine.SetMeal(ctx, "03/02/2026", model.MealDinner, model.RecipeSnapshot{})
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestSetMealDefaultsAndIdempotence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.engine.SetMeal(ctx, "2026-03-02", model.MealDinner, model.RecipeSnapshot{})
	require.NoError(t, err)
	assert.Equal(t, DefaultTitle, first.Title)
	assert.Equal(t, DefaultEmoji, first.Emoji)
	assert.Nil(t, first.Photo)

	second, err := f.engine.SetMeal(ctx, "2026-03-02", model.MealDinner, model.RecipeSnapshot{})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	slots, err := f.slots.ListRange(ctx, "2026-03-02", "2026-03-02")
	require.NoError(t, err)
	assert.Len(t, slots, 1)

	history, err := f.engine.History(ctx, "", "")
	require.NoError(t, err)
	assert.Empty(t, history, "setting a meal must not log history")
}

func TestRemoveMealIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.plan(t, "2026-03-02", model.MealDinner, nil)

	deleted, err := f.engine.RemoveMeal(ctx, "2026-03-02", model.MealDinner)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = f.engine.RemoveMeal(ctx, "2026-03-02", model.MealDinner)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestCompleteMeal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.CompleteMeal(ctx, "2026-03-02", model.MealDinner)
	assert.ErrorIs(t, err, ErrNotFound)

	r := f.recipe(t, "Chili", "beans")
	f.plan(t, "2026-03-02", model.MealDinner, r)

	for i := 0; i < 2; i++ {
		h, err := f.engine.CompleteMeal(ctx, "2026-03-02", model.MealDinner)
		require.NoError(t, err)
		assert.Equal(t, "Chili", h.Title)
		assert.True(t, h.CompletedAt.Equal(fixedNow))
	}

	history, err := f.engine.History(ctx, "2026-03-01", "2026-03-07")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestWeekDefaultsToMonday(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.plan(t, "2026-03-02", model.MealDinner, nil)
	f.plan(t, "2026-03-08", model.MealLunch, nil)
	f.plan(t, "2026-03-09", model.MealLunch, nil)

	days, err := f.engine.Week(ctx, "")
	require.NoError(t, err)
	require.Len(t, days, 7)
	assert.Equal(t, "2026-03-02", days[0].Date)
	assert.Equal(t, "2026-03-08", days[6].Date)
	assert.Contains(t, days[0].Meals, model.MealDinner)
	assert.Contains(t, days[6].Meals, model.MealLunch)

	total := 0
	for _, d := range days {
		total += len(d.Meals)
	}
	assert.Equal(t, 2, total)

	_, err = f.engine.Week(ctx, "not-a-date")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestToday(t *testing.T) {
	f := newFixture(t)
	f.plan(t, "2026-03-04", model.MealBreakfast, nil)
	f.plan(t, "2026-03-05", model.MealBreakfast, nil)

	day, err := f.engine.Today(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2026-03-04", day.Date)
	assert.Len(t, day.Meals, 1)
}
