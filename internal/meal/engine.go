// Package meal plans meals into date and slot pairs and builds shopping
// lists from the recipes planned over a date range.
package meal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/dukerupert/homehub/internal/model"
)

const (
	DefaultTitle = "No Title"
	DefaultEmoji = "🍽️"

	dateLayout = "2006-01-02"
)

var (
	ErrInvalidMealType = errors.New("invalid meal type")
	ErrMissingDate     = errors.New("date is required")
	ErrInvalidDate     = errors.New("date must be YYYY-MM-DD")
	ErrNotFound        = errors.New("meal not found")
	ErrMissingItem     = errors.New("item name is required")
)

// SlotStore is the meal persistence the engine drives.
type SlotStore interface {
	Upsert(ctx context.Context, date string, mealType model.MealType, snap model.RecipeSnapshot) (*model.MealSlot, error)
	Get(ctx context.Context, date string, mealType model.MealType) (*model.MealSlot, error)
	Delete(ctx context.Context, date string, mealType model.MealType) (bool, error)
	ListRange(ctx context.Context, start, end string) ([]model.MealSlot, error)
	Complete(ctx context.Context, date string, mealType model.MealType, at time.Time) (*model.MealHistory, error)
	ListHistory(ctx context.Context, start, end string) ([]model.MealHistory, error)
	SetChecked(ctx context.Context, start, end, itemKey string, checked bool) error
	CheckedKeys(ctx context.Context, start, end string) (map[string]bool, error)
}

type RecipeReader interface {
	ListIngredients(ctx context.Context, ids []int64) ([]model.RecipeIngredients, error)
}

type Engine struct {
	slots   SlotStore
	recipes RecipeReader
	logger  *slog.Logger

	lang language.Tag
	loc  *time.Location
	now  func() time.Time
}

type Option func(*Engine)

// WithLanguage sets the collation used to sort shopping lists.
func WithLanguage(tag language.Tag) Option {
	return func(e *Engine) { e.lang = tag }
}

// WithLocation sets the zone that decides what "today" and "this week" are.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(slots SlotStore, recipes RecipeReader, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		slots:   slots,
		recipes: recipes,
		logger:  logger.With("component", "meal"),
		lang:    language.English,
		loc:     time.Local,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func validDate(date string) error {
	if date == "" {
		return ErrMissingDate
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return nil
}

func validSlot(date string, mealType model.MealType) error {
	if !mealType.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMealType, mealType)
	}
	return validDate(date)
}

// SetMeal puts a recipe in a slot, replacing whatever was there.
func (e *Engine) SetMeal(ctx context.Context, date string, mealType model.MealType, snap model.RecipeSnapshot) (*model.MealSlot, error) {
	if err := validSlot(date, mealType); err != nil {
		return nil, err
	}
	if strings.TrimSpace(snap.Title) == "" {
		snap.Title = DefaultTitle
	}
	if snap.Emoji == "" {
		snap.Emoji = DefaultEmoji
	}
	return e.slots.Upsert(ctx, date, mealType, snap)
}

// RemoveMeal empties a slot and reports whether it held anything.
func (e *Engine) RemoveMeal(ctx context.Context, date string, mealType model.MealType) (bool, error) {
	if err := validSlot(date, mealType); err != nil {
		return false, err
	}
	return e.slots.Delete(ctx, date, mealType)
}

// CompleteMeal logs the slot's recipe to history. Every call adds a row.
func (e *Engine) CompleteMeal(ctx context.Context, date string, mealType model.MealType) (*model.MealHistory, error) {
	if err := validSlot(date, mealType); err != nil {
		return nil, err
	}
	h, err := e.slots.Complete(ctx, date, mealType, e.now())
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, ErrNotFound
	}
	return h, nil
}

// Day is one date's plan keyed by meal type. Empty slots are absent.
type Day struct {
	Date  string                            `json:"date"`
	Meals map[model.MealType]model.MealSlot `json:"meals"`
}

// Week returns seven consecutive days starting at start. An empty start
// means the Monday of the current week.
func (e *Engine) Week(ctx context.Context, start string) ([]Day, error) {
	var first time.Time
	if start == "" {
		first = mondayOf(e.now().In(e.loc))
	} else {
		t, err := time.Parse(dateLayout, start)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDate, start)
		}
		first = t
	}

	days := make([]Day, 7)
	index := make(map[string]int, 7)
	for i := range days {
		d := first.AddDate(0, 0, i).Format(dateLayout)
		days[i] = Day{Date: d, Meals: map[model.MealType]model.MealSlot{}}
		index[d] = i
	}

	slots, err := e.slots.ListRange(ctx, days[0].Date, days[6].Date)
	if err != nil {
		return nil, err
	}
	for _, s := range slots {
		if i, ok := index[s.Date]; ok {
			days[i].Meals[s.MealType] = s
		}
	}
	return days, nil
}

// Today returns today's plan in the engine's zone.
func (e *Engine) Today(ctx context.Context) (Day, error) {
	today := e.now().In(e.loc).Format(dateLayout)
	day := Day{Date: today, Meals: map[model.MealType]model.MealSlot{}}

	slots, err := e.slots.ListRange(ctx, today, today)
	if err != nil {
		return Day{}, err
	}
	for _, s := range slots {
		day.Meals[s.MealType] = s
	}
	return day, nil
}

// History returns completed meals dated within the range, newest first.
func (e *Engine) History(ctx context.Context, start, end string) ([]model.MealHistory, error) {
	for _, d := range []string{start, end} {
		if d == "" {
			continue
		}
		if err := validDate(d); err != nil {
			return nil, err
		}
	}
	return e.slots.ListHistory(ctx, start, end)
}

func mondayOf(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}
