package meal

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"golang.org/x/text/collate"

	"github.com/dukerupert/homehub/internal/grocery"
	"github.com/dukerupert/homehub/internal/model"
)

// ItemKey is the dedup key of an ingredient line.
func ItemKey(line string) string {
	return strings.ToLower(strings.TrimSpace(line))
}

// GenerateShoppingList gathers the ingredients of every recipe planned
// between start and end inclusive. Lines that differ only in case or
// surrounding space are merged; the first spelling seen is kept.
func (e *Engine) GenerateShoppingList(ctx context.Context, start, end string) (*model.ShoppingList, error) {
	if err := validDate(start); err != nil {
		return nil, err
	}
	if err := validDate(end); err != nil {
		return nil, err
	}

	list := &model.ShoppingList{
		Items:     []model.ShoppingItem{},
		DateRange: model.DateRange{Start: start, End: end},
	}

	slots, err := e.slots.ListRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	var ids []int64
	seen := make(map[int64]bool)
	for _, s := range slots {
		if s.RecipeID == nil || seen[*s.RecipeID] {
			continue
		}
		seen[*s.RecipeID] = true
		ids = append(ids, *s.RecipeID)
	}
	// Slots with no recipe contribute nothing, so the count stays zero.
	if len(ids) == 0 {
		return list, nil
	}
	list.MealCount = len(slots)

	recipes, err := e.recipes.ListIngredients(ctx, ids)
	if err != nil {
		return nil, err
	}

	checked, err := e.slots.CheckedKeys(ctx, start, end)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]int)
	for _, r := range recipes {
		var lines []string
		if err := json.Unmarshal([]byte(r.Raw), &lines); err != nil {
			e.logger.Warn("skipping recipe with unreadable ingredients", "recipe_id", r.RecipeID, "error", err)
			continue
		}

		for _, line := range lines {
			line = strings.TrimSpace(line)
			key := ItemKey(line)
			if key == "" {
				continue
			}
			i, ok := byKey[key]
			if !ok {
				list.Items = append(list.Items, model.ShoppingItem{
					ID:       len(list.Items) + 1,
					Name:     line,
					Category: grocery.Categorize(line),
					Checked:  checked[key],
				})
				i = len(list.Items) - 1
				byKey[key] = i
			}
			item := &list.Items[i]
			if !containsString(item.Recipes, r.Title) {
				item.Recipes = append(item.Recipes, r.Title)
			}
		}
	}

	col := collate.New(e.lang)
	sort.SliceStable(list.Items, func(i, j int) bool {
		return col.CompareString(list.Items[i].Name, list.Items[j].Name) < 0
	})
	return list, nil
}

// SetShoppingItemChecked persists the check mark of one item for a range.
func (e *Engine) SetShoppingItemChecked(ctx context.Context, start, end, name string, checked bool) error {
	if err := validDate(start); err != nil {
		return err
	}
	if err := validDate(end); err != nil {
		return err
	}
	key := ItemKey(name)
	if key == "" {
		return ErrMissingItem
	}
	return e.slots.SetChecked(ctx, start, end, key, checked)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
