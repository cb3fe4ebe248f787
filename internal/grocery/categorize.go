package grocery

import (
	"sort"
	"strings"
	"unicode"
)

// Other is returned for ingredients no keyword matches.
const Other = "Other"

// Aisles lists categories in the order a store walk visits them.
var Aisles = []string{"Produce", "Meat & Seafood", "Dairy", "Bakery", "Pantry", "Spices", "Frozen", "Beverages", Other}

var aisleKeywords = map[string][]string{
	"Produce": {
		"apple", "banana", "orange", "lemon", "lime", "avocado", "tomato", "potato", "onion",
		"shallot", "garlic", "lettuce", "romaine", "arugula", "spinach", "kale", "cabbage",
		"broccoli", "cauliflower", "carrot", "celery", "cucumber", "pepper", "jalapeño",
		"jalapeno", "mushroom", "corn", "zucchini", "squash", "asparagus", "green bean",
		"scallion", "green onion", "leek", "cilantro", "basil", "parsley", "mint", "dill",
		"thyme", "rosemary", "ginger", "berries", "strawberr", "blueberr", "raspberr",
		"grape", "mango", "pineapple", "peach", "pear", "melon", "radish", "beet",
	},
	"Meat & Seafood": {
		"chicken", "beef", "steak", "pork", "bacon", "sausage", "ham", "turkey", "lamb",
		"chorizo", "prosciutto", "salmon", "tuna", "shrimp", "cod", "tilapia", "halibut",
		"crab", "scallop", "mussel", "anchov",
	},
	"Dairy": {
		"milk", "butter", "cheese", "cheddar", "mozzarella", "parmesan", "feta", "ricotta",
		"yogurt", "cream", "sour cream", "half and half", "egg", "ghee",
	},
	"Bakery": {
		"bread", "baguette", "sourdough", "tortilla", "pita", "naan", "bun", "roll", "bagel",
		"croissant", "brioche",
	},
	"Pantry": {
		"flour", "sugar", "rice", "pasta", "spaghetti", "noodle", "oats", "quinoa", "bean",
		"lentil", "chickpea", "broth", "stock", "olive oil", "vegetable oil", "oil", "vinegar",
		"soy sauce", "sauce", "honey", "maple syrup", "syrup", "peanut butter", "breadcrumb",
		"baking soda", "baking powder", "yeast", "vanilla", "cornstarch", "canned", "tomato paste",
		"salsa", "mustard", "mayonnaise", "ketchup", "nut", "almond", "walnut", "pecan",
	},
	"Spices": {
		"salt", "black pepper", "peppercorn", "cumin", "paprika", "chili powder", "oregano",
		"cinnamon", "nutmeg", "turmeric", "coriander", "cayenne", "bay leaf", "bay leaves",
		"seasoning", "spice",
	},
	"Frozen": {
		"frozen", "ice cream",
	},
	"Beverages": {
		"orange juice", "apple juice", "juice", "coffee", "tea", "wine", "beer", "soda", "sparkling water",
	},
}

type keyword struct {
	word  string
	aisle string
}

// keywords is every keyword across aisles, longest first, so "sour cream"
// wins over "cream" and "black pepper" over "pepper".
var keywords = buildKeywords()

func buildKeywords() []keyword {
	var out []keyword
	for aisle, words := range aisleKeywords {
		for _, w := range words {
			out = append(out, keyword{word: w, aisle: aisle})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].word) != len(out[j].word) {
			return len(out[i].word) > len(out[j].word)
		}
		return out[i].word < out[j].word
	})
	return out
}

// Categorize returns the aisle for a recipe ingredient line such as
// "2 lb pork shoulder, trimmed". Quantities and units are ignored.
func Categorize(line string) string {
	name := strings.ToLower(ItemName(line))
	if name == "" {
		return Other
	}
	for _, k := range keywords {
		if strings.Contains(name, k.word) {
			return k.aisle
		}
	}
	return Other
}

// AisleIndex is the position of aisle in Aisles, or len(Aisles) when unknown.
func AisleIndex(aisle string) int {
	for i, a := range Aisles {
		if a == aisle {
			return i
		}
	}
	return len(Aisles)
}

var units = map[string]bool{
	"tsp": true, "teaspoon": true, "teaspoons": true, "tbsp": true, "tablespoon": true,
	"tablespoons": true, "cup": true, "cups": true, "oz": true, "ounce": true, "ounces": true,
	"lb": true, "lbs": true, "pound": true, "pounds": true, "g": true, "gram": true, "grams": true,
	"kg": true, "ml": true, "l": true, "liter": true, "liters": true, "pinch": true, "dash": true,
	"clove": true, "cloves": true, "can": true, "cans": true, "package": true, "pkg": true,
	"bunch": true, "slice": true, "slices": true, "sprig": true, "sprigs": true, "large": true,
	"medium": true, "small": true, "whole": true, "of": true,
}

// ItemName strips a leading quantity, units, parenthetical notes and any
// trailing preparation ("chopped", "to taste") from an ingredient line.
func ItemName(line string) string {
	s := line
	if i := strings.IndexAny(s, ",("); i >= 0 {
		s = s[:i]
	}

	fields := strings.Fields(s)
	for len(fields) > 0 {
		f := strings.ToLower(strings.TrimSuffix(fields[0], "."))
		if isQuantity(f) || units[f] {
			fields = fields[1:]
			continue
		}
		break
	}
	return strings.TrimSpace(strings.Join(fields, " "))
}

func isQuantity(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '/' && r != '.' && r != '-' && !strings.ContainsRune("½⅓⅔¼¾⅛", r) {
			return false
		}
	}
	return true
}
