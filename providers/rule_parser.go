package providers

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

// Fixed vocabulary of common foods the rule-based tier can recognize.
// Multi-word entries come first so "protein shake" wins over "shake".
var foodKeywords = []string{
	"protein shake", "shake",
	"chicken", "beef", "fish", "salmon", "tuna",
	"rice", "pasta", "bread", "potato",
	"eggs", "egg",
	"salad", "vegetables", "broccoli", "spinach",
	"apple", "banana", "orange",
	"yogurt", "milk", "cheese",
	"sandwich", "burger", "pizza",
}

var numberWords = map[string]float64{
	"one":   1,
	"two":   2,
	"three": 3,
}

var mealTypeKeywords = []string{"breakfast", "lunch", "dinner", "snack"}

// Filler words long enough to pass the length check but never a food name.
var fillerWords = map[string]struct{}{
	"some": {}, "with": {}, "then": {}, "just": {}, "like": {},
	"this": {}, "that": {}, "have": {}, "about": {}, "today": {},
}

// RuleParser is the deterministic last tier of the voice chain: keyword and
// quantity-word matching against a fixed vocabulary. It never errors.
type RuleParser struct{}

func NewRuleParser() *RuleParser { return &RuleParser{} }

func (p *RuleParser) Name() string { return "rules" }

func (p *RuleParser) Try(_ context.Context, utterance string) (ParsedMeal, error) {
	text := strings.ToLower(utterance)

	meal := ParsedMeal{MealType: detectMealType(text)}

	var matched []string
	for _, food := range foodKeywords {
		if !strings.Contains(text, food) {
			continue
		}
		// "shake" inside an already-matched "protein shake", "egg" inside
		// "eggs": skip keywords contained in an earlier match.
		if containedInAny(food, matched) {
			continue
		}
		matched = append(matched, food)

		meal.Foods = append(meal.Foods, ParsedFood{
			Name:     food,
			Quantity: extractQuantity(text, food),
			Unit:     "serving",
		})
	}

	// No vocabulary hit: fall back to the first substantial non-filler word so
	// the user still gets something to edit.
	if len(meal.Foods) == 0 {
		for _, w := range strings.Fields(text) {
			if len(w) <= 3 {
				continue
			}
			if _, filler := fillerWords[w]; filler {
				continue
			}
			meal.Foods = append(meal.Foods, ParsedFood{Name: w, Quantity: 1, Unit: "serving"})
			break
		}
	}

	if len(meal.Foods) > 0 {
		meal.Confidence = 0.5
	} else {
		meal.Confidence = 0.2
	}
	return meal, nil
}

func containedInAny(food string, matched []string) bool {
	for _, m := range matched {
		if strings.Contains(m, food) {
			return true
		}
	}
	return false
}

func detectMealType(text string) string {
	for _, mt := range mealTypeKeywords {
		if strings.Contains(text, mt) {
			return mt
		}
	}
	return ""
}

// extractQuantity looks for "<digits|one|two|three> <food>" directly before
// the food keyword; defaults to 1.
func extractQuantity(text, food string) float64 {
	re := regexp.MustCompile(`(\d+|one|two|three)\s+` + regexp.QuoteMeta(food))
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 1
	}
	if q, ok := numberWords[m[1]]; ok {
		return q
	}
	if q, err := strconv.Atoi(m[1]); err == nil && q > 0 {
		return float64(q)
	}
	return 1
}
