package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"backend/logger"
	"backend/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ExternalFoodDB is the second resolver tier, normally Edamam.
type ExternalFoodDB interface {
	LookupMacros(ctx context.Context, name string) (*models.Macros, error)
}

// NutritionResolver estimates macros for a food name through a tiered
// cascade: local reference table, external food database, category heuristic.
// Resolve never fails; a tier that errors or finds nothing falls through to
// the next one.
type NutritionResolver struct {
	db       *gorm.DB
	external ExternalFoodDB
	timeout  time.Duration
}

func NewNutritionResolver(db *gorm.DB, external ExternalFoodDB, lookupTimeout time.Duration) *NutritionResolver {
	if lookupTimeout <= 0 {
		lookupTimeout = 10 * time.Second
	}
	return &NutritionResolver{db: db, external: external, timeout: lookupTimeout}
}

func (r *NutritionResolver) Resolve(ctx context.Context, name string) models.Macros {
	// Tier 1: local reference table, partial match.
	if r.db != nil {
		var ref models.FoodReference
		err := r.db.WithContext(ctx).
			Where("LOWER(food_name) LIKE ?", "%"+strings.ToLower(name)+"%").
			First(&ref).Error
		if err == nil {
			return models.Macros{
				Calories: ref.Calories,
				Protein:  ref.Protein,
				Carbs:    ref.Carbs,
				Fats:     ref.Fats,
			}
		}
		if err != gorm.ErrRecordNotFound {
			logger.Warn("food reference lookup failed", zap.String("food", name), zap.Error(err))
		}
	}

	// Tier 2: external food database, bounded and best-effort.
	if r.external != nil {
		lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
		m, err := r.external.LookupMacros(lookupCtx, name)
		cancel()
		if err != nil {
			logger.Warn("external nutrition lookup failed", zap.String("food", name), zap.Error(err))
		} else if m != nil {
			return *m
		}
	}

	// Tier 3: category heuristic.
	return categoryEstimate(name)
}

// ResolveAll resolves every name concurrently and returns macros in input
// order regardless of which lookup finishes first.
func (r *NutritionResolver) ResolveAll(ctx context.Context, names []string) []models.Macros {
	out := make([]models.Macros, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			out[i] = r.Resolve(ctx, name)
		}(i, name)
	}
	wg.Wait()
	return out
}

var foodCategories = []struct {
	keywords []string
	macros   models.Macros
}{
	{[]string{"chicken", "beef", "fish"}, models.Macros{Calories: 200, Protein: 30, Carbs: 0, Fats: 8}},
	{[]string{"rice", "pasta", "bread"}, models.Macros{Calories: 150, Protein: 5, Carbs: 30, Fats: 1}},
	{[]string{"salad", "vegetable", "broccoli"}, models.Macros{Calories: 50, Protein: 3, Carbs: 10, Fats: 0}},
	{[]string{"fruit", "apple", "banana"}, models.Macros{Calories: 80, Protein: 1, Carbs: 20, Fats: 0}},
}

// categoryEstimate keyword-matches the name against coarse food categories,
// falling back to one global default profile.
func categoryEstimate(name string) models.Macros {
	n := strings.ToLower(name)
	for _, cat := range foodCategories {
		for _, kw := range cat.keywords {
			if strings.Contains(n, kw) {
				return cat.macros
			}
		}
	}
	return models.Macros{Calories: 100, Protein: 5, Carbs: 15, Fats: 3}
}
