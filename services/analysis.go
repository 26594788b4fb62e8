package services

import (
	"math"

	"backend/models"
)

// buildAnalysis computes totals and the confidence score from detected items.
// Calories round to the nearest kcal, gram totals to one decimal; the score
// is the arithmetic mean of per-item confidences, 0 for an empty list.
func buildAnalysis(items []models.DetectedItem, provider string) *models.AnalysisResult {
	var cal, protein, carbs, fats, conf float64
	for _, it := range items {
		cal += it.Calories
		protein += it.Protein
		carbs += it.Carbs
		fats += it.Fats
		conf += it.Confidence
	}

	score := 0.0
	if len(items) > 0 {
		score = conf / float64(len(items))
	}

	return &models.AnalysisResult{
		DetectedItems:   items,
		TotalCalories:   math.Round(cal),
		TotalProtein:    round1(protein),
		TotalCarbs:      round1(carbs),
		TotalFats:       round1(fats),
		ConfidenceScore: score,
		ProviderUsed:    provider,
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
