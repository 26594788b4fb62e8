package providers

import (
	"context"
	"time"

	"backend/logger"

	"go.uber.org/zap"
)

// ParsedFood is one food extracted from a spoken meal description.
type ParsedFood struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// ParsedMeal is the structured form of one utterance. MealType is set only
// when the utterance names one; Confidence reflects the parsing tier that
// produced the result, not per-food certainty.
type ParsedMeal struct {
	Foods      []ParsedFood
	MealType   string
	Confidence float64
}

// MealParser is one member of the voice parsing fallback chain.
type MealParser interface {
	Name() string
	Try(ctx context.Context, utterance string) (ParsedMeal, error)
}

// ParserChain tries parsers in fixed priority order, mirroring the photo
// recognition chain: first parser yielding at least one food wins.
type ParserChain struct {
	parsers []MealParser
	timeout time.Duration
}

func NewParserChain(attemptTimeout time.Duration, parsers ...MealParser) *ParserChain {
	if attemptTimeout <= 0 {
		attemptTimeout = defaultAttemptTimeout
	}
	return &ParserChain{parsers: parsers, timeout: attemptTimeout}
}

// Parse never fails: errors and food-less results fall through to the next
// parser, and the last non-error result is kept as the answer of record when
// every tier comes back empty.
func (c *ParserChain) Parse(ctx context.Context, utterance string) (ParsedMeal, string) {
	var last ParsedMeal
	lastName := HeuristicProvider
	for _, p := range c.parsers {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		meal, err := p.Try(attemptCtx, utterance)
		cancel()
		if err != nil {
			logger.Warn("meal parser failed, trying next",
				zap.String("parser", p.Name()), zap.Error(err))
			continue
		}
		if len(meal.Foods) == 0 {
			logger.Warn("meal parser found no foods, trying next",
				zap.String("parser", p.Name()))
			last, lastName = meal, p.Name()
			continue
		}
		return meal, p.Name()
	}
	return last, lastName
}
