package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleParserQuantityWordsAndMealType(t *testing.T) {
	p := NewRuleParser()
	meal, err := p.Try(context.Background(), "I had two eggs and rice for breakfast")
	require.NoError(t, err)

	assert.Equal(t, "breakfast", meal.MealType)
	assert.Equal(t, 0.5, meal.Confidence)

	byName := map[string]ParsedFood{}
	for _, f := range meal.Foods {
		byName[f.Name] = f
	}
	require.Contains(t, byName, "eggs")
	require.Contains(t, byName, "rice")
	assert.Equal(t, float64(2), byName["eggs"].Quantity)
	assert.Equal(t, float64(1), byName["rice"].Quantity)
	assert.Len(t, meal.Foods, 2)
}

func TestRuleParserDigitQuantity(t *testing.T) {
	p := NewRuleParser()
	meal, err := p.Try(context.Background(), "3 bananas and a protein shake after lunch")
	require.NoError(t, err)

	assert.Equal(t, "lunch", meal.MealType)
	byName := map[string]ParsedFood{}
	for _, f := range meal.Foods {
		byName[f.Name] = f
	}
	require.Contains(t, byName, "banana")
	assert.Equal(t, float64(3), byName["banana"].Quantity)
	require.Contains(t, byName, "protein shake")
	assert.NotContains(t, byName, "shake", "protein shake must not double-count as shake")
}

func TestRuleParserFallsBackToFirstSubstantialWord(t *testing.T) {
	p := NewRuleParser()
	meal, err := p.Try(context.Background(), "ate some quinoa")
	require.NoError(t, err)

	require.Len(t, meal.Foods, 1)
	assert.Equal(t, "quinoa", meal.Foods[0].Name, "filler words like \"some\" are skipped")
	assert.Equal(t, 0.5, meal.Confidence)
	assert.Empty(t, meal.MealType)
}

func TestRuleParserFallbackSkipsFillerWords(t *testing.T) {
	p := NewRuleParser()
	meal, err := p.Try(context.Background(), "just had some leftovers")
	require.NoError(t, err)

	require.Len(t, meal.Foods, 1)
	assert.Equal(t, "leftovers", meal.Foods[0].Name)
}

func TestRuleParserNothingRecognizable(t *testing.T) {
	p := NewRuleParser()
	meal, err := p.Try(context.Background(), "uh um")
	require.NoError(t, err)

	assert.Empty(t, meal.Foods)
	assert.Equal(t, 0.2, meal.Confidence)
}

type failingParser struct{}

func (failingParser) Name() string { return "llm" }

func (failingParser) Try(context.Context, string) (ParsedMeal, error) {
	return ParsedMeal{}, errors.New("LLM API key not configured")
}

func TestParserChainFallsBackToRules(t *testing.T) {
	chain := NewParserChain(time.Second, failingParser{}, NewRuleParser())

	meal, used := chain.Parse(context.Background(), "I had two eggs and rice for breakfast")

	assert.Equal(t, "rules", used)
	assert.Equal(t, "breakfast", meal.MealType)
	assert.Equal(t, 0.5, meal.Confidence)
	assert.Len(t, meal.Foods, 2)
}

func TestParserChainKeepsLastEmptyResult(t *testing.T) {
	chain := NewParserChain(time.Second, failingParser{}, NewRuleParser())

	meal, used := chain.Parse(context.Background(), "uh um")

	assert.Equal(t, "rules", used)
	assert.Empty(t, meal.Foods)
	assert.Equal(t, 0.2, meal.Confidence)
}
