package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"backend/models"
	"backend/providers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingMealParser struct{}

func (failingMealParser) Name() string { return "llm" }

func (failingMealParser) Try(context.Context, string) (providers.ParsedMeal, error) {
	return providers.ParsedMeal{}, errors.New("LLM API key not configured")
}

func newVoiceService(t *testing.T, parsers ...providers.MealParser) (*VoiceService, *CaptureService) {
	t.Helper()
	db := newTestDB(t)
	captures := NewCaptureService(db)
	resolver := NewNutritionResolver(db, nil, time.Second)
	chain := providers.NewParserChain(time.Second, parsers...)
	return NewVoiceService(captures, chain, resolver, &fakeStore{}, nil), captures
}

func TestVoiceCaptureRequiresTranscription(t *testing.T) {
	svc, _ := newVoiceService(t, providers.NewRuleParser())
	_, err := svc.Capture(context.Background(), 1, "", "")
	require.Error(t, err)
}

func TestVoiceCaptureRuleFallback(t *testing.T) {
	svc, _ := newVoiceService(t, failingMealParser{}, providers.NewRuleParser())

	out, err := svc.Capture(context.Background(), 1, "I had two eggs and rice for breakfast", "")
	require.NoError(t, err)

	assert.Equal(t, "breakfast", out.InferredMealType)
	sess := out.Session
	assert.Equal(t, models.CaptureStatusCompleted, sess.Status)
	require.NotNil(t, sess.Result)
	r := sess.Result
	assert.Equal(t, "rules", r.ProviderUsed)
	assert.Equal(t, 0.5, r.ConfidenceScore)

	require.Len(t, r.DetectedItems, 2)
	byName := map[string]models.DetectedItem{}
	for _, it := range r.DetectedItems {
		byName[it.Name] = it
	}
	eggs := byName["eggs"]
	assert.Equal(t, 2.0, eggs.Quantity)
	assert.Equal(t, 200.0, eggs.Calories, "per-serving default profile scaled by quantity")
	rice := byName["rice"]
	assert.Equal(t, 1.0, rice.Quantity)
	assert.Equal(t, 150.0, rice.Calories)

	assert.Equal(t, 350.0, r.TotalCalories)
	assert.Equal(t, 60.0, r.TotalCarbs)
}

func TestVoiceCaptureUsesParsedMacrosPerQuantity(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.FoodReference{
		FoodName: "eggs", Calories: 78, Protein: 6, Carbs: 0.6, Fats: 5,
	}).Error)
	captures := NewCaptureService(db)
	svc := NewVoiceService(captures,
		providers.NewParserChain(time.Second, providers.NewRuleParser()),
		NewNutritionResolver(db, nil, time.Second), &fakeStore{}, nil)

	out, err := svc.Capture(context.Background(), 1, "three eggs", "")
	require.NoError(t, err)

	r := out.Session.Result
	require.NotNil(t, r)
	require.Len(t, r.DetectedItems, 1)
	assert.Equal(t, 3.0, r.DetectedItems[0].Quantity)
	assert.Equal(t, 234.0, r.DetectedItems[0].Calories)
	assert.Equal(t, 18.0, r.DetectedItems[0].Protein)
}

func TestVoiceCaptureGibberishStillCompletes(t *testing.T) {
	svc, _ := newVoiceService(t, providers.NewRuleParser())

	out, err := svc.Capture(context.Background(), 1, "uh um", "")
	require.NoError(t, err)

	sess := out.Session
	assert.Equal(t, models.CaptureStatusCompleted, sess.Status)
	require.NotNil(t, sess.Result)
	assert.Empty(t, sess.Result.DetectedItems)
	assert.Equal(t, 0.0, sess.Result.TotalCalories)
	assert.Equal(t, 0.0, sess.Result.ConfidenceScore, "no items means no confidence")
}

func TestVoiceCaptureAudioUploadFailure(t *testing.T) {
	db := newTestDB(t)
	captures := NewCaptureService(db)
	svc := NewVoiceService(captures,
		providers.NewParserChain(time.Second, providers.NewRuleParser()),
		NewNutritionResolver(db, nil, time.Second), &fakeStore{fail: true}, nil)

	out, err := svc.Capture(context.Background(), 1, "two eggs", "data:audio/m4a;base64,AAAA")
	require.NoError(t, err)

	assert.Equal(t, models.CaptureStatusFailed, out.Session.Status)
	assert.Contains(t, out.Session.ErrorMessage, "artifact upload failed")
	assert.Nil(t, out.Session.Result)
}

func TestVoiceRetryReparsesTranscription(t *testing.T) {
	db := newTestDB(t)
	captures := NewCaptureService(db)
	resolver := NewNutritionResolver(db, nil, time.Second)

	failing := NewVoiceService(captures,
		providers.NewParserChain(time.Second, providers.NewRuleParser()),
		resolver, &fakeStore{fail: true}, nil)
	out, err := failing.Capture(context.Background(), 1, "two eggs and rice", "data:audio/m4a;base64,AAAA")
	require.NoError(t, err)
	require.Equal(t, models.CaptureStatusFailed, out.Session.Status)

	working := NewVoiceService(captures,
		providers.NewParserChain(time.Second, providers.NewRuleParser()),
		resolver, &fakeStore{}, nil)
	fresh, err := working.Retry(context.Background(), 1, out.Session.ID)
	require.NoError(t, err)

	assert.NotEqual(t, out.Session.ID, fresh.Session.ID)
	assert.Equal(t, models.CaptureStatusCompleted, fresh.Session.Status)
	require.NotNil(t, fresh.Session.Result)
	assert.Len(t, fresh.Session.Result.DetectedItems, 2)
}
