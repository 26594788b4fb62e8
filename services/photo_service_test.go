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

type fakeStore struct {
	fail bool
}

func (f *fakeStore) UploadBase64(_ context.Context, _, keyPrefix string) (string, string, error) {
	if f.fail {
		return "", "", errors.New("s3 unavailable")
	}
	return keyPrefix + "/fake.jpg", "https://cdn.example.com/" + keyPrefix + "/fake.jpg", nil
}

func (f *fakeStore) Bucket() string { return "test-bucket" }

type fixedProvider struct {
	name string
	dets []providers.Detection
	err  error
}

func (p fixedProvider) Name() string { return p.name }

func (p fixedProvider) Try(context.Context, providers.ImageRef) ([]providers.Detection, error) {
	return p.dets, p.err
}

func mref(c, pr, cb, ft float64) *models.Macros {
	return &models.Macros{Calories: c, Protein: pr, Carbs: cb, Fats: ft}
}

func newPhotoService(t *testing.T, provs ...providers.RecognitionProvider) (*PhotoService, *CaptureService) {
	t.Helper()
	db := newTestDB(t)
	captures := NewCaptureService(db)
	resolver := NewNutritionResolver(db, nil, time.Second)
	chain := providers.NewChain(time.Second, provs...)
	return NewPhotoService(captures, chain, resolver, &fakeStore{}, nil), captures
}

func TestPhotoCaptureHappyPath(t *testing.T) {
	svc, _ := newPhotoService(t, fixedProvider{name: "primary", dets: []providers.Detection{
		{Label: "grilled chicken", Confidence: 0.9, Macros: mref(250, 30, 0, 8)},
		{Label: "rice", Confidence: 0.8, Macros: mref(150, 5, 30, 1)},
	}})

	sess, err := svc.Capture(context.Background(), 1, "data:image/jpeg;base64,AAAA")
	require.NoError(t, err)

	assert.Equal(t, models.CaptureStatusCompleted, sess.Status)
	assert.NotEmpty(t, sess.ArtifactKey)
	require.NotNil(t, sess.Result)
	r := sess.Result
	assert.Equal(t, "primary", r.ProviderUsed)
	require.Len(t, r.DetectedItems, 2)
	assert.Equal(t, "grilled chicken", r.DetectedItems[0].Name)
	assert.Equal(t, "rice", r.DetectedItems[1].Name)
	assert.Equal(t, 400.0, r.TotalCalories)
	assert.Equal(t, 35.0, r.TotalProtein)
	assert.Equal(t, 30.0, r.TotalCarbs)
	assert.Equal(t, 9.0, r.TotalFats)
	assert.InDelta(t, 0.85, r.ConfidenceScore, 1e-9)
}

func TestPhotoCaptureResolvesLabelOnlyDetections(t *testing.T) {
	svc, _ := newPhotoService(t, fixedProvider{name: "primary", dets: []providers.Detection{
		{Label: "banana", Confidence: 0.7},
	}})

	sess, err := svc.Capture(context.Background(), 1, "data:image/jpeg;base64,AAAA")
	require.NoError(t, err)

	require.NotNil(t, sess.Result)
	require.Len(t, sess.Result.DetectedItems, 1)
	item := sess.Result.DetectedItems[0]
	assert.Equal(t, 80.0, item.Calories)
	assert.Equal(t, 1.0, item.Protein)
	assert.Equal(t, 20.0, item.Carbs)
}

func TestPhotoCaptureAllProvidersFail(t *testing.T) {
	svc, _ := newPhotoService(t,
		fixedProvider{name: "primary", err: errors.New("unconfigured")},
		fixedProvider{name: "secondary", err: errors.New("rate limited")},
	)

	sess, err := svc.Capture(context.Background(), 1, "data:image/jpeg;base64,AAAA")
	require.NoError(t, err, "exhausted providers degrade, they do not fail the capture")

	assert.Equal(t, models.CaptureStatusCompleted, sess.Status)
	require.NotNil(t, sess.Result)
	r := sess.Result
	assert.Equal(t, providers.HeuristicProvider, r.ProviderUsed)
	require.Len(t, r.DetectedItems, 1)
	assert.Equal(t, "Mixed meal", r.DetectedItems[0].Name)
	assert.Equal(t, 500.0, r.TotalCalories)
	assert.Equal(t, 25.0, r.TotalProtein)
	assert.Equal(t, 50.0, r.TotalCarbs)
	assert.Equal(t, 15.0, r.TotalFats)
	assert.Equal(t, 0.5, r.ConfidenceScore)
}

func TestPhotoCaptureUploadFailure(t *testing.T) {
	db := newTestDB(t)
	captures := NewCaptureService(db)
	chain := providers.NewChain(time.Second, fixedProvider{name: "primary", dets: []providers.Detection{{Label: "rice", Confidence: 0.8}}})
	svc := NewPhotoService(captures, chain, NewNutritionResolver(db, nil, time.Second), &fakeStore{fail: true}, nil)

	sess, err := svc.Capture(context.Background(), 1, "data:image/jpeg;base64,AAAA")
	require.NoError(t, err, "a failed session is still returned to the caller")

	assert.Equal(t, models.CaptureStatusFailed, sess.Status)
	assert.Contains(t, sess.ErrorMessage, "artifact upload failed")
	assert.Nil(t, sess.Result)
}

func TestPhotoCapturePersistFailureMarksSessionFailed(t *testing.T) {
	db := newTestDB(t)
	captures := NewCaptureService(db)
	chain := providers.NewChain(time.Second, fixedProvider{name: "primary", dets: []providers.Detection{
		{Label: "rice", Confidence: 0.8, Macros: mref(150, 5, 30, 1)},
	}})
	svc := NewPhotoService(captures, chain, NewNutritionResolver(db, nil, time.Second), &fakeStore{}, nil)

	require.NoError(t, db.Migrator().DropTable(&models.AnalysisResult{}))

	_, err := svc.Capture(context.Background(), 1, "data:image/jpeg;base64,AAAA")
	require.Error(t, err)

	var sess models.CaptureSession
	require.NoError(t, db.Order("id DESC").First(&sess).Error)
	assert.Equal(t, models.CaptureStatusFailed, sess.Status, "session must not be left in processing")
	assert.Contains(t, sess.ErrorMessage, "failed to persist analysis")
}

func TestPhotoRetryRunsFreshSession(t *testing.T) {
	db := newTestDB(t)
	captures := NewCaptureService(db)
	resolver := NewNutritionResolver(db, nil, time.Second)

	failing := NewPhotoService(captures,
		providers.NewChain(time.Second), // empty chain still completes via heuristic
		resolver, &fakeStore{fail: true}, nil)
	sess, err := failing.Capture(context.Background(), 1, "data:image/jpeg;base64,AAAA")
	require.NoError(t, err)
	require.Equal(t, models.CaptureStatusFailed, sess.Status)

	working := NewPhotoService(captures,
		providers.NewChain(time.Second, fixedProvider{name: "primary", dets: []providers.Detection{
			{Label: "salad", Confidence: 0.6, Macros: mref(50, 3, 10, 0)},
		}}),
		resolver, &fakeStore{}, nil)

	fresh, err := working.Retry(context.Background(), 1, sess.ID)
	require.NoError(t, err)
	assert.NotEqual(t, sess.ID, fresh.ID)
	assert.Equal(t, models.CaptureStatusCompleted, fresh.Status)
	require.NotNil(t, fresh.Result)
	assert.Equal(t, 50.0, fresh.Result.TotalCalories)
}
