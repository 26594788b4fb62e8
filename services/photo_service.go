package services

import (
	"context"
	"fmt"

	"backend/models"
	"backend/providers"

	"go.uber.org/zap"

	"backend/logger"
)

// ArtifactStore is the durable blob store for raw captures. Uploads must
// succeed before the provider chain runs; the pipeline does not retry them.
type ArtifactStore interface {
	UploadBase64(ctx context.Context, dataURI, keyPrefix string) (key, url string, err error)
	Bucket() string
}

// markFailed is the best-effort transition used when persistence breaks
// mid-pipeline, so callers never observe a session stuck in processing.
func markFailed(captures *CaptureService, events *CaptureEvents, userID, sessionID uint, msg string) {
	if err := captures.RecordFailure(sessionID, msg); err != nil {
		logger.Error("failed to record pipeline failure",
			zap.Uint("session", sessionID), zap.Error(err))
		return
	}
	events.StatusChanged(userID, sessionID, models.CaptureStatusFailed, "")
}

// PhotoService runs the photo capture pipeline: upload, recognize through the
// provider chain, enrich with the nutrition resolver, persist.
type PhotoService struct {
	captures *CaptureService
	chain    *providers.Chain
	resolver *NutritionResolver
	store    ArtifactStore
	events   *CaptureEvents
}

func NewPhotoService(captures *CaptureService, chain *providers.Chain, resolver *NutritionResolver, store ArtifactStore, events *CaptureEvents) *PhotoService {
	return &PhotoService{
		captures: captures,
		chain:    chain,
		resolver: resolver,
		store:    store,
		events:   events,
	}
}

// Capture ingests a base64-encoded meal photo and runs the full pipeline.
// The returned session is terminal: completed on any analysis outcome (the
// chain cannot fail), failed only when the artifact upload itself failed.
func (s *PhotoService) Capture(ctx context.Context, userID uint, imageBase64 string) (*models.CaptureSession, error) {
	sess, err := s.captures.Create(NewCapture{UserID: userID, Kind: models.CaptureKindPhoto})
	if err != nil {
		return nil, err
	}
	if err := s.captures.BeginProcessing(sess.ID); err != nil {
		return nil, err
	}

	key, url, err := s.store.UploadBase64(ctx, imageBase64, "meal-photos")
	if err != nil {
		markFailed(s.captures, s.events, userID, sess.ID, fmt.Sprintf("artifact upload failed: %v", err))
		return s.captures.Get(userID, sess.ID)
	}
	if err := s.captures.SetArtifact(sess.ID, key, url); err != nil {
		markFailed(s.captures, s.events, userID, sess.ID, fmt.Sprintf("artifact record failed: %v", err))
		return nil, err
	}
	sess.ArtifactKey, sess.ArtifactURL = key, url

	return s.process(ctx, sess)
}

// Retry re-runs analysis for a terminal session against the same artifact,
// under a brand-new session row.
func (s *PhotoService) Retry(ctx context.Context, userID, sessionID uint) (*models.CaptureSession, error) {
	sess, err := s.captures.Retry(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.captures.BeginProcessing(sess.ID); err != nil {
		return nil, err
	}
	return s.process(ctx, sess)
}

func (s *PhotoService) process(ctx context.Context, sess *models.CaptureSession) (*models.CaptureSession, error) {
	img := providers.ImageRef{
		Bucket: s.store.Bucket(),
		Key:    sess.ArtifactKey,
		URL:    sess.ArtifactURL,
	}
	dets, used := s.chain.Analyze(ctx, img)

	items := make([]models.DetectedItem, len(dets))
	var missing []int
	var names []string
	for i, d := range dets {
		items[i] = models.DetectedItem{
			Name:       d.Label,
			Confidence: d.Confidence,
			Quantity:   1,
			Unit:       "serving",
		}
		if d.Macros != nil {
			items[i].Calories = d.Macros.Calories
			items[i].Protein = d.Macros.Protein
			items[i].Carbs = d.Macros.Carbs
			items[i].Fats = d.Macros.Fats
		} else {
			missing = append(missing, i)
			names = append(names, d.Label)
		}
	}

	// Fan out nutrition lookups for label-only detections; results come back
	// in detection order.
	if len(names) > 0 {
		resolved := s.resolver.ResolveAll(ctx, names)
		for j, i := range missing {
			items[i].Calories = resolved[j].Calories
			items[i].Protein = resolved[j].Protein
			items[i].Carbs = resolved[j].Carbs
			items[i].Fats = resolved[j].Fats
		}
	}

	result := buildAnalysis(items, used)
	if err := s.captures.RecordResult(sess.ID, result); err != nil {
		markFailed(s.captures, s.events, sess.UserID, sess.ID, fmt.Sprintf("failed to persist analysis: %v", err))
		return nil, err
	}

	logger.Info("photo capture analyzed",
		zap.Uint("session", sess.ID),
		zap.String("provider", used),
		zap.Int("items", len(items)),
		zap.Float64("confidence", result.ConfidenceScore))
	s.events.StatusChanged(sess.UserID, sess.ID, models.CaptureStatusCompleted, used)

	return s.captures.Get(sess.UserID, sess.ID)
}
