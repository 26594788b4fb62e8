package services

import (
	"context"
	"errors"
	"fmt"

	"backend/logger"
	"backend/models"
	"backend/providers"

	"go.uber.org/zap"
)

// VoiceService runs the voice capture pipeline: optional audio upload, parse
// the transcribed utterance through the parser chain, resolve macros per
// parsed food, persist.
type VoiceService struct {
	captures *CaptureService
	parsers  *providers.ParserChain
	resolver *NutritionResolver
	store    ArtifactStore
	events   *CaptureEvents
}

func NewVoiceService(captures *CaptureService, parsers *providers.ParserChain, resolver *NutritionResolver, store ArtifactStore, events *CaptureEvents) *VoiceService {
	return &VoiceService{
		captures: captures,
		parsers:  parsers,
		resolver: resolver,
		store:    store,
		events:   events,
	}
}

// VoiceCaptureResult is the pipeline outcome plus the meal type inferred from
// the utterance, if any; the caller supplies one at conversion time otherwise.
type VoiceCaptureResult struct {
	Session          *models.CaptureSession `json:"session"`
	InferredMealType string                 `json:"inferred_meal_type,omitempty"`
}

// Capture ingests a transcribed utterance (audio is optional) and runs the
// full pipeline.
func (s *VoiceService) Capture(ctx context.Context, userID uint, transcription, audioBase64 string) (*VoiceCaptureResult, error) {
	if transcription == "" {
		return nil, errors.New("transcription is required")
	}

	sess, err := s.captures.Create(NewCapture{
		UserID:        userID,
		Kind:          models.CaptureKindVoice,
		Transcription: transcription,
	})
	if err != nil {
		return nil, err
	}
	if err := s.captures.BeginProcessing(sess.ID); err != nil {
		return nil, err
	}

	if audioBase64 != "" {
		key, url, err := s.store.UploadBase64(ctx, audioBase64, "voice-logs")
		if err != nil {
			markFailed(s.captures, s.events, userID, sess.ID, fmt.Sprintf("artifact upload failed: %v", err))
			failed, gerr := s.captures.Get(userID, sess.ID)
			if gerr != nil {
				return nil, gerr
			}
			return &VoiceCaptureResult{Session: failed}, nil
		}
		if err := s.captures.SetArtifact(sess.ID, key, url); err != nil {
			markFailed(s.captures, s.events, userID, sess.ID, fmt.Sprintf("artifact record failed: %v", err))
			return nil, err
		}
	}

	return s.process(ctx, sess)
}

// Retry re-parses the transcription of a terminal session under a new row.
func (s *VoiceService) Retry(ctx context.Context, userID, sessionID uint) (*VoiceCaptureResult, error) {
	sess, err := s.captures.Retry(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.captures.BeginProcessing(sess.ID); err != nil {
		return nil, err
	}
	return s.process(ctx, sess)
}

func (s *VoiceService) process(ctx context.Context, sess *models.CaptureSession) (*VoiceCaptureResult, error) {
	parsed, used := s.parsers.Parse(ctx, sess.Transcription)

	names := make([]string, len(parsed.Foods))
	for i, f := range parsed.Foods {
		names[i] = f.Name
	}
	resolved := s.resolver.ResolveAll(ctx, names)

	items := make([]models.DetectedItem, len(parsed.Foods))
	for i, f := range parsed.Foods {
		qty := f.Quantity
		if qty <= 0 {
			qty = 1
		}
		unit := f.Unit
		if unit == "" {
			unit = "serving"
		}
		m := resolved[i]
		items[i] = models.DetectedItem{
			Name:       f.Name,
			Confidence: parsed.Confidence,
			Quantity:   qty,
			Unit:       unit,
			Calories:   m.Calories * qty,
			Protein:    m.Protein * qty,
			Carbs:      m.Carbs * qty,
			Fats:       m.Fats * qty,
		}
	}

	result := buildAnalysis(items, used)
	if err := s.captures.RecordResult(sess.ID, result); err != nil {
		markFailed(s.captures, s.events, sess.UserID, sess.ID, fmt.Sprintf("failed to persist analysis: %v", err))
		return nil, err
	}

	logger.Info("voice capture parsed",
		zap.Uint("session", sess.ID),
		zap.String("parser", used),
		zap.Int("foods", len(items)),
		zap.String("meal_type", parsed.MealType))
	s.events.StatusChanged(sess.UserID, sess.ID, models.CaptureStatusCompleted, used)

	full, err := s.captures.Get(sess.UserID, sess.ID)
	if err != nil {
		return nil, err
	}
	return &VoiceCaptureResult{Session: full, InferredMealType: parsed.MealType}, nil
}
