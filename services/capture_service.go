package services

import (
	"errors"
	"fmt"
	"time"

	"backend/models"

	"gorm.io/gorm"
)

// CaptureService owns the capture session state machine:
// pending → processing → {completed | failed}. Terminal states are never
// re-entered; Retry creates a fresh session instead.
type CaptureService struct {
	db *gorm.DB
}

func NewCaptureService(db *gorm.DB) *CaptureService {
	return &CaptureService{db: db}
}

// NewCapture carries the fields for session creation.
type NewCapture struct {
	UserID        uint
	Kind          string // models.CaptureKindPhoto | models.CaptureKindVoice
	ArtifactKey   string
	ArtifactURL   string
	Transcription string
}

func (s *CaptureService) Create(nc NewCapture) (*models.CaptureSession, error) {
	if nc.Kind != models.CaptureKindPhoto && nc.Kind != models.CaptureKindVoice {
		return nil, fmt.Errorf("unknown capture kind %q", nc.Kind)
	}
	sess := &models.CaptureSession{
		UserID:        nc.UserID,
		Kind:          nc.Kind,
		ArtifactKey:   nc.ArtifactKey,
		ArtifactURL:   nc.ArtifactURL,
		Transcription: nc.Transcription,
		Status:        models.CaptureStatusPending,
	}
	if err := s.db.Create(sess).Error; err != nil {
		return nil, err
	}
	return sess, nil
}

// BeginProcessing moves pending → processing. The conditional update makes it
// at-most-once: a concurrent duplicate trigger loses the race and gets
// ErrInvalidStateTransition.
func (s *CaptureService) BeginProcessing(sessionID uint) error {
	res := s.db.Model(&models.CaptureSession{}).
		Where("id = ? AND status = ?", sessionID, models.CaptureStatusPending).
		Update("status", models.CaptureStatusProcessing)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: session %d is not pending", ErrInvalidStateTransition, sessionID)
	}
	return nil
}

// SetArtifact records the uploaded artifact on a processing session.
func (s *CaptureService) SetArtifact(sessionID uint, key, url string) error {
	return s.db.Model(&models.CaptureSession{}).
		Where("id = ?", sessionID).
		Updates(map[string]any{"artifact_key": key, "artifact_url": url}).Error
}

// RecordResult moves processing → completed and persists the analysis result.
// Calling it twice with an identical result is a no-op; a second call with a
// different result is rejected as a programming error upstream.
func (s *CaptureService) RecordResult(sessionID uint, result *models.AnalysisResult) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var sess models.CaptureSession
		if err := tx.First(&sess, sessionID).Error; err != nil {
			return err
		}

		switch sess.Status {
		case models.CaptureStatusProcessing:
			result.SessionID = sessionID
			if err := tx.Create(result).Error; err != nil {
				return err
			}
			now := time.Now()
			res := tx.Model(&models.CaptureSession{}).
				Where("id = ? AND status = ?", sessionID, models.CaptureStatusProcessing).
				Updates(map[string]any{"status": models.CaptureStatusCompleted, "processed_at": now})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: session %d left processing concurrently", ErrInvalidStateTransition, sessionID)
			}
			return nil

		case models.CaptureStatusCompleted:
			var existing models.AnalysisResult
			if err := tx.Where("session_id = ?", sessionID).First(&existing).Error; err != nil {
				return err
			}
			if sameResult(&existing, result) {
				return nil
			}
			return fmt.Errorf("%w: session %d", ErrResultMismatch, sessionID)

		default:
			return fmt.Errorf("%w: session %d is %s", ErrInvalidStateTransition, sessionID, sess.Status)
		}
	})
}

// RecordFailure moves processing → failed. Reserved for infrastructure-level
// failures; recognition-quality problems degrade inside the provider chain
// and never reach this path.
func (s *CaptureService) RecordFailure(sessionID uint, message string) error {
	if message == "" {
		return errors.New("failure message is required")
	}
	now := time.Now()
	res := s.db.Model(&models.CaptureSession{}).
		Where("id = ? AND status = ?", sessionID, models.CaptureStatusProcessing).
		Updates(map[string]any{
			"status":        models.CaptureStatusFailed,
			"error_message": message,
			"processed_at":  now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: session %d is not processing", ErrInvalidStateTransition, sessionID)
	}
	return nil
}

// VerificationEdits are the user's corrected totals. Any non-nil field marks
// the verification as edited.
type VerificationEdits struct {
	Calories *float64 `json:"final_calories"`
	Protein  *float64 `json:"final_protein_g"`
	Carbs    *float64 `json:"final_carbs_g"`
	Fats     *float64 `json:"final_fats_g"`
}

func (e *VerificationEdits) empty() bool {
	return e == nil || (e.Calories == nil && e.Protein == nil && e.Carbs == nil && e.Fats == nil)
}

// Verify attaches (or updates) the user verification of a completed session.
func (s *CaptureService) Verify(userID, sessionID uint, verified bool, edits *VerificationEdits) (*models.UserVerification, error) {
	var sess models.CaptureSession
	if err := s.db.Where("id = ? AND user_id = ?", sessionID, userID).First(&sess).Error; err != nil {
		return nil, err
	}
	if sess.Status != models.CaptureStatusCompleted {
		return nil, fmt.Errorf("%w: cannot verify session in status %s", ErrInvalidStateTransition, sess.Status)
	}

	var v models.UserVerification
	err := s.db.Where("session_id = ?", sessionID).First(&v).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, err
	}
	v.SessionID = sessionID
	v.Verified = verified
	if !edits.empty() {
		v.UserEdited = true
		v.FinalCalories = edits.Calories
		v.FinalProtein = edits.Protein
		v.FinalCarbs = edits.Carbs
		v.FinalFats = edits.Fats
	}
	if err := s.db.Save(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// Retry supersedes a terminal session with a fresh pending one carrying the
// same artifact and transcription. The old row is kept untouched.
func (s *CaptureService) Retry(userID, sessionID uint) (*models.CaptureSession, error) {
	var old models.CaptureSession
	if err := s.db.Where("id = ? AND user_id = ?", sessionID, userID).First(&old).Error; err != nil {
		return nil, err
	}
	if old.Status != models.CaptureStatusCompleted && old.Status != models.CaptureStatusFailed {
		return nil, fmt.Errorf("%w: can only retry a terminal session, got %s", ErrInvalidStateTransition, old.Status)
	}
	return s.Create(NewCapture{
		UserID:        old.UserID,
		Kind:          old.Kind,
		ArtifactKey:   old.ArtifactKey,
		ArtifactURL:   old.ArtifactURL,
		Transcription: old.Transcription,
	})
}

func (s *CaptureService) Get(userID, sessionID uint) (*models.CaptureSession, error) {
	var sess models.CaptureSession
	err := s.db.
		Preload("Result").
		Preload("Verification").
		Where("id = ? AND user_id = ?", sessionID, userID).
		First(&sess).Error
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *CaptureService) List(userID uint, limit, offset int) ([]models.CaptureSession, error) {
	if limit <= 0 {
		limit = 20
	}
	var sessions []models.CaptureSession
	err := s.db.
		Preload("Result").
		Preload("Verification").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&sessions).Error
	return sessions, err
}

func sameResult(a, b *models.AnalysisResult) bool {
	if a.ProviderUsed != b.ProviderUsed ||
		a.ConfidenceScore != b.ConfidenceScore ||
		a.TotalCalories != b.TotalCalories ||
		a.TotalProtein != b.TotalProtein ||
		a.TotalCarbs != b.TotalCarbs ||
		a.TotalFats != b.TotalFats ||
		len(a.DetectedItems) != len(b.DetectedItems) {
		return false
	}
	for i := range a.DetectedItems {
		if a.DetectedItems[i] != b.DetectedItems[i] {
			return false
		}
	}
	return true
}
