package services

import (
	"errors"
	"fmt"
	"time"

	"backend/logger"
	"backend/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ConversionService turns a completed capture session into canonical
// nutrition-log rows. Conversion is idempotent per session: the log header,
// its items and the session link are written in one transaction, guarded by a
// compare-and-set on the session's nutrition_log_id, and a repeated call
// returns the record created the first time.
type ConversionService struct {
	db     *gorm.DB
	events *CaptureEvents
}

func NewConversionService(db *gorm.DB, events *CaptureEvents) *ConversionService {
	return &ConversionService{db: db, events: events}
}

func (s *ConversionService) Convert(userID, sessionID uint, mealType string, logDate time.Time) (*models.NutritionLog, error) {
	if mealType == "" {
		return nil, errors.New("meal_type is required")
	}

	var sess models.CaptureSession
	err := s.db.
		Preload("Result").
		Preload("Verification").
		Where("id = ? AND user_id = ?", sessionID, userID).
		First(&sess).Error
	if err != nil {
		return nil, err
	}

	if sess.NutritionLogID != nil {
		return s.loadLog(userID, *sess.NutritionLogID)
	}
	if sess.Status != models.CaptureStatusCompleted || sess.Result == nil {
		return nil, fmt.Errorf("%w: session %d is %s", ErrSessionNotCompleted, sessionID, sess.Status)
	}

	log := &models.NutritionLog{
		UserID:   userID,
		MealType: mealType,
		LogDate:  logDate,
		Items:    buildMealItems(&sess),
	}

	raced := false
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(log).Error; err != nil {
			return err
		}
		res := tx.Model(&models.CaptureSession{}).
			Where("id = ? AND nutrition_log_id IS NULL", sessionID).
			Update("nutrition_log_id", log.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Another conversion won the race; roll back ours.
			raced = true
			return errors.New("session already converted")
		}
		return nil
	})
	if err != nil {
		if raced {
			if err := s.db.First(&sess, sessionID).Error; err != nil {
				return nil, err
			}
			if sess.NutritionLogID != nil {
				return s.loadLog(userID, *sess.NutritionLogID)
			}
		}
		return nil, err
	}

	logger.Info("capture session converted",
		zap.Uint("session", sessionID),
		zap.Uint("nutrition_log", log.ID),
		zap.Int("items", len(log.Items)))
	s.events.Converted(userID, sessionID, log.ID)

	return log, nil
}

// ListLogs returns the user's nutrition logs with items, newest first.
func (s *ConversionService) ListLogs(userID uint, limit, offset int) ([]models.NutritionLog, error) {
	if limit <= 0 {
		limit = 20
	}
	var logs []models.NutritionLog
	err := s.db.
		Preload("Items").
		Where("user_id = ?", userID).
		Order("log_date DESC, created_at DESC").
		Limit(limit).Offset(offset).
		Find(&logs).Error
	return logs, err
}

func (s *ConversionService) loadLog(userID, logID uint) (*models.NutritionLog, error) {
	var log models.NutritionLog
	err := s.db.
		Preload("Items").
		Where("id = ? AND user_id = ?", logID, userID).
		First(&log).Error
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// buildMealItems applies the value selection rule: user-edited finals win
// over machine estimates, spread across items in proportion to the estimated
// per-item split (equal split when the estimated total is zero).
func buildMealItems(sess *models.CaptureSession) []models.MealItem {
	result := sess.Result
	source := models.MealSourcePhoto
	if sess.Kind == models.CaptureKindVoice {
		source = models.MealSourceVoice
	}
	sid := sess.ID

	edited := sess.Verification != nil && sess.Verification.UserEdited

	items := make([]models.MealItem, len(result.DetectedItems))
	for i, det := range result.DetectedItems {
		items[i] = models.MealItem{
			UserID:           sess.UserID,
			FoodName:         det.Name,
			Quantity:         det.Quantity,
			Unit:             det.Unit,
			Calories:         det.Calories,
			Protein:          det.Protein,
			Carbs:            det.Carbs,
			Fats:             det.Fats,
			Source:           source,
			CaptureSessionID: &sid,
		}
	}
	if !edited {
		return items
	}

	v := sess.Verification
	finalCal := finalOr(v.FinalCalories, result.TotalCalories)
	finalProtein := finalOr(v.FinalProtein, result.TotalProtein)
	finalCarbs := finalOr(v.FinalCarbs, result.TotalCarbs)
	finalFats := finalOr(v.FinalFats, result.TotalFats)

	// The user can correct totals even when analysis found nothing; carry the
	// finals on a single aggregated item so they are not lost.
	if len(items) == 0 {
		return []models.MealItem{{
			UserID:           sess.UserID,
			FoodName:         "Meal",
			Quantity:         1,
			Unit:             "serving",
			Calories:         finalCal,
			Protein:          finalProtein,
			Carbs:            finalCarbs,
			Fats:             finalFats,
			Source:           source,
			CaptureSessionID: &sid,
		}}
	}

	for i, det := range result.DetectedItems {
		items[i].Calories = distribute(finalCal, det.Calories, result.TotalCalories, len(items))
		items[i].Protein = distribute(finalProtein, det.Protein, result.TotalProtein, len(items))
		items[i].Carbs = distribute(finalCarbs, det.Carbs, result.TotalCarbs, len(items))
		items[i].Fats = distribute(finalFats, det.Fats, result.TotalFats, len(items))
	}
	return items
}

func finalOr(v *float64, fallback float64) float64 {
	if v != nil {
		return *v
	}
	return fallback
}

func distribute(final, itemEstimate, totalEstimate float64, n int) float64 {
	if totalEstimate == 0 {
		return final / float64(n)
	}
	return final * itemEstimate / totalEstimate
}
