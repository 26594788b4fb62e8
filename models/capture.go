package models

import (
	"time"

	"gorm.io/gorm"
)

// CaptureSession lifecycle. Terminal states are never re-entered; a retry
// creates a new session row.
const (
	CaptureStatusPending    = "pending"
	CaptureStatusProcessing = "processing"
	CaptureStatusCompleted  = "completed"
	CaptureStatusFailed     = "failed"
)

const (
	CaptureKindPhoto = "photo"
	CaptureKindVoice = "voice"
)

// One CaptureSession per user-initiated meal capture (photo or voice).
type CaptureSession struct {
	gorm.Model
	UserID uint   `gorm:"index;not null"`
	Kind   string `gorm:"type:varchar(16);not null"` // "photo" | "voice"

	ArtifactKey string // storage key; empty for voice without audio
	ArtifactURL string

	Transcription string // voice only

	Status       string `gorm:"type:varchar(16);not null;default:pending;index"`
	ErrorMessage string // set iff Status = failed
	ProcessedAt  *time.Time

	// Set once by the conversion service, in the same transaction as the
	// canonical log rows. Acts as the compare-and-set guard against a retried
	// conversion inserting duplicates.
	NutritionLogID *uint `gorm:"uniqueIndex"`

	Result       *AnalysisResult   `gorm:"foreignKey:SessionID"`
	Verification *UserVerification `gorm:"foreignKey:SessionID"`
}

// Macros is a per-item nutrition estimate.
type Macros struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fats     float64 `json:"fats"`
}

// DetectedItem is one food identified during analysis. Order within
// AnalysisResult.DetectedItems is the provider's reported order.
type DetectedItem struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Quantity   float64 `json:"quantity"`
	Unit       string  `json:"unit"`
	Calories   float64 `json:"estimated_calories"`
	Protein    float64 `json:"estimated_protein_g"`
	Carbs      float64 `json:"estimated_carbs_g"`
	Fats       float64 `json:"estimated_fats_g"`
}

// AnalysisResult exists iff its session completed.
type AnalysisResult struct {
	gorm.Model
	SessionID uint `gorm:"uniqueIndex;not null"`

	DetectedItems []DetectedItem `gorm:"serializer:json"`

	TotalCalories float64 // rounded to nearest kcal
	TotalProtein  float64 // grams, one decimal
	TotalCarbs    float64
	TotalFats     float64

	ConfidenceScore float64 // mean of item confidences, 0 when empty
	ProviderUsed    string  `gorm:"type:varchar(32)"`
}

// UserVerification is attached when the user reviews a completed session.
// Final* values are present only when UserEdited.
type UserVerification struct {
	gorm.Model
	SessionID uint `gorm:"uniqueIndex;not null"`

	Verified   bool
	UserEdited bool

	FinalCalories *float64
	FinalProtein  *float64
	FinalCarbs    *float64
	FinalFats     *float64
}
