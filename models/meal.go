package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	MealSourcePhoto  = "photo"
	MealSourceVoice  = "voice"
	MealSourceManual = "manual"
)

// One NutritionLog per logged meal (breakfast/lunch/…). Created exactly once
// per capture session by the conversion service; immutable afterwards.
type NutritionLog struct {
	gorm.Model
	UserID   uint      `gorm:"index;not null"`
	MealType string    `gorm:"type:varchar(16)"` // "breakfast"|"lunch"|"dinner"|"snack"
	LogDate  time.Time `gorm:"index"`
	Items    []MealItem
}

// Each MealItem stores the nutrition snapshot for one food.
type MealItem struct {
	gorm.Model
	NutritionLogID uint
	UserID         uint `gorm:"index"`

	FoodName string `gorm:"not null"`
	Quantity float64
	Unit     string

	Calories float64
	Protein  float64
	Carbs    float64
	Fats     float64

	Source           string `gorm:"type:varchar(16)"` // "photo"|"voice"|"manual"
	CaptureSessionID *uint  `gorm:"index"`
}
