package models

import "gorm.io/gorm"

// FoodReference is the local reference nutrition table, the first tier of the
// nutrition resolver. Values are per serving.
type FoodReference struct {
	gorm.Model
	FoodName string `gorm:"uniqueIndex;not null"`
	Calories float64
	Protein  float64
	Carbs    float64
	Fats     float64
}
