package config

import (
	"fmt"
	"os"

	"backend/models"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("no .env file found, relying on environment")
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		panic(fmt.Sprintf("failed to connect to database: %v", err))
	}
	DB = db

	if err := Migrate(DB); err != nil {
		panic(fmt.Sprintf("AutoMigrate failed: %v", err))
	}
}

// Migrate runs schema migration for all models. Split out so tests can run it
// against their own database.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.UserDevice{},
		&models.FoodReference{},
		&models.CaptureSession{},
		&models.AnalysisResult{},
		&models.UserVerification{},
		&models.NutritionLog{},
		&models.MealItem{},
	)
}
