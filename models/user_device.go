package models

import "time"

// UserDevice is one registered push target (an SNS platform endpoint) for a
// user. Capture completion notices fan out to every enabled device.
type UserDevice struct {
	ID          uint      `gorm:"primaryKey"`
	UserID      uint      `gorm:"index"`
	Platform    string    `gorm:"size:16"` // "android" | "ios"
	TokenHash   string    `gorm:"size:64"`
	EndpointARN string    `gorm:"size:256"`
	Enabled     bool      `gorm:"default:true"`
	UpdatedAt   time.Time
	CreatedAt   time.Time
}
