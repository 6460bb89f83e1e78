package model

import "time"

// User represents an account that can sign in to the application.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"size:64;uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"size:120;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"size:256;not null"` // Never expose in JSON
	IsActive     bool      `json:"is_active" gorm:"not null"`
	IsAdmin      bool      `json:"is_admin" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
}
