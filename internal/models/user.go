// Package models contains data structures for the debate domain.
package models

import "time"

// UsernameMaxLength bounds User.Username.
const UsernameMaxLength = 30

// User is a debate participant. Identity is immutable once created.
type User struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Username          string    `gorm:"size:30;uniqueIndex;not null" json:"username"`
	ProfilePictureURL *string   `json:"profile_picture_url,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}
