package models

import "time"

// Response is a user's answer to a debate. Its body is immutable.
type Response struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Body        string    `gorm:"type:text;not null" json:"body"`
	DebateID    uint      `gorm:"not null;index" json:"debate_id"`
	Debate      *Debate   `gorm:"foreignKey:DebateID" json:"-"`
	CreatedByID uint      `gorm:"not null;index" json:"created_by_id"`
	CreatedBy   User      `gorm:"foreignKey:CreatedByID" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}
