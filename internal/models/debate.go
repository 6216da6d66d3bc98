package models

import "time"

// Debate is a titled prompt that collects responses until EndAt.
// LeaderID is written only by the leader resolver.
type Debate struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	Title       string           `gorm:"not null" json:"title"`
	Summary     string           `gorm:"type:text;not null" json:"summary"`
	CreatedByID uint             `gorm:"not null;index" json:"created_by_id"`
	CreatedBy   User             `gorm:"foreignKey:CreatedByID" json:"-"`
	EndAt       time.Time        `gorm:"not null;index" json:"end_at"`
	PictureURL  *string          `json:"picture_url"`
	LeaderID    *uint            `gorm:"index" json:"leader_id"`
	Leader      *User            `gorm:"foreignKey:LeaderID" json:"-"`
	Categories  []DebateCategory `gorm:"many2many:debate_debate_categories;" json:"-"`
	CreatedAt   time.Time        `json:"created_at"`
}

// DebateCategory tags debates; names are short labels.
type DebateCategory struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:30;uniqueIndex;not null" json:"name"`
}
