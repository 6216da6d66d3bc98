package models

import (
	"fmt"
	"strings"
	"time"
)

// VoteType is the direction of a vote.
type VoteType string

const (
	VoteAgree    VoteType = "agree"
	VoteDisagree VoteType = "disagree"
)

// ParseVoteType accepts agree or disagree in any case.
func ParseVoteType(raw string) (VoteType, error) {
	switch VoteType(strings.ToLower(strings.TrimSpace(raw))) {
	case VoteAgree:
		return VoteAgree, nil
	case VoteDisagree:
		return VoteDisagree, nil
	default:
		return "", NewValidationError(fmt.Sprintf("vote_type must be %q or %q", VoteAgree, VoteDisagree))
	}
}

// Vote is a voter's single active stance on a response.
// At most one row exists per (CreatedByID, ResponseID).
type Vote struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ResponseID  uint      `gorm:"not null;uniqueIndex:idx_vote_voter_response,priority:2;index" json:"response_id"`
	Response    *Response `gorm:"foreignKey:ResponseID" json:"-"`
	CreatedByID uint      `gorm:"not null;uniqueIndex:idx_vote_voter_response,priority:1" json:"created_by_id"`
	CreatedBy   User      `gorm:"foreignKey:CreatedByID" json:"-"`
	VoteType    VoteType  `gorm:"type:varchar(10);not null" json:"vote_type"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
