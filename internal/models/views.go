package models

import "time"

// Tally is the agree/disagree count of one response's active votes.
type Tally struct {
	Agree    int64 `json:"agree"`
	Disagree int64 `json:"disagree"`
}

// Difference is agree minus disagree.
func (t Tally) Difference() int64 {
	return t.Agree - t.Disagree
}

// Standing is one response's vote difference within its debate.
type Standing struct {
	ResponseID uint
	AuthorID   uint
	Difference int64
}

// DebateRecord is the stored projection of a debate used by the list and
// detail reads. EndAt stays a timestamp so the display string can be
// computed at read time.
type DebateRecord struct {
	ID            uint      `json:"id"`
	Title         string    `json:"title"`
	CategoryNames []string  `json:"category_names"`
	Summary       string    `json:"summary"`
	PictureURL    *string   `json:"picture_url"`
	EndAt         time.Time `json:"end_at"`
	CreatedBy     string    `json:"created_by"`
	Leader        *string   `json:"leader"`
	ResponseCount int64     `json:"response_count"`
}

// DebateSummary is a list entry as rendered by the API.
type DebateSummary struct {
	ID            uint     `json:"id"`
	Title         string   `json:"title"`
	CategoryNames []string `json:"category_names"`
	Summary       string   `json:"summary"`
	PictureURL    *string  `json:"picture_url"`
	EndAt         string   `json:"end_at"`
	CreatedBy     string   `json:"created_by"`
	Leader        *string  `json:"leader"`
	ResponseCount int64    `json:"response_count"`
}

// DebateDetail is a single debate with its responses for one viewer.
type DebateDetail struct {
	DebateSummary
	Responses []ResponseView `json:"responses"`
}

// ResponseView is a response with its tally and the viewer's vote flags.
type ResponseView struct {
	ID              uint   `json:"id"`
	DebateID        uint   `json:"debate_id"`
	Body            string `json:"body"`
	CreatedBy       string `json:"created_by"`
	Agree           int64  `json:"agree"`
	Disagree        int64  `json:"disagree"`
	AgreeEnabled    bool   `json:"agreeEnabled"`
	DisagreeEnabled bool   `json:"disagreeEnabled"`
}

// VoteState is one direction of a vote result.
type VoteState struct {
	Count   int64 `json:"count"`
	Enabled bool  `json:"enabled"`
}

// VoteResult is returned after a vote mutation. VoteID is the id of the row
// that was created, updated or removed.
type VoteResult struct {
	VoteID   uint      `json:"vote_id"`
	Action   string    `json:"action"`
	Agree    VoteState `json:"agree"`
	Disagree VoteState `json:"disagree"`
	LeaderID *uint     `json:"leader_id"`
}
