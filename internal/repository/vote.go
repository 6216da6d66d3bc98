package repository

import (
	"context"
	"errors"

	"rostrum/internal/models"
	"rostrum/internal/observability"

	"gorm.io/gorm"
)

// VoteRepository is the vote ledger: at most one row per (voter, response).
type VoteRepository interface {
	WithTx(tx *gorm.DB) VoteRepository
	FindByVoterAndResponse(ctx context.Context, voterID, responseID uint) (*models.Vote, error)
	Create(ctx context.Context, vote *models.Vote) error
	UpdateType(ctx context.Context, voteID uint, voteType models.VoteType) error
	Delete(ctx context.Context, voteID uint) error
	Tally(ctx context.Context, responseID uint) (models.Tally, error)
	ViewerVotes(ctx context.Context, viewerID, debateID uint) (map[uint]models.VoteType, error)
}

type voteRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewVoteRepository returns a new VoteRepository implementation.
func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db, log: observability.NewRepoLogger("votes")}
}

func (r *voteRepository) WithTx(tx *gorm.DB) VoteRepository {
	return &voteRepository{db: tx, log: r.log}
}

// FindByVoterAndResponse returns nil, nil when the voter has no vote on the response.
func (r *voteRepository) FindByVoterAndResponse(ctx context.Context, voterID, responseID uint) (*models.Vote, error) {
	var vote models.Vote
	err := r.db.WithContext(ctx).
		Where("created_by_id = ? AND response_id = ?", voterID, responseID).
		Take(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

func (r *voteRepository) Create(ctx context.Context, vote *models.Vote) error {
	if err := r.db.WithContext(ctx).Create(vote).Error; err != nil {
		return err
	}
	r.log.LogCreate(ctx, map[string]interface{}{
		"vote_id":     vote.ID,
		"response_id": vote.ResponseID,
		"vote_type":   string(vote.VoteType),
	})
	return nil
}

func (r *voteRepository) UpdateType(ctx context.Context, voteID uint, voteType models.VoteType) error {
	res := r.db.WithContext(ctx).Model(&models.Vote{}).
		Where("id = ?", voteID).
		Update("vote_type", voteType)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Vote", voteID)
	}
	r.log.LogUpdate(ctx, map[string]interface{}{"vote_id": voteID, "vote_type": string(voteType)})
	return nil
}

func (r *voteRepository) Delete(ctx context.Context, voteID uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Vote{}, voteID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Vote", voteID)
	}
	r.log.LogDelete(ctx, map[string]interface{}{"vote_id": voteID})
	return nil
}

// Tally counts the active votes on a response. It reads through r.db so a
// transaction-bound repository sees its own writes.
func (r *voteRepository) Tally(ctx context.Context, responseID uint) (models.Tally, error) {
	var tally models.Tally
	err := r.db.WithContext(ctx).Model(&models.Vote{}).
		Select(
			"COALESCE(SUM(CASE WHEN vote_type = ? THEN 1 ELSE 0 END), 0) AS agree, "+
				"COALESCE(SUM(CASE WHEN vote_type = ? THEN 1 ELSE 0 END), 0) AS disagree",
			models.VoteAgree, models.VoteDisagree,
		).
		Where("response_id = ?", responseID).
		Scan(&tally).Error
	return tally, err
}

// ViewerVotes maps response id to the viewer's vote type for one debate.
func (r *voteRepository) ViewerVotes(ctx context.Context, viewerID, debateID uint) (map[uint]models.VoteType, error) {
	out := make(map[uint]models.VoteType)
	if viewerID == 0 {
		return out, nil
	}

	var rows []struct {
		ResponseID uint
		VoteType   models.VoteType
	}
	err := r.db.WithContext(ctx).Table("votes").
		Select("votes.response_id, votes.vote_type").
		Joins("JOIN responses ON responses.id = votes.response_id").
		Where("responses.debate_id = ? AND votes.created_by_id = ?", debateID, viewerID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ResponseID] = row.VoteType
	}
	return out, nil
}
