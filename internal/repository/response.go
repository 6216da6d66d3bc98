package repository

import (
	"context"
	"errors"

	"rostrum/internal/models"
	"rostrum/internal/observability"

	"gorm.io/gorm"
)

// ResponseRepository defines persistence operations for debate responses.
type ResponseRepository interface {
	WithTx(tx *gorm.DB) ResponseRepository
	Create(ctx context.Context, response *models.Response) error
	GetByID(ctx context.Context, id uint) (*models.Response, error)
	ListByDebate(ctx context.Context, debateID uint) ([]models.ResponseView, error)
	Standings(ctx context.Context, debateID uint) ([]models.Standing, error)
}

type responseRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewResponseRepository returns a new ResponseRepository implementation.
func NewResponseRepository(db *gorm.DB) ResponseRepository {
	return &responseRepository{db: db, log: observability.NewRepoLogger("responses")}
}

func (r *responseRepository) WithTx(tx *gorm.DB) ResponseRepository {
	return &responseRepository{db: tx, log: r.log}
}

func (r *responseRepository) Create(ctx context.Context, response *models.Response) error {
	if err := r.db.WithContext(ctx).Omit("Debate", "CreatedBy").Create(response).Error; err != nil {
		return err
	}
	r.log.LogCreate(ctx, map[string]interface{}{
		"response_id": response.ID,
		"debate_id":   response.DebateID,
	})
	return nil
}

func (r *responseRepository) GetByID(ctx context.Context, id uint) (*models.Response, error) {
	var response models.Response
	if err := r.db.WithContext(ctx).First(&response, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Response", id)
		}
		return nil, err
	}
	return &response, nil
}

// ListByDebate returns the debate's responses with their tallies, ordered by id.
// Vote-enabled flags are left for the caller to fill per viewer.
func (r *responseRepository) ListByDebate(ctx context.Context, debateID uint) ([]models.ResponseView, error) {
	defer observability.TrackQuery("list", "responses")()

	views := make([]models.ResponseView, 0)
	err := r.db.WithContext(ctx).Table("responses").
		Select(
			"responses.id, responses.debate_id, responses.body, users.username AS created_by, "+
				"COALESCE(SUM(CASE WHEN votes.vote_type = ? THEN 1 ELSE 0 END), 0) AS agree, "+
				"COALESCE(SUM(CASE WHEN votes.vote_type = ? THEN 1 ELSE 0 END), 0) AS disagree",
			models.VoteAgree, models.VoteDisagree,
		).
		Joins("JOIN users ON users.id = responses.created_by_id").
		Joins("LEFT JOIN votes ON votes.response_id = responses.id").
		Where("responses.debate_id = ?", debateID).
		Group("responses.id, responses.debate_id, responses.body, users.username").
		Order("responses.id ASC").
		Scan(&views).Error
	if err != nil {
		return nil, err
	}
	return views, nil
}

// Standings returns every response's vote difference for one debate.
// Responses without votes are included with a difference of zero.
func (r *responseRepository) Standings(ctx context.Context, debateID uint) ([]models.Standing, error) {
	var standings []models.Standing
	err := r.db.WithContext(ctx).Table("responses").
		Select(
			"responses.id AS response_id, responses.created_by_id AS author_id, "+
				"COALESCE(SUM(CASE WHEN votes.vote_type = ? THEN 1 WHEN votes.vote_type = ? THEN -1 ELSE 0 END), 0) AS difference",
			models.VoteAgree, models.VoteDisagree,
		).
		Joins("LEFT JOIN votes ON votes.response_id = responses.id").
		Where("responses.debate_id = ?", debateID).
		Group("responses.id, responses.created_by_id").
		Order("responses.id ASC").
		Scan(&standings).Error
	return standings, err
}
