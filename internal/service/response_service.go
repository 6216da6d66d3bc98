package service

import (
	"context"

	"rostrum/internal/cache"
	"rostrum/internal/events"
	"rostrum/internal/models"
	"rostrum/internal/observability"
	"rostrum/internal/repository"
	"rostrum/internal/validation"

	"gorm.io/gorm"
)

const maxResponseBodyLen = 5000

type CreateResponseInput struct {
	AuthorID uint
	DebateID uint
	Body     string
}

type ResponseService struct {
	db        *gorm.DB
	responses repository.ResponseRepository
	debates   repository.DebateRepository
	users     repository.UserRepository
	leaders   *LeaderService
	publish   publishers
}

func NewResponseService(
	db *gorm.DB,
	responses repository.ResponseRepository,
	debates repository.DebateRepository,
	users repository.UserRepository,
	leaders *LeaderService,
	sinks ...events.Publisher,
) *ResponseService {
	return &ResponseService{
		db:        db,
		responses: responses,
		debates:   debates,
		users:     users,
		leaders:   leaders,
		publish:   publishers(sinks),
	}
}

// CreateResponse adds a response to a debate. A new response starts at a
// difference of zero, so the leader is recomputed in the same transaction.
func (s *ResponseService) CreateResponse(ctx context.Context, in CreateResponseInput) (*models.ResponseView, error) {
	if in.AuthorID == 0 {
		return nil, models.NewValidationError("Author is required")
	}
	if in.DebateID == 0 {
		return nil, models.NewValidationError("debate_id is required")
	}
	body, err := validation.RequiredText("body", in.Body, maxResponseBodyLen)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	response := &models.Response{Body: body, DebateID: in.DebateID, CreatedByID: in.AuthorID}
	var author *models.User
	var leader *uint
	var leaderChanged bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		author, err = s.users.WithTx(tx).GetByID(ctx, in.AuthorID)
		if err != nil {
			return err
		}
		debate, err := s.debates.WithTx(tx).LockForUpdate(ctx, in.DebateID)
		if err != nil {
			return err
		}
		if err := s.responses.WithTx(tx).Create(ctx, response); err != nil {
			return err
		}
		leader, leaderChanged, err = s.leaders.Recompute(ctx, tx, debate)
		return err
	})
	if err != nil {
		return nil, err
	}

	cache.InvalidateDebate(ctx, in.DebateID)
	s.publish.emit(ctx, events.DebateEvent{
		Type:       events.TypeResponseCreated,
		DebateID:   in.DebateID,
		ResponseID: response.ID,
		ActorID:    author.ID,
		LeaderID:   leader,
	})
	if leaderChanged {
		observability.LeaderChangesTotal.Inc()
		s.publish.emit(ctx, events.DebateEvent{
			Type:     events.TypeLeaderChanged,
			DebateID: in.DebateID,
			LeaderID: leader,
		})
	}

	return &models.ResponseView{
		ID:              response.ID,
		DebateID:        response.DebateID,
		Body:            response.Body,
		CreatedBy:       author.Username,
		AgreeEnabled:    true,
		DisagreeEnabled: true,
	}, nil
}
