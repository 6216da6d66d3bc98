package service

import (
	"context"

	"rostrum/internal/cache"
	"rostrum/internal/events"
	"rostrum/internal/middleware"
	"rostrum/internal/models"
	"rostrum/internal/observability"
	"rostrum/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// Vote actions reported in results, events and metrics.
const (
	VoteActionCreated = "created"
	VoteActionUpdated = "updated"
	VoteActionDeleted = "deleted"
)

// DefaultVoteMaxRetries bounds how often a vote is re-run after a
// serialization failure or deadlock.
const DefaultVoteMaxRetries = 3

type CastVoteInput struct {
	VoterID    uint
	ResponseID uint
	VoteType   models.VoteType
}

// VoteService applies vote mutations together with the leader recompute
// they trigger.
type VoteService struct {
	db         *gorm.DB
	votes      repository.VoteRepository
	responses  repository.ResponseRepository
	debates    repository.DebateRepository
	leaders    *LeaderService
	publish    publishers
	maxRetries int
}

func NewVoteService(
	db *gorm.DB,
	votes repository.VoteRepository,
	responses repository.ResponseRepository,
	debates repository.DebateRepository,
	leaders *LeaderService,
	maxRetries int,
	sinks ...events.Publisher,
) *VoteService {
	if maxRetries < 0 {
		maxRetries = DefaultVoteMaxRetries
	}
	return &VoteService{
		db:         db,
		votes:      votes,
		responses:  responses,
		debates:    debates,
		leaders:    leaders,
		publish:    publishers(sinks),
		maxRetries: maxRetries,
	}
}

type castOutcome struct {
	result        models.VoteResult
	tally         models.Tally
	debateID      uint
	leaderChanged bool
}

// CastVote toggles the voter's stance on a response. No vote inserts one, the
// same type removes it, and the opposite type flips it in place. The leader of
// the response's debate is recomputed before the transaction commits.
func (s *VoteService) CastVote(ctx context.Context, in CastVoteInput) (*models.VoteResult, error) {
	if in.VoterID == 0 {
		return nil, models.NewValidationError("Voter is required")
	}
	if in.ResponseID == 0 {
		return nil, models.NewValidationError("Response id is required")
	}
	voteType, err := models.ParseVoteType(string(in.VoteType))
	if err != nil {
		return nil, err
	}
	in.VoteType = voteType

	span, ctx := observability.NewSpan(ctx, "vote.cast")
	defer span.End()
	span.AddAttributes(
		attribute.Int64("vote.response_id", int64(in.ResponseID)),
		attribute.String("vote.type", string(in.VoteType)),
	)

	var out castOutcome
	for attempt := 0; ; attempt++ {
		out, err = s.castOnce(ctx, in)
		if err == nil {
			break
		}
		if !repository.IsRetryableConflict(err) {
			span.SetError(err)
			return nil, err
		}
		if attempt >= s.maxRetries {
			span.SetError(err)
			return nil, models.NewConcurrencyError(err)
		}
		observability.VoteRetriesTotal.WithLabelValues("conflict").Inc()
		middleware.Logger.WarnContext(ctx, "retrying vote after conflict",
			"response_id", in.ResponseID, "attempt", attempt+1, "error", err.Error())
	}

	span.AddAttributes(
		attribute.String("vote.action", out.result.Action),
		attribute.Bool("debate.leader_changed", out.leaderChanged),
	)
	s.afterCommit(ctx, in, out)
	return &out.result, nil
}

func (s *VoteService) castOnce(ctx context.Context, in CastVoteInput) (castOutcome, error) {
	var out castOutcome
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		votes := s.votes.WithTx(tx)

		response, err := s.responses.WithTx(tx).GetByID(ctx, in.ResponseID)
		if err != nil {
			return err
		}
		debate, err := s.debates.WithTx(tx).LockForUpdate(ctx, response.DebateID)
		if err != nil {
			return err
		}
		out.debateID = debate.ID

		existing, err := votes.FindByVoterAndResponse(ctx, in.VoterID, in.ResponseID)
		if err != nil {
			return err
		}

		var active *models.VoteType
		switch {
		case existing == nil:
			voteID, err := s.insertVote(ctx, tx, in)
			if err != nil {
				return err
			}
			out.result.VoteID = voteID
			out.result.Action = VoteActionCreated
			active = &in.VoteType
		case existing.VoteType == in.VoteType:
			if err := votes.Delete(ctx, existing.ID); err != nil {
				return err
			}
			out.result.VoteID = existing.ID
			out.result.Action = VoteActionDeleted
		default:
			if err := votes.UpdateType(ctx, existing.ID, in.VoteType); err != nil {
				return err
			}
			out.result.VoteID = existing.ID
			out.result.Action = VoteActionUpdated
			active = &in.VoteType
		}

		leader, changed, err := s.leaders.Recompute(ctx, tx, debate)
		if err != nil {
			return err
		}
		out.result.LeaderID = leader
		out.leaderChanged = changed

		tally, err := votes.Tally(ctx, in.ResponseID)
		if err != nil {
			return err
		}
		out.tally = tally
		out.result.Agree = models.VoteState{Count: tally.Agree, Enabled: active == nil || *active != models.VoteAgree}
		out.result.Disagree = models.VoteState{Count: tally.Disagree, Enabled: active == nil || *active != models.VoteDisagree}
		return nil
	})
	return out, err
}

// insertVote creates the vote under a savepoint. A unique-key collision means
// a row appeared after the lookup; it is retried once as an update.
func (s *VoteService) insertVote(ctx context.Context, tx *gorm.DB, in CastVoteInput) (uint, error) {
	vote := &models.Vote{
		ResponseID:  in.ResponseID,
		CreatedByID: in.VoterID,
		VoteType:    in.VoteType,
	}
	err := tx.Transaction(func(sp *gorm.DB) error {
		return s.votes.WithTx(sp).Create(ctx, vote)
	})
	if err == nil {
		return vote.ID, nil
	}
	if !repository.IsUniqueViolation(err) {
		return 0, err
	}

	observability.VoteRetriesTotal.WithLabelValues("unique_violation").Inc()
	votes := s.votes.WithTx(tx)
	existing, findErr := votes.FindByVoterAndResponse(ctx, in.VoterID, in.ResponseID)
	if findErr != nil {
		return 0, findErr
	}
	if existing == nil {
		return 0, models.NewConflictError("Vote could not be recorded", err)
	}
	if existing.VoteType != in.VoteType {
		if err := votes.UpdateType(ctx, existing.ID, in.VoteType); err != nil {
			return 0, err
		}
	}
	return existing.ID, nil
}

func (s *VoteService) afterCommit(ctx context.Context, in CastVoteInput, out castOutcome) {
	observability.VotesCastTotal.WithLabelValues(out.result.Action).Inc()
	cache.InvalidateDebate(ctx, out.debateID)

	s.publish.emit(ctx, events.DebateEvent{
		Type:       events.TypeVoteCast,
		DebateID:   out.debateID,
		ResponseID: in.ResponseID,
		ActorID:    in.VoterID,
		Action:     out.result.Action,
		Agree:      out.tally.Agree,
		Disagree:   out.tally.Disagree,
		Difference: out.tally.Difference(),
		LeaderID:   out.result.LeaderID,
	})
	if out.leaderChanged {
		observability.LeaderChangesTotal.Inc()
		s.publish.emit(ctx, events.DebateEvent{
			Type:     events.TypeLeaderChanged,
			DebateID: out.debateID,
			LeaderID: out.result.LeaderID,
		})
	}
}
