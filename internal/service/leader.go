package service

import (
	"context"

	"rostrum/internal/cache"
	"rostrum/internal/models"
	"rostrum/internal/observability"
	"rostrum/internal/repository"

	"gorm.io/gorm"
)

// ResolveLeader returns the author of the response holding the strict maximum
// vote difference. Any tie at the maximum, including a tie at zero, and an
// empty debate yield nil. Ties count responses, so two tied responses by the
// same author still leave no leader.
func ResolveLeader(standings []models.Standing) *uint {
	var leader *models.Standing
	tied := false
	for i := range standings {
		s := &standings[i]
		switch {
		case leader == nil || s.Difference > leader.Difference:
			leader = s
			tied = false
		case s.Difference == leader.Difference:
			tied = true
		}
	}
	if leader == nil || tied {
		return nil
	}
	author := leader.AuthorID
	return &author
}

// LeaderService owns the single recompute entry point for debate leaders.
type LeaderService struct {
	db        *gorm.DB
	debates   repository.DebateRepository
	responses repository.ResponseRepository
	log       *observability.RepoLogger
}

func NewLeaderService(db *gorm.DB, debates repository.DebateRepository, responses repository.ResponseRepository) *LeaderService {
	return &LeaderService{
		db:        db,
		debates:   debates,
		responses: responses,
		log:       observability.NewRepoLogger("debates"),
	}
}

// Recompute re-derives the leader of debate from its current standings and
// persists it when it changed. tx must hold the debate row lock taken by
// DebateRepository.LockForUpdate, and debate must be the row read under it.
func (s *LeaderService) Recompute(ctx context.Context, tx *gorm.DB, debate *models.Debate) (leader *uint, changed bool, err error) {
	standings, err := s.responses.WithTx(tx).Standings(ctx, debate.ID)
	if err != nil {
		return nil, false, err
	}

	leader = ResolveLeader(standings)
	if sameLeader(debate.LeaderID, leader) {
		return leader, false, nil
	}
	if err := s.debates.WithTx(tx).SetLeader(ctx, debate.ID, leader); err != nil {
		return nil, false, err
	}
	debate.LeaderID = leader
	return leader, true, nil
}

// RecomputeAll re-runs Recompute for every debate, each in its own
// transaction, and returns how many leaders changed.
func (s *LeaderService) RecomputeAll(ctx context.Context) (int, error) {
	ids, err := s.debates.ListIDs(ctx)
	if err != nil {
		return 0, err
	}

	changedCount := 0
	for _, id := range ids {
		var changed bool
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			debate, err := s.debates.WithTx(tx).LockForUpdate(ctx, id)
			if err != nil {
				return err
			}
			_, changed, err = s.Recompute(ctx, tx, debate)
			return err
		})
		if err != nil {
			s.log.LogError(ctx, err, "recompute_leader")
			return changedCount, err
		}
		if changed {
			changedCount++
			observability.LeaderChangesTotal.Inc()
			cache.InvalidateDebate(ctx, id)
		}
	}
	return changedCount, nil
}

func sameLeader(a, b *uint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
