package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"rostrum/internal/cache"
	"rostrum/internal/events"
	"rostrum/internal/models"
	"rostrum/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestVoteService_ToggleScenario(t *testing.T) {
	e := newTestEnv(t)
	voter := e.voters[2]
	r1 := e.respond(t, e.voters[0], "Tabs")

	res := e.cast(t, voter, r1.ID, models.VoteAgree)
	assert.Equal(t, VoteActionCreated, res.Action)
	assert.NotZero(t, res.VoteID)
	assert.Equal(t, models.VoteState{Count: 1, Enabled: false}, res.Agree)
	assert.Equal(t, models.VoteState{Count: 0, Enabled: true}, res.Disagree)
	firstID := res.VoteID

	res = e.cast(t, voter, r1.ID, models.VoteAgree)
	assert.Equal(t, VoteActionDeleted, res.Action)
	assert.Equal(t, firstID, res.VoteID)
	assert.Equal(t, models.VoteState{Count: 0, Enabled: true}, res.Agree)
	assert.Equal(t, models.VoteState{Count: 0, Enabled: true}, res.Disagree)

	res = e.cast(t, voter, r1.ID, models.VoteDisagree)
	assert.Equal(t, VoteActionCreated, res.Action)
	assert.Equal(t, models.VoteState{Count: 0, Enabled: true}, res.Agree)
	assert.Equal(t, models.VoteState{Count: 1, Enabled: false}, res.Disagree)

	res = e.cast(t, voter, r1.ID, models.VoteAgree)
	assert.Equal(t, VoteActionUpdated, res.Action)
	assert.Equal(t, models.VoteState{Count: 1, Enabled: false}, res.Agree)
	assert.Equal(t, models.VoteState{Count: 0, Enabled: true}, res.Disagree)

	detail, err := e.debates.GetDebate(context.Background(), e.debate.ID, voter.ID)
	require.NoError(t, err)
	require.Len(t, detail.Responses, 1)
	assert.False(t, detail.Responses[0].AgreeEnabled)
	assert.True(t, detail.Responses[0].DisagreeEnabled)
}

func TestVoteService_TalliesMatchActiveVotes(t *testing.T) {
	e := newTestEnv(t)
	r1 := e.respond(t, e.voters[0], "Tabs")

	e.cast(t, e.voters[0], r1.ID, models.VoteAgree)
	e.cast(t, e.voters[1], r1.ID, models.VoteDisagree)
	e.cast(t, e.voters[2], r1.ID, models.VoteAgree)
	e.cast(t, e.voters[1], r1.ID, models.VoteAgree)
	res := e.cast(t, e.voters[0], r1.ID, models.VoteAgree)

	var agree, disagree int64
	require.NoError(t, e.db.Model(&models.Vote{}).Where("response_id = ? AND vote_type = ?", r1.ID, models.VoteAgree).Count(&agree).Error)
	require.NoError(t, e.db.Model(&models.Vote{}).Where("response_id = ? AND vote_type = ?", r1.ID, models.VoteDisagree).Count(&disagree).Error)
	assert.Equal(t, agree, res.Agree.Count)
	assert.Equal(t, disagree, res.Disagree.Count)
	assert.Equal(t, int64(2), agree)
	assert.Zero(t, disagree)
}

func TestVoteService_Validation(t *testing.T) {
	e := newTestEnv(t)
	r1 := e.respond(t, e.voters[0], "Tabs")
	ctx := context.Background()

	_, err := e.votes.CastVote(ctx, CastVoteInput{ResponseID: r1.ID, VoteType: models.VoteAgree})
	assert.True(t, models.HasCode(err, models.CodeValidation))

	_, err = e.votes.CastVote(ctx, CastVoteInput{VoterID: e.voters[0].ID, ResponseID: r1.ID, VoteType: "maybe"})
	assert.True(t, models.HasCode(err, models.CodeValidation))

	res, err := e.votes.CastVote(ctx, CastVoteInput{VoterID: e.voters[0].ID, ResponseID: r1.ID, VoteType: " AGREE "})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Agree.Count)
}

func TestVoteService_ResponseNotFound(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.votes.CastVote(context.Background(), CastVoteInput{
		VoterID:    e.voters[0].ID,
		ResponseID: 999,
		VoteType:   models.VoteAgree,
	})
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	var count int64
	require.NoError(t, e.db.Model(&models.Vote{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, e.sink.ofType(events.TypeVoteCast))
}

func TestVoteService_PublishesAfterCommit(t *testing.T) {
	e := newTestEnv(t)
	r1 := e.respond(t, e.voters[0], "Tabs")

	e.cast(t, e.voters[1], r1.ID, models.VoteDisagree)

	cast := e.sink.ofType(events.TypeVoteCast)
	require.Len(t, cast, 1)
	assert.Equal(t, e.debate.ID, cast[0].DebateID)
	assert.Equal(t, r1.ID, cast[0].ResponseID)
	assert.Equal(t, e.voters[1].ID, cast[0].ActorID)
	assert.Equal(t, VoteActionCreated, cast[0].Action)
	assert.Equal(t, int64(1), cast[0].Disagree)
	assert.Equal(t, int64(-1), cast[0].Difference)
	assert.False(t, cast[0].OccurredAt.IsZero())
}

// flakyVotes fails Tally with a serialization error a fixed number of times.
type flakyVotes struct {
	repository.VoteRepository
	failures *int32
}

func (f flakyVotes) WithTx(tx *gorm.DB) repository.VoteRepository {
	return flakyVotes{VoteRepository: f.VoteRepository.WithTx(tx), failures: f.failures}
}

func (f flakyVotes) Tally(ctx context.Context, responseID uint) (models.Tally, error) {
	if atomic.AddInt32(f.failures, -1) >= 0 {
		return models.Tally{}, &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	}
	return f.VoteRepository.Tally(ctx, responseID)
}

func TestVoteService_RetriesSerializationFailures(t *testing.T) {
	e := newTestEnv(t)
	r1 := e.respond(t, e.voters[0], "Tabs")

	failures := int32(2)
	svc := NewVoteService(e.db, flakyVotes{VoteRepository: e.votesRepo, failures: &failures},
		e.responses, e.debateRepo, e.leaders, 3)

	res, err := svc.CastVote(context.Background(), CastVoteInput{
		VoterID: e.voters[1].ID, ResponseID: r1.ID, VoteType: models.VoteAgree,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Agree.Count)

	var count int64
	require.NoError(t, e.db.Model(&models.Vote{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestVoteService_GivesUpAfterMaxRetries(t *testing.T) {
	e := newTestEnv(t)
	r1 := e.respond(t, e.voters[0], "Tabs")
	leaderBefore := e.leaderOf(t, e.debate.ID)

	failures := int32(100)
	svc := NewVoteService(e.db, flakyVotes{VoteRepository: e.votesRepo, failures: &failures},
		e.responses, e.debateRepo, e.leaders, 1)

	_, err := svc.CastVote(context.Background(), CastVoteInput{
		VoterID: e.voters[1].ID, ResponseID: r1.ID, VoteType: models.VoteDisagree,
	})
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.CodeConcurrency))
	assert.Equal(t, int32(98), atomic.LoadInt32(&failures))

	var count int64
	require.NoError(t, e.db.Model(&models.Vote{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, leaderBefore, e.leaderOf(t, e.debate.ID))
}

// staleVotes reports no existing vote on the first lookup, as if another
// writer inserted the row between the lookup and the insert.
type staleVotes struct {
	repository.VoteRepository
	lookups *int32
}

func (s staleVotes) WithTx(tx *gorm.DB) repository.VoteRepository {
	return staleVotes{VoteRepository: s.VoteRepository.WithTx(tx), lookups: s.lookups}
}

func (s staleVotes) FindByVoterAndResponse(ctx context.Context, voterID, responseID uint) (*models.Vote, error) {
	if atomic.AddInt32(s.lookups, 1) == 1 {
		return nil, nil
	}
	return s.VoteRepository.FindByVoterAndResponse(ctx, voterID, responseID)
}

func TestVoteService_UniqueViolationRetriedAsUpdate(t *testing.T) {
	e := newTestEnv(t)
	r1 := e.respond(t, e.voters[0], "Tabs")
	voter := e.voters[1]
	first := e.cast(t, voter, r1.ID, models.VoteAgree)

	var lookups int32
	svc := NewVoteService(e.db, staleVotes{VoteRepository: e.votesRepo, lookups: &lookups},
		e.responses, e.debateRepo, e.leaders, 0)

	res, err := svc.CastVote(context.Background(), CastVoteInput{
		VoterID: voter.ID, ResponseID: r1.ID, VoteType: models.VoteDisagree,
	})
	require.NoError(t, err)
	assert.Equal(t, first.VoteID, res.VoteID)
	assert.Equal(t, int64(0), res.Agree.Count)
	assert.Equal(t, int64(1), res.Disagree.Count)

	stored, err := e.votesRepo.FindByVoterAndResponse(context.Background(), voter.ID, r1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VoteDisagree, stored.VoteType)
}

// The in-memory database has a single connection, so these votes run one
// after another. TestVoteService_ConcurrentVotesAcrossConnections covers
// writers that actually overlap.
func TestVoteService_ConcurrentVotesKeepLeaderConsistent(t *testing.T) {
	e := newTestEnv(t)
	r1 := e.respond(t, e.voters[0], "Tabs")
	r2 := e.respond(t, e.voters[1], "Spaces")

	var wg sync.WaitGroup
	for i, voter := range e.voters {
		target := r1.ID
		if i == 3 {
			target = r2.ID
		}
		wg.Add(1)
		go func(voter models.User, responseID uint) {
			defer wg.Done()
			_, err := e.votes.CastVote(context.Background(), CastVoteInput{
				VoterID: voter.ID, ResponseID: responseID, VoteType: models.VoteAgree,
			})
			assert.NoError(t, err)
		}(voter, target)
	}
	wg.Wait()

	assert.Equal(t, &e.voters[0].ID, e.leaderOf(t, e.debate.ID))
	tally, err := e.votesRepo.Tally(context.Background(), r1.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), tally.Agree)
}

func TestVoteService_ConcurrentVotesAcrossConnections(t *testing.T) {
	e := newTestEnvOn(t, setupFileDB(t, 4))
	r1 := e.respond(t, e.voters[0], "Tabs")
	r2 := e.respond(t, e.voters[1], "Spaces")

	start := make(chan struct{})
	var wg sync.WaitGroup
	for round := 0; round < 3; round++ {
		for i, voter := range e.voters {
			target := r1.ID
			if i == 3 {
				target = r2.ID
			}
			wg.Add(1)
			go func(voter models.User, responseID uint) {
				defer wg.Done()
				<-start
				_, err := e.votes.CastVote(context.Background(), CastVoteInput{
					VoterID: voter.ID, ResponseID: responseID, VoteType: models.VoteAgree,
				})
				assert.NoError(t, err)
			}(voter, target)
		}
	}
	close(start)
	wg.Wait()

	// Three toggles per voter leave every vote in place.
	ctx := context.Background()
	agree, err := e.votesRepo.Tally(ctx, r1.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), agree.Agree)
	rival, err := e.votesRepo.Tally(ctx, r2.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rival.Agree)
	assert.Equal(t, &e.voters[0].ID, e.leaderOf(t, e.debate.ID))

	var rows int64
	require.NoError(t, e.db.Model(&models.Vote{}).Count(&rows).Error)
	assert.Equal(t, int64(4), rows)
}

func TestVoteService_InvalidatesCachedDebate(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
	})

	e := newTestEnv(t)
	ctx := context.Background()
	r1 := e.respond(t, e.voters[0], "Tabs")
	e.respond(t, e.voters[1], "Spaces")

	list, err := e.debates.ListDebates(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].Leader)
	assert.True(t, mr.Exists(cache.DebateListKey))

	e.cast(t, e.voters[2], r1.ID, models.VoteAgree)
	assert.False(t, mr.Exists(cache.DebateListKey))

	list, err = e.debates.ListDebates(ctx)
	require.NoError(t, err)
	require.NotNil(t, list[0].Leader)
	assert.Equal(t, "ana", *list[0].Leader)
}
