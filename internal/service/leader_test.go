package service

import (
	"context"
	"testing"

	"rostrum/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLeader(t *testing.T) {
	t.Parallel()
	uintPtr := func(v uint) *uint { return &v }

	tests := []struct {
		name      string
		standings []models.Standing
		want      *uint
	}{
		{"no responses", nil, nil},
		{"single response at zero", []models.Standing{{ResponseID: 1, AuthorID: 7}}, uintPtr(7)},
		{"unique max", []models.Standing{
			{ResponseID: 1, AuthorID: 7, Difference: 2},
			{ResponseID: 2, AuthorID: 8, Difference: 1},
		}, uintPtr(7)},
		{"tie at max", []models.Standing{
			{ResponseID: 1, AuthorID: 7, Difference: 2},
			{ResponseID: 2, AuthorID: 8, Difference: 2},
		}, nil},
		{"tie at zero", []models.Standing{
			{ResponseID: 1, AuthorID: 7},
			{ResponseID: 2, AuthorID: 8},
		}, nil},
		{"zero beats negatives", []models.Standing{
			{ResponseID: 1, AuthorID: 7, Difference: -3},
			{ResponseID: 2, AuthorID: 8},
			{ResponseID: 3, AuthorID: 9, Difference: -1},
		}, uintPtr(8)},
		{"tie broken by later higher", []models.Standing{
			{ResponseID: 1, AuthorID: 7, Difference: 1},
			{ResponseID: 2, AuthorID: 8, Difference: 1},
			{ResponseID: 3, AuthorID: 9, Difference: 4},
		}, uintPtr(9)},
		{"same author tied with self", []models.Standing{
			{ResponseID: 1, AuthorID: 7, Difference: 3},
			{ResponseID: 2, AuthorID: 7, Difference: 3},
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveLeader(tt.standings))
		})
	}
}

func TestLeaderService_ScenarioUniqueMax(t *testing.T) {
	e := newTestEnv(t)
	ana, ben, cyd, dee := e.voters[0], e.voters[1], e.voters[2], e.voters[3]
	r1 := e.respond(t, ana, "Tabs")
	r2 := e.respond(t, ben, "Spaces")

	e.cast(t, ana, r1.ID, models.VoteAgree)
	e.cast(t, ben, r1.ID, models.VoteAgree)
	e.cast(t, cyd, r1.ID, models.VoteAgree)
	e.cast(t, dee, r1.ID, models.VoteDisagree)
	res := e.cast(t, ana, r2.ID, models.VoteAgree)

	require.NotNil(t, res.LeaderID)
	assert.Equal(t, ana.ID, *res.LeaderID)
	assert.Equal(t, &ana.ID, e.leaderOf(t, e.debate.ID))
}

func TestLeaderService_ScenarioTie(t *testing.T) {
	e := newTestEnv(t)
	ana, ben, cyd, dee := e.voters[0], e.voters[1], e.voters[2], e.voters[3]
	r1 := e.respond(t, ana, "Tabs")
	r2 := e.respond(t, ben, "Spaces")

	e.cast(t, ana, r1.ID, models.VoteAgree)
	e.cast(t, ben, r1.ID, models.VoteAgree)
	e.cast(t, cyd, r2.ID, models.VoteAgree)
	require.Equal(t, &ana.ID, e.leaderOf(t, e.debate.ID))

	res := e.cast(t, dee, r2.ID, models.VoteAgree)
	assert.Nil(t, res.LeaderID)
	assert.Nil(t, e.leaderOf(t, e.debate.ID))
}

func TestLeaderService_RecomputeOnDeleteRestoresTie(t *testing.T) {
	e := newTestEnv(t)
	ana, ben := e.voters[0], e.voters[1]
	r1 := e.respond(t, ana, "Tabs")
	e.respond(t, ben, "Spaces")
	assert.Nil(t, e.leaderOf(t, e.debate.ID))

	e.cast(t, ben, r1.ID, models.VoteAgree)
	assert.Equal(t, &ana.ID, e.leaderOf(t, e.debate.ID))

	res := e.cast(t, ben, r1.ID, models.VoteAgree)
	assert.Equal(t, VoteActionDeleted, res.Action)
	assert.Nil(t, e.leaderOf(t, e.debate.ID))

	assert.Len(t, e.sink.ofType("leader_changed"), 4)
}

func TestLeaderService_RecomputeAllRepairsDrift(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	ana, ben := e.voters[0], e.voters[1]
	r1 := e.respond(t, ana, "Tabs")
	e.respond(t, ben, "Spaces")
	e.cast(t, ben, r1.ID, models.VoteAgree)

	require.NoError(t, e.debateRepo.SetLeader(ctx, e.debate.ID, &ben.ID))

	changed, err := e.leaders.RecomputeAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	assert.Equal(t, &ana.ID, e.leaderOf(t, e.debate.ID))

	changed, err = e.leaders.RecomputeAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, changed)
}
