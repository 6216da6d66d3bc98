package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"rostrum/internal/database"
	"rostrum/internal/events"
	"rostrum/internal/models"
	"rostrum/internal/repository"
	"rostrum/internal/storage"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

// setupFileDB opens a file-backed sqlite database with a pool of conns
// connections. Write transactions begin IMMEDIATE and wait on the busy
// timeout, so concurrent writers queue on the database lock.
func setupFileDB(t *testing.T, conns int) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "rostrum.db") +
		"?_busy_timeout=10000&_journal_mode=WAL&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(conns)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))
	return db
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.DebateEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e events.DebateEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) ofType(eventType string) []events.DebateEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.DebateEvent
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	db         *gorm.DB
	votesRepo  repository.VoteRepository
	responses  repository.ResponseRepository
	debateRepo repository.DebateRepository
	categories repository.CategoryRepository
	users      repository.UserRepository
	blobs      *storage.DiskStore
	sink       *recordingPublisher

	leaders *LeaderService
	votes   *VoteService
	answers *ResponseService
	debates *DebateService
	userSvc *UserService
	author  models.User
	voters  []models.User
	debate  models.Debate
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// newTestEnv wires every service over one in-memory sqlite database with a
// debate owned by "moderator" and four voters.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvOn(t, setupTestDB(t))
}

func newTestEnvOn(t *testing.T, db *gorm.DB) *testEnv {
	t.Helper()
	blobs, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	e := &testEnv{
		db:         db,
		votesRepo:  repository.NewVoteRepository(db),
		responses:  repository.NewResponseRepository(db),
		debateRepo: repository.NewDebateRepository(db),
		categories: repository.NewCategoryRepository(db),
		users:      repository.NewUserRepository(db),
		blobs:      blobs,
		sink:       &recordingPublisher{},
	}
	e.leaders = NewLeaderService(db, e.debateRepo, e.responses)
	e.votes = NewVoteService(db, e.votesRepo, e.responses, e.debateRepo, e.leaders, DefaultVoteMaxRetries, e.sink)
	e.answers = NewResponseService(db, e.responses, e.debateRepo, e.users, e.leaders, e.sink)
	e.debates = NewDebateService(e.debateRepo, e.categories, e.responses, e.votesRepo, blobs, nil, e.sink)
	e.debates.now = func() time.Time { return testNow }
	e.userSvc = NewUserService(e.users)

	ctx := context.Background()
	e.author = e.mustUser(t, "moderator")
	for _, name := range []string{"ana", "ben", "cyd", "dee"} {
		e.voters = append(e.voters, e.mustUser(t, name))
	}

	created, err := e.debates.CreateDebate(ctx, CreateDebateInput{
		CreatorID: e.author.ID,
		Title:     "Tabs or spaces",
		Summary:   "Settle it",
		EndAt:     testNow.Add(48 * time.Hour),
	})
	require.NoError(t, err)
	d, err := e.debateRepo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	e.debate = *d
	return e
}

func (e *testEnv) mustUser(t *testing.T, name string) models.User {
	t.Helper()
	u, err := e.userSvc.SignUp(context.Background(), name)
	require.NoError(t, err)
	return *u
}

func (e *testEnv) respond(t *testing.T, author models.User, body string) models.ResponseView {
	t.Helper()
	r, err := e.answers.CreateResponse(context.Background(), CreateResponseInput{
		AuthorID: author.ID,
		DebateID: e.debate.ID,
		Body:     body,
	})
	require.NoError(t, err)
	return *r
}

func (e *testEnv) cast(t *testing.T, voter models.User, responseID uint, voteType models.VoteType) *models.VoteResult {
	t.Helper()
	res, err := e.votes.CastVote(context.Background(), CastVoteInput{
		VoterID:    voter.ID,
		ResponseID: responseID,
		VoteType:   voteType,
	})
	require.NoError(t, err)
	return res
}

func (e *testEnv) leaderOf(t *testing.T, debateID uint) *uint {
	t.Helper()
	d, err := e.debateRepo.GetByID(context.Background(), debateID)
	require.NoError(t, err)
	return d.LeaderID
}
