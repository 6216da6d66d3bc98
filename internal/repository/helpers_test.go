package repository

import (
	"testing"
	"time"

	"rostrum/internal/database"
	"rostrum/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	return gormDB, mock
}

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

type fixture struct {
	db      *gorm.DB
	author  models.User
	voters  []models.User
	debate  models.Debate
	answers []models.Response
}

// newFixture seeds one debate with two responses by different authors and
// three voters.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	f := &fixture{db: db}

	f.author = models.User{Username: "moderator"}
	require.NoError(t, db.Create(&f.author).Error)
	for _, name := range []string{"ana", "ben", "cy"} {
		u := models.User{Username: name}
		require.NoError(t, db.Create(&u).Error)
		f.voters = append(f.voters, u)
	}

	f.debate = models.Debate{
		Title:       "Tabs or spaces",
		Summary:     "Settle it",
		CreatedByID: f.author.ID,
		EndAt:       time.Now().UTC().Add(48 * time.Hour),
	}
	require.NoError(t, db.Omit("CreatedBy", "Leader").Create(&f.debate).Error)

	for i, body := range []string{"Tabs", "Spaces"} {
		r := models.Response{Body: body, DebateID: f.debate.ID, CreatedByID: f.voters[i].ID}
		require.NoError(t, db.Omit("Debate", "CreatedBy").Create(&r).Error)
		f.answers = append(f.answers, r)
	}
	return f
}

func (f *fixture) vote(t *testing.T, voter models.User, response models.Response, voteType models.VoteType) models.Vote {
	t.Helper()
	v := models.Vote{ResponseID: response.ID, CreatedByID: voter.ID, VoteType: voteType}
	require.NoError(t, f.db.Omit("Response", "CreatedBy").Create(&v).Error)
	return v
}
