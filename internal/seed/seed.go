// Package seed loads the category catalog and generates demo data for
// development databases.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"rostrum/internal/middleware"
	"rostrum/internal/models"
	"rostrum/internal/repository"
	"rostrum/internal/service"
	"rostrum/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed fixtures/categories.yaml
var categoriesYAML []byte

type catalog struct {
	Categories []string `yaml:"categories"`
}

// Options configuration for the seeder
type Options struct {
	NumUsers           int
	NumDebates         int
	ResponsesPerDebate int
	// VoteChance is the probability, in percent, that a user votes on a response.
	VoteChance int
	// RandSeed makes a run reproducible; zero uses the clock.
	RandSeed int64
}

// DefaultOptions are the sizes cmd/seed uses without flags.
func DefaultOptions() Options {
	return Options{NumUsers: 20, NumDebates: 10, ResponsesPerDebate: 4, VoteChance: 40}
}

// Report counts what a run created.
type Report struct {
	Categories int
	Users      int
	Debates    int
	Responses  int
	Votes      int
}

// Seeder writes demo data through the API's services, so leaders are
// maintained by the regular vote path.
type Seeder struct {
	db        *gorm.DB
	users     *service.UserService
	debates   *service.DebateService
	responses *service.ResponseService
	votes     *service.VoteService
	leaders   *service.LeaderService
	now       func() time.Time
}

// NewSeeder builds a Seeder over db. No events are published.
func NewSeeder(db *gorm.DB) *Seeder {
	userRepo := repository.NewUserRepository(db)
	debateRepo := repository.NewDebateRepository(db)
	responseRepo := repository.NewResponseRepository(db)
	voteRepo := repository.NewVoteRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	leaders := service.NewLeaderService(db, debateRepo, responseRepo)

	return &Seeder{
		db:        db,
		users:     service.NewUserService(userRepo),
		debates:   service.NewDebateService(debateRepo, categoryRepo, responseRepo, voteRepo, nil, nil),
		responses: service.NewResponseService(db, responseRepo, debateRepo, userRepo, leaders),
		votes:     service.NewVoteService(db, voteRepo, responseRepo, debateRepo, leaders, service.DefaultVoteMaxRetries),
		leaders:   leaders,
		now:       time.Now,
	}
}

// LoadCategories returns the embedded category catalog.
func LoadCategories() ([]string, error) {
	var c catalog
	if err := yaml.Unmarshal(categoriesYAML, &c); err != nil {
		return nil, fmt.Errorf("parse category catalog: %w", err)
	}
	if len(c.Categories) == 0 {
		return nil, errors.New("category catalog is empty")
	}
	return c.Categories, nil
}

// Categories ensures every catalog category exists. It is safe to run repeatedly.
func (s *Seeder) Categories(ctx context.Context) ([]models.DebateCategory, error) {
	names, err := LoadCategories()
	if err != nil {
		return nil, err
	}
	categories, err := s.debates.EnsureCategories(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("seed categories: %w", err)
	}
	return categories, nil
}

// Run seeds categories, then users, debates, responses and votes.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Report, error) {
	seed := opts.RandSeed
	if seed == 0 {
		seed = s.now().UnixNano()
	}
	faker := gofakeit.New(seed)

	middleware.Logger.Info("seeding database",
		slog.Int("users", opts.NumUsers),
		slog.Int("debates", opts.NumDebates),
		slog.Int64("seed", seed))

	report := &Report{}
	categories, err := s.Categories(ctx)
	if err != nil {
		return nil, err
	}
	report.Categories = len(categories)

	users, err := s.createUsers(ctx, faker, opts.NumUsers)
	if err != nil {
		return report, err
	}
	report.Users = len(users)
	if len(users) == 0 {
		return report, nil
	}

	for i := 0; i < opts.NumDebates; i++ {
		creator := users[faker.Number(0, len(users)-1)]
		debate, err := s.debates.CreateDebate(ctx, service.CreateDebateInput{
			CreatorID:   creator.ID,
			Title:       strings.TrimSuffix(faker.Question(), "?") + "?",
			Summary:     faker.Paragraph(1, 3, 12, " "),
			EndAt:       s.now().Add(time.Duration(faker.Number(-72, 14*24)) * time.Hour),
			CategoryIDs: pickCategories(faker, categories),
		})
		if err != nil {
			return report, fmt.Errorf("create debate: %w", err)
		}
		report.Debates++

		for j := 0; j < opts.ResponsesPerDebate; j++ {
			author := users[faker.Number(0, len(users)-1)]
			response, err := s.responses.CreateResponse(ctx, service.CreateResponseInput{
				AuthorID: author.ID,
				DebateID: debate.ID,
				Body:     faker.Sentence(faker.Number(6, 18)),
			})
			if err != nil {
				return report, fmt.Errorf("create response: %w", err)
			}
			report.Responses++

			cast, err := s.castVotes(ctx, faker, users, response.ID, opts.VoteChance)
			report.Votes += cast
			if err != nil {
				return report, err
			}
		}
	}

	middleware.Logger.Info("seeding complete",
		slog.Int("categories", report.Categories),
		slog.Int("users", report.Users),
		slog.Int("debates", report.Debates),
		slog.Int("responses", report.Responses),
		slog.Int("votes", report.Votes))
	return report, nil
}

// createUsers signs up n users, reusing any that already exist.
func (s *Seeder) createUsers(ctx context.Context, faker *gofakeit.Faker, n int) ([]models.User, error) {
	users := make([]models.User, 0, n)
	for i := 0; i < n; i++ {
		name := demoUsername(faker.FirstName(), i)
		user, err := s.users.SignUp(ctx, name)
		if err != nil {
			existing, lookupErr := s.users.GetUserByUsername(ctx, name)
			if lookupErr != nil {
				return users, fmt.Errorf("create user %s: %w", name, err)
			}
			user = existing
		}
		users = append(users, *user)
	}
	return users, nil
}

func (s *Seeder) castVotes(ctx context.Context, faker *gofakeit.Faker, users []models.User, responseID uint, chance int) (int, error) {
	cast := 0
	for _, u := range users {
		if faker.Number(1, 100) > chance {
			continue
		}
		voteType := models.VoteAgree
		if faker.Bool() {
			voteType = models.VoteDisagree
		}
		if _, err := s.votes.CastVote(ctx, service.CastVoteInput{
			VoterID:    u.ID,
			ResponseID: responseID,
			VoteType:   voteType,
		}); err != nil {
			return cast, fmt.Errorf("cast vote: %w", err)
		}
		cast++
	}
	return cast, nil
}

// ClearAll removes every debate, response, vote and user. Categories stay.
func (s *Seeder) ClearAll(ctx context.Context) error {
	middleware.Logger.Info("clearing existing data")
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if err := all.Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		if err := all.Delete(&models.Response{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM debate_debate_categories").Error; err != nil {
			return err
		}
		if err := all.Delete(&models.Debate{}).Error; err != nil {
			return err
		}
		return all.Delete(&models.User{}).Error
	})
}

// RecomputeLeaders re-derives every stored leader and reports how many changed.
func (s *Seeder) RecomputeLeaders(ctx context.Context) (int, error) {
	return s.leaders.RecomputeAll(ctx)
}

// demoUsername lowercases first and suffixes the index so names stay unique
// and valid.
func demoUsername(first string, i int) string {
	base := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' {
			return r
		}
		return -1
	}, strings.ToLower(first))
	if len(base) > 20 {
		base = base[:20]
	}
	name := fmt.Sprintf("%s.%d", base, i+1)
	if validation.ValidateUsername(name) != nil {
		name = fmt.Sprintf("user.%d", i+1)
	}
	return name
}

func pickCategories(faker *gofakeit.Faker, categories []models.DebateCategory) []uint {
	if len(categories) == 0 {
		return nil
	}
	n := faker.Number(1, min(2, len(categories)))
	ids := make([]uint, 0, n)
	for len(ids) < n {
		id := categories[faker.Number(0, len(categories)-1)].ID
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids
}
