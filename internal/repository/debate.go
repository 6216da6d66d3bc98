package repository

import (
	"context"
	"errors"
	"time"

	"rostrum/internal/models"
	"rostrum/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DebateRepository defines persistence operations for debates.
type DebateRepository interface {
	WithTx(tx *gorm.DB) DebateRepository
	Create(ctx context.Context, debate *models.Debate) error
	GetByID(ctx context.Context, id uint) (*models.Debate, error)
	LockForUpdate(ctx context.Context, id uint) (*models.Debate, error)
	SetLeader(ctx context.Context, debateID uint, leaderID *uint) error
	UpdatePicture(ctx context.Context, debateID uint, pictureURL string) error
	ListIDs(ctx context.Context) ([]uint, error)
	ListRecords(ctx context.Context) ([]models.DebateRecord, error)
	GetRecord(ctx context.Context, id uint) (*models.DebateRecord, error)
}

type debateRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewDebateRepository returns a new DebateRepository implementation.
func NewDebateRepository(db *gorm.DB) DebateRepository {
	return &debateRepository{db: db, log: observability.NewRepoLogger("debates")}
}

func (r *debateRepository) WithTx(tx *gorm.DB) DebateRepository {
	return &debateRepository{db: tx, log: r.log}
}

// Create inserts the debate and its category links. Categories must already exist.
func (r *debateRepository) Create(ctx context.Context, debate *models.Debate) error {
	if err := r.db.WithContext(ctx).Omit("CreatedBy", "Leader", "Categories.*").Create(debate).Error; err != nil {
		return err
	}
	r.log.LogCreate(ctx, map[string]interface{}{
		"debate_id":  debate.ID,
		"categories": len(debate.Categories),
	})
	return nil
}

func (r *debateRepository) GetByID(ctx context.Context, id uint) (*models.Debate, error) {
	var debate models.Debate
	if err := r.db.WithContext(ctx).First(&debate, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Debate", id)
		}
		return nil, err
	}
	return &debate, nil
}

// LockForUpdate takes the debate row lock that serializes vote mutations
// within one debate. Must be called on a transaction-bound repository.
func (r *debateRepository) LockForUpdate(ctx context.Context, id uint) (*models.Debate, error) {
	var debate models.Debate
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&debate, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Debate", id)
		}
		return nil, err
	}
	return &debate, nil
}

func (r *debateRepository) SetLeader(ctx context.Context, debateID uint, leaderID *uint) error {
	var value interface{}
	if leaderID != nil {
		value = *leaderID
	}
	err := r.db.WithContext(ctx).Model(&models.Debate{}).
		Where("id = ?", debateID).
		Update("leader_id", value).Error
	if err != nil {
		return err
	}
	r.log.LogUpdate(ctx, map[string]interface{}{"debate_id": debateID, "leader_id": value})
	return nil
}

func (r *debateRepository) UpdatePicture(ctx context.Context, debateID uint, pictureURL string) error {
	res := r.db.WithContext(ctx).Model(&models.Debate{}).
		Where("id = ?", debateID).
		Update("picture_url", pictureURL)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Debate", debateID)
	}
	return nil
}

func (r *debateRepository) ListIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Debate{}).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

type debateRow struct {
	ID            uint
	Title         string
	Summary       string
	PictureURL    *string
	EndAt         time.Time
	CreatedBy     string
	Leader        *string
	ResponseCount int64
}

// recordQuery reads the primary: records carry the leader and fill the cache.
func (r *debateRepository) recordQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table("debates").
		Select("debates.id, debates.title, debates.summary, debates.picture_url, debates.end_at, " +
			"creators.username AS created_by, leaders.username AS leader, " +
			"(SELECT COUNT(*) FROM responses WHERE responses.debate_id = debates.id) AS response_count").
		Joins("LEFT JOIN users AS creators ON creators.id = debates.created_by_id").
		Joins("LEFT JOIN users AS leaders ON leaders.id = debates.leader_id")
}

// ListRecords returns every debate, soonest-ending first.
func (r *debateRepository) ListRecords(ctx context.Context) ([]models.DebateRecord, error) {
	defer observability.TrackQuery("list", "debates")()

	var rows []debateRow
	if err := r.recordQuery(ctx).Order("debates.end_at ASC, debates.id ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return r.withCategories(ctx, rows)
}

func (r *debateRepository) GetRecord(ctx context.Context, id uint) (*models.DebateRecord, error) {
	var rows []debateRow
	if err := r.recordQuery(ctx).Where("debates.id = ?", id).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, models.NewNotFoundError("Debate", id)
	}
	records, err := r.withCategories(ctx, rows)
	if err != nil {
		return nil, err
	}
	return &records[0], nil
}

// withCategories attaches deduplicated category names in a second query so
// the projection does not depend on a dialect's array aggregate.
func (r *debateRepository) withCategories(ctx context.Context, rows []debateRow) ([]models.DebateRecord, error) {
	records := make([]models.DebateRecord, 0, len(rows))
	if len(rows) == 0 {
		return records, nil
	}

	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	var tags []struct {
		DebateID uint
		Name     string
	}
	err := r.db.WithContext(ctx).Table("debate_debate_categories").
		Select("DISTINCT debate_debate_categories.debate_id, debate_categories.name").
		Joins("JOIN debate_categories ON debate_categories.id = debate_debate_categories.debate_category_id").
		Where("debate_debate_categories.debate_id IN ?", ids).
		Order("debate_categories.name ASC").
		Scan(&tags).Error
	if err != nil {
		return nil, err
	}

	names := make(map[uint][]string, len(rows))
	for _, tag := range tags {
		names[tag.DebateID] = append(names[tag.DebateID], tag.Name)
	}

	for _, row := range rows {
		categories := names[row.ID]
		if categories == nil {
			categories = []string{}
		}
		records = append(records, models.DebateRecord{
			ID:            row.ID,
			Title:         row.Title,
			CategoryNames: categories,
			Summary:       row.Summary,
			PictureURL:    row.PictureURL,
			EndAt:         row.EndAt,
			CreatedBy:     row.CreatedBy,
			Leader:        row.Leader,
			ResponseCount: row.ResponseCount,
		})
	}
	return records, nil
}
