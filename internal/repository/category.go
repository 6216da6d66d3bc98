package repository

import (
	"context"

	"rostrum/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CategoryRepository defines persistence operations for debate categories.
type CategoryRepository interface {
	List(ctx context.Context) ([]models.DebateCategory, error)
	FindByIDs(ctx context.Context, ids []uint) ([]models.DebateCategory, error)
	Ensure(ctx context.Context, names []string) ([]models.DebateCategory, error)
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository returns a new CategoryRepository implementation.
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) List(ctx context.Context) ([]models.DebateCategory, error) {
	categories := make([]models.DebateCategory, 0)
	err := readDB(r.db).WithContext(ctx).Order("name ASC").Find(&categories).Error
	return categories, err
}

func (r *categoryRepository) FindByIDs(ctx context.Context, ids []uint) ([]models.DebateCategory, error) {
	var categories []models.DebateCategory
	if len(ids) == 0 {
		return categories, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&categories).Error
	return categories, err
}

// Ensure inserts any missing names and returns all of them.
func (r *categoryRepository) Ensure(ctx context.Context, names []string) ([]models.DebateCategory, error) {
	if len(names) == 0 {
		return nil, nil
	}
	rows := make([]models.DebateCategory, 0, len(names))
	for _, name := range names {
		rows = append(rows, models.DebateCategory{Name: name})
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&rows).Error
	if err != nil {
		return nil, err
	}

	var categories []models.DebateCategory
	err = r.db.WithContext(ctx).Where("name IN ?", names).Order("name ASC").Find(&categories).Error
	return categories, err
}
