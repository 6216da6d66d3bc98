package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"rostrum/internal/cache"
	"rostrum/internal/config"
	"rostrum/internal/events"
	"rostrum/internal/models"
	"rostrum/internal/observability"
	"rostrum/internal/repository"
	"rostrum/internal/storage"
	"rostrum/internal/validation"

	"github.com/google/uuid"
)

const (
	maxDebateTitleLen   = 200
	maxDebateSummaryLen = 5000
)

type CreateDebateInput struct {
	CreatorID   uint
	Title       string
	Summary     string
	EndAt       time.Time
	CategoryIDs []uint
}

type UploadPictureInput struct {
	UserID      uint
	DebateID    uint
	ContentType string
	Content     []byte
}

type DebateService struct {
	debates        repository.DebateRepository
	categories     repository.CategoryRepository
	responses      repository.ResponseRepository
	votes          repository.VoteRepository
	blobs          storage.BlobStore
	publish        publishers
	maxUploadBytes int64
	now            func() time.Time
}

func NewDebateService(
	debates repository.DebateRepository,
	categories repository.CategoryRepository,
	responses repository.ResponseRepository,
	votes repository.VoteRepository,
	blobs storage.BlobStore,
	cfg *config.Config,
	sinks ...events.Publisher,
) *DebateService {
	maxUploadSizeMB := DefaultPictureMaxUploadSizeMB
	if cfg != nil && cfg.PictureMaxUploadSizeMB > 0 {
		maxUploadSizeMB = cfg.PictureMaxUploadSizeMB
	}
	return &DebateService{
		debates:        debates,
		categories:     categories,
		responses:      responses,
		votes:          votes,
		blobs:          blobs,
		publish:        publishers(sinks),
		maxUploadBytes: int64(maxUploadSizeMB) * 1024 * 1024,
		now:            time.Now,
	}
}

// ListDebates returns every debate, soonest-ending first.
func (s *DebateService) ListDebates(ctx context.Context) ([]models.DebateSummary, error) {
	var records []models.DebateRecord
	err := cache.Aside(ctx, cache.DebateListKey, &records, cache.DebateListTTL, func() error {
		var err error
		records, err = s.debates.ListRecords(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]models.DebateSummary, 0, len(records))
	for _, r := range records {
		out = append(out, summarize(r, now))
	}
	return out, nil
}

// GetDebate returns one debate with its responses as seen by viewerID.
// A zero viewerID sees every vote direction enabled.
func (s *DebateService) GetDebate(ctx context.Context, debateID, viewerID uint) (*models.DebateDetail, error) {
	var record models.DebateRecord
	err := cache.Aside(ctx, cache.DebateRecordKey(debateID), &record, cache.DebateRecordTTL, func() error {
		r, err := s.debates.GetRecord(ctx, debateID)
		if err != nil {
			return err
		}
		record = *r
		return nil
	})
	if err != nil {
		return nil, err
	}

	responses, err := s.responses.ListByDebate(ctx, debateID)
	if err != nil {
		return nil, err
	}
	viewerVotes, err := s.votes.ViewerVotes(ctx, viewerID, debateID)
	if err != nil {
		return nil, err
	}
	for i := range responses {
		held, ok := viewerVotes[responses[i].ID]
		responses[i].AgreeEnabled = !ok || held != models.VoteAgree
		responses[i].DisagreeEnabled = !ok || held != models.VoteDisagree
	}

	return &models.DebateDetail{
		DebateSummary: summarize(record, s.now()),
		Responses:     responses,
	}, nil
}

func (s *DebateService) CreateDebate(ctx context.Context, in CreateDebateInput) (*models.DebateSummary, error) {
	if in.CreatorID == 0 {
		return nil, models.NewValidationError("Creator is required")
	}
	title, err := validation.RequiredText("title", in.Title, maxDebateTitleLen)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	summary, err := validation.RequiredText("summary", in.Summary, maxDebateSummaryLen)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if in.EndAt.IsZero() {
		return nil, models.NewValidationError("end_at is required")
	}

	categories, err := s.resolveCategories(ctx, in.CategoryIDs)
	if err != nil {
		return nil, err
	}

	debate := &models.Debate{
		Title:       title,
		Summary:     summary,
		CreatedByID: in.CreatorID,
		EndAt:       in.EndAt.UTC(),
		Categories:  categories,
	}
	if err := s.debates.Create(ctx, debate); err != nil {
		return nil, err
	}
	cache.Invalidate(ctx, cache.DebateListKey)
	s.publish.emit(ctx, events.DebateEvent{
		Type:     events.TypeDebateCreated,
		DebateID: debate.ID,
		ActorID:  in.CreatorID,
	})

	record, err := s.debates.GetRecord(ctx, debate.ID)
	if err != nil {
		return nil, err
	}
	summaryView := summarize(*record, s.now())
	return &summaryView, nil
}

// resolveCategories deduplicates ids and fails with NotFound on the first
// id that does not exist.
func (s *DebateService) resolveCategories(ctx context.Context, ids []uint) ([]models.DebateCategory, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	seen := make(map[uint]struct{}, len(ids))
	unique := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	found, err := s.categories.FindByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.DebateCategory, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}
	out := make([]models.DebateCategory, 0, len(unique))
	for _, id := range unique {
		c, ok := byID[id]
		if !ok {
			return nil, models.NewNotFoundError("DebateCategory", id)
		}
		out = append(out, c)
	}
	return out, nil
}

// UploadPicture replaces the debate's picture. Only the creator may upload.
// The previous object is removed after the new URL is stored.
func (s *DebateService) UploadPicture(ctx context.Context, in UploadPictureInput) (string, error) {
	if s.blobs == nil {
		return "", models.NewInternalError(errors.New("blob store is not configured"))
	}
	debate, err := s.debates.GetByID(ctx, in.DebateID)
	if err != nil {
		return "", err
	}
	if debate.CreatedByID != in.UserID {
		return "", models.NewForbiddenError("Only the debate creator can change its picture")
	}

	encoded, err := normalizePicture(in.Content, in.ContentType, s.maxUploadBytes)
	if err != nil {
		return "", err
	}

	path := fmt.Sprintf("debates/%d/%s.webp", debate.ID, uuid.NewString())
	url, err := s.blobs.Upload(ctx, encoded, path, PictureContentType)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	if err := s.debates.UpdatePicture(ctx, debate.ID, url); err != nil {
		if _, delErr := s.blobs.Delete(ctx, path); delErr != nil {
			observability.GlobalLogger.WarnContext(ctx, "orphaned picture not removed",
				slog.String("path", path), slog.String("error", delErr.Error()))
		}
		return "", err
	}

	if debate.PictureURL != nil {
		if old, ok := s.blobs.PathFromURL(*debate.PictureURL); ok {
			if _, err := s.blobs.Delete(ctx, old); err != nil {
				observability.GlobalLogger.WarnContext(ctx, "previous picture not removed",
					slog.String("path", old), slog.String("error", err.Error()))
			}
		}
	}
	cache.InvalidateDebate(ctx, debate.ID)
	return url, nil
}

// DownloadPicture returns the stored picture bytes and content type.
func (s *DebateService) DownloadPicture(ctx context.Context, debateID uint) ([]byte, string, error) {
	if s.blobs == nil {
		return nil, "", models.NewInternalError(errors.New("blob store is not configured"))
	}
	debate, err := s.debates.GetByID(ctx, debateID)
	if err != nil {
		return nil, "", err
	}
	if debate.PictureURL == nil {
		return nil, "", models.NewNotFoundError("DebatePicture", debateID)
	}
	path, ok := s.blobs.PathFromURL(*debate.PictureURL)
	if !ok {
		return nil, "", models.NewNotFoundError("DebatePicture", debateID)
	}
	data, err := s.blobs.Download(ctx, path)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "", models.NewNotFoundError("DebatePicture", debateID)
	}
	if err != nil {
		return nil, "", models.NewInternalError(err)
	}
	return data, PictureContentType, nil
}

// ListCategories returns every category sorted by name.
func (s *DebateService) ListCategories(ctx context.Context) ([]models.DebateCategory, error) {
	var categories []models.DebateCategory
	err := cache.Aside(ctx, cache.CategoryListKey, &categories, cache.CategoryListTTL, func() error {
		var err error
		categories, err = s.categories.List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []models.DebateCategory{}
	}
	return categories, nil
}

// EnsureCategories creates any missing categories by name.
func (s *DebateService) EnsureCategories(ctx context.Context, names []string) ([]models.DebateCategory, error) {
	cleaned := make([]string, 0, len(names))
	for _, n := range names {
		name, err := validation.CategoryName(n)
		if err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		cleaned = append(cleaned, name)
	}
	categories, err := s.categories.Ensure(ctx, cleaned)
	if err != nil {
		return nil, err
	}
	cache.InvalidateCategories(ctx)
	return categories, nil
}

func summarize(r models.DebateRecord, now time.Time) models.DebateSummary {
	names := append([]string{}, r.CategoryNames...)
	sort.Strings(names)
	return models.DebateSummary{
		ID:            r.ID,
		Title:         r.Title,
		CategoryNames: names,
		Summary:       r.Summary,
		PictureURL:    r.PictureURL,
		EndAt:         FormatTimeRemaining(r.EndAt, now),
		CreatedBy:     r.CreatedBy,
		Leader:        r.Leader,
		ResponseCount: r.ResponseCount,
	}
}
