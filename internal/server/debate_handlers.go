package server

import (
	"io"
	"time"

	"rostrum/internal/models"
	"rostrum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateDebateRequest is the body of POST /debate.
type CreateDebateRequest struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	EndAt       time.Time `json:"end_at"`
	CategoryIDs []uint    `json:"category_ids"`
}

// ListDebates handles GET /debate/list
// @Summary List debates
// @Description All debates, soonest-ending first
// @Tags debates
// @Produce json
// @Success 200 {array} models.DebateSummary
// @Router /debate/list [get]
func (s *Server) ListDebates(c *fiber.Ctx) error {
	debates, err := s.debateService.ListDebates(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(debates)
}

// CreateDebate handles POST /debate
// @Summary Create a debate
// @Tags debates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateDebateRequest true "Debate"
// @Success 201 {object} models.DebateSummary
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /debate [post]
func (s *Server) CreateDebate(c *fiber.Ctx) error {
	var req CreateDebateRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	created, err := s.debateService.CreateDebate(c.UserContext(), service.CreateDebateInput{
		CreatorID:   currentUser(c),
		Title:       req.Title,
		Summary:     req.Summary,
		EndAt:       req.EndAt,
		CategoryIDs: req.CategoryIDs,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// GetDebate handles GET /debate/:id/single
// @Summary Get one debate with its responses
// @Description Vote flags are computed for the authenticated caller, else for user_id
// @Tags debates
// @Produce json
// @Param id path int true "Debate ID"
// @Param user_id query int false "Viewer ID"
// @Success 200 {object} models.DebateDetail
// @Failure 404 {object} models.ErrorResponse
// @Router /debate/{id}/single [get]
func (s *Server) GetDebate(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	viewer, err := viewerID(c)
	if err != nil {
		return fail(c, err)
	}

	detail, err := s.debateService.GetDebate(c.UserContext(), id, viewer)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(detail)
}

// UploadPicture handles PUT /debate/:id/file
// @Summary Upload a debate picture
// @Description Creator only. The image is stored as WebP.
// @Tags debates
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Debate ID"
// @Param file formData file true "Image"
// @Success 200 {object} object{picture_url=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /debate/{id}/file [put]
func (s *Server) UploadPicture(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	file, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("No file uploaded"))
	}
	src, err := file.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}

	url, err := s.debateService.UploadPicture(c.UserContext(), service.UploadPictureInput{
		UserID:      currentUser(c),
		DebateID:    id,
		ContentType: file.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"picture_url": url})
}

// DownloadPicture handles GET /debate/:id/file
// @Summary Download a debate picture
// @Tags debates
// @Produce image/webp
// @Param id path int true "Debate ID"
// @Success 200 {file} binary
// @Failure 404 {object} models.ErrorResponse
// @Router /debate/{id}/file [get]
func (s *Server) DownloadPicture(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	data, contentType, err := s.debateService.DownloadPicture(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
	return c.Send(data)
}

// ListCategories handles GET /debate/category/list
// @Summary List debate categories
// @Tags debates
// @Produce json
// @Success 200 {array} models.DebateCategory
// @Router /debate/category/list [get]
func (s *Server) ListCategories(c *fiber.Ctx) error {
	categories, err := s.debateService.ListCategories(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(categories)
}
