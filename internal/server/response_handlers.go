package server

import (
	"rostrum/internal/models"
	"rostrum/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateResponseRequest is the body of POST /response.
type CreateResponseRequest struct {
	DebateID uint   `json:"debate_id"`
	Body     string `json:"body"`
}

// CreateResponse handles POST /response
// @Summary Respond to a debate
// @Tags responses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateResponseRequest true "Response"
// @Success 201 {object} models.ResponseView
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /response [post]
func (s *Server) CreateResponse(c *fiber.Ctx) error {
	var req CreateResponseRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	view, err := s.responseService.CreateResponse(c.UserContext(), service.CreateResponseInput{
		AuthorID: currentUser(c),
		DebateID: req.DebateID,
		Body:     req.Body,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(view)
}

// CastVote handles POST /response/:id/vote
// @Summary Vote on a response
// @Description Repeating a vote removes it; voting the other way switches it.
// @Tags responses
// @Produce json
// @Security BearerAuth
// @Param id path int true "Response ID"
// @Param vote_type query string true "agree or disagree"
// @Success 200 {object} models.VoteResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /response/{id}/vote [post]
func (s *Server) CastVote(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.voteService.CastVote(c.UserContext(), service.CastVoteInput{
		VoterID:    currentUser(c),
		ResponseID: id,
		VoteType:   models.VoteType(c.Query("vote_type")),
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(result)
}
