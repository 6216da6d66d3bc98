package server

import (
	"time"

	"rostrum/internal/middleware"
	"rostrum/internal/models"

	"github.com/gofiber/fiber/v2"
)

const tokenTTL = 24 * time.Hour

type usernameRequest struct {
	Username string `json:"username"`
}

// CreateUser handles POST /user
// @Summary Sign up
// @Description Creates a user with a unique username and returns a bearer token
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{username=string} true "Sign-up request"
// @Success 201 {object} object{token=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /user [post]
func (s *Server) CreateUser(c *fiber.Ctx) error {
	var req usernameRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.SignUp(c.UserContext(), req.Username)
	if err != nil {
		return fail(c, err)
	}

	token, err := middleware.IssueToken(user.ID, user.Username, tokenTTL)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// IssueDevToken handles POST /auth/token. Only mounted in development.
// @Summary Mint a token for an existing user (development only)
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{username=string} true "Username"
// @Success 200 {object} object{token=string,user=models.User}
// @Failure 404 {object} models.ErrorResponse
// @Router /auth/token [post]
func (s *Server) IssueDevToken(c *fiber.Ctx) error {
	var req usernameRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.GetUserByUsername(c.UserContext(), req.Username)
	if err != nil {
		return fail(c, err)
	}

	token, err := middleware.IssueToken(user.ID, user.Username, tokenTTL)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}
