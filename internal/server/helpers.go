package server

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"rostrum/internal/middleware"
	"rostrum/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "debateId" -> "debate ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if prefix, ok := strings.CutSuffix(param, "Id"); ok && prefix != "" {
		return strings.ToLower(prefix) + " ID"
	}
	return param
}

// viewerID resolves who is looking at a debate: the authenticated user,
// then the user_id query parameter, then anonymous (0).
func viewerID(c *fiber.Ctx) (uint, error) {
	if id, ok := middleware.UserID(c); ok {
		return id, nil
	}
	raw := strings.TrimSpace(c.Query("user_id"))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, models.NewValidationError("user_id must be a positive integer")
	}
	return uint(id), nil
}

// fail writes err with the status its code maps to. Causes are hidden from
// the client, so internal failures and wrapped conflicts are logged here.
func fail(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	var appErr *models.AppError
	isAppErr := errors.As(err, &appErr)
	switch {
	case status >= fiber.StatusInternalServerError:
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()), slog.String("error", err.Error()))
		if !isAppErr {
			err = models.NewInternalError(err)
		}
	case isAppErr && appErr.Err != nil:
		middleware.Logger.WarnContext(c.UserContext(), "request conflicted",
			slog.String("path", c.Path()),
			slog.String("code", appErr.Code),
			slog.String("error", appErr.Err.Error()))
	}
	return models.RespondWithError(c, status, err)
}

func currentUser(c *fiber.Ctx) uint {
	id, _ := middleware.UserID(c)
	return id
}
