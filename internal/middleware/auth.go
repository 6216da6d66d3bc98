// Package middleware provides identity, rate limiting, tracing and logging middleware for the API.
package middleware

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"rostrum/internal/config"
	"rostrum/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer   = "rostrum-api"
	tokenAudience = "rostrum-client"
)

var cfg *config.Config

var errNoToken = errors.New("no bearer token")

// InitMiddleware initializes identity middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

// Claims is the token payload. Subject carries the user id.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for the user, valid for ttl.
func IssueToken(userID uint, username string, ttl time.Duration) (string, error) {
	if cfg == nil || cfg.JWTSecret == "" {
		return "", errors.New("middleware not initialized")
	}
	now := time.Now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
}

// bearerToken reads "Authorization: Bearer <token>", falling back to the
// token query parameter for browser WebSocket clients.
func bearerToken(c *fiber.Ctx) (string, error) {
	if authHeader := c.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", errors.New("invalid authorization header format")
		}
		return parts[1], nil
	}
	if t := c.Query("token"); t != "" {
		return t, nil
	}
	return "", errNoToken
}

func parseUserID(tokenString string) (uint, error) {
	if cfg == nil {
		return 0, errors.New("middleware not initialized")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithAudience(tokenAudience))
	if err != nil || !token.Valid {
		return 0, errors.New("invalid or expired token")
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil || userID == 0 {
		return 0, errors.New("invalid user id in token")
	}
	return uint(userID), nil
}

func setUser(c *fiber.Ctx, userID uint) {
	c.Locals(LocalUserID, userID)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))
}

// RequireUser rejects requests without a valid bearer token.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := bearerToken(c)
		if err != nil {
			msg := "Authorization required"
			if !errors.Is(err, errNoToken) {
				msg = "Invalid authorization header format"
			}
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(msg))
		}

		userID, err := parseUserID(tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		setUser(c, userID)
		return c.Next()
	}
}

// OptionalUser records the caller when a valid token is present and lets
// anonymous requests through. A malformed token is still rejected.
func OptionalUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := bearerToken(c)
		if errors.Is(err, errNoToken) {
			return c.Next()
		}
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid authorization header format"))
		}

		userID, err := parseUserID(tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		setUser(c, userID)
		return c.Next()
	}
}

// UserID returns the authenticated user stored by RequireUser or OptionalUser.
func UserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(LocalUserID).(uint)
	return id, ok && id != 0
}
