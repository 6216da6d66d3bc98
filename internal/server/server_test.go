package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

		"rostrum/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServerWithDeps_RequiresCollaborators(t *testing.T) {
	_, err := NewServerWithDeps(testConfig(), Deps{})
	assert.Error(t, err)
}

func TestHealthChecks(t *testing.T) {
	_, app := newTestServer(t)

	resp := do(t, app, apiCall{method: http.MethodGet, path: "/health/live"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, app, apiCall{method: http.MethodGet, path: "/health/ready"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decode(t, resp, &body)
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "healthy", body.Checks["database"])
	assert.Equal(t, "unavailable", body.Checks["redis"])
}

func TestReadinessWithRedis(t *testing.T) {
	s, _ := newTestServer(t)
	mr := miniredis.RunT(t)
	s.redis = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = s.redis.Close() })
	app := s.NewApp()

	resp := do(t, app, apiCall{method: http.MethodGet, path: "/health/ready"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Status string `json:"status"`
	}
	decode(t, resp, &body)
	assert.Equal(t, "healthy", body.Status)
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	_, app := newTestServer(t)
	resp := do(t, app, apiCall{method: http.MethodGet, path: "/debate/list"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
	assert.Equal(t, "nosniff", resp.Header.Get(fiber.HeaderXContentTypeOptions))
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))
}

func TestCORSPreflight(t *testing.T) {
	_, app := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/debate/list", nil)
	req.Header.Set(fiber.HeaderOrigin, "http://localhost:5173")
	req.Header.Set(fiber.HeaderAccessControlRequestMethod, http.MethodGet)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
}

func TestUserHandlers(t *testing.T) {
	_, app := newTestServer(t)

	created := signUp(t, app, "ana")
	assert.Equal(t, "ana", created.User.Username)

	resp := do(t, app, apiCall{method: http.MethodPost, path: "/user", body: fiber.Map{"username": "ana"}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, app, apiCall{method: http.MethodPost, path: "/user", body: fiber.Map{"username": "!"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, app, apiCall{method: http.MethodPost, path: "/auth/token", body: fiber.Map{"username": "ana"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var minted signedUp
	decode(t, resp, &minted)
	assert.Equal(t, created.User.ID, minted.User.ID)
	assert.NotEmpty(t, minted.Token)

	resp = do(t, app, apiCall{method: http.MethodPost, path: "/auth/token", body: fiber.Map{"username": "nobody"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var errBody models.ErrorResponse
	decode(t, resp, &errBody)
	assert.Equal(t, models.CodeNotFound, errBody.Code)
}

func TestDevTokenRouteHiddenInProduction(t *testing.T) {
	s, _ := newTestServer(t)
	cfg := *testConfig()
	cfg.Env = "production"
	s.config = &cfg
	app := s.NewApp()

	resp := do(t, app, apiCall{method: http.MethodPost, path: "/auth/token", body: fiber.Map{"username": "ana"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDebateStream_UpgradeChecks(t *testing.T) {
	_, app := newTestServer(t)
	mod := signUp(t, app, "moderator")
	debate := createDebate(t, app, mod.Token, fiber.Map{
		"title": "Live", "summary": "s", "end_at": time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
	})

	resp := do(t, app, apiCall{method: http.MethodGet, path: fmt.Sprintf("/ws/debate/%d", debate.ID)})
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/ws/debate/999", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	r, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = r.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, r.StatusCode)
}
