package server

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"rostrum/internal/models"
	"rostrum/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createDebate(t *testing.T, app *fiber.App, token string, body fiber.Map) models.DebateSummary {
	t.Helper()
	resp := do(t, app, apiCall{method: http.MethodPost, path: "/debate", token: token, body: body})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out models.DebateSummary
	decode(t, resp, &out)
	return out
}

func TestDebateHandlers_CreateListAndGet(t *testing.T) {
	s, app := newTestServer(t)
	mod := signUp(t, app, "moderator")

	cats, err := s.debateService.EnsureCategories(context.Background(), []string{"Food", "Science"})
	require.NoError(t, err)

	created := createDebate(t, app, mod.Token, fiber.Map{
		"title":        "Is cereal soup?",
		"summary":      "Milk is a broth",
		"end_at":       time.Now().Add(50 * time.Hour).UTC().Format(time.RFC3339),
		"category_ids": []uint{cats[0].ID, cats[1].ID},
	})
	assert.Equal(t, "moderator", created.CreatedBy)
	assert.ElementsMatch(t, []string{"Food", "Science"}, created.CategoryNames)
	assert.True(t, strings.HasPrefix(created.EndAt, "2d "), created.EndAt)

	resp := do(t, app, apiCall{method: http.MethodGet, path: "/debate/list"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []models.DebateSummary
	decode(t, resp, &list)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
	assert.Nil(t, list[0].Leader)

	resp = do(t, app, apiCall{method: http.MethodGet, path: fmt.Sprintf("/debate/%d/single", created.ID)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail models.DebateDetail
	decode(t, resp, &detail)
	assert.Equal(t, "Is cereal soup?", detail.Title)
	assert.NotNil(t, detail.Responses)
	assert.Empty(t, detail.Responses)

	resp = do(t, app, apiCall{method: http.MethodGet, path: "/debate/category/list"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var categories []models.DebateCategory
	decode(t, resp, &categories)
	assert.Len(t, categories, 2)
}

func TestDebateHandlers_CreateErrors(t *testing.T) {
	_, app := newTestServer(t)
	mod := signUp(t, app, "moderator")
	endAt := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)

	tests := []struct {
		name   string
		token  string
		body   fiber.Map
		status int
		code   string
	}{
		{"anonymous", "", fiber.Map{"title": "t", "summary": "s", "end_at": endAt}, http.StatusUnauthorized, models.CodeUnauthorized},
		{"blank title", mod.Token, fiber.Map{"title": " ", "summary": "s", "end_at": endAt}, http.StatusBadRequest, models.CodeValidation},
		{"missing end_at", mod.Token, fiber.Map{"title": "t", "summary": "s"}, http.StatusBadRequest, models.CodeValidation},
		{"unknown category", mod.Token, fiber.Map{"title": "t", "summary": "s", "end_at": endAt, "category_ids": []uint{99}}, http.StatusNotFound, models.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, app, apiCall{method: http.MethodPost, path: "/debate", token: tt.token, body: tt.body})
			assert.Equal(t, tt.status, resp.StatusCode)
			var body models.ErrorResponse
			decode(t, resp, &body)
			assert.Equal(t, tt.code, body.Code)
		})
	}

	resp := do(t, app, apiCall{
		method: http.MethodPost, path: "/debate", token: mod.Token,
		raw: strings.NewReader("{not json"), contentType: fiber.MIMEApplicationJSON,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDebateHandlers_GetErrors(t *testing.T) {
	_, app := newTestServer(t)

	resp := do(t, app, apiCall{method: http.MethodGet, path: "/debate/999/single"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, app, apiCall{method: http.MethodGet, path: "/debate/abc/single"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, app, apiCall{method: http.MethodGet, path: "/debate/1/single?user_id=x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func multipartImage(t *testing.T, field, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename="picture"`, field))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestDebateHandlers_PictureUploadAndDownload(t *testing.T) {
	_, app := newTestServer(t)
	mod := signUp(t, app, "moderator")
	other := signUp(t, app, "ana")
	debate := createDebate(t, app, mod.Token, fiber.Map{
		"title": "Pictures", "summary": "s", "end_at": time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
	})
	path := fmt.Sprintf("/debate/%d/file", debate.ID)

	resp := do(t, app, apiCall{method: http.MethodGet, path: path})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	body, ct := multipartImage(t, "file", "image/png", testutil.TinyPNG(t, 32, 16))
	resp = do(t, app, apiCall{method: http.MethodPut, path: path, token: other.Token, raw: body, contentType: ct})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	body, ct = multipartImage(t, "file", "image/png", testutil.TinyPNG(t, 32, 16))
	resp = do(t, app, apiCall{method: http.MethodPut, path: path, token: mod.Token, raw: body, contentType: ct})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var uploaded struct {
		PictureURL string `json:"picture_url"`
	}
	decode(t, resp, &uploaded)
	assert.True(t, strings.HasPrefix(uploaded.PictureURL, "/blobs/debates/"))

	resp = do(t, app, apiCall{method: http.MethodGet, path: path})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/webp", resp.Header.Get(fiber.HeaderContentType))

	resp = do(t, app, apiCall{method: http.MethodGet, path: uploaded.PictureURL})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, ct = multipartImage(t, "wrong_field", "image/png", testutil.TinyPNG(t, 8, 8))
	resp = do(t, app, apiCall{method: http.MethodPut, path: path, token: mod.Token, raw: body, contentType: ct})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, ct = multipartImage(t, "file", "image/png", []byte("definitely not a png"))
	resp = do(t, app, apiCall{method: http.MethodPut, path: path, token: mod.Token, raw: body, contentType: ct})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
