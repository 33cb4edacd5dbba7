package generation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/admin/ai-studio/internal/adapters/primary/http/middlewares"
	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/ports/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGeneration struct {
	err      error
	requests []service.ImageRequest
}

func (f *fakeGeneration) GenerateImage(_ context.Context, userID uuid.UUID, req service.ImageRequest) (*domain.ImageGeneration, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ImageGeneration{
		Image:   domain.GeneratedImage{ID: uuid.New(), UserID: userID, Prompt: req.Prompt, ResultURL: "https://cdn.example.com/a.png"},
		Balance: 2,
	}, nil
}

func (f *fakeGeneration) EditImage(_ context.Context, userID uuid.UUID, req service.EditRequest) (*domain.ImageGeneration, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ImageGeneration{Image: domain.GeneratedImage{ID: uuid.New(), UserID: userID, Kind: domain.ImageKindEdit}}, nil
}

func (f *fakeGeneration) ListImages(context.Context, uuid.UUID, int, int) ([]domain.GeneratedImage, error) {
	return []domain.GeneratedImage{}, nil
}

func newRouter(svc *fakeGeneration) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	auth := func(c *gin.Context) {
		middlewares.SetUser(c, &domain.User{ID: uuid.New(), Credits: 3})
		c.Next()
	}
	New(svc, auth, nil, slog.New(slog.NewTextHandler(io.Discard, nil))).RegisterRoutes(r)
	return r
}

func postJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGenerate(t *testing.T) {
	svc := &fakeGeneration{}
	w := postJSON(newRouter(svc), "/api/generate", `{"prompt":"a cat in a hat","aspect_ratio":"16:9"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"newBalance":2`)
	require.Len(t, svc.requests, 1)
	assert.Equal(t, "16:9", svc.requests[0].AspectRatio)
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantBody string
	}{
		{"missing prompt", `{}`, nil, http.StatusBadRequest, "details"},
		{"bad aspect ratio", `{"prompt":"x","aspect_ratio":"2:1"}`, nil, http.StatusBadRequest, "details"},
		{"insufficient credits", `{"prompt":"x"}`, domain.WrapBusinessError(domain.ErrInsufficientCredits), http.StatusBadRequest, domain.InsufficientCreditsMessage},
		{"provider failure", `{"prompt":"x"}`, domain.WrapBusinessError(fmt.Errorf("%w: upstream 502", domain.ErrProviderFailure)), http.StatusInternalServerError, "Generation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(newRouter(&fakeGeneration{err: tt.err}), "/api/generate", tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
			assert.NotContains(t, w.Body.String(), "upstream")
		})
	}
}

func TestEditRequiresImageURL(t *testing.T) {
	w := postJSON(newRouter(&fakeGeneration{}), "/api/edit", `{"prompt":"make it blue"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(newRouter(&fakeGeneration{}), "/api/edit", `{"prompt":"make it blue","image_url":"https://cdn.example.com/a.png"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}
