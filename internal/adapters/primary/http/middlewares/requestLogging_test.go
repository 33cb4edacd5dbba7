package middlewares

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/admin/ai-studio/internal/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLoggerCarriesRequestAndUserID(t *testing.T) {
	var buf bytes.Buffer
	handler, err := logger.NewHandler(&buf, &logger.Config{Encoding: "json", Level: "info"})
	require.NoError(t, err)
	log := slog.New(handler)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(log))
	verifier := NewTokenVerifier(&AuthConfig{JWTSecret: testSecret, Issuer: "auth.example.com"})
	r.GET("/private", Auth(verifier, &fakeUsers{}, discardLogger()), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims(id.String())))
	req.Header.Set(requestIDHeader, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "req-42", w.Header().Get(requestIDHeader))

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "request completed", record["msg"])
	assert.Equal(t, "req-42", record["request_id"])
	assert.Equal(t, id.String(), record["user_id"])
	assert.Equal(t, float64(http.StatusNoContent), record["status"])
}

func TestRequestLoggerGeneratesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(discardLogger()))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	_, err := uuid.Parse(w.Header().Get(requestIDHeader))
	assert.NoError(t, err)
}

func TestRecoveryLoggerReturnsGenericError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RecoveryLogger(discardLogger()))
	r.GET("/boom", func(c *gin.Context) { panic("provider sdk exploded") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "provider")
}
