package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_UsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/api/video/status/:jobId", func(c *gin.Context) { c.Status(http.StatusOK) })

	before := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/video/status/:jobId", "200"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/video/status/123", nil))
	after := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/video/status/:jobId", "200"))

	assert.Equal(t, before+1, after)
}

func TestRecordCredits(t *testing.T) {
	before := testutil.ToFloat64(credits.WithLabelValues("spent", "video"))
	RecordCredits("video", -5)
	assert.Equal(t, before+5, testutil.ToFloat64(credits.WithLabelValues("spent", "video")))

	RecordCredits("bonus", 3)
	assert.GreaterOrEqual(t, testutil.ToFloat64(credits.WithLabelValues("granted", "bonus")), 3.0)
}

func TestHandler_Exposes(t *testing.T) {
	RecordJobRun("stale-job-reaper", true)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "ai_studio_jobs_runs_total"))
}
