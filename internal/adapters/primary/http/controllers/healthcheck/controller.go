package healthcheckController

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/admin/ai-studio/internal/pkg/metrics"
	"github.com/gin-gonic/gin"
)

const readyTimeout = 2 * time.Second

// Pinger зависимость, без которой сервис не готов принимать трафик
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthCheckController struct {
	deps map[string]Pinger
	log  *slog.Logger
}

// New deps по имени: "database", "cache" и т.д., nil значения пропускаются
func New(deps map[string]Pinger, log *slog.Logger) *HealthCheckController {
	filtered := make(map[string]Pinger, len(deps))
	for name, p := range deps {
		if p != nil {
			filtered[name] = p
		}
	}
	return &HealthCheckController{
		deps: filtered,
		log:  log,
	}
}

func (c *HealthCheckController) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", c.health)
	r.GET("/ready", c.ready)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
}

// health базовая проверка (всегда возвращает 200)
func (c *HealthCheckController) health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "ai-studio",
	})
}

// ready пингует все зависимости
func (c *HealthCheckController) ready(ctx *gin.Context) {
	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), readyTimeout)
	defer cancel()

	failed := make([]string, 0)
	for name, dep := range c.deps {
		if err := dep.Ping(pingCtx); err != nil {
			c.log.Error("dependency not ready", "dependency", name, "error", err)
			failed = append(failed, name)
		}
	}

	if len(failed) > 0 {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"status":      "not ready",
			"unavailable": failed,
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}
