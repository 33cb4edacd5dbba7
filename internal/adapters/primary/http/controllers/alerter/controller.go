package alerter

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/admin/ai-studio/internal/adapters/primary/http/middlewares"
	"github.com/admin/ai-studio/internal/ports/service"
	"github.com/gin-gonic/gin"
)

type Controller struct {
	AlerterService service.IAlerterService
	Secret         string
	Log            *slog.Logger
}

// New alerterService может быть nil, тогда алерты только логируются
func New(alerterService service.IAlerterService, secret string, log *slog.Logger) *Controller {
	return &Controller{
		AlerterService: alerterService,
		Secret:         secret,
		Log:            log,
	}
}

// AlertPayload алерт в свободной форме от внешних систем (провайдеры, мониторинг)
type AlertPayload struct {
	Message string `json:"message" binding:"required,max=4000"`
	Source  string `json:"source" binding:"omitempty,max=100"`
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	router.POST("/api/webhooks/alert", middlewares.RequireSecret(c.Secret), c.handleAlert)
}

func (c *Controller) handleAlert(ctx *gin.Context) {
	var payload AlertPayload
	if err := ctx.ShouldBindJSON(&payload); err != nil {
		c.Log.Warn("failed to bind alert request", "error", err)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	if c.AlerterService == nil {
		c.Log.Info("alerter service not configured, skipping alert", "source", payload.Source)
		ctx.JSON(http.StatusOK, gin.H{"ok": true, "message": "alerter not configured"})
		return
	}

	message := payload.Message
	if payload.Source != "" {
		message = fmt.Sprintf("🔔 Источник алерта: %s\n\n%s", payload.Source, payload.Message)
	}

	if err := c.AlerterService.SendAlert(ctx.Request.Context(), message); err != nil {
		c.Log.Warn("failed to send alert", "error", err, "source", payload.Source)
		// 200, чтобы отправитель не повторял запрос
		ctx.JSON(http.StatusOK, gin.H{"ok": false, "error": "failed to send alert"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"ok": true})
}
