package webhooks

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/admin/ai-studio/internal/adapters/primary/http/middlewares"
	"github.com/admin/ai-studio/internal/adapters/primary/http/response"
	"github.com/admin/ai-studio/internal/adapters/secondary/genapi"
	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/ports/usecase"
	"github.com/gin-gonic/gin"
)

const maxCallbackBody = 1 << 20

// Controller колбэки провайдера генерации
type Controller struct {
	VideoService usecase.IVideoUsecase
	Secret       string
	Log          *slog.Logger
}

func New(videoService usecase.IVideoUsecase, secret string, log *slog.Logger) *Controller {
	return &Controller{
		VideoService: videoService,
		Secret:       secret,
		Log:          log,
	}
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	router.POST("/api/webhooks/generation", middlewares.RequireSecret(c.Secret), c.generation)
}

func (c *Controller) generation(ctx *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxCallbackBody))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": response.MsgInvalidRequest})
		return
	}

	state, err := genapi.ParseCallback(body)
	if err != nil {
		c.Log.Warn("invalid generation callback", "error", err)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": response.MsgInvalidRequest})
		return
	}

	err = c.VideoService.HandleProviderCallback(ctx.Request.Context(), *state)
	switch {
	case err == nil:
		ctx.JSON(http.StatusOK, gin.H{"received": true})
	case errors.Is(err, domain.ErrNotFound):
		// колбэк на чужую или удалённую джобу, повтор не поможет
		c.Log.Info("callback for unknown job", "provider_job_id", state.ProviderJobID)
		ctx.JSON(http.StatusOK, gin.H{"received": false})
	default:
		response.Error(ctx, c.Log, err)
	}
}
