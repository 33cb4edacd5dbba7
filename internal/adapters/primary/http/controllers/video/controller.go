package video

import (
	"log/slog"
	"net/http"

	"github.com/admin/ai-studio/internal/adapters/primary/http/middlewares"
	"github.com/admin/ai-studio/internal/adapters/primary/http/response"
	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/ports/service"
	"github.com/admin/ai-studio/internal/ports/usecase"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	VideoService usecase.IVideoUsecase
	Auth         gin.HandlerFunc
	RateLimit    gin.HandlerFunc
	Log          *slog.Logger
}

func New(videoService usecase.IVideoUsecase, auth, rateLimit gin.HandlerFunc, log *slog.Logger) *Controller {
	return &Controller{
		VideoService: videoService,
		Auth:         auth,
		RateLimit:    rateLimit,
		Log:          log,
	}
}

type GenerateVideoRequest struct {
	Prompt   string  `json:"prompt" binding:"required,max=2000"`
	ImageURL *string `json:"image_url" binding:"omitempty,url"`
	Duration int     `json:"duration" binding:"omitempty,min=1,max=10"`
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api", c.Auth)
	{
		start := []gin.HandlerFunc{c.generate}
		if c.RateLimit != nil {
			start = append([]gin.HandlerFunc{c.RateLimit}, start...)
		}
		api.POST("/video/generate", start...)
		api.GET("/video/status/:jobId", c.status)
		api.GET("/videos", c.list)
	}
}

// generate стартует джобу, кредиты спишутся только когда видео будет готово
func (c *Controller) generate(ctx *gin.Context) {
	user, err := middlewares.MustUser(ctx)
	if err != nil {
		response.Error(ctx, c.Log, err)
		return
	}

	var req GenerateVideoRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.BindError(ctx, err)
		return
	}

	job, err := c.VideoService.StartVideo(ctx.Request.Context(), user.ID, service.VideoRequest{
		Prompt:   req.Prompt,
		ImageURL: req.ImageURL,
		Duration: req.Duration,
	})
	if err != nil {
		response.Error(ctx, c.Log, err)
		return
	}

	ctx.JSON(http.StatusAccepted, domain.VideoStatus{
		JobID:  job.ID,
		Status: job.Status,
	})
}

func (c *Controller) status(ctx *gin.Context) {
	user, err := middlewares.MustUser(ctx)
	if err != nil {
		response.Error(ctx, c.Log, err)
		return
	}

	jobID, err := uuid.Parse(ctx.Param("jobId"))
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": response.MsgNotFound})
		return
	}

	status, err := c.VideoService.VideoStatus(ctx.Request.Context(), user.ID, jobID)
	if err != nil {
		response.Error(ctx, c.Log, err)
		return
	}
	ctx.JSON(http.StatusOK, status)
}

func (c *Controller) list(ctx *gin.Context) {
	user, err := middlewares.MustUser(ctx)
	if err != nil {
		response.Error(ctx, c.Log, err)
		return
	}

	var page response.PageQuery
	if err := ctx.ShouldBindQuery(&page); err != nil {
		response.BindError(ctx, err)
		return
	}

	videos, err := c.VideoService.ListVideos(ctx.Request.Context(), user.ID, page.Limit, page.Offset)
	if err != nil {
		response.Error(ctx, c.Log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"videos": videos})
}
