package training

import (
	"log/slog"
	"net/http"

	"github.com/admin/ai-studio/internal/adapters/primary/http/middlewares"
	"github.com/admin/ai-studio/internal/adapters/primary/http/response"
	"github.com/admin/ai-studio/internal/ports/usecase"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	TrainingService usecase.ITrainingUsecase
	Auth            gin.HandlerFunc
	Log             *slog.Logger
}

func New(trainingService usecase.ITrainingUsecase, auth gin.HandlerFunc, log *slog.Logger) *Controller {
	return &Controller{
		TrainingService: trainingService,
		Auth:            auth,
		Log:             log,
	}
}

type StartTrainingRequest struct {
	Name        string   `json:"name" binding:"required,max=100"`
	TriggerWord string   `json:"trigger_word" binding:"required,max=50"`
	ImageURLs   []string `json:"image_urls" binding:"required,min=1,max=50,dive,url"`
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api", c.Auth)
	{
		api.POST("/training", c.start)
		api.GET("/training/:jobId", c.status)
		api.GET("/models", c.models)
	}
}

func (c *Controller) start(ctx *gin.Context) {
	user, err := middlewares.MustUser(ctx)
	if err != nil {
		response.Error(ctx, c.Log, err)
		return
	}

	var req StartTrainingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.BindError(ctx, err)
		return
	}

	job, err := c.TrainingService.StartTraining(ctx.Request.Context(), user.ID, req.Name, req.TriggerWord, req.ImageURLs)
	if err != nil {
		response.Error(ctx, c.Log, err)
		return
	}
	ctx.JSON(http.StatusAccepted, job)
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

	job, err := c.TrainingService.TrainingStatus(ctx.Request.Context(), user.ID, jobID)
	if err != nil {
		response.Error(ctx, c.Log, err)
		return
	}
	ctx.JSON(http.StatusOK, job)
}

func (c *Controller) models(ctx *gin.Context) {
	user, err := middlewares.MustUser(ctx)
	if err != nil {
		response.Error(ctx, c.Log, err)
		return
	}

	models, err := c.TrainingService.ListModels(ctx.Request.Context(), user.ID)
	if err != nil {
		response.Error(ctx, c.Log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"models": models})
}
