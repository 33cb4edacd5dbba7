package admin

import (
	"log/slog"
	"net/http"

	"github.com/admin/ai-studio/internal/adapters/primary/http/middlewares"
	"github.com/admin/ai-studio/internal/adapters/primary/http/response"
	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/ports/usecase"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	CreditService   usecase.ICreditService
	TrainingService usecase.ITrainingUsecase
	Auth            gin.HandlerFunc
	Log             *slog.Logger
}

func New(
	creditService usecase.ICreditService,
	trainingService usecase.ITrainingUsecase,
	auth gin.HandlerFunc,
	log *slog.Logger,
) *Controller {
	return &Controller{
		CreditService:   creditService,
		TrainingService: trainingService,
		Auth:            auth,
		Log:             log,
	}
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	admin := router.Group("/api/admin", c.Auth, middlewares.RequireAdmin())
	{
		admin.POST("/update-credits", c.updateCredits)
		admin.DELETE("/models/:id", c.deleteModel)
		admin.GET("/hub-models", c.hubModels)
	}
}

// UpdateCreditsRequest корректировка баланса пользователя
type UpdateCreditsRequest struct {
	UserID    string `json:"userId" binding:"required,uuid"`
	Operation string `json:"operation" binding:"required,oneof=add subtract set"`
	Amount    *int64 `json:"amount" binding:"required"`
	Reason    string `json:"reason" binding:"omitempty,max=500"`
}

func (c *Controller) updateCredits(ctx *gin.Context) {
	adminUser, err := middlewares.MustUser(ctx)
	if err != nil {
		response.Error(ctx, c.Log, err)
		return
	}

	var req UpdateCreditsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.BindError(ctx, err)
		return
	}

	result, err := c.CreditService.AdminAdjust(
		ctx.Request.Context(),
		adminUser.ID,
		uuid.MustParse(req.UserID),
		domain.AdjustOperation(req.Operation),
		*req.Amount,
		req.Reason,
	)
	if err != nil {
		response.Error(ctx, c.Log, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

func (c *Controller) deleteModel(ctx *gin.Context) {
	adminUser, err := middlewares.MustUser(ctx)
	if err != nil {
		response.Error(ctx, c.Log, err)
		return
	}

	modelID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": response.MsgNotFound})
		return
	}

	if err := c.TrainingService.DeleteModel(ctx.Request.Context(), adminUser.ID, modelID); err != nil {
		response.Error(ctx, c.Log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

func (c *Controller) hubModels(ctx *gin.Context) {
	models, err := c.TrainingService.ListHubModels(ctx.Request.Context())
	if err != nil {
		response.Error(ctx, c.Log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"models": models})
}
