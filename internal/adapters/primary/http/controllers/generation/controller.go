package generation

import (
	"log/slog"
	"net/http"

	"github.com/admin/ai-studio/internal/adapters/primary/http/middlewares"
	"github.com/admin/ai-studio/internal/adapters/primary/http/response"
	"github.com/admin/ai-studio/internal/ports/service"
	"github.com/admin/ai-studio/internal/ports/usecase"
	"github.com/gin-gonic/gin"
)

type Controller struct {
	GenerationService usecase.IGenerationUsecase
	Auth              gin.HandlerFunc
	RateLimit         gin.HandlerFunc
	Log               *slog.Logger
}

// New rateLimit может быть nil
func New(generationService usecase.IGenerationUsecase, auth, rateLimit gin.HandlerFunc, log *slog.Logger) *Controller {
	return &Controller{
		GenerationService: generationService,
		Auth:              auth,
		RateLimit:         rateLimit,
		Log:               log,
	}
}

type GenerateRequest struct {
	Prompt      string `json:"prompt" binding:"required,max=2000"`
	AspectRatio string `json:"aspect_ratio" binding:"omitempty,oneof=1:1 16:9 9:16 4:3 3:4"`
	Model       string `json:"model" binding:"omitempty,max=100"`
}

type EditRequest struct {
	ImageURL string  `json:"image_url" binding:"required,url"`
	Prompt   string  `json:"prompt" binding:"required,max=2000"`
	MaskURL  *string `json:"mask_url" binding:"omitempty,url"`
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api", c.Auth)
	{
		limited := api.Group("")
		if c.RateLimit != nil {
			limited.Use(c.RateLimit)
		}
		limited.POST("/generate", c.generate)
		limited.POST("/edit", c.edit)

		api.GET("/images", c.list)
	}
}

func (c *Controller) generate(ctx *gin.Context) {
	user, err := middlewares.MustUser(ctx)
	if err != nil {
		response.Error(ctx, c.Log, err)
		return
	}

	var req GenerateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.BindError(ctx, err)
		return
	}

	result, err := c.GenerationService.GenerateImage(ctx.Request.Context(), user.ID, service.ImageRequest{
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
		Model:       req.Model,
	})
	if err != nil {
		response.Error(ctx, c.Log, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

func (c *Controller) edit(ctx *gin.Context) {
	user, err := middlewares.MustUser(ctx)
	if err != nil {
		response.Error(ctx, c.Log, err)
		return
	}

	var req EditRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.BindError(ctx, err)
		return
	}

	result, err := c.GenerationService.EditImage(ctx.Request.Context(), user.ID, service.EditRequest{
		ImageURL: req.ImageURL,
		Prompt:   req.Prompt,
		MaskURL:  req.MaskURL,
	})
	if err != nil {
		response.Error(ctx, c.Log, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
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

	images, err := c.GenerationService.ListImages(ctx.Request.Context(), user.ID, page.Limit, page.Offset)
	if err != nil {
		response.Error(ctx, c.Log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"images": images})
}
