package account

import (
	"log/slog"
	"net/http"

	"github.com/admin/ai-studio/internal/adapters/primary/http/middlewares"
	"github.com/admin/ai-studio/internal/adapters/primary/http/response"
	"github.com/admin/ai-studio/internal/ports/usecase"
	"github.com/gin-gonic/gin"
)

type Controller struct {
	UserService   usecase.IUserUsecase
	CreditService usecase.ICreditService
	Auth          gin.HandlerFunc
	Log           *slog.Logger
}

func New(userService usecase.IUserUsecase, creditService usecase.ICreditService, auth gin.HandlerFunc, log *slog.Logger) *Controller {
	return &Controller{
		UserService:   userService,
		CreditService: creditService,
		Auth:          auth,
		Log:           log,
	}
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api", c.Auth)
	{
		api.GET("/me", c.me)
		api.GET("/credits", c.credits)
		api.GET("/credits/transactions", c.transactions)
	}
}

func (c *Controller) me(ctx *gin.Context) {
	user, err := middlewares.MustUser(ctx)
	if err != nil {
		response.Error(ctx, c.Log, err)
		return
	}

	profile, err := c.UserService.GetProfile(ctx.Request.Context(), user.ID)
	if err != nil {
		response.Error(ctx, c.Log, err)
		return
	}
	ctx.JSON(http.StatusOK, profile)
}

func (c *Controller) credits(ctx *gin.Context) {
	user, err := middlewares.MustUser(ctx)
	if err != nil {
		response.Error(ctx, c.Log, err)
		return
	}

	balance, err := c.CreditService.Balance(ctx.Request.Context(), user.ID)
	if err != nil {
		response.Error(ctx, c.Log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"credits": balance})
}

// transactions история журнала кредитов, новые сверху
func (c *Controller) transactions(ctx *gin.Context) {
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

	history, err := c.CreditService.History(ctx.Request.Context(), user.ID, page.Limit, page.Offset)
	if err != nil {
		response.Error(ctx, c.Log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"transactions": history})
}
