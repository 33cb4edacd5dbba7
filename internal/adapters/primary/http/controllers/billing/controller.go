package billing

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/admin/ai-studio/internal/adapters/primary/http/middlewares"
	"github.com/admin/ai-studio/internal/adapters/primary/http/response"
	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/ports/usecase"
	"github.com/gin-gonic/gin"
)

// maxWebhookBody Stripe присылает события до 64KB
const maxWebhookBody = 64 << 10

type Controller struct {
	BillingService usecase.IBillingUsecase
	Auth           gin.HandlerFunc
	Log            *slog.Logger
}

func New(billingService usecase.IBillingUsecase, auth gin.HandlerFunc, log *slog.Logger) *Controller {
	return &Controller{
		BillingService: billingService,
		Auth:           auth,
		Log:            log,
	}
}

type CheckoutRequest struct {
	PlanID string `json:"planId" binding:"required_without=PackID"`
	PackID string `json:"packId" binding:"required_without=PlanID"`
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	// вебхук без авторизации, подлинность проверяется подписью
	router.POST("/api/stripe/webhook", c.webhook)

	stripeGroup := router.Group("/api/stripe", c.Auth)
	{
		stripeGroup.POST("/create-checkout-session", c.checkout)
		stripeGroup.POST("/create-portal-session", c.portal)
		stripeGroup.GET("/subscription-status", c.subscriptionStatus)
	}
}

func (c *Controller) checkout(ctx *gin.Context) {
	user, err := middlewares.MustUser(ctx)
	if err != nil {
		response.Error(ctx, c.Log, err)
		return
	}

	var req CheckoutRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.BindError(ctx, err)
		return
	}

	url, err := c.BillingService.CreateCheckoutSession(ctx.Request.Context(), user.ID, domain.PlanID(req.PlanID), req.PackID)
	if err != nil {
		response.Error(ctx, c.Log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"url": url})
}

func (c *Controller) portal(ctx *gin.Context) {
	user, err := middlewares.MustUser(ctx)
	if err != nil {
		response.Error(ctx, c.Log, err)
		return
	}

	url, err := c.BillingService.CreatePortalSession(ctx.Request.Context(), user.ID)
	if err != nil {
		response.Error(ctx, c.Log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"url": url})
}

func (c *Controller) subscriptionStatus(ctx *gin.Context) {
	user, err := middlewares.MustUser(ctx)
	if err != nil {
		response.Error(ctx, c.Log, err)
		return
	}

	info, err := c.BillingService.SubscriptionStatus(ctx.Request.Context(), user.ID)
	if err != nil {
		response.Error(ctx, c.Log, err)
		return
	}
	ctx.JSON(http.StatusOK, info)
}

// webhook 2xx только когда событие применено или уже было обработано,
// иначе Stripe повторит доставку
func (c *Controller) webhook(ctx *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxWebhookBody))
	if err != nil {
		c.Log.Warn("failed to read billing webhook body", "error", err)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": response.MsgInvalidRequest})
		return
	}

	err = c.BillingService.HandleWebhook(ctx.Request.Context(), payload, ctx.GetHeader("Stripe-Signature"))
	switch {
	case err == nil:
		ctx.JSON(http.StatusOK, gin.H{"received": true})
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrInvalidInput):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Webhook signature verification failed"})
	default:
		response.Error(ctx, c.Log, err)
	}
}
