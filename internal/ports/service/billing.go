package service

import (
	"context"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/google/uuid"
)

// IBillingProvider платёжный провайдер подписок и разовых покупок
type IBillingProvider interface {
	CreateCustomer(ctx context.Context, userID uuid.UUID, email string) (string, error)
	CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (string, error)
	CreatePortalSession(ctx context.Context, customerID string, returnURL string) (string, error)
	// ParseWebhook проверяет подпись и нормализует событие
	ParseWebhook(payload []byte, signature string) (*domain.BillingEvent, error)
}
