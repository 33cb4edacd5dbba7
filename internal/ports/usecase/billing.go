package usecase

import (
	"context"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/google/uuid"
)

type IBillingUsecase interface {
	// CreateCheckoutSession ровно один из planID/packID должен быть задан
	CreateCheckoutSession(ctx context.Context, userID uuid.UUID, planID domain.PlanID, packID string) (string, error)
	CreatePortalSession(ctx context.Context, userID uuid.UUID) (string, error)
	SubscriptionStatus(ctx context.Context, userID uuid.UUID) (*domain.SubscriptionInfo, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}
