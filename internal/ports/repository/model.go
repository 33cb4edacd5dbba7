package repository

import (
	"context"
	"time"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/ports/persistence"
	"github.com/google/uuid"
)

// IModelRepo обученные модели пользователей
type IModelRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.TrainedModel, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.TrainedModel, error)
	SoftDelete(ctx context.Context, id uuid.UUID, deletedAt time.Time) error
	CreateTx(ctx context.Context, tx persistence.Transaction, model *domain.TrainedModel) error
}
