package repository

import (
	"context"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/ports/persistence"
	"github.com/google/uuid"
)

// IImageRepo интерфейс для работы с сгенерированными картинками
type IImageRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.GeneratedImage, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.GeneratedImage, error)
	CreateTx(ctx context.Context, tx persistence.Transaction, image *domain.GeneratedImage) error
}
