package repository

import (
	"context"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/ports/persistence"
	"github.com/google/uuid"
)

type IVideoRepo interface {
	GetByJobID(ctx context.Context, jobID uuid.UUID) (*domain.GeneratedVideo, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.GeneratedVideo, error)
	CreateTx(ctx context.Context, tx persistence.Transaction, video *domain.GeneratedVideo) error
}
