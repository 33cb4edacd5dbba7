package usecase

import (
	"context"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/google/uuid"
)

type IUserUsecase interface {
	// EnsureUser создаёт пользователя при первом запросе, повторные вызовы возвращают существующего
	EnsureUser(ctx context.Context, id uuid.UUID, email string) (*domain.User, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*domain.User, error)
}
