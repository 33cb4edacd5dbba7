package repository

import (
	"context"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/ports/persistence"
	"github.com/google/uuid"
)

// ICreditRepo журнал операций с кредитами
type ICreditRepo interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.CreditTransaction, error)
	CreateTx(ctx context.Context, tx persistence.Transaction, t *domain.CreditTransaction) error
}
