package usecase

import (
	"context"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/ports/persistence"
	"github.com/google/uuid"
)

// ICreditService журнал кредитов пользователя
type ICreditService interface {
	CanAfford(user *domain.User, cost int64) bool
	CanAffordWithPending(ctx context.Context, userID uuid.UUID, cost int64) (bool, error)
	SpendCredits(ctx context.Context, change domain.CreditChange) (*domain.SpendResult, error)
	SpendCreditsTx(ctx context.Context, tx persistence.Transaction, change domain.CreditChange) (*domain.SpendResult, error)
	AddCredits(ctx context.Context, change domain.CreditChange) (*domain.SpendResult, error)
	AddCreditsTx(ctx context.Context, tx persistence.Transaction, change domain.CreditChange) (*domain.SpendResult, error)
	AdminAdjust(ctx context.Context, adminID, userID uuid.UUID, op domain.AdjustOperation, amount int64, reason string) (*domain.SpendResult, error)
	Balance(ctx context.Context, userID uuid.UUID) (int64, error)
	History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.CreditTransaction, error)
	// NotifyBalanceChanged вызывается после коммита транзакции, в которой менялся баланс
	NotifyBalanceChanged(ctx context.Context, change domain.CreditChange, delta int64, balance int64) error
}
