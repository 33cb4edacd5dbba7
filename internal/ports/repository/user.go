package repository

import (
	"context"
	"time"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/ports/persistence"
	"github.com/google/uuid"
)

// IUserRepo интерфейс для работы с пользователями и их балансом
type IUserRepo interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByCustomerID(ctx context.Context, customerID string) (*domain.User, error)
	SetCustomerID(ctx context.Context, id uuid.UUID, customerID string) error
	// ExpireSubscriptions переводит на free пользователей с закончившейся отменённой подпиской
	ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error)

	BeginTx(ctx context.Context) (persistence.Transaction, error)
	WithTransaction(ctx context.Context, fn func(context.Context, persistence.Transaction) error) error

	// Транзакционные методы
	CreateTx(ctx context.Context, tx persistence.Transaction, user *domain.User) error
	GetByIDTx(ctx context.Context, tx persistence.Transaction, id uuid.UUID) (*domain.User, error)
	GetByCustomerIDTx(ctx context.Context, tx persistence.Transaction, customerID string) (*domain.User, error)
	// LockBalanceTx блокирует строку пользователя до конца транзакции и возвращает баланс
	LockBalanceTx(ctx context.Context, tx persistence.Transaction, id uuid.UUID) (int64, error)
	UpdateCreditsTx(ctx context.Context, tx persistence.Transaction, id uuid.UUID, credits int64) error
	UpdateSubscriptionTx(ctx context.Context, tx persistence.Transaction, id uuid.UUID, upd domain.SubscriptionUpdate) error
}
