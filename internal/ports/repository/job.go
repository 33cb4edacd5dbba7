package repository

import (
	"context"
	"time"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/ports/persistence"
	"github.com/google/uuid"
)

// IJobRepo очередь асинхронных джоб
type IJobRepo interface {
	Create(ctx context.Context, job *domain.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	GetByProviderJobID(ctx context.Context, providerJobID string) (*domain.Job, error)
	MarkProcessing(ctx context.Context, id uuid.UUID, providerJobID *string) error
	IncrementAttempts(ctx context.Context, id uuid.UUID) error
	// Fail переводит незавершённую джобу в failed, false если джоба уже завершена
	Fail(ctx context.Context, id uuid.UUID, message string) (bool, error)
	// SumActiveCost сумма стоимости незавершённых джоб пользователя
	SumActiveCost(ctx context.Context, userID uuid.UUID) (int64, error)
	// FailStale переводит в failed джобы, висящие в processing дольше olderThan
	FailStale(ctx context.Context, olderThan time.Time, message string) (int64, error)

	BeginTx(ctx context.Context) (persistence.Transaction, error)
	WithTransaction(ctx context.Context, fn func(context.Context, persistence.Transaction) error) error

	// CompleteTx условный переход processing -> completed, false если джобу уже завершили
	CompleteTx(ctx context.Context, tx persistence.Transaction, id uuid.UUID, resultURL string, completedAt time.Time) (bool, error)
	FailTx(ctx context.Context, tx persistence.Transaction, id uuid.UUID, message string) (bool, error)
}
