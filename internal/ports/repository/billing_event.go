package repository

import (
	"context"

	"github.com/admin/ai-studio/internal/ports/persistence"
)

// IBillingEventRepo обработанные события платёжного провайдера
type IBillingEventRepo interface {
	// MarkProcessedTx true если событие пришло впервые
	MarkProcessedTx(ctx context.Context, tx persistence.Transaction, eventID string, eventType string) (bool, error)
}
