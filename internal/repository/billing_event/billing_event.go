package billingEventRepo

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/admin/ai-studio/internal/ports/persistence"
	ports "github.com/admin/ai-studio/internal/ports/repository"
)

type Repository struct {
	Log       *slog.Logger
	tableName string
}

// New репозиторий обработанных вебхуков, работает только внутри транзакции
func New(log *slog.Logger) ports.IBillingEventRepo {
	return &Repository{
		Log:       log,
		tableName: "billing_events",
	}
}

// MarkProcessedTx INSERT ... ON CONFLICT DO NOTHING, повторная доставка вернёт false
func (r *Repository) MarkProcessedTx(ctx context.Context, tx persistence.Transaction, eventID string, eventType string) (bool, error) {
	query := fmt.Sprintf(`INSERT INTO %s (event_id, event_type, processed_at) VALUES ($1, $2, $3) ON CONFLICT (event_id) DO NOTHING`,
		r.tableName)
	rowsAffected, err := tx.ExecWithResult(ctx, query, eventID, eventType, time.Now())
	if err != nil {
		r.Log.Error("failed to mark billing event processed",
			"error", err,
			"event_id", eventID)
		return false, fmt.Errorf("failed to mark billing event processed: %w", err)
	}
	return rowsAffected > 0, nil
}
