package creditRepo

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/ports/persistence"
	ports "github.com/admin/ai-studio/internal/ports/repository"
	"github.com/google/uuid"
)

type creditColumns struct {
	TableName    string
	ID           string
	UserID       string
	Delta        string
	BalanceAfter string
	Reason       string
	Category     string
	ReferenceID  string
	Metadata     string
	CreatedAt    string
}

type Repository struct {
	db      persistence.Persistence
	Log     *slog.Logger
	columns creditColumns
}

// New создаёт репозиторий журнала кредитов
func New(db persistence.Persistence, log *slog.Logger) ports.ICreditRepo {
	return &Repository{
		db:  db,
		Log: log,
		columns: creditColumns{
			TableName:    "credit_transactions",
			ID:           "id",
			UserID:       "user_id",
			Delta:        "delta",
			BalanceAfter: "balance_after",
			Reason:       "reason",
			Category:     "category",
			ReferenceID:  "reference_id",
			Metadata:     "metadata",
			CreatedAt:    "created_at",
		},
	}
}

func (r *Repository) allColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s",
		r.columns.ID,
		r.columns.UserID,
		r.columns.Delta,
		r.columns.BalanceAfter,
		r.columns.Reason,
		r.columns.Category,
		r.columns.ReferenceID,
		r.columns.Metadata,
		r.columns.CreatedAt)
}

// CreateTx пишет строку журнала в транзакции списания/начисления
func (r *Repository) CreateTx(ctx context.Context, tx persistence.Transaction, t *domain.CreditTransaction) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.columns.TableName,
		r.allColumns())
	err := tx.Exec(ctx, query,
		t.ID,
		t.UserID,
		t.Delta,
		t.BalanceAfter,
		t.Reason,
		t.Category,
		t.ReferenceID,
		t.Metadata,
		t.CreatedAt)
	if err != nil {
		r.Log.Error("failed to create credit transaction",
			"error", err,
			"user_id", t.UserID,
			"delta", t.Delta,
			"category", t.Category)
		return fmt.Errorf("failed to create credit transaction: %w", err)
	}
	return nil
}

// ListByUser история операций, новые сверху
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.CreditTransaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 ORDER BY %s DESC LIMIT $2 OFFSET $3`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.UserID,
		r.columns.CreatedAt)
	transactions := make([]domain.CreditTransaction, 0)
	if err := r.db.Select(ctx, &transactions, query, userID, limit, offset); err != nil {
		r.Log.Error("failed to list credit transactions",
			"error", err,
			"user_id", userID)
		return nil, fmt.Errorf("failed to list credit transactions: %w", err)
	}
	return transactions, nil
}
