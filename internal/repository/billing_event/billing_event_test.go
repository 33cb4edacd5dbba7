package billingEventRepo

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/admin/ai-studio/internal/adapters/secondary/storage/pg"
	"github.com/admin/ai-studio/internal/ports/persistence"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkProcessedTxDetectsRedelivery(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db := pg.NewDB(sqlx.NewDb(sqlDB, "pgx"))
	repo := New(slog.New(slog.NewTextHandler(io.Discard, nil)))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO billing_events").
		WithArgs("evt_1", "invoice.paid", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO billing_events").
		WithArgs("evt_1", "invoice.paid", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err = db.WithTransaction(context.Background(), func(ctx context.Context, tx persistence.Transaction) error {
		first, err := repo.MarkProcessedTx(ctx, tx, "evt_1", "invoice.paid")
		require.NoError(t, err)
		assert.True(t, first)

		again, err := repo.MarkProcessedTx(ctx, tx, "evt_1", "invoice.paid")
		require.NoError(t, err)
		assert.False(t, again)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
