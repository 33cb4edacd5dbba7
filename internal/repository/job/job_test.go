package jobRepo

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/admin/ai-studio/internal/adapters/secondary/storage/pg"
	"github.com/admin/ai-studio/internal/ports/persistence"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(pg.NewDB(sqlx.NewDb(db, "pgx")), log).(*Repository), mock
}

func TestCompleteTxOnlyFromProcessing(t *testing.T) {
	repo, mock := newRepo(t)
	id := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $4 AND status = $5")).
		WithArgs("completed", "https://cdn/v.mp4", now, id, "processing").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $4 AND status = $5")).
		WithArgs("completed", "https://cdn/v.mp4", now, id, "processing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.WithTransaction(context.Background(), func(ctx context.Context, tx persistence.Transaction) error {
		first, err := repo.CompleteTx(ctx, tx, id, "https://cdn/v.mp4", now)
		require.NoError(t, err)
		assert.True(t, first)

		second, err := repo.CompleteTx(ctx, tx, id, "https://cdn/v.mp4", now)
		require.NoError(t, err)
		assert.False(t, second)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSumActiveCost(t *testing.T) {
	repo, mock := newRepo(t)
	userID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(cost), 0) FROM jobs")).
		WithArgs(userID, "pending", "processing").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(25))

	total, err := repo.SumActiveCost(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(25), total)
}

func TestFailIgnoresTerminalJobs(t *testing.T) {
	repo, mock := newRepo(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE jobs SET status").
		WithArgs("failed", "provider error", sqlmock.AnyArg(), id, "pending", "processing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.Fail(context.Background(), id, "provider error")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestFailStale(t *testing.T) {
	repo, mock := newRepo(t)
	cutoff := time.Now().Add(-time.Hour)

	mock.ExpectExec("UPDATE jobs SET status").
		WithArgs("failed", "timed out", sqlmock.AnyArg(), "pending", "processing", cutoff).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.FailStale(context.Background(), cutoff, "timed out")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
