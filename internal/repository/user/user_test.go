package userRepo

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/admin/ai-studio/internal/adapters/secondary/storage/pg"
	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/ports/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
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

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "role", "credits", "subscription_plan", "subscription_status",
		"billing_customer_id", "billing_subscription_id", "subscription_period_end", "created_at", "updated_at",
	})
}

func TestGetByIDReturnsUser(t *testing.T) {
	repo, mock := newRepo(t)
	id := uuid.New()
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(userRows().AddRow(id.String(), "a@b.c", "user", 7, "pro", "active", "cus_1", "sub_1", now, now, now))

	user, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, int64(7), user.Credits)
	assert.Equal(t, domain.PlanPro, user.SubscriptionPlan)
	require.NotNil(t, user.BillingCustomerID)
	assert.Equal(t, "cus_1", *user.BillingCustomerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := newRepo(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(userRows())

	_, err := repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLockBalanceTxUsesForUpdate(t *testing.T) {
	repo, mock := newRepo(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT credits FROM users WHERE id = $1 FOR UPDATE")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"credits"}).AddRow(42))
	mock.ExpectCommit()

	var balance int64
	err := repo.WithTransaction(context.Background(), func(ctx context.Context, tx persistence.Transaction) error {
		var err error
		balance, err = repo.LockBalanceTx(ctx, tx, id)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCreditsTxMissingUser(t *testing.T) {
	repo, mock := newRepo(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET credits = $1")).
		WithArgs(int64(3), sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.WithTransaction(context.Background(), func(ctx context.Context, tx persistence.Transaction) error {
		return repo.UpdateCreditsTx(ctx, tx, id, 3)
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSubscriptionTxPassesNilForUnchangedFields(t *testing.T) {
	repo, mock := newRepo(t)
	id := uuid.New()
	status := domain.SubscriptionCanceled

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET").
		WithArgs(nil, "canceled", nil, nil, nil, sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.WithTransaction(context.Background(), func(ctx context.Context, tx persistence.Transaction) error {
		return repo.UpdateSubscriptionTx(ctx, tx, id, domain.SubscriptionUpdate{Status: &status})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpireSubscriptions(t *testing.T) {
	repo, mock := newRepo(t)
	now := time.Now()

	mock.ExpectExec("UPDATE users SET subscription_plan").
		WithArgs("free", "inactive", now, "canceled", "past_due").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.ExpireSubscriptions(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestCreateDuplicateMapsToConflict(t *testing.T) {
	repo, mock := newRepo(t)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value"})

	err := repo.Create(context.Background(), &domain.User{ID: uuid.New(), CreatedAt: now, UpdatedAt: now})
	assert.ErrorIs(t, err, domain.ErrConflict)
}
