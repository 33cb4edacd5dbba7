package imageRepo

import (
	"context"
	"errors"
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
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var imageColumnNames = []string{"id", "user_id", "prompt", "kind", "source_image_url", "result_url", "storage_key", "credits_charged", "created_at"}

func newRepo(t *testing.T) (*Repository, *pg.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	db := pg.NewDB(sqlx.NewDb(sqlDB, "pgx"))
	return New(db, slog.New(slog.NewTextHandler(io.Discard, nil))).(*Repository), db, mock
}

func TestCreateTxInsertsInsideTransaction(t *testing.T) {
	repo, db, mock := newRepo(t)
	image := &domain.GeneratedImage{
		ID:             uuid.New(),
		UserID:         uuid.New(),
		Prompt:         "a red fox in snow",
		Kind:           domain.ImageKindGenerate,
		ResultURL:      "https://cdn.example.com/out.png",
		CreditsCharged: 1,
		CreatedAt:      time.Now(),
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO generated_images")).
		WithArgs(image.ID, image.UserID, image.Prompt, "generate", nil, image.ResultURL, nil, int64(1), image.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := db.WithTransaction(context.Background(), func(ctx context.Context, tx persistence.Transaction) error {
		return repo.CreateTx(ctx, tx, image)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTxFailureRollsBack(t *testing.T) {
	repo, db, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO generated_images")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := db.WithTransaction(context.Background(), func(ctx context.Context, tx persistence.Transaction) error {
		return repo.CreateTx(ctx, tx, &domain.GeneratedImage{ID: uuid.New(), UserID: uuid.New()})
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	repo, _, mock := newRepo(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM generated_images WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(imageColumnNames))

	_, err := repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListByUserNewestFirst(t *testing.T) {
	repo, _, mock := newRepo(t)
	userID := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows(imageColumnNames).
		AddRow(uuid.NewString(), userID.String(), "edit it", "edit", "https://src/1.png", "https://out/2.png", "images/2.png", 1, now).
		AddRow(uuid.NewString(), userID.String(), "make it", "generate", nil, "https://out/1.png", nil, 1, now.Add(-time.Minute))

	mock.ExpectQuery(regexp.QuoteMeta("FROM generated_images WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3")).
		WithArgs(userID, 50, 0).
		WillReturnRows(rows)

	list, err := repo.ListByUser(context.Background(), userID, 50, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domain.ImageKindEdit, list[0].Kind)
	require.NotNil(t, list[0].SourceImageURL)
	assert.Equal(t, "https://src/1.png", *list[0].SourceImageURL)
	assert.Nil(t, list[1].StorageKey)
}
