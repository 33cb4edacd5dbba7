package imageRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"log/slog"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/ports/persistence"
	ports "github.com/admin/ai-studio/internal/ports/repository"
	"github.com/google/uuid"
)

type imageColumns struct {
	TableName      string
	ID             string
	UserID         string
	Prompt         string
	Kind           string
	SourceImageURL string
	ResultURL      string
	StorageKey     string
	CreditsCharged string
	CreatedAt      string
}

type Repository struct {
	db      persistence.Persistence
	Log     *slog.Logger
	columns imageColumns
}

// New создаёт новый репозиторий для работы с картинками
func New(db persistence.Persistence, log *slog.Logger) ports.IImageRepo {
	cols := imageColumns{
		TableName:      "generated_images",
		ID:             "id",
		UserID:         "user_id",
		Prompt:         "prompt",
		Kind:           "kind",
		SourceImageURL: "source_image_url",
		ResultURL:      "result_url",
		StorageKey:     "storage_key",
		CreditsCharged: "credits_charged",
		CreatedAt:      "created_at",
	}
	return &Repository{
		db:      db,
		Log:     log,
		columns: cols,
	}
}

func (r *Repository) allColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s",
		r.columns.ID,
		r.columns.UserID,
		r.columns.Prompt,
		r.columns.Kind,
		r.columns.SourceImageURL,
		r.columns.ResultURL,
		r.columns.StorageKey,
		r.columns.CreditsCharged,
		r.columns.CreatedAt)
}

// CreateTx сохраняет картинку в той же транзакции, что и списание
func (r *Repository) CreateTx(ctx context.Context, tx persistence.Transaction, image *domain.GeneratedImage) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.columns.TableName,
		r.allColumns())
	err := tx.Exec(ctx, query,
		image.ID,
		image.UserID,
		image.Prompt,
		image.Kind,
		image.SourceImageURL,
		image.ResultURL,
		image.StorageKey,
		image.CreditsCharged,
		image.CreatedAt)
	if err != nil {
		r.Log.Error("failed to create image",
			"error", err,
			"image_id", image.ID,
			"user_id", image.UserID)
		return fmt.Errorf("failed to create image: %w", err)
	}
	r.Log.Debug("image created", "image_id", image.ID)
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.GeneratedImage, error) {
	var image domain.GeneratedImage
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.ID)
	err := r.db.Get(ctx, &image, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("image not found: %w", domain.ErrNotFound)
		}
		r.Log.Error("failed to get image", "error", err, "image_id", id)
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	return &image, nil
}

// ListByUser картинки пользователя, новые сверху
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.GeneratedImage, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 ORDER BY %s DESC LIMIT $2 OFFSET $3`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.UserID,
		r.columns.CreatedAt)
	images := make([]domain.GeneratedImage, 0)
	if err := r.db.Select(ctx, &images, query, userID, limit, offset); err != nil {
		r.Log.Error("failed to list images", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	return images, nil
}
