package modelRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/ports/persistence"
	ports "github.com/admin/ai-studio/internal/ports/repository"
	"github.com/google/uuid"
)

type modelColumns struct {
	TableName       string
	ID              string
	UserID          string
	JobID           string
	Name            string
	TriggerWord     string
	ProviderModelID string
	CreatedAt       string
	DeletedAt       string
}

type Repository struct {
	db      persistence.Persistence
	Log     *slog.Logger
	columns modelColumns
}

func New(db persistence.Persistence, log *slog.Logger) ports.IModelRepo {
	return &Repository{
		db:  db,
		Log: log,
		columns: modelColumns{
			TableName:       "trained_models",
			ID:              "id",
			UserID:          "user_id",
			JobID:           "job_id",
			Name:            "name",
			TriggerWord:     "trigger_word",
			ProviderModelID: "provider_model_id",
			CreatedAt:       "created_at",
			DeletedAt:       "deleted_at",
		},
	}
}

func (r *Repository) allColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s",
		r.columns.ID,
		r.columns.UserID,
		r.columns.JobID,
		r.columns.Name,
		r.columns.TriggerWord,
		r.columns.ProviderModelID,
		r.columns.CreatedAt,
		r.columns.DeletedAt)
}

func (r *Repository) CreateTx(ctx context.Context, tx persistence.Transaction, model *domain.TrainedModel) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.columns.TableName,
		r.allColumns())
	err := tx.Exec(ctx, query,
		model.ID,
		model.UserID,
		model.JobID,
		model.Name,
		model.TriggerWord,
		model.ProviderModelID,
		model.CreatedAt,
		model.DeletedAt)
	if err != nil {
		r.Log.Error("failed to create trained model",
			"error", err,
			"model_id", model.ID,
			"job_id", model.JobID)
		return fmt.Errorf("failed to create trained model: %w", err)
	}
	return nil
}

// GetByID возвращает и удалённые модели, проверка deleted_at на вызывающей стороне
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.TrainedModel, error) {
	var model domain.TrainedModel
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.ID)
	if err := r.db.Get(ctx, &model, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("model not found: %w", domain.ErrNotFound)
		}
		r.Log.Error("failed to get trained model", "error", err, "model_id", id)
		return nil, fmt.Errorf("failed to get trained model: %w", err)
	}
	return &model, nil
}

// ListByUser только не удалённые модели
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.TrainedModel, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s IS NULL ORDER BY %s DESC`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.UserID,
		r.columns.DeletedAt,
		r.columns.CreatedAt)
	models := make([]domain.TrainedModel, 0)
	if err := r.db.Select(ctx, &models, query, userID); err != nil {
		r.Log.Error("failed to list trained models", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to list trained models: %w", err)
	}
	return models, nil
}

func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID, deletedAt time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $1 WHERE %s = $2 AND %s IS NULL`,
		r.columns.TableName,
		r.columns.DeletedAt,
		r.columns.ID,
		r.columns.DeletedAt)
	rowsAffected, err := r.db.ExecWithResult(ctx, query, deletedAt, id)
	if err != nil {
		r.Log.Error("failed to delete trained model", "error", err, "model_id", id)
		return fmt.Errorf("failed to delete trained model: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("model not found: %w", domain.ErrNotFound)
	}
	return nil
}
