package videoRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"log/slog"

	"github.com/admin/ai-studio/internal/adapters/secondary/storage/pg"
	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/ports/persistence"
	ports "github.com/admin/ai-studio/internal/ports/repository"
	"github.com/google/uuid"
)

type videoColumns struct {
	TableName      string
	ID             string
	UserID         string
	JobID          string
	Prompt         string
	ResultURL      string
	StorageKey     string
	CreditsCharged string
	CreatedAt      string
}

type Repository struct {
	db      persistence.Persistence
	Log     *slog.Logger
	columns videoColumns
}

func New(db persistence.Persistence, log *slog.Logger) ports.IVideoRepo {
	return &Repository{
		db:  db,
		Log: log,
		columns: videoColumns{
			TableName:      "generated_videos",
			ID:             "id",
			UserID:         "user_id",
			JobID:          "job_id",
			Prompt:         "prompt",
			ResultURL:      "result_url",
			StorageKey:     "storage_key",
			CreditsCharged: "credits_charged",
			CreatedAt:      "created_at",
		},
	}
}

func (r *Repository) allColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s",
		r.columns.ID,
		r.columns.UserID,
		r.columns.JobID,
		r.columns.Prompt,
		r.columns.ResultURL,
		r.columns.StorageKey,
		r.columns.CreditsCharged,
		r.columns.CreatedAt)
}

func (r *Repository) CreateTx(ctx context.Context, tx persistence.Transaction, video *domain.GeneratedVideo) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.columns.TableName,
		r.allColumns())
	err := tx.Exec(ctx, query,
		video.ID,
		video.UserID,
		video.JobID,
		video.Prompt,
		video.ResultURL,
		video.StorageKey,
		video.CreditsCharged,
		video.CreatedAt)
	if err != nil {
		if pg.IsUniqueViolation(err) {
			return fmt.Errorf("video for job %s already exists: %w", video.JobID, domain.ErrConflict)
		}
		r.Log.Error("failed to create video",
			"error", err,
			"video_id", video.ID,
			"job_id", video.JobID)
		return fmt.Errorf("failed to create video: %w", err)
	}
	return nil
}

// GetByJobID видео по джобе, ErrNotFound пока джоба не завершена
func (r *Repository) GetByJobID(ctx context.Context, jobID uuid.UUID) (*domain.GeneratedVideo, error) {
	var video domain.GeneratedVideo
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.JobID)
	if err := r.db.Get(ctx, &video, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("video not found: %w", domain.ErrNotFound)
		}
		r.Log.Error("failed to get video by job id", "error", err, "job_id", jobID)
		return nil, fmt.Errorf("failed to get video by job id: %w", err)
	}
	return &video, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.GeneratedVideo, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 ORDER BY %s DESC LIMIT $2 OFFSET $3`,
		r.allColumns(),
		r.columns.TableName,
		r.columns.UserID,
		r.columns.CreatedAt)
	videos := make([]domain.GeneratedVideo, 0)
	if err := r.db.Select(ctx, &videos, query, userID, limit, offset); err != nil {
		r.Log.Error("failed to list videos", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	return videos, nil
}
