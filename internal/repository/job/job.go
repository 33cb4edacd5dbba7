package jobRepo

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

type jobColumns struct {
	TableName     string
	ID            string
	UserID        string
	Type          string
	Status        string
	ProviderJobID string
	Cost          string
	Input         string
	ResultURL     string
	ErrorMessage  string
	Attempts      string
	CreatedAt     string
	UpdatedAt     string
	CompletedAt   string
}

type Repository struct {
	db      persistence.Persistence
	Log     *slog.Logger
	columns jobColumns
}

// New создаёт репозиторий очереди джоб
func New(db persistence.Persistence, log *slog.Logger) ports.IJobRepo {
	return &Repository{
		db:  db,
		Log: log,
		columns: jobColumns{
			TableName:     "jobs",
			ID:            "id",
			UserID:        "user_id",
			Type:          "type",
			Status:        "status",
			ProviderJobID: "provider_job_id",
			Cost:          "cost",
			Input:         "input",
			ResultURL:     "result_url",
			ErrorMessage:  "error_message",
			Attempts:      "attempts",
			CreatedAt:     "created_at",
			UpdatedAt:     "updated_at",
			CompletedAt:   "completed_at",
		},
	}
}

func (r *Repository) allColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s",
		r.columns.ID,
		r.columns.UserID,
		r.columns.Type,
		r.columns.Status,
		r.columns.ProviderJobID,
		r.columns.Cost,
		r.columns.Input,
		r.columns.ResultURL,
		r.columns.ErrorMessage,
		r.columns.Attempts,
		r.columns.CreatedAt,
		r.columns.UpdatedAt,
		r.columns.CompletedAt)
}

func (r *Repository) Create(ctx context.Context, job *domain.Job) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		r.columns.TableName,
		r.allColumns())
	err := r.db.Exec(ctx, query,
		job.ID,
		job.UserID,
		job.Type,
		job.Status,
		job.ProviderJobID,
		job.Cost,
		job.Input,
		job.ResultURL,
		job.ErrorMessage,
		job.Attempts,
		job.CreatedAt,
		job.UpdatedAt,
		job.CompletedAt)
	if err != nil {
		r.Log.Error("failed to create job",
			"error", err,
			"job_id", job.ID,
			"type", job.Type)
		return fmt.Errorf("failed to create job: %w", err)
	}
	r.Log.Debug("job created", "job_id", job.ID, "type", job.Type, "status", job.Status)
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	return r.getBy(ctx, r.columns.ID, id)
}

// GetByProviderJobID джоба по id у провайдера (вебхук провайдера знает только его)
func (r *Repository) GetByProviderJobID(ctx context.Context, providerJobID string) (*domain.Job, error) {
	return r.getBy(ctx, r.columns.ProviderJobID, providerJobID)
}

func (r *Repository) getBy(ctx context.Context, column string, value interface{}) (*domain.Job, error) {
	var job domain.Job
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		r.allColumns(),
		r.columns.TableName,
		column)
	if err := r.db.Get(ctx, &job, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("job not found: %w", domain.ErrNotFound)
		}
		r.Log.Error("failed to get job", "error", err, column, value)
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// MarkProcessing pending -> processing, запоминает id у провайдера
func (r *Repository) MarkProcessing(ctx context.Context, id uuid.UUID, providerJobID *string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = COALESCE($2, %s), %s = $3 WHERE %s = $4 AND %s = $5`,
		r.columns.TableName,
		r.columns.Status,
		r.columns.ProviderJobID, r.columns.ProviderJobID,
		r.columns.UpdatedAt,
		r.columns.ID,
		r.columns.Status)
	rowsAffected, err := r.db.ExecWithResult(ctx, query,
		domain.JobStatusProcessing,
		providerJobID,
		time.Now(),
		id,
		domain.JobStatusPending)
	if err != nil {
		r.Log.Error("failed to mark job processing", "error", err, "job_id", id)
		return fmt.Errorf("failed to mark job processing: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("pending job not found: %w", domain.ErrConflict)
	}
	return nil
}

func (r *Repository) IncrementAttempts(ctx context.Context, id uuid.UUID) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = %s + 1, %s = $1 WHERE %s = $2`,
		r.columns.TableName,
		r.columns.Attempts, r.columns.Attempts,
		r.columns.UpdatedAt,
		r.columns.ID)
	if err := r.db.Exec(ctx, query, time.Now(), id); err != nil {
		r.Log.Warn("failed to increment job attempts", "error", err, "job_id", id)
		return fmt.Errorf("failed to increment job attempts: %w", err)
	}
	return nil
}

func (r *Repository) Fail(ctx context.Context, id uuid.UUID, message string) (bool, error) {
	return r.fail(ctx, r.db, id, message)
}

func (r *Repository) FailTx(ctx context.Context, tx persistence.Transaction, id uuid.UUID, message string) (bool, error) {
	return r.fail(ctx, tx, id, message)
}

func (r *Repository) fail(ctx context.Context, exec persistence.Executor, id uuid.UUID, message string) (bool, error) {
	now := time.Now()
	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = $2, %s = $3, %s = $3 WHERE %s = $4 AND %s IN ($5, $6)`,
		r.columns.TableName,
		r.columns.Status,
		r.columns.ErrorMessage,
		r.columns.UpdatedAt,
		r.columns.CompletedAt,
		r.columns.ID,
		r.columns.Status)
	rowsAffected, err := exec.ExecWithResult(ctx, query,
		domain.JobStatusFailed,
		message,
		now,
		id,
		domain.JobStatusPending,
		domain.JobStatusProcessing)
	if err != nil {
		r.Log.Error("failed to mark job failed", "error", err, "job_id", id)
		return false, fmt.Errorf("failed to mark job failed: %w", err)
	}
	return rowsAffected > 0, nil
}

// CompleteTx условный UPDATE, из двух параллельных опросов завершит джобу только один
func (r *Repository) CompleteTx(ctx context.Context, tx persistence.Transaction, id uuid.UUID, resultURL string, completedAt time.Time) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = $2, %s = $3, %s = $3 WHERE %s = $4 AND %s = $5`,
		r.columns.TableName,
		r.columns.Status,
		r.columns.ResultURL,
		r.columns.UpdatedAt,
		r.columns.CompletedAt,
		r.columns.ID,
		r.columns.Status)
	rowsAffected, err := tx.ExecWithResult(ctx, query,
		domain.JobStatusCompleted,
		resultURL,
		completedAt,
		id,
		domain.JobStatusProcessing)
	if err != nil {
		r.Log.Error("failed to complete job", "error", err, "job_id", id)
		return false, fmt.Errorf("failed to complete job: %w", err)
	}
	return rowsAffected > 0, nil
}

// SumActiveCost сколько кредитов зарезервировано незавершёнными джобами
func (r *Repository) SumActiveCost(ctx context.Context, userID uuid.UUID) (int64, error) {
	var total int64
	query := fmt.Sprintf(`SELECT COALESCE(SUM(%s), 0) FROM %s WHERE %s = $1 AND %s IN ($2, $3)`,
		r.columns.Cost,
		r.columns.TableName,
		r.columns.UserID,
		r.columns.Status)
	if err := r.db.Get(ctx, &total, query, userID, domain.JobStatusPending, domain.JobStatusProcessing); err != nil {
		r.Log.Error("failed to sum active job cost", "error", err, "user_id", userID)
		return 0, fmt.Errorf("failed to sum active job cost: %w", err)
	}
	return total, nil
}

// FailStale джобы, созданные раньше olderThan и всё ещё незавершённые
func (r *Repository) FailStale(ctx context.Context, olderThan time.Time, message string) (int64, error) {
	now := time.Now()
	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = $2, %s = $3, %s = $3 WHERE %s IN ($4, $5) AND %s < $6`,
		r.columns.TableName,
		r.columns.Status,
		r.columns.ErrorMessage,
		r.columns.UpdatedAt,
		r.columns.CompletedAt,
		r.columns.Status,
		r.columns.CreatedAt)
	rowsAffected, err := r.db.ExecWithResult(ctx, query,
		domain.JobStatusFailed,
		message,
		now,
		domain.JobStatusPending,
		domain.JobStatusProcessing,
		olderThan)
	if err != nil {
		r.Log.Error("failed to fail stale jobs", "error", err)
		return 0, fmt.Errorf("failed to fail stale jobs: %w", err)
	}
	return rowsAffected, nil
}

func (r *Repository) BeginTx(ctx context.Context) (persistence.Transaction, error) {
	return r.db.BeginTx(ctx)
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(context.Context, persistence.Transaction) error) error {
	return r.db.WithTransaction(ctx, fn)
}
