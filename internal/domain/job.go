package domain

import (
	"time"

	"github.com/google/uuid"
)

type JobType string

const (
	JobTypeVideoGeneration JobType = "video_generation"
	JobTypeTraining        JobType = "training"
)

// JobStatus статус асинхронной джобы
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal completed и failed больше не меняются
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job асинхронная задача у внешнего провайдера (видео, обучение модели)
type Job struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	UserID        uuid.UUID  `json:"user_id" db:"user_id"`
	Type          JobType    `json:"type" db:"type"`
	Status        JobStatus  `json:"status" db:"status"`
	ProviderJobID *string    `json:"provider_job_id,omitempty" db:"provider_job_id"`
	Cost          int64      `json:"cost" db:"cost"`
	Input         Metadata   `json:"input,omitempty" db:"input"`
	ResultURL     *string    `json:"result_url,omitempty" db:"result_url"`
	ErrorMessage  *string    `json:"error_message,omitempty" db:"error_message"`
	Attempts      int        `json:"attempts" db:"attempts"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// ProviderJobState состояние джобы у провайдера
type ProviderJobState struct {
	ProviderJobID string
	Status        JobStatus
	OutputURL     string
	Error         string
}
