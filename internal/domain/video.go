package domain

import (
	"time"

	"github.com/google/uuid"
)

// GeneratedVideo готовое видео, появляется только после завершения джобы
type GeneratedVideo struct {
	ID             uuid.UUID `json:"id" db:"id"`
	UserID         uuid.UUID `json:"user_id" db:"user_id"`
	JobID          uuid.UUID `json:"job_id" db:"job_id"`
	Prompt         string    `json:"prompt" db:"prompt"`
	ResultURL      string    `json:"result_url" db:"result_url"`
	StorageKey     *string   `json:"storage_key,omitempty" db:"storage_key"`
	CreditsCharged int64     `json:"credits_charged" db:"credits_charged"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// VideoStatus ответ эндпоинта статуса видео, который опрашивает клиент
type VideoStatus struct {
	JobID    uuid.UUID `json:"jobId"`
	Status   JobStatus `json:"status"`
	VideoURL string    `json:"videoUrl,omitempty"`
	Error    string    `json:"error,omitempty"`
}
