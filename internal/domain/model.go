package domain

import (
	"time"

	"github.com/google/uuid"
)

// TrainedModel пользовательская модель, обученная на его фотографиях
type TrainedModel struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	UserID          uuid.UUID  `json:"user_id" db:"user_id"`
	JobID           uuid.UUID  `json:"job_id" db:"job_id"`
	Name            string     `json:"name" db:"name"`
	TriggerWord     string     `json:"trigger_word" db:"trigger_word"`
	ProviderModelID string     `json:"provider_model_id" db:"provider_model_id"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// TrainingRequest сообщение в топик обучения
type TrainingRequest struct {
	JobID       uuid.UUID `json:"job_id"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	TriggerWord string    `json:"trigger_word"`
	ImageURLs   []string  `json:"image_urls"`
}

// TrainingResult сообщение из топика результатов обучения
type TrainingResult struct {
	JobID   uuid.UUID `json:"job_id"`
	Status  JobStatus `json:"status"`
	ModelID string    `json:"model_id"`
	Error   string    `json:"error"`
}
