package domain

import (
	"time"

	"github.com/google/uuid"
)

// ImageKind тип операции, которой получена картинка
type ImageKind string

const (
	ImageKindGenerate ImageKind = "generate"
	ImageKindEdit     ImageKind = "edit"
)

// GeneratedImage сгенерированная картинка пользователя
type GeneratedImage struct {
	ID             uuid.UUID `json:"id" db:"id"`
	UserID         uuid.UUID `json:"user_id" db:"user_id"`
	Prompt         string    `json:"prompt" db:"prompt"`
	Kind           ImageKind `json:"kind" db:"kind"`
	SourceImageURL *string   `json:"source_image_url,omitempty" db:"source_image_url"`
	ResultURL      string    `json:"result_url" db:"result_url"`
	StorageKey     *string   `json:"storage_key,omitempty" db:"storage_key"`
	CreditsCharged int64     `json:"credits_charged" db:"credits_charged"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// ImageGeneration картинка и баланс после списания
type ImageGeneration struct {
	Image   GeneratedImage `json:"image"`
	Balance int64          `json:"newBalance"`
}
