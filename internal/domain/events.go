package domain

import (
	"time"

	"github.com/google/uuid"
)

// Типы доменных событий, уходящих в шину
const (
	EventCreditsChanged      = "credits.changed"
	EventGenerationCompleted = "generation.completed"
)

// DomainEvent событие для внешних потребителей
type DomainEvent struct {
	Type       string                 `json:"type"`
	UserID     uuid.UUID              `json:"user_id"`
	OccurredAt time.Time              `json:"occurred_at"`
	Payload    map[string]interface{} `json:"payload"`
}
