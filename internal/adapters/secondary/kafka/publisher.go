package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/admin/ai-studio/internal/domain"
	kafkaPorts "github.com/admin/ai-studio/internal/ports/kafka"
)

const (
	headerEventType = "event_type"
	headerAction    = "action"
)

// EventPublisher пишет доменные события, ключ - id пользователя,
// так события одного пользователя попадают в одну партицию
type EventPublisher struct {
	producer kafkaPorts.IKafkaProducer
}

func NewEventPublisher(producer kafkaPorts.IKafkaProducer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func (p *EventPublisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.producer.SendWithHeaders(ctx, event.UserID.String(), value, map[string]string{
		headerEventType: event.Type,
	})
}

// TrainingPublisher отправляет задачи обучения воркеру
type TrainingPublisher struct {
	producer kafkaPorts.IKafkaProducer
}

func NewTrainingPublisher(producer kafkaPorts.IKafkaProducer) *TrainingPublisher {
	return &TrainingPublisher{producer: producer}
}

func (p *TrainingPublisher) PublishTrainingRequest(ctx context.Context, req domain.TrainingRequest) error {
	value, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal training request: %w", err)
	}
	return p.producer.SendWithHeaders(ctx, req.JobID.String(), value, map[string]string{
		headerAction: "train",
	})
}
