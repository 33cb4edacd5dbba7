package service

import (
	"context"

	"github.com/admin/ai-studio/internal/domain"
)

// IEventPublisher публикация доменных событий
type IEventPublisher interface {
	Publish(ctx context.Context, event domain.DomainEvent) error
}

// ITrainingPublisher отправка запросов на обучение модели
type ITrainingPublisher interface {
	PublishTrainingRequest(ctx context.Context, req domain.TrainingRequest) error
}
