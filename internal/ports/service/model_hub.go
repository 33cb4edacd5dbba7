package service

import "context"

// IModelHub репозиторий весов обученных моделей
type IModelHub interface {
	ListModels(ctx context.Context) ([]string, error)
	DeleteModel(ctx context.Context, modelID string) error
}
