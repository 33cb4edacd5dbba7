package training

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/google/uuid"
)

// DeleteModel удаляет веса модели на хабе и помечает запись удалённой
func (s *Service) DeleteModel(ctx context.Context, adminID, modelID uuid.UUID) error {
	model, err := s.ModelRepo.GetByID(ctx, modelID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.WrapBusinessError(err)
		}
		return fmt.Errorf("failed to get model: %w", err)
	}
	if model.DeletedAt != nil {
		return nil
	}

	if s.Hub != nil {
		if err := s.Hub.DeleteModel(ctx, model.ProviderModelID); err != nil {
			s.Log.Error("failed to delete model from hub", "error", err, "model_id", modelID, "hub_id", model.ProviderModelID)
			return domain.WrapBusinessError(err)
		}
	}
	if err := s.ModelRepo.SoftDelete(ctx, modelID, time.Now()); err != nil {
		return fmt.Errorf("failed to delete model: %w", err)
	}

	s.Log.Info("model deleted by admin", "admin_id", adminID, "model_id", modelID, "hub_id", model.ProviderModelID)
	return nil
}

// ListHubModels модели аккаунта на хабе, для ручной чистки сирот
func (s *Service) ListHubModels(ctx context.Context) ([]string, error) {
	if s.Hub == nil {
		return nil, domain.WrapBusinessError(fmt.Errorf("model hub: %w", domain.ErrNotFound))
	}
	models, err := s.Hub.ListModels(ctx)
	if err != nil {
		s.Log.Error("failed to list hub models", "error", err)
		return nil, domain.WrapBusinessError(err)
	}
	return models, nil
}

func (s *Service) deleteFromHub(ctx context.Context, hubModelID string) {
	if s.Hub == nil || hubModelID == "" {
		return
	}
	if err := s.Hub.DeleteModel(ctx, hubModelID); err != nil {
		s.Log.Warn("failed to delete discarded model from hub", "error", err, "hub_id", hubModelID)
	}
}
