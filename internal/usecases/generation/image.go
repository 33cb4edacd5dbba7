package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/pkg/metrics"
	"github.com/admin/ai-studio/internal/ports/persistence"
	"github.com/admin/ai-studio/internal/ports/service"
	"github.com/admin/ai-studio/internal/usecases/credits"
	"github.com/google/uuid"
)

const maxPromptLength = 2000

// imageJob одна операция над картинкой: генерация или редактирование
type imageJob struct {
	kind     domain.ImageKind
	category domain.CreditCategory
	cost     int64
	prompt   string
	source   *string
	call     func(ctx context.Context) (*service.ImageResult, error)
}

func (s *Service) GenerateImage(ctx context.Context, userID uuid.UUID, req service.ImageRequest) (*domain.ImageGeneration, error) {
	return s.run(ctx, userID, imageJob{
		kind:     domain.ImageKindGenerate,
		category: domain.CreditCategoryGeneration,
		cost:     s.Costs.Generate,
		prompt:   req.Prompt,
		call: func(ctx context.Context) (*service.ImageResult, error) {
			return s.Provider.GenerateImage(ctx, req)
		},
	})
}

func (s *Service) EditImage(ctx context.Context, userID uuid.UUID, req service.EditRequest) (*domain.ImageGeneration, error) {
	if strings.TrimSpace(req.ImageURL) == "" {
		return nil, domain.WrapBusinessError(fmt.Errorf("%w: imageUrl is required", domain.ErrInvalidInput))
	}
	source := req.ImageURL
	return s.run(ctx, userID, imageJob{
		kind:     domain.ImageKindEdit,
		category: domain.CreditCategoryEdit,
		cost:     s.Costs.Edit,
		prompt:   req.Prompt,
		source:   &source,
		call: func(ctx context.Context) (*service.ImageResult, error) {
			return s.Provider.EditImage(ctx, req)
		},
	})
}

// run проверка баланса, вызов провайдера, затем картинка и списание одной транзакцией.
// Ошибка провайдера или копирования не оставляет ни картинки, ни списания.
func (s *Service) run(ctx context.Context, userID uuid.UUID, job imageJob) (*domain.ImageGeneration, error) {
	kind := string(job.kind)
	prompt := strings.TrimSpace(job.prompt)
	if prompt == "" || utf8.RuneCountInString(prompt) > maxPromptLength {
		return nil, domain.WrapBusinessError(fmt.Errorf("%w: prompt must be 1..%d characters", domain.ErrInvalidInput, maxPromptLength))
	}

	ok, err := s.CreditService.CanAffordWithPending(ctx, userID, job.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to check balance: %w", err)
	}
	if !ok {
		metrics.RecordGeneration(kind, "insufficient_credits")
		return nil, domain.WrapBusinessError(domain.ErrInsufficientCredits)
	}

	result, err := job.call(ctx)
	if err != nil {
		metrics.RecordGeneration(kind, "provider_error")
		s.Log.Error("image provider failed", "error", err, "user_id", userID, "kind", kind)
		return nil, domain.WrapBusinessError(err)
	}

	image := &domain.GeneratedImage{
		ID:             uuid.New(),
		UserID:         userID,
		Prompt:         prompt,
		Kind:           job.kind,
		SourceImageURL: job.source,
		ResultURL:      result.URL,
		CreditsCharged: job.cost,
		CreatedAt:      time.Now(),
	}

	if s.Artifacts != nil {
		key, err := s.Artifacts.Save(ctx, fmt.Sprintf("images/%s/%s", userID, image.ID), result.URL)
		if err != nil {
			metrics.RecordGeneration(kind, "provider_error")
			s.Log.Error("failed to store image artifact", "error", err, "user_id", userID, "provider_id", result.ProviderID)
			return nil, domain.WrapBusinessError(err)
		}
		image.StorageKey = &key
		if url, err := s.Artifacts.URL(ctx, key); err == nil {
			image.ResultURL = url
		}
	}

	ref := image.ID.String()
	change := domain.CreditChange{
		UserID:      userID,
		Amount:      job.cost,
		Reason:      fmt.Sprintf("Image %s", kind),
		Category:    job.category,
		ReferenceID: &ref,
		Metadata:    domain.Metadata{"provider_id": result.ProviderID},
	}

	var spend *domain.SpendResult
	err = s.Tx.WithTransaction(ctx, func(ctx context.Context, tx persistence.Transaction) error {
		if err := s.ImageRepo.CreateTx(ctx, tx, image); err != nil {
			return fmt.Errorf("failed to save image: %w", err)
		}
		var err error
		spend, err = s.CreditService.SpendCreditsTx(ctx, tx, change)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			// баланс ушёл на параллельные операции, пока работал провайдер
			metrics.RecordGeneration(kind, "insufficient_credits")
			s.Log.Info("image discarded, insufficient credits at debit", "user_id", userID, "image_id", image.ID)
			return nil, domain.WrapBusinessError(err)
		}
		metrics.RecordGeneration(kind, "error")
		s.Log.Error("failed to persist image", "error", err, "user_id", userID, "image_id", image.ID)
		return nil, fmt.Errorf("failed to persist image: %w", err)
	}

	metrics.RecordGeneration(kind, "success")
	if err := s.CreditService.NotifyBalanceChanged(ctx, change, -change.Amount, spend.NewBalance); err != nil {
		s.Log.Warn("balance change notification failed", "error", err, "user_id", userID)
	}
	s.publishCompleted(ctx, image)

	s.Log.Info("image generated", "user_id", userID, "image_id", image.ID, "kind", kind, "balance", spend.NewBalance)
	return &domain.ImageGeneration{Image: *image, Balance: spend.NewBalance}, nil
}

func (s *Service) ListImages(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.GeneratedImage, error) {
	limit, offset = credits.ClampPage(limit, offset)
	images, err := s.ImageRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	if s.Artifacts == nil {
		return images, nil
	}
	for i := range images {
		if images[i].StorageKey == nil {
			continue
		}
		if url, err := s.Artifacts.URL(ctx, *images[i].StorageKey); err == nil {
			images[i].ResultURL = url
		}
	}
	return images, nil
}

func (s *Service) publishCompleted(ctx context.Context, image *domain.GeneratedImage) {
	if s.Events == nil {
		return
	}
	err := s.Events.Publish(ctx, domain.DomainEvent{
		Type:       domain.EventGenerationCompleted,
		UserID:     image.UserID,
		OccurredAt: time.Now(),
		Payload: map[string]interface{}{
			"kind":     string(image.Kind),
			"image_id": image.ID.String(),
			"credits":  image.CreditsCharged,
		},
	})
	if err != nil {
		s.Log.Warn("failed to publish generation event", "error", err, "image_id", image.ID)
	}
}
