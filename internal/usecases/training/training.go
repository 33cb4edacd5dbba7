package training

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/pkg/metrics"
	"github.com/admin/ai-studio/internal/ports/persistence"
	"github.com/google/uuid"
)

const (
	maxNameLength   = 100
	minImages       = 1
	maxImages       = 50
	msgTrainingFail = "Model training failed"
)

// StartTraining создаёт джобу и отправляет запрос в топик обучения. Списание при завершении.
func (s *Service) StartTraining(ctx context.Context, userID uuid.UUID, name, triggerWord string, imageURLs []string) (*domain.Job, error) {
	name = strings.TrimSpace(name)
	triggerWord = strings.TrimSpace(triggerWord)
	if err := validateTraining(name, triggerWord, imageURLs); err != nil {
		return nil, domain.WrapBusinessError(err)
	}
	if s.Publisher == nil {
		return nil, domain.WrapBusinessError(fmt.Errorf("%w: training is not configured", domain.ErrProviderFailure))
	}

	ok, err := s.CreditService.CanAffordWithPending(ctx, userID, s.Cost)
	if err != nil {
		return nil, fmt.Errorf("failed to check balance: %w", err)
	}
	if !ok {
		metrics.RecordGeneration("training", "insufficient_credits")
		return nil, domain.WrapBusinessError(domain.ErrInsufficientCredits)
	}

	now := time.Now()
	job := &domain.Job{
		ID:     uuid.New(),
		UserID: userID,
		Type:   domain.JobTypeTraining,
		Status: domain.JobStatusPending,
		Cost:   s.Cost,
		Input: domain.Metadata{
			"name":         name,
			"trigger_word": triggerWord,
			"images":       len(imageURLs),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.JobRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	err = s.Publisher.PublishTrainingRequest(ctx, domain.TrainingRequest{
		JobID:       job.ID,
		UserID:      userID,
		Name:        name,
		TriggerWord: triggerWord,
		ImageURLs:   imageURLs,
	})
	if err != nil {
		s.Log.Error("failed to publish training request", "error", err, "job_id", job.ID)
		if _, failErr := s.JobRepo.Fail(ctx, job.ID, "Failed to queue training"); failErr != nil {
			s.Log.Error("failed to mark job failed", "error", failErr, "job_id", job.ID)
		}
		return nil, domain.WrapBusinessError(fmt.Errorf("%w: queue training: %v", domain.ErrProviderFailure, err))
	}

	if err := s.JobRepo.MarkProcessing(ctx, job.ID, nil); err != nil {
		return nil, fmt.Errorf("failed to mark job processing: %w", err)
	}
	job.Status = domain.JobStatusProcessing

	s.Log.Info("training queued", "user_id", userID, "job_id", job.ID, "images", len(imageURLs))
	return job, nil
}

// HandleTrainingResult результат из топика. Модель и списание создаются одной транзакцией,
// повторная доставка сообщения ничего не меняет.
func (s *Service) HandleTrainingResult(ctx context.Context, result domain.TrainingResult) error {
	job, err := s.JobRepo.GetByID(ctx, result.JobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.Log.Warn("training result for unknown job", "job_id", result.JobID)
			return domain.WrapBusinessError(err)
		}
		return fmt.Errorf("failed to get job: %w", err)
	}
	if job.Type != domain.JobTypeTraining {
		return domain.WrapBusinessError(fmt.Errorf("%w: job %s is not a training job", domain.ErrInvalidInput, job.ID))
	}
	if job.Status.IsTerminal() {
		s.Log.Debug("training result for finished job ignored", "job_id", job.ID, "status", job.Status)
		return nil
	}

	if result.Status == domain.JobStatusFailed || result.ModelID == "" {
		s.Log.Info("training failed", "job_id", job.ID, "error", result.Error)
		metrics.RecordGeneration("training", "provider_error")
		if _, err := s.JobRepo.Fail(ctx, job.ID, msgTrainingFail); err != nil {
			return fmt.Errorf("failed to mark job failed: %w", err)
		}
		return nil
	}

	model := &domain.TrainedModel{
		ID:              uuid.New(),
		UserID:          job.UserID,
		JobID:           job.ID,
		Name:            inputString(job, "name"),
		TriggerWord:     inputString(job, "trigger_word"),
		ProviderModelID: result.ModelID,
		CreatedAt:       time.Now(),
	}
	ref := model.ID.String()
	change := domain.CreditChange{
		UserID:      job.UserID,
		Amount:      job.Cost,
		Reason:      "Model training",
		Category:    domain.CreditCategoryTraining,
		ReferenceID: &ref,
		Metadata:    domain.Metadata{"job_id": job.ID.String(), "model_id": result.ModelID},
	}

	var (
		spend    *domain.SpendResult
		finished bool
	)
	err = s.Tx.WithTransaction(ctx, func(ctx context.Context, tx persistence.Transaction) error {
		changed, err := s.JobRepo.CompleteTx(ctx, tx, job.ID, result.ModelID, model.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to complete job: %w", err)
		}
		if !changed {
			finished = true
			return nil
		}
		if err := s.ModelRepo.CreateTx(ctx, tx, model); err != nil {
			return fmt.Errorf("failed to save model: %w", err)
		}
		spend, err = s.CreditService.SpendCreditsTx(ctx, tx, change)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			s.Log.Info("trained model discarded, insufficient credits", "job_id", job.ID, "user_id", job.UserID)
			metrics.RecordGeneration("training", "insufficient_credits")
			if _, failErr := s.JobRepo.Fail(ctx, job.ID, domain.InsufficientCreditsMessage); failErr != nil {
				return fmt.Errorf("failed to mark job failed: %w", failErr)
			}
			s.deleteFromHub(ctx, result.ModelID)
			return nil
		}
		s.Log.Error("failed to finalize training", "error", err, "job_id", job.ID)
		return fmt.Errorf("failed to finalize training: %w", err)
	}
	if finished {
		return nil
	}

	metrics.RecordGeneration("training", "success")
	if err := s.CreditService.NotifyBalanceChanged(ctx, change, -change.Amount, spend.NewBalance); err != nil {
		s.Log.Warn("balance change notification failed", "error", err, "user_id", job.UserID)
	}
	s.Log.Info("model trained", "job_id", job.ID, "model_id", model.ID, "provider_model_id", result.ModelID)
	return nil
}

func (s *Service) TrainingStatus(ctx context.Context, userID, jobID uuid.UUID) (*domain.Job, error) {
	job, err := s.JobRepo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.WrapBusinessError(err)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	if job.UserID != userID || job.Type != domain.JobTypeTraining {
		return nil, domain.WrapBusinessError(fmt.Errorf("job %s: %w", jobID, domain.ErrNotFound))
	}
	return job, nil
}

func (s *Service) ListModels(ctx context.Context, userID uuid.UUID) ([]domain.TrainedModel, error) {
	models, err := s.ModelRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	return models, nil
}

func validateTraining(name, triggerWord string, imageURLs []string) error {
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return fmt.Errorf("%w: name must be 1..%d characters", domain.ErrInvalidInput, maxNameLength)
	}
	if triggerWord == "" || strings.ContainsAny(triggerWord, " \t\n") {
		return fmt.Errorf("%w: triggerWord must be a single word", domain.ErrInvalidInput)
	}
	if len(imageURLs) < minImages || len(imageURLs) > maxImages {
		return fmt.Errorf("%w: %d..%d images required", domain.ErrInvalidInput, minImages, maxImages)
	}
	for _, raw := range imageURLs {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: invalid image url %q", domain.ErrInvalidInput, raw)
		}
	}
	return nil
}

func inputString(job *domain.Job, key string) string {
	if v, ok := job.Input[key].(string); ok {
		return v
	}
	return ""
}
