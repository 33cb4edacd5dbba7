package video

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/pkg/metrics"
	"github.com/admin/ai-studio/internal/ports/service"
	"github.com/admin/ai-studio/internal/usecases/credits"
	"github.com/google/uuid"
)

const maxPromptLength = 2000

// StartVideo запускает генерацию у провайдера. Кредиты списываются только при завершении.
func (s *Service) StartVideo(ctx context.Context, userID uuid.UUID, req service.VideoRequest) (*domain.Job, error) {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" || utf8.RuneCountInString(req.Prompt) > maxPromptLength {
		return nil, domain.WrapBusinessError(fmt.Errorf("%w: prompt must be 1..%d characters", domain.ErrInvalidInput, maxPromptLength))
	}
	if req.Duration == 0 {
		req.Duration = defaultDuration
	}
	if req.Duration < 0 || req.Duration > maxDuration {
		return nil, domain.WrapBusinessError(fmt.Errorf("%w: duration must be 1..%d seconds", domain.ErrInvalidInput, maxDuration))
	}

	ok, err := s.CreditService.CanAffordWithPending(ctx, userID, s.Config.Cost)
	if err != nil {
		return nil, fmt.Errorf("failed to check balance: %w", err)
	}
	if !ok {
		metrics.RecordGeneration("video", "insufficient_credits")
		return nil, domain.WrapBusinessError(domain.ErrInsufficientCredits)
	}

	now := time.Now()
	input := domain.Metadata{"prompt": req.Prompt, "duration": req.Duration}
	if req.ImageURL != nil {
		input["image_url"] = *req.ImageURL
	}
	job := &domain.Job{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      domain.JobTypeVideoGeneration,
		Status:    domain.JobStatusPending,
		Cost:      s.Config.Cost,
		Input:     input,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.JobRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	req.CallbackURL = s.Config.CallbackURL
	providerJobID, err := s.Provider.StartVideo(ctx, req)
	if err != nil {
		metrics.RecordGeneration("video", "provider_error")
		s.Log.Error("video provider failed to start", "error", err, "user_id", userID, "job_id", job.ID)
		if _, failErr := s.JobRepo.Fail(ctx, job.ID, "Provider failed to start generation"); failErr != nil {
			s.Log.Error("failed to mark job failed", "error", failErr, "job_id", job.ID)
		}
		return nil, domain.WrapBusinessError(err)
	}

	if err := s.JobRepo.MarkProcessing(ctx, job.ID, &providerJobID); err != nil {
		return nil, fmt.Errorf("failed to mark job processing: %w", err)
	}
	job.Status = domain.JobStatusProcessing
	job.ProviderJobID = &providerJobID

	s.Log.Info("video generation started", "user_id", userID, "job_id", job.ID, "provider_job_id", providerJobID)
	return job, nil
}

func (s *Service) ListVideos(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.GeneratedVideo, error) {
	limit, offset = credits.ClampPage(limit, offset)
	videos, err := s.VideoRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	for i := range videos {
		videos[i].ResultURL = s.publicURL(ctx, &videos[i])
	}
	return videos, nil
}

// publicURL свежая ссылка на нашу копию, иначе сохранённая ссылка провайдера
func (s *Service) publicURL(ctx context.Context, v *domain.GeneratedVideo) string {
	if s.Artifacts == nil || v.StorageKey == nil {
		return v.ResultURL
	}
	url, err := s.Artifacts.URL(ctx, *v.StorageKey)
	if err != nil {
		s.Log.Warn("failed to presign video url", "error", err, "video_id", v.ID)
		return v.ResultURL
	}
	return url
}
