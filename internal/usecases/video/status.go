package video

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/pkg/metrics"
	"github.com/admin/ai-studio/internal/ports/persistence"
	"github.com/google/uuid"
)

const msgGenerationFailed = "Video generation failed"

// VideoStatus статус джобы для клиента. Завершённые джобы отвечают из базы,
// незавершённые смотрят в кэш и затем спрашивают провайдера.
func (s *Service) VideoStatus(ctx context.Context, userID, jobID uuid.UUID) (*domain.VideoStatus, error) {
	job, err := s.JobRepo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.WrapBusinessError(err)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	// чужая джоба неотличима от несуществующей
	if job.UserID != userID || job.Type != domain.JobTypeVideoGeneration {
		return nil, domain.WrapBusinessError(fmt.Errorf("job %s: %w", jobID, domain.ErrNotFound))
	}

	if job.Status.IsTerminal() {
		return s.terminalStatus(ctx, job)
	}
	if cached, ok := s.cachedStatus(ctx, jobID); ok {
		return cached, nil
	}
	if job.ProviderJobID == nil {
		return &domain.VideoStatus{JobID: job.ID, Status: job.Status}, nil
	}

	state, err := s.Provider.VideoStatus(ctx, *job.ProviderJobID)
	if err != nil {
		// временная ошибка провайдера: клиент продолжит опрос, зависшие джобы добьёт reaper
		s.Log.Warn("failed to poll video provider", "error", err, "job_id", job.ID)
		return &domain.VideoStatus{JobID: job.ID, Status: job.Status}, nil
	}
	return s.apply(ctx, job, *state)
}

// HandleProviderCallback вебхук провайдера, ведёт в тот же finalize, что и опрос
func (s *Service) HandleProviderCallback(ctx context.Context, state domain.ProviderJobState) error {
	if state.ProviderJobID == "" {
		return domain.WrapBusinessError(fmt.Errorf("%w: provider job id is required", domain.ErrInvalidInput))
	}
	job, err := s.JobRepo.GetByProviderJobID(ctx, state.ProviderJobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.Log.Warn("callback for unknown provider job", "provider_job_id", state.ProviderJobID)
			return domain.WrapBusinessError(err)
		}
		return fmt.Errorf("failed to get job: %w", err)
	}
	if job.Status.IsTerminal() {
		s.Log.Debug("callback for finished job ignored", "job_id", job.ID, "status", job.Status)
		return nil
	}

	_, err = s.apply(ctx, job, state)
	return err
}

func (s *Service) apply(ctx context.Context, job *domain.Job, state domain.ProviderJobState) (*domain.VideoStatus, error) {
	switch state.Status {
	case domain.JobStatusCompleted:
		if state.OutputURL == "" {
			return s.fail(ctx, job, "Provider returned no video")
		}
		return s.finalize(ctx, job, state.OutputURL)

	case domain.JobStatusFailed:
		s.Log.Info("video generation failed at provider", "job_id", job.ID, "error", state.Error)
		metrics.RecordGeneration("video", "provider_error")
		return s.fail(ctx, job, msgGenerationFailed)

	default:
		status := &domain.VideoStatus{JobID: job.ID, Status: domain.JobStatusProcessing}
		s.cacheStatus(ctx, status)
		return status, nil
	}
}

func (s *Service) fail(ctx context.Context, job *domain.Job, message string) (*domain.VideoStatus, error) {
	changed, err := s.JobRepo.Fail(ctx, job.ID, message)
	if err != nil {
		return nil, fmt.Errorf("failed to mark job failed: %w", err)
	}
	s.dropCachedStatus(ctx, job.ID)
	if !changed {
		return s.reload(ctx, job.ID)
	}
	return &domain.VideoStatus{JobID: job.ID, Status: domain.JobStatusFailed, Error: message}, nil
}

// finalize переводит джобу processing -> completed, создаёт видео и списывает кредиты одной
// транзакцией. Условный переход гарантирует, что параллельные опросы завершат джобу один раз.
func (s *Service) finalize(ctx context.Context, job *domain.Job, outputURL string) (*domain.VideoStatus, error) {
	video := &domain.GeneratedVideo{
		ID:             uuid.New(),
		UserID:         job.UserID,
		JobID:          job.ID,
		Prompt:         promptOf(job),
		ResultURL:      outputURL,
		CreditsCharged: job.Cost,
		CreatedAt:      time.Now(),
	}

	if s.Artifacts != nil {
		key, err := s.Artifacts.Save(ctx, fmt.Sprintf("videos/%s/%s", job.UserID, job.ID), outputURL)
		if err != nil {
			s.Log.Warn("failed to copy video, keeping provider url", "error", err, "job_id", job.ID)
		} else {
			video.StorageKey = &key
		}
	}

	ref := video.ID.String()
	change := domain.CreditChange{
		UserID:      job.UserID,
		Amount:      job.Cost,
		Reason:      "Video generation",
		Category:    domain.CreditCategoryVideo,
		ReferenceID: &ref,
		Metadata:    domain.Metadata{"job_id": job.ID.String()},
	}

	var (
		spend    *domain.SpendResult
		finished bool
	)
	err := s.Tx.WithTransaction(ctx, func(ctx context.Context, tx persistence.Transaction) error {
		changed, err := s.JobRepo.CompleteTx(ctx, tx, job.ID, video.ResultURL, video.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to complete job: %w", err)
		}
		if !changed {
			finished = true
			return nil
		}
		if err := s.VideoRepo.CreateTx(ctx, tx, video); err != nil {
			return fmt.Errorf("failed to save video: %w", err)
		}
		spend, err = s.CreditService.SpendCreditsTx(ctx, tx, change)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			s.Log.Info("video discarded, insufficient credits at finalize", "job_id", job.ID, "user_id", job.UserID)
			metrics.RecordGeneration("video", "insufficient_credits")
			return s.fail(ctx, job, domain.InsufficientCreditsMessage)
		}
		s.Log.Error("failed to finalize video", "error", err, "job_id", job.ID)
		return nil, fmt.Errorf("failed to finalize video: %w", err)
	}
	s.dropCachedStatus(ctx, job.ID)
	if finished {
		return s.reload(ctx, job.ID)
	}

	metrics.RecordGeneration("video", "success")
	if err := s.CreditService.NotifyBalanceChanged(ctx, change, -change.Amount, spend.NewBalance); err != nil {
		s.Log.Warn("balance change notification failed", "error", err, "user_id", job.UserID)
	}
	s.publishCompleted(ctx, video)

	s.Log.Info("video generation completed", "job_id", job.ID, "video_id", video.ID, "balance", spend.NewBalance)
	return &domain.VideoStatus{JobID: job.ID, Status: domain.JobStatusCompleted, VideoURL: s.publicURL(ctx, video)}, nil
}

func (s *Service) terminalStatus(ctx context.Context, job *domain.Job) (*domain.VideoStatus, error) {
	status := &domain.VideoStatus{JobID: job.ID, Status: job.Status}
	if job.Status == domain.JobStatusFailed {
		status.Error = msgGenerationFailed
		if job.ErrorMessage != nil {
			status.Error = *job.ErrorMessage
		}
		return status, nil
	}

	video, err := s.VideoRepo.GetByJobID(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	status.VideoURL = s.publicURL(ctx, video)
	return status, nil
}

func (s *Service) reload(ctx context.Context, jobID uuid.UUID) (*domain.VideoStatus, error) {
	job, err := s.JobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload job: %w", err)
	}
	return s.terminalStatus(ctx, job)
}

func (s *Service) cachedStatus(ctx context.Context, jobID uuid.UUID) (*domain.VideoStatus, bool) {
	if s.Cache == nil {
		return nil, false
	}
	raw, err := s.Cache.Get(ctx, statusKeyPrefix+jobID.String())
	if err != nil {
		return nil, false
	}
	var status domain.VideoStatus
	if err := json.Unmarshal([]byte(raw), &status); err != nil {
		return nil, false
	}
	return &status, true
}

func (s *Service) cacheStatus(ctx context.Context, status *domain.VideoStatus) {
	if s.Cache == nil {
		return
	}
	raw, err := json.Marshal(status)
	if err != nil {
		return
	}
	if err := s.Cache.Set(ctx, statusKeyPrefix+status.JobID.String(), string(raw), s.Config.StatusTTL); err != nil {
		s.Log.Debug("failed to cache video status", "error", err, "job_id", status.JobID)
	}
}

func (s *Service) dropCachedStatus(ctx context.Context, jobID uuid.UUID) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Delete(ctx, statusKeyPrefix+jobID.String()); err != nil {
		s.Log.Debug("failed to drop cached video status", "error", err, "job_id", jobID)
	}
}

func (s *Service) publishCompleted(ctx context.Context, video *domain.GeneratedVideo) {
	if s.Events == nil {
		return
	}
	err := s.Events.Publish(ctx, domain.DomainEvent{
		Type:       domain.EventGenerationCompleted,
		UserID:     video.UserID,
		OccurredAt: time.Now(),
		Payload: map[string]interface{}{
			"kind":     "video",
			"video_id": video.ID.String(),
			"job_id":   video.JobID.String(),
			"credits":  video.CreditsCharged,
		},
	})
	if err != nil {
		s.Log.Warn("failed to publish generation event", "error", err, "video_id", video.ID)
	}
}

func promptOf(job *domain.Job) string {
	if p, ok := job.Input["prompt"].(string); ok {
		return p
	}
	return ""
}
