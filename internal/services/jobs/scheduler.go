package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/admin/ai-studio/internal/pkg/metrics"
	"github.com/admin/ai-studio/internal/ports/jobs"
	"github.com/admin/ai-studio/internal/ports/service"
)

// defaultRetries паузы перед повторными попытками: now + 1m + 10m + 30m
var defaultRetries = []time.Duration{
	1 * time.Minute,
	10 * time.Minute,
	30 * time.Minute,
}

// Scheduler запускает периодические джобы, каждую в своей горутине
type Scheduler struct {
	jobs           []jobs.Job
	alerterService service.IAlerterService
	retries        []time.Duration
	after          func(d time.Duration) <-chan time.Time
	log            *slog.Logger
}

func NewScheduler(log *slog.Logger, alerterService service.IAlerterService) *Scheduler {
	return &Scheduler{
		alerterService: alerterService,
		retries:        defaultRetries,
		after:          time.After,
		log:            log,
	}
}

func (s *Scheduler) Register(job jobs.Job) {
	s.jobs = append(s.jobs, job)
	s.log.Debug("job registered", "job_name", job.Name(), "total_jobs", len(s.jobs))
}

// Start не блокируется, джобы останавливаются по отмене ctx
func (s *Scheduler) Start(ctx context.Context) error {
	if len(s.jobs) == 0 {
		s.log.Warn("no jobs registered, scheduler not started")
		return nil
	}

	s.log.Info("starting job scheduler", "jobs_count", len(s.jobs))
	for _, job := range s.jobs {
		go s.runJob(ctx, job)
	}
	return nil
}

func (s *Scheduler) runJob(ctx context.Context, job jobs.Job) {
	jobName := job.Name()
	for {
		now := time.Now()
		wait := job.NextRun(now).Sub(now)

		select {
		case <-ctx.Done():
			s.log.Info("job stopped by context", "job_name", jobName)
			return
		case <-s.after(wait):
			s.runOnce(ctx, job)
		}
	}
}

// runOnce один запуск с ретраями, при исчерпании ретраев алерт
func (s *Scheduler) runOnce(ctx context.Context, job jobs.Job) bool {
	jobName := job.Name()
	attemptErrors := s.executeJobWithRetry(ctx, job)
	if attemptErrors == nil {
		metrics.RecordJobRun(jobName, true)
		s.log.Info("job executed successfully", "job_name", jobName)
		return true
	}

	metrics.RecordJobRun(jobName, false)
	if ctx.Err() != nil {
		return false
	}
	s.log.Error("job failed after all retries",
		"job_name", jobName,
		"attempts", len(attemptErrors),
		"last_error", attemptErrors[len(attemptErrors)-1].err,
	)
	s.sendAlert(ctx, jobName, attemptErrors)
	return false
}

type jobAttemptError struct {
	attempt int
	err     error
}

// executeJobWithRetry nil при успехе, иначе ошибки всех попыток
func (s *Scheduler) executeJobWithRetry(ctx context.Context, job jobs.Job) []jobAttemptError {
	var attemptErrors []jobAttemptError

	for attempt := 1; ; attempt++ {
		err := job.Run(ctx)
		if err == nil {
			return nil
		}
		attemptErrors = append(attemptErrors, jobAttemptError{attempt: attempt, err: err})

		if attempt > len(s.retries) {
			return attemptErrors
		}
		s.log.Warn("job execution failed, will retry",
			"job_name", job.Name(),
			"attempt", attempt,
			"retries_remaining", len(s.retries)-attempt+1,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return attemptErrors
		case <-s.after(s.retries[attempt-1]):
		}
	}
}

func (s *Scheduler) sendAlert(ctx context.Context, jobName string, attemptErrors []jobAttemptError) {
	if s.alerterService == nil {
		return
	}

	var message strings.Builder
	message.WriteString("⚠️ Финальная ошибка планировщика, ретраи исчерпаны\n\n")
	message.WriteString(fmt.Sprintf("Джоба: %s\n\n", jobName))
	message.WriteString("Ошибки попыток:\n")
	for _, attemptErr := range attemptErrors {
		message.WriteString(fmt.Sprintf("Попытка %d: %s\n", attemptErr.attempt, attemptErr.err))
	}

	if alertErr := s.alerterService.SendAlert(ctx, message.String()); alertErr != nil {
		s.log.Warn("failed to send job failure alert",
			"job_name", jobName,
			"error", alertErr,
		)
	}
}
