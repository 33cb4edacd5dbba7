package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/admin/ai-studio/internal/ports/repository"
)

const staleJobReaperName = "stale-job-reaper"

// staleJobMessage текст ошибки, который увидит пользователь в статусе джобы
const staleJobMessage = "Generation timed out"

// StaleJobReaper переводит в failed асинхронные джобы, которые висят дольше maxAge.
// Списание для них не происходит: кредиты списываются только при завершении.
type StaleJobReaper struct {
	jobRepo  repository.IJobRepo
	maxAge   time.Duration
	schedule cronSchedule
	now      func() time.Time
	log      *slog.Logger
}

func NewStaleJobReaper(jobRepo repository.IJobRepo, maxAge time.Duration, cronExpr string, log *slog.Logger) (*StaleJobReaper, error) {
	schedule, err := newCronSchedule(cronExpr, time.UTC)
	if err != nil {
		return nil, err
	}
	return &StaleJobReaper{
		jobRepo:  jobRepo,
		maxAge:   maxAge,
		schedule: schedule,
		now:      time.Now,
		log:      log,
	}, nil
}

func (j *StaleJobReaper) Name() string {
	return staleJobReaperName
}

func (j *StaleJobReaper) NextRun(now time.Time) time.Time {
	return j.schedule.next(now)
}

func (j *StaleJobReaper) Run(ctx context.Context) error {
	n, err := j.jobRepo.FailStale(ctx, j.now().Add(-j.maxAge), staleJobMessage)
	if err != nil {
		return fmt.Errorf("failed to reap stale jobs: %w", err)
	}
	if n > 0 {
		j.log.Warn("stale jobs marked failed", "count", n, "max_age", j.maxAge)
	}
	return nil
}
