package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/admin/ai-studio/internal/adapters/secondary/storage/inmemory"
	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/ports/persistence"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func instant(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

type flakyJob struct {
	failures int
	calls    int
}

func (j *flakyJob) Name() string                     { return "flaky" }
func (j *flakyJob) NextRun(now time.Time) time.Time { return now.Add(time.Hour) }
func (j *flakyJob) Run(context.Context) error {
	j.calls++
	if j.calls <= j.failures {
		return errors.New("db is down")
	}
	return nil
}

type recordingAlerter struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingAlerter) SendAlert(_ context.Context, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return nil
}

func newTestScheduler(alerter *recordingAlerter) *Scheduler {
	s := NewScheduler(testLogger(), alerter)
	s.after = instant
	return s
}

func TestScheduler_RetriesUntilSuccess(t *testing.T) {
	alerter := &recordingAlerter{}
	job := &flakyJob{failures: 2}

	ok := newTestScheduler(alerter).runOnce(context.Background(), job)
	assert.True(t, ok)
	assert.Equal(t, 3, job.calls)
	assert.Empty(t, alerter.messages)
}

func TestScheduler_AlertsWhenRetriesExhausted(t *testing.T) {
	alerter := &recordingAlerter{}
	job := &flakyJob{failures: 100}

	ok := newTestScheduler(alerter).runOnce(context.Background(), job)
	assert.False(t, ok)
	assert.Equal(t, 1+len(defaultRetries), job.calls)
	require.Len(t, alerter.messages, 1)
	assert.Contains(t, alerter.messages[0], "flaky")
	assert.Equal(t, 4, strings.Count(alerter.messages[0], "db is down"))
}

func TestScheduler_SingleFailureNoRetriesConfigured(t *testing.T) {
	alerter := &recordingAlerter{}
	s := newTestScheduler(alerter)
	s.retries = nil

	ok := s.runOnce(context.Background(), &flakyJob{failures: 1})
	assert.False(t, ok)
	require.Len(t, alerter.messages, 1)
}

func TestCronSchedules_NextRun(t *testing.T) {
	store := inmemory.NewStore()
	moscow := time.FixedZone("MSK", 3*60*60)

	reaper, err := NewStaleJobReaper(store.Jobs(), 30*time.Minute, "*/10 * * * *", testLogger())
	require.NoError(t, err)
	now := time.Date(2026, 10, 15, 12, 3, 30, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 10, 15, 12, 10, 0, 0, time.UTC), reaper.NextRun(now).UTC())

	expirer, err := NewSubscriptionExpirer(store.Users(), "0 3 * * *", moscow, testLogger())
	require.NoError(t, err)
	// 12:03 UTC = 15:03 MSK, следующий запуск завтра в 03:00 MSK = 00:00 UTC
	assert.Equal(t, time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), expirer.NextRun(now).UTC())

	_, err = NewStaleJobReaper(store.Jobs(), time.Minute, "not a cron", testLogger())
	assert.Error(t, err)
}

func TestStaleJobReaper_Run(t *testing.T) {
	store := inmemory.NewStore()
	jobs := store.Jobs()
	now := time.Now()

	stale := &domain.Job{ID: uuid.New(), UserID: uuid.New(), Type: domain.JobTypeVideoGeneration,
		Status: domain.JobStatusProcessing, Cost: 5, CreatedAt: now.Add(-2 * time.Hour), UpdatedAt: now}
	fresh := &domain.Job{ID: uuid.New(), UserID: uuid.New(), Type: domain.JobTypeVideoGeneration,
		Status: domain.JobStatusProcessing, Cost: 5, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, jobs.Create(context.Background(), stale))
	require.NoError(t, jobs.Create(context.Background(), fresh))

	reaper, err := NewStaleJobReaper(jobs, time.Hour, "*/10 * * * *", testLogger())
	require.NoError(t, err)
	require.NoError(t, reaper.Run(context.Background()))

	got, err := jobs.GetByID(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, staleJobMessage, *got.ErrorMessage)

	got, err = jobs.GetByID(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProcessing, got.Status)
}

func TestSubscriptionExpirer_Run(t *testing.T) {
	store := inmemory.NewStore()
	users := store.Users()
	id := uuid.New()
	require.NoError(t, users.Create(context.Background(), &domain.User{ID: id, Email: "a@b.c",
		SubscriptionPlan: domain.PlanPro, SubscriptionStatus: domain.SubscriptionPastDue}))
	ended := time.Now().Add(-time.Minute)
	require.NoError(t, users.WithTransaction(context.Background(), func(ctx context.Context, tx persistence.Transaction) error {
		return users.UpdateSubscriptionTx(ctx, tx, id, domain.SubscriptionUpdate{PeriodEnd: &ended})
	}))

	expirer, err := NewSubscriptionExpirer(users, "0 3 * * *", time.UTC, testLogger())
	require.NoError(t, err)
	require.NoError(t, expirer.Run(context.Background()))

	u, err := users.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanFree, u.SubscriptionPlan)
}
