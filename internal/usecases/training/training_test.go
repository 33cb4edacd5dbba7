package training

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/admin/ai-studio/internal/adapters/secondary/storage/inmemory"
	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/usecases/credits"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	err      error
	requests []domain.TrainingRequest
}

func (p *fakePublisher) PublishTrainingRequest(_ context.Context, req domain.TrainingRequest) error {
	if p.err != nil {
		return p.err
	}
	p.requests = append(p.requests, req)
	return nil
}

type fakeHub struct {
	models  []string
	deleted []string
	err     error
}

func (h *fakeHub) ListModels(context.Context) ([]string, error) {
	return h.models, h.err
}

func (h *fakeHub) DeleteModel(_ context.Context, id string) error {
	if h.err != nil {
		return h.err
	}
	h.deleted = append(h.deleted, id)
	return nil
}

type fixture struct {
	svc       *Service
	store     *inmemory.Store
	publisher *fakePublisher
	hub       *fakeHub
	userID    uuid.UUID
}

func newFixture(t *testing.T, balance int64) *fixture {
	t.Helper()
	store := inmemory.NewStore()
	userID := uuid.New()
	require.NoError(t, store.Users().Create(context.Background(), &domain.User{
		ID:                 userID,
		Email:              "model@example.com",
		Role:               domain.UserRoleUser,
		Credits:            balance,
		SubscriptionPlan:   domain.PlanPro,
		SubscriptionStatus: domain.SubscriptionActive,
	}))
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	creditService := credits.New(store.Users(), store.Credits(), store.Jobs(), nil, log)
	publisher := &fakePublisher{}
	hub := &fakeHub{}
	svc := New(store, store.Jobs(), store.Models(), creditService, publisher, hub, 20, log)
	return &fixture{svc: svc, store: store, publisher: publisher, hub: hub, userID: userID}
}

var photos = []string{"https://example.com/1.jpg", "https://example.com/2.jpg"}

func (f *fixture) balance(t *testing.T) int64 {
	t.Helper()
	u, err := f.store.Users().GetByID(context.Background(), f.userID)
	require.NoError(t, err)
	return u.Credits
}

func TestStartTraining_PublishesRequest(t *testing.T) {
	f := newFixture(t, 25)

	job, err := f.svc.StartTraining(context.Background(), f.userID, "My face", "ohwx", photos)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProcessing, job.Status)
	require.Len(t, f.publisher.requests, 1)
	assert.Equal(t, job.ID, f.publisher.requests[0].JobID)
	assert.Equal(t, "ohwx", f.publisher.requests[0].TriggerWord)
	assert.Equal(t, int64(25), f.balance(t))
}

func TestStartTraining_Validation(t *testing.T) {
	f := newFixture(t, 100)

	tests := []struct {
		name    string
		model   string
		trigger string
		images  []string
	}{
		{name: "empty name", model: " ", trigger: "ohwx", images: photos},
		{name: "trigger with space", model: "x", trigger: "oh wx", images: photos},
		{name: "no images", model: "x", trigger: "ohwx"},
		{name: "bad url", model: "x", trigger: "ohwx", images: []string{"ftp://example.com/a.jpg"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.StartTraining(context.Background(), f.userID, tt.model, tt.trigger, tt.images)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
	assert.Empty(t, f.publisher.requests)
}

func TestStartTraining_PublishFailure(t *testing.T) {
	f := newFixture(t, 25)
	f.publisher.err = errors.New("broker down")

	_, err := f.svc.StartTraining(context.Background(), f.userID, "x", "ohwx", photos)
	require.ErrorIs(t, err, domain.ErrProviderFailure)

	active, err := f.store.Jobs().SumActiveCost(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Zero(t, active)
}

func TestHandleTrainingResult_CreatesModelAndDebitsOnce(t *testing.T) {
	f := newFixture(t, 25)
	ctx := context.Background()
	job, err := f.svc.StartTraining(ctx, f.userID, "My face", "ohwx", photos)
	require.NoError(t, err)

	result := domain.TrainingResult{JobID: job.ID, Status: domain.JobStatusCompleted, ModelID: "studio/lora-123"}
	require.NoError(t, f.svc.HandleTrainingResult(ctx, result))
	require.NoError(t, f.svc.HandleTrainingResult(ctx, result))

	assert.Equal(t, int64(5), f.balance(t))
	models, err := f.svc.ListModels(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "My face", models[0].Name)
	assert.Equal(t, "studio/lora-123", models[0].ProviderModelID)

	status, err := f.svc.TrainingStatus(ctx, f.userID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, status.Status)
}

func TestHandleTrainingResult_Failed(t *testing.T) {
	f := newFixture(t, 25)
	ctx := context.Background()
	job, err := f.svc.StartTraining(ctx, f.userID, "x", "ohwx", photos)
	require.NoError(t, err)

	require.NoError(t, f.svc.HandleTrainingResult(ctx, domain.TrainingResult{JobID: job.ID, Status: domain.JobStatusFailed, Error: "oom"}))

	status, err := f.svc.TrainingStatus(ctx, f.userID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, status.Status)
	assert.Equal(t, int64(25), f.balance(t))
}

func TestHandleTrainingResult_InsufficientDropsHubModel(t *testing.T) {
	f := newFixture(t, 20)
	ctx := context.Background()
	job, err := f.svc.StartTraining(ctx, f.userID, "x", "ohwx", photos)
	require.NoError(t, err)
	_, err = f.svc.CreditService.AdminAdjust(ctx, uuid.New(), f.userID, domain.AdjustSet, 0, "")
	require.NoError(t, err)

	require.NoError(t, f.svc.HandleTrainingResult(ctx, domain.TrainingResult{JobID: job.ID, Status: domain.JobStatusCompleted, ModelID: "studio/lora-9"}))

	status, err := f.svc.TrainingStatus(ctx, f.userID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, status.Status)
	assert.Equal(t, []string{"studio/lora-9"}, f.hub.deleted)

	models, err := f.svc.ListModels(ctx, f.userID)
	require.NoError(t, err)
	assert.Empty(t, models)
}

func TestTrainingStatus_ForeignJob(t *testing.T) {
	f := newFixture(t, 25)
	job, err := f.svc.StartTraining(context.Background(), f.userID, "x", "ohwx", photos)
	require.NoError(t, err)

	_, err = f.svc.TrainingStatus(context.Background(), uuid.New(), job.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteModel(t *testing.T) {
	f := newFixture(t, 25)
	ctx := context.Background()
	job, err := f.svc.StartTraining(ctx, f.userID, "x", "ohwx", photos)
	require.NoError(t, err)
	require.NoError(t, f.svc.HandleTrainingResult(ctx, domain.TrainingResult{JobID: job.ID, Status: domain.JobStatusCompleted, ModelID: "studio/lora-1"}))
	models, err := f.svc.ListModels(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, models, 1)

	adminID := uuid.New()
	require.NoError(t, f.svc.DeleteModel(ctx, adminID, models[0].ID))
	require.NoError(t, f.svc.DeleteModel(ctx, adminID, models[0].ID))
	assert.Equal(t, []string{"studio/lora-1"}, f.hub.deleted)

	models, err = f.svc.ListModels(ctx, f.userID)
	require.NoError(t, err)
	assert.Empty(t, models)

	err = f.svc.DeleteModel(ctx, adminID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteModel_HubFailureKeepsRow(t *testing.T) {
	f := newFixture(t, 25)
	ctx := context.Background()
	job, err := f.svc.StartTraining(ctx, f.userID, "x", "ohwx", photos)
	require.NoError(t, err)
	require.NoError(t, f.svc.HandleTrainingResult(ctx, domain.TrainingResult{JobID: job.ID, Status: domain.JobStatusCompleted, ModelID: "studio/lora-2"}))
	models, err := f.svc.ListModels(ctx, f.userID)
	require.NoError(t, err)

	f.hub.err = domain.ErrProviderFailure
	err = f.svc.DeleteModel(ctx, uuid.New(), models[0].ID)
	require.ErrorIs(t, err, domain.ErrProviderFailure)

	models, err = f.svc.ListModels(ctx, f.userID)
	require.NoError(t, err)
	assert.Len(t, models, 1)
}

func TestListHubModels(t *testing.T) {
	f := newFixture(t, 0)
	f.hub.models = []string{"studio/a", "studio/b"}

	models, err := f.svc.ListHubModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"studio/a", "studio/b"}, models)

	f.svc.Hub = nil
	_, err = f.svc.ListHubModels(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
