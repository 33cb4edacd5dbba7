package generation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/admin/ai-studio/internal/adapters/secondary/storage/inmemory"
	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/ports/service"
	"github.com/admin/ai-studio/internal/usecases/credits"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeImages struct {
	err   error
	calls int
	edits []service.EditRequest
}

func (f *fakeImages) GenerateImage(_ context.Context, req service.ImageRequest) (*service.ImageResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &service.ImageResult{ProviderID: "pred_1", URL: "https://cdn.provider/out.png"}, nil
}

func (f *fakeImages) EditImage(_ context.Context, req service.EditRequest) (*service.ImageResult, error) {
	f.calls++
	f.edits = append(f.edits, req)
	if f.err != nil {
		return nil, f.err
	}
	return &service.ImageResult{ProviderID: "pred_2", URL: "https://cdn.provider/edit.webp"}, nil
}

type fakeArtifacts struct {
	err  error
	keys []string
}

func (f *fakeArtifacts) Save(_ context.Context, key string, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key+".png")
	return key + ".png", nil
}

func (f *fakeArtifacts) URL(_ context.Context, key string) (string, error) {
	return "https://bucket.local/" + key, nil
}

func newTestService(t *testing.T, balance int64, provider *fakeImages, artifacts service.IArtifactStore) (*Service, *inmemory.Store, uuid.UUID) {
	t.Helper()
	store := inmemory.NewStore()
	userID := uuid.New()
	require.NoError(t, store.Users().Create(context.Background(), &domain.User{
		ID:                 userID,
		Email:              "artist@example.com",
		Role:               domain.UserRoleUser,
		Credits:            balance,
		SubscriptionPlan:   domain.PlanFree,
		SubscriptionStatus: domain.SubscriptionInactive,
	}))
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	creditService := credits.New(store.Users(), store.Credits(), store.Jobs(), nil, log)
	svc := New(store, store.Images(), creditService, provider, artifacts, nil, Costs{Generate: 1, Edit: 2}, log)
	return svc, store, userID
}

func TestGenerateImage_DebitsOnceWithReference(t *testing.T) {
	svc, store, userID := newTestService(t, 3, &fakeImages{}, nil)
	ctx := context.Background()

	res, err := svc.GenerateImage(ctx, userID, service.ImageRequest{Prompt: "a cat in space"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Balance)
	assert.Equal(t, "https://cdn.provider/out.png", res.Image.ResultURL)

	images, err := svc.ListImages(ctx, userID, 10, 0)
	require.NoError(t, err)
	require.Len(t, images, 1)

	history, err := store.Credits().ListByUser(ctx, userID, 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(-1), history[0].Delta)
	require.NotNil(t, history[0].ReferenceID)
	assert.Equal(t, images[0].ID.String(), *history[0].ReferenceID)
}

func TestGenerateImage_ProviderFailureNoDebit(t *testing.T) {
	provider := &fakeImages{err: errors.Join(domain.ErrProviderFailure, errors.New("model overloaded"))}
	svc, store, userID := newTestService(t, 3, provider, nil)
	ctx := context.Background()

	_, err := svc.GenerateImage(ctx, userID, service.ImageRequest{Prompt: "a cat"})
	require.ErrorIs(t, err, domain.ErrProviderFailure)

	images, err := store.Images().ListByUser(ctx, userID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, images)

	u, err := store.Users().GetByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), u.Credits)
}

func TestGenerateImage_InsufficientSkipsProvider(t *testing.T) {
	provider := &fakeImages{}
	svc, _, userID := newTestService(t, 0, provider, nil)

	_, err := svc.GenerateImage(context.Background(), userID, service.ImageRequest{Prompt: "a cat"})
	assert.ErrorIs(t, err, domain.ErrInsufficientCredits)
	assert.Equal(t, 0, provider.calls)
}

func TestGenerateImage_ValidatesPrompt(t *testing.T) {
	provider := &fakeImages{}
	svc, _, userID := newTestService(t, 5, provider, nil)

	_, err := svc.GenerateImage(context.Background(), userID, service.ImageRequest{Prompt: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.GenerateImage(context.Background(), userID, service.ImageRequest{Prompt: strings.Repeat("a", maxPromptLength+1)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 0, provider.calls)
}

func TestGenerateImage_PromptLimitCountsCharacters(t *testing.T) {
	provider := &fakeImages{}
	svc, _, userID := newTestService(t, 5, provider, nil)

	// 1500 кириллических символов занимают 3000 байт
	_, err := svc.GenerateImage(context.Background(), userID, service.ImageRequest{Prompt: strings.Repeat("ж", 1500)})
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls)
}

func TestGenerateImage_ArtifactCopy(t *testing.T) {
	artifacts := &fakeArtifacts{}
	svc, _, userID := newTestService(t, 3, &fakeImages{}, artifacts)

	res, err := svc.GenerateImage(context.Background(), userID, service.ImageRequest{Prompt: "a dog"})
	require.NoError(t, err)
	require.NotNil(t, res.Image.StorageKey)
	assert.Equal(t, "images/"+userID.String()+"/"+res.Image.ID.String()+".png", *res.Image.StorageKey)
	assert.Equal(t, "https://bucket.local/"+*res.Image.StorageKey, res.Image.ResultURL)
}

func TestGenerateImage_ArtifactFailureNoDebit(t *testing.T) {
	artifacts := &fakeArtifacts{err: domain.ErrProviderFailure}
	svc, store, userID := newTestService(t, 3, &fakeImages{}, artifacts)
	ctx := context.Background()

	_, err := svc.GenerateImage(ctx, userID, service.ImageRequest{Prompt: "a dog"})
	require.ErrorIs(t, err, domain.ErrProviderFailure)

	u, err := store.Users().GetByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), u.Credits)
}

func TestEditImage(t *testing.T) {
	provider := &fakeImages{}
	svc, _, userID := newTestService(t, 3, provider, nil)
	mask := "https://example.com/mask.png"

	res, err := svc.EditImage(context.Background(), userID, service.EditRequest{
		ImageURL: "https://example.com/in.png",
		Prompt:   "make it night",
		MaskURL:  &mask,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Balance)
	assert.Equal(t, domain.ImageKindEdit, res.Image.Kind)
	require.NotNil(t, res.Image.SourceImageURL)
	require.Len(t, provider.edits, 1)
	assert.Equal(t, &mask, provider.edits[0].MaskURL)

	_, err = svc.EditImage(context.Background(), userID, service.EditRequest{Prompt: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
