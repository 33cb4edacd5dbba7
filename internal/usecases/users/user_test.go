package users

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/admin/ai-studio/internal/adapters/secondary/storage/inmemory"
	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/usecases/credits"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(bonus int64, admins ...string) (*Service, *inmemory.Store) {
	store := inmemory.NewStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	creditService := credits.New(store.Users(), store.Credits(), store.Jobs(), nil, log)
	return New(store.Users(), creditService, bonus, admins, log), store
}

func TestEnsureUser_CreatesWithBonus(t *testing.T) {
	svc, store := newTestService(3)
	ctx := context.Background()
	id := uuid.New()

	user, err := svc.EnsureUser(ctx, id, "New@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)
	assert.Equal(t, int64(3), user.Credits)
	assert.Equal(t, domain.PlanFree, user.SubscriptionPlan)
	assert.Equal(t, domain.UserRoleUser, user.Role)

	history, err := store.Credits().ListByUser(ctx, id, 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.CreditCategoryBonus, history[0].Category)
	assert.Equal(t, int64(3), history[0].BalanceAfter)
}

func TestEnsureUser_Idempotent(t *testing.T) {
	svc, store := newTestService(3)
	ctx := context.Background()
	id := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.EnsureUser(ctx, id, "a@example.com")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	user, err := svc.GetProfile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(3), user.Credits)

	history, err := store.Credits().ListByUser(ctx, id, 10, 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestEnsureUser_AdminEmail(t *testing.T) {
	svc, _ := newTestService(0, "Boss@Example.com")

	user, err := svc.EnsureUser(context.Background(), uuid.New(), "boss@example.com")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin())
	assert.Equal(t, int64(0), user.Credits)
}

func TestGetProfile_NotFound(t *testing.T) {
	svc, _ := newTestService(0)

	_, err := svc.GetProfile(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.True(t, domain.IsBusinessError(err))
}
