package credits

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/admin/ai-studio/internal/adapters/secondary/storage/inmemory"
	"github.com/admin/ai-studio/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func newTestService(t *testing.T, credits int64) (*Service, *inmemory.Store, uuid.UUID, *recordingPublisher) {
	t.Helper()
	store := inmemory.NewStore()
	id := uuid.New()
	require.NoError(t, store.Users().Create(context.Background(), &domain.User{
		ID:                 id,
		Email:              "user@example.com",
		Role:               domain.UserRoleUser,
		Credits:            credits,
		SubscriptionPlan:   domain.PlanFree,
		SubscriptionStatus: domain.SubscriptionInactive,
	}))
	pub := &recordingPublisher{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store.Users(), store.Credits(), store.Jobs(), pub, log), store, id, pub
}

func TestSpendCredits(t *testing.T) {
	svc, _, userID, pub := newTestService(t, 5)
	ctx := context.Background()
	ref := "img-1"

	res, err := svc.SpendCredits(ctx, domain.CreditChange{
		UserID:      userID,
		Amount:      2,
		Reason:      "Image generation",
		Category:    domain.CreditCategoryGeneration,
		ReferenceID: &ref,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, int64(3), res.NewBalance)

	history, err := svc.History(ctx, userID, 0, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(-2), history[0].Delta)
	assert.Equal(t, int64(3), history[0].BalanceAfter)
	assert.Equal(t, &ref, history[0].ReferenceID)

	require.Len(t, pub.events, 1)
	assert.Equal(t, domain.EventCreditsChanged, pub.events[0].Type)
	assert.Equal(t, int64(-2), pub.events[0].Payload["delta"])
}

func TestSpendCredits_Insufficient(t *testing.T) {
	svc, _, userID, pub := newTestService(t, 1)
	ctx := context.Background()

	res, err := svc.SpendCredits(ctx, domain.CreditChange{UserID: userID, Amount: 2, Category: domain.CreditCategoryGeneration})
	require.ErrorIs(t, err, domain.ErrInsufficientCredits)
	assert.True(t, domain.IsBusinessError(err))
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Equal(t, domain.InsufficientCreditsMessage, res.Error)

	balance, err := svc.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), balance)

	history, err := svc.History(ctx, userID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Empty(t, pub.events)
}

func TestSpendCredits_RejectsNonPositive(t *testing.T) {
	svc, _, userID, _ := newTestService(t, 5)

	_, err := svc.SpendCredits(context.Background(), domain.CreditChange{UserID: userID, Amount: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSpendCredits_ConcurrentNeverNegative(t *testing.T) {
	svc, _, userID, _ := newTestService(t, 3)
	ctx := context.Background()

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.SpendCredits(ctx, domain.CreditChange{UserID: userID, Amount: 1, Category: domain.CreditCategoryGeneration})
			if err == nil && res.Success {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	balance, err := svc.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestAddCredits(t *testing.T) {
	svc, _, userID, _ := newTestService(t, 0)

	res, err := svc.AddCredits(context.Background(), domain.CreditChange{
		UserID:   userID,
		Amount:   100,
		Reason:   "Subscription credits",
		Category: domain.CreditCategorySubscription,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(100), res.NewBalance)
}

func TestCanAffordWithPending(t *testing.T) {
	svc, store, userID, _ := newTestService(t, 6)
	ctx := context.Background()

	require.NoError(t, store.Jobs().Create(ctx, &domain.Job{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      domain.JobTypeVideoGeneration,
		Status:    domain.JobStatusProcessing,
		Cost:      5,
		CreatedAt: time.Now(),
	}))

	ok, err := svc.CanAffordWithPending(ctx, userID, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CanAffordWithPending(ctx, userID, 2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdminAdjust(t *testing.T) {
	adminID := uuid.New()

	tests := []struct {
		name    string
		start   int64
		op      domain.AdjustOperation
		amount  int64
		want    int64
		wantErr error
	}{
		{name: "add", start: 5, op: domain.AdjustAdd, amount: 10, want: 15},
		{name: "subtract", start: 5, op: domain.AdjustSubtract, amount: 5, want: 0},
		{name: "subtract below zero", start: 5, op: domain.AdjustSubtract, amount: 6, want: 5, wantErr: domain.ErrInsufficientCredits},
		{name: "set", start: 5, op: domain.AdjustSet, amount: 42, want: 42},
		{name: "set negative debt", start: 5, op: domain.AdjustSet, amount: -3, want: -3},
		{name: "unknown op", start: 5, op: "multiply", amount: 2, want: 5, wantErr: domain.ErrInvalidInput},
		{name: "zero add", start: 5, op: domain.AdjustAdd, amount: 0, want: 5, wantErr: domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, userID, _ := newTestService(t, tt.start)
			ctx := context.Background()

			_, err := svc.AdminAdjust(ctx, adminID, userID, tt.op, tt.amount, "")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			balance, err := svc.Balance(ctx, userID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, balance)
		})
	}
}

func TestAdminAdjust_RecordsAdmin(t *testing.T) {
	svc, _, userID, _ := newTestService(t, 5)
	adminID := uuid.New()
	ctx := context.Background()

	_, err := svc.AdminAdjust(ctx, adminID, userID, domain.AdjustSet, 2, "refund mistake")
	require.NoError(t, err)

	history, err := svc.History(ctx, userID, 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(-3), history[0].Delta)
	assert.Equal(t, domain.CreditCategoryAdmin, history[0].Category)
	assert.Equal(t, adminID.String(), history[0].Metadata["admin_id"])
	assert.Equal(t, "set", history[0].Metadata["operation"])
}

func TestAdminAdjust_UnknownUser(t *testing.T) {
	svc, _, _, _ := newTestService(t, 0)

	_, err := svc.AdminAdjust(context.Background(), uuid.New(), uuid.New(), domain.AdjustAdd, 1, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClampPage(t *testing.T) {
	l, o := ClampPage(0, -1)
	assert.Equal(t, 50, l)
	assert.Equal(t, 0, o)

	l, _ = ClampPage(1000, 0)
	assert.Equal(t, 100, l)
}
