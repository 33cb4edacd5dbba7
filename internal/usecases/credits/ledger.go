package credits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/pkg/metrics"
	"github.com/admin/ai-studio/internal/ports/persistence"
	"github.com/google/uuid"
)

func (s *Service) CanAfford(user *domain.User, cost int64) bool {
	return user != nil && user.CanAfford(cost)
}

// CanAffordWithPending учитывает стоимость незавершённых джоб: они спишутся при завершении
func (s *Service) CanAffordWithPending(ctx context.Context, userID uuid.UUID, cost int64) (bool, error) {
	user, err := s.UserRepo.GetByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to get user: %w", err)
	}
	pending, err := s.JobRepo.SumActiveCost(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to sum active jobs cost: %w", err)
	}
	return cost >= 0 && user.Credits-pending >= cost, nil
}

func (s *Service) SpendCredits(ctx context.Context, change domain.CreditChange) (*domain.SpendResult, error) {
	var result *domain.SpendResult
	err := s.UserRepo.WithTransaction(ctx, func(ctx context.Context, tx persistence.Transaction) error {
		var err error
		result, err = s.SpendCreditsTx(ctx, tx, change)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			s.Log.Info("spend rejected, insufficient credits", "user_id", change.UserID, "amount", change.Amount)
			return result, domain.WrapBusinessError(err)
		}
		s.Log.Error("failed to spend credits", "error", err, "user_id", change.UserID, "amount", change.Amount)
		return nil, err
	}

	s.notify(ctx, change, -change.Amount, result.NewBalance)
	return result, nil
}

// SpendCreditsTx проверка баланса и списание под блокировкой строки пользователя.
// При нехватке возвращает SpendResult с Success=false и ErrInsufficientCredits, вызывающий откатывает tx.
func (s *Service) SpendCreditsTx(ctx context.Context, tx persistence.Transaction, change domain.CreditChange) (*domain.SpendResult, error) {
	if change.Amount <= 0 {
		return nil, fmt.Errorf("%w: spend amount must be positive", domain.ErrInvalidInput)
	}

	balance, err := s.UserRepo.LockBalanceTx(ctx, tx, change.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock balance: %w", err)
	}
	if balance < change.Amount {
		return &domain.SpendResult{
			Success:    false,
			NewBalance: balance,
			Error:      domain.InsufficientCreditsMessage,
		}, fmt.Errorf("%w: balance %d, required %d", domain.ErrInsufficientCredits, balance, change.Amount)
	}

	newBalance := balance - change.Amount
	if err := s.writeTx(ctx, tx, change, -change.Amount, newBalance); err != nil {
		return nil, err
	}
	return &domain.SpendResult{Success: true, NewBalance: newBalance}, nil
}

func (s *Service) AddCredits(ctx context.Context, change domain.CreditChange) (*domain.SpendResult, error) {
	var result *domain.SpendResult
	err := s.UserRepo.WithTransaction(ctx, func(ctx context.Context, tx persistence.Transaction) error {
		var err error
		result, err = s.AddCreditsTx(ctx, tx, change)
		return err
	})
	if err != nil {
		s.Log.Error("failed to add credits", "error", err, "user_id", change.UserID, "amount", change.Amount)
		return nil, err
	}

	s.notify(ctx, change, change.Amount, result.NewBalance)
	return result, nil
}

func (s *Service) AddCreditsTx(ctx context.Context, tx persistence.Transaction, change domain.CreditChange) (*domain.SpendResult, error) {
	if change.Amount <= 0 {
		return nil, fmt.Errorf("%w: credit amount must be positive", domain.ErrInvalidInput)
	}

	balance, err := s.UserRepo.LockBalanceTx(ctx, tx, change.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock balance: %w", err)
	}

	newBalance := balance + change.Amount
	if err := s.writeTx(ctx, tx, change, change.Amount, newBalance); err != nil {
		return nil, err
	}
	return &domain.SpendResult{Success: true, NewBalance: newBalance}, nil
}

// writeTx обновляет баланс и пишет строку журнала с балансом после операции
func (s *Service) writeTx(ctx context.Context, tx persistence.Transaction, change domain.CreditChange, delta, newBalance int64) error {
	if err := s.UserRepo.UpdateCreditsTx(ctx, tx, change.UserID, newBalance); err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}

	entry := &domain.CreditTransaction{
		ID:           uuid.New(),
		UserID:       change.UserID,
		Delta:        delta,
		BalanceAfter: newBalance,
		Reason:       change.Reason,
		Category:     change.Category,
		ReferenceID:  change.ReferenceID,
		Metadata:     change.Metadata,
		CreatedAt:    time.Now(),
	}
	if err := s.CreditRepo.CreateTx(ctx, tx, entry); err != nil {
		return fmt.Errorf("failed to write credit transaction: %w", err)
	}
	return nil
}

// NotifyBalanceChanged метрики и событие credits.changed, ошибку публикации решает вызывающий
func (s *Service) NotifyBalanceChanged(ctx context.Context, change domain.CreditChange, delta int64, balance int64) error {
	metrics.RecordCredits(string(change.Category), delta)

	if s.Events == nil {
		return nil
	}
	event := domain.DomainEvent{
		Type:       domain.EventCreditsChanged,
		UserID:     change.UserID,
		OccurredAt: time.Now(),
		Payload: map[string]interface{}{
			"delta":    delta,
			"balance":  balance,
			"category": change.Category,
			"reason":   change.Reason,
		},
	}
	if change.ReferenceID != nil {
		event.Payload["reference_id"] = *change.ReferenceID
	}
	if err := s.Events.Publish(ctx, event); err != nil {
		return fmt.Errorf("failed to publish credits event: %w", err)
	}
	return nil
}

func (s *Service) notify(ctx context.Context, change domain.CreditChange, delta int64, balance int64) {
	if err := s.NotifyBalanceChanged(ctx, change, delta, balance); err != nil {
		s.Log.Warn("balance change notification failed", "error", err, "user_id", change.UserID)
	}
}

func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	user, err := s.UserRepo.GetByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get user: %w", err)
	}
	return user.Credits, nil
}

func (s *Service) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.CreditTransaction, error) {
	limit, offset = ClampPage(limit, offset)
	items, err := s.CreditRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list credit transactions: %w", err)
	}
	return items, nil
}
