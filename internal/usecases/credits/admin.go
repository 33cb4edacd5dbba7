package credits

import (
	"context"
	"errors"
	"fmt"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/ports/persistence"
	"github.com/google/uuid"
)

// AdminAdjust ручная корректировка баланса. set может сделать баланс отрицательным
// (учёт долга), subtract ниже нуля отклоняется.
func (s *Service) AdminAdjust(ctx context.Context, adminID, userID uuid.UUID, op domain.AdjustOperation, amount int64, reason string) (*domain.SpendResult, error) {
	if !op.IsValid() {
		return nil, domain.WrapBusinessError(fmt.Errorf("%w: unknown operation %q", domain.ErrInvalidInput, op))
	}
	if op != domain.AdjustSet && amount <= 0 {
		return nil, domain.WrapBusinessError(fmt.Errorf("%w: amount must be positive for %s", domain.ErrInvalidInput, op))
	}
	if reason == "" {
		reason = "Admin adjustment"
	}

	change := domain.CreditChange{
		UserID:   userID,
		Reason:   reason,
		Category: domain.CreditCategoryAdmin,
		Metadata: domain.Metadata{
			"admin_id":  adminID.String(),
			"operation": string(op),
			"amount":    amount,
		},
	}

	var (
		result *domain.SpendResult
		delta  int64
	)
	err := s.UserRepo.WithTransaction(ctx, func(ctx context.Context, tx persistence.Transaction) error {
		balance, err := s.UserRepo.LockBalanceTx(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("failed to lock balance: %w", err)
		}

		var newBalance int64
		switch op {
		case domain.AdjustAdd:
			newBalance = balance + amount
		case domain.AdjustSubtract:
			newBalance = balance - amount
			if newBalance < 0 {
				result = &domain.SpendResult{NewBalance: balance, Error: domain.InsufficientCreditsMessage}
				return fmt.Errorf("%w: balance %d, subtract %d", domain.ErrInsufficientCredits, balance, amount)
			}
		case domain.AdjustSet:
			newBalance = amount
		}

		delta = newBalance - balance
		if err := s.writeTx(ctx, tx, change, delta, newBalance); err != nil {
			return err
		}
		result = &domain.SpendResult{Success: true, NewBalance: newBalance}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) || errors.Is(err, domain.ErrNotFound) {
			s.Log.Info("admin adjustment rejected", "error", err, "admin_id", adminID, "user_id", userID)
			return result, domain.WrapBusinessError(err)
		}
		s.Log.Error("admin adjustment failed", "error", err, "admin_id", adminID, "user_id", userID)
		return nil, err
	}

	s.Log.Info("admin adjusted credits",
		"admin_id", adminID,
		"user_id", userID,
		"operation", op,
		"amount", amount,
		"delta", delta,
		"balance", result.NewBalance,
	)
	if delta != 0 {
		s.notify(ctx, change, delta, result.NewBalance)
	}
	return result, nil
}
