package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/ports/persistence"
	"github.com/google/uuid"
)

// EnsureUser возвращает пользователя, при первом входе создаёт его вместе с бонусом за регистрацию
func (s *Service) EnsureUser(ctx context.Context, id uuid.UUID, email string) (*domain.User, error) {
	user, err := s.UserRepo.GetByID(ctx, id)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	now := time.Now()
	user = &domain.User{
		ID:                 id,
		Email:              normalizeEmail(email),
		Role:               s.roleFor(email),
		SubscriptionPlan:   domain.PlanFree,
		SubscriptionStatus: domain.SubscriptionInactive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	bonus := domain.CreditChange{
		UserID:   id,
		Amount:   s.SignupBonus,
		Reason:   "Signup bonus",
		Category: domain.CreditCategoryBonus,
	}
	var balance int64

	err = s.UserRepo.WithTransaction(ctx, func(ctx context.Context, tx persistence.Transaction) error {
		if err := s.UserRepo.CreateTx(ctx, tx, user); err != nil {
			return err
		}
		if bonus.Amount <= 0 {
			return nil
		}
		res, err := s.CreditService.AddCreditsTx(ctx, tx, bonus)
		if err != nil {
			return fmt.Errorf("failed to grant signup bonus: %w", err)
		}
		balance = res.NewBalance
		return nil
	})
	if err != nil {
		// параллельный первый запрос того же пользователя уже создал запись
		if errors.Is(err, domain.ErrConflict) {
			existing, getErr := s.UserRepo.GetByID(ctx, id)
			if getErr != nil {
				return nil, fmt.Errorf("failed to get user after conflict: %w", getErr)
			}
			return existing, nil
		}
		s.Log.Error("failed to create user", "error", err, "user_id", id)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	user.Credits = balance
	s.Log.Info("user created", "user_id", id, "role", user.Role, "bonus", bonus.Amount)
	if bonus.Amount > 0 {
		if err := s.CreditService.NotifyBalanceChanged(ctx, bonus, bonus.Amount, balance); err != nil {
			s.Log.Warn("signup bonus notification failed", "error", err, "user_id", id)
		}
	}
	return user, nil
}

func (s *Service) GetProfile(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.UserRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.WrapBusinessError(err)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *Service) roleFor(email string) domain.UserRole {
	if _, ok := s.adminEmails[normalizeEmail(email)]; ok {
		return domain.UserRoleAdmin
	}
	return domain.UserRoleUser
}
