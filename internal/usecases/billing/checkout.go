package billing

import (
	"context"
	"fmt"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/google/uuid"
)

// CreateCheckoutSession план оформляется подпиской, пакет кредитов разовой покупкой
func (s *Service) CreateCheckoutSession(ctx context.Context, userID uuid.UUID, planID domain.PlanID, packID string) (string, error) {
	if (planID == "") == (packID == "") {
		return "", domain.WrapBusinessError(fmt.Errorf("%w: exactly one of planId or packId is required", domain.ErrInvalidInput))
	}

	req := domain.CheckoutRequest{
		UserID:     userID,
		SuccessURL: s.URLs.SuccessURL,
		CancelURL:  s.URLs.CancelURL,
	}
	if planID != "" {
		plan, ok := s.Catalog.Plan(planID)
		if !ok || !plan.ID.IsPaid() || plan.PriceID == "" {
			return "", domain.WrapBusinessError(fmt.Errorf("%w: unknown plan %q", domain.ErrInvalidInput, planID))
		}
		req.Mode = domain.CheckoutModeSubscription
		req.PlanID = plan.ID
		req.PriceID = plan.PriceID
	} else {
		pack, ok := s.Catalog.Pack(packID)
		if !ok || pack.PriceID == "" {
			return "", domain.WrapBusinessError(fmt.Errorf("%w: unknown credit pack %q", domain.ErrInvalidInput, packID))
		}
		req.Mode = domain.CheckoutModePayment
		req.PackID = pack.ID
		req.PriceID = pack.PriceID
	}

	user, err := s.UserRepo.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	req.Email = user.Email

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return "", err
	}
	req.CustomerID = customerID

	url, err := s.Provider.CreateCheckoutSession(ctx, req)
	if err != nil {
		s.Log.Error("failed to create checkout session", "error", err, "user_id", userID, "mode", req.Mode)
		return "", domain.WrapBusinessError(err)
	}

	s.Log.Info("checkout session created", "user_id", userID, "mode", req.Mode, "plan", req.PlanID, "pack", req.PackID)
	return url, nil
}

func (s *Service) CreatePortalSession(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.UserRepo.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	if user.BillingCustomerID == nil || *user.BillingCustomerID == "" {
		return "", domain.WrapBusinessError(fmt.Errorf("billing customer: %w", domain.ErrNotFound))
	}

	url, err := s.Provider.CreatePortalSession(ctx, *user.BillingCustomerID, s.URLs.PortalReturnURL)
	if err != nil {
		s.Log.Error("failed to create portal session", "error", err, "user_id", userID)
		return "", domain.WrapBusinessError(err)
	}
	return url, nil
}

// SubscriptionStatus дешёвое чтение, его опрашивает клиент после возврата из checkout
func (s *Service) SubscriptionStatus(ctx context.Context, userID uuid.UUID) (*domain.SubscriptionInfo, error) {
	user, err := s.UserRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &domain.SubscriptionInfo{
		Plan:      user.SubscriptionPlan,
		Status:    user.SubscriptionStatus,
		Credits:   user.Credits,
		PeriodEnd: user.SubscriptionPeriodEnd,
	}, nil
}

func (s *Service) ensureCustomer(ctx context.Context, user *domain.User) (string, error) {
	if user.BillingCustomerID != nil && *user.BillingCustomerID != "" {
		return *user.BillingCustomerID, nil
	}

	customerID, err := s.Provider.CreateCustomer(ctx, user.ID, user.Email)
	if err != nil {
		s.Log.Error("failed to create billing customer", "error", err, "user_id", user.ID)
		return "", domain.WrapBusinessError(err)
	}
	if err := s.UserRepo.SetCustomerID(ctx, user.ID, customerID); err != nil {
		return "", fmt.Errorf("failed to save billing customer: %w", err)
	}
	s.Log.Info("billing customer created", "user_id", user.ID, "customer_id", customerID)
	return customerID, nil
}
