package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/pkg/metrics"
	"github.com/admin/ai-studio/internal/ports/persistence"
)

// grant начисление, о котором нужно сообщить после коммита
type grant struct {
	change  domain.CreditChange
	balance int64
}

// HandleWebhook обрабатывает событие платёжного провайдера. Каждое событие применяется
// не больше одного раза: отметка об обработке пишется в той же транзакции, что и начисление.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.Provider.ParseWebhook(payload, signature)
	if err != nil {
		s.Log.Warn("billing webhook rejected", "error", err)
		metrics.RecordWebhook("invalid", "rejected")
		return domain.WrapBusinessError(err)
	}

	log := s.Log.With("event_id", ev.ID, "event_type", ev.RawType)
	if ev.Type == domain.BillingUnknown {
		log.Debug("billing event ignored")
		metrics.RecordWebhook(ev.RawType, "ignored")
		return nil
	}

	var (
		grants    []grant
		duplicate bool
	)
	err = s.UserRepo.WithTransaction(ctx, func(ctx context.Context, tx persistence.Transaction) error {
		first, err := s.BillingEventRepo.MarkProcessedTx(ctx, tx, ev.ID, ev.RawType)
		if err != nil {
			return fmt.Errorf("failed to mark event processed: %w", err)
		}
		if !first {
			duplicate = true
			return nil
		}

		grants, err = s.apply(ctx, tx, ev)
		return err
	})
	if err != nil {
		metrics.RecordWebhook(ev.RawType, "error")
		log.Error("failed to process billing event", "error", err)
		if grantsCredits(ev) {
			s.alert(ctx, fmt.Sprintf("⚠️ Оплата получена, но кредиты не начислены\nevent: %s (%s)\ncustomer: %s\nerror: %v",
				ev.ID, ev.RawType, ev.CustomerID, err))
		}
		return domain.WrapBusinessError(err)
	}
	if duplicate {
		log.Info("duplicate billing event skipped")
		metrics.RecordWebhook(ev.RawType, "duplicate")
		return nil
	}

	for _, g := range grants {
		if err := s.CreditService.NotifyBalanceChanged(ctx, g.change, g.change.Amount, g.balance); err != nil {
			log.Error("credits granted but notification failed", "error", err, "user_id", g.change.UserID)
			s.alert(ctx, fmt.Sprintf("⚠️ Кредиты начислены, но уведомление не отправлено\nevent: %s (%s)\nuser: %s\nerror: %v",
				ev.ID, ev.RawType, g.change.UserID, err))
		}
	}
	metrics.RecordWebhook(ev.RawType, "processed")
	log.Info("billing event processed", "grants", len(grants))
	return nil
}

func (s *Service) apply(ctx context.Context, tx persistence.Transaction, ev *domain.BillingEvent) ([]grant, error) {
	switch ev.Type {
	case domain.BillingCheckoutCompleted:
		return s.applyCheckout(ctx, tx, ev)
	case domain.BillingInvoicePaid:
		return s.applyInvoice(ctx, tx, ev)
	case domain.BillingSubscriptionCreated, domain.BillingSubscriptionUpdated:
		return nil, s.applySubscriptionUpdate(ctx, tx, ev)
	case domain.BillingSubscriptionDeleted:
		return nil, s.applySubscriptionDeleted(ctx, tx, ev)
	}
	return nil, nil
}

func (s *Service) applyCheckout(ctx context.Context, tx persistence.Transaction, ev *domain.BillingEvent) ([]grant, error) {
	// асинхронные способы оплаты присылают completed до списания денег
	if ev.Status == "unpaid" {
		s.Log.Info("checkout completed without payment yet", "event_id", ev.ID, "session_id", ev.ObjectID)
		return nil, nil
	}

	user, err := s.resolveUser(ctx, tx, ev)
	if err != nil {
		return nil, err
	}

	switch ev.Mode {
	case domain.CheckoutModeSubscription:
		plan, ok := s.Catalog.Plan(ev.PlanID)
		if !ok {
			plan, ok = s.Catalog.PlanByPriceID(ev.PriceID)
		}
		if !ok || !plan.ID.IsPaid() {
			return nil, fmt.Errorf("%w: unknown plan %q in checkout %s", domain.ErrInvalidInput, ev.PlanID, ev.ObjectID)
		}

		status := domain.SubscriptionActive
		upd := domain.SubscriptionUpdate{Plan: &plan.ID, Status: &status}
		if ev.CustomerID != "" {
			upd.CustomerID = &ev.CustomerID
		}
		if ev.SubscriptionID != "" {
			upd.SubscriptionID = &ev.SubscriptionID
		}
		if err := s.UserRepo.UpdateSubscriptionTx(ctx, tx, user.ID, upd); err != nil {
			return nil, fmt.Errorf("failed to activate subscription: %w", err)
		}

		g, err := s.grantTx(ctx, tx, domain.CreditChange{
			UserID:      user.ID,
			Amount:      plan.MonthlyCredits,
			Reason:      fmt.Sprintf("Subscription %s", plan.ID),
			Category:    domain.CreditCategorySubscription,
			ReferenceID: &ev.ObjectID,
			Metadata:    domain.Metadata{"plan_id": string(plan.ID), "event_id": ev.ID},
		})
		if err != nil {
			return nil, err
		}
		s.Log.Info("subscription activated", "user_id", user.ID, "plan", plan.ID)
		return g, nil

	case domain.CheckoutModePayment:
		pack, ok := s.Catalog.Pack(ev.PackID)
		if !ok {
			return nil, fmt.Errorf("%w: unknown credit pack %q in checkout %s", domain.ErrInvalidInput, ev.PackID, ev.ObjectID)
		}
		if ev.CustomerID != "" && user.BillingCustomerID == nil {
			if err := s.UserRepo.UpdateSubscriptionTx(ctx, tx, user.ID, domain.SubscriptionUpdate{CustomerID: &ev.CustomerID}); err != nil {
				return nil, fmt.Errorf("failed to link billing customer: %w", err)
			}
		}
		return s.grantTx(ctx, tx, domain.CreditChange{
			UserID:      user.ID,
			Amount:      pack.Credits,
			Reason:      fmt.Sprintf("Credit pack %s", pack.ID),
			Category:    domain.CreditCategoryPurchase,
			ReferenceID: &ev.ObjectID,
			Metadata:    domain.Metadata{"pack_id": pack.ID, "event_id": ev.ID},
		})
	}

	s.Log.Warn("checkout with unsupported mode ignored", "event_id", ev.ID, "mode", ev.Mode)
	return nil, nil
}

// applyInvoice начисляет кредиты только за продление, первый инвойс покрыт checkout
func (s *Service) applyInvoice(ctx context.Context, tx persistence.Transaction, ev *domain.BillingEvent) ([]grant, error) {
	if ev.BillingReason != domain.BillingReasonSubscriptionCycle {
		return nil, nil
	}

	user, err := s.resolveUser(ctx, tx, ev)
	if err != nil {
		return nil, err
	}

	plan, ok := s.Catalog.PlanByPriceID(ev.PriceID)
	if !ok {
		plan, ok = s.Catalog.Plan(ev.PlanID)
	}
	if !ok || !plan.ID.IsPaid() {
		return nil, fmt.Errorf("%w: unknown plan for invoice %s (price %q)", domain.ErrInvalidInput, ev.ObjectID, ev.PriceID)
	}

	status := domain.SubscriptionActive
	upd := domain.SubscriptionUpdate{Plan: &plan.ID, Status: &status, PeriodEnd: ev.PeriodEnd}
	if err := s.UserRepo.UpdateSubscriptionTx(ctx, tx, user.ID, upd); err != nil {
		return nil, fmt.Errorf("failed to extend subscription: %w", err)
	}

	return s.grantTx(ctx, tx, domain.CreditChange{
		UserID:      user.ID,
		Amount:      plan.MonthlyCredits,
		Reason:      fmt.Sprintf("Subscription renewal %s", plan.ID),
		Category:    domain.CreditCategorySubscription,
		ReferenceID: &ev.ObjectID,
		Metadata:    domain.Metadata{"plan_id": string(plan.ID), "event_id": ev.ID},
	})
}

// applySubscriptionUpdate синхронизирует статус подписки. Провайдер не гарантирует порядок событий,
// поэтому события чужой подписки и запоздавший created не откатывают активного пользователя.
func (s *Service) applySubscriptionUpdate(ctx context.Context, tx persistence.Transaction, ev *domain.BillingEvent) error {
	user, err := s.resolveUser(ctx, tx, ev)
	if err != nil {
		return err
	}

	status := domain.SubscriptionStatusFromProvider(ev.Status)
	// пока текущая подписка жива, события другой подписки её не перетирают
	if otherSubscription(user, ev) && liveSubscription(user) {
		s.Log.Info("update of a replaced subscription ignored",
			"user_id", user.ID,
			"event_subscription_id", ev.SubscriptionID,
			"current_subscription_id", *user.BillingSubscriptionID)
		return nil
	}
	if ev.Type == domain.BillingSubscriptionCreated &&
		user.SubscriptionStatus == domain.SubscriptionActive &&
		status != domain.SubscriptionActive {
		s.Log.Info("late subscription created event ignored",
			"user_id", user.ID,
			"subscription_id", ev.SubscriptionID,
			"provider_status", ev.Status)
		return nil
	}

	upd := domain.SubscriptionUpdate{Status: &status, PeriodEnd: ev.PeriodEnd}
	if ev.SubscriptionID != "" {
		upd.SubscriptionID = &ev.SubscriptionID
	}
	if plan, ok := s.Catalog.PlanByPriceID(ev.PriceID); ok {
		upd.Plan = &plan.ID
	}
	if err := s.UserRepo.UpdateSubscriptionTx(ctx, tx, user.ID, upd); err != nil {
		return fmt.Errorf("failed to sync subscription: %w", err)
	}
	s.Log.Info("subscription synced", "user_id", user.ID, "status", status)
	return nil
}

func (s *Service) applySubscriptionDeleted(ctx context.Context, tx persistence.Transaction, ev *domain.BillingEvent) error {
	user, err := s.resolveUser(ctx, tx, ev)
	if err != nil {
		return err
	}
	if otherSubscription(user, ev) {
		s.Log.Info("deletion of a replaced subscription ignored",
			"user_id", user.ID,
			"event_subscription_id", ev.SubscriptionID,
			"current_subscription_id", *user.BillingSubscriptionID)
		return nil
	}

	plan := domain.PlanFree
	status := domain.SubscriptionCanceled
	upd := domain.SubscriptionUpdate{Plan: &plan, Status: &status, PeriodEnd: ev.PeriodEnd}
	if err := s.UserRepo.UpdateSubscriptionTx(ctx, tx, user.ID, upd); err != nil {
		return fmt.Errorf("failed to cancel subscription: %w", err)
	}
	s.Log.Info("subscription canceled", "user_id", user.ID)
	return nil
}

func (s *Service) grantTx(ctx context.Context, tx persistence.Transaction, change domain.CreditChange) ([]grant, error) {
	if change.Amount <= 0 {
		return nil, nil
	}
	res, err := s.CreditService.AddCreditsTx(ctx, tx, change)
	if err != nil {
		return nil, fmt.Errorf("failed to grant credits: %w", err)
	}
	return []grant{{change: change, balance: res.NewBalance}}, nil
}

// resolveUser пользователь из metadata события, иначе по id покупателя
func (s *Service) resolveUser(ctx context.Context, tx persistence.Transaction, ev *domain.BillingEvent) (*domain.User, error) {
	if ev.UserID != nil {
		user, err := s.UserRepo.GetByIDTx(ctx, tx, *ev.UserID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, domain.ErrNotFound) || ev.CustomerID == "" {
			return nil, fmt.Errorf("failed to resolve user %s: %w", *ev.UserID, err)
		}
	}
	if ev.CustomerID == "" {
		return nil, fmt.Errorf("%w: event %s has neither user nor customer", domain.ErrNotFound, ev.ID)
	}
	user, err := s.UserRepo.GetByCustomerIDTx(ctx, tx, ev.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve customer %s: %w", ev.CustomerID, err)
	}
	return user, nil
}

// otherSubscription событие относится не к той подписке, что сейчас привязана к пользователю
func otherSubscription(user *domain.User, ev *domain.BillingEvent) bool {
	return user.BillingSubscriptionID != nil &&
		*user.BillingSubscriptionID != "" &&
		ev.SubscriptionID != "" &&
		*user.BillingSubscriptionID != ev.SubscriptionID
}

func liveSubscription(user *domain.User) bool {
	return user.SubscriptionStatus == domain.SubscriptionActive || user.SubscriptionStatus == domain.SubscriptionPastDue
}

func grantsCredits(ev *domain.BillingEvent) bool {
	switch ev.Type {
	case domain.BillingCheckoutCompleted:
		return ev.Status != "unpaid"
	case domain.BillingInvoicePaid:
		return ev.BillingReason == domain.BillingReasonSubscriptionCycle
	}
	return false
}

func (s *Service) alert(ctx context.Context, message string) {
	if s.AlerterService == nil {
		return
	}
	if err := s.AlerterService.SendAlert(ctx, message); err != nil {
		s.Log.Warn("failed to send billing alert", "error", err)
	}
}
