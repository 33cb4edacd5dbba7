package domain

import (
	"time"

	"github.com/google/uuid"
)

// BillingEventType тип события платёжного провайдера после нормализации
type BillingEventType string

const (
	BillingCheckoutCompleted   BillingEventType = "checkout.completed"
	BillingInvoicePaid         BillingEventType = "invoice.paid"
	BillingSubscriptionCreated BillingEventType = "subscription.created"
	BillingSubscriptionUpdated BillingEventType = "subscription.updated"
	BillingSubscriptionDeleted BillingEventType = "subscription.deleted"
	BillingUnknown             BillingEventType = "unknown"
)

// CheckoutMode режим checkout сессии
type CheckoutMode string

const (
	CheckoutModeSubscription CheckoutMode = "subscription"
	CheckoutModePayment      CheckoutMode = "payment"
)

// BillingReasonSubscriptionCycle инвойс за очередной период подписки
const BillingReasonSubscriptionCycle = "subscription_cycle"

// BillingEvent событие вебхука, не зависящее от провайдера
type BillingEvent struct {
	ID             string
	Type           BillingEventType
	RawType        string
	ObjectID       string
	Mode           CheckoutMode
	CustomerID     string
	SubscriptionID string
	UserID         *uuid.UUID
	PlanID         PlanID
	PackID         string
	PriceID        string
	Status         string
	BillingReason  string
	PeriodEnd      *time.Time
}

// SubscriptionInfo ответ эндпоинта статуса подписки
type SubscriptionInfo struct {
	Plan      PlanID             `json:"plan"`
	Status    SubscriptionStatus `json:"status"`
	Credits   int64              `json:"credits"`
	PeriodEnd *time.Time         `json:"period_end,omitempty"`
}

// CheckoutRequest параметры создания checkout сессии
type CheckoutRequest struct {
	UserID     uuid.UUID
	Email      string
	CustomerID string
	Mode       CheckoutMode
	PriceID    string
	PlanID     PlanID
	PackID     string
	SuccessURL string
	CancelURL  string
}
