package domain

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// SubscriptionStatus статус подписки пользователя
type SubscriptionStatus string

const (
	SubscriptionInactive SubscriptionStatus = "inactive"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// SubscriptionStatusFromProvider приводит статус платёжного провайдера к нашему
func SubscriptionStatusFromProvider(status string) SubscriptionStatus {
	switch status {
	case "active", "trialing":
		return SubscriptionActive
	case "past_due", "unpaid", "incomplete":
		return SubscriptionPastDue
	case "canceled", "incomplete_expired":
		return SubscriptionCanceled
	default:
		return SubscriptionInactive
	}
}

type User struct {
	ID                    uuid.UUID          `json:"id" db:"id"`
	Email                 string             `json:"email" db:"email"`
	Role                  UserRole           `json:"role" db:"role"`
	Credits               int64              `json:"credits" db:"credits"`
	SubscriptionPlan      PlanID             `json:"subscription_plan" db:"subscription_plan"`
	SubscriptionStatus    SubscriptionStatus `json:"subscription_status" db:"subscription_status"`
	BillingCustomerID     *string            `json:"-" db:"billing_customer_id"`
	BillingSubscriptionID *string            `json:"-" db:"billing_subscription_id"`
	SubscriptionPeriodEnd *time.Time         `json:"subscription_period_end,omitempty" db:"subscription_period_end"`
	CreatedAt             time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at" db:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// CanAfford проверяет, хватает ли кредитов на действие
func (u *User) CanAfford(cost int64) bool {
	return cost >= 0 && u.Credits >= cost
}

// SubscriptionUpdate изменения подписки, пришедшие из вебхука
type SubscriptionUpdate struct {
	Plan           *PlanID
	Status         *SubscriptionStatus
	CustomerID     *string
	SubscriptionID *string
	PeriodEnd      *time.Time
}
