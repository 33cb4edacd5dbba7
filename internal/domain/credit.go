package domain

import (
	"time"

	"github.com/google/uuid"
)

// CreditCategory категория операции в журнале кредитов
type CreditCategory string

const (
	CreditCategoryGeneration   CreditCategory = "generation"
	CreditCategoryEdit         CreditCategory = "edit"
	CreditCategoryVideo        CreditCategory = "video"
	CreditCategoryTraining     CreditCategory = "training"
	CreditCategorySubscription CreditCategory = "subscription"
	CreditCategoryPurchase     CreditCategory = "purchase"
	CreditCategoryAdmin        CreditCategory = "admin"
	CreditCategoryBonus        CreditCategory = "bonus"
	CreditCategoryRefund       CreditCategory = "refund"
)

// InsufficientCreditsMessage текст ошибки, который уходит клиенту как есть
const InsufficientCreditsMessage = "Insufficient credits"

// CreditTransaction строка журнала кредитов, Delta со знаком
type CreditTransaction struct {
	ID           uuid.UUID      `json:"id" db:"id"`
	UserID       uuid.UUID      `json:"user_id" db:"user_id"`
	Delta        int64          `json:"delta" db:"delta"`
	BalanceAfter int64          `json:"balance_after" db:"balance_after"`
	Reason       string         `json:"reason" db:"reason"`
	Category     CreditCategory `json:"category" db:"category"`
	ReferenceID  *string        `json:"reference_id,omitempty" db:"reference_id"`
	Metadata     Metadata       `json:"metadata,omitempty" db:"metadata"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}

// CreditChange параметры списания или начисления
type CreditChange struct {
	UserID      uuid.UUID
	Amount      int64
	Reason      string
	Category    CreditCategory
	ReferenceID *string
	Metadata    Metadata
}

// SpendResult результат операции с балансом
type SpendResult struct {
	Success    bool   `json:"success"`
	NewBalance int64  `json:"newBalance"`
	Error      string `json:"error,omitempty"`
}

// AdjustOperation операция админской корректировки баланса
type AdjustOperation string

const (
	AdjustAdd      AdjustOperation = "add"
	AdjustSubtract AdjustOperation = "subtract"
	AdjustSet      AdjustOperation = "set"
)

func (o AdjustOperation) IsValid() bool {
	return o == AdjustAdd || o == AdjustSubtract || o == AdjustSet
}
