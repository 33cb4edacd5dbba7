package userRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/admin/ai-studio/internal/adapters/secondary/storage/pg"
	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/ports/persistence"
	ports "github.com/admin/ai-studio/internal/ports/repository"
	"github.com/google/uuid"
)

type userColumns struct {
	TableName             string
	ID                    string
	Email                 string
	Role                  string
	Credits               string
	SubscriptionPlan      string
	SubscriptionStatus    string
	BillingCustomerID     string
	BillingSubscriptionID string
	SubscriptionPeriodEnd string
	CreatedAt             string
	UpdatedAt             string
}

type Repository struct {
	db      persistence.Persistence
	Log     *slog.Logger
	columns userColumns
}

// New создаёт новый репозиторий для работы с пользователями
func New(db persistence.Persistence, log *slog.Logger) ports.IUserRepo {
	cols := userColumns{
		TableName:             "users",
		ID:                    "id",
		Email:                 "email",
		Role:                  "role",
		Credits:               "credits",
		SubscriptionPlan:      "subscription_plan",
		SubscriptionStatus:    "subscription_status",
		BillingCustomerID:     "billing_customer_id",
		BillingSubscriptionID: "billing_subscription_id",
		SubscriptionPeriodEnd: "subscription_period_end",
		CreatedAt:             "created_at",
		UpdatedAt:             "updated_at",
	}
	return &Repository{
		db:      db,
		Log:     log,
		columns: cols,
	}
}

func (r *Repository) allColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s",
		r.columns.ID,
		r.columns.Email,
		r.columns.Role,
		r.columns.Credits,
		r.columns.SubscriptionPlan,
		r.columns.SubscriptionStatus,
		r.columns.BillingCustomerID,
		r.columns.BillingSubscriptionID,
		r.columns.SubscriptionPeriodEnd,
		r.columns.CreatedAt,
		r.columns.UpdatedAt)
}

// Create создаёт нового пользователя
func (r *Repository) Create(ctx context.Context, user *domain.User) error {
	return r.create(ctx, r.db, user)
}

// CreateTx создаёт пользователя в транзакции
func (r *Repository) CreateTx(ctx context.Context, tx persistence.Transaction, user *domain.User) error {
	return r.create(ctx, tx, user)
}

func (r *Repository) create(ctx context.Context, exec persistence.Executor, user *domain.User) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		r.columns.TableName,
		r.allColumns())
	err := exec.Exec(ctx, query,
		user.ID,
		user.Email,
		user.Role,
		user.Credits,
		user.SubscriptionPlan,
		user.SubscriptionStatus,
		user.BillingCustomerID,
		user.BillingSubscriptionID,
		user.SubscriptionPeriodEnd,
		user.CreatedAt,
		user.UpdatedAt)
	if err != nil {
		if pg.IsUniqueViolation(err) {
			return fmt.Errorf("failed to create user: %w", domain.ErrConflict)
		}
		r.Log.Error("failed to create user",
			"error", err,
			"user_id", user.ID)
		return fmt.Errorf("failed to create user: %w", err)
	}
	r.Log.Debug("user created successfully", "user_id", user.ID)
	return nil
}

// GetByID получает пользователя по ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.getBy(ctx, r.db, r.columns.ID, id)
}

func (r *Repository) GetByIDTx(ctx context.Context, tx persistence.Transaction, id uuid.UUID) (*domain.User, error) {
	return r.getBy(ctx, tx, r.columns.ID, id)
}

// GetByCustomerID ищет пользователя по id клиента у платёжного провайдера
func (r *Repository) GetByCustomerID(ctx context.Context, customerID string) (*domain.User, error) {
	return r.getBy(ctx, r.db, r.columns.BillingCustomerID, customerID)
}

func (r *Repository) GetByCustomerIDTx(ctx context.Context, tx persistence.Transaction, customerID string) (*domain.User, error) {
	return r.getBy(ctx, tx, r.columns.BillingCustomerID, customerID)
}

func (r *Repository) getBy(ctx context.Context, exec persistence.Executor, column string, value interface{}) (*domain.User, error) {
	var user domain.User
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		r.allColumns(),
		r.columns.TableName,
		column)
	err := exec.Get(ctx, &user, query, value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Debug("user not found", column, value)
			return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
		}
		r.Log.Error("failed to get user",
			"error", err,
			column, value)
		return nil, fmt.Errorf("failed to get user by %s: %w", column, err)
	}
	return &user, nil
}

// LockBalanceTx SELECT ... FOR UPDATE, строка заблокирована до commit/rollback
func (r *Repository) LockBalanceTx(ctx context.Context, tx persistence.Transaction, id uuid.UUID) (int64, error) {
	var credits int64
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 FOR UPDATE`,
		r.columns.Credits,
		r.columns.TableName,
		r.columns.ID)
	err := tx.Get(ctx, &credits, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("user not found: %w", domain.ErrNotFound)
		}
		r.Log.Error("failed to lock user balance",
			"error", err,
			"user_id", id)
		return 0, fmt.Errorf("failed to lock user balance: %w", err)
	}
	return credits, nil
}

// UpdateCreditsTx записывает новый баланс
func (r *Repository) UpdateCreditsTx(ctx context.Context, tx persistence.Transaction, id uuid.UUID, credits int64) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = $2 WHERE %s = $3`,
		r.columns.TableName,
		r.columns.Credits,
		r.columns.UpdatedAt,
		r.columns.ID)
	rowsAffected, err := tx.ExecWithResult(ctx, query, credits, time.Now(), id)
	if err != nil {
		r.Log.Error("failed to update credits",
			"error", err,
			"user_id", id)
		return fmt.Errorf("failed to update credits: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return nil
}

// UpdateSubscriptionTx обновляет только заданные поля подписки
func (r *Repository) UpdateSubscriptionTx(ctx context.Context, tx persistence.Transaction, id uuid.UUID, upd domain.SubscriptionUpdate) error {
	query := fmt.Sprintf(`UPDATE %s SET
		%s = COALESCE($1, %s),
		%s = COALESCE($2, %s),
		%s = COALESCE($3, %s),
		%s = COALESCE($4, %s),
		%s = COALESCE($5, %s),
		%s = $6
		WHERE %s = $7`,
		r.columns.TableName,
		r.columns.SubscriptionPlan, r.columns.SubscriptionPlan,
		r.columns.SubscriptionStatus, r.columns.SubscriptionStatus,
		r.columns.BillingCustomerID, r.columns.BillingCustomerID,
		r.columns.BillingSubscriptionID, r.columns.BillingSubscriptionID,
		r.columns.SubscriptionPeriodEnd, r.columns.SubscriptionPeriodEnd,
		r.columns.UpdatedAt,
		r.columns.ID)
	rowsAffected, err := tx.ExecWithResult(ctx, query,
		upd.Plan,
		upd.Status,
		upd.CustomerID,
		upd.SubscriptionID,
		upd.PeriodEnd,
		time.Now(),
		id)
	if err != nil {
		r.Log.Error("failed to update subscription",
			"error", err,
			"user_id", id)
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	r.Log.Debug("subscription updated", "user_id", id)
	return nil
}

// SetCustomerID сохраняет id клиента платёжного провайдера
func (r *Repository) SetCustomerID(ctx context.Context, id uuid.UUID, customerID string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = $2 WHERE %s = $3`,
		r.columns.TableName,
		r.columns.BillingCustomerID,
		r.columns.UpdatedAt,
		r.columns.ID)
	rowsAffected, err := r.db.ExecWithResult(ctx, query, customerID, time.Now(), id)
	if err != nil {
		r.Log.Error("failed to set billing customer id",
			"error", err,
			"user_id", id)
		return fmt.Errorf("failed to set billing customer id: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return nil
}

// ExpireSubscriptions переводит на free пользователей, у которых отменённая или просроченная подписка закончилась
func (r *Repository) ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = $2, %s = NULL, %s = $3
		WHERE %s IN ($4, $5) AND %s IS NOT NULL AND %s < $3`,
		r.columns.TableName,
		r.columns.SubscriptionPlan,
		r.columns.SubscriptionStatus,
		r.columns.BillingSubscriptionID,
		r.columns.UpdatedAt,
		r.columns.SubscriptionStatus,
		r.columns.SubscriptionPeriodEnd,
		r.columns.SubscriptionPeriodEnd)
	rowsAffected, err := r.db.ExecWithResult(ctx, query,
		domain.PlanFree,
		domain.SubscriptionInactive,
		now,
		domain.SubscriptionCanceled,
		domain.SubscriptionPastDue)
	if err != nil {
		r.Log.Error("failed to expire subscriptions", "error", err)
		return 0, fmt.Errorf("failed to expire subscriptions: %w", err)
	}
	return rowsAffected, nil
}

// BeginTx явно начинает транзакцию
func (r *Repository) BeginTx(ctx context.Context) (persistence.Transaction, error) {
	return r.db.BeginTx(ctx)
}

// WithTransaction выполняет функцию в транзакции с автоматическим commit/rollback
func (r *Repository) WithTransaction(ctx context.Context, fn func(context.Context, persistence.Transaction) error) error {
	return r.db.WithTransaction(ctx, fn)
}
