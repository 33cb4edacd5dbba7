package inmemory

import (
	"context"
	"fmt"
	"time"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/admin/ai-studio/internal/ports/persistence"
	"github.com/admin/ai-studio/internal/ports/repository"
	"github.com/google/uuid"
)

// UserRepo реализация repository.IUserRepo поверх Store
type UserRepo struct{ s *Store }

func (s *Store) Users() repository.IUserRepo { return &UserRepo{s: s} }

func (r *UserRepo) BeginTx(ctx context.Context) (persistence.Transaction, error) {
	return r.s.BeginTx(ctx)
}

func (r *UserRepo) WithTransaction(ctx context.Context, fn func(context.Context, persistence.Transaction) error) error {
	return r.s.WithTransaction(ctx, fn)
}

func createUser(d *storeData, user *domain.User) error {
	if _, ok := d.users[user.ID]; ok {
		return fmt.Errorf("failed to create user: %w", domain.ErrConflict)
	}
	d.users[user.ID] = *user
	return nil
}

func (r *UserRepo) Create(_ context.Context, user *domain.User) error {
	return r.s.read(func(d *storeData) error { return createUser(d, user) })
}

func (r *UserRepo) CreateTx(_ context.Context, tx persistence.Transaction, user *domain.User) error {
	return r.s.inTx(tx, func(d *storeData) error { return createUser(d, user) })
}

func getUser(d *storeData, id uuid.UUID) (*domain.User, error) {
	u, ok := d.users[id]
	if !ok {
		return nil, notFound("user")
	}
	return &u, nil
}

func getUserByCustomer(d *storeData, customerID string) (*domain.User, error) {
	for _, u := range d.users {
		if u.BillingCustomerID != nil && *u.BillingCustomerID == customerID {
			u := u
			return &u, nil
		}
	}
	return nil, notFound("user")
}

func (r *UserRepo) GetByID(_ context.Context, id uuid.UUID) (user *domain.User, err error) {
	err = r.s.read(func(d *storeData) error {
		user, err = getUser(d, id)
		return err
	})
	return user, err
}

func (r *UserRepo) GetByIDTx(_ context.Context, tx persistence.Transaction, id uuid.UUID) (user *domain.User, err error) {
	err = r.s.inTx(tx, func(d *storeData) error {
		user, err = getUser(d, id)
		return err
	})
	return user, err
}

func (r *UserRepo) GetByCustomerID(_ context.Context, customerID string) (user *domain.User, err error) {
	err = r.s.read(func(d *storeData) error {
		user, err = getUserByCustomer(d, customerID)
		return err
	})
	return user, err
}

func (r *UserRepo) GetByCustomerIDTx(_ context.Context, tx persistence.Transaction, customerID string) (user *domain.User, err error) {
	err = r.s.inTx(tx, func(d *storeData) error {
		user, err = getUserByCustomer(d, customerID)
		return err
	})
	return user, err
}

// LockBalanceTx блокировка уже взята транзакцией, просто читаем баланс
func (r *UserRepo) LockBalanceTx(_ context.Context, tx persistence.Transaction, id uuid.UUID) (balance int64, err error) {
	err = r.s.inTx(tx, func(d *storeData) error {
		u, err := getUser(d, id)
		if err != nil {
			return err
		}
		balance = u.Credits
		return nil
	})
	return balance, err
}

func (r *UserRepo) UpdateCreditsTx(_ context.Context, tx persistence.Transaction, id uuid.UUID, credits int64) error {
	return r.s.inTx(tx, func(d *storeData) error {
		u, ok := d.users[id]
		if !ok {
			return notFound("user")
		}
		u.Credits = credits
		u.UpdatedAt = time.Now()
		d.users[id] = u
		return nil
	})
}

func (r *UserRepo) UpdateSubscriptionTx(_ context.Context, tx persistence.Transaction, id uuid.UUID, upd domain.SubscriptionUpdate) error {
	return r.s.inTx(tx, func(d *storeData) error {
		u, ok := d.users[id]
		if !ok {
			return notFound("user")
		}
		if upd.Plan != nil {
			u.SubscriptionPlan = *upd.Plan
		}
		if upd.Status != nil {
			u.SubscriptionStatus = *upd.Status
		}
		if upd.CustomerID != nil {
			v := *upd.CustomerID
			u.BillingCustomerID = &v
		}
		if upd.SubscriptionID != nil {
			v := *upd.SubscriptionID
			u.BillingSubscriptionID = &v
		}
		if upd.PeriodEnd != nil {
			v := *upd.PeriodEnd
			u.SubscriptionPeriodEnd = &v
		}
		u.UpdatedAt = time.Now()
		d.users[id] = u
		return nil
	})
}

func (r *UserRepo) SetCustomerID(_ context.Context, id uuid.UUID, customerID string) error {
	return r.s.read(func(d *storeData) error {
		u, ok := d.users[id]
		if !ok {
			return notFound("user")
		}
		u.BillingCustomerID = &customerID
		u.UpdatedAt = time.Now()
		d.users[id] = u
		return nil
	})
}

func (r *UserRepo) ExpireSubscriptions(_ context.Context, now time.Time) (n int64, err error) {
	err = r.s.read(func(d *storeData) error {
		for id, u := range d.users {
			if u.SubscriptionStatus != domain.SubscriptionCanceled && u.SubscriptionStatus != domain.SubscriptionPastDue {
				continue
			}
			if u.SubscriptionPeriodEnd == nil || !u.SubscriptionPeriodEnd.Before(now) {
				continue
			}
			u.SubscriptionPlan = domain.PlanFree
			u.SubscriptionStatus = domain.SubscriptionInactive
			u.BillingSubscriptionID = nil
			u.UpdatedAt = now
			d.users[id] = u
			n++
		}
		return nil
	})
	return n, err
}

// CreditRepo журнал кредитов
type CreditRepo struct{ s *Store }

func (s *Store) Credits() repository.ICreditRepo { return &CreditRepo{s: s} }

func (r *CreditRepo) CreateTx(_ context.Context, tx persistence.Transaction, t *domain.CreditTransaction) error {
	return r.s.inTx(tx, func(d *storeData) error {
		d.credits = append(d.credits, *t)
		return nil
	})
}

func (r *CreditRepo) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) (out []domain.CreditTransaction, err error) {
	err = r.s.read(func(d *storeData) error {
		var mine []domain.CreditTransaction
		// обратный порядок вставки, чтобы при равном created_at новые были первыми
		for i := len(d.credits) - 1; i >= 0; i-- {
			if d.credits[i].UserID == userID {
				mine = append(mine, d.credits[i])
			}
		}
		sortNewestFirst(mine, func(t domain.CreditTransaction) time.Time { return t.CreatedAt })
		out = page(mine, limit, offset)
		return nil
	})
	return out, err
}

// ImageRepo сгенерированные картинки
type ImageRepo struct{ s *Store }

func (s *Store) Images() repository.IImageRepo { return &ImageRepo{s: s} }

func (r *ImageRepo) CreateTx(_ context.Context, tx persistence.Transaction, image *domain.GeneratedImage) error {
	return r.s.inTx(tx, func(d *storeData) error {
		d.images[image.ID] = *image
		return nil
	})
}

func (r *ImageRepo) GetByID(_ context.Context, id uuid.UUID) (img *domain.GeneratedImage, err error) {
	err = r.s.read(func(d *storeData) error {
		v, ok := d.images[id]
		if !ok {
			return notFound("image")
		}
		img = &v
		return nil
	})
	return img, err
}

func (r *ImageRepo) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) (out []domain.GeneratedImage, err error) {
	err = r.s.read(func(d *storeData) error {
		var mine []domain.GeneratedImage
		for _, v := range d.images {
			if v.UserID == userID {
				mine = append(mine, v)
			}
		}
		sortNewestFirst(mine, func(v domain.GeneratedImage) time.Time { return v.CreatedAt })
		out = page(mine, limit, offset)
		return nil
	})
	return out, err
}

// VideoRepo готовые видео
type VideoRepo struct{ s *Store }

func (s *Store) Videos() repository.IVideoRepo { return &VideoRepo{s: s} }

func (r *VideoRepo) CreateTx(_ context.Context, tx persistence.Transaction, video *domain.GeneratedVideo) error {
	return r.s.inTx(tx, func(d *storeData) error {
		for _, v := range d.videos {
			if v.JobID == video.JobID {
				return fmt.Errorf("video for job already exists: %w", domain.ErrConflict)
			}
		}
		d.videos[video.ID] = *video
		return nil
	})
}

func (r *VideoRepo) GetByJobID(_ context.Context, jobID uuid.UUID) (video *domain.GeneratedVideo, err error) {
	err = r.s.read(func(d *storeData) error {
		for _, v := range d.videos {
			if v.JobID == jobID {
				v := v
				video = &v
				return nil
			}
		}
		return notFound("video")
	})
	return video, err
}

func (r *VideoRepo) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) (out []domain.GeneratedVideo, err error) {
	err = r.s.read(func(d *storeData) error {
		var mine []domain.GeneratedVideo
		for _, v := range d.videos {
			if v.UserID == userID {
				mine = append(mine, v)
			}
		}
		sortNewestFirst(mine, func(v domain.GeneratedVideo) time.Time { return v.CreatedAt })
		out = page(mine, limit, offset)
		return nil
	})
	return out, err
}

// JobRepo очередь джоб
type JobRepo struct{ s *Store }

func (s *Store) Jobs() repository.IJobRepo { return &JobRepo{s: s} }

func (r *JobRepo) BeginTx(ctx context.Context) (persistence.Transaction, error) {
	return r.s.BeginTx(ctx)
}

func (r *JobRepo) WithTransaction(ctx context.Context, fn func(context.Context, persistence.Transaction) error) error {
	return r.s.WithTransaction(ctx, fn)
}

func (r *JobRepo) Create(_ context.Context, job *domain.Job) error {
	return r.s.read(func(d *storeData) error {
		if _, ok := d.jobs[job.ID]; ok {
			return fmt.Errorf("failed to create job: %w", domain.ErrConflict)
		}
		d.jobs[job.ID] = *job
		return nil
	})
}

func (r *JobRepo) GetByID(_ context.Context, id uuid.UUID) (job *domain.Job, err error) {
	err = r.s.read(func(d *storeData) error {
		v, ok := d.jobs[id]
		if !ok {
			return notFound("job")
		}
		job = &v
		return nil
	})
	return job, err
}

func (r *JobRepo) GetByProviderJobID(_ context.Context, providerJobID string) (job *domain.Job, err error) {
	err = r.s.read(func(d *storeData) error {
		for _, v := range d.jobs {
			if v.ProviderJobID != nil && *v.ProviderJobID == providerJobID {
				v := v
				job = &v
				return nil
			}
		}
		return notFound("job")
	})
	return job, err
}

func (r *JobRepo) MarkProcessing(_ context.Context, id uuid.UUID, providerJobID *string) error {
	return r.s.read(func(d *storeData) error {
		v, ok := d.jobs[id]
		if !ok || v.Status != domain.JobStatusPending {
			return fmt.Errorf("pending job not found: %w", domain.ErrConflict)
		}
		v.Status = domain.JobStatusProcessing
		if providerJobID != nil {
			p := *providerJobID
			v.ProviderJobID = &p
		}
		v.UpdatedAt = time.Now()
		d.jobs[id] = v
		return nil
	})
}

func (r *JobRepo) IncrementAttempts(_ context.Context, id uuid.UUID) error {
	return r.s.read(func(d *storeData) error {
		v, ok := d.jobs[id]
		if !ok {
			return nil
		}
		v.Attempts++
		v.UpdatedAt = time.Now()
		d.jobs[id] = v
		return nil
	})
}

func failJob(d *storeData, id uuid.UUID, message string, now time.Time) bool {
	v, ok := d.jobs[id]
	if !ok || v.Status.IsTerminal() {
		return false
	}
	v.Status = domain.JobStatusFailed
	v.ErrorMessage = &message
	v.UpdatedAt = now
	v.CompletedAt = &now
	d.jobs[id] = v
	return true
}

func (r *JobRepo) Fail(_ context.Context, id uuid.UUID, message string) (changed bool, err error) {
	err = r.s.read(func(d *storeData) error {
		changed = failJob(d, id, message, time.Now())
		return nil
	})
	return changed, err
}

func (r *JobRepo) FailTx(_ context.Context, tx persistence.Transaction, id uuid.UUID, message string) (changed bool, err error) {
	err = r.s.inTx(tx, func(d *storeData) error {
		changed = failJob(d, id, message, time.Now())
		return nil
	})
	return changed, err
}

func (r *JobRepo) CompleteTx(_ context.Context, tx persistence.Transaction, id uuid.UUID, resultURL string, completedAt time.Time) (changed bool, err error) {
	err = r.s.inTx(tx, func(d *storeData) error {
		v, ok := d.jobs[id]
		if !ok || v.Status != domain.JobStatusProcessing {
			return nil
		}
		v.Status = domain.JobStatusCompleted
		v.ResultURL = &resultURL
		v.UpdatedAt = completedAt
		v.CompletedAt = &completedAt
		d.jobs[id] = v
		changed = true
		return nil
	})
	return changed, err
}

func (r *JobRepo) SumActiveCost(_ context.Context, userID uuid.UUID) (total int64, err error) {
	err = r.s.read(func(d *storeData) error {
		for _, v := range d.jobs {
			if v.UserID == userID && !v.Status.IsTerminal() {
				total += v.Cost
			}
		}
		return nil
	})
	return total, err
}

func (r *JobRepo) FailStale(_ context.Context, olderThan time.Time, message string) (n int64, err error) {
	err = r.s.read(func(d *storeData) error {
		now := time.Now()
		for id, v := range d.jobs {
			if v.CreatedAt.Before(olderThan) && failJob(d, id, message, now) {
				n++
			}
		}
		return nil
	})
	return n, err
}

// ModelRepo обученные модели
type ModelRepo struct{ s *Store }

func (s *Store) Models() repository.IModelRepo { return &ModelRepo{s: s} }

func (r *ModelRepo) CreateTx(_ context.Context, tx persistence.Transaction, model *domain.TrainedModel) error {
	return r.s.inTx(tx, func(d *storeData) error {
		d.models[model.ID] = *model
		return nil
	})
}

func (r *ModelRepo) GetByID(_ context.Context, id uuid.UUID) (model *domain.TrainedModel, err error) {
	err = r.s.read(func(d *storeData) error {
		v, ok := d.models[id]
		if !ok {
			return notFound("model")
		}
		model = &v
		return nil
	})
	return model, err
}

func (r *ModelRepo) ListByUser(_ context.Context, userID uuid.UUID) (out []domain.TrainedModel, err error) {
	err = r.s.read(func(d *storeData) error {
		out = []domain.TrainedModel{}
		for _, v := range d.models {
			if v.UserID == userID && v.DeletedAt == nil {
				out = append(out, v)
			}
		}
		sortNewestFirst(out, func(v domain.TrainedModel) time.Time { return v.CreatedAt })
		return nil
	})
	return out, err
}

func (r *ModelRepo) SoftDelete(_ context.Context, id uuid.UUID, deletedAt time.Time) error {
	return r.s.read(func(d *storeData) error {
		v, ok := d.models[id]
		if !ok || v.DeletedAt != nil {
			return notFound("model")
		}
		v.DeletedAt = &deletedAt
		d.models[id] = v
		return nil
	})
}

// BillingEventRepo обработанные вебхуки
type BillingEventRepo struct{ s *Store }

func (s *Store) BillingEvents() repository.IBillingEventRepo { return &BillingEventRepo{s: s} }

func (r *BillingEventRepo) MarkProcessedTx(_ context.Context, tx persistence.Transaction, eventID string, eventType string) (first bool, err error) {
	err = r.s.inTx(tx, func(d *storeData) error {
		if _, ok := d.billingEvents[eventID]; ok {
			return nil
		}
		d.billingEvents[eventID] = eventType
		first = true
		return nil
	})
	return first, err
}
