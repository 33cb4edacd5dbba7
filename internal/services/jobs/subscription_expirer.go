package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/admin/ai-studio/internal/ports/repository"
)

const subscriptionExpirerName = "subscription-expirer"

// SubscriptionExpirer переводит на free пользователей, у которых закончился
// оплаченный период отменённой или просроченной подписки
type SubscriptionExpirer struct {
	userRepo repository.IUserRepo
	schedule cronSchedule
	now      func() time.Time
	log      *slog.Logger
}

func NewSubscriptionExpirer(userRepo repository.IUserRepo, cronExpr string, location *time.Location, log *slog.Logger) (*SubscriptionExpirer, error) {
	schedule, err := newCronSchedule(cronExpr, location)
	if err != nil {
		return nil, err
	}
	return &SubscriptionExpirer{
		userRepo: userRepo,
		schedule: schedule,
		now:      time.Now,
		log:      log,
	}, nil
}

func (j *SubscriptionExpirer) Name() string {
	return subscriptionExpirerName
}

func (j *SubscriptionExpirer) NextRun(now time.Time) time.Time {
	return j.schedule.next(now)
}

func (j *SubscriptionExpirer) Run(ctx context.Context) error {
	n, err := j.userRepo.ExpireSubscriptions(ctx, j.now())
	if err != nil {
		return fmt.Errorf("failed to expire subscriptions: %w", err)
	}
	j.log.Info("subscriptions expired", "count", n)
	return nil
}
