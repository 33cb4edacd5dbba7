package jobs

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronSchedule NextRun по стандартному cron выражению (5 полей) в заданной таймзоне
type cronSchedule struct {
	schedule cron.Schedule
	location *time.Location
}

func newCronSchedule(expr string, location *time.Location) (cronSchedule, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return cronSchedule{}, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	if location == nil {
		location = time.UTC
	}
	return cronSchedule{schedule: schedule, location: location}, nil
}

func (c cronSchedule) next(now time.Time) time.Time {
	return c.schedule.Next(now.In(c.location))
}
