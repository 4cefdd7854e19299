package scheduling

import (
	"context"
	"time"

	"github.com/desertthunder/smartwake/internal/models"
	"github.com/desertthunder/smartwake/internal/repositories"
)

// NotificationScheduler is the platform notification primitive. Scheduling an ID that is
// already pending replaces it.
type NotificationScheduler interface {
	Schedule(ctx context.Context, id int, title, body string, at time.Time) error
	Cancel(ctx context.Context, id int) error
}

// AlarmStore persists the alarm collection. The orchestrator re-reads it after every
// mutation instead of caching alarms itself.
type AlarmStore interface {
	LoadAll(ctx context.Context) ([]*models.Alarm, error)
	Get(ctx context.Context, id string) (*models.Alarm, error)
	Create(ctx context.Context, alarm *models.Alarm) error
	Update(ctx context.Context, alarm *models.Alarm) error
	Delete(ctx context.Context, id string) error
}

// SettingsStore is a durable key-value store for configuration and statistics.
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// IDAllocator hands out collision-free notification IDs per (alarm, slot). Allocate
// returns the existing ID when the slot is already mapped.
type IDAllocator interface {
	Allocate(ctx context.Context, alarmID string, slot int) (int, error)
	Lookup(ctx context.Context, alarmID string) (map[int]int, error)
	Release(ctx context.Context, alarmID string) ([]int, error)
}

// AdaptationLog is the audit trail of committed adaptations.
type AdaptationLog interface {
	Record(ctx context.Context, rec *repositories.AdaptationRecord) error
	CommitsSince(ctx context.Context, alarmID string, since time.Time) ([]time.Time, error)
}

// HolidayChecker backs the skip_holidays rule.
type HolidayChecker interface {
	IsHoliday(t time.Time) bool
}
