package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/desertthunder/smartwake/internal/models"
	"github.com/desertthunder/smartwake/internal/shared"
)

// AlarmStore is the persistence contract shared by the SQLite, Redis and fallback stores.
type AlarmStore interface {
	LoadAll(ctx context.Context) ([]*models.Alarm, error)
	Get(ctx context.Context, id string) (*models.Alarm, error)
	Create(ctx context.Context, alarm *models.Alarm) error
	Update(ctx context.Context, alarm *models.Alarm) error
	Delete(ctx context.Context, id string) error
}

// NewRedisClient creates a client from the [redis] config section.
func NewRedisClient(cfg shared.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// RedisAlarmStore keeps alarms as JSON strings under "<prefix>:alarm:<id>" with a set
// "<prefix>:alarms" indexing live IDs. Connection failures are reported as
// [shared.ErrStoreUnavailable] so callers can fall back to the local store.
type RedisAlarmStore struct {
	c      *redis.Client
	prefix string
}

func NewRedisAlarmStore(c *redis.Client, prefix string) *RedisAlarmStore {
	if prefix == "" {
		prefix = "smartwake"
	}
	return &RedisAlarmStore{c: c, prefix: prefix}
}

// Ping checks connectivity.
func (s *RedisAlarmStore) Ping(ctx context.Context) error {
	if err := s.c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisAlarmStore) key(id string) string { return s.prefix + ":alarm:" + id }

func (s *RedisAlarmStore) indexKey() string { return s.prefix + ":alarms" }

// LoadAll returns every indexed alarm ordered by creation time. Index entries whose
// document is missing are skipped.
func (s *RedisAlarmStore) LoadAll(ctx context.Context) ([]*models.Alarm, error) {
	ids, err := s.c.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	values, err := s.c.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable(err)
	}

	alarms := make([]*models.Alarm, 0, len(values))
	for _, v := range values {
		doc, ok := v.(string)
		if !ok {
			continue
		}
		alarm, err := decodeAlarm(doc)
		if err != nil {
			return nil, err
		}
		alarms = append(alarms, alarm)
	}
	sortAlarms(alarms)
	return alarms, nil
}

func (s *RedisAlarmStore) Get(ctx context.Context, id string) (*models.Alarm, error) {
	doc, err := s.c.Get(ctx, s.key(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("%w: %s", shared.ErrAlarmNotFound, id)
		}
		return nil, unavailable(err)
	}
	return decodeAlarm(doc)
}

// Create stores a new alarm; an existing ID is [shared.ErrDuplicateAlarm].
func (s *RedisAlarmStore) Create(ctx context.Context, alarm *models.Alarm) error {
	if alarm.ID == "" {
		alarm.ID = shared.GenerateID()
	}
	if err := alarm.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	now := time.Now()
	if alarm.CreatedAt.IsZero() {
		alarm.CreatedAt = now
	}
	alarm.UpdatedAt = now

	doc, err := json.Marshal(alarm)
	if err != nil {
		return fmt.Errorf("failed to encode alarm: %w", err)
	}

	ok, err := s.c.SetNX(ctx, s.key(alarm.ID), doc, 0).Result()
	if err != nil {
		return unavailable(err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrDuplicateAlarm, alarm.ID)
	}
	if err := s.c.SAdd(ctx, s.indexKey(), alarm.ID).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// Update replaces an existing alarm.
func (s *RedisAlarmStore) Update(ctx context.Context, alarm *models.Alarm) error {
	if err := alarm.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	alarm.UpdatedAt = time.Now()

	doc, err := json.Marshal(alarm)
	if err != nil {
		return fmt.Errorf("failed to encode alarm: %w", err)
	}

	ok, err := s.c.SetXX(ctx, s.key(alarm.ID), doc, 0).Result()
	if err != nil {
		return unavailable(err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrAlarmNotFound, alarm.ID)
	}
	return nil
}

func (s *RedisAlarmStore) Delete(ctx context.Context, id string) error {
	pipe := s.c.TxPipeline()
	del := pipe.Del(ctx, s.key(id))
	pipe.SRem(ctx, s.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return unavailable(err)
	}
	if del.Val() == 0 {
		return fmt.Errorf("%w: %s", shared.ErrAlarmNotFound, id)
	}
	return nil
}

func unavailable(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, err)
}
