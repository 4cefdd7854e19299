package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/desertthunder/smartwake/internal/shared"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisAlarmStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewRedisAlarmStore(client, "test")
}

func TestRedisAlarmStore(t *testing.T) {
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		mr, store := setupTestRedis(t)
		alarm := testAlarm("Work", "06:30")
		if err := store.Create(ctx, alarm); err != nil {
			t.Fatalf("failed to create alarm: %v", err)
		}

		if !mr.Exists("test:alarm:" + alarm.ID) {
			t.Error("expected alarm key to exist")
		}
		if ok, _ := mr.SIsMember("test:alarms", alarm.ID); !ok {
			t.Error("expected alarm to be indexed")
		}

		got, err := store.Get(ctx, alarm.ID)
		if err != nil {
			t.Fatalf("failed to get alarm: %v", err)
		}
		if got.Label != "Work" || got.Recurrence == nil {
			t.Errorf("unexpected alarm: %+v", got)
		}
	})

	t.Run("Duplicate", func(t *testing.T) {
		_, store := setupTestRedis(t)
		a := testAlarm("Work", "06:30")
		a.ID = "same"
		if err := store.Create(ctx, a); err != nil {
			t.Fatalf("failed to create alarm: %v", err)
		}
		b := testAlarm("Gym", "05:30")
		b.ID = "same"
		if err := store.Create(ctx, b); !errors.Is(err, shared.ErrDuplicateAlarm) {
			t.Errorf("expected ErrDuplicateAlarm, got %v", err)
		}
	})

	t.Run("UpdateAndDelete", func(t *testing.T) {
		_, store := setupTestRedis(t)
		alarm := testAlarm("Work", "06:30")
		if err := store.Create(ctx, alarm); err != nil {
			t.Fatalf("failed to create alarm: %v", err)
		}

		alarm.Time = "06:00"
		if err := store.Update(ctx, alarm); err != nil {
			t.Fatalf("failed to update alarm: %v", err)
		}
		got, _ := store.Get(ctx, alarm.ID)
		if got.Time != "06:00" {
			t.Errorf("update not persisted: %s", got.Time)
		}

		if err := store.Delete(ctx, alarm.ID); err != nil {
			t.Fatalf("failed to delete alarm: %v", err)
		}
		if _, err := store.Get(ctx, alarm.ID); !errors.Is(err, shared.ErrAlarmNotFound) {
			t.Errorf("expected ErrAlarmNotFound, got %v", err)
		}
		if err := store.Delete(ctx, alarm.ID); !errors.Is(err, shared.ErrAlarmNotFound) {
			t.Errorf("expected ErrAlarmNotFound on second delete, got %v", err)
		}
		if err := store.Update(ctx, alarm); !errors.Is(err, shared.ErrAlarmNotFound) {
			t.Errorf("expected ErrAlarmNotFound on update, got %v", err)
		}
	})

	t.Run("LoadAll", func(t *testing.T) {
		mr, store := setupTestRedis(t)
		base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		for i, label := range []string{"B", "A", "C"} {
			a := testAlarm(label, "07:00")
			a.CreatedAt = base.Add(time.Duration(i) * time.Minute)
			if err := store.Create(ctx, a); err != nil {
				t.Fatalf("failed to create alarm: %v", err)
			}
		}
		// dangling index entry
		if _, err := mr.SAdd("test:alarms", "ghost"); err != nil {
			t.Fatal(err)
		}

		all, err := store.LoadAll(ctx)
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if got := labels(all); len(got) != 3 || got[0] != "B" || got[1] != "A" || got[2] != "C" {
			t.Errorf("unexpected alarms: %v", got)
		}
	})

	t.Run("Unavailable", func(t *testing.T) {
		mr, store := setupTestRedis(t)
		mr.SetError("ERR store offline")

		if _, err := store.LoadAll(ctx); !errors.Is(err, shared.ErrStoreUnavailable) {
			t.Errorf("expected ErrStoreUnavailable, got %v", err)
		}
		if err := store.Ping(ctx); !errors.Is(err, shared.ErrStoreUnavailable) {
			t.Errorf("expected ErrStoreUnavailable from ping, got %v", err)
		}
	})
}

func TestFallbackStore(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*miniredis.Miniredis, *RedisAlarmStore, *AlarmRepository, *FallbackStore) {
		mr, remote := setupTestRedis(t)
		local := NewAlarmRepository(setupTestDB(t))
		return mr, remote, local, NewFallbackStore(remote, local, nil)
	}

	t.Run("WritesReachBothStores", func(t *testing.T) {
		_, remote, local, store := setup(t)
		alarm := testAlarm("Work", "06:30")
		if err := store.Create(ctx, alarm); err != nil {
			t.Fatalf("failed to create: %v", err)
		}
		if _, err := remote.Get(ctx, alarm.ID); err != nil {
			t.Errorf("remote missing alarm: %v", err)
		}
		if _, err := local.Get(ctx, alarm.ID); err != nil {
			t.Errorf("local missing alarm: %v", err)
		}
		if store.Dirty() {
			t.Error("store should not be dirty")
		}
	})

	t.Run("OutageFallsBackToLocal", func(t *testing.T) {
		mr, remote, _, store := setup(t)
		first := testAlarm("Work", "06:30")
		if err := store.Create(ctx, first); err != nil {
			t.Fatalf("failed to create: %v", err)
		}

		mr.SetError("ERR store offline")
		second := testAlarm("Gym", "05:30")
		if err := store.Create(ctx, second); err != nil {
			t.Fatalf("create during outage should succeed locally: %v", err)
		}
		if !store.Dirty() {
			t.Fatal("store should be dirty after a failed remote write")
		}

		all, err := store.LoadAll(ctx)
		if err != nil {
			t.Fatalf("failed to load during outage: %v", err)
		}
		if len(all) != 2 {
			t.Errorf("expected 2 local alarms, got %d", len(all))
		}
		if _, err := store.Get(ctx, second.ID); err != nil {
			t.Errorf("get during outage: %v", err)
		}

		mr.SetError("")
		if err := store.Sync(ctx); err != nil {
			t.Fatalf("sync failed: %v", err)
		}
		if store.Dirty() {
			t.Error("sync should clear dirty flag")
		}
		if _, err := remote.Get(ctx, second.ID); err != nil {
			t.Errorf("remote should have the alarm after sync: %v", err)
		}
	})

	t.Run("LoadAllRefreshesLocal", func(t *testing.T) {
		_, remote, local, store := setup(t)
		stale := testAlarm("Stale", "09:00")
		if err := local.Create(ctx, stale); err != nil {
			t.Fatalf("failed to seed local: %v", err)
		}
		fresh := testAlarm("Fresh", "08:00")
		if err := remote.Create(ctx, fresh); err != nil {
			t.Fatalf("failed to seed remote: %v", err)
		}

		all, err := store.LoadAll(ctx)
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if len(all) != 1 || all[0].Label != "Fresh" {
			t.Errorf("unexpected alarms: %v", labels(all))
		}

		cached, _ := local.LoadAll(ctx)
		if got := labels(cached); len(got) != 1 || got[0] != "Fresh" {
			t.Errorf("local cache not refreshed: %v", got)
		}
	})

	t.Run("ValidationErrorsAreReturned", func(t *testing.T) {
		_, _, _, store := setup(t)
		if err := store.Create(ctx, testAlarm("", "06:30")); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if store.Dirty() {
			t.Error("a rejected write must not mark the store dirty")
		}
	})
}
