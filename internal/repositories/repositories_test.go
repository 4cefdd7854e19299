package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/smartwake/internal/models"
	"github.com/desertthunder/smartwake/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func testAlarm(label, hhmm string) *models.Alarm {
	a := models.NewAlarm(label, hhmm)
	a.Recurrence = &models.RecurrencePattern{Type: models.RecurrenceWeekly, DaysOfWeek: []int{1, 3, 5}}
	a.ConditionBasedAdjustments = []models.ConditionRule{
		{ID: "rain", Field: "weather.condition", Operator: models.OpEquals, Value: "rain", AdjustmentMinutes: -10, Priority: 5, Effectiveness: 0.8, Enabled: true},
	}
	return a
}

func TestAlarmRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create", func(t *testing.T) {
		repo := NewAlarmRepository(setupTestDB(t))
		alarm := testAlarm("Work", "06:30")

		if err := repo.Create(ctx, alarm); err != nil {
			t.Fatalf("failed to create alarm: %v", err)
		}
		if alarm.ID == "" {
			t.Error("alarm ID should be set after creation")
		}
	})

	t.Run("Get", func(t *testing.T) {
		repo := NewAlarmRepository(setupTestDB(t))
		alarm := testAlarm("Work", "06:30")
		if err := repo.Create(ctx, alarm); err != nil {
			t.Fatalf("failed to create alarm: %v", err)
		}

		got, err := repo.Get(ctx, alarm.ID)
		if err != nil {
			t.Fatalf("failed to get alarm: %v", err)
		}
		if got.Label != "Work" || got.Time != "06:30" {
			t.Errorf("unexpected alarm: %+v", got)
		}
		if got.Recurrence == nil || len(got.Recurrence.DaysOfWeek) != 3 {
			t.Errorf("recurrence not persisted: %+v", got.Recurrence)
		}
		if len(got.ConditionBasedAdjustments) != 1 || got.ConditionBasedAdjustments[0].Effectiveness != 0.8 {
			t.Errorf("condition rules not persisted: %+v", got.ConditionBasedAdjustments)
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo := NewAlarmRepository(setupTestDB(t))
		alarm := testAlarm("Work", "06:30")
		if err := repo.Create(ctx, alarm); err != nil {
			t.Fatalf("failed to create alarm: %v", err)
		}

		alarm.Time = "06:15"
		alarm.Enabled = false
		if err := repo.Update(ctx, alarm); err != nil {
			t.Fatalf("failed to update alarm: %v", err)
		}

		got, _ := repo.Get(ctx, alarm.ID)
		if got.Time != "06:15" || got.Enabled {
			t.Errorf("update not persisted: %+v", got)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewAlarmRepository(setupTestDB(t))
		alarm := testAlarm("Work", "06:30")
		if err := repo.Create(ctx, alarm); err != nil {
			t.Fatalf("failed to create alarm: %v", err)
		}

		if err := repo.Delete(ctx, alarm.ID); err != nil {
			t.Fatalf("failed to delete alarm: %v", err)
		}
		if _, err := repo.Get(ctx, alarm.ID); !errors.Is(err, shared.ErrAlarmNotFound) {
			t.Errorf("expected ErrAlarmNotFound after delete, got %v", err)
		}
		if err := repo.Delete(ctx, alarm.ID); !errors.Is(err, shared.ErrAlarmNotFound) {
			t.Errorf("expected ErrAlarmNotFound on second delete, got %v", err)
		}
	})

	t.Run("RecreateDeletedID", func(t *testing.T) {
		repo := NewAlarmRepository(setupTestDB(t))
		alarm := testAlarm("Work", "06:30")
		alarm.ID = "fixed-id"
		if err := repo.Create(ctx, alarm); err != nil {
			t.Fatalf("failed to create alarm: %v", err)
		}
		if err := repo.Delete(ctx, "fixed-id"); err != nil {
			t.Fatalf("failed to delete alarm: %v", err)
		}

		again := testAlarm("Gym", "05:00")
		again.ID = "fixed-id"
		if err := repo.Create(ctx, again); err != nil {
			t.Fatalf("failed to recreate alarm: %v", err)
		}
		got, err := repo.Get(ctx, "fixed-id")
		if err != nil || got.Label != "Gym" {
			t.Errorf("expected recreated alarm, got %+v, %v", got, err)
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewAlarmRepository(setupTestDB(t))
		base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		for i, label := range []string{"First", "Second", "Third"} {
			a := testAlarm(label, "07:00")
			a.CreatedAt = base.Add(time.Duration(i) * time.Hour)
			a.UserID = "u1"
			a.Enabled = i != 1
			if err := repo.Create(ctx, a); err != nil {
				t.Fatalf("failed to create alarm: %v", err)
			}
		}

		all, err := repo.LoadAll(ctx)
		if err != nil {
			t.Fatalf("failed to load alarms: %v", err)
		}
		if len(all) != 3 || all[0].Label != "First" || all[2].Label != "Third" {
			t.Errorf("unexpected order: %v", labels(all))
		}

		enabled, err := repo.List(ctx, map[string]any{"enabled": true, "user_id": "u1"})
		if err != nil {
			t.Fatalf("failed to list alarms: %v", err)
		}
		if len(enabled) != 2 {
			t.Errorf("expected 2 enabled alarms, got %d", len(enabled))
		}
	})
}

func TestAlarmRepositoryErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("Create", func(t *testing.T) {
		t.Run("ValidationError", func(t *testing.T) {
			repo := NewAlarmRepository(setupTestDB(t))
			if err := repo.Create(ctx, models.NewAlarm("Work", "25:00")); !errors.Is(err, shared.ErrInvalidTime) {
				t.Errorf("expected ErrInvalidTime, got %v", err)
			}
		})

		t.Run("DuplicateID", func(t *testing.T) {
			repo := NewAlarmRepository(setupTestDB(t))
			a := testAlarm("Work", "06:30")
			a.ID = "dup"
			if err := repo.Create(ctx, a); err != nil {
				t.Fatalf("failed to create alarm: %v", err)
			}
			b := testAlarm("Other", "07:30")
			b.ID = "dup"
			if err := repo.Create(ctx, b); !errors.Is(err, shared.ErrDuplicateAlarm) {
				t.Errorf("expected ErrDuplicateAlarm, got %v", err)
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			repo := NewAlarmRepository(setupTestDB(t))
			if _, err := repo.Get(ctx, "nonexistent-id"); !errors.Is(err, shared.ErrAlarmNotFound) {
				t.Errorf("expected ErrAlarmNotFound, got %v", err)
			}
		})
	})

	t.Run("Update", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			repo := NewAlarmRepository(setupTestDB(t))
			a := testAlarm("Work", "06:30")
			a.ID = "nonexistent-id"
			if err := repo.Update(ctx, a); !errors.Is(err, shared.ErrAlarmNotFound) {
				t.Errorf("expected ErrAlarmNotFound, got %v", err)
			}
		})

		t.Run("Invalid", func(t *testing.T) {
			repo := NewAlarmRepository(setupTestDB(t))
			a := testAlarm("Work", "06:30")
			if err := repo.Create(ctx, a); err != nil {
				t.Fatalf("failed to create alarm: %v", err)
			}
			a.Recurrence = &models.RecurrencePattern{Type: models.RecurrenceWeekly}
			if err := repo.Update(ctx, a); !errors.Is(err, shared.ErrInvalidRecurrence) {
				t.Errorf("expected ErrInvalidRecurrence, got %v", err)
			}
		})
	})
}

func labels(alarms []*models.Alarm) []string {
	out := make([]string, len(alarms))
	for i, a := range alarms {
		out[i] = a.Label
	}
	return out
}

func TestSettingsRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSettingsRepository(setupTestDB(t))

	if _, ok, err := repo.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}

	if err := repo.Set(ctx, "strategy", `{"batchSize":3}`); err != nil {
		t.Fatalf("failed to set: %v", err)
	}
	if err := repo.Set(ctx, "strategy", `{"batchSize":5}`); err != nil {
		t.Fatalf("failed to overwrite: %v", err)
	}
	if err := repo.Set(ctx, "adaptive", `{}`); err != nil {
		t.Fatalf("failed to set: %v", err)
	}

	v, ok, err := repo.Get(ctx, "strategy")
	if err != nil || !ok || v != `{"batchSize":5}` {
		t.Errorf("Get() = %q, %v, %v", v, ok, err)
	}

	all, err := repo.All(ctx)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 settings, got %d", len(all))
	}
}

func TestNotificationIDRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewNotificationIDRepository(setupTestDB(t))

	a0, err := repo.Allocate(ctx, "alarm-123", 0)
	if err != nil {
		t.Fatalf("failed to allocate: %v", err)
	}
	again, _ := repo.Allocate(ctx, "alarm-123", 0)
	if again != a0 {
		t.Errorf("allocation should be stable: %d vs %d", a0, again)
	}

	// IDs whose digits would collide still get distinct notification IDs.
	b0, _ := repo.Allocate(ctx, "alarm-1-2-3", 0)
	a9, _ := repo.Allocate(ctx, "alarm-123", 9)
	if b0 == a0 || a9 == a0 || a9 == b0 {
		t.Errorf("expected distinct IDs, got %d %d %d", a0, b0, a9)
	}

	held, err := repo.Lookup(ctx, "alarm-123")
	if err != nil {
		t.Fatalf("failed to look up: %v", err)
	}
	if len(held) != 2 || held[0] != a0 || held[9] != a9 {
		t.Errorf("unexpected mapping: %v", held)
	}

	released, err := repo.Release(ctx, "alarm-123")
	if err != nil {
		t.Fatalf("failed to release: %v", err)
	}
	if len(released) != 2 {
		t.Errorf("expected 2 released IDs, got %v", released)
	}
	if held, _ := repo.Lookup(ctx, "alarm-123"); len(held) != 0 {
		t.Errorf("mapping should be empty after release: %v", held)
	}

	fresh, _ := repo.Allocate(ctx, "alarm-123", 0)
	if fresh == a0 {
		t.Error("released IDs must not be reused")
	}
}

func TestAdaptationRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewAdaptationRepository(setupTestDB(t))
	base := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)

	for i, at := range []time.Time{base.Add(-30 * time.Hour), base.Add(-2 * time.Hour), base} {
		rec := &AdaptationRecord{
			AlarmID:           "a1",
			PreviousTime:      "07:00",
			NewTime:           "06:45",
			AdjustmentMinutes: -15,
			Confidence:        0.8,
			Reasons:           []string{"sleep analysis"},
			AppliedAt:         at,
		}
		if i == 1 {
			rec.Reasons = nil
		}
		if err := repo.Record(ctx, rec); err != nil {
			t.Fatalf("failed to record: %v", err)
		}
		if rec.ID == 0 {
			t.Error("expected record ID to be set")
		}
	}
	if err := repo.Record(ctx, &AdaptationRecord{AlarmID: "a2", PreviousTime: "08:00", NewTime: "08:10", AppliedAt: base}); err != nil {
		t.Fatalf("failed to record: %v", err)
	}

	since, err := repo.CommitsSince(ctx, "a1", base.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("failed to query commits: %v", err)
	}
	if len(since) != 2 || !since[0].Equal(base.Add(-2*time.Hour)) || !since[1].Equal(base) {
		t.Errorf("unexpected commits: %v", since)
	}

	recent, err := repo.List(ctx, "a1", 2)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(recent) != 2 || !recent[0].AppliedAt.Equal(base) {
		t.Errorf("unexpected history: %+v", recent)
	}
	if recent[1].Reasons == nil || len(recent[1].Reasons) != 0 {
		t.Errorf("nil reasons should round-trip as empty: %#v", recent[1].Reasons)
	}

	all, _ := repo.List(ctx, "", 0)
	if len(all) != 4 {
		t.Errorf("expected 4 records, got %d", len(all))
	}

	if err := repo.DeleteForAlarm(ctx, "a1"); err != nil {
		t.Fatalf("failed to delete history: %v", err)
	}
	if rest, _ := repo.List(ctx, "", 0); len(rest) != 1 {
		t.Errorf("expected only a2 to remain, got %d", len(rest))
	}
}
