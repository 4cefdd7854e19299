package scheduling

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/smartwake/internal/adaptive"
	"github.com/desertthunder/smartwake/internal/models"
	"github.com/desertthunder/smartwake/internal/repositories"
	"github.com/desertthunder/smartwake/internal/shared"
	tu "github.com/desertthunder/smartwake/internal/testing"
)

// Monday 2 March 2026, 06:00 UTC.
var monday = time.Date(2026, time.March, 2, 6, 0, 0, 0, time.UTC)

type fakeHolidays map[string]bool

func (h fakeHolidays) IsHoliday(t time.Time) bool { return h[t.Format(models.DateLayout)] }

type fakeSleep struct{ rec *models.SleepRecommendation }

func (f fakeSleep) Recommend(context.Context, *models.Alarm) (*models.SleepRecommendation, error) {
	return f.rec, nil
}

type harness struct {
	o        *Orchestrator
	clock    *tu.Clock
	notifier *tu.FakeNotifier
	loader   *tu.FakeLoader
	store    *repositories.AlarmRepository
	settings *repositories.SettingsRepository
	ids      *repositories.NotificationIDRepository
	history  *repositories.AdaptationRepository
	holidays fakeHolidays
}

func newHarness(t *testing.T, configure ...func(*Opts)) *harness {
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

	h := &harness{
		clock:    tu.NewClock(monday),
		notifier: tu.NewFakeNotifier(),
		loader:   &tu.FakeLoader{},
		store:    repositories.NewAlarmRepository(db),
		settings: repositories.NewSettingsRepository(db),
		ids:      repositories.NewNotificationIDRepository(db),
		history:  repositories.NewAdaptationRepository(db),
		holidays: fakeHolidays{},
	}
	opts := Opts{
		Store:    h.store,
		Settings: h.settings,
		IDs:      h.ids,
		Notifier: h.notifier,
		Loader:   h.loader,
		History:  h.history,
		Holidays: h.holidays,
		Location: time.UTC,
		Now:      h.clock.Now,
	}
	for _, fn := range configure {
		fn(&opts)
	}
	h.o, err = New(context.Background(), opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return h
}

func (h *harness) reopen(t *testing.T) *Orchestrator {
	t.Helper()
	o, err := New(context.Background(), Opts{
		Store:    h.store,
		Settings: h.settings,
		IDs:      h.ids,
		Notifier: h.notifier,
		Location: time.UTC,
		Now:      h.clock.Now,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return o
}

func dailyAlarm(label, hhmm string) *models.Alarm {
	return &models.Alarm{
		Label:      label,
		Time:       hhmm,
		Enabled:    true,
		Recurrence: &models.RecurrencePattern{Type: models.RecurrenceDaily, Interval: 1},
	}
}

func pendingTimes(n *tu.FakeNotifier) []time.Time {
	var out []time.Time
	for _, s := range n.Pending() {
		out = append(out, s.At)
	}
	return out
}

func TestNew(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		name string
		opts Opts
	}{
		{name: "missing store", opts: Opts{Settings: h.settings, IDs: h.ids, Notifier: h.notifier}},
		{name: "missing settings", opts: Opts{Store: h.store, IDs: h.ids, Notifier: h.notifier}},
		{name: "missing allocator", opts: Opts{Store: h.store, Settings: h.settings, Notifier: h.notifier}},
		{name: "missing notifier", opts: Opts{Store: h.store, Settings: h.settings, IDs: h.ids}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(context.Background(), tt.opts); !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("New() error = %v, want ErrInvalidConfig", err)
			}
		})
	}

	t.Run("defaults", func(t *testing.T) {
		if got := h.o.Config(); got.Scheduling.OccurrenceSlots != MaxOccurrenceSlots {
			t.Errorf("OccurrenceSlots = %d, want %d", got.Scheduling.OccurrenceSlots, MaxOccurrenceSlots)
		}
		if h.o.Location() != time.UTC {
			t.Errorf("Location() = %v, want UTC", h.o.Location())
		}
	})
}

func TestCreateAlarm(t *testing.T) {
	ctx := context.Background()

	t.Run("schedules next occurrences", func(t *testing.T) {
		h := newHarness(t)
		a, err := h.o.CreateAlarm(ctx, dailyAlarm("Wake", "07:00"))
		if err != nil {
			t.Fatalf("CreateAlarm() error = %v", err)
		}
		if a.ID == "" {
			t.Fatal("expected generated ID")
		}

		want := []time.Time{
			time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 3, 7, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 4, 7, 0, 0, 0, time.UTC),
		}
		if got := pendingTimes(h.notifier); !slices.EqualFunc(got, want, time.Time.Equal) {
			t.Errorf("pending = %v, want %v", got, want)
		}
		if p := h.notifier.Pending()[0]; p.Title != "Wake" || p.Body != "Alarm for Mon 07:00" {
			t.Errorf("notification = %+v", p)
		}
		if len(h.o.Assets().AssetsFor(a.ID)) == 0 {
			t.Error("expected tracked assets for the new alarm")
		}
		if s := h.o.Stats(); s.NotificationsScheduled != 3 {
			t.Errorf("NotificationsScheduled = %d, want 3", s.NotificationsScheduled)
		}
	})

	t.Run("monitors adaptive alarms", func(t *testing.T) {
		h := newHarness(t)
		in := dailyAlarm("Wake", "07:00")
		in.RealTimeAdaptation = true
		a, err := h.o.CreateAlarm(ctx, in)
		if err != nil {
			t.Fatalf("CreateAlarm() error = %v", err)
		}
		if !h.o.Adaptive().IsMonitoring(a.ID) {
			t.Error("expected alarm to be monitored")
		}
	})

	t.Run("does not mutate input", func(t *testing.T) {
		h := newHarness(t)
		in := dailyAlarm("Wake", "07:00")
		if _, err := h.o.CreateAlarm(ctx, in); err != nil {
			t.Fatalf("CreateAlarm() error = %v", err)
		}
		if in.ID != "" {
			t.Errorf("input ID = %q, want empty", in.ID)
		}
	})

	errTests := []struct {
		name  string
		alarm *models.Alarm
		want  error
	}{
		{name: "nil", alarm: nil, want: shared.ErrInvalidInput},
		{name: "bad time", alarm: dailyAlarm("Wake", "25:00"), want: shared.ErrInvalidTime},
		{name: "no label", alarm: dailyAlarm(" ", "07:00"), want: shared.ErrInvalidInput},
	}
	for _, tt := range errTests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if _, err := h.o.CreateAlarm(ctx, tt.alarm); !errors.Is(err, tt.want) {
				t.Errorf("CreateAlarm() error = %v, want %v", err, tt.want)
			}
			if n := len(h.notifier.Pending()); n != 0 {
				t.Errorf("pending = %d, want 0", n)
			}
		})
	}
}

func TestScheduleAdvancedAlarm(t *testing.T) {
	ctx := context.Background()

	t.Run("one-shot already passed", func(t *testing.T) {
		h := newHarness(t)
		a, err := h.o.CreateAlarm(ctx, &models.Alarm{Label: "Nap", Time: "05:00", Enabled: true})
		if err != nil {
			t.Fatalf("CreateAlarm() error = %v", err)
		}
		res, err := h.o.ScheduleAdvancedAlarm(ctx, a)
		if err != nil {
			t.Fatalf("ScheduleAdvancedAlarm() error = %v", err)
		}
		if res.Scheduled != 0 || len(h.notifier.Pending()) != 0 {
			t.Errorf("scheduled = %d, pending = %d, want none", res.Scheduled, len(h.notifier.Pending()))
		}
	})

	t.Run("skip weekends", func(t *testing.T) {
		h := newHarness(t)
		h.clock.Set(time.Date(2026, 3, 6, 6, 0, 0, 0, time.UTC))
		in := dailyAlarm("Work", "07:00")
		in.ConditionalRules = []models.ConditionalRule{{Type: models.SkipWeekends, Enabled: true}}
		a, err := h.o.CreateAlarm(ctx, in)
		if err != nil {
			t.Fatalf("CreateAlarm() error = %v", err)
		}

		res, err := h.o.ScheduleAdvancedAlarm(ctx, a)
		if err != nil {
			t.Fatalf("ScheduleAdvancedAlarm() error = %v", err)
		}
		if res.Scheduled != 1 || res.Skipped != 2 {
			t.Errorf("scheduled = %d, skipped = %d, want 1 and 2", res.Scheduled, res.Skipped)
		}
		for _, sr := range res.Slots[1:] {
			if sr.SkippedBy != string(models.SkipWeekends) {
				t.Errorf("slot %d SkippedBy = %q", sr.Slot, sr.SkippedBy)
			}
		}
		if got := h.o.Stats().SkippedByRule[string(models.SkipWeekends)]; got < 2 {
			t.Errorf("SkippedByRule[skip_weekends] = %d, want >= 2", got)
		}
	})

	t.Run("skip holidays and dates", func(t *testing.T) {
		h := newHarness(t)
		h.holidays["2026-03-03"] = true
		in := dailyAlarm("Work", "07:00")
		in.ConditionalRules = []models.ConditionalRule{
			{Type: models.SkipHolidays, Enabled: true},
			{Type: models.SkipDates, Enabled: true, Dates: []string{"2026-03-04"}},
		}
		a, err := h.o.CreateAlarm(ctx, in)
		if err != nil {
			t.Fatalf("CreateAlarm() error = %v", err)
		}

		res, err := h.o.ScheduleAdvancedAlarm(ctx, a)
		if err != nil {
			t.Fatalf("ScheduleAdvancedAlarm() error = %v", err)
		}
		got := []string{res.Slots[0].SkippedBy, res.Slots[1].SkippedBy, res.Slots[2].SkippedBy}
		want := []string{"", string(models.SkipHolidays), string(models.SkipDates)}
		if !slices.Equal(got, want) {
			t.Errorf("SkippedBy = %v, want %v", got, want)
		}
	})

	t.Run("disabled rules schedule every slot", func(t *testing.T) {
		h := newHarness(t)
		cfg := h.o.Config()
		cfg.Scheduling.ConditionalRules = false
		if err := h.o.UpdateConfig(ctx, cfg); err != nil {
			t.Fatalf("UpdateConfig() error = %v", err)
		}
		h.holidays["2026-03-03"] = true
		in := dailyAlarm("Work", "07:00")
		in.ConditionalRules = []models.ConditionalRule{{Type: models.SkipHolidays, Enabled: true}}
		if _, err := h.o.CreateAlarm(ctx, in); err != nil {
			t.Fatalf("CreateAlarm() error = %v", err)
		}
		if n := len(h.notifier.Pending()); n != 3 {
			t.Errorf("pending = %d, want 3", n)
		}
	})

	t.Run("smart optimizations in winter", func(t *testing.T) {
		h := newHarness(t)
		h.clock.Set(time.Date(2026, 1, 5, 6, 0, 0, 0, time.UTC))
		in := dailyAlarm("Dark", "07:00")
		in.SmartOptimizations = []models.Optimization{
			{Name: models.OptimizationGradualWakeup, Enabled: true},
			{Name: models.OptimizationSeasonal, Enabled: true},
		}
		a, err := h.o.CreateAlarm(ctx, in)
		if err != nil {
			t.Fatalf("CreateAlarm() error = %v", err)
		}

		res, err := h.o.ScheduleAdvancedAlarm(ctx, a)
		if err != nil {
			t.Fatalf("ScheduleAdvancedAlarm() error = %v", err)
		}
		first := res.Slots[0]
		if want := time.Date(2026, 1, 5, 6, 45, 0, 0, time.UTC); !first.NotifyAt.Equal(want) {
			t.Errorf("NotifyAt = %v, want %v", first.NotifyAt, want)
		}
		if !first.Occurrence.Equal(time.Date(2026, 1, 5, 7, 0, 0, 0, time.UTC)) {
			t.Errorf("Occurrence = %v, optimizations must not move it", first.Occurrence)
		}
		if len(first.Optimizations) != 2 {
			t.Errorf("Optimizations = %v, want both", first.Optimizations)
		}
	})

	t.Run("optimization never moves into the past", func(t *testing.T) {
		h := newHarness(t)
		h.clock.Set(time.Date(2026, 3, 2, 6, 58, 0, 0, time.UTC))
		in := dailyAlarm("Soon", "07:00")
		in.SmartOptimizations = []models.Optimization{{Name: models.OptimizationGradualWakeup, Enabled: true}}
		a, err := h.o.CreateAlarm(ctx, in)
		if err != nil {
			t.Fatalf("CreateAlarm() error = %v", err)
		}
		res, err := h.o.ScheduleAdvancedAlarm(ctx, a)
		if err != nil {
			t.Fatalf("ScheduleAdvancedAlarm() error = %v", err)
		}
		if !res.Slots[0].NotifyAt.Equal(res.Slots[0].Occurrence) {
			t.Errorf("NotifyAt = %v, want the occurrence", res.Slots[0].NotifyAt)
		}
		if want := res.Slots[1].Occurrence.Add(-5 * time.Minute); !res.Slots[1].NotifyAt.Equal(want) {
			t.Errorf("slot 1 NotifyAt = %v, want %v", res.Slots[1].NotifyAt, want)
		}
	})

	t.Run("stable notification ids", func(t *testing.T) {
		h := newHarness(t)
		a, err := h.o.CreateAlarm(ctx, dailyAlarm("Wake", "07:00"))
		if err != nil {
			t.Fatalf("CreateAlarm() error = %v", err)
		}
		first, _ := h.o.ScheduleAdvancedAlarm(ctx, a)
		second, _ := h.o.ScheduleAdvancedAlarm(ctx, a)
		for i := range first.Slots {
			if first.Slots[i].NotificationID != second.Slots[i].NotificationID {
				t.Errorf("slot %d id changed: %d -> %d", i, first.Slots[i].NotificationID, second.Slots[i].NotificationID)
			}
		}
		if n := len(h.notifier.Pending()); n != 3 {
			t.Errorf("pending = %d, want 3", n)
		}
	})

	t.Run("notifier failure is reported", func(t *testing.T) {
		h := newHarness(t)
		a, err := h.o.CreateAlarm(ctx, dailyAlarm("Wake", "07:00"))
		if err != nil {
			t.Fatalf("CreateAlarm() error = %v", err)
		}
		h.notifier.Err = shared.ErrServiceUnavailable
		if _, err := h.o.ScheduleAdvancedAlarm(ctx, a); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("ScheduleAdvancedAlarm() error = %v, want ErrServiceUnavailable", err)
		}
	})
}

func TestDeleteAlarm(t *testing.T) {
	ctx := context.Background()

	t.Run("tears everything down", func(t *testing.T) {
		h := newHarness(t)
		in := dailyAlarm("Wake", "07:00")
		in.RealTimeAdaptation = true
		a, err := h.o.CreateAlarm(ctx, in)
		if err != nil {
			t.Fatalf("CreateAlarm() error = %v", err)
		}
		if err := h.o.DeleteAlarm(ctx, a.ID); err != nil {
			t.Fatalf("DeleteAlarm() error = %v", err)
		}

		if n := len(h.notifier.Pending()); n != 0 {
			t.Errorf("pending = %d, want 0", n)
		}
		if n := len(h.o.Assets().AssetsFor(a.ID)); n != 0 {
			t.Errorf("tracked assets = %d, want 0", n)
		}
		if h.o.Adaptive().IsMonitoring(a.ID) {
			t.Error("alarm still monitored")
		}
		if _, err := h.o.Get(ctx, a.ID); !errors.Is(err, shared.ErrAlarmNotFound) {
			t.Errorf("Get() error = %v, want ErrAlarmNotFound", err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		h := newHarness(t)
		if err := h.o.DeleteAlarm(ctx, "missing"); !errors.Is(err, shared.ErrAlarmNotFound) {
			t.Errorf("DeleteAlarm() error = %v, want ErrAlarmNotFound", err)
		}
	})
}

func TestUpdateAlarm(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, err := h.o.CreateAlarm(ctx, dailyAlarm("Wake", "07:00"))
	if err != nil {
		t.Fatalf("CreateAlarm() error = %v", err)
	}

	changed := a.Clone()
	changed.Time = "08:15"
	changed.CreatedAt = time.Time{}
	updated, err := h.o.UpdateAlarm(ctx, changed)
	if err != nil {
		t.Fatalf("UpdateAlarm() error = %v", err)
	}
	if !updated.CreatedAt.Equal(a.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", updated.CreatedAt, a.CreatedAt)
	}
	if want := time.Date(2026, 3, 2, 8, 15, 0, 0, time.UTC); !pendingTimes(h.notifier)[0].Equal(want) {
		t.Errorf("first pending = %v, want %v", pendingTimes(h.notifier)[0], want)
	}
	if n := len(h.notifier.Pending()); n != 3 {
		t.Errorf("pending = %d, want 3", n)
	}

	if _, err := h.o.UpdateAlarm(ctx, &models.Alarm{Label: "x", Time: "07:00"}); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("UpdateAlarm() without id error = %v, want ErrInvalidInput", err)
	}
}

func TestSetEnabled(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	in := dailyAlarm("Wake", "07:00")
	in.RealTimeAdaptation = true
	a, err := h.o.CreateAlarm(ctx, in)
	if err != nil {
		t.Fatalf("CreateAlarm() error = %v", err)
	}

	if _, err := h.o.SetEnabled(ctx, a.ID, false); err != nil {
		t.Fatalf("SetEnabled(false) error = %v", err)
	}
	if n := len(h.notifier.Pending()); n != 0 {
		t.Errorf("pending after disable = %d, want 0", n)
	}
	if h.o.Adaptive().IsMonitoring(a.ID) {
		t.Error("disabled alarm still monitored")
	}
	if n := len(h.o.Assets().AssetsFor(a.ID)); n != 0 {
		t.Errorf("tracked assets after disable = %d, want 0", n)
	}

	if _, err := h.o.SetEnabled(ctx, a.ID, true); err != nil {
		t.Fatalf("SetEnabled(true) error = %v", err)
	}
	if n := len(h.notifier.Pending()); n != 3 {
		t.Errorf("pending after enable = %d, want 3", n)
	}
	if !h.o.Adaptive().IsMonitoring(a.ID) {
		t.Error("re-enabled alarm not monitored")
	}
}

func TestSnoozeAndDismiss(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, err := h.o.CreateAlarm(ctx, dailyAlarm("Wake", "07:00"))
	if err != nil {
		t.Fatalf("CreateAlarm() error = %v", err)
	}

	at, err := h.o.Snooze(ctx, a.ID, 0)
	if err != nil {
		t.Fatalf("Snooze() error = %v", err)
	}
	if want := monday.Add(9 * time.Minute); !at.Equal(want) {
		t.Errorf("Snooze() = %v, want %v", at, want)
	}
	pending := h.notifier.Pending()
	if len(pending) != 4 || pending[0].Body != "Snoozed 1 time(s)" {
		t.Fatalf("pending = %+v, want snooze first", pending)
	}

	if _, err := h.o.Snooze(ctx, a.ID, time.Minute); err != nil {
		t.Fatalf("Snooze() error = %v", err)
	}
	if n := len(h.notifier.Pending()); n != 4 {
		t.Errorf("second snooze should replace the first, pending = %d", n)
	}

	fb := &models.WakeFeedback{Difficulty: models.DifficultyHard}
	if err := h.o.Dismiss(ctx, a.ID, fb); err != nil {
		t.Fatalf("Dismiss() error = %v", err)
	}
	if n := len(h.notifier.Pending()); n != 3 {
		t.Errorf("pending after dismiss = %d, want 3", n)
	}

	got, err := h.o.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.SnoozeCount != 0 || got.LifetimeSnoozes != 2 {
		t.Errorf("SnoozeCount = %d, LifetimeSnoozes = %d, want 0 and 2", got.SnoozeCount, got.LifetimeSnoozes)
	}
	if len(got.WakeUpFeedback) != 1 || got.LastTriggered == nil {
		t.Errorf("feedback = %v, lastTriggered = %v", got.WakeUpFeedback, got.LastTriggered)
	}

	s := h.o.Stats()
	if s.Snoozes != 2 || s.Dismissals != 1 {
		t.Errorf("stats = %+v", s)
	}

	if err := h.o.Dismiss(ctx, a.ID, &models.WakeFeedback{Difficulty: "groggy"}); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("Dismiss() bad feedback error = %v, want ErrInvalidInput", err)
	}
	if _, err := h.o.Snooze(ctx, "missing", 0); !errors.Is(err, shared.ErrAlarmNotFound) {
		t.Errorf("Snooze() missing error = %v, want ErrAlarmNotFound", err)
	}
}

func TestRecordFeedback(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	cfg := h.o.Config()
	cfg.Scheduling.FeedbackHistory = 5
	if err := h.o.UpdateConfig(ctx, cfg); err != nil {
		t.Fatalf("UpdateConfig() error = %v", err)
	}
	a, err := h.o.CreateAlarm(ctx, dailyAlarm("Wake", "07:00"))
	if err != nil {
		t.Fatalf("CreateAlarm() error = %v", err)
	}

	for i := range 7 {
		fb := models.WakeFeedback{Difficulty: models.DifficultyNormal, Note: strings.Repeat("z", i+1)}
		if err := h.o.RecordFeedback(ctx, a.ID, fb); err != nil {
			t.Fatalf("RecordFeedback() error = %v", err)
		}
	}
	got, _ := h.o.Get(ctx, a.ID)
	if len(got.WakeUpFeedback) != 5 {
		t.Fatalf("feedback = %d entries, want 5", len(got.WakeUpFeedback))
	}
	if got.WakeUpFeedback[0].Note != "zzz" {
		t.Errorf("oldest kept note = %q, want zzz", got.WakeUpFeedback[0].Note)
	}
	if got.WakeUpFeedback[0].RecordedAt.IsZero() {
		t.Error("RecordedAt not stamped")
	}
}

func TestDuplicateAlarm(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	in := dailyAlarm("Wake", "07:00")
	in.LifetimeSnoozes = 4
	in.WakeUpFeedback = []models.WakeFeedback{{Difficulty: models.DifficultyEasy}}
	a, err := h.o.CreateAlarm(ctx, in)
	if err != nil {
		t.Fatalf("CreateAlarm() error = %v", err)
	}

	dup, err := h.o.DuplicateAlarm(ctx, a.ID)
	if err != nil {
		t.Fatalf("DuplicateAlarm() error = %v", err)
	}
	if dup.ID == a.ID || dup.Label != "Wake (Copy)" {
		t.Errorf("duplicate = %s %q", dup.ID, dup.Label)
	}
	if dup.LifetimeSnoozes != 0 || dup.WakeUpFeedback != nil {
		t.Errorf("duplicate kept state: snoozes=%d feedback=%v", dup.LifetimeSnoozes, dup.WakeUpFeedback)
	}
	if n := len(h.notifier.Pending()); n != 6 {
		t.Errorf("pending = %d, want 6", n)
	}
	if _, err := h.o.DuplicateAlarm(ctx, "missing"); !errors.Is(err, shared.ErrAlarmNotFound) {
		t.Errorf("DuplicateAlarm() missing error = %v, want ErrAlarmNotFound", err)
	}
}

func TestNextOccurrences(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, err := h.o.CreateAlarm(ctx, &models.Alarm{Label: "MWF", Time: "06:30", Days: []int{1, 3, 5}, Enabled: true})
	if err != nil {
		t.Fatalf("CreateAlarm() error = %v", err)
	}
	got, err := h.o.NextOccurrences(ctx, a.ID, 4)
	if err != nil {
		t.Fatalf("NextOccurrences() error = %v", err)
	}
	want := []time.Time{
		time.Date(2026, 3, 2, 6, 30, 0, 0, time.UTC),
		time.Date(2026, 3, 4, 6, 30, 0, 0, time.UTC),
		time.Date(2026, 3, 6, 6, 30, 0, 0, time.UTC),
		time.Date(2026, 3, 9, 6, 30, 0, 0, time.UTC),
	}
	if !slices.EqualFunc(got, want, time.Time.Equal) {
		t.Errorf("NextOccurrences() = %v, want %v", got, want)
	}
}

func TestApplyAdaptation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	a, err := h.o.CreateAlarm(ctx, dailyAlarm("Wake", "07:00"))
	if err != nil {
		t.Fatalf("CreateAlarm() error = %v", err)
	}

	d := adaptive.Decision{
		AlarmID: a.ID,
		Fusion:  adaptive.Fusion{AdjustmentMinutes: -13, Confidence: 0.8, Triggers: 1},
		Reasons: []string{"heavy traffic"},
		Notify:  true,
		At:      h.clock.Now(),
	}
	if err := h.o.ApplyAdaptation(ctx, d); err != nil {
		t.Fatalf("ApplyAdaptation() error = %v", err)
	}

	got, _ := h.o.Get(ctx, a.ID)
	if got.Time != "06:47" {
		t.Errorf("Time = %q, want 06:47", got.Time)
	}

	recs, err := h.history.List(ctx, a.ID, 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(recs) != 1 || recs[0].PreviousTime != "07:00" || recs[0].NewTime != "06:47" {
		t.Errorf("history = %+v", recs)
	}

	pending := h.notifier.Pending()
	if len(pending) != 4 {
		t.Fatalf("pending = %d, want 3 occurrences and a notice", len(pending))
	}
	if notice := pending[0]; notice.Title != "Wake adjusted" || !strings.Contains(notice.Body, "heavy traffic") {
		t.Errorf("notice = %+v", notice)
	}
	if want := time.Date(2026, 3, 2, 6, 47, 0, 0, time.UTC); !pending[1].At.Equal(want) {
		t.Errorf("first occurrence = %v, want %v", pending[1].At, want)
	}
	if s := h.o.Stats(); s.AdaptationsApplied != 1 {
		t.Errorf("AdaptationsApplied = %d, want 1", s.AdaptationsApplied)
	}
}

func TestCheckForAdaptationEndToEnd(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, func(o *Opts) {
		o.Sleep = fakeSleep{rec: &models.SleepRecommendation{RecommendedTime: "06:45", Confidence: 0.9}}
	})
	in := dailyAlarm("Wake", "07:00")
	in.RealTimeAdaptation = true
	a, err := h.o.CreateAlarm(ctx, in)
	if err != nil {
		t.Fatalf("CreateAlarm() error = %v", err)
	}

	d, err := h.o.Adaptive().CheckForAdaptation(ctx, a.ID)
	if err != nil {
		t.Fatalf("CheckForAdaptation() error = %v", err)
	}
	if !d.Committed() {
		t.Fatalf("Outcome = %v, want committed", d.Outcome)
	}
	got, _ := h.o.Get(ctx, a.ID)
	if got.Time != "06:45" {
		t.Errorf("Time = %q, want 06:45", got.Time)
	}

	h.clock.Advance(10 * time.Minute)
	d, err = h.o.Adaptive().CheckForAdaptation(ctx, a.ID)
	if err != nil {
		t.Fatalf("CheckForAdaptation() error = %v", err)
	}
	if d.Committed() {
		t.Error("second check inside the adaptation interval committed")
	}
}

func TestUpdateConfig(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	cfg := h.o.Config()
	cfg.Scheduling.OccurrenceSlots = 0
	if err := h.o.UpdateConfig(ctx, cfg); !errors.Is(err, shared.ErrInvalidConfig) {
		t.Errorf("UpdateConfig() error = %v, want ErrInvalidConfig", err)
	}

	cfg.Scheduling.OccurrenceSlots = 2
	cfg.Adaptation.MaxDailyAdaptations = 1
	if err := h.o.UpdateConfig(ctx, cfg); err != nil {
		t.Fatalf("UpdateConfig() error = %v", err)
	}
	if got := h.o.Adaptive().Config().MaxDailyAdaptations; got != 1 {
		t.Errorf("adaptive MaxDailyAdaptations = %d, want 1", got)
	}
	if _, err := h.o.CreateAlarm(ctx, dailyAlarm("Wake", "07:00")); err != nil {
		t.Fatalf("CreateAlarm() error = %v", err)
	}
	if n := len(h.notifier.Pending()); n != 2 {
		t.Errorf("pending = %d, want 2", n)
	}

	reopened := h.reopen(t)
	if got := reopened.Config().Scheduling.OccurrenceSlots; got != 2 {
		t.Errorf("persisted OccurrenceSlots = %d, want 2", got)
	}
	if got := reopened.Stats().NotificationsScheduled; got != 2 {
		t.Errorf("persisted NotificationsScheduled = %d, want 2", got)
	}
}

func TestUpdateConfigReschedules(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	if _, err := h.o.CreateAlarm(ctx, dailyAlarm("Wake", "07:00")); err != nil {
		t.Fatalf("CreateAlarm() error = %v", err)
	}
	off := dailyAlarm("Off", "09:00")
	off.Enabled = false
	if _, err := h.o.CreateAlarm(ctx, off); err != nil {
		t.Fatalf("CreateAlarm() error = %v", err)
	}

	cfg := h.o.Config()
	cfg.Scheduling.OccurrenceSlots = 1
	if err := h.o.UpdateConfig(ctx, cfg); err != nil {
		t.Fatalf("UpdateConfig() error = %v", err)
	}
	if got := pendingTimes(h.notifier); len(got) != 1 || !got[0].Equal(monday.Add(time.Hour)) {
		t.Errorf("pending = %v, want only the next occurrence", got)
	}

	cfg.Scheduling.SnoozeDuration = time.Minute
	before := len(h.notifier.Cancelled())
	if err := h.o.UpdateConfig(ctx, cfg); err != nil {
		t.Fatalf("UpdateConfig() error = %v", err)
	}
	if after := len(h.notifier.Cancelled()); after != before {
		t.Errorf("snooze change cancelled %d notifications, want none", after-before)
	}
}
