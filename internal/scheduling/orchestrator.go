package scheduling

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/smartwake/internal/adaptive"
	"github.com/desertthunder/smartwake/internal/assets"
	"github.com/desertthunder/smartwake/internal/metrics"
	"github.com/desertthunder/smartwake/internal/models"
	"github.com/desertthunder/smartwake/internal/recurrence"
	"github.com/desertthunder/smartwake/internal/repositories"
	"github.com/desertthunder/smartwake/internal/shared"
)

// Opts wires an [Orchestrator]. Store, Settings, IDs and Notifier are required.
type Opts struct {
	Store    AlarmStore
	Settings SettingsStore
	IDs      IDAllocator
	Notifier NotificationScheduler

	Loader        assets.AudioLoader
	SpeechBaseURL string
	Sleep         adaptive.SleepAnalyzer
	Conditions    adaptive.ConditionProvider
	History       AdaptationLog
	Holidays      HolidayChecker

	Location  *time.Location
	Intervals *Intervals
	Metrics   *metrics.Metrics
	Logger    *log.Logger
	Now       func() time.Time
}

// Orchestrator owns the alarm lifecycle. It turns recurrence output into platform
// notifications, keeps the asset coordinator's tracked set current and applies the
// adjustments the adaptive scheduler commits.
type Orchestrator struct {
	mu         sync.Mutex
	cfg        Config
	stats      Stats
	known      map[string]time.Time // alarm ID → UpdatedAt last scheduled
	lastDetect time.Time

	store     AlarmStore
	settings  SettingsStore
	ids       IDAllocator
	notifier  NotificationScheduler
	history   AdaptationLog
	holidays  HolidayChecker
	optimizer Optimizer

	assets   *assets.Coordinator
	adaptive *adaptive.Scheduler

	loc       *time.Location
	intervals Intervals
	metrics   *metrics.Metrics
	logger    *log.Logger
	now       func() time.Time
}

// New builds the orchestrator and the two engines it drives. Config and stats are read
// from the settings store once, here.
func New(ctx context.Context, opts Opts) (*Orchestrator, error) {
	switch {
	case opts.Store == nil:
		return nil, fmt.Errorf("%w: alarm store is required", shared.ErrInvalidConfig)
	case opts.Settings == nil:
		return nil, fmt.Errorf("%w: settings store is required", shared.ErrInvalidConfig)
	case opts.IDs == nil:
		return nil, fmt.Errorf("%w: notification ID allocator is required", shared.ErrInvalidConfig)
	case opts.Notifier == nil:
		return nil, fmt.Errorf("%w: notification scheduler is required", shared.ErrInvalidConfig)
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Intervals == nil {
		iv := DefaultIntervals()
		opts.Intervals = &iv
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	o := &Orchestrator{
		known:     make(map[string]time.Time),
		store:     opts.Store,
		settings:  opts.Settings,
		ids:       opts.IDs,
		notifier:  opts.Notifier,
		history:   opts.History,
		holidays:  opts.Holidays,
		loc:       opts.Location,
		intervals: *opts.Intervals,
		metrics:   opts.Metrics,
		logger:    shared.WithLogger(opts.Logger, "component", "orchestrator"),
		now:       opts.Now,
	}

	cfg, err := loadConfig(ctx, opts.Settings)
	if err != nil {
		o.logger.Warn("using default config", "err", err)
	}
	o.cfg = cfg
	if o.stats, err = loadStats(ctx, opts.Settings); err != nil {
		o.logger.Warn("could not restore stats", "err", err)
	}

	o.assets = assets.NewCoordinator(assets.CoordinatorOpts{
		Loader:        opts.Loader,
		Logger:        opts.Logger,
		Metrics:       opts.Metrics,
		Strategy:      &cfg.Preload,
		SpeechBaseURL: opts.SpeechBaseURL,
		Now:           opts.Now,
	})

	o.adaptive = adaptive.NewScheduler(adaptive.SchedulerOpts{
		Alarms:     o,
		Applier:    o,
		Sleep:      opts.Sleep,
		Conditions: opts.Conditions,
		History:    opts.History,
		Config:     &cfg.Adaptation,
		Logger:     opts.Logger,
		Metrics:    opts.Metrics,
		Now:        opts.Now,
	})
	return o, nil
}

// Assets exposes the coordinator for readiness queries.
func (o *Orchestrator) Assets() *assets.Coordinator { return o.assets }

// Adaptive exposes the adaptive scheduler for status queries.
func (o *Orchestrator) Adaptive() *adaptive.Scheduler { return o.adaptive }

// Location is the timezone alarm times are interpreted in.
func (o *Orchestrator) Location() *time.Location { return o.loc }

// Config returns the current runtime configuration.
func (o *Orchestrator) Config() Config {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cfg
}

// UpdateConfig validates, applies and persists cfg. Both engines pick it up on their
// next cycle.
func (o *Orchestrator) UpdateConfig(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := o.assets.UpdateStrategy(cfg.Preload); err != nil {
		return err
	}
	if err := o.adaptive.UpdateConfig(cfg.Adaptation); err != nil {
		return err
	}
	o.mu.Lock()
	prev := o.cfg.Scheduling
	o.cfg = cfg
	o.mu.Unlock()

	if err := saveJSON(ctx, o.settings, keyConfig, cfg); err != nil {
		return fmt.Errorf("failed to persist config: %w", err)
	}
	o.logger.Info("config updated", "slots", cfg.Scheduling.OccurrenceSlots)

	next := cfg.Scheduling
	if prev.OccurrenceSlots != next.OccurrenceSlots ||
		prev.SmartOptimizations != next.SmartOptimizations ||
		prev.ConditionalRules != next.ConditionalRules {
		o.rescheduleAll(ctx)
	}
	return nil
}

// rescheduleAll re-runs scheduling for every enabled alarm. Failures are logged and
// left for rediscovery.
func (o *Orchestrator) rescheduleAll(ctx context.Context) {
	alarms, err := o.store.LoadAll(ctx)
	if err != nil {
		o.logger.Warn("could not reload alarms for reschedule", "err", err)
		return
	}
	for _, a := range alarms {
		if !a.Enabled {
			continue
		}
		if _, err := o.ScheduleAdvancedAlarm(ctx, a); err != nil {
			o.logger.Warn("reschedule failed", "alarm", a.ID, "err", err)
		}
	}
}

// Get implements [adaptive.AlarmReader].
func (o *Orchestrator) Get(ctx context.Context, id string) (*models.Alarm, error) {
	return o.store.Get(ctx, id)
}

// List returns every alarm.
func (o *Orchestrator) List(ctx context.Context) ([]*models.Alarm, error) {
	return o.store.LoadAll(ctx)
}

// NextOccurrences returns up to count upcoming firing instants for the alarm.
func (o *Orchestrator) NextOccurrences(ctx context.Context, id string, count int) ([]time.Time, error) {
	alarm, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return recurrence.NextOccurrences(alarm, o.now().In(o.loc), count)
}

// CreateAlarm validates and stores a new alarm, then schedules it. An empty ID is
// generated.
func (o *Orchestrator) CreateAlarm(ctx context.Context, alarm *models.Alarm) (*models.Alarm, error) {
	a, err := o.create(ctx, alarm)
	if err != nil {
		return nil, err
	}
	o.refreshAssetsLogged(ctx)
	return a, nil
}

func (o *Orchestrator) create(ctx context.Context, alarm *models.Alarm) (*models.Alarm, error) {
	if alarm == nil {
		return nil, fmt.Errorf("%w: alarm is required", shared.ErrInvalidInput)
	}
	a := alarm.Clone()
	if a.ID == "" {
		a.ID = shared.GenerateID()
	}
	now := o.now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := o.store.Create(ctx, a); err != nil {
		return nil, err
	}
	o.logger.Info("alarm created", "alarm", a.ID, "label", a.Label, "time", a.Time)
	o.afterMutation(ctx, a)
	return a, nil
}

// UpdateAlarm replaces a stored alarm and reschedules it. CreatedAt is kept from the
// stored copy.
func (o *Orchestrator) UpdateAlarm(ctx context.Context, alarm *models.Alarm) (*models.Alarm, error) {
	a, err := o.update(ctx, alarm)
	if err != nil {
		return nil, err
	}
	o.refreshAssetsLogged(ctx)
	return a, nil
}

func (o *Orchestrator) update(ctx context.Context, alarm *models.Alarm) (*models.Alarm, error) {
	if alarm == nil || alarm.ID == "" {
		return nil, fmt.Errorf("%w: alarm id is required", shared.ErrInvalidInput)
	}
	existing, err := o.store.Get(ctx, alarm.ID)
	if err != nil {
		return nil, err
	}
	a := alarm.Clone()
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = o.now()
	// Re-enabling or retiming a spent one-shot arms it again.
	if recurrence.EffectivePattern(a) == nil && a.Enabled && (!existing.Enabled || existing.Time != a.Time) {
		a.LastTriggered = nil
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := o.store.Update(ctx, a); err != nil {
		return nil, err
	}
	o.afterMutation(ctx, a)
	return a, nil
}

// DeleteAlarm removes the alarm, cancels its notifications, stops monitoring it and
// releases its tracked assets before returning.
func (o *Orchestrator) DeleteAlarm(ctx context.Context, id string) error {
	if err := o.delete(ctx, id); err != nil {
		return err
	}
	o.refreshAssetsLogged(ctx)
	return nil
}

func (o *Orchestrator) delete(ctx context.Context, id string) error {
	if err := o.store.Delete(ctx, id); err != nil {
		return err
	}
	err := o.teardown(ctx, id)
	o.logger.Info("alarm deleted", "alarm", id)
	return err
}

// teardown drops everything the orchestrator holds for an alarm.
func (o *Orchestrator) teardown(ctx context.Context, id string) error {
	o.adaptive.StopMonitoring(id)
	o.assets.Release(id)
	o.mu.Lock()
	delete(o.known, id)
	o.mu.Unlock()
	return o.CancelAdvancedAlarm(ctx, id)
}

// DuplicateAlarm copies an alarm under a new ID with fresh scheduling state.
func (o *Orchestrator) DuplicateAlarm(ctx context.Context, id string) (*models.Alarm, error) {
	a, err := o.duplicate(ctx, id)
	if err != nil {
		return nil, err
	}
	o.refreshAssetsLogged(ctx)
	return a, nil
}

func (o *Orchestrator) duplicate(ctx context.Context, id string) (*models.Alarm, error) {
	src, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c := src.Clone()
	c.ID = ""
	c.Label = src.Label + " (Copy)"
	c.SnoozeCount = 0
	c.LifetimeSnoozes = 0
	c.LastTriggered = nil
	c.WakeUpFeedback = nil
	c.CreatedAt = time.Time{}
	return o.create(ctx, c)
}

// SetEnabled turns an alarm on or off. Disabling cancels its notifications and stops
// adaptation before returning.
func (o *Orchestrator) SetEnabled(ctx context.Context, id string, enabled bool) (*models.Alarm, error) {
	a, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Enabled == enabled {
		return a, nil
	}
	a.Enabled = enabled
	return o.UpdateAlarm(ctx, a)
}

// Snooze pushes the alarm back by the configured snooze duration, or by d when positive.
func (o *Orchestrator) Snooze(ctx context.Context, id string, d time.Duration) (time.Time, error) {
	a, err := o.store.Get(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	if d <= 0 {
		d = o.Config().Scheduling.SnoozeDuration
	}
	at := o.now().Add(d)

	a.SnoozeCount++
	a.LifetimeSnoozes++
	a.UpdatedAt = o.now()
	if err := o.store.Update(ctx, a); err != nil {
		return time.Time{}, err
	}
	o.remember(a)

	nid, err := o.ids.Allocate(ctx, a.ID, SlotSnooze)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to allocate snooze notification: %w", err)
	}
	body := fmt.Sprintf("Snoozed %d time(s)", a.SnoozeCount)
	if err := o.notifier.Schedule(ctx, nid, a.Label, body, at); err != nil {
		return time.Time{}, fmt.Errorf("failed to schedule snooze: %w", err)
	}

	o.metrics.NotificationScheduled()
	o.updateStats(ctx, func(s *Stats) {
		s.Snoozes++
		s.NotificationsScheduled++
	})
	o.logger.Info("alarm snoozed", "alarm", id, "until", at, "count", a.SnoozeCount)
	o.refreshAssetsLogged(ctx)
	return at, nil
}

// Dismiss ends the current firing: the snooze count resets, any pending snooze is
// cancelled and the optional feedback is logged for the behavior signal.
func (o *Orchestrator) Dismiss(ctx context.Context, id string, feedback *models.WakeFeedback) error {
	a, err := o.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if feedback != nil {
		if err := feedback.Validate(); err != nil {
			return err
		}
	}

	now := o.now()
	a.SnoozeCount = 0
	a.LastTriggered = &now
	if feedback != nil {
		o.appendFeedback(a, *feedback)
	}
	a.UpdatedAt = now
	if err := o.store.Update(ctx, a); err != nil {
		return err
	}
	o.remember(a)

	if recurrence.EffectivePattern(a) == nil {
		o.retire(ctx, a, now)
	} else if err := o.cancelSlots(ctx, a.ID, func(slot int) bool { return slot == SlotSnooze }); err != nil {
		o.logger.Warn("could not cancel snooze", "alarm", id, "err", err)
	}
	o.updateStats(ctx, func(s *Stats) { s.Dismissals++ })
	o.logger.Info("alarm dismissed", "alarm", id)
	return nil
}

// RecordFeedback appends one wake-up difficulty rating to the alarm's log.
func (o *Orchestrator) RecordFeedback(ctx context.Context, id string, fb models.WakeFeedback) error {
	if err := fb.Validate(); err != nil {
		return err
	}
	a, err := o.store.Get(ctx, id)
	if err != nil {
		return err
	}
	o.appendFeedback(a, fb)
	a.UpdatedAt = o.now()
	if err := o.store.Update(ctx, a); err != nil {
		return err
	}
	o.remember(a)
	return nil
}

func (o *Orchestrator) appendFeedback(a *models.Alarm, fb models.WakeFeedback) {
	if fb.RecordedAt.IsZero() {
		fb.RecordedAt = o.now()
	}
	a.WakeUpFeedback = append(a.WakeUpFeedback, fb)
	if keep := o.Config().Scheduling.FeedbackHistory; len(a.WakeUpFeedback) > keep {
		a.WakeUpFeedback = slices.Clone(a.WakeUpFeedback[len(a.WakeUpFeedback)-keep:])
	}
}

// afterMutation brings notifications and monitoring in line with the stored alarm.
// Failures are logged; the next rediscovery pass retries them.
func (o *Orchestrator) afterMutation(ctx context.Context, a *models.Alarm) {
	if a.Enabled {
		if _, err := o.ScheduleAdvancedAlarm(ctx, a); err != nil {
			o.logger.Error("scheduling failed", "alarm", a.ID, "err", err)
		}
	} else if err := o.CancelAdvancedAlarm(ctx, a.ID); err != nil {
		o.logger.Error("cancelling failed", "alarm", a.ID, "err", err)
	}
	o.syncMonitoring(ctx, a)
	o.remember(a)
}

// remember marks the stored version of the alarm as handled so rediscovery skips it.
func (o *Orchestrator) remember(a *models.Alarm) {
	o.mu.Lock()
	o.known[a.ID] = a.UpdatedAt
	o.mu.Unlock()
}

func (o *Orchestrator) syncMonitoring(ctx context.Context, a *models.Alarm) {
	if a.Enabled && a.RealTimeAdaptation {
		if err := o.adaptive.StartMonitoring(ctx, a.ID); err != nil {
			o.logger.Warn("could not monitor alarm", "alarm", a.ID, "err", err)
		}
		return
	}
	o.adaptive.StopMonitoring(a.ID)
}

// Readiness verifies the alarm's assets, rescuing them with an emergency preload when
// the alarm would otherwise play a degraded source.
func (o *Orchestrator) Readiness(ctx context.Context, id string) (assets.Readiness, error) {
	if _, err := o.store.Get(ctx, id); err != nil {
		return assets.Readiness{AlarmID: id}, err
	}
	return o.assets.Verify(ctx, id), nil
}

// RefreshAssets re-derives the tracked critical assets from the stored alarms.
func (o *Orchestrator) RefreshAssets(ctx context.Context) ([]models.CriticalAsset, error) {
	alarms, err := o.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return o.assets.Analyze(alarms), nil
}

func (o *Orchestrator) refreshAssetsLogged(ctx context.Context) {
	if _, err := o.RefreshAssets(ctx); err != nil {
		o.logger.Warn("asset refresh failed", "err", err)
	}
}

// ApplyAdaptation implements [adaptive.Applier]: it moves the alarm by the fused
// adjustment, persists it, reschedules its notifications and records the change.
func (o *Orchestrator) ApplyAdaptation(ctx context.Context, d adaptive.Decision) error {
	a, err := o.store.Get(ctx, d.AlarmID)
	if err != nil {
		return err
	}
	prev := a.Time
	next, days, err := recurrence.AdjustTimeWithRollover(a.Time, d.Fusion.AdjustmentMinutes)
	if err != nil {
		return err
	}
	if days != 0 {
		o.logger.Warn("adaptation crossed midnight; keeping time-of-day", "alarm", a.ID, "from", prev, "to", next, "days", days)
	}

	a.Time = next
	a.UpdatedAt = o.now()
	if err := o.store.Update(ctx, a); err != nil {
		return err
	}
	if _, err := o.ScheduleAdvancedAlarm(ctx, a); err != nil {
		o.logger.Error("rescheduling after adaptation failed", "alarm", a.ID, "err", err)
	}
	o.remember(a)
	o.refreshAssetsLogged(ctx)

	if o.history != nil {
		rec := &repositories.AdaptationRecord{
			AlarmID:           a.ID,
			PreviousTime:      prev,
			NewTime:           next,
			AdjustmentMinutes: d.Fusion.AdjustmentMinutes,
			Confidence:        d.Fusion.Confidence,
			Reasons:           d.Reasons,
			AppliedAt:         d.At,
		}
		if err := o.history.Record(ctx, rec); err != nil {
			o.logger.Warn("could not record adaptation", "alarm", a.ID, "err", err)
		}
	}

	if d.Notify {
		o.notifyAdaptation(ctx, a, prev, d)
	}
	o.updateStats(ctx, func(s *Stats) { s.AdaptationsApplied++ })
	o.logger.Info("alarm adapted", "alarm", a.ID, "from", prev, "to", next)
	return nil
}

func (o *Orchestrator) notifyAdaptation(ctx context.Context, a *models.Alarm, prev string, d adaptive.Decision) {
	nid, err := o.ids.Allocate(ctx, a.ID, SlotAdaptation)
	if err != nil {
		o.logger.Warn("could not allocate adaptation notice", "alarm", a.ID, "err", err)
		return
	}
	body := fmt.Sprintf("Moved from %s to %s", prev, a.Time)
	if len(d.Reasons) > 0 {
		body += ": " + d.Reasons[0]
	}
	if err := o.notifier.Schedule(ctx, nid, a.Label+" adjusted", body, o.now()); err != nil {
		o.logger.Warn("could not send adaptation notice", "alarm", a.ID, "err", err)
	}
}

// SlotResult describes what happened to one occurrence slot.
type SlotResult struct {
	Slot           int       `json:"slot"`
	Occurrence     time.Time `json:"occurrence"`
	NotifyAt       time.Time `json:"notifyAt,omitzero"`
	NotificationID int       `json:"notificationId,omitempty"`
	Optimizations  []string  `json:"optimizations,omitempty"`
	SkippedBy      string    `json:"skippedBy,omitempty"`
}

// ScheduleResult reports one [Orchestrator.ScheduleAdvancedAlarm] call.
type ScheduleResult struct {
	AlarmID   string       `json:"alarmId"`
	Slots     []SlotResult `json:"slots"`
	Scheduled int          `json:"scheduled"`
	Skipped   int          `json:"skipped"`
}

// ScheduleAdvancedAlarm replaces the alarm's occurrence notifications with ones for its
// next occurrences. Each occurrence is checked against the alarm's conditional rules
// first, so some slots may stay empty. An alarm with no upcoming occurrence is a no-op.
func (o *Orchestrator) ScheduleAdvancedAlarm(ctx context.Context, alarm *models.Alarm) (*ScheduleResult, error) {
	res := &ScheduleResult{AlarmID: alarm.ID}
	cfg := o.Config().Scheduling
	now := o.now()

	occs, err := recurrence.NextOccurrences(alarm, now.In(o.loc), cfg.OccurrenceSlots)
	if err != nil {
		return res, err
	}
	if err := o.cancelSlots(ctx, alarm.ID, func(slot int) bool { return slot < MaxOccurrenceSlots }); err != nil {
		return res, err
	}
	if len(occs) == 0 {
		o.logger.Info("no upcoming occurrences", "alarm", alarm.ID)
		return res, nil
	}

	var errs []error
	for i, occ := range occs {
		sr := SlotResult{Slot: i, Occurrence: occ}
		if cfg.ConditionalRules {
			if rule, skip := skipRule(alarm, occ, o.holidays); skip {
				sr.SkippedBy = string(rule)
				res.Slots = append(res.Slots, sr)
				res.Skipped++
				o.metrics.NotificationSkipped(string(rule))
				continue
			}
		}

		at := occ
		if cfg.SmartOptimizations {
			if moved, applied := o.optimizer.Apply(alarm, occ); moved.After(now) {
				at, sr.Optimizations = moved, applied
			}
		}

		nid, err := o.ids.Allocate(ctx, alarm.ID, i)
		if err != nil {
			errs = append(errs, fmt.Errorf("slot %d: %w", i, err))
			continue
		}
		if err := o.notifier.Schedule(ctx, nid, alarm.Label, notificationBody(alarm, occ), at); err != nil {
			errs = append(errs, fmt.Errorf("slot %d: %w", i, err))
			continue
		}
		sr.NotifyAt, sr.NotificationID = at, nid
		res.Slots = append(res.Slots, sr)
		res.Scheduled++
		o.metrics.NotificationScheduled()
	}

	o.updateStats(ctx, func(s *Stats) {
		s.NotificationsScheduled += res.Scheduled
		for _, sr := range res.Slots {
			if sr.SkippedBy != "" {
				s.skipped(sr.SkippedBy)
			}
		}
	})
	o.logger.Debug("scheduled alarm", "alarm", alarm.ID, "scheduled", res.Scheduled, "skipped", res.Skipped)
	return res, errors.Join(errs...)
}

func notificationBody(a *models.Alarm, occ time.Time) string {
	if a.Message != "" {
		return a.Message
	}
	return "Alarm for " + occ.Format("Mon 15:04")
}

// CancelAdvancedAlarm cancels every notification mapped to the alarm (occurrences,
// adaptation notice and snooze) and releases the mapping.
func (o *Orchestrator) CancelAdvancedAlarm(ctx context.Context, id string) error {
	nids, err := o.ids.Release(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to release notification ids: %w", err)
	}
	var errs []error
	for _, nid := range nids {
		if err := o.notifier.Cancel(ctx, nid); err != nil {
			errs = append(errs, err)
		}
	}
	if len(nids) > 0 {
		o.updateStats(ctx, func(s *Stats) { s.NotificationsCancelled += len(nids) })
	}
	return errors.Join(errs...)
}

// cancelSlots cancels the notifications of matching slots, keeping their IDs mapped.
func (o *Orchestrator) cancelSlots(ctx context.Context, id string, match func(slot int) bool) error {
	mapped, err := o.ids.Lookup(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to look up notification ids: %w", err)
	}
	var errs []error
	for slot, nid := range mapped {
		if !match(slot) {
			continue
		}
		if err := o.notifier.Cancel(ctx, nid); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
