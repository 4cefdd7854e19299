package scheduling

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/smartwake/internal/assets"
	"github.com/desertthunder/smartwake/internal/models"
	"github.com/desertthunder/smartwake/internal/recurrence"
	"github.com/desertthunder/smartwake/internal/shared"
)

// Intervals are the cadences of the orchestrator's periodic work.
type Intervals struct {
	AssetSweep       time.Duration
	TriggerDetection time.Duration
	Rediscovery      time.Duration
}

func DefaultIntervals() Intervals {
	return Intervals{
		AssetSweep:       time.Minute,
		TriggerDetection: 30 * time.Second,
		Rediscovery:      5 * time.Minute,
	}
}

// IntervalsFrom reads cadences from the file config; zero values keep the defaults.
func IntervalsFrom(c shared.SchedulingConfig) Intervals {
	iv := DefaultIntervals()
	if c.AssetSweep > 0 {
		iv.AssetSweep = c.AssetSweep
	}
	if c.TriggerDetection > 0 {
		iv.TriggerDetection = c.TriggerDetection
	}
	if c.Rediscovery > 0 {
		iv.Rediscovery = c.Rediscovery
	}
	return iv
}

// Run discovers the stored alarms and then drives the periodic work until ctx is done:
// the asset sweep, trigger detection, rediscovery and the adaptive check loop each run
// on their own goroutine so a slow fetch never delays another timer.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.Rediscover(ctx); err != nil {
		o.logger.Warn("initial discovery failed", "err", err)
	}
	o.SweepAssets(ctx)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return o.adaptive.Run(ctx) })
	g.Go(func() error {
		every(ctx, o.intervals.AssetSweep, func(ctx context.Context) { o.SweepAssets(ctx) })
		return nil
	})
	g.Go(func() error {
		every(ctx, o.intervals.TriggerDetection, func(ctx context.Context) {
			if _, err := o.DetectTriggers(ctx); err != nil {
				o.logger.Warn("trigger detection failed", "err", err)
			}
		})
		return nil
	})
	g.Go(func() error {
		every(ctx, o.intervals.Rediscovery, func(ctx context.Context) {
			if err := o.Rediscover(ctx); err != nil {
				o.logger.Warn("rediscovery failed", "err", err)
			}
		})
		return nil
	})

	o.logger.Info("orchestrator running",
		"sweep", o.intervals.AssetSweep, "detect", o.intervals.TriggerDetection, "rediscover", o.intervals.Rediscovery)
	return g.Wait()
}

func every(ctx context.Context, d time.Duration, fn func(context.Context)) {
	t := time.NewTicker(d)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn(ctx)
		}
	}
}

// SweepAssets drops expired assets and preloads the ones that are due.
func (o *Orchestrator) SweepAssets(ctx context.Context) assets.PreloadReport {
	if n := o.assets.CleanupExpired(); n > 0 {
		o.logger.Debug("expired assets removed", "count", n)
	}
	return o.assets.PreloadDue(ctx)
}

// Rediscover reconciles the orchestrator with the store. Alarms that are new or were
// changed outside this process are rescheduled and (re)monitored; alarms that vanished
// are torn down.
func (o *Orchestrator) Rediscover(ctx context.Context) error {
	alarms, err := o.store.LoadAll(ctx)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(alarms))
	var changed []*models.Alarm
	o.mu.Lock()
	for _, a := range alarms {
		seen[a.ID] = true
		if v, ok := o.known[a.ID]; !ok || !v.Equal(a.UpdatedAt) {
			changed = append(changed, a)
		}
	}
	var gone []string
	for id := range o.known {
		if !seen[id] {
			gone = append(gone, id)
		}
	}
	o.mu.Unlock()

	for _, a := range changed {
		o.afterMutation(ctx, a)
	}
	for _, id := range gone {
		if err := o.teardown(ctx, id); err != nil {
			o.logger.Warn("teardown failed", "alarm", id, "err", err)
		}
	}
	o.assets.Analyze(alarms)

	if len(changed) > 0 || len(gone) > 0 {
		o.logger.Info("rediscovered alarms", "changed", len(changed), "removed", len(gone))
	}
	return nil
}

// DetectTriggers finds enabled alarms whose occurrence passed since the previous call,
// stamps them as triggered and rolls their notifications forward. Alarms about to fire
// get a readiness check, which rescues missing assets.
func (o *Orchestrator) DetectTriggers(ctx context.Context) ([]string, error) {
	now := o.now()
	o.mu.Lock()
	since := o.lastDetect
	if since.IsZero() {
		since = now.Add(-o.intervals.TriggerDetection)
	}
	o.lastDetect = now
	window := o.cfg.Scheduling.PreTriggerCheck
	rules := o.cfg.Scheduling.ConditionalRules
	o.mu.Unlock()

	alarms, err := o.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	var fired []string
	for _, a := range alarms {
		if !a.Enabled {
			continue
		}
		occ, ok := recurrence.NextOccurrence(a, since.In(o.loc))
		if !ok {
			continue
		}

		if occ.After(now) {
			if occ.Sub(now) <= window {
				if r := o.assets.Verify(ctx, a.ID); !r.OverallReady {
					o.logger.Error("alarm has no playable audio", "alarm", a.ID, "at", occ)
				}
			}
			continue
		}

		_, skipped := skipRule(a, occ, o.holidays)
		if !rules || !skipped {
			fired = append(fired, a.ID)
			o.markFired(ctx, a, occ)
		}
		if recurrence.EffectivePattern(a) == nil {
			o.retire(ctx, a, occ)
			continue
		}
		if _, err := o.ScheduleAdvancedAlarm(ctx, a); err != nil {
			o.logger.Error("rolling notifications forward failed", "alarm", a.ID, "err", err)
		}
	}
	if len(fired) > 0 {
		o.refreshAssetsLogged(ctx)
	}
	return fired, nil
}

func (o *Orchestrator) markFired(ctx context.Context, a *models.Alarm, occ time.Time) {
	a.LastTriggered = &occ
	a.UpdatedAt = o.now()
	if err := o.store.Update(ctx, a); err != nil {
		o.logger.Warn("could not stamp trigger", "alarm", a.ID, "err", err)
	} else {
		o.remember(a)
	}
	o.metrics.AlarmFired()
	o.updateStats(ctx, func(s *Stats) { s.AlarmsFired++ })
	o.logger.Info("alarm fired", "alarm", a.ID, "at", occ)
}

// retire disables a one-shot alarm once its only occurrence has passed, fired or
// skipped, and drops its notifications, monitoring and assets.
func (o *Orchestrator) retire(ctx context.Context, a *models.Alarm, occ time.Time) {
	if a.LastTriggered == nil || a.LastTriggered.Before(occ) {
		a.LastTriggered = &occ
	}
	a.Enabled = false
	a.UpdatedAt = o.now()
	if err := o.store.Update(ctx, a); err != nil {
		o.logger.Warn("could not disable one-shot alarm", "alarm", a.ID, "err", err)
	} else {
		o.remember(a)
	}
	o.adaptive.StopMonitoring(a.ID)
	o.assets.Release(a.ID)
	if err := o.CancelAdvancedAlarm(ctx, a.ID); err != nil {
		o.logger.Warn("cancelling one-shot notifications failed", "alarm", a.ID, "err", err)
	}
	o.logger.Info("one-shot alarm retired", "alarm", a.ID)
}
