package scheduling

import (
	"context"
	"encoding/json"
	"maps"
	"time"
)

// Stats are the orchestrator's persisted counters.
type Stats struct {
	NotificationsScheduled int            `json:"notificationsScheduled"`
	NotificationsCancelled int            `json:"notificationsCancelled"`
	OccurrencesSkipped     int            `json:"occurrencesSkipped"`
	SkippedByRule          map[string]int `json:"skippedByRule,omitempty"`
	AdaptationsApplied     int            `json:"adaptationsApplied"`
	AlarmsFired            int            `json:"alarmsFired"`
	Snoozes                int            `json:"snoozes"`
	Dismissals             int            `json:"dismissals"`
	AlarmsImported         int            `json:"alarmsImported"`
	AlarmsExported         int            `json:"alarmsExported"`
	UpdatedAt              time.Time      `json:"updatedAt"`
}

func (s Stats) clone() Stats {
	s.SkippedByRule = maps.Clone(s.SkippedByRule)
	return s
}

func (s *Stats) skipped(rule string) {
	s.OccurrencesSkipped++
	if s.SkippedByRule == nil {
		s.SkippedByRule = make(map[string]int)
	}
	s.SkippedByRule[rule]++
}

func loadStats(ctx context.Context, settings SettingsStore) (Stats, error) {
	var s Stats
	raw, ok, err := settings.Get(ctx, keyStats)
	if err != nil || !ok {
		return s, err
	}
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Stats{}, err
	}
	return s, nil
}

// Stats returns a copy of the counters.
func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats.clone()
}

// updateStats applies fn under the lock and persists the result. Persistence failures
// are logged; counters are never worth failing an alarm operation over.
func (o *Orchestrator) updateStats(ctx context.Context, fn func(*Stats)) {
	o.mu.Lock()
	fn(&o.stats)
	o.stats.UpdatedAt = o.now()
	snapshot := o.stats.clone()
	o.mu.Unlock()

	if err := saveJSON(ctx, o.settings, keyStats, snapshot); err != nil {
		o.logger.Warn("could not persist stats", "err", err)
	}
}
