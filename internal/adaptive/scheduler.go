package adaptive

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/smartwake/internal/metrics"
	"github.com/desertthunder/smartwake/internal/models"
	"github.com/desertthunder/smartwake/internal/recurrence"
	"github.com/desertthunder/smartwake/internal/shared"
)

const (
	maxSleepCap  = time.Minute
	budgetWindow = 24 * time.Hour
)

// Check outcomes, reported on [Decision.Outcome] and as metric labels.
const (
	OutcomeCommitted      = "committed"
	OutcomeNoTriggers     = "no_triggers"
	OutcomeBelowThreshold = "below_threshold"
	OutcomeBudget         = "budget_exhausted"
	OutcomeInterval       = "too_soon"
	OutcomeOutsideWindow  = "outside_window"
	OutcomeDisabled       = "disabled"
	OutcomeInFlight       = "in_flight"
	OutcomeCancelled      = "cancelled"
	OutcomeApplyFailed    = "apply_failed"
	OutcomeError          = "error"
)

// AlarmReader loads the current state of an alarm.
type AlarmReader interface {
	Get(ctx context.Context, id string) (*models.Alarm, error)
}

// Applier commits an adjustment: it moves the alarm, reschedules its
// notifications and records the change.
type Applier interface {
	ApplyAdaptation(ctx context.Context, d Decision) error
}

// History recovers commit timestamps so the daily budget survives restarts.
type History interface {
	CommitsSince(ctx context.Context, alarmID string, since time.Time) ([]time.Time, error)
}

// Decision is the result of one adaptation check.
type Decision struct {
	AlarmID  string                     `json:"alarmId"`
	Outcome  string                     `json:"outcome"`
	Triggers []models.AdaptationTrigger `json:"triggers,omitempty"`
	Fusion   Fusion                     `json:"fusion"`
	Reasons  []string                   `json:"reasons,omitempty"`
	Notify   bool                       `json:"notify"`
	At       time.Time                  `json:"at"`
}

// Committed reports whether the decision was applied.
func (d Decision) Committed() bool { return d.Outcome == OutcomeCommitted }

// Status is a point-in-time view of one monitored alarm.
type Status struct {
	AlarmID          string     `json:"alarmId"`
	Monitoring       bool       `json:"monitoring"`
	InFlight         bool       `json:"inFlight"`
	NextCheck        time.Time  `json:"nextCheck"`
	LastCheck        *time.Time `json:"lastCheck,omitempty"`
	LastAdaptation   *time.Time `json:"lastAdaptation,omitempty"`
	AdaptationsToday int        `json:"adaptationsToday"`
	LastOutcome      string     `json:"lastOutcome,omitempty"`
	LastReasons      []string   `json:"lastReasons,omitempty"`
}

type alarmState struct {
	generation  uint64
	inFlight    bool
	nextCheck   time.Time
	lastCheck   *time.Time
	commits     []time.Time
	lastOutcome string
	lastReasons []string
}

// lastCommit returns the most recent commit, if any.
func (st *alarmState) lastCommit() *time.Time {
	if len(st.commits) == 0 {
		return nil
	}
	t := st.commits[len(st.commits)-1]
	return &t
}

// prune drops commits older than the rolling budget window.
func (st *alarmState) prune(now time.Time) {
	cutoff := now.Add(-budgetWindow)
	i := 0
	for i < len(st.commits) && !st.commits[i].After(cutoff) {
		i++
	}
	st.commits = st.commits[i:]
}

// SchedulerOpts configures a [Scheduler]. Sleep and Conditions may be nil, in which
// case those sources simply produce no triggers.
type SchedulerOpts struct {
	Alarms     AlarmReader
	Applier    Applier
	Sleep      SleepAnalyzer
	Conditions ConditionProvider
	History    History
	Config     *Config
	Logger     *log.Logger
	Metrics    *metrics.Metrics
	Now        func() time.Time
}

// Scheduler owns the per-alarm adaptation state and the check queue.
type Scheduler struct {
	mu      sync.Mutex
	cfg     Config
	states  map[string]*alarmState
	queue   checkHeap
	nextGen uint64
	wake    chan struct{}
	checks  sync.WaitGroup

	alarms     AlarmReader
	applier    Applier
	sleep      SleepAnalyzer
	conditions ConditionProvider
	history    History
	logger     *log.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewScheduler(opts SchedulerOpts) *Scheduler {
	if opts.Config == nil {
		c := DefaultConfig()
		opts.Config = &c
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{
		cfg:        *opts.Config,
		states:     make(map[string]*alarmState),
		wake:       make(chan struct{}, 1),
		alarms:     opts.Alarms,
		applier:    opts.Applier,
		sleep:      opts.Sleep,
		conditions: opts.Conditions,
		history:    opts.History,
		logger:     shared.WithLogger(opts.Logger, "component", "adaptive"),
		metrics:    opts.Metrics,
		now:        opts.Now,
	}
}

// Config returns the current configuration.
func (s *Scheduler) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// UpdateConfig replaces the configuration. A new polling interval applies from each
// alarm's next re-queue.
func (s *Scheduler) UpdateConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	s.logger.Info("adaptation config updated", "polling", cfg.PollingInterval, "maxDaily", cfg.MaxDailyAdaptations)
	return nil
}

// StartMonitoring begins periodic checks for the alarm, the first one immediately.
// Monitoring an already monitored alarm is a no-op.
func (s *Scheduler) StartMonitoring(ctx context.Context, alarmID string) error {
	var commits []time.Time
	if s.history != nil {
		since := s.now().Add(-budgetWindow)
		recovered, err := s.history.CommitsSince(ctx, alarmID, since)
		if err != nil {
			s.logger.Warn("could not recover adaptation history", "alarm", alarmID, "err", err)
		} else {
			commits = recovered
		}
	}
	slices.SortFunc(commits, func(a, b time.Time) int { return a.Compare(b) })

	s.mu.Lock()
	if _, ok := s.states[alarmID]; ok {
		s.mu.Unlock()
		return nil
	}
	s.nextGen++
	now := s.now()
	st := &alarmState{generation: s.nextGen, nextCheck: now, commits: commits}
	s.states[alarmID] = st
	s.queue.push(checkEvent{AlarmID: alarmID, DueAt: now, Generation: st.generation})
	n := len(s.states)
	s.mu.Unlock()

	s.metrics.SetMonitored(n)
	s.logger.Info("monitoring alarm", "alarm", alarmID)
	s.signal()
	return nil
}

// StopMonitoring removes the alarm's queued check and its adaptation state in one step.
// A check already running for it will see the state gone and not commit.
func (s *Scheduler) StopMonitoring(alarmID string) {
	s.mu.Lock()
	_, ok := s.states[alarmID]
	delete(s.states, alarmID)
	s.queue.removeAlarm(alarmID)
	n := len(s.states)
	s.mu.Unlock()

	if ok {
		s.metrics.SetMonitored(n)
		s.logger.Info("stopped monitoring alarm", "alarm", alarmID)
		s.signal()
	}
}

// IsMonitoring reports whether the alarm is being monitored.
func (s *Scheduler) IsMonitoring(alarmID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.states[alarmID]
	return ok
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run processes the check queue until ctx is done, then waits for running checks.
func (s *Scheduler) Run(ctx context.Context) error {
	timer := time.NewTimer(s.untilNext())
	defer timer.Stop()
	defer s.checks.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.wake:
		case <-timer.C:
			for _, ev := range s.popDue() {
				s.checks.Add(1)
				go func(id string) {
					defer s.checks.Done()
					if _, err := s.CheckForAdaptation(ctx, id); err != nil && !errors.Is(err, shared.ErrNotMonitored) {
						s.logger.Error("adaptation check failed", "alarm", id, "err", err)
					}
				}(ev.AlarmID)
			}
		}
		timer.Stop()
		timer.Reset(s.untilNext())
	}
}

// untilNext is the sleep before the earliest queued check, capped so config and
// clock changes are picked up.
func (s *Scheduler) untilNext() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.queue.peek()
	if !ok {
		return maxSleepCap
	}
	return min(max(ev.DueAt.Sub(s.now()), 0), maxSleepCap)
}

// popDue removes due events, drops stale ones and re-queues live alarms one polling
// interval out.
func (s *Scheduler) popDue() []checkEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var due []checkEvent
	for {
		ev, ok := s.queue.peek()
		if !ok || ev.DueAt.After(now) {
			break
		}
		s.queue.pop()
		st, live := s.states[ev.AlarmID]
		if !live || st.generation != ev.Generation {
			continue
		}
		due = append(due, ev)
		st.nextCheck = now.Add(s.cfg.PollingInterval)
		s.queue.push(checkEvent{AlarmID: ev.AlarmID, DueAt: st.nextCheck, Generation: ev.Generation})
	}
	return due
}

// CheckForAdaptation runs one evaluation for a monitored alarm. Guards and fusion
// thresholds are reported through [Decision.Outcome]; errors are reserved for
// unmonitored alarms and failures to load or apply.
func (s *Scheduler) CheckForAdaptation(ctx context.Context, alarmID string) (Decision, error) {
	now := s.now()
	d := Decision{AlarmID: alarmID, At: now}

	s.mu.Lock()
	st, ok := s.states[alarmID]
	if !ok {
		s.mu.Unlock()
		return d, fmt.Errorf("%w: %s", shared.ErrNotMonitored, alarmID)
	}
	if st.inFlight {
		s.mu.Unlock()
		d.Outcome = OutcomeInFlight
		return d, nil
	}
	st.inFlight = true
	gen := st.generation
	cfg := s.cfg
	st.prune(now)
	used := len(st.commits)
	last := st.lastCommit()
	s.mu.Unlock()

	defer s.finish(alarmID, gen, &d)

	switch {
	case used >= cfg.MaxDailyAdaptations:
		d.Outcome = OutcomeBudget
		return d, nil
	case last != nil && now.Sub(*last) < cfg.AdaptationInterval:
		d.Outcome = OutcomeInterval
		return d, nil
	}

	if s.alarms == nil {
		return d, fmt.Errorf("%w: no alarm source", shared.ErrServiceUnavailable)
	}
	alarm, err := s.alarms.Get(ctx, alarmID)
	if err != nil {
		if errors.Is(err, shared.ErrAlarmNotFound) {
			d.Outcome = OutcomeDisabled
			s.StopMonitoring(alarmID)
			return d, nil
		}
		return d, err
	}
	if !alarm.Enabled || !alarm.RealTimeAdaptation {
		d.Outcome = OutcomeDisabled
		s.StopMonitoring(alarmID)
		return d, nil
	}

	next, ok := recurrence.NextOccurrence(alarm, now)
	if !ok || next.Sub(now) > cfg.Lookahead {
		d.Outcome = OutcomeOutsideWindow
		return d, nil
	}

	d.Triggers = s.gather(ctx, alarm, cfg)
	d.Fusion = Fuse(d.Triggers)
	for _, t := range d.Triggers {
		d.Reasons = append(d.Reasons, t.Reason)
	}
	switch {
	case len(d.Triggers) == 0:
		d.Outcome = OutcomeNoTriggers
		return d, nil
	case !d.Fusion.ShouldCommit(cfg):
		d.Outcome = OutcomeBelowThreshold
		return d, nil
	}

	// Signals resolve asynchronously; the alarm may have been stopped meanwhile.
	if !s.stillCurrent(alarmID, gen) {
		d.Outcome = OutcomeCancelled
		return d, nil
	}

	d.Notify = cfg.NotifyUser
	if s.applier == nil {
		d.Outcome = OutcomeApplyFailed
		return d, fmt.Errorf("%w: no applier configured", shared.ErrServiceUnavailable)
	}
	if err := s.applier.ApplyAdaptation(ctx, d); err != nil {
		d.Outcome = OutcomeApplyFailed
		return d, fmt.Errorf("failed to apply adaptation: %w", err)
	}

	d.Outcome = OutcomeCommitted
	s.mu.Lock()
	if st, ok := s.states[alarmID]; ok && st.generation == gen {
		st.commits = append(st.commits, now)
	}
	s.mu.Unlock()

	for _, t := range d.Triggers {
		s.metrics.AdaptationTrigger(string(t.Type))
	}
	s.logger.Info("adaptation committed",
		"alarm", alarmID, "minutes", d.Fusion.AdjustmentMinutes, "confidence", d.Fusion.Confidence, "triggers", len(d.Triggers))
	return d, nil
}

func (s *Scheduler) stillCurrent(alarmID string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[alarmID]
	return ok && st.generation == gen
}

// finish clears the in-flight flag and records the outcome, unless monitoring was
// stopped or restarted while the check ran.
func (s *Scheduler) finish(alarmID string, gen uint64, d *Decision) {
	if d.Outcome == "" {
		d.Outcome = OutcomeError
	}
	s.metrics.AdaptationCheck(d.Outcome)

	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[alarmID]
	if !ok || st.generation != gen {
		return
	}
	st.inFlight = false
	at := d.At
	st.lastCheck = &at
	st.lastOutcome = d.Outcome
	if d.Committed() {
		st.lastReasons = slices.Clone(d.Reasons)
	}
}

// gather collects triggers from every configured source. A failing source
// contributes nothing.
func (s *Scheduler) gather(ctx context.Context, alarm *models.Alarm, cfg Config) []models.AdaptationTrigger {
	var triggers []models.AdaptationTrigger

	if s.sleep != nil {
		rec, err := s.sleep.Recommend(ctx, alarm)
		if err != nil {
			s.logger.Warn("sleep analysis unavailable", "alarm", alarm.ID, "err", err)
		} else if t, ok := sleepTrigger(alarm, rec); ok {
			triggers = append(triggers, t)
		}
	}

	var cond *models.Conditions
	if s.conditions != nil {
		c, err := s.conditions.CurrentConditions(ctx)
		if err != nil {
			s.logger.Warn("conditions unavailable", "alarm", alarm.ID, "err", err)
		} else {
			cond = c
		}
	}
	triggers = append(triggers, conditionTriggers(alarm, cond)...)

	if t, ok := behaviorTrigger(alarm); ok {
		triggers = append(triggers, t)
	}

	if cfg.EmergencyOverride {
		triggers = append(triggers, emergencyTriggers(cond)...)
	}
	return triggers
}

// Status returns a snapshot of one alarm's adaptation state.
func (s *Scheduler) Status(alarmID string) (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[alarmID]
	if !ok {
		return Status{AlarmID: alarmID}, false
	}
	return s.statusLocked(alarmID, st), true
}

// Snapshot returns the state of every monitored alarm ordered by next check.
func (s *Scheduler) Snapshot() []Status {
	s.mu.Lock()
	out := make([]Status, 0, len(s.states))
	for id, st := range s.states {
		out = append(out, s.statusLocked(id, st))
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b Status) int {
		if c := a.NextCheck.Compare(b.NextCheck); c != 0 {
			return c
		}
		return cmp.Compare(a.AlarmID, b.AlarmID)
	})
	return out
}

func (s *Scheduler) statusLocked(alarmID string, st *alarmState) Status {
	st.prune(s.now())
	status := Status{
		AlarmID:          alarmID,
		Monitoring:       true,
		InFlight:         st.inFlight,
		NextCheck:        st.nextCheck,
		LastAdaptation:   st.lastCommit(),
		AdaptationsToday: len(st.commits),
		LastOutcome:      st.lastOutcome,
		LastReasons:      slices.Clone(st.lastReasons),
	}
	if st.lastCheck != nil {
		t := *st.lastCheck
		status.LastCheck = &t
	}
	return status
}
