package assets

import (
	"cmp"
	"context"
	"fmt"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/smartwake/internal/metrics"
	"github.com/desertthunder/smartwake/internal/models"
	"github.com/desertthunder/smartwake/internal/recurrence"
	"github.com/desertthunder/smartwake/internal/shared"
)

// Horizon is how far ahead an occurrence may be and still get assets tracked.
const Horizon = 24 * time.Hour

// LoadOptions are hints passed to the [AudioLoader] with each fetch.
type LoadOptions struct {
	Priority int
	Timeout  time.Duration
	CacheKey string
}

// CacheEntry describes a fetched piece of audio held by the loader.
type CacheEntry struct {
	Key      string
	URL      string
	Path     string
	Size     int64
	LoadedAt time.Time
}

// AudioLoader fetches audio. Repeated requests with the same CacheKey must be deduplicated.
type AudioLoader interface {
	LoadAudio(ctx context.Context, url string, opts LoadOptions) (*CacheEntry, error)
}

// Readiness reports which of an alarm's audio sources can play right now.
type Readiness struct {
	AlarmID       string `json:"alarmId"`
	SpeechReady   bool   `json:"ttsReady"`
	AudioReady    bool   `json:"audioReady"`
	FallbackReady bool   `json:"fallbackReady"`
	OverallReady  bool   `json:"overallReady"`
	// Degraded is set when speech or custom audio is tracked but not loaded, so the
	// alarm would only play a lower-priority source.
	Degraded bool `json:"degraded"`
	Rescued  bool `json:"rescued"` // an emergency preload ran during verification
}

// PreloadReport summarizes one batch.
type PreloadReport struct {
	Selected int `json:"selected"`
	Loaded   int `json:"loaded"`
	Failed   int `json:"failed"`
}

// CoordinatorOpts configures a [Coordinator]. Nil fields get defaults.
type CoordinatorOpts struct {
	Loader        AudioLoader
	Logger        *log.Logger
	Metrics       *metrics.Metrics
	Strategy      *PreloadStrategy
	SpeechBaseURL string
	Now           func() time.Time
}

// Coordinator tracks critical assets and preloads them ahead of trigger time.
type Coordinator struct {
	mu       sync.RWMutex
	assets   map[string]*models.CriticalAsset
	strategy PreloadStrategy
	stats    Stats

	loader        AudioLoader
	logger        *log.Logger
	metrics       *metrics.Metrics
	speechBaseURL string
	now           func() time.Time
}

func NewCoordinator(opts CoordinatorOpts) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	if opts.Strategy == nil {
		s := DefaultStrategy()
		opts.Strategy = &s
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Coordinator{
		assets:        make(map[string]*models.CriticalAsset),
		strategy:      *opts.Strategy,
		loader:        opts.Loader,
		logger:        shared.WithLogger(opts.Logger, "component", "assets"),
		metrics:       opts.Metrics,
		speechBaseURL: opts.SpeechBaseURL,
		now:           opts.Now,
	}
}

// Strategy returns the current preload strategy.
func (c *Coordinator) Strategy() PreloadStrategy {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.strategy
}

// UpdateStrategy replaces the preload strategy; it takes effect on the next cycle.
func (c *Coordinator) UpdateStrategy(s PreloadStrategy) error {
	if err := s.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.strategy = s
	c.mu.Unlock()
	c.logger.Info("preload strategy updated", "batch", s.BatchSize, "threshold", s.PriorityThreshold)
	return nil
}

// Analyze derives the assets for every enabled alarm firing within [Horizon] and
// replaces the tracked set with them. Load state carries over for assets that are
// still tracked under the same identity.
func (c *Coordinator) Analyze(alarms []*models.Alarm) []models.CriticalAsset {
	now := c.now()

	c.mu.Lock()
	strategy := c.strategy
	next := make(map[string]*models.CriticalAsset)
	for _, alarm := range alarms {
		if alarm == nil || !alarm.Enabled {
			continue
		}
		at, ok := recurrence.NextOccurrence(alarm, now)
		if !ok || at.Sub(now) > Horizon {
			continue
		}
		for _, a := range c.derive(alarm, at, now, strategy) {
			if prev, ok := c.assets[a.ID]; ok {
				a.IsLoaded = prev.IsLoaded
				a.LoadStarted = prev.LoadStarted
				a.LoadedAt = prev.LoadedAt
				a.Size = prev.Size
				a.Attempts = prev.Attempts
				a.LastError = prev.LastError
			}
			next[a.ID] = a
		}
	}

	for id, prev := range c.assets {
		if _, kept := next[id]; !kept && prev.IsLoaded {
			c.stats.MemoryUsage -= prev.Size
		}
	}
	c.assets = next
	out := c.sortedLocked()
	c.mu.Unlock()

	c.metrics.SetAssetsTracked(len(out))
	c.logger.Debug("analyzed critical assets", "alarms", len(alarms), "assets", len(out))
	return out
}

func (c *Coordinator) derive(alarm *models.Alarm, at, now time.Time, s PreloadStrategy) []*models.CriticalAsset {
	priority := PriorityFor(at.Sub(now), alarm.LifetimeSnoozes > 0)

	build := func(kind models.AssetKind, src string, p int) *models.CriticalAsset {
		window := s.PreloadWindow
		if p >= RetryPriority {
			window = time.Duration(float64(window) * s.CriticalWindowMultiplier)
		}
		return &models.CriticalAsset{
			ID:          fmt.Sprintf("%s:%s:%d", alarm.ID, kind, at.Unix()),
			AlarmID:     alarm.ID,
			Kind:        kind,
			URL:         src,
			CacheKey:    fmt.Sprintf("%s:%s", kind, src),
			Priority:    p,
			TriggerTime: at,
			PreloadTime: at.Add(-window),
		}
	}

	var out []*models.CriticalAsset
	if c.speechBaseURL != "" {
		out = append(out, build(models.AssetSpeech, c.speechURL(alarm), max(SpeechPriority, priority)))
	}
	if alarm.SoundURL != "" {
		out = append(out, build(models.AssetAudio, alarm.SoundURL, priority))
	}

	fallback := build(models.AssetFallback, "", FallbackPriority)
	fallback.CacheKey = string(models.AssetFallback)
	fallback.IsLoaded = true
	fallback.LoadedAt = &now
	return append(out, fallback)
}

func (c *Coordinator) speechURL(alarm *models.Alarm) string {
	text := alarm.Message
	if text == "" {
		text = alarm.Label
	}
	q := url.Values{"text": {text}}
	if alarm.VoiceMood != "" {
		q.Set("voice", alarm.VoiceMood)
	}
	return c.speechBaseURL + "?" + q.Encode()
}

// sortedLocked returns copies ordered by priority (high first), then trigger time.
func (c *Coordinator) sortedLocked() []models.CriticalAsset {
	out := make([]models.CriticalAsset, 0, len(c.assets))
	for _, a := range c.assets {
		out = append(out, *a)
	}
	sortAssets(out)
	return out
}

func sortAssets(list []models.CriticalAsset) {
	slices.SortFunc(list, func(a, b models.CriticalAsset) int {
		if a.Priority != b.Priority {
			return cmp.Compare(b.Priority, a.Priority)
		}
		if c := a.TriggerTime.Compare(b.TriggerTime); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// PreloadDue fetches the next batch of due assets: not loaded, not started, preload
// time reached and priority at or above the threshold. The batch settles fully
// before returning.
func (c *Coordinator) PreloadDue(ctx context.Context) PreloadReport {
	now := c.now()

	c.mu.Lock()
	strategy := c.strategy
	var due []models.CriticalAsset
	for _, a := range c.assets {
		if a.IsLoaded || a.LoadStarted || !a.Due(now) || a.Priority < strategy.PriorityThreshold {
			continue
		}
		due = append(due, *a)
	}
	sortAssets(due)
	if len(due) > strategy.BatchSize {
		due = due[:strategy.BatchSize]
	}
	for _, a := range due {
		c.assets[a.ID].LoadStarted = true
	}
	c.mu.Unlock()

	report := PreloadReport{Selected: len(due)}
	if len(due) == 0 {
		return report
	}

	results := c.settle(ctx, due, func(a models.CriticalAsset) bool { return a.Priority >= RetryPriority })
	for _, ok := range results {
		if ok {
			report.Loaded++
		} else {
			report.Failed++
		}
	}
	c.logger.Info("preload batch settled", "selected", report.Selected, "loaded", report.Loaded, "failed", report.Failed)
	return report
}

// EmergencyPreload immediately fetches every unloaded asset of the given alarms in
// parallel, without retries, and returns once every fetch has settled.
func (c *Coordinator) EmergencyPreload(ctx context.Context, alarmIDs []string) PreloadReport {
	wanted := make(map[string]struct{}, len(alarmIDs))
	for _, id := range alarmIDs {
		wanted[id] = struct{}{}
	}

	c.mu.Lock()
	var pending []models.CriticalAsset
	for _, a := range c.assets {
		if _, ok := wanted[a.AlarmID]; ok && !a.IsLoaded {
			a.LoadStarted = true
			pending = append(pending, *a)
		}
	}
	c.stats.EmergencyPreloads++
	c.mu.Unlock()

	sortAssets(pending)
	c.metrics.EmergencyPreload()
	c.logger.Warn("emergency preload", "alarms", alarmIDs, "assets", len(pending))

	report := PreloadReport{Selected: len(pending)}
	for _, ok := range c.settle(ctx, pending, func(models.CriticalAsset) bool { return false }) {
		if ok {
			report.Loaded++
		} else {
			report.Failed++
		}
	}
	return report
}

// settle fetches every asset concurrently and waits for all of them. A failure in
// one fetch never cancels the others.
func (c *Coordinator) settle(ctx context.Context, list []models.CriticalAsset, retry func(models.CriticalAsset) bool) []bool {
	results := make([]bool, len(list))
	var g errgroup.Group
	for i, a := range list {
		g.Go(func() error {
			results[i] = c.fetch(ctx, a, retry(a)) == nil
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (c *Coordinator) fetch(ctx context.Context, a models.CriticalAsset, withRetry bool) error {
	strategy := c.Strategy()
	policy := strategy.RetryPolicy()
	opts := LoadOptions{Priority: a.Priority, Timeout: strategy.FetchTimeout, CacheKey: a.CacheKey}

	attempts := 0
	for {
		attempts++
		start := time.Now()
		entry, err := c.load(ctx, a.URL, opts)
		elapsed := time.Since(start)
		c.metrics.AssetLoaded(string(a.Kind), err == nil, elapsed)

		if err == nil {
			c.markLoaded(a.ID, entry, attempts, elapsed)
			return nil
		}

		retries := attempts - 1
		if !withRetry || !policy.ShouldRetry(retries, err) {
			c.markFailed(a.ID, err, attempts)
			c.logger.Warn("asset fetch failed", "asset", a.ID, "attempts", attempts, "category", ClassifyError(err), "err", err)
			return err
		}

		c.logger.Debug("retrying asset fetch", "asset", a.ID, "attempt", attempts, "err", err)
		if werr := policy.Wait(ctx, attempts, ClassifyError(err)); werr != nil {
			c.markFailed(a.ID, err, attempts)
			return werr
		}
	}
}

func (c *Coordinator) load(ctx context.Context, src string, opts LoadOptions) (*CacheEntry, error) {
	if c.loader == nil {
		return nil, fmt.Errorf("%w: no audio loader configured", shared.ErrServiceUnavailable)
	}
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	return c.loader.LoadAudio(ctx, src, opts)
}

func (c *Coordinator) markLoaded(id string, entry *CacheEntry, attempts int, elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.record(true, elapsed)
	a, ok := c.assets[id]
	if !ok {
		return
	}
	loadedAt := c.now()
	wasLoaded := a.IsLoaded
	a.IsLoaded = true
	a.LoadStarted = false
	a.LoadedAt = &loadedAt
	a.Attempts += attempts
	a.LastError = ""
	if entry == nil {
		return
	}
	// An emergency fetch can land on an asset a batch already loaded.
	if wasLoaded {
		c.stats.MemoryUsage -= a.Size
	}
	a.Size = entry.Size
	c.stats.MemoryUsage += entry.Size
}

// markFailed leaves the asset eligible for the next natural preload pass.
func (c *Coordinator) markFailed(id string, err error, attempts int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.record(false, 0)
	if a, ok := c.assets[id]; ok {
		a.LoadStarted = false
		a.Attempts += attempts
		a.LastError = err.Error()
	}
}

// Verify reports readiness for one alarm. When nothing is ready, or a primary source
// is tracked but unloaded, it runs one emergency preload and checks exactly once more.
// An alarm with no tracked assets (outside [Horizon]) can only play the fallback tone,
// which is always available.
func (c *Coordinator) Verify(ctx context.Context, alarmID string) Readiness {
	r, tracked := c.readiness(alarmID)
	if tracked == 0 {
		r.FallbackReady, r.OverallReady = true, true
		return r
	}
	if r.OverallReady && !r.Degraded {
		return r
	}

	report := c.EmergencyPreload(ctx, []string{alarmID})
	r, _ = c.readiness(alarmID)
	r.Rescued = report.Selected > 0
	return r
}

func (c *Coordinator) readiness(alarmID string) (Readiness, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r := Readiness{AlarmID: alarmID}
	tracked := 0
	for _, a := range c.assets {
		if a.AlarmID != alarmID {
			continue
		}
		tracked++
		switch a.Kind {
		case models.AssetSpeech:
			r.SpeechReady = r.SpeechReady || a.IsLoaded
			r.Degraded = r.Degraded || !a.IsLoaded
		case models.AssetAudio:
			r.AudioReady = r.AudioReady || a.IsLoaded
			r.Degraded = r.Degraded || !a.IsLoaded
		case models.AssetFallback:
			r.FallbackReady = true
		}
	}
	r.OverallReady = r.SpeechReady || r.AudioReady || r.FallbackReady
	return r, tracked
}

// CleanupExpired drops assets whose trigger time has passed and returns how many were removed.
func (c *Coordinator) CleanupExpired() int {
	now := c.now()
	removed := c.remove(func(a *models.CriticalAsset) bool { return a.Expired(now) })
	if removed > 0 {
		c.logger.Debug("cleaned up expired assets", "removed", removed)
	}
	return removed
}

// Release drops every asset of the alarm. It is called synchronously on disable and delete.
func (c *Coordinator) Release(alarmID string) int {
	return c.remove(func(a *models.CriticalAsset) bool { return a.AlarmID == alarmID })
}

func (c *Coordinator) remove(match func(*models.CriticalAsset) bool) int {
	c.mu.Lock()
	removed := 0
	for id, a := range c.assets {
		if !match(a) {
			continue
		}
		if a.IsLoaded {
			c.stats.MemoryUsage -= a.Size
		}
		delete(c.assets, id)
		removed++
	}
	n := len(c.assets)
	c.mu.Unlock()

	c.metrics.SetAssetsTracked(n)
	return removed
}

// Snapshot returns a point-in-time copy of every tracked asset in priority order.
func (c *Coordinator) Snapshot() []models.CriticalAsset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sortedLocked()
}

// AssetsFor returns copies of the alarm's tracked assets in priority order.
func (c *Coordinator) AssetsFor(alarmID string) []models.CriticalAsset {
	var out []models.CriticalAsset
	for _, a := range c.Snapshot() {
		if a.AlarmID == alarmID {
			out = append(out, a)
		}
	}
	return out
}

// Stats returns a copy of the preload statistics.
func (c *Coordinator) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.stats
	s.Tracked = len(c.assets)
	return s
}
