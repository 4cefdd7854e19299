package scheduling

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/smartwake/internal/adaptive"
	"github.com/desertthunder/smartwake/internal/assets"
	"github.com/desertthunder/smartwake/internal/shared"
)

// Settings keys.
const (
	keyConfig = "scheduling.config"
	keyStats  = "scheduling.stats"
)

// Notification slots. Occurrence slots start at 0; the rest are fixed.
const (
	MaxOccurrenceSlots = 3
	SlotAdaptation     = 8
	SlotSnooze         = 9
)

// Options are the orchestrator's own tunables.
type Options struct {
	OccurrenceSlots    int           `json:"occurrenceSlots"`
	SmartOptimizations bool          `json:"smartOptimizations"`
	ConditionalRules   bool          `json:"conditionalRules"`
	SnoozeDuration     time.Duration `json:"snoozeDuration"`
	PreTriggerCheck    time.Duration `json:"preTriggerCheck"` // verify assets this long before firing
	FeedbackHistory    int           `json:"feedbackHistory"` // wake-up feedback entries kept per alarm
}

// Config groups every runtime tunable. It lives in the settings store and changes only
// through [Orchestrator.UpdateConfig].
type Config struct {
	Preload    assets.PreloadStrategy `json:"preloadStrategy"`
	Adaptation adaptive.Config        `json:"realTimeAdaptation"`
	Scheduling Options                `json:"scheduling"`
}

func DefaultConfig() Config {
	return Config{
		Preload:    assets.DefaultStrategy(),
		Adaptation: adaptive.DefaultConfig(),
		Scheduling: Options{
			OccurrenceSlots:    MaxOccurrenceSlots,
			SmartOptimizations: true,
			ConditionalRules:   true,
			SnoozeDuration:     9 * time.Minute,
			PreTriggerCheck:    5 * time.Minute,
			FeedbackHistory:    30,
		},
	}
}

func (c Config) Validate() error {
	if err := c.Preload.Validate(); err != nil {
		return err
	}
	if err := c.Adaptation.Validate(); err != nil {
		return err
	}
	s := c.Scheduling
	switch {
	case s.OccurrenceSlots < 1 || s.OccurrenceSlots > MaxOccurrenceSlots:
		return fmt.Errorf("%w: occurrence slots must be within 1-%d", shared.ErrInvalidConfig, MaxOccurrenceSlots)
	case s.SnoozeDuration <= 0:
		return fmt.Errorf("%w: snooze duration must be positive", shared.ErrInvalidConfig)
	case s.PreTriggerCheck < 0:
		return fmt.Errorf("%w: pre-trigger check cannot be negative", shared.ErrInvalidConfig)
	case s.FeedbackHistory < 5:
		return fmt.Errorf("%w: feedback history must keep at least 5 entries", shared.ErrInvalidConfig)
	}
	return nil
}

// loadConfig reads the stored config. Fields missing from the stored document keep
// their defaults.
func loadConfig(ctx context.Context, s SettingsStore) (Config, error) {
	cfg := DefaultConfig()
	raw, ok, err := s.Get(ctx, keyConfig)
	if err != nil || !ok {
		return cfg, err
	}
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("%w: stored config: %v", shared.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), err
	}
	return cfg, nil
}

func saveJSON(ctx context.Context, s SettingsStore, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(data))
}
