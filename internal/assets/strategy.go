package assets

import (
	"fmt"
	"time"

	"github.com/desertthunder/smartwake/internal/shared"
)

// PreloadStrategy is the process-wide tuning for asset preloading.
type PreloadStrategy struct {
	PreloadWindow            time.Duration `json:"preloadWindow"`
	CriticalWindowMultiplier float64       `json:"criticalWindowMultiplier"`
	BatchSize                int           `json:"batchSize"`
	RetryAttempts            int           `json:"retryAttempts"`
	RetryBaseDelay           time.Duration `json:"retryBaseDelay"`
	RetryMaxDelay            time.Duration `json:"retryMaxDelay"`
	PriorityThreshold        int           `json:"priorityThreshold"`
	FetchTimeout             time.Duration `json:"fetchTimeout"`
}

func DefaultStrategy() PreloadStrategy {
	return PreloadStrategy{
		PreloadWindow:            30 * time.Minute,
		CriticalWindowMultiplier: 2,
		BatchSize:                3,
		RetryAttempts:            3,
		RetryBaseDelay:           time.Second,
		RetryMaxDelay:            30 * time.Second,
		PriorityThreshold:        5,
		FetchTimeout:             20 * time.Second,
	}
}

func (s PreloadStrategy) Validate() error {
	switch {
	case s.PreloadWindow <= 0:
		return fmt.Errorf("%w: preload window must be positive", shared.ErrInvalidConfig)
	case s.CriticalWindowMultiplier < 1:
		return fmt.Errorf("%w: critical window multiplier must be at least 1", shared.ErrInvalidConfig)
	case s.BatchSize < 1:
		return fmt.Errorf("%w: batch size must be at least 1", shared.ErrInvalidConfig)
	case s.RetryAttempts < 0:
		return fmt.Errorf("%w: retry attempts cannot be negative", shared.ErrInvalidConfig)
	case s.PriorityThreshold < 1 || s.PriorityThreshold > 10:
		return fmt.Errorf("%w: priority threshold must be 1-10", shared.ErrInvalidConfig)
	case s.FetchTimeout <= 0:
		return fmt.Errorf("%w: fetch timeout must be positive", shared.ErrInvalidConfig)
	}
	return nil
}

// RetryPolicy derives the backoff used for high-priority assets.
func (s PreloadStrategy) RetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    s.RetryAttempts,
		BaseDelay:     s.RetryBaseDelay,
		MaxDelay:      s.RetryMaxDelay,
		JitterFactor:  0.2,
		BackoffFactor: 2,
	}
}

// Priority thresholds. Assets at or above RetryPriority get retried with backoff.
const (
	FallbackPriority = 3
	DefaultPriority  = 5
	SpeechPriority   = 8
	RetryPriority    = 8
)

// PriorityFor maps time-to-trigger onto an asset priority in [1, 10].
// Alarms that have ever been snoozed lose one point.
func PriorityFor(untilTrigger time.Duration, everSnoozed bool) int {
	p := DefaultPriority
	switch {
	case untilTrigger <= 15*time.Minute:
		p = 10
	case untilTrigger <= time.Hour:
		p = 9
	case untilTrigger <= 4*time.Hour:
		p = 7
	case untilTrigger <= 12*time.Hour:
		p = 6
	}
	if everSnoozed {
		p--
	}
	return clamp(p, 1, 10)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
