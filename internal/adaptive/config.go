package adaptive

import (
	"fmt"
	"time"

	"github.com/desertthunder/smartwake/internal/shared"
)

// Config is the process-wide tuning for real-time adaptation.
type Config struct {
	PollingInterval      time.Duration `json:"pollingInterval"`
	AdaptationInterval   time.Duration `json:"adaptationInterval"` // minimum gap between commits for one alarm
	MaxDailyAdaptations  int           `json:"maxDailyAdaptations"`
	MinConfidence        float64       `json:"minConfidenceThreshold"`
	Lookahead            time.Duration `json:"lookahead"`
	MinAdjustmentMinutes int           `json:"minAdjustmentMinutes"`
	EmergencyOverride    bool          `json:"emergencyOverride"`
	NotifyUser           bool          `json:"notifyUser"`
}

func DefaultConfig() Config {
	return Config{
		PollingInterval:      15 * time.Minute,
		AdaptationInterval:   60 * time.Minute,
		MaxDailyAdaptations:  3,
		MinConfidence:        0.6,
		Lookahead:            2 * time.Hour,
		MinAdjustmentMinutes: 5,
		EmergencyOverride:    true,
		NotifyUser:           true,
	}
}

func (c Config) Validate() error {
	switch {
	case c.PollingInterval <= 0:
		return fmt.Errorf("%w: polling interval must be positive", shared.ErrInvalidConfig)
	case c.AdaptationInterval < 0:
		return fmt.Errorf("%w: adaptation interval cannot be negative", shared.ErrInvalidConfig)
	case c.MaxDailyAdaptations < 0:
		return fmt.Errorf("%w: max daily adaptations cannot be negative", shared.ErrInvalidConfig)
	case c.MinConfidence < 0 || c.MinConfidence > 1:
		return fmt.Errorf("%w: confidence threshold must be within 0-1", shared.ErrInvalidConfig)
	case c.Lookahead <= 0:
		return fmt.Errorf("%w: lookahead must be positive", shared.ErrInvalidConfig)
	case c.MinAdjustmentMinutes < 0:
		return fmt.Errorf("%w: minimum adjustment cannot be negative", shared.ErrInvalidConfig)
	}
	return nil
}
