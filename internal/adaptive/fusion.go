package adaptive

import (
	"math"

	"github.com/desertthunder/smartwake/internal/models"
)

// Fusion is the combined view of every trigger gathered in one check.
type Fusion struct {
	AdjustmentMinutes int     `json:"adjustmentMinutes"`
	Confidence        float64 `json:"confidence"`
	TotalWeight       float64 `json:"totalWeight"`
	Triggers          int     `json:"triggers"`
}

// Fuse blends triggers into one adjustment. Each suggestion is weighted by
// priority × confidence; the fused confidence is the plain mean of the triggers'
// confidences. With no usable weight the adjustment is zero.
func Fuse(triggers []models.AdaptationTrigger) Fusion {
	f := Fusion{Triggers: len(triggers)}
	if len(triggers) == 0 {
		return f
	}

	var weighted, confidence float64
	for _, t := range triggers {
		w := t.Weight()
		weighted += w * float64(t.SuggestedAdjustmentMinutes)
		f.TotalWeight += w
		confidence += t.Confidence
	}
	f.Confidence = confidence / float64(len(triggers))
	if f.TotalWeight > 0 {
		f.AdjustmentMinutes = int(math.Round(weighted / f.TotalWeight))
	}
	return f
}

// ShouldCommit reports whether a fusion is strong enough to apply under cfg.
func (f Fusion) ShouldCommit(cfg Config) bool {
	if f.Triggers == 0 || f.AdjustmentMinutes == 0 {
		return false
	}
	adj := f.AdjustmentMinutes
	if adj < 0 {
		adj = -adj
	}
	return adj >= cfg.MinAdjustmentMinutes && f.Confidence >= cfg.MinConfidence
}
