package adaptive

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/desertthunder/smartwake/internal/models"
	"github.com/desertthunder/smartwake/internal/recurrence"
)

// SleepAnalyzer suggests a wake-up time from sleep data. A nil recommendation with
// a nil error means there is nothing to suggest.
type SleepAnalyzer interface {
	Recommend(ctx context.Context, alarm *models.Alarm) (*models.SleepRecommendation, error)
}

// ConditionProvider returns the current weather, traffic and calendar snapshot.
type ConditionProvider interface {
	CurrentConditions(ctx context.Context) (*models.Conditions, error)
}

const (
	sleepMinDelta      = 10
	sleepMinConfidence = 0.7
	sleepPriority      = 8

	feedbackWindow     = 5
	feedbackMinSamples = 3

	hardWakeAverage  = 3.5
	hardWakeMinutes  = -15
	hardWakePriority = 6
	easyWakeAverage  = 1.5
	easyWakeMinutes  = 10
	easyWakePriority = 4

	severeWeatherMinutes  = -30
	severeWeatherPriority = 10
	majorTrafficMinutes   = -20
	majorTrafficPriority  = 9
)

// sleepTrigger compares the analyzer's recommendation against the alarm's time.
func sleepTrigger(alarm *models.Alarm, rec *models.SleepRecommendation) (models.AdaptationTrigger, bool) {
	if rec == nil {
		return models.AdaptationTrigger{}, false
	}
	delta, err := recurrence.MinutesBetween(alarm.Time, rec.RecommendedTime)
	if err != nil || abs(delta) < sleepMinDelta || rec.Confidence < sleepMinConfidence {
		return models.AdaptationTrigger{}, false
	}

	reason := rec.Reason
	if reason == "" {
		reason = fmt.Sprintf("sleep analysis suggests %s", rec.RecommendedTime)
	}
	return models.AdaptationTrigger{
		Type:                       models.TriggerSleepPattern,
		Priority:                   sleepPriority,
		Confidence:                 rec.Confidence,
		SuggestedAdjustmentMinutes: delta,
		Reason:                     reason,
		Evidence: models.SleepEvidence{
			CurrentTime:     alarm.Time,
			RecommendedTime: rec.RecommendedTime,
			DeltaMinutes:    delta,
		},
	}, true
}

// conditionTriggers evaluates the alarm's enabled rules against the snapshot, in rule order.
func conditionTriggers(alarm *models.Alarm, cond *models.Conditions) []models.AdaptationTrigger {
	if cond == nil {
		return nil
	}
	var out []models.AdaptationTrigger
	for _, rule := range alarm.ConditionBasedAdjustments {
		if !rule.Enabled {
			continue
		}
		observed, ok := Matches(rule, *cond)
		if !ok {
			continue
		}
		adj := int(math.Round(float64(rule.AdjustmentMinutes) * rule.Effectiveness))
		out = append(out, models.AdaptationTrigger{
			Type:                       models.TriggerExternalCondition,
			Priority:                   rule.Priority,
			Confidence:                 rule.Effectiveness,
			SuggestedAdjustmentMinutes: adj,
			Reason:                     fmt.Sprintf("%s %s %s", rule.Field, strings.ReplaceAll(string(rule.Operator), "_", " "), rule.Value),
			Evidence: models.ConditionEvidence{
				RuleID:   rule.ID,
				Field:    rule.Field,
				Operator: rule.Operator,
				Expected: rule.Value,
				Observed: observed.String(),
			},
		})
	}
	return out
}

// Matches evaluates one rule against a snapshot and returns the observed value on a match.
func Matches(rule models.ConditionRule, cond models.Conditions) (models.ConditionValue, bool) {
	v, ok := cond.Lookup(rule.Field)
	if !ok {
		return v, false
	}

	switch rule.Operator {
	case models.OpEquals:
		switch v.Kind {
		case models.KindNumber:
			n, err := strconv.ParseFloat(rule.Value, 64)
			return v, err == nil && v.Num == n
		case models.KindBool:
			b, err := strconv.ParseBool(rule.Value)
			return v, err == nil && v.Bool == b
		default:
			return v, strings.EqualFold(v.Text, rule.Value)
		}
	case models.OpGreaterThan, models.OpLessThan:
		if v.Kind != models.KindNumber {
			return v, false
		}
		n, err := strconv.ParseFloat(rule.Value, 64)
		if err != nil {
			return v, false
		}
		if rule.Operator == models.OpGreaterThan {
			return v, v.Num > n
		}
		return v, v.Num < n
	case models.OpContains:
		return v, rule.Value != "" && strings.Contains(strings.ToLower(v.String()), strings.ToLower(rule.Value))
	}
	return v, false
}

// behaviorTrigger looks at the most recent wake-up feedback.
func behaviorTrigger(alarm *models.Alarm) (models.AdaptationTrigger, bool) {
	recent := alarm.WakeUpFeedback
	if len(recent) > feedbackWindow {
		recent = recent[len(recent)-feedbackWindow:]
	}

	var sum, n int
	for _, f := range recent {
		if v, ok := f.Difficulty.Ordinal(); ok {
			sum += v
			n++
		}
	}
	if n < feedbackMinSamples {
		return models.AdaptationTrigger{}, false
	}

	avg := float64(sum) / float64(n)
	t := models.AdaptationTrigger{
		Type:       models.TriggerUserBehavior,
		Confidence: math.Min(0.9, 0.5+0.1*float64(n-feedbackMinSamples)),
		Evidence:   models.BehaviorEvidence{Samples: n, AverageDifficulty: avg},
	}
	switch {
	case avg >= hardWakeAverage:
		t.Priority = hardWakePriority
		t.SuggestedAdjustmentMinutes = hardWakeMinutes
		t.Reason = fmt.Sprintf("recent wake-ups were hard (avg %.1f)", avg)
	case avg <= easyWakeAverage:
		t.Priority = easyWakePriority
		t.SuggestedAdjustmentMinutes = easyWakeMinutes
		t.Reason = fmt.Sprintf("recent wake-ups were easy (avg %.1f)", avg)
	default:
		return models.AdaptationTrigger{}, false
	}
	return t, true
}

// emergencyTriggers reacts to severe weather and major traffic.
func emergencyTriggers(cond *models.Conditions) []models.AdaptationTrigger {
	if cond == nil {
		return nil
	}
	var out []models.AdaptationTrigger
	if cond.Weather.Severe {
		out = append(out, models.AdaptationTrigger{
			Type:                       models.TriggerEmergency,
			Priority:                   severeWeatherPriority,
			Confidence:                 0.9,
			SuggestedAdjustmentMinutes: severeWeatherMinutes,
			Reason:                     "severe weather warning",
			Evidence:                   models.EmergencyEvidence{Kind: models.EmergencySevereWeather, Detail: strings.Join(cond.Weather.Alerts, ", ")},
		})
	}
	if cond.Traffic.Severity == models.TrafficMajor {
		out = append(out, models.AdaptationTrigger{
			Type:                       models.TriggerEmergency,
			Priority:                   majorTrafficPriority,
			Confidence:                 0.85,
			SuggestedAdjustmentMinutes: majorTrafficMinutes,
			Reason:                     "major traffic disruption",
			Evidence:                   models.EmergencyEvidence{Kind: models.EmergencyMajorTraffic, Detail: strings.Join(cond.Traffic.Incidents, ", ")},
		})
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
