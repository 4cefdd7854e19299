package models

import (
	"fmt"
	"slices"
	"time"

	"github.com/desertthunder/smartwake/internal/shared"
)

// TriggerType identifies which signal source produced an [AdaptationTrigger].
type TriggerType string

const (
	TriggerSleepPattern      TriggerType = "sleep_pattern"
	TriggerExternalCondition TriggerType = "external_condition"
	TriggerUserBehavior      TriggerType = "user_behavior"
	TriggerEmergency         TriggerType = "emergency"
)

// AdaptationTrigger is a single weighted suggestion to move an alarm. Triggers are
// produced on every evaluation and never persisted.
type AdaptationTrigger struct {
	Type                       TriggerType `json:"type"`
	Priority                   int         `json:"priority"`
	Confidence                 float64     `json:"confidence"`
	SuggestedAdjustmentMinutes int         `json:"suggestedAdjustmentMinutes"`
	Reason                     string      `json:"reason"`
	Evidence                   Evidence    `json:"evidence,omitempty"`
}

// Weight is the trigger's influence during fusion.
func (t AdaptationTrigger) Weight() float64 {
	return float64(t.Priority) * t.Confidence
}

// Evidence is the source-specific payload of a trigger. The concrete types are
// [SleepEvidence], [ConditionEvidence], [BehaviorEvidence] and [EmergencyEvidence].
type Evidence interface {
	Source() TriggerType
}

type SleepEvidence struct {
	CurrentTime     string `json:"currentTime"`
	RecommendedTime string `json:"recommendedTime"`
	DeltaMinutes    int    `json:"deltaMinutes"`
}

func (SleepEvidence) Source() TriggerType { return TriggerSleepPattern }

type ConditionEvidence struct {
	RuleID   string            `json:"ruleId"`
	Field    string            `json:"field"`
	Operator ConditionOperator `json:"operator"`
	Expected string            `json:"expected"`
	Observed string            `json:"observed"`
}

func (ConditionEvidence) Source() TriggerType { return TriggerExternalCondition }

type BehaviorEvidence struct {
	Samples           int     `json:"samples"`
	AverageDifficulty float64 `json:"averageDifficulty"`
}

func (BehaviorEvidence) Source() TriggerType { return TriggerUserBehavior }

// EmergencyKind names the emergency that produced an override.
type EmergencyKind string

const (
	EmergencySevereWeather EmergencyKind = "severe_weather"
	EmergencyMajorTraffic  EmergencyKind = "major_traffic"
)

type EmergencyEvidence struct {
	Kind   EmergencyKind `json:"kind"`
	Detail string        `json:"detail,omitempty"`
}

func (EmergencyEvidence) Source() TriggerType { return TriggerEmergency }

// ConditionOperator is the comparison applied by a [ConditionRule].
type ConditionOperator string

const (
	OpEquals      ConditionOperator = "equals"
	OpGreaterThan ConditionOperator = "greater_than"
	OpLessThan    ConditionOperator = "less_than"
	OpContains    ConditionOperator = "contains"
)

// ConditionRule adjusts an alarm when a live condition matches.
//
// Field is a dotted path into [Conditions], e.g. "weather.condition" or "traffic.delay_minutes".
type ConditionRule struct {
	ID                string            `json:"id"`
	Field             string            `json:"condition"`
	Operator          ConditionOperator `json:"operator"`
	Value             string            `json:"value"`
	AdjustmentMinutes int               `json:"adjustment"`
	Priority          int               `json:"priority"`
	Effectiveness     float64           `json:"effectiveness"`
	Enabled           bool              `json:"isEnabled"`
}

func (r *ConditionRule) Validate() error {
	switch r.Operator {
	case OpEquals, OpGreaterThan, OpLessThan, OpContains:
	default:
		return fmt.Errorf("%w: unknown condition operator %q", shared.ErrInvalidInput, r.Operator)
	}
	if !slices.Contains(ConditionFields, r.Field) {
		return fmt.Errorf("%w: unknown condition field %q", shared.ErrInvalidInput, r.Field)
	}
	if r.Priority < 1 || r.Priority > 10 {
		return fmt.Errorf("%w: rule priority %d out of range 1-10", shared.ErrInvalidInput, r.Priority)
	}
	if r.Effectiveness < 0 || r.Effectiveness > 1 {
		return fmt.Errorf("%w: rule effectiveness %.2f out of range 0-1", shared.ErrInvalidInput, r.Effectiveness)
	}
	return nil
}

// Difficulty is how hard a user found it to get up.
type Difficulty string

const (
	DifficultyVeryEasy Difficulty = "very_easy"
	DifficultyEasy     Difficulty = "easy"
	DifficultyNormal   Difficulty = "normal"
	DifficultyHard     Difficulty = "hard"
	DifficultyVeryHard Difficulty = "very_hard"
)

var difficultyScale = map[Difficulty]int{
	DifficultyVeryEasy: 0,
	DifficultyEasy:     1,
	DifficultyNormal:   2,
	DifficultyHard:     3,
	DifficultyVeryHard: 4,
}

// Ordinal maps the label onto 0 (very easy) through 4 (very hard).
func (d Difficulty) Ordinal() (int, bool) {
	v, ok := difficultyScale[d]
	return v, ok
}

// WakeFeedback is one entry in an alarm's dismissal log.
type WakeFeedback struct {
	Difficulty Difficulty `json:"difficulty"`
	RecordedAt time.Time  `json:"recordedAt"`
	Note       string     `json:"note,omitempty"`
}

func (f *WakeFeedback) Validate() error {
	if _, ok := f.Difficulty.Ordinal(); !ok {
		return fmt.Errorf("%w: unknown difficulty %q", shared.ErrInvalidInput, f.Difficulty)
	}
	return nil
}

// SleepRecommendation is what a sleep analysis service suggests for an alarm.
type SleepRecommendation struct {
	RecommendedTime string  `json:"recommendedTime"`
	Confidence      float64 `json:"confidence"`
	Reason          string  `json:"reason"`
}

// ConditionalRuleType names a per-occurrence skip rule.
type ConditionalRuleType string

const (
	SkipHolidays ConditionalRuleType = "skip_holidays"
	SkipWeekends ConditionalRuleType = "skip_weekends"
	SkipDates    ConditionalRuleType = "skip_dates"
)

// ConditionalRule is checked against each occurrence right before a notification is scheduled.
type ConditionalRule struct {
	Type    ConditionalRuleType `json:"type"`
	Enabled bool                `json:"enabled"`
	Dates   []string            `json:"dates,omitempty"`
}

func (r *ConditionalRule) Validate() error {
	switch r.Type {
	case SkipHolidays, SkipWeekends:
	case SkipDates:
		for _, d := range r.Dates {
			if _, err := time.Parse(DateLayout, d); err != nil {
				return fmt.Errorf("%w: skip date %q", shared.ErrInvalidInput, d)
			}
		}
	default:
		return fmt.Errorf("%w: unknown conditional rule %q", shared.ErrInvalidInput, r.Type)
	}
	return nil
}
