// package models defines the data model for the smartwake scheduler
package models

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/smartwake/internal/shared"
)

// Optimization names a smart optimization that can be switched on per alarm.
type Optimization struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// Known smart optimizations.
const (
	OptimizationGradualWakeup = "gradual_wakeup" // pre-alarm a few minutes before the occurrence
	OptimizationSeasonal      = "seasonal"       // earlier wake-up during winter months
)

// Alarm is the unit of scheduling. The orchestrator owns the collection; the recurrence
// engine, asset coordinator and adaptive scheduler only read it.
type Alarm struct {
	ID     string `json:"id"`
	UserID string `json:"userId,omitempty"`
	Label  string `json:"label"`

	Time       string             `json:"time"`           // local "HH:MM"
	Days       []int              `json:"days,omitempty"` // weekday indices, 0 = Sunday
	Recurrence *RecurrencePattern `json:"recurrencePattern,omitempty"`

	Enabled         bool       `json:"enabled"`
	SnoozeCount     int        `json:"snoozeCount"`     // resets on dismiss
	LifetimeSnoozes int        `json:"lifetimeSnoozes"` // never resets
	LastTriggered   *time.Time `json:"lastTriggered,omitempty"`

	SoundURL  string `json:"soundUrl,omitempty"`
	VoiceMood string `json:"voiceMood,omitempty"`
	Message   string `json:"message,omitempty"`

	RealTimeAdaptation        bool              `json:"realTimeAdaptation"`
	ConditionBasedAdjustments []ConditionRule   `json:"conditionBasedAdjustments,omitempty"`
	WakeUpFeedback            []WakeFeedback    `json:"wakeUpFeedback,omitempty"`
	SmartOptimizations        []Optimization    `json:"smartOptimizations,omitempty"`
	ConditionalRules          []ConditionalRule `json:"conditionalRules,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewAlarm creates an enabled alarm with timestamps set to now. The ID is assigned on persistence.
func NewAlarm(label, hhmm string) *Alarm {
	now := time.Now()
	return &Alarm{
		Label:     label,
		Time:      hhmm,
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks the firing rule and every attached rule.
func (a *Alarm) Validate() error {
	if strings.TrimSpace(a.Label) == "" {
		return fmt.Errorf("%w: alarm label is required", shared.ErrInvalidInput)
	}
	if _, _, err := ParseClock(a.Time); err != nil {
		return err
	}
	for _, d := range a.Days {
		if d < 0 || d > 6 {
			return fmt.Errorf("%w: weekday index %d out of range 0-6", shared.ErrInvalidInput, d)
		}
	}
	if a.Recurrence != nil {
		if err := a.Recurrence.Validate(); err != nil {
			return err
		}
	}
	for i := range a.ConditionBasedAdjustments {
		if err := a.ConditionBasedAdjustments[i].Validate(); err != nil {
			return err
		}
	}
	for i := range a.WakeUpFeedback {
		if err := a.WakeUpFeedback[i].Validate(); err != nil {
			return err
		}
	}
	for i := range a.ConditionalRules {
		if err := a.ConditionalRules[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy so callers can mutate without sharing slices.
func (a *Alarm) Clone() *Alarm {
	if a == nil {
		return nil
	}
	c := *a
	c.Days = slices.Clone(a.Days)
	if a.Recurrence != nil {
		c.Recurrence = a.Recurrence.Clone()
	}
	if a.LastTriggered != nil {
		t := *a.LastTriggered
		c.LastTriggered = &t
	}
	c.ConditionBasedAdjustments = slices.Clone(a.ConditionBasedAdjustments)
	c.WakeUpFeedback = slices.Clone(a.WakeUpFeedback)
	c.SmartOptimizations = slices.Clone(a.SmartOptimizations)
	c.ConditionalRules = make([]ConditionalRule, len(a.ConditionalRules))
	for i, r := range a.ConditionalRules {
		r.Dates = slices.Clone(r.Dates)
		c.ConditionalRules[i] = r
	}
	if a.ConditionalRules == nil {
		c.ConditionalRules = nil
	}
	return &c
}

// OptimizationEnabled reports whether the named smart optimization is switched on.
func (a *Alarm) OptimizationEnabled(name string) bool {
	for _, o := range a.SmartOptimizations {
		if o.Name == name {
			return o.Enabled
		}
	}
	return false
}

// DuplicateKey identifies alarms that are considered the same during import.
func (a *Alarm) DuplicateKey() string {
	return shared.NormalizeLabel(a.Label) + "|" + a.Time
}

// IsRecurring reports whether the alarm fires more than once.
func (a *Alarm) IsRecurring() bool {
	return a.Recurrence != nil || len(a.Days) > 0
}

// ParseClock parses a local "HH:MM" time of day.
func ParseClock(hhmm string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(hhmm), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q is not HH:MM", shared.ErrInvalidTime, hhmm)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: bad hour in %q", shared.ErrInvalidTime, hhmm)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: bad minute in %q", shared.ErrInvalidTime, hhmm)
	}
	return hour, minute, nil
}

// FormatClock renders hour and minute as "HH:MM".
func FormatClock(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}
