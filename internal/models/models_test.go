package models

import (
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/smartwake/internal/shared"
)

func TestParseClock(t *testing.T) {
	tc := []struct {
		name    string
		in      string
		hour    int
		minute  int
		wantErr bool
	}{
		{name: "morning", in: "07:00", hour: 7, minute: 0},
		{name: "late", in: "23:59", hour: 23, minute: 59},
		{name: "single digit hour", in: "6:30", hour: 6, minute: 30},
		{name: "hour out of range", in: "24:00", wantErr: true},
		{name: "minute out of range", in: "07:60", wantErr: true},
		{name: "garbage", in: "seven", wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			h, m, err := ParseClock(tt.in)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidTime) {
					t.Fatalf("expected ErrInvalidTime, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if h != tt.hour || m != tt.minute {
				t.Errorf("ParseClock(%q) = %d:%d, want %d:%d", tt.in, h, m, tt.hour, tt.minute)
			}
		})
	}
}

func TestAlarmValidate(t *testing.T) {
	valid := func() *Alarm { return NewAlarm("Work", "06:45") }

	tc := []struct {
		name    string
		mutate  func(a *Alarm)
		wantErr error
	}{
		{name: "valid", mutate: func(a *Alarm) {}},
		{name: "missing label", mutate: func(a *Alarm) { a.Label = " " }, wantErr: shared.ErrInvalidInput},
		{name: "bad time", mutate: func(a *Alarm) { a.Time = "6am" }, wantErr: shared.ErrInvalidTime},
		{name: "bad weekday", mutate: func(a *Alarm) { a.Days = []int{7} }, wantErr: shared.ErrInvalidInput},
		{
			name:    "weekly without days",
			mutate:  func(a *Alarm) { a.Recurrence = &RecurrencePattern{Type: RecurrenceWeekly, Interval: 1} },
			wantErr: shared.ErrInvalidRecurrence,
		},
		{
			name:    "unknown recurrence",
			mutate:  func(a *Alarm) { a.Recurrence = &RecurrencePattern{Type: "hourly"} },
			wantErr: shared.ErrInvalidRecurrence,
		},
		{
			name: "bad exception date",
			mutate: func(a *Alarm) {
				a.Recurrence = &RecurrencePattern{Type: RecurrenceDaily, Exceptions: []string{"01/02/2024"}}
			},
			wantErr: shared.ErrInvalidRecurrence,
		},
		{
			name: "rule with bad operator",
			mutate: func(a *Alarm) {
				a.ConditionBasedAdjustments = []ConditionRule{{Field: "weather.condition", Operator: "like", Priority: 5}}
			},
			wantErr: shared.ErrInvalidInput,
		},
		{
			name: "rule with effectiveness above one",
			mutate: func(a *Alarm) {
				a.ConditionBasedAdjustments = []ConditionRule{{
					Field: "weather.condition", Operator: OpEquals, Priority: 5, Effectiveness: 1.5,
				}}
			},
			wantErr: shared.ErrInvalidInput,
		},
		{
			name:    "unknown feedback",
			mutate:  func(a *Alarm) { a.WakeUpFeedback = []WakeFeedback{{Difficulty: "brutal"}} },
			wantErr: shared.ErrInvalidInput,
		},
		{
			name:    "unknown conditional rule",
			mutate:  func(a *Alarm) { a.ConditionalRules = []ConditionalRule{{Type: "skip_mondays"}} },
			wantErr: shared.ErrInvalidInput,
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			a := valid()
			tt.mutate(a)
			err := a.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAlarmClone(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := NewAlarm("Gym", "05:30")
	a.Days = []int{1, 3}
	a.Recurrence = &RecurrencePattern{Type: RecurrenceWeekly, DaysOfWeek: []int{1}, StartDate: &start}
	a.ConditionalRules = []ConditionalRule{{Type: SkipDates, Dates: []string{"2024-01-08"}}}

	c := a.Clone()
	c.Days[0] = 6
	c.Recurrence.DaysOfWeek[0] = 5
	*c.Recurrence.StartDate = start.AddDate(1, 0, 0)
	c.ConditionalRules[0].Dates[0] = "2030-01-01"

	if a.Days[0] != 1 || a.Recurrence.DaysOfWeek[0] != 1 {
		t.Error("clone shares slices with the original")
	}
	if !a.Recurrence.StartDate.Equal(start) {
		t.Error("clone shares start date with the original")
	}
	if a.ConditionalRules[0].Dates[0] != "2024-01-08" {
		t.Error("clone shares conditional rule dates with the original")
	}
}

func TestConditionsLookup(t *testing.T) {
	c := Conditions{
		Weather: WeatherConditions{Condition: "snow", TemperatureC: -4.5, Alerts: []string{"ice", "wind"}},
		Traffic: TrafficConditions{DelayMinutes: 25, Severity: TrafficHeavy},
	}

	for _, field := range ConditionFields {
		if _, ok := c.Lookup(field); !ok {
			t.Errorf("field %q listed but not resolvable", field)
		}
	}

	if v, _ := c.Lookup("weather.temperature"); v.Kind != KindNumber || v.Num != -4.5 {
		t.Errorf("unexpected temperature value: %+v", v)
	}
	if v, _ := c.Lookup("weather.alerts"); v.String() != "ice,wind" {
		t.Errorf("unexpected alerts value: %q", v.String())
	}
	if _, ok := c.Lookup("weather.humidity"); ok {
		t.Error("unknown field should not resolve")
	}
}

func TestDifficultyOrdinal(t *testing.T) {
	if v, ok := DifficultyVeryEasy.Ordinal(); !ok || v != 0 {
		t.Errorf("very_easy = %d, %v", v, ok)
	}
	if v, ok := DifficultyVeryHard.Ordinal(); !ok || v != 4 {
		t.Errorf("very_hard = %d, %v", v, ok)
	}
	if _, ok := Difficulty("impossible").Ordinal(); ok {
		t.Error("unknown difficulty should not map")
	}
}

func TestTriggerWeight(t *testing.T) {
	tr := AdaptationTrigger{Priority: 8, Confidence: 0.8}
	if got := tr.Weight(); got < 6.39 || got > 6.41 {
		t.Errorf("Weight() = %v, want 6.4", got)
	}
}
