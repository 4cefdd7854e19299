package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/smartwake/internal/models"
	"github.com/desertthunder/smartwake/internal/shared"
)

func date(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func alarmWith(hhmm string, p *models.RecurrencePattern) *models.Alarm {
	return &models.Alarm{ID: "a1", Label: "test", Time: hhmm, Enabled: true, Recurrence: p}
}

func TestNextOccurrences(t *testing.T) {
	jan1 := date(2024, 1, 1, 0, 0) // Monday

	tc := []struct {
		name  string
		alarm *models.Alarm
		from  time.Time
		count int
		want  []time.Time
	}{
		{
			name:  "daily from after today's time",
			alarm: alarmWith("07:00", &models.RecurrencePattern{Type: models.RecurrenceDaily, Interval: 1}),
			from:  date(2024, 1, 1, 8, 0),
			count: 2,
			want:  []time.Time{date(2024, 1, 2, 7, 0), date(2024, 1, 3, 7, 0)},
		},
		{
			name:  "weekly mon wed fri from tuesday",
			alarm: alarmWith("06:30", &models.RecurrencePattern{Type: models.RecurrenceWeekly, Interval: 1, DaysOfWeek: []int{1, 3, 5}}),
			from:  date(2024, 1, 2, 9, 0),
			count: 3,
			want:  []time.Time{date(2024, 1, 3, 6, 30), date(2024, 1, 5, 6, 30), date(2024, 1, 8, 6, 30)},
		},
		{
			name: "daily every other day from start date",
			alarm: alarmWith("07:00", &models.RecurrencePattern{
				Type: models.RecurrenceDaily, Interval: 2, StartDate: ptr(jan1),
			}),
			from:  date(2024, 1, 2, 0, 0),
			count: 3,
			want:  []time.Time{date(2024, 1, 3, 7, 0), date(2024, 1, 5, 7, 0), date(2024, 1, 7, 7, 0)},
		},
		{
			name: "biweekly on monday",
			alarm: alarmWith("08:00", &models.RecurrencePattern{
				Type: models.RecurrenceWeekly, Interval: 2, DaysOfWeek: []int{1}, StartDate: ptr(jan1),
			}),
			from:  date(2024, 1, 1, 9, 0),
			count: 2,
			want:  []time.Time{date(2024, 1, 15, 8, 0), date(2024, 1, 29, 8, 0)},
		},
		{
			name:  "workdays skip the weekend",
			alarm: alarmWith("07:15", &models.RecurrencePattern{Type: models.RecurrenceWorkdays, StartDate: ptr(jan1)}),
			from:  date(2024, 1, 5, 8, 0), // Friday after the alarm
			count: 2,
			want:  []time.Time{date(2024, 1, 8, 7, 15), date(2024, 1, 9, 7, 15)},
		},
		{
			name:  "weekends only",
			alarm: alarmWith("09:00", &models.RecurrencePattern{Type: models.RecurrenceWeekends, StartDate: ptr(jan1)}),
			from:  date(2024, 1, 1, 0, 0),
			count: 3,
			want:  []time.Time{date(2024, 1, 6, 9, 0), date(2024, 1, 7, 9, 0), date(2024, 1, 13, 9, 0)},
		},
		{
			name: "monthly on explicit days",
			alarm: alarmWith("10:00", &models.RecurrencePattern{
				Type: models.RecurrenceMonthly, Interval: 1, DaysOfMonth: []int{1, 15}, StartDate: ptr(jan1),
			}),
			from:  date(2024, 1, 10, 0, 0),
			count: 3,
			want:  []time.Time{date(2024, 1, 15, 10, 0), date(2024, 2, 1, 10, 0), date(2024, 2, 15, 10, 0)},
		},
		{
			name: "monthly on second tuesday",
			alarm: alarmWith("18:00", &models.RecurrencePattern{
				Type: models.RecurrenceMonthly, Interval: 1, WeeksOfMonth: []int{2}, DaysOfWeek: []int{2}, StartDate: ptr(jan1),
			}),
			from:  jan1,
			count: 2,
			want:  []time.Time{date(2024, 1, 9, 18, 0), date(2024, 2, 13, 18, 0)},
		},
		{
			name: "monthly on last friday",
			alarm: alarmWith("17:00", &models.RecurrencePattern{
				Type: models.RecurrenceMonthly, Interval: 1, WeeksOfMonth: []int{-1}, DaysOfWeek: []int{5}, StartDate: ptr(jan1),
			}),
			from:  jan1,
			count: 2,
			want:  []time.Time{date(2024, 1, 26, 17, 0), date(2024, 2, 23, 17, 0)},
		},
		{
			name: "yearly in march and september",
			alarm: alarmWith("06:00", &models.RecurrencePattern{
				Type: models.RecurrenceYearly, Interval: 1, MonthsOfYear: []int{3, 9}, DaysOfMonth: []int{1}, StartDate: ptr(jan1),
			}),
			from:  jan1,
			count: 3,
			want:  []time.Time{date(2024, 3, 1, 6, 0), date(2024, 9, 1, 6, 0), date(2025, 3, 1, 6, 0)},
		},
		{
			name: "custom dates and offsets merge in order",
			alarm: alarmWith("05:00", &models.RecurrencePattern{
				Type:      models.RecurrenceCustom,
				StartDate: ptr(jan1),
				Custom:    &models.CustomPattern{Dates: []string{"2024-02-01", "2024-01-10"}, DayOffsets: []int{3, 9}},
			}),
			from:  jan1,
			count: 5,
			want:  []time.Time{date(2024, 1, 4, 5, 0), date(2024, 1, 10, 5, 0), date(2024, 2, 1, 5, 0)},
		},
		{
			name:  "plain weekdays behave as weekly",
			alarm: &models.Alarm{Time: "06:00", Days: []int{0}, CreatedAt: jan1},
			from:  jan1,
			count: 2,
			want:  []time.Time{date(2024, 1, 7, 6, 0), date(2024, 1, 14, 6, 0)},
		},
		{
			name:  "one-shot later today",
			alarm: &models.Alarm{Time: "21:00"},
			from:  date(2024, 1, 1, 20, 0),
			count: 3,
			want:  []time.Time{date(2024, 1, 1, 21, 0)},
		},
		{
			name:  "one-shot already passed does not roll over",
			alarm: &models.Alarm{Time: "07:00"},
			from:  date(2024, 1, 1, 8, 0),
			count: 3,
			want:  nil,
		},
		{
			name:  "spent one-shot stays spent on later days",
			alarm: &models.Alarm{Time: "21:00", LastTriggered: ptr(date(2024, 1, 1, 21, 0))},
			from:  date(2024, 1, 3, 20, 0),
			count: 3,
			want:  nil,
		},
		{
			name:  "occurrence equal to from is excluded",
			alarm: alarmWith("07:00", &models.RecurrencePattern{Type: models.RecurrenceDaily, StartDate: ptr(jan1)}),
			from:  date(2024, 1, 1, 7, 0),
			count: 1,
			want:  []time.Time{date(2024, 1, 2, 7, 0)},
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextOccurrences(tt.alarm, tt.from, tt.count)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d occurrences %v, want %d %v", len(got), got, len(tt.want), tt.want)
			}
			for i := range got {
				if !got[i].Equal(tt.want[i]) {
					t.Errorf("occurrence %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestNextOccurrencesEndConditions(t *testing.T) {
	jan1 := date(2024, 1, 1, 0, 0)

	t.Run("endAfterOccurrences caps the series", func(t *testing.T) {
		a := alarmWith("07:00", &models.RecurrencePattern{
			Type: models.RecurrenceDaily, StartDate: ptr(jan1), EndAfterOccurrences: 3,
		})
		got, _ := NextOccurrences(a, jan1, 10)
		if len(got) != 3 {
			t.Fatalf("expected 3 occurrences, got %d", len(got))
		}

		rest, _ := NextOccurrences(a, got[len(got)-1], 10)
		if len(rest) != 0 {
			t.Errorf("series should be exhausted, got %v", rest)
		}
	})

	t.Run("count is measured from the anchor, not from", func(t *testing.T) {
		a := alarmWith("07:00", &models.RecurrencePattern{
			Type: models.RecurrenceDaily, StartDate: ptr(jan1), EndAfterOccurrences: 3,
		})
		got, _ := NextOccurrences(a, date(2024, 1, 2, 8, 0), 10)
		if len(got) != 1 || !got[0].Equal(date(2024, 1, 3, 7, 0)) {
			t.Errorf("expected only Jan 3 to remain, got %v", got)
		}
	})

	t.Run("endDate excludes later instants", func(t *testing.T) {
		a := alarmWith("07:00", &models.RecurrencePattern{
			Type: models.RecurrenceDaily, StartDate: ptr(jan1), EndDate: ptr(date(2024, 1, 4, 7, 0)),
		})
		got, _ := NextOccurrences(a, jan1, 10)
		if len(got) != 4 {
			t.Fatalf("expected 4 occurrences, got %v", got)
		}
		for _, o := range got {
			if o.After(*a.Recurrence.EndDate) {
				t.Errorf("occurrence %v after end date", o)
			}
		}
	})

	t.Run("whichever end comes first wins", func(t *testing.T) {
		a := alarmWith("07:00", &models.RecurrencePattern{
			Type: models.RecurrenceDaily, StartDate: ptr(jan1),
			EndDate: ptr(date(2024, 1, 10, 0, 0)), EndAfterOccurrences: 2,
		})
		got, _ := NextOccurrences(a, jan1, 10)
		if len(got) != 2 {
			t.Errorf("expected 2 occurrences, got %v", got)
		}
	})

	t.Run("exceptions are skipped", func(t *testing.T) {
		a := alarmWith("07:00", &models.RecurrencePattern{
			Type: models.RecurrenceDaily, StartDate: ptr(jan1), Exceptions: []string{"2024-01-02", "2024-01-04"},
		})
		got, _ := NextOccurrences(a, jan1, 3)
		want := []time.Time{date(2024, 1, 1, 7, 0), date(2024, 1, 3, 7, 0), date(2024, 1, 5, 7, 0)}
		for i := range want {
			if !got[i].Equal(want[i]) {
				t.Errorf("occurrence %d = %v, want %v", i, got[i], want[i])
			}
		}
	})

	t.Run("invalid pattern is reported", func(t *testing.T) {
		a := alarmWith("07:00", &models.RecurrencePattern{Type: models.RecurrenceWeekly})
		_, err := NextOccurrences(a, jan1, 1)
		if !errors.Is(err, shared.ErrInvalidRecurrence) {
			t.Errorf("expected ErrInvalidRecurrence, got %v", err)
		}
	})
}

func TestNextOccurrencesProperties(t *testing.T) {
	start := date(2024, 1, 1, 0, 0)
	patterns := map[string]*models.RecurrencePattern{
		"daily/3":    {Type: models.RecurrenceDaily, Interval: 3, StartDate: &start},
		"weekly":     {Type: models.RecurrenceWeekly, DaysOfWeek: []int{0, 2, 4}, StartDate: &start},
		"workdays":   {Type: models.RecurrenceWorkdays, StartDate: &start, Exceptions: []string{"2024-01-17"}},
		"monthly":    {Type: models.RecurrenceMonthly, DaysOfMonth: []int{-1, 10}, StartDate: &start},
		"nth friday": {Type: models.RecurrenceMonthly, WeeksOfMonth: []int{1, 3}, DaysOfWeek: []int{5}, StartDate: &start},
		"yearly":     {Type: models.RecurrenceYearly, MonthsOfYear: []int{2, 6, 11}, StartDate: &start},
	}

	for name, p := range patterns {
		t.Run(name, func(t *testing.T) {
			a := alarmWith("06:45", p)
			from := date(2024, 1, 5, 12, 0)

			first, err := NextOccurrences(a, from, 6)
			if err != nil || len(first) != 6 {
				t.Fatalf("expected 6 occurrences, got %v (%v)", first, err)
			}
			second, _ := NextOccurrences(a, first[len(first)-1], 6)
			combined, _ := NextOccurrences(a, from, 12)

			all := append(first, second...)
			if len(all) != len(combined) {
				t.Fatalf("continuity: chained %d vs single call %d", len(all), len(combined))
			}
			prev := from
			for i := range all {
				if !all[i].Equal(combined[i]) {
					t.Errorf("continuity: occurrence %d = %v, want %v", i, all[i], combined[i])
				}
				if !all[i].After(prev) {
					t.Errorf("monotonicity: %v not after %v", all[i], prev)
				}
				for _, e := range p.Exceptions {
					if all[i].Format(models.DateLayout) == e {
						t.Errorf("exception %s returned", e)
					}
				}
				prev = all[i]
			}
		})
	}
}

func TestNextOccurrencesAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	start := time.Date(2024, 3, 9, 0, 0, 0, 0, ny)
	a := alarmWith("07:00", &models.RecurrencePattern{Type: models.RecurrenceDaily, StartDate: &start})

	got, _ := NextOccurrences(a, start, 3)
	for _, o := range got {
		if o.Hour() != 7 || o.Minute() != 0 {
			t.Errorf("wall clock drifted across DST: %v", o)
		}
	}
}

func TestNextOccurrence(t *testing.T) {
	a := alarmWith("07:00", &models.RecurrencePattern{Type: models.RecurrenceDaily})
	if _, ok := NextOccurrence(a, date(2024, 1, 1, 8, 0)); !ok {
		t.Error("expected an occurrence")
	}
	if _, ok := NextOccurrence(&models.Alarm{Time: "07:00"}, date(2024, 1, 1, 8, 0)); ok {
		t.Error("passed one-shot should have no occurrence")
	}
}
