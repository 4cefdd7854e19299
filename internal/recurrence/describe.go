package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/smartwake/internal/models"
)

var dayNames = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Describe renders the alarm's firing rule as a short human-readable phrase.
func Describe(alarm *models.Alarm) string {
	p := EffectivePattern(alarm)
	if p == nil {
		return "once at " + alarm.Time
	}

	every := func(unit string) string {
		if n := p.EffectiveInterval(); n > 1 {
			return fmt.Sprintf("every %d %ss", n, unit)
		}
		return "every " + unit
	}

	var b strings.Builder
	switch p.Type {
	case models.RecurrenceDaily:
		b.WriteString(every("day"))
	case models.RecurrenceWeekly:
		b.WriteString(every("week"))
		b.WriteString(" on " + joinDays(p.DaysOfWeek))
	case models.RecurrenceWorkdays:
		b.WriteString("workdays")
	case models.RecurrenceWeekends:
		b.WriteString("weekends")
	case models.RecurrenceMonthly:
		b.WriteString(every("month"))
		switch {
		case len(p.WeeksOfMonth) > 0:
			fmt.Fprintf(&b, " on week %v %s", p.WeeksOfMonth, joinDays(p.DaysOfWeek))
		case len(p.DaysOfMonth) > 0:
			fmt.Fprintf(&b, " on day %v", p.DaysOfMonth)
		}
	case models.RecurrenceYearly:
		b.WriteString(every("year"))
		months := make([]string, 0, len(p.MonthsOfYear))
		for _, m := range p.MonthsOfYear {
			months = append(months, time.Month(m).String()[:3])
		}
		b.WriteString(" in " + strings.Join(months, ", "))
	case models.RecurrenceCustom:
		n := 0
		if p.Custom != nil {
			n = len(p.Custom.Dates) + len(p.Custom.DayOffsets)
		}
		fmt.Fprintf(&b, "custom (%d dates)", n)
	}
	b.WriteString(" at " + alarm.Time)

	if p.EndAfterOccurrences > 0 {
		fmt.Fprintf(&b, ", %d times", p.EndAfterOccurrences)
	}
	if p.EndDate != nil {
		b.WriteString(", until " + p.EndDate.Format(models.DateLayout))
	}
	return b.String()
}

func joinDays(days []int) string {
	names := make([]string, 0, len(days))
	for _, d := range days {
		if d >= 0 && d < len(dayNames) {
			names = append(names, dayNames[d])
		}
	}
	return strings.Join(names, ", ")
}

// RuleString returns the RFC 5545 RRULE value for the alarm, anchored in loc.
// One-shot and custom alarms have no rule and return "".
func RuleString(alarm *models.Alarm, loc *time.Location) (string, error) {
	p := EffectivePattern(alarm)
	if p == nil || p.Type == models.RecurrenceCustom {
		return "", nil
	}
	if err := p.Validate(); err != nil {
		return "", err
	}
	anchor := Anchor(alarm, p, time.Now().In(loc))
	opt, err := ruleOption(p, anchor)
	if err != nil {
		return "", err
	}
	opt.Count = p.EndAfterOccurrences
	if p.EndDate != nil {
		opt.Until = *p.EndDate
	}
	return opt.RRuleString(), nil
}
