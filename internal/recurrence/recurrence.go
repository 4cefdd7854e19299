package recurrence

import (
	"fmt"
	"slices"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/desertthunder/smartwake/internal/models"
	"github.com/desertthunder/smartwake/internal/shared"
)

// maxIterations bounds expansion of rules that can never match (e.g. February 30th).
const maxIterations = 100_000

var weekdays = []rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// NextOccurrences returns up to count firing instants strictly after from, in increasing order.
//
// An alarm without a recurrence pattern or weekdays is a one-shot: it yields the alarm's
// time on from's calendar date, or nothing when that instant is not after from. A
// one-shot that has already gone off (LastTriggered set) yields nothing.
// Alarms with weekdays but no pattern repeat weekly on those days.
func NextOccurrences(alarm *models.Alarm, from time.Time, count int) ([]time.Time, error) {
	if alarm == nil || count <= 0 {
		return nil, nil
	}
	hour, minute, err := models.ParseClock(alarm.Time)
	if err != nil {
		return nil, err
	}
	loc := from.Location()

	pattern := EffectivePattern(alarm)
	if pattern == nil {
		if alarm.LastTriggered != nil {
			return nil, nil
		}
		at := time.Date(from.Year(), from.Month(), from.Day(), hour, minute, 0, 0, loc)
		if at.After(from) {
			return []time.Time{at}, nil
		}
		return nil, nil
	}
	if err := pattern.Validate(); err != nil {
		return nil, err
	}

	anchor := Anchor(alarm, pattern, from)
	next, err := iterator(pattern, anchor)
	if err != nil {
		return nil, err
	}

	exceptions := make(map[string]struct{}, len(pattern.Exceptions))
	for _, e := range pattern.Exceptions {
		exceptions[e] = struct{}{}
	}

	var out []time.Time
	generated := 0
	for range maxIterations {
		t, ok := next()
		if !ok {
			break
		}
		generated++
		if pattern.EndAfterOccurrences > 0 && generated > pattern.EndAfterOccurrences {
			break
		}
		if pattern.EndDate != nil && t.After(*pattern.EndDate) {
			break
		}
		if !t.After(from) {
			continue
		}
		if _, skip := exceptions[t.In(loc).Format(models.DateLayout)]; skip {
			continue
		}
		out = append(out, t)
		if len(out) == count {
			break
		}
	}
	return out, nil
}

// NextOccurrence returns the first occurrence after from, if any.
func NextOccurrence(alarm *models.Alarm, from time.Time) (time.Time, bool) {
	occ, err := NextOccurrences(alarm, from, 1)
	if err != nil || len(occ) == 0 {
		return time.Time{}, false
	}
	return occ[0], true
}

// EffectivePattern returns the alarm's recurrence pattern, synthesizing a weekly pattern
// from plain weekdays. It returns nil for one-shot alarms.
func EffectivePattern(alarm *models.Alarm) *models.RecurrencePattern {
	if alarm.Recurrence != nil {
		return alarm.Recurrence
	}
	if len(alarm.Days) > 0 {
		return &models.RecurrencePattern{
			Type:       models.RecurrenceWeekly,
			Interval:   1,
			DaysOfWeek: alarm.Days,
		}
	}
	return nil
}

// Anchor is the first instant of the series: the pattern's start date, else the alarm's
// creation date, at the alarm's time of day in from's location.
func Anchor(alarm *models.Alarm, pattern *models.RecurrencePattern, from time.Time) time.Time {
	loc := from.Location()
	base := from
	switch {
	case pattern != nil && pattern.StartDate != nil:
		base = *pattern.StartDate
	case !alarm.CreatedAt.IsZero():
		base = alarm.CreatedAt
	}
	base = base.In(loc)
	hour, minute, _ := models.ParseClock(alarm.Time)
	return time.Date(base.Year(), base.Month(), base.Day(), hour, minute, 0, 0, loc)
}

func iterator(p *models.RecurrencePattern, anchor time.Time) (func() (time.Time, bool), error) {
	if p.Type == models.RecurrenceCustom {
		return customIterator(p, anchor), nil
	}
	opt, err := ruleOption(p, anchor)
	if err != nil {
		return nil, err
	}
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidRecurrence, err)
	}
	return r.Iterator(), nil
}

// ruleOption maps a non-custom pattern onto RFC 5545 rule parts. End conditions are
// enforced by the caller so the count can include skipped exceptions.
func ruleOption(p *models.RecurrencePattern, anchor time.Time) (*rrule.ROption, error) {
	opt := rrule.ROption{
		Dtstart:  anchor,
		Interval: p.EffectiveInterval(),
		Wkst:     rrule.SU,
	}

	switch p.Type {
	case models.RecurrenceDaily:
		opt.Freq = rrule.DAILY
	case models.RecurrenceWeekly:
		opt.Freq = rrule.WEEKLY
		opt.Byweekday = toWeekdays(p.DaysOfWeek)
	case models.RecurrenceWorkdays:
		opt.Freq = rrule.WEEKLY
		opt.Byweekday = []rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR}
	case models.RecurrenceWeekends:
		opt.Freq = rrule.WEEKLY
		opt.Byweekday = []rrule.Weekday{rrule.SA, rrule.SU}
	case models.RecurrenceMonthly:
		opt.Freq = rrule.MONTHLY
		if len(p.WeeksOfMonth) > 0 {
			for _, w := range p.WeeksOfMonth {
				for _, d := range p.DaysOfWeek {
					opt.Byweekday = append(opt.Byweekday, weekdays[d].Nth(w))
				}
			}
		} else if len(p.DaysOfMonth) > 0 {
			opt.Bymonthday = slices.Clone(p.DaysOfMonth)
		}
	case models.RecurrenceYearly:
		opt.Freq = rrule.YEARLY
		opt.Bymonth = slices.Clone(p.MonthsOfYear)
		if len(p.DaysOfMonth) > 0 {
			opt.Bymonthday = slices.Clone(p.DaysOfMonth)
		}
	default:
		return nil, fmt.Errorf("%w: cannot build rule for %q", shared.ErrInvalidRecurrence, p.Type)
	}
	return &opt, nil
}

func toWeekdays(days []int) []rrule.Weekday {
	out := make([]rrule.Weekday, 0, len(days))
	for _, d := range days {
		out = append(out, weekdays[d])
	}
	return out
}

// customIterator yields explicit dates and anchor-relative day offsets in order.
func customIterator(p *models.RecurrencePattern, anchor time.Time) func() (time.Time, bool) {
	loc := anchor.Location()
	seen := map[int64]struct{}{}
	var instants []time.Time
	add := func(t time.Time) {
		if t.Before(anchor) {
			return
		}
		if _, dup := seen[t.Unix()]; dup {
			return
		}
		seen[t.Unix()] = struct{}{}
		instants = append(instants, t)
	}

	for _, d := range p.Custom.Dates {
		day, err := time.ParseInLocation(models.DateLayout, d, loc)
		if err != nil {
			continue
		}
		add(time.Date(day.Year(), day.Month(), day.Day(), anchor.Hour(), anchor.Minute(), 0, 0, loc))
	}
	for _, off := range p.Custom.DayOffsets {
		add(anchor.AddDate(0, 0, off))
	}
	slices.SortFunc(instants, func(a, b time.Time) int { return a.Compare(b) })

	i := 0
	return func() (time.Time, bool) {
		if i >= len(instants) {
			return time.Time{}, false
		}
		t := instants[i]
		i++
		return t, true
	}
}
