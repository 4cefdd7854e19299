package models

import (
	"fmt"
	"slices"
	"time"

	"github.com/desertthunder/smartwake/internal/shared"
)

// RecurrenceType tags the variant carried by a [RecurrencePattern].
type RecurrenceType string

const (
	RecurrenceDaily    RecurrenceType = "daily"
	RecurrenceWeekly   RecurrenceType = "weekly"
	RecurrenceMonthly  RecurrenceType = "monthly"
	RecurrenceYearly   RecurrenceType = "yearly"
	RecurrenceWorkdays RecurrenceType = "workdays"
	RecurrenceWeekends RecurrenceType = "weekends"
	RecurrenceCustom   RecurrenceType = "custom"
)

// DateLayout is the calendar-date format used for exceptions and custom dates.
const DateLayout = "2006-01-02"

// RecurrencePattern is a tagged recurrence rule. Only the fields relevant to Type are read.
//
// When both EndDate and EndAfterOccurrences are set, whichever ends the series first wins.
type RecurrencePattern struct {
	Type     RecurrenceType `json:"type"`
	Interval int            `json:"interval"`

	DaysOfWeek   []int          `json:"daysOfWeek,omitempty"`   // 0 = Sunday
	DaysOfMonth  []int          `json:"daysOfMonth,omitempty"`  // 1..31, negative counts from month end
	WeeksOfMonth []int          `json:"weeksOfMonth,omitempty"` // 1..5, -1 = last
	MonthsOfYear []int          `json:"monthsOfYear,omitempty"` // 1..12
	Custom       *CustomPattern `json:"customPattern,omitempty"`

	StartDate           *time.Time `json:"startDate,omitempty"`
	EndDate             *time.Time `json:"endDate,omitempty"`
	EndAfterOccurrences int        `json:"endAfterOccurrences,omitempty"`
	Exceptions          []string   `json:"exceptions,omitempty"` // "YYYY-MM-DD"
}

// CustomPattern holds explicit calendar dates or day offsets from the pattern anchor.
type CustomPattern struct {
	Dates      []string `json:"dates,omitempty"`
	DayOffsets []int    `json:"dayOffsets,omitempty"`
}

// EffectiveInterval returns Interval, treating zero or negative values as 1.
func (p *RecurrencePattern) EffectiveInterval() int {
	if p.Interval < 1 {
		return 1
	}
	return p.Interval
}

// Validate reports malformed rules as [shared.ErrInvalidRecurrence].
func (p *RecurrencePattern) Validate() error {
	switch p.Type {
	case RecurrenceDaily, RecurrenceWorkdays, RecurrenceWeekends:
	case RecurrenceWeekly:
		if len(p.DaysOfWeek) == 0 {
			return fmt.Errorf("%w: weekly pattern needs daysOfWeek", shared.ErrInvalidRecurrence)
		}
	case RecurrenceMonthly:
		if len(p.WeeksOfMonth) > 0 && len(p.DaysOfWeek) == 0 {
			return fmt.Errorf("%w: weeksOfMonth needs daysOfWeek", shared.ErrInvalidRecurrence)
		}
	case RecurrenceYearly:
		if len(p.MonthsOfYear) == 0 {
			return fmt.Errorf("%w: yearly pattern needs monthsOfYear", shared.ErrInvalidRecurrence)
		}
	case RecurrenceCustom:
		if p.Custom == nil || (len(p.Custom.Dates) == 0 && len(p.Custom.DayOffsets) == 0) {
			return fmt.Errorf("%w: custom pattern needs dates or dayOffsets", shared.ErrInvalidRecurrence)
		}
		for _, d := range p.Custom.Dates {
			if _, err := time.Parse(DateLayout, d); err != nil {
				return fmt.Errorf("%w: custom date %q", shared.ErrInvalidRecurrence, d)
			}
		}
		for _, off := range p.Custom.DayOffsets {
			if off < 0 {
				return fmt.Errorf("%w: negative day offset %d", shared.ErrInvalidRecurrence, off)
			}
		}
	default:
		return fmt.Errorf("%w: unknown type %q", shared.ErrInvalidRecurrence, p.Type)
	}

	if p.Interval < 0 {
		return fmt.Errorf("%w: interval must be positive", shared.ErrInvalidRecurrence)
	}
	if p.EndAfterOccurrences < 0 {
		return fmt.Errorf("%w: endAfterOccurrences must be positive", shared.ErrInvalidRecurrence)
	}
	for _, d := range p.DaysOfWeek {
		if d < 0 || d > 6 {
			return fmt.Errorf("%w: weekday %d out of range", shared.ErrInvalidRecurrence, d)
		}
	}
	for _, d := range p.DaysOfMonth {
		if d == 0 || d < -31 || d > 31 {
			return fmt.Errorf("%w: day of month %d out of range", shared.ErrInvalidRecurrence, d)
		}
	}
	for _, w := range p.WeeksOfMonth {
		if w == 0 || w < -1 || w > 5 {
			return fmt.Errorf("%w: week of month %d out of range", shared.ErrInvalidRecurrence, w)
		}
	}
	for _, m := range p.MonthsOfYear {
		if m < 1 || m > 12 {
			return fmt.Errorf("%w: month %d out of range", shared.ErrInvalidRecurrence, m)
		}
	}
	for _, e := range p.Exceptions {
		if _, err := time.Parse(DateLayout, e); err != nil {
			return fmt.Errorf("%w: exception %q", shared.ErrInvalidRecurrence, e)
		}
	}
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return fmt.Errorf("%w: endDate before startDate", shared.ErrInvalidRecurrence)
	}
	return nil
}

// Clone returns a deep copy of the pattern.
func (p *RecurrencePattern) Clone() *RecurrencePattern {
	if p == nil {
		return nil
	}
	c := *p
	c.DaysOfWeek = slices.Clone(p.DaysOfWeek)
	c.DaysOfMonth = slices.Clone(p.DaysOfMonth)
	c.WeeksOfMonth = slices.Clone(p.WeeksOfMonth)
	c.MonthsOfYear = slices.Clone(p.MonthsOfYear)
	c.Exceptions = slices.Clone(p.Exceptions)
	if p.Custom != nil {
		c.Custom = &CustomPattern{
			Dates:      slices.Clone(p.Custom.Dates),
			DayOffsets: slices.Clone(p.Custom.DayOffsets),
		}
	}
	if p.StartDate != nil {
		t := *p.StartDate
		c.StartDate = &t
	}
	if p.EndDate != nil {
		t := *p.EndDate
		c.EndDate = &t
	}
	return &c
}
