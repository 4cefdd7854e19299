package scheduling

import (
	"slices"
	"time"

	"github.com/desertthunder/smartwake/internal/models"
)

const (
	gradualWakeupLead = 5 * time.Minute
	winterShift       = 10 * time.Minute
)

// winterMonths are the months the seasonal optimization treats as dark mornings.
var winterMonths = []time.Month{time.December, time.January, time.February}

// Optimizer moves notification instants for an alarm's enabled smart optimizations.
// Occurrences themselves are never changed.
type Optimizer struct{}

// Apply returns the notification instant for occ and the names of the optimizations
// that moved it.
func (Optimizer) Apply(alarm *models.Alarm, occ time.Time) (time.Time, []string) {
	at := occ
	var applied []string
	if alarm.OptimizationEnabled(models.OptimizationGradualWakeup) {
		at = at.Add(-gradualWakeupLead)
		applied = append(applied, models.OptimizationGradualWakeup)
	}
	if alarm.OptimizationEnabled(models.OptimizationSeasonal) && slices.Contains(winterMonths, occ.Month()) {
		at = at.Add(-winterShift)
		applied = append(applied, models.OptimizationSeasonal)
	}
	return at, applied
}

// skipRule returns the first enabled conditional rule that suppresses the occurrence.
func skipRule(alarm *models.Alarm, occ time.Time, holidays HolidayChecker) (models.ConditionalRuleType, bool) {
	for _, r := range alarm.ConditionalRules {
		if !r.Enabled {
			continue
		}
		switch r.Type {
		case models.SkipHolidays:
			if holidays != nil && holidays.IsHoliday(occ) {
				return r.Type, true
			}
		case models.SkipWeekends:
			if wd := occ.Weekday(); wd == time.Saturday || wd == time.Sunday {
				return r.Type, true
			}
		case models.SkipDates:
			if slices.Contains(r.Dates, occ.Format(models.DateLayout)) {
				return r.Type, true
			}
		}
	}
	return "", false
}
