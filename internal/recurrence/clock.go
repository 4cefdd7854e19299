package recurrence

import (
	"time"

	"github.com/desertthunder/smartwake/internal/models"
)

const minutesPerDay = 24 * 60

// AdjustTimeByMinutes shifts a local "HH:MM" time of day by delta minutes, wrapping
// around midnight. The day boundary crossing is not reported; see [AdjustTimeWithRollover].
func AdjustTimeByMinutes(hhmm string, delta int) (string, error) {
	out, _, err := AdjustTimeWithRollover(hhmm, delta)
	return out, err
}

// AdjustTimeWithRollover is [AdjustTimeByMinutes] that also returns how many day
// boundaries the shift crossed: +1 for "23:50" + 20m, -1 for "00:10" - 20m, 0 when the
// result stays on the same day.
func AdjustTimeWithRollover(hhmm string, delta int) (string, int, error) {
	hour, minute, err := models.ParseClock(hhmm)
	if err != nil {
		return "", 0, err
	}
	total := hour*60 + minute + delta
	days := floorDiv(total, minutesPerDay)
	total -= days * minutesPerDay
	return models.FormatClock(total/60, total%60), days, nil
}

// MinutesBetween returns the signed shortest distance from a to b on a 24-hour clock,
// in [-720, 720).
func MinutesBetween(a, b string) (int, error) {
	ah, am, err := models.ParseClock(a)
	if err != nil {
		return 0, err
	}
	bh, bm, err := models.ParseClock(b)
	if err != nil {
		return 0, err
	}
	d := (bh*60 + bm) - (ah*60 + am)
	d = ((d+720)%minutesPerDay+minutesPerDay)%minutesPerDay - 720
	return d, nil
}

// At combines the calendar date of day with a local "HH:MM" time in day's location.
func At(day time.Time, hhmm string) (time.Time, error) {
	hour, minute, err := models.ParseClock(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location()), nil
}

// FormatTime renders the local time of day of t as "HH:MM".
func FormatTime(t time.Time) string {
	return t.Format("15:04")
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
