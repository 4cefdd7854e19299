package services

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/emersion/go-ical"
	"github.com/spf13/afero"
	"github.com/teambition/rrule-go"

	"github.com/desertthunder/smartwake/internal/models"
	"github.com/desertthunder/smartwake/internal/shared"
)

// maxEventDays caps how many days a single holiday event may cover.
const maxEventDays = 31

// Holiday is one calendar date marked as a holiday.
type Holiday struct {
	Date string `json:"date"` // "YYYY-MM-DD"
	Name string `json:"name"`
}

// HolidayCalendar answers whether a date is a holiday. It is filled from iCalendar
// feeds; recurring events are expanded inside the window passed to the loader.
type HolidayCalendar struct {
	mu     sync.RWMutex
	days   map[string]string
	loc    *time.Location
	logger *log.Logger
}

func NewHolidayCalendar(loc *time.Location, logger *log.Logger) *HolidayCalendar {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &HolidayCalendar{
		days:   make(map[string]string),
		loc:    loc,
		logger: shared.WithLogger(logger, "component", "holidays"),
	}
}

// Add marks the calendar date of t as a holiday.
func (h *HolidayCalendar) Add(t time.Time, name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.days[t.In(h.loc).Format(models.DateLayout)] = name
}

// IsHoliday reports whether the calendar date of t is a holiday.
func (h *HolidayCalendar) IsHoliday(t time.Time) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.days[t.In(h.loc).Format(models.DateLayout)]
	return ok
}

// Holidays returns every known holiday in date order.
func (h *HolidayCalendar) Holidays() []Holiday {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Holiday, 0, len(h.days))
	for d, name := range h.days {
		out = append(out, Holiday{Date: d, Name: name})
	}
	slices.SortFunc(out, func(a, b Holiday) int { return strings.Compare(a.Date, b.Date) })
	return out
}

// LoadFile reads an .ics file. Recurring events are expanded between from and to.
func (h *HolidayCalendar) LoadFile(fs afero.Fs, path string, from, to time.Time) (int, error) {
	f, err := fs.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open holiday calendar: %w", err)
	}
	defer f.Close()
	return h.Parse(f, from, to)
}

// LoadURL fetches an iCalendar feed over HTTP.
func (h *HolidayCalendar) LoadURL(ctx context.Context, client *http.Client, url string, from, to time.Time) (int, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch holiday calendar: %w", err)
	}
	defer resp.Body.Close()

	if err := (&Response{StatusCode: resp.StatusCode}).Err(); err != nil {
		return 0, err
	}
	return h.Parse(resp.Body, from, to)
}

// Parse decodes iCalendar data and returns how many holiday dates were added.
func (h *HolidayCalendar) Parse(r io.Reader, from, to time.Time) (int, error) {
	dec := ical.NewDecoder(r)
	added := 0
	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return added, fmt.Errorf("%w: failed to decode calendar: %v", shared.ErrInvalidInput, err)
		}

		for _, comp := range cal.Children {
			if comp.Name != ical.CompEvent {
				continue
			}
			n, err := h.addEvent(comp, from, to)
			if err != nil {
				h.logger.Warn("skipping holiday event", "err", err)
				continue
			}
			added += n
		}
	}
	h.logger.Debug("loaded holiday calendar", "dates", added)
	return added, nil
}

func (h *HolidayCalendar) addEvent(comp *ical.Component, from, to time.Time) (int, error) {
	startProp := comp.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return 0, fmt.Errorf("event has no DTSTART")
	}
	start, err := h.parseDate(startProp)
	if err != nil {
		return 0, err
	}

	span := 1
	if endProp := comp.Props.Get(ical.PropDateTimeEnd); endProp != nil {
		if end, err := h.parseDate(endProp); err == nil {
			if days := int(math.Round(end.Sub(start).Hours() / 24)); days > 1 {
				span = min(days, maxEventDays)
			}
		}
	}

	name := ""
	if p := comp.Props.Get(ical.PropSummary); p != nil {
		name = p.Value
	}

	starts := []time.Time{start}
	if p := comp.Props.Get(ical.PropRecurrenceRule); p != nil {
		opt, err := rrule.StrToROption(p.Value)
		if err != nil {
			return 0, fmt.Errorf("bad RRULE %q: %w", p.Value, err)
		}
		opt.Dtstart = start
		rule, err := rrule.NewRRule(*opt)
		if err != nil {
			return 0, fmt.Errorf("bad RRULE %q: %w", p.Value, err)
		}
		starts = rule.Between(from.AddDate(0, 0, -span), to, true)
	}

	n := 0
	for _, s := range starts {
		for d := range span {
			h.Add(s.AddDate(0, 0, d), name)
			n++
		}
	}
	return n, nil
}

func (h *HolidayCalendar) parseDate(p *ical.Prop) (time.Time, error) {
	if t, err := p.DateTime(h.loc); err == nil {
		t = t.In(h.loc)
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, h.loc), nil
	}
	for _, layout := range []string{"20060102", models.DateLayout} {
		if t, err := time.ParseInLocation(layout, p.Value, h.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date value: %s", p.Value)
}
