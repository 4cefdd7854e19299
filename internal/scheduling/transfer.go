package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/desertthunder/smartwake/internal/models"
	"github.com/desertthunder/smartwake/internal/shared"
)

// ExportVersion tags export documents. Imports accept any 1.x document.
const ExportVersion = "1.0"

// ExportDocument is the portable form of the alarm collection plus its settings.
type ExportDocument struct {
	Version    string          `json:"version"`
	ExportDate time.Time       `json:"exportDate"`
	Alarms     []*models.Alarm `json:"alarms"`
	Settings   *Config         `json:"settings,omitempty"`
	Metadata   ExportMetadata  `json:"metadata"`
}

type ExportMetadata struct {
	TotalAlarms int    `json:"totalAlarms"`
	Timezone    string `json:"timezone"`
}

// ImportOptions controls how a document is merged into the store.
type ImportOptions struct {
	PreserveIDs     bool   // keep document IDs instead of generating new ones
	Overwrite       bool   // replace duplicates instead of skipping them
	ConvertTimezone bool   // shift alarm times from SourceTimezone to TargetTimezone
	SourceTimezone  string // defaults to the document's metadata timezone
	TargetTimezone  string // defaults to the orchestrator's location
	ImportSettings  bool   // apply the document's settings
}

// ImportResult extends [BulkResult] with how each successful item was merged.
type ImportResult struct {
	BulkResult
	Created     int `json:"created"`
	Overwritten int `json:"overwritten"`
	Skipped     int `json:"skipped"`
}

// Export snapshots every alarm and the current config.
func (o *Orchestrator) Export(ctx context.Context) (*ExportDocument, error) {
	alarms, err := o.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	cfg := o.Config()
	doc := &ExportDocument{
		Version:    ExportVersion,
		ExportDate: o.now().UTC(),
		Alarms:     alarms,
		Settings:   &cfg,
		Metadata:   ExportMetadata{TotalAlarms: len(alarms), Timezone: o.loc.String()},
	}
	o.updateStats(ctx, func(s *Stats) { s.AlarmsExported += len(alarms) })
	return doc, nil
}

// ReadDocument decodes and version-checks an export document.
func ReadDocument(r io.Reader) (*ExportDocument, error) {
	var doc ExportDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: failed to decode export: %v", shared.ErrInvalidInput, err)
	}
	if major, _, _ := strings.Cut(doc.Version, "."); major != "1" {
		return nil, fmt.Errorf("%w: unsupported export version %q", shared.ErrInvalidInput, doc.Version)
	}
	return &doc, nil
}

// WriteDocument encodes doc as indented JSON.
func WriteDocument(w io.Writer, doc *ExportDocument) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Import merges a document into the store. Duplicates are matched on label and time.
// Every alarm is attempted; per-item failures are reported, not returned.
func (o *Orchestrator) Import(ctx context.Context, progress chan<- ProgressUpdate, doc *ExportDocument, opts ImportOptions) (*ImportResult, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: empty import document", shared.ErrInvalidInput)
	}

	var conv *tzConverter
	if opts.ConvertTimezone {
		c, err := o.converter(doc, opts)
		if err != nil {
			return nil, err
		}
		conv = c
	}

	existing, err := o.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]*models.Alarm, len(existing))
	byID := make(map[string]*models.Alarm, len(existing))
	for _, a := range existing {
		byKey[a.DuplicateKey()] = a
		byID[a.ID] = a
	}

	res := &ImportResult{}
	total := len(doc.Alarms)
	for i, src := range doc.Alarms {
		name := itemName(src)
		err := o.importOne(ctx, src, conv, opts, byKey, byID, res)
		res.record(name, err)
		sendProgress(progress, itemUpdate(PhaseImport, i+1, total, name, err))
	}

	if opts.ImportSettings && doc.Settings != nil {
		if err := o.UpdateConfig(ctx, *doc.Settings); err != nil {
			res.record("settings", err)
		}
	}

	o.refreshAssetsLogged(ctx)
	o.updateStats(ctx, func(s *Stats) { s.AlarmsImported += res.Created + res.Overwritten })
	o.logger.Info("import finished", "created", res.Created, "overwritten", res.Overwritten, "skipped", res.Skipped, "failed", res.Failed)
	return res, nil
}

func (o *Orchestrator) importOne(
	ctx context.Context,
	src *models.Alarm,
	conv *tzConverter,
	opts ImportOptions,
	byKey, byID map[string]*models.Alarm,
	res *ImportResult,
) error {
	if src == nil {
		return fmt.Errorf("%w: null alarm", shared.ErrInvalidInput)
	}
	a := src.Clone()
	if conv != nil {
		if err := conv.apply(a); err != nil {
			return err
		}
	}

	target, dup := byKey[a.DuplicateKey()]
	if !dup && opts.PreserveIDs && a.ID != "" {
		target, dup = byID[a.ID]
	}

	if dup {
		if !opts.Overwrite {
			res.Skipped++
			return nil
		}
		a.ID = target.ID
		updated, err := o.update(ctx, a)
		if err != nil {
			return err
		}
		delete(byKey, target.DuplicateKey())
		byKey[updated.DuplicateKey()] = updated
		byID[updated.ID] = updated
		res.Overwritten++
		return nil
	}

	if !opts.PreserveIDs {
		a.ID = ""
	}
	a.CreatedAt = time.Time{}
	created, err := o.create(ctx, a)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicateAlarm) {
			return fmt.Errorf("%w: id %s already in use", shared.ErrDuplicateAlarm, a.ID)
		}
		return err
	}
	byKey[created.DuplicateKey()] = created
	byID[created.ID] = created
	res.Created++
	return nil
}

// tzConverter shifts local alarm times between two zones as of a reference date.
type tzConverter struct {
	src, dst *time.Location
	ref      time.Time
}

func (o *Orchestrator) converter(doc *ExportDocument, opts ImportOptions) (*tzConverter, error) {
	srcName := opts.SourceTimezone
	if srcName == "" {
		srcName = doc.Metadata.Timezone
	}
	if srcName == "" {
		return nil, fmt.Errorf("%w: source timezone unknown", shared.ErrInvalidInput)
	}
	src, err := time.LoadLocation(srcName)
	if err != nil {
		return nil, fmt.Errorf("%w: source timezone %q", shared.ErrInvalidInput, srcName)
	}
	dst := o.loc
	if opts.TargetTimezone != "" {
		if dst, err = time.LoadLocation(opts.TargetTimezone); err != nil {
			return nil, fmt.Errorf("%w: target timezone %q", shared.ErrInvalidInput, opts.TargetTimezone)
		}
	}
	if src.String() == dst.String() {
		return nil, nil
	}
	return &tzConverter{src: src, dst: dst, ref: o.now()}, nil
}

// apply rewrites the alarm's time and, when the shift crosses midnight, every
// calendar field that names a day: weekdays, days of month, custom dates, exceptions
// and skip dates.
func (c *tzConverter) apply(a *models.Alarm) error {
	hhmm, days, err := convertClock(a.Time, c.ref, c.src, c.dst)
	if err != nil {
		return err
	}
	a.Time = hhmm
	if days == 0 {
		return nil
	}

	a.Days = shiftWeekdays(a.Days, days)
	for i := range a.ConditionalRules {
		if a.ConditionalRules[i].Type == models.SkipDates {
			if a.ConditionalRules[i].Dates, err = shiftDates(a.ConditionalRules[i].Dates, days); err != nil {
				return err
			}
		}
	}
	p := a.Recurrence
	if p == nil {
		return nil
	}
	p.DaysOfWeek = shiftWeekdays(p.DaysOfWeek, days)
	for i, d := range p.DaysOfMonth {
		p.DaysOfMonth[i] = shiftMonthDay(d, days)
	}
	if p.Exceptions, err = shiftDates(p.Exceptions, days); err != nil {
		return err
	}
	if p.Custom != nil {
		if p.Custom.Dates, err = shiftDates(p.Custom.Dates, days); err != nil {
			return err
		}
	}
	return nil
}

// convertClock moves a local time of day from src to dst on ref's calendar date and
// returns the day shift.
func convertClock(hhmm string, ref time.Time, src, dst *time.Location) (string, int, error) {
	h, m, err := models.ParseClock(hhmm)
	if err != nil {
		return "", 0, err
	}
	t := time.Date(ref.Year(), ref.Month(), ref.Day(), h, m, 0, 0, src).In(dst)
	from := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return models.FormatClock(t.Hour(), t.Minute()), int(to.Sub(from).Hours() / 24), nil
}

// shiftMonthDay moves a day of month by shift, wrapping across the month end: the 1st
// moved back becomes the last day (-1) and the last day moved forward becomes the 1st.
func shiftMonthDay(d, shift int) int {
	n := d + shift
	switch {
	case d > 0 && n < 1:
		return n - 1
	case d > 0 && n > 31:
		return n - 31
	case d < 0 && n > -1:
		return n + 1
	case d < 0 && n < -31:
		return n + 31
	}
	return n
}

func shiftDates(dates []string, shift int) ([]string, error) {
	if dates == nil {
		return nil, nil
	}
	out := make([]string, len(dates))
	for i, d := range dates {
		t, err := time.Parse(models.DateLayout, d)
		if err != nil {
			return nil, fmt.Errorf("%w: date %q", shared.ErrInvalidInput, d)
		}
		out[i] = t.AddDate(0, 0, shift).Format(models.DateLayout)
	}
	return out, nil
}

func shiftWeekdays(days []int, shift int) []int {
	if days == nil {
		return nil
	}
	out := make([]int, len(days))
	for i, d := range days {
		out[i] = ((d+shift)%7 + 7) % 7
	}
	return out
}
