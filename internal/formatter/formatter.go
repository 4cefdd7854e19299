// package formatter renders alarm exports as CSV, Markdown, plain text and iCalendar
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/emersion/go-ical"
	"github.com/spf13/afero"

	"github.com/desertthunder/smartwake/internal/models"
	"github.com/desertthunder/smartwake/internal/recurrence"
	"github.com/desertthunder/smartwake/internal/scheduling"
)

const productID = "-//smartwake//alarms//EN"

// maxRecurrenceDates caps the RDATE values written for custom patterns.
const maxRecurrenceDates = 20

// location resolves the document's timezone, falling back to UTC.
func location(doc *scheduling.ExportDocument) *time.Location {
	loc, err := time.LoadLocation(doc.Metadata.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// reference is the instant next occurrences are computed from.
func reference(doc *scheduling.ExportDocument) time.Time {
	if doc.ExportDate.IsZero() {
		return time.Now().In(location(doc))
	}
	return doc.ExportDate.In(location(doc))
}

func nextOccurrence(a *models.Alarm, from time.Time) string {
	if !a.Enabled {
		return ""
	}
	at, ok := recurrence.NextOccurrence(a, from)
	if !ok {
		return ""
	}
	return at.Format("2006-01-02 15:04")
}

func status(a *models.Alarm) string {
	if a.Enabled {
		return "enabled"
	}
	return "disabled"
}

// ExportToCSV converts an export document to CSV with columns: ID, Label, Time, Schedule,
// Enabled, Next, Sound, Adaptive
func ExportToCSV(doc *scheduling.ExportDocument) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Label", "Time", "Schedule", "Enabled", "Next", "Sound", "Adaptive"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	from := reference(doc)
	for _, a := range doc.Alarms {
		record := []string{
			a.ID,
			a.Label,
			a.Time,
			recurrence.Describe(a),
			strconv.FormatBool(a.Enabled),
			nextOccurrence(a, from),
			a.SoundURL,
			strconv.FormatBool(a.RealTimeAdaptation),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts an export document to a Markdown summary
func ExportToMarkdown(doc *scheduling.ExportDocument) ([]byte, error) {
	var buf bytes.Buffer
	from := reference(doc)

	buf.WriteString("# Alarms\n\n")
	buf.WriteString(fmt.Sprintf("**Exported**: %s\n", from.Format(time.RFC1123)))
	buf.WriteString(fmt.Sprintf("**Timezone**: %s\n", location(doc)))
	buf.WriteString(fmt.Sprintf("**Alarms**: %d\n\n", len(doc.Alarms)))

	buf.WriteString("## Schedule\n\n")
	for i, a := range doc.Alarms {
		next := ""
		if n := nextOccurrence(a, from); n != "" {
			next = fmt.Sprintf(" (next %s)", n)
		}
		buf.WriteString(fmt.Sprintf("%d. **%s** %s [%s]%s\n", i+1, a.Label, recurrence.Describe(a), status(a), next))
	}

	return buf.Bytes(), nil
}

// ExportToText converts an export document to plain text
func ExportToText(doc *scheduling.ExportDocument) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Alarms: %d\n", len(doc.Alarms)))
	buf.WriteString(fmt.Sprintf("Timezone: %s\n\n", location(doc)))

	for i, a := range doc.Alarms {
		buf.WriteString(fmt.Sprintf("%d. %s - %s (%s)\n", i+1, a.Time, a.Label, status(a)))
	}

	return buf.Bytes(), nil
}

// ExportToICS converts enabled alarms to an iCalendar feed. Each alarm becomes a VEVENT
// with a display VALARM at its start; recurring alarms carry their RRULE and exception
// dates, custom patterns their next occurrences as RDATEs.
func ExportToICS(doc *scheduling.ExportDocument) ([]byte, error) {
	loc := location(doc)
	from := reference(doc)

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	for _, a := range doc.Alarms {
		if !a.Enabled {
			continue
		}
		event, ok, err := alarmEvent(a, from, loc)
		if err != nil {
			return nil, fmt.Errorf("alarm %s: %w", a.ID, err)
		}
		if ok {
			cal.Children = append(cal.Children, event.Component)
		}
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("failed to encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}

func alarmEvent(a *models.Alarm, from time.Time, loc *time.Location) (*ical.Event, bool, error) {
	pattern := recurrence.EffectivePattern(a)

	start, ok := recurrence.NextOccurrence(a, from)
	if pattern != nil && pattern.Type != models.RecurrenceCustom {
		start, ok = recurrence.Anchor(a, pattern, from), true
	}
	if !ok {
		return nil, false, nil
	}

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, a.ID+"@smartwake")
	event.Props.SetDateTime(ical.PropDateTimeStamp, from.UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, start)
	event.Props.SetText(ical.PropSummary, a.Label)
	if a.Message != "" {
		event.Props.SetText(ical.PropDescription, a.Message)
	}

	if pattern != nil {
		rule, err := recurrence.RuleString(a, loc)
		if err != nil {
			return nil, false, err
		}
		if rule != "" {
			prop := ical.NewProp(ical.PropRecurrenceRule)
			prop.Value = rule
			event.Props.Set(prop)
		}
		if pattern.Type == models.RecurrenceCustom {
			rest, err := recurrence.NextOccurrences(a, start, maxRecurrenceDates)
			if err != nil {
				return nil, false, err
			}
			for _, t := range rest {
				prop := ical.NewProp(ical.PropRecurrenceDates)
				prop.SetDateTime(t)
				event.Props.Add(prop)
			}
		}
		for _, day := range pattern.Exceptions {
			d, err := time.ParseInLocation(models.DateLayout, day, loc)
			if err != nil {
				continue
			}
			at, err := recurrence.At(d, a.Time)
			if err != nil {
				return nil, false, err
			}
			prop := ical.NewProp(ical.PropExceptionDates)
			prop.SetDateTime(at)
			event.Props.Add(prop)
		}
	}

	reminder := ical.NewComponent(ical.CompAlarm)
	reminder.Props.SetText(ical.PropAction, "DISPLAY")
	reminder.Props.SetText(ical.PropDescription, a.Label)
	trigger := ical.NewProp(ical.PropTrigger)
	trigger.Value = "PT0S"
	reminder.Props.Set(trigger)
	event.Children = append(event.Children, reminder)

	return event, true, nil
}

// ExportToJSON encodes the full document, the format [scheduling.ReadDocument] imports
func ExportToJSON(doc *scheduling.ExportDocument) ([]byte, error) {
	var buf bytes.Buffer
	if err := scheduling.WriteDocument(&buf, doc); err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	return buf.Bytes(), nil
}

// ToMetadataJSON generates the document's metadata and settings as indented JSON (without alarms)
func ToMetadataJSON(doc *scheduling.ExportDocument) ([]byte, error) {
	meta := struct {
		Version    string                   `json:"version"`
		ExportDate time.Time                `json:"exportDate"`
		Metadata   scheduling.ExportMetadata `json:"metadata"`
		Settings   *scheduling.Config       `json:"settings,omitempty"`
	}{doc.Version, doc.ExportDate, doc.Metadata, doc.Settings}
	return json.MarshalIndent(meta, "", "  ")
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	AlarmsFile   string
	MetadataFile string
}

// WriteCSVExport exports alarms to CSV with an accompanying metadata JSON file.
//
// Defaults to "alarms" as the base filename & creates {base}_alarms.csv and {base}_metadata.json
func WriteCSVExport(fs afero.Fs, doc *scheduling.ExportDocument, base string) (*CSVExportResult, error) {
	if base == "" {
		base = "alarms"
	}

	csvData, err := ExportToCSV(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	alarmsFile := base + "_alarms.csv"
	if err := afero.WriteFile(fs, alarmsFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := base + "_metadata.json"
	if err := afero.WriteFile(fs, metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		AlarmsFile:   alarmsFile,
		MetadataFile: metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory string
	Files     []string
}

// WriteMarkdownExport writes a README.md summary and an alarms.ics calendar into outputDir,
// which defaults to "alarms".
func WriteMarkdownExport(fs afero.Fs, doc *scheduling.ExportDocument, outputDir string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = "alarms"
	}

	if err := fs.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	mdData, err := ExportToMarkdown(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}
	mdFile := filepath.Join(outputDir, "README.md")
	if err := afero.WriteFile(fs, mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}
	result.Files = append(result.Files, mdFile)

	icsData, err := ExportToICS(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to generate calendar: %w", err)
	}
	icsFile := filepath.Join(outputDir, "alarms.ics")
	if err := afero.WriteFile(fs, icsFile, icsData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write calendar file: %w", err)
	}
	result.Files = append(result.Files, icsFile)

	return result, nil
}

// WriteICSExport writes the calendar feed to path, defaulting to alarms.ics.
func WriteICSExport(fs afero.Fs, doc *scheduling.ExportDocument, path string) (string, error) {
	if path == "" {
		path = "alarms.ics"
	}

	data, err := ExportToICS(doc)
	if err != nil {
		return "", fmt.Errorf("failed to generate calendar: %w", err)
	}

	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write calendar file: %w", err)
	}

	return path, nil
}

// WriteTextExport exports alarms to plain text, defaulting to alarms.txt as the filename.
func WriteTextExport(fs afero.Fs, doc *scheduling.ExportDocument, path string) (string, error) {
	if path == "" {
		path = "alarms.txt"
	}

	textData, err := ExportToText(doc)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := afero.WriteFile(fs, path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// WriteJSONExport writes the importable JSON document, defaulting to alarms.json.
func WriteJSONExport(fs afero.Fs, doc *scheduling.ExportDocument, path string) (string, error) {
	if path == "" {
		path = "alarms.json"
	}

	data, err := ExportToJSON(doc)
	if err != nil {
		return "", err
	}

	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write JSON file: %w", err)
	}

	return path, nil
}
