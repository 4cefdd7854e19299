package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/smartwake/internal/formatter"
	"github.com/desertthunder/smartwake/internal/models"
	"github.com/desertthunder/smartwake/internal/repositories"
	"github.com/desertthunder/smartwake/internal/scheduling"
	"github.com/desertthunder/smartwake/internal/shared"
)

const maxBodyBytes = 4 << 20

// AdaptationHistory lists committed adaptations, newest first.
type AdaptationHistory interface {
	List(ctx context.Context, alarmID string, limit int) ([]*repositories.AdaptationRecord, error)
}

// API serves the alarm collection over JSON.
type API struct {
	orch    *scheduling.Orchestrator
	history AdaptationHistory
	logger  *log.Logger
}

// NewAPI builds the JSON handlers. history may be nil, in which case the adaptations
// endpoint answers 503.
func NewAPI(orch *scheduling.Orchestrator, history AdaptationHistory, logger *log.Logger) *API {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &API{orch: orch, history: history, logger: logger}
}

// Register mounts every endpoint on r.
func (a *API) Register(r Router) {
	r.Handle(http.MethodGet, "/healthz", http.HandlerFunc(a.health))

	r.Handle(http.MethodGet, "/api/alarms", http.HandlerFunc(a.listAlarms))
	r.Handle(http.MethodPost, "/api/alarms", http.HandlerFunc(a.createAlarm))
	r.Handle(http.MethodGet, "/api/alarms/{id}", http.HandlerFunc(a.getAlarm))
	r.Handle(http.MethodPut, "/api/alarms/{id}", http.HandlerFunc(a.updateAlarm))
	r.Handle(http.MethodDelete, "/api/alarms/{id}", http.HandlerFunc(a.deleteAlarm))
	r.Handle(http.MethodPost, "/api/alarms/{id}/duplicate", http.HandlerFunc(a.duplicateAlarm))
	r.Handle(http.MethodPost, "/api/alarms/{id}/enable", a.setEnabled(true))
	r.Handle(http.MethodPost, "/api/alarms/{id}/disable", a.setEnabled(false))
	r.Handle(http.MethodPost, "/api/alarms/{id}/snooze", http.HandlerFunc(a.snooze))
	r.Handle(http.MethodPost, "/api/alarms/{id}/dismiss", http.HandlerFunc(a.dismiss))
	r.Handle(http.MethodPost, "/api/alarms/{id}/feedback", http.HandlerFunc(a.feedback))
	r.Handle(http.MethodPost, "/api/alarms/{id}/check", http.HandlerFunc(a.check))
	r.Handle(http.MethodGet, "/api/alarms/{id}/occurrences", http.HandlerFunc(a.occurrences))
	r.Handle(http.MethodGet, "/api/alarms/{id}/readiness", http.HandlerFunc(a.readiness))
	r.Handle(http.MethodGet, "/api/alarms/{id}/adaptations", http.HandlerFunc(a.adaptations))

	r.Handle(http.MethodGet, "/api/assets", http.HandlerFunc(a.assets))
	r.Handle(http.MethodGet, "/api/adaptive", http.HandlerFunc(a.adaptive))
	r.Handle(http.MethodGet, "/api/stats", http.HandlerFunc(a.stats))
	r.Handle(http.MethodGet, "/api/config", http.HandlerFunc(a.getConfig))
	r.Handle(http.MethodPut, "/api/config", http.HandlerFunc(a.putConfig))
	r.Handle(http.MethodGet, "/api/export", http.HandlerFunc(a.export))
	r.Handle(http.MethodPost, "/api/import", http.HandlerFunc(a.importDocument))
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"monitoring": len(a.orch.Adaptive().Snapshot()),
		"assets":     a.orch.Assets().Stats().Tracked,
	})
}

func (a *API) listAlarms(w http.ResponseWriter, r *http.Request) {
	alarms, err := a.orch.List(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if alarms == nil {
		alarms = []*models.Alarm{}
	}
	writeJSON(w, http.StatusOK, alarms)
}

func (a *API) createAlarm(w http.ResponseWriter, r *http.Request) {
	var in models.Alarm
	if !a.decode(w, r, &in) {
		return
	}
	created, err := a.orch.CreateAlarm(r.Context(), &in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) getAlarm(w http.ResponseWriter, r *http.Request) {
	alarm, err := a.orch.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, alarm)
}

// updateAlarm replaces the stored alarm. The path ID wins over any ID in the body.
func (a *API) updateAlarm(w http.ResponseWriter, r *http.Request) {
	var in models.Alarm
	if !a.decode(w, r, &in) {
		return
	}
	in.ID = r.PathValue("id")
	updated, err := a.orch.UpdateAlarm(r.Context(), &in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) deleteAlarm(w http.ResponseWriter, r *http.Request) {
	if err := a.orch.DeleteAlarm(r.Context(), r.PathValue("id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) duplicateAlarm(w http.ResponseWriter, r *http.Request) {
	dup, err := a.orch.DuplicateAlarm(r.Context(), r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dup)
}

func (a *API) setEnabled(enabled bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		alarm, err := a.orch.SetEnabled(r.Context(), r.PathValue("id"), enabled)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, alarm)
	})
}

type snoozeRequest struct {
	Minutes int `json:"minutes"`
}

// snooze accepts an optional {"minutes": n}. An empty body uses the configured duration.
func (a *API) snooze(w http.ResponseWriter, r *http.Request) {
	var in snoozeRequest
	if r.ContentLength != 0 && !a.decode(w, r, &in) {
		return
	}
	if in.Minutes < 0 {
		a.fail(w, r, fmt.Errorf("%w: minutes must not be negative", shared.ErrInvalidInput))
		return
	}
	until, err := a.orch.Snooze(r.Context(), r.PathValue("id"), time.Duration(in.Minutes)*time.Minute)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alarmId": r.PathValue("id"), "until": until})
}

func (a *API) dismiss(w http.ResponseWriter, r *http.Request) {
	var fb *models.WakeFeedback
	if r.ContentLength != 0 {
		fb = &models.WakeFeedback{}
		if !a.decode(w, r, fb) {
			return
		}
	}
	if err := a.orch.Dismiss(r.Context(), r.PathValue("id"), fb); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) feedback(w http.ResponseWriter, r *http.Request) {
	var fb models.WakeFeedback
	if !a.decode(w, r, &fb) {
		return
	}
	if err := a.orch.RecordFeedback(r.Context(), r.PathValue("id"), fb); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// check runs one adaptation check right away, outside the monitoring cadence.
func (a *API) check(w http.ResponseWriter, r *http.Request) {
	d, err := a.orch.Adaptive().CheckForAdaptation(r.Context(), r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *API) occurrences(w http.ResponseWriter, r *http.Request) {
	count, ok := a.intQuery(w, r, "count", 5, 1, 100)
	if !ok {
		return
	}
	times, err := a.orch.NextOccurrences(r.Context(), r.PathValue("id"), count)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if times == nil {
		times = []time.Time{}
	}
	writeJSON(w, http.StatusOK, times)
}

// readiness verifies the alarm's assets, rescuing them when degraded.
func (a *API) readiness(w http.ResponseWriter, r *http.Request) {
	ready, err := a.orch.Readiness(r.Context(), r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ready)
}

func (a *API) adaptations(w http.ResponseWriter, r *http.Request) {
	if a.history == nil {
		a.fail(w, r, fmt.Errorf("%w: adaptation history is not configured", shared.ErrServiceUnavailable))
		return
	}
	limit, ok := a.intQuery(w, r, "limit", 20, 1, 500)
	if !ok {
		return
	}
	records, err := a.history.List(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if records == nil {
		records = []*repositories.AdaptationRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (a *API) assets(w http.ResponseWriter, _ *http.Request) {
	c := a.orch.Assets()
	writeJSON(w, http.StatusOK, map[string]any{
		"assets": c.Snapshot(),
		"stats":  c.Stats(),
	})
}

func (a *API) adaptive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.orch.Adaptive().Snapshot())
}

func (a *API) stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"scheduling": a.orch.Stats(),
		"assets":     a.orch.Assets().Stats(),
	})
}

func (a *API) getConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.orch.Config())
}

// putConfig overlays the body on the current config, so partial documents are accepted.
func (a *API) putConfig(w http.ResponseWriter, r *http.Request) {
	cfg := a.orch.Config()
	if !a.decode(w, r, &cfg) {
		return
	}
	if err := a.orch.UpdateConfig(r.Context(), cfg); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.orch.Config())
}

type exportFormat struct {
	contentType string
	extension   string
	render      func(*scheduling.ExportDocument) ([]byte, error)
}

var exportFormats = map[string]exportFormat{
	"json": {"application/json", "json", formatter.ExportToJSON},
	"csv":  {"text/csv; charset=utf-8", "csv", formatter.ExportToCSV},
	"ics":  {"text/calendar; charset=utf-8", "ics", formatter.ExportToICS},
	"txt":  {"text/plain; charset=utf-8", "txt", formatter.ExportToText},
	"md":   {"text/markdown; charset=utf-8", "md", formatter.ExportToMarkdown},
}

func (a *API) export(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("format")
	if name == "" {
		name = "json"
	}
	format, ok := exportFormats[name]
	if !ok {
		a.fail(w, r, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidInput, name))
		return
	}

	doc, err := a.orch.Export(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	data, err := format.render(doc)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "alarms."+format.extension))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// importDocument reads an export document from the body. Options come from the query:
// preserve_ids, overwrite, convert_tz, source_tz & settings.
func (a *API) importDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := scheduling.ReadDocument(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		a.fail(w, r, err)
		return
	}

	q := r.URL.Query()
	opts := scheduling.ImportOptions{
		PreserveIDs:     queryBool(q.Get("preserve_ids")),
		Overwrite:       queryBool(q.Get("overwrite")),
		ConvertTimezone: queryBool(q.Get("convert_tz")),
		SourceTimezone:  q.Get("source_tz"),
		ImportSettings:  queryBool(q.Get("settings")),
	}
	res, err := a.orch.Import(r.Context(), nil, doc, opts)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		a.fail(w, r, fmt.Errorf("%w: malformed request body: %v", shared.ErrInvalidInput, err))
		return false
	}
	return true
}

func (a *API) intQuery(w http.ResponseWriter, r *http.Request, key string, def, lo, hi int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		a.fail(w, r, fmt.Errorf("%w: %s must be between %d and %d", shared.ErrInvalidArgument, key, lo, hi))
		return 0, false
	}
	return n, true
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request error", "path", r.URL.Path, "err", err)
	}
	writeError(w, status, err.Error())
}

// statusFor maps the shared sentinel errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrAlarmNotFound), errors.Is(err, shared.ErrAssetNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrInvalidTime),
		errors.Is(err, shared.ErrInvalidRecurrence),
		errors.Is(err, shared.ErrInvalidConfig),
		errors.Is(err, shared.ErrInvalidArgument),
		errors.Is(err, shared.ErrMissingArgument):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrDuplicateAlarm), errors.Is(err, shared.ErrNotMonitored):
		return http.StatusConflict
	case errors.Is(err, shared.ErrThrottled), errors.Is(err, shared.ErrBudgetExhausted):
		return http.StatusTooManyRequests
	case errors.Is(err, shared.ErrServiceUnavailable), errors.Is(err, shared.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, shared.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func queryBool(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
