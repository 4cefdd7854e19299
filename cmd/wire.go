package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/desertthunder/smartwake/internal/metrics"
	"github.com/desertthunder/smartwake/internal/repositories"
	"github.com/desertthunder/smartwake/internal/scheduling"
	"github.com/desertthunder/smartwake/internal/services"
	"github.com/desertthunder/smartwake/internal/shared"
)

const conditionsTTL = 10 * time.Minute

// stack is the wired object graph every alarm command runs against.
type stack struct {
	db       *sql.DB
	redis    *redis.Client
	orch     *scheduling.Orchestrator
	history  *repositories.AdaptationRepository
	holidays *services.HolidayCalendar
	loader   *services.AudioLoader
	metrics  *metrics.Metrics
}

func (s *stack) Close() error {
	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	return errors.Join(errs...)
}

// app wires the database, stores, providers and engines on first use.
func (r *Runner) app(ctx context.Context) (*stack, error) {
	if r.wired != nil {
		return r.wired, nil
	}
	s, err := r.wire(ctx)
	if err != nil {
		return nil, err
	}
	r.wired = s
	return s, nil
}

// orchestrator is shorthand for the wired orchestrator.
func (r *Runner) orchestrator(ctx context.Context) (*scheduling.Orchestrator, error) {
	s, err := r.app(ctx)
	if err != nil {
		return nil, err
	}
	return s.orch, nil
}

func (r *Runner) wire(ctx context.Context) (*stack, error) {
	cfg := r.config
	loc, err := cfg.Scheduling.Location()
	if err != nil {
		return nil, err
	}

	db, err := shared.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	s := &stack{
		db:       db,
		history:  repositories.NewAdaptationRepository(db),
		holidays: services.NewHolidayCalendar(loc, r.logger),
		metrics:  metrics.New(),
	}

	var store scheduling.AlarmStore = repositories.NewAlarmRepository(db)
	if cfg.Redis.Enabled {
		s.redis = repositories.NewRedisClient(cfg.Redis)
		remote := repositories.NewRedisAlarmStore(s.redis, cfg.Redis.KeyPrefix)
		fallback := repositories.NewFallbackStore(remote, repositories.NewAlarmRepository(db), r.logger)
		if err := fallback.Sync(ctx); err != nil {
			r.logger.Warn("initial redis sync failed, continuing on the local store", "err", err)
		}
		store = fallback
	}

	r.loadHolidays(ctx, s.holidays)

	var fetchClient *http.Client
	if cfg.Assets.FetchTimeout > 0 {
		fetchClient = &http.Client{Timeout: cfg.Assets.FetchTimeout}
	}
	s.loader, err = services.NewAudioLoader(services.AudioLoaderOpts{
		Fs:                r.fs,
		CacheDir:          cfg.Assets.CacheDir,
		HTTPClient:        fetchClient,
		RequestsPerSecond: cfg.Assets.RequestsPerSecond,
		TTL:               cfg.Assets.CacheTTL,
		Logger:            r.logger,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	if _, err := s.loader.WriteFallbackTone(); err != nil {
		r.logger.Warn("could not write fallback tone", "err", err)
	}

	iv := scheduling.IntervalsFrom(cfg.Scheduling)
	opts := scheduling.Opts{
		Store:         store,
		Settings:      repositories.NewSettingsRepository(db),
		IDs:           repositories.NewNotificationIDRepository(db),
		Notifier:      r.newNotifier(),
		Loader:        s.loader,
		SpeechBaseURL: cfg.Assets.SpeechBaseURL,
		History:       s.history,
		Holidays:      s.holidays,
		Location:      loc,
		Intervals:     &iv,
		Metrics:       s.metrics,
		Logger:        r.logger,
		Now:           r.now,
	}
	if u := cfg.Signals.SleepURL; u != "" {
		opts.Sleep = services.NewHTTPSleepAnalyzer(services.NewClient(u, nil), "")
	}
	if u := cfg.Signals.ConditionsURL; u != "" {
		opts.Conditions = services.NewHTTPConditionProvider(services.NewClient(u, nil), "", conditionsTTL, s.holidays)
	}

	s.orch, err = scheduling.New(ctx, opts)
	if err != nil {
		s.Close()
		return nil, err
	}
	r.applyHorizon(ctx, s.orch)
	return s, nil
}

func (r *Runner) newNotifier() scheduling.NotificationScheduler {
	if r.notifier != nil {
		return r.notifier
	}
	if u := r.config.Notifications.WebhookURL; u != "" {
		return services.NewWebhookNotifier(services.NewClient(u, nil), "", r.logger)
	}
	return services.NewConsoleNotifier(r.logger)
}

// loadHolidays fills the calendar for the coming year from a file path or URL.
// A missing or unreadable calendar only disables the skip_holidays rule.
func (r *Runner) loadHolidays(ctx context.Context, cal *services.HolidayCalendar) {
	src := r.config.Signals.HolidayCalendar
	if src == "" {
		return
	}
	from := r.now().AddDate(0, 0, -1)
	to := from.AddDate(1, 0, 0)

	var n int
	var err error
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		n, err = cal.LoadURL(ctx, r.httpClient, src, from, to)
	} else {
		n, err = cal.LoadFile(r.fs, src, from, to)
	}
	if err != nil {
		r.logger.Warn("could not load holiday calendar", "source", src, "err", err)
		return
	}
	r.logger.Debug("holiday calendar loaded", "source", src, "days", n)
}

// applyHorizon makes [scheduling] horizon_occurrences from the config file win over the
// stored slot count.
func (r *Runner) applyHorizon(ctx context.Context, orch *scheduling.Orchestrator) {
	n := r.config.Scheduling.HorizonOccurrences
	cfg := orch.Config()
	if n <= 0 || n == cfg.Scheduling.OccurrenceSlots {
		return
	}
	cfg.Scheduling.OccurrenceSlots = n
	if err := orch.UpdateConfig(ctx, cfg); err != nil {
		r.logger.Warn("ignoring horizon_occurrences", "value", n, "err", err)
	}
}
