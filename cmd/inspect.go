package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/smartwake/internal/shared"
)

// AssetsStatus prints the tracked asset set and preload statistics.
func (r *Runner) AssetsStatus(ctx context.Context, cmd *cli.Command) error {
	orch, err := r.orchestrator(ctx)
	if err != nil {
		return err
	}
	list := orch.Assets().Snapshot()
	stats := orch.Assets().Stats()
	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"assets": list, "stats": stats}, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Critical assets (%d)", len(list)))
	loc := orch.Location()
	for _, a := range list {
		state := "pending"
		switch {
		case a.IsLoaded:
			state = "loaded"
		case a.LastError != "":
			state = "failed"
		case a.LoadStarted:
			state = "loading"
		}
		r.writePlain("%-8s %-8s p%-2d alarm %s  fires %s  preload %s\n",
			a.Kind, state, a.Priority, a.AlarmID,
			a.TriggerTime.In(loc).Format("Mon 15:04"), a.PreloadTime.In(loc).Format("Mon 15:04"))
	}
	r.writePlainln("Preloads: %d ok, %d failed (%.0f%%), avg %s, emergency %d",
		stats.Successful, stats.Failed, stats.SuccessRate*100,
		stats.AverageLoadTime.Round(time.Millisecond), stats.EmergencyPreloads)
	return nil
}

// AssetsVerify reports whether an alarm can play its audio right now.
func (r *Runner) AssetsVerify(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	orch, err := r.orchestrator(ctx)
	if err != nil {
		return err
	}
	rd, err := orch.Readiness(ctx, id)
	if err != nil {
		return err
	}
	mark := func(ok bool) string {
		if ok {
			return "✓"
		}
		return "✗"
	}
	r.writePlain("%s speech  %s audio  %s fallback\n", mark(rd.SpeechReady), mark(rd.AudioReady), mark(rd.FallbackReady))
	switch {
	case rd.Rescued:
		r.writePlain("Emergency preload ran during verification.\n")
	case rd.Degraded:
		r.writePlain("Degraded: the alarm will play a lower-priority source.\n")
	}
	if !rd.OverallReady {
		return fmt.Errorf("%w: alarm %s has no playable audio", shared.ErrAssetNotFound, id)
	}
	return nil
}

// AssetsPreload loads every asset whose preload window is open.
func (r *Runner) AssetsPreload(ctx context.Context, cmd *cli.Command) error {
	orch, err := r.orchestrator(ctx)
	if err != nil {
		return err
	}
	if _, err := orch.RefreshAssets(ctx); err != nil {
		return err
	}
	rep := orch.SweepAssets(ctx)
	r.writePlain("Selected %d, loaded %d, failed %d\n", rep.Selected, rep.Loaded, rep.Failed)
	return nil
}

// AdaptiveStatus prints every monitored alarm.
func (r *Runner) AdaptiveStatus(ctx context.Context, cmd *cli.Command) error {
	orch, err := r.orchestrator(ctx)
	if err != nil {
		return err
	}
	snap := orch.Adaptive().Snapshot()
	if cmd.Bool("json") {
		return r.writeJSON(snap, cmd.Bool("pretty"))
	}
	if len(snap) == 0 {
		r.writePlain("No alarms are monitored.\n")
		return nil
	}
	loc := orch.Location()
	for _, st := range snap {
		last := st.LastOutcome
		if last == "" {
			last = "-"
		}
		r.writePlain("%s  next check %s  today %d  last %s\n",
			st.AlarmID, st.NextCheck.In(loc).Format("Mon 15:04"), st.AdaptationsToday, last)
	}
	return nil
}

// AdaptiveCheck runs one adaptation check immediately.
func (r *Runner) AdaptiveCheck(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	orch, err := r.orchestrator(ctx)
	if err != nil {
		return err
	}
	d, err := orch.Adaptive().CheckForAdaptation(ctx, id)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(d, cmd.Bool("pretty"))
	}
	r.writePlain("Outcome: %s\n", d.Outcome)
	if d.Committed() {
		r.writePlain("Adjusted by %d min (confidence %.2f)\n", d.Fusion.AdjustmentMinutes, d.Fusion.Confidence)
	}
	if len(d.Reasons) > 0 {
		r.writePlain("Reasons: %s\n", strings.Join(d.Reasons, "; "))
	}
	return nil
}

// AdaptiveHistory lists applied adaptations, newest first.
func (r *Runner) AdaptiveHistory(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	s, err := r.app(ctx)
	if err != nil {
		return err
	}
	if _, err := s.orch.Get(ctx, id); err != nil {
		return err
	}
	recs, err := s.history.List(ctx, id, cmd.Int("limit"))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(recs, cmd.Bool("pretty"))
	}
	if len(recs) == 0 {
		r.writePlain("No adaptations recorded.\n")
		return nil
	}
	loc := s.orch.Location()
	for _, rec := range recs {
		r.writePlain("%s  %s → %s (%+d min, %.2f)  %s\n",
			rec.AppliedAt.In(loc).Format("Jan 2 15:04"), rec.PreviousTime, rec.NewTime,
			rec.AdjustmentMinutes, rec.Confidence, strings.Join(rec.Reasons, "; "))
	}
	return nil
}

// HolidaysList prints the holidays loaded from [signals] holiday_calendar.
func (r *Runner) HolidaysList(ctx context.Context, cmd *cli.Command) error {
	if r.config.Signals.HolidayCalendar == "" {
		return fmt.Errorf("%w: set [signals] holiday_calendar", shared.ErrMissingConfig)
	}
	s, err := r.app(ctx)
	if err != nil {
		return err
	}
	days := s.holidays.Holidays()
	if cmd.Bool("json") {
		return r.writeJSON(days, cmd.Bool("pretty"))
	}
	for _, h := range days {
		r.writePlain("%s  %s\n", h.Date, h.Name)
	}
	return nil
}
