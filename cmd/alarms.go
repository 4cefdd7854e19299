package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/smartwake/internal/models"
	"github.com/desertthunder/smartwake/internal/recurrence"
	"github.com/desertthunder/smartwake/internal/shared"
)

func requireID(cmd *cli.Command) (string, error) {
	id := cmd.StringArg("id")
	if id == "" {
		return "", fmt.Errorf("%w: alarm id is required", shared.ErrMissingArgument)
	}
	return id, nil
}

// AlarmsAdd creates an alarm from flags.
func (r *Runner) AlarmsAdd(ctx context.Context, cmd *cli.Command) error {
	orch, err := r.orchestrator(ctx)
	if err != nil {
		return err
	}

	alarm := &models.Alarm{
		Label:              cmd.String("label"),
		Time:               cmd.String("time"),
		Days:               cmd.IntSlice("days"),
		SoundURL:           cmd.String("sound"),
		Message:            cmd.String("message"),
		VoiceMood:          cmd.String("mood"),
		RealTimeAdaptation: cmd.Bool("adaptive"),
		Enabled:            !cmd.Bool("disabled"),
	}
	if repeat := cmd.String("repeat"); repeat != "" {
		alarm.Recurrence = &models.RecurrencePattern{
			Type:     models.RecurrenceType(strings.ToLower(repeat)),
			Interval: cmd.Int("interval"),
		}
		if alarm.Recurrence.Type == models.RecurrenceWeekly {
			alarm.Recurrence.DaysOfWeek = alarm.Days
		}
	}

	created, err := orch.CreateAlarm(ctx, alarm)
	if err != nil {
		return err
	}
	r.writePlain("✓ Created %s (%s) at %s, %s\n", created.Label, created.ID, created.Time, recurrence.Describe(created))
	return nil
}

// AlarmsList prints every alarm with its next occurrence.
func (r *Runner) AlarmsList(ctx context.Context, cmd *cli.Command) error {
	orch, err := r.orchestrator(ctx)
	if err != nil {
		return err
	}
	alarms, err := orch.List(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(alarms, cmd.Bool("pretty"))
	}

	if len(alarms) == 0 {
		r.writePlain("No alarms.\n")
		return nil
	}
	r.writePlainHeader(fmt.Sprintf("Alarms (%d)", len(alarms)))
	for _, a := range alarms {
		state := "on"
		next := "-"
		if !a.Enabled {
			state = "off"
		} else if occ, err := orch.NextOccurrences(ctx, a.ID, 1); err == nil && len(occ) > 0 {
			next = occ[0].Format("Mon Jan 2 15:04")
		}
		r.writePlain("%-3s %s  %-20s %-28s next %s  [%s]\n", state, a.Time, a.Label, recurrence.Describe(a), next, a.ID)
	}
	return nil
}

// AlarmsShow prints one alarm.
func (r *Runner) AlarmsShow(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	orch, err := r.orchestrator(ctx)
	if err != nil {
		return err
	}
	a, err := orch.Get(ctx, id)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(a, cmd.Bool("pretty"))
	}

	r.writePlainHeader(a.Label)
	r.writePlain("ID:        %s\n", a.ID)
	r.writePlain("Time:      %s\n", a.Time)
	r.writePlain("Repeats:   %s\n", recurrence.Describe(a))
	r.writePlain("Enabled:   %v\n", a.Enabled)
	r.writePlain("Adaptive:  %v\n", a.RealTimeAdaptation)
	r.writePlain("Snoozes:   %d (lifetime %d)\n", a.SnoozeCount, a.LifetimeSnoozes)
	if a.LastTriggered != nil {
		r.writePlain("Last rang: %s\n", a.LastTriggered.In(orch.Location()).Format(time.RFC1123))
	}
	if n := len(a.WakeUpFeedback); n > 0 {
		r.writePlain("Feedback:  %d entries, latest %s\n", n, a.WakeUpFeedback[n-1].Difficulty)
	}
	return nil
}

// AlarmsNext lists upcoming occurrences.
func (r *Runner) AlarmsNext(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	count := cmd.Int("count")
	if count < 1 {
		return fmt.Errorf("%w: --count must be positive", shared.ErrInvalidFlag)
	}
	orch, err := r.orchestrator(ctx)
	if err != nil {
		return err
	}
	occ, err := orch.NextOccurrences(ctx, id, count)
	if err != nil {
		return err
	}
	if len(occ) == 0 {
		r.writePlain("No upcoming occurrences.\n")
		return nil
	}
	for _, t := range occ {
		r.writePlain("%s\n", t.Format("Mon Jan 2 2006 15:04 MST"))
	}
	return nil
}

// AlarmsDelete removes an alarm and cancels its notifications.
func (r *Runner) AlarmsDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	orch, err := r.orchestrator(ctx)
	if err != nil {
		return err
	}
	if err := orch.DeleteAlarm(ctx, id); err != nil {
		return err
	}
	r.writePlain("✓ Deleted %s\n", id)
	return nil
}

// AlarmsDuplicate copies an alarm.
func (r *Runner) AlarmsDuplicate(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	orch, err := r.orchestrator(ctx)
	if err != nil {
		return err
	}
	dup, err := orch.DuplicateAlarm(ctx, id)
	if err != nil {
		return err
	}
	r.writePlain("✓ Created %s (%s)\n", dup.Label, dup.ID)
	return nil
}

func (r *Runner) AlarmsEnable(ctx context.Context, cmd *cli.Command) error {
	return r.setEnabled(ctx, cmd, true)
}

func (r *Runner) AlarmsDisable(ctx context.Context, cmd *cli.Command) error {
	return r.setEnabled(ctx, cmd, false)
}

func (r *Runner) setEnabled(ctx context.Context, cmd *cli.Command, enabled bool) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	orch, err := r.orchestrator(ctx)
	if err != nil {
		return err
	}
	a, err := orch.SetEnabled(ctx, id, enabled)
	if err != nil {
		return err
	}
	state := "disabled"
	if a.Enabled {
		state = "enabled"
	}
	r.writePlain("✓ %s %s\n", a.Label, state)
	return nil
}

// AlarmsSnooze schedules the snooze notification.
func (r *Runner) AlarmsSnooze(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	d := cmd.Duration("for")
	if d < 0 {
		return fmt.Errorf("%w: --for must not be negative", shared.ErrInvalidFlag)
	}
	orch, err := r.orchestrator(ctx)
	if err != nil {
		return err
	}
	until, err := orch.Snooze(ctx, id, d)
	if err != nil {
		return err
	}
	r.writePlain("✓ Snoozed until %s\n", until.In(orch.Location()).Format("15:04"))
	return nil
}

// AlarmsDismiss stops a ringing alarm, optionally recording how hard waking up was.
func (r *Runner) AlarmsDismiss(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	var fb *models.WakeFeedback
	if d := cmd.String("difficulty"); d != "" {
		fb = &models.WakeFeedback{
			Difficulty: models.Difficulty(d),
			RecordedAt: r.now(),
			Note:       cmd.String("note"),
		}
		if err := fb.Validate(); err != nil {
			return err
		}
	}
	orch, err := r.orchestrator(ctx)
	if err != nil {
		return err
	}
	if err := orch.Dismiss(ctx, id, fb); err != nil {
		return err
	}
	r.writePlain("✓ Dismissed %s\n", id)
	return nil
}
