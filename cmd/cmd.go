// Command definitions for the smartwake CLI.
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
			Value: true,
		},
	}
}

func idArg() []cli.Argument {
	return []cli.Argument{&cli.StringArg{Name: "id"}}
}

// setupCommand handles first-run setup
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration, database and asset cache",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml from the built-in template",
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Create the database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Revert the most recent migration",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:   "assets",
				Usage:  "Create the audio cache directory and write the fallback tone",
				Action: r.SetupAssets,
			},
		},
	}
}

// alarmsCommand manages the alarm collection
func alarmsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "alarms",
		Aliases: []string{"alarm", "a"},
		Usage:   "Create, inspect and control alarms",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Create an alarm",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "label",
						Aliases:  []string{"l"},
						Usage:    "Alarm label",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "time",
						Aliases:  []string{"t"},
						Usage:    "Local time of day as HH:MM",
						Required: true,
					},
					&cli.IntSliceFlag{
						Name:  "days",
						Usage: "Weekday indices, 0 = Sunday (repeat or comma-separate)",
					},
					&cli.StringFlag{
						Name:  "repeat",
						Usage: "Recurrence type: daily, weekly, monthly, yearly, workdays or weekends",
					},
					&cli.IntFlag{
						Name:  "interval",
						Usage: "Recurrence interval",
						Value: 1,
					},
					&cli.StringFlag{
						Name:  "sound",
						Usage: "Custom sound URL",
					},
					&cli.StringFlag{
						Name:  "message",
						Usage: "Spoken wake-up message",
					},
					&cli.StringFlag{
						Name:  "mood",
						Usage: "Voice mood for the spoken message",
					},
					&cli.BoolFlag{
						Name:  "adaptive",
						Usage: "Enable real-time adaptation",
					},
					&cli.BoolFlag{
						Name:  "disabled",
						Usage: "Create the alarm disabled",
					},
				},
				Action: r.AlarmsAdd,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List alarms",
				Flags:   jsonFlags(),
				Action:  r.AlarmsList,
			},
			{
				Name:      "show",
				Usage:     "Show one alarm",
				Arguments: idArg(),
				Flags:     jsonFlags(),
				Action:    r.AlarmsShow,
			},
			{
				Name:      "next",
				Usage:     "List upcoming occurrences",
				Arguments: idArg(),
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "count",
						Aliases: []string{"n"},
						Usage:   "Number of occurrences",
						Value:   5,
					},
				},
				Action: r.AlarmsNext,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete an alarm",
				Arguments: idArg(),
				Action:    r.AlarmsDelete,
			},
			{
				Name:      "duplicate",
				Aliases:   []string{"dup"},
				Usage:     "Copy an alarm",
				Arguments: idArg(),
				Action:    r.AlarmsDuplicate,
			},
			{
				Name:      "enable",
				Usage:     "Enable an alarm",
				Arguments: idArg(),
				Action:    r.AlarmsEnable,
			},
			{
				Name:      "disable",
				Usage:     "Disable an alarm",
				Arguments: idArg(),
				Action:    r.AlarmsDisable,
			},
			{
				Name:      "snooze",
				Usage:     "Snooze a ringing alarm",
				Arguments: idArg(),
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "for",
						Usage: "Snooze length (defaults to the configured duration)",
					},
				},
				Action: r.AlarmsSnooze,
			},
			{
				Name:      "dismiss",
				Usage:     "Dismiss a ringing alarm",
				Arguments: idArg(),
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "difficulty",
						Usage: "Wake-up difficulty: very_easy, easy, normal, hard or very_hard",
					},
					&cli.StringFlag{
						Name:  "note",
						Usage: "Free-form feedback note",
					},
				},
				Action: r.AlarmsDismiss,
			},
		},
	}
}

// assetsCommand inspects the critical asset set
func assetsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "assets",
		Usage: "Inspect and preload alarm audio",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show tracked assets and preload statistics",
				Flags:  jsonFlags(),
				Action: r.AssetsStatus,
			},
			{
				Name:      "verify",
				Usage:     "Check that an alarm's audio is ready to play",
				Arguments: idArg(),
				Action:    r.AssetsVerify,
			},
			{
				Name:   "preload",
				Usage:  "Load every asset whose preload window is open",
				Action: r.AssetsPreload,
			},
		},
	}
}

// adaptiveCommand inspects real-time adaptation
func adaptiveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "adaptive",
		Usage: "Inspect and trigger real-time adaptation",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show monitored alarms",
				Flags:  jsonFlags(),
				Action: r.AdaptiveStatus,
			},
			{
				Name:      "check",
				Usage:     "Run an adaptation check now",
				Arguments: idArg(),
				Flags:     jsonFlags(),
				Action:    r.AdaptiveCheck,
			},
			{
				Name:      "history",
				Usage:     "Show applied adaptations",
				Arguments: idArg(),
				Flags: append(jsonFlags(), &cli.IntFlag{
					Name:  "limit",
					Usage: "Maximum number of entries",
					Value: 20,
				}),
				Action: r.AdaptiveHistory,
			},
		},
	}
}

// holidaysCommand lists the loaded holiday calendar
func holidaysCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "holidays",
		Usage:  "List holidays from the configured calendar",
		Flags:  jsonFlags(),
		Action: r.HolidaysList,
	}
}

// transferCommand handles export and import
func transferCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "transfer",
		Usage: "Export and import alarms",
		Commands: []*cli.Command{
			{
				Name:  "export",
				Usage: "Export alarms and settings",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: json, csv, ics, txt or md",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file, base name (csv) or directory (md)",
					},
				},
				Action: r.TransferExport,
			},
			{
				Name:      "import",
				Usage:     "Import alarms from a JSON export",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "preserve-ids",
						Usage: "Keep the document's alarm IDs",
					},
					&cli.BoolFlag{
						Name:  "overwrite",
						Usage: "Replace duplicates instead of skipping them",
					},
					&cli.BoolFlag{
						Name:  "convert-tz",
						Usage: "Shift alarm times into the local timezone",
					},
					&cli.StringFlag{
						Name:  "source-tz",
						Usage: "Timezone the document was exported in (defaults to its metadata)",
					},
					&cli.BoolFlag{
						Name:  "settings",
						Usage: "Apply the document's settings",
					},
				},
				Action: r.TransferImport,
			},
		},
	}
}

// daemonCommand runs the scheduler loops and the HTTP API
func daemonCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "daemon",
		Aliases: []string{"serve"},
		Usage:   "Run the scheduler and serve the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (defaults to [server] host and port)",
			},
			&cli.DurationFlag{
				Name:  "shutdown-timeout",
				Usage: "Grace period for in-flight requests",
				Value: 5 * time.Second,
			},
		},
		Action: r.Daemon,
	}
}

// tuiCommand returns the top-level TUI command for interactive alarm management.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for alarm management",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "refresh",
				Usage: "List refresh interval",
				Value: 30 * time.Second,
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the TUI owns the terminal",
				Value: "./tmp/smartwake-tui.log",
			},
		},
		Action: r.TUI,
	}
}
