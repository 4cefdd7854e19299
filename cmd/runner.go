package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/smartwake/internal/scheduling"
	"github.com/desertthunder/smartwake/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The alarm stack (database, stores, engines) is wired lazily on first use so that
// commands such as "setup config" work without a database.
type Runner struct {
	config     *shared.Config
	configPath string
	fs         afero.Fs
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	notifier   scheduling.NotificationScheduler
	now        func() time.Time
	wired      *stack
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Fs         afero.Fs
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	// Notifier overrides the notifier chosen from the [notifications] config section.
	Notifier scheduling.NotificationScheduler
	Now      func() time.Time
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		fs:         opts.Fs,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		notifier:   opts.Notifier,
		now:        opts.Now,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, alarmsCommand, assetsCommand, adaptiveCommand, holidaysCommand, transferCommand, daemonCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the runner's logger. It must be called before the stack is wired.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// SetLogLevel parses level ("debug", "info", ...) and applies it, ignoring unknown names.
func (r *Runner) SetLogLevel(level string) {
	if lvl, err := log.ParseLevel(level); err == nil {
		shared.SetLogLevel(r.logger, lvl)
	}
}

// Close releases the wired stack, if any.
func (r *Runner) Close() error {
	if r.wired == nil {
		return nil
	}
	err := r.wired.Close()
	r.wired = nil
	return err
}

// writeJSON encodes data to the runner's output followed by a newline.
func (r *Runner) writeJSON(data any, pretty bool) error {
	enc := json.NewEncoder(r.output)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	if _, err := fmt.Fprintf(r.output, format, args...); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// writePlainln writes the formatted line with a blank line above it.
func (r *Runner) writePlainln(format string, args ...any) error {
	return r.writePlain("\n"+format+"\n", args...)
}

var rule = strings.Repeat("═", 39)

func (r *Runner) writePlainHeader(title string) {
	_ = r.writePlain("%s\n%s\n%s\n", rule, title, rule)
}
