package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/smartwake/internal/formatter"
	"github.com/desertthunder/smartwake/internal/scheduling"
	"github.com/desertthunder/smartwake/internal/shared"
)

// TransferExport writes the alarm collection in the requested format. JSON exports
// written to "-" go to stdout.
func (r *Runner) TransferExport(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	output := cmd.String("output")

	orch, err := r.orchestrator(ctx)
	if err != nil {
		return err
	}
	doc, err := orch.Export(ctx)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		if output == "-" {
			return scheduling.WriteDocument(r.output, doc)
		}
		path, err := formatter.WriteJSONExport(r.fs, doc, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %d alarms to %s\n", len(doc.Alarms), path)
	case "csv":
		res, err := formatter.WriteCSVExport(r.fs, doc, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %d alarms to %s (metadata in %s)\n", len(doc.Alarms), res.AlarmsFile, res.MetadataFile)
	case "ics":
		path, err := formatter.WriteICSExport(r.fs, doc, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Calendar written to %s\n", path)
	case "txt":
		path, err := formatter.WriteTextExport(r.fs, doc, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %d alarms to %s\n", len(doc.Alarms), path)
	case "md":
		res, err := formatter.WriteMarkdownExport(r.fs, doc, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %d alarms to %s/\n", len(doc.Alarms), res.Directory)
		for _, f := range res.Files {
			r.writePlain("  - %s\n", f)
		}
	default:
		return fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidFlag, format)
	}
	return nil
}

// TransferImport merges a JSON export into the store.
func (r *Runner) TransferImport(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path to an export file is required", shared.ErrMissingArgument)
	}

	f, err := r.fs.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open export: %w", err)
	}
	doc, err := scheduling.ReadDocument(f)
	f.Close()
	if err != nil {
		return err
	}

	orch, err := r.orchestrator(ctx)
	if err != nil {
		return err
	}
	opts := scheduling.ImportOptions{
		PreserveIDs:     cmd.Bool("preserve-ids"),
		Overwrite:       cmd.Bool("overwrite"),
		ConvertTimezone: cmd.Bool("convert-tz"),
		SourceTimezone:  cmd.String("source-tz"),
		ImportSettings:  cmd.Bool("settings"),
	}

	r.writePlain("Importing %d alarms from %s...\n\n", len(doc.Alarms), path)
	progressCh := make(chan scheduling.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writePlain("   %s\n", update.Message)
		}
	}()

	res, err := orch.Import(ctx, progressCh, doc, opts)
	close(progressCh)
	<-done
	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Import Complete!")
	r.writePlain("Created: %d  Overwritten: %d  Skipped: %d  Failed: %d\n", res.Created, res.Overwritten, res.Skipped, res.Failed)
	for _, e := range res.Errors {
		r.writePlain("  - %s: %s\n", e.ID, e.Message)
	}
	return nil
}

