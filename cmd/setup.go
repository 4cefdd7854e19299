package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/smartwake/internal/services"
	"github.com/desertthunder/smartwake/internal/shared"
)

// SetupConfig writes the embedded config template to the runner's config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = "config.toml"
	}
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)
	r.writePlain("✓ Config written to %s\n", path)
	return nil
}

// SetupDatabase initializes the database and runs migrations. With --rollback it
// reverts the latest migration instead.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	path := r.config.Database.Path
	r.logger.Info("initializing database", "path", path)

	db, err := shared.NewDatabase(path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if cmd.Bool("rollback") {
		r.logger.Info("rolling back latest migration")
		if err := shared.RollbackMigration(db); err != nil {
			return err
		}
	} else {
		r.logger.Info("running database migrations")
		if err := shared.RunMigrations(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	applied, err := shared.MigrationStatus(db)
	if err != nil {
		return err
	}
	r.logger.Infof("setup complete for database: %v", path)
	r.writePlain("✓ Database ready at %s\n", path)
	for _, m := range applied {
		r.writePlain("  %04d %s (%s)\n", m.Version, m.Name, m.AppliedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

// SetupAssets creates the audio cache and writes the bundled fallback tone so alarms
// can always ring.
func (r *Runner) SetupAssets(ctx context.Context, cmd *cli.Command) error {
	loader, err := services.NewAudioLoader(services.AudioLoaderOpts{
		Fs:       r.fs,
		CacheDir: r.config.Assets.CacheDir,
		Logger:   r.logger,
	})
	if err != nil {
		return err
	}
	entry, err := loader.WriteFallbackTone()
	if err != nil {
		return err
	}
	r.writePlain("✓ Fallback tone written to %s (%d bytes)\n", entry.Path, entry.Size)
	return nil
}
