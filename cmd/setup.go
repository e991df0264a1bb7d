package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/freshweekly/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the history database and reports the applied migrations.
//
// With --rollback the most recent migration is reverted instead.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := r.database()
	if err != nil {
		return err
	}

	if cmd.Bool("rollback") {
		if err := shared.RollbackMigration(db); err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
		return r.writePlain("✓ Rolled back the latest migration in %s\n", r.config.Database.Path)
	}

	statuses, err := shared.MigrationStatuses(db)
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}
	for _, s := range statuses {
		r.logger.Debug("migration", "version", s.Version, "name", s.Name, "applied", s.Applied)
	}

	return r.writePlain("✓ Database ready at %s (%d migrations)\n", r.config.Database.Path, len(statuses))
}

// SetupConfig writes config.toml from the embedded template unless it already exists.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	if _, err := os.Stat(r.configPath); err == nil {
		return r.writePlain("Config already exists at %s\n", r.configPath)
	}

	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", r.configPath)

	r.writePlain("✓ Config written to %s\n", r.configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.spotify.client_id from https://developer.spotify.com/dashboard\n")
	return r.writePlain("2. Run 'freshweekly auth login'\n")
}
