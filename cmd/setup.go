package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/kurator/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the default configuration to --config.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", configPath)
	return r.writePlain("✓ Wrote %s\n  Set credentials.openai.api_key or OPENAI_API_KEY before running serve.\n", configPath)
}

// SetupDatabase creates the sqlite session database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	path := config.Sessions.SQLitePath
	if path == "" || path == ":memory:" {
		return fmt.Errorf("%w: sessions.sqlite_path must name a file", shared.ErrInvalidConfig)
	}

	r.logger.Info("initializing database", "path", path)

	db, err := shared.OpenMigrated(path)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	defer db.Close()

	version, err := shared.SchemaVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", path)
	return r.writePlain("✓ Session database ready at %s (schema v%d)\n", path, version)
}
