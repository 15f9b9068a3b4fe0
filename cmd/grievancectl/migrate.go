package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/spec-kit/grievance-service/internal/persistence"
)

var migrateDir string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Long: `Apply every migration not yet recorded in schema_migrations.

By default the migrations embedded in the binary are used; --dir points at a
directory of .sql files instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		if cfg.Postgres.DSN == "" {
			return errors.New("POSTGRES_DSN is required to run migrations")
		}
		// Applied explicitly below.
		cfg.Postgres.RunMigrations = false

		pg, err := persistence.NewPostgres(cmd.Context(), cfg.Postgres, logger)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()

		var fsys fs.FS = persistence.Migrations()
		if migrateDir != "" {
			fsys = os.DirFS(migrateDir)
		}
		files, err := persistence.MigrationFiles(fsys)
		if err != nil {
			return err
		}
		if err := persistence.RunMigrations(cmd.Context(), pg.Pool, fsys, logger); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "migrations up to date (%d files)\n", len(files))
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateDir, "dir", "", "Directory of .sql migrations (default: embedded)")
	rootCmd.AddCommand(migrateCmd)
}
