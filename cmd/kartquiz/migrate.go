package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/scythe504/kartquiz-backend/internal/storage/postgres"
)

func newMigrateCmd() *cobra.Command {
	var (
		direction string
		steps     int
		dir       string
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back saved-quiz database migrations.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start := time.Now()

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			res, err := postgres.Migrate(cfg.Database.DSN(), dir, direction, steps)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if res.NoChange {
				fmt.Fprintf(out, "no changes (version=%d dirty=%v) [%s]\n", res.Version, res.Dirty, time.Since(start))
				return nil
			}
			fmt.Fprintf(out, "migrated %s to version=%d dirty=%v [%s]\n", direction, res.Version, res.Dirty, time.Since(start))
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&direction, "direction", "up", "migration direction: up or down")
	fs.IntVar(&steps, "steps", 0, "number of steps, 0 applies all")
	fs.StringVar(&dir, "dir", "migrations", "directory holding the migration files")

	return cmd
}
