package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scythe504/kartquiz-backend/internal/observability"
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file|dir>...",
		Short: "Import YAML or CSV quiz files into the saved-quiz catalog.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			logger, err := observability.NewLogger(cfg.Logging)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			store, pool, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			if pool != nil {
				defer pool.Close()
			}

			imported, err := importQuizzes(ctx, store, args, logger)
			out := cmd.OutOrStdout()
			for _, q := range imported {
				fmt.Fprintf(out, "%s\t%s\t%d questions\n", q.ID, q.Title, len(q.Questions))
			}
			return err
		},
	}

	fs := cmd.Flags()
	fs.String("storage", "memory", "postgres stores the quizzes, memory only validates them (env: KARTQUIZ_STORAGE_DRIVER)")
	fs.String("log-level", "info", "debug, info, warn or error (env: KARTQUIZ_LOGGING_LEVEL)")

	return cmd
}
