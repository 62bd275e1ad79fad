package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scythe504/kartquiz-backend/internal/config"
	"github.com/scythe504/kartquiz-backend/internal/quiz"
	"github.com/scythe504/kartquiz-backend/internal/storage/postgres"
)

// loadConfig reads .env, the --config file, KARTQUIZ_* variables and any
// explicitly set flags of cmd.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return config.Config{}, err
	}

	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv(config.EnvPrefix + "_CONFIG")
	}

	v, err := config.NewViper(path)
	if err != nil {
		return config.Config{}, err
	}
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return config.Config{}, err
	}
	return config.LoadFromViper(v)
}

// openStore returns the configured saved-quiz catalog. The pool is nil for the
// memory driver.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (quiz.Store, *postgres.Pool, error) {
	if cfg.Storage.Driver != "postgres" {
		logger.Info("using in-memory quiz storage")
		return quiz.NewMemoryStore(), nil, nil
	}

	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Name),
		zap.Duration("elapsed", time.Since(dbStart)),
	)
	return postgres.NewQuizRepository(pool.DB()), pool, nil
}

// importQuizzes saves every quiz file found at paths, which may be files or
// directories, and returns the stored quizzes.
func importQuizzes(ctx context.Context, store quiz.Store, paths []string, logger *zap.Logger) ([]quiz.SavedQuiz, error) {
	var imported []quiz.SavedQuiz
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return imported, fmt.Errorf("reading %s: %w", path, err)
		}

		var loaded []quiz.SavedQuiz
		if info.IsDir() {
			loaded, err = quiz.LoadQuizzesFromDir(path, logger)
		} else {
			var q quiz.SavedQuiz
			q, err = quiz.LoadQuizFromFile(path, logger)
			loaded = []quiz.SavedQuiz{q}
		}
		if err != nil {
			return imported, err
		}

		for _, q := range loaded {
			saved, err := store.Save(ctx, q)
			if err != nil {
				return imported, fmt.Errorf("saving quiz %q: %w", q.Title, err)
			}
			logger.Info("quiz imported",
				zap.String("quiz", saved.ID),
				zap.String("title", saved.Title),
				zap.Int("questions", len(saved.Questions)),
			)
			imported = append(imported, saved)
		}
	}
	return imported, nil
}
