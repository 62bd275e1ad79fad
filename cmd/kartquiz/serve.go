package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scythe504/kartquiz-backend/internal/config"
	"github.com/scythe504/kartquiz-backend/internal/game"
	"github.com/scythe504/kartquiz-backend/internal/observability"
	"github.com/scythe504/kartquiz-backend/internal/server"
	"github.com/scythe504/kartquiz-backend/internal/websocket"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the quiz server.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	start := time.Now()

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting kartquiz",
		zap.String("version", releaseVersion),
		zap.String("addr", cfg.Server.Addr()),
		zap.String("storage", cfg.Storage.Driver),
		zap.Bool("strict_errors", cfg.Game.StrictErrors),
	)

	store, pool, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	if cfg.Storage.SeedDir != "" {
		seeded, err := importQuizzes(ctx, store, []string{cfg.Storage.SeedDir}, logger)
		if err != nil {
			return err
		}
		logger.Info("seed quizzes loaded",
			zap.String("dir", cfg.Storage.SeedDir),
			zap.Int("count", len(seeded)),
		)
	}

	registry := game.NewRegistry()
	hub := websocket.NewHub(logger)
	gateway := websocket.NewGateway(registry, store, hub, websocket.Options{
		StrictErrors:   cfg.Game.StrictErrors,
		ReplaceRooms:   cfg.Game.ReplaceRooms,
		RoomCodeLength: cfg.Game.RoomCodeLength,
	}, logger)
	handler := websocket.NewHandler(gateway, hub, cfg.Server.AllowedOrigins, cfg.Game.SendBuffer, logger)

	srv := server.NewServer(cfg.Server, registry, handler, logger)
	if pool != nil {
		srv.AddHealthCheck("database", func(ctx context.Context) error {
			return pool.Health(ctx, time.Second)
		})
	}

	reaper := game.NewReaper(registry, cfg.Game.RoomTTL, cfg.Game.ReapInterval, logger, gateway.RoomExpired)

	lc := server.NewLifecycle(logger)
	lc.Add("reaper", server.ContextService(reaper.Run))
	lc.Add("http", srv)

	logger.Info("kartquiz ready", zap.Duration("startup", time.Since(start)))
	return lc.Run(ctx)
}
