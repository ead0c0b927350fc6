package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"example.com/baletrack/config"
	"example.com/baletrack/internal/api"
	"example.com/baletrack/internal/cache"
	"example.com/baletrack/internal/db"
	"example.com/baletrack/internal/notifier"
	"example.com/baletrack/internal/repository"
	"example.com/baletrack/internal/service"
	"example.com/baletrack/internal/tracing"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}

		dbConn, err := db.Connect(&cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}

		if err := db.Migrate(dbConn); err != nil {
			log.Fatal().Err(err).Msg("Failed to run database migrations")
		}

		cacheClient, err := cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}

		tracer, err := tracing.NewTracer(cfg.Tracing)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize tracer")
		}
		defer tracer.Close()

		baleRepo := repository.NewBaleRepository(dbConn)
		counterRepo := repository.NewCounterRepository(dbConn)

		registry := notifier.NewRegistry()
		baleService := service.NewBaleService(baleRepo, counterRepo, cacheClient, registry, tracer)

		server := api.NewServer(cfg, baleService, registry)

		// Start server in a goroutine so we can handle signals
		go func() {
			if err := server.Start(); err != nil {
				log.Fatal().Err(err).Msg("HTTP server failed")
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		if err := server.Shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("Server shutdown failed")
		}
	},
}
