package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"example.com/baletrack/config"
	"example.com/baletrack/internal/agent"
	"example.com/baletrack/internal/agent/remote"
	"example.com/baletrack/internal/agent/store"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the field agent",
	Long: `Run the field agent.

The agent keeps a durable local mirror of the bale set, queues status
writes while the server is unreachable, and drains the queue when
connectivity returns.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}

		st, err := store.Open(cfg.Agent.DatabasePath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open agent database")
		}
		defer st.Close()

		client := remote.NewHTTPClient(
			cfg.Agent.ServerURL,
			cfg.Agent.ActorID,
			cfg.Agent.ActorRoles,
			cfg.Agent.RequestTimeout,
		)

		coord := agent.NewCoordinator(st, client)
		if err := coord.StartProbe(cfg.Agent.ProbeInterval); err != nil {
			log.Fatal().Err(err).Msg("Failed to start reconnect probe")
		}
		defer coord.StopProbe()

		// Initial reconcile: full refresh when reachable, otherwise the
		// mirror keeps serving reads.
		ctx := context.Background()
		if err := coord.Refresh(ctx); err != nil {
			log.Warn().Err(err).Msg("Initial refresh failed, serving from local mirror")
		}

		refresh := time.NewTicker(cfg.Agent.RefreshInterval)
		defer refresh.Stop()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		for {
			select {
			case <-refresh.C:
				if coord.Mode() != agent.ModeOnline {
					continue
				}
				if err := coord.Refresh(ctx); err != nil {
					log.Warn().Err(err).Msg("Periodic refresh failed")
				}
			case <-quit:
				log.Info().Msg("Field agent stopping")
				return
			}
		}
	},
}
