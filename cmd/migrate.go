package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"example.com/baletrack/config"
	"example.com/baletrack/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
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

		log.Info().Msg("Migrations completed")
	},
}
