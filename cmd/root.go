package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Flags
	cfgPath string
	debug   bool

	// Root command
	rootCmd = &cobra.Command{
		Use:   "baletrack",
		Short: "Cotton bale tracking service",
		Long: `Cotton bale tracking service.

Functions:
- Issue unique sequential bale identifiers per harvest season
- Track each bale through the field, yard and processed stages
- Stream change notifications to connected sessions
- Run the offline-capable field agent that queues writes without connectivity`,
	}
)

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config directory (default is .)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(agentCmd)
}

// initLogging initializes the global logger
func initLogging() {
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}
