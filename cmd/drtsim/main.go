// Command drtsim runs a control path simulation described by a TOML scenario
// file.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var rootCmd = &cobra.Command{
	Use:   "drtsim",
	Short: "drtsim simulates a distributed real-time I/O control path",
	Long: `drtsim builds a chain of one master, a configurable number of
repeaters, and a terminal satellite, then plays a scripted command workload
against the master's command surface.`,
	SilenceUsage: true,
}

func main() {
	// Missing .env files are fine. Variables such as the monitoring port can
	// come from the environment instead of flags.
	_ = godotenv.Load()

	setupLogger()

	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func setupLogger() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}
