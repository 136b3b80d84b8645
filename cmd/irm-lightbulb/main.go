// Command irm-lightbulb receives Grafana IRM webhooks and drives an indicator
// light on a GPIO line.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envDir string

	serve := newServeCmd(&envDir)
	root := &cobra.Command{
		Use:   "irm-lightbulb",
		Short: "Grafana IRM webhook to GPIO indicator light",
		Long: `irm-lightbulb listens for Grafana IRM alert group webhooks and turns an
LED on while alerts fire, blinking a severity pattern first, and off again
once they resolve.`,
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	root.PersistentFlags().StringVar(&envDir, "env-dir", "", "directory holding an optional .env file (default: working directory)")

	root.AddCommand(serve)
	root.AddCommand(newLEDTestCmd(&envDir))
	root.AddCommand(newSendAlertCmd())
	root.AddCommand(newPrintStatusCmd())
	return root
}

// newLogger builds the root logger. Debug lowers the level to debug.
func newLogger(w io.Writer, debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).Level(level).With().
		Timestamp().
		Str("service", "irm-lightbulb").
		Logger()
}
