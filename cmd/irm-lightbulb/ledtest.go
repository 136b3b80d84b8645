package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sweeney/irm-lightbulb/internal/alert"
	"github.com/sweeney/irm-lightbulb/internal/config"
	"github.com/sweeney/irm-lightbulb/internal/gpio"
)

func newLEDTestCmd(envDir *string) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "led-test",
		Short: "Toggle the LED until interrupted (hardware check)",
		Long: `led-test requests the configured GPIO line directly and toggles it every
interval until SIGINT or SIGTERM, then drives it inactive. Stop the server
first: the line can only be held by one process.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*envDir)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := newLogger(os.Stderr, cfg.Debug)

			line, err := gpio.NewRealLine(cfg.GPIOChip, cfg.GPIOPin)
			if err != nil {
				return fmt.Errorf("init gpio: %w", err)
			}
			defer line.Close()

			ticker := clock.New().Ticker(interval)
			defer ticker.Stop()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			logger.Info().Str("chip", cfg.GPIOChip).Int("pin", cfg.GPIOPin).Msg("LED test running, Ctrl-C to stop")
			return runLEDTest(line, ticker.C, sigCh, logger)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", alert.BlinkInterval, "time between toggles")
	return cmd
}

// runLEDTest toggles line on every tick. The line is assumed to start active,
// as requested. On a signal it is driven inactive.
func runLEDTest(line gpio.Line, tick <-chan time.Time, sig <-chan os.Signal, logger zerolog.Logger) error {
	value := gpio.Active
	for {
		select {
		case <-sig:
			if err := line.SetValue(gpio.Inactive); err != nil {
				return fmt.Errorf("turn off: %w", err)
			}
			logger.Info().Msg("LED test stopped")
			return nil
		case <-tick:
			value = gpio.Active - value
			if err := line.SetValue(value); err != nil {
				return fmt.Errorf("toggle: %w", err)
			}
			logger.Debug().Int("value", value).Msg("toggle")
		}
	}
}
