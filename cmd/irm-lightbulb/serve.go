package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sweeney/irm-lightbulb/internal/config"
	"github.com/sweeney/irm-lightbulb/internal/gpio"
	"github.com/sweeney/irm-lightbulb/internal/light"
	"github.com/sweeney/irm-lightbulb/internal/mqtt"
	"github.com/sweeney/irm-lightbulb/internal/status"
	"github.com/sweeney/irm-lightbulb/internal/web"
)

func newServeCmd(envDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*envDir)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return runServe(cfg, newLogger(os.Stderr, cfg.Debug))
		},
	}
}

func runServe(cfg config.Config, logger zerolog.Logger) error {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.WebhookSecret != "" {
		logger.Warn().Msg("WEBHOOK_SECRET is set but webhook requests are not verified")
	}

	clk := clock.New()
	ctrl := light.New(
		light.Config{Type: light.Type(cfg.LightbulbType), Pin: cfg.GPIOPin},
		gpio.RealOpener(cfg.GPIOChip, cfg.GPIOPin),
		clk,
		logger,
	)
	defer func() {
		if err := ctrl.Cleanup(); err != nil {
			logger.Error().Err(err).Msg("GPIO cleanup failed")
		}
	}()

	publisher, mqttStatus := newPublisher(cfg, logger)
	defer publisher.Close()

	tracker := status.NewTracker(clk.Now(), statusConfig(cfg))

	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		logger.Warn().Err(err).Msg("Failed to publish startup event")
	}

	srv := web.New(cfg.Addr(), web.Options{
		Light:     ctrl,
		Tracker:   tracker,
		Publisher: publisher,
		Logger:    logger,
	})
	httpErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn().Err(err).Msg("HTTP shutdown")
		}
	}()

	logger.Info().
		Str("addr", cfg.Addr()).
		Str("lightbulb_type", cfg.LightbulbType).
		Str("gpio_chip", cfg.GPIOChip).
		Int("gpio_pin", cfg.GPIOPin).
		Bool("mqtt", cfg.MQTTEnabled()).
		Dur("heartbeat", cfg.Heartbeat).
		Msg("Starting Grafana IRM lightbulb controller")

	tick, stopTick := heartbeatTicker(clk, cfg.Heartbeat)
	defer stopTick()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return runLoop(loop{
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		light:      ctrl,
		now:        clk.Now,
		tick:       tick,
		sig:        sigCh,
		httpErr:    httpErr,
		logger:     logger,
	})
}

// newPublisher connects to the configured broker. Without a broker, or if the
// client cannot be created, events are discarded.
func newPublisher(cfg config.Config, logger zerolog.Logger) (mqtt.Publisher, mqtt.ConnectionStatus) {
	if !cfg.MQTTEnabled() {
		logger.Info().Msg("MQTT_BROKER not set, MQTT publishing disabled")
		return mqtt.Nop{}, mqtt.Nop{}
	}
	p, err := mqtt.NewRealPublisher(mqtt.RealOptions{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.MQTTClientID,
		Topic:    cfg.MQTTTopic,
	}, logger)
	if err != nil {
		logger.Error().Err(err).Msg("MQTT disabled")
		return mqtt.Nop{}, mqtt.Nop{}
	}
	return p, p
}

func statusConfig(cfg config.Config) status.Config {
	sc := status.Config{
		LightbulbType: cfg.LightbulbType,
		GPIOChip:      cfg.GPIOChip,
		GPIOPin:       cfg.GPIOPin,
		HTTPAddr:      cfg.Addr(),
		HeartbeatMs:   cfg.Heartbeat.Milliseconds(),
		Debug:         cfg.Debug,
	}
	if cfg.MQTTEnabled() {
		sc.Broker = cfg.MQTTBroker
		sc.Topic = cfg.MQTTTopic
	}
	return sc
}

// heartbeatTicker returns the heartbeat channel and its stop func. A
// non-positive interval disables the heartbeat with a nil channel.
func heartbeatTicker(clk clock.Clock, interval time.Duration) (<-chan time.Time, func()) {
	if interval <= 0 {
		return nil, func() {}
	}
	t := clk.Ticker(interval)
	return t.C, t.Stop
}

type lightReader interface {
	Status() light.State
	Lifecycle() light.Lifecycle
}

// loop holds everything the main select loop touches.
type loop struct {
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	light      lightReader
	now        func() time.Time
	tick       <-chan time.Time
	sig        <-chan os.Signal
	httpErr    <-chan error
	logger     zerolog.Logger
}

// runLoop publishes heartbeats until a signal arrives or the HTTP server
// fails. Either way a SHUTDOWN event is published before returning.
func runLoop(l loop) error {
	for {
		select {
		case s := <-l.sig:
			reason := signalName(s)
			l.logger.Info().Str("signal", reason).Msg("Shutting down")
			l.publishStatus("SHUTDOWN", reason, true)
			return nil

		case err := <-l.httpErr:
			l.logger.Error().Err(err).Msg("HTTP server failed")
			l.publishStatus("SHUTDOWN", "HTTP_ERROR", true)
			return fmt.Errorf("http server: %w", err)

		case <-l.tick:
			snap := l.publishStatus("HEARTBEAT", "", false)
			l.logger.Info().
				Dur("uptime", snap.Uptime().Truncate(time.Second)).
				Str("light", string(snap.Light)).
				Int("on", snap.Counts.On).
				Int("off", snap.Counts.Off).
				Int("failed", snap.Counts.Failed).
				Msg("Heartbeat")
		}
	}
}

// publishStatus refreshes the tracker and publishes a full snapshot on the
// system topic.
func (l loop) publishStatus(event, reason string, retained bool) status.Snapshot {
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
	if l.light != nil {
		l.tracker.SetLight(l.light.Status(), l.light.Lifecycle())
	}
	snap := l.tracker.Snapshot()
	snap.Now = l.now()

	err := l.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		l.logger.Warn().Err(err).Str("event", event).Msg("Failed to publish system event")
	}
	return snap
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
