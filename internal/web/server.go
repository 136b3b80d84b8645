// Package web provides the HTTP API for the irm-lightbulb daemon: the Grafana
// IRM webhook, manual LED control and a status page.
package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sweeney/irm-lightbulb/internal/alert"
	"github.com/sweeney/irm-lightbulb/internal/light"
	"github.com/sweeney/irm-lightbulb/internal/mqtt"
	"github.com/sweeney/irm-lightbulb/internal/status"
)

// Light is the controller surface the handlers drive.
type Light interface {
	TurnOn(e alert.Event) error
	TurnOff(e alert.Event) error
	Blink(e alert.Event) error
	Status() light.State
	Lifecycle() light.Lifecycle
	Type() light.Type
}

// Options wires a Server to the rest of the daemon.
type Options struct {
	Light   Light
	Tracker *status.Tracker

	// Publisher receives a light event for every action. Nil disables publishing.
	Publisher mqtt.Publisher

	Logger zerolog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Server serves the webhook and LED API over HTTP.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine

	light   Light
	tracker *status.Tracker
	pub     mqtt.Publisher
	logger  zerolog.Logger
	now     func() time.Time
}

// New creates a Server listening on addr. The gin mode is left to the caller.
func New(addr string, opts Options) *Server {
	s := &Server{
		light:   opts.Light,
		tracker: opts.Tracker,
		pub:     opts.Publisher,
		logger:  opts.Logger.With().Str("component", "web").Logger(),
		now:     opts.Now,
	}
	if s.pub == nil {
		s.pub = mqtt.Nop{}
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), requestLogger(s.logger))
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/", s.handleIndex)
	s.engine.GET("/index.html", s.handleIndex)
	s.engine.GET("/index.json", s.handleJSON)
	s.engine.GET("/health", s.handleHealth)

	webhook := s.engine.Group("/webhook")
	webhook.POST("/grafana-irm", s.handleGrafanaIRM)
	webhook.POST("/test", s.handleTest)

	led := s.engine.Group("/api/led")
	led.POST("/on", s.handleLEDOn)
	led.POST("/off", s.handleLEDOff)
	led.POST("/blink", s.handleLEDBlink)
	led.GET("/status", s.handleLEDStatus)
}

// Handler returns the root HTTP handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// requestLogger logs one line per request through zerolog.
func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ev := logger.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = logger.Error()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}
