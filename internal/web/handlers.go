package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sweeney/irm-lightbulb/internal/alert"
	"github.com/sweeney/irm-lightbulb/internal/mqtt"
	"github.com/sweeney/irm-lightbulb/internal/status"
)

// WebhookResponse is returned by the webhook endpoints.
type WebhookResponse struct {
	Status     string `json:"status"`
	Action     string `json:"action,omitempty"`
	AlertTitle string `json:"alert_title,omitempty"`
	Message    string `json:"message,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"timestamp":      s.timestamp(),
		"lightbulb_type": string(s.light.Type()),
	})
}

func (s *Server) handleGrafanaIRM(c *gin.Context) {
	var e alert.Event
	if err := c.ShouldBindJSON(&e); err != nil {
		s.logger.Warn().Err(err).Msg("Rejected malformed webhook payload")
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Detail: err.Error()})
		return
	}

	log := s.logger.With().
		Str("event_type", e.Type).
		Str("alert_title", e.Title()).
		Str("severity", string(e.Group.Severity)).
		Str("status", e.Group.Status).
		Logger()
	log.Info().Msg("Received Grafana IRM webhook")

	action := e.Action()
	var err error
	if action == alert.ActionTurnOff {
		err = s.light.TurnOff(e)
	} else {
		err = s.light.TurnOn(e)
	}
	s.record(action, e, err)

	if err != nil {
		log.Error().Err(err).Msgf("Failed to %s lightbulb", action)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: fmt.Sprintf("Failed to %s lightbulb", action)})
		return
	}

	log.Info().Msgf("Lightbulb %s successfully", action)
	c.JSON(http.StatusOK, WebhookResponse{
		Status:     "success",
		Action:     string(action),
		AlertTitle: e.Title(),
		Timestamp:  s.timestamp(),
	})
}

func (s *Server) handleTest(c *gin.Context) {
	e := alert.TestEvent(s.now())
	err := s.light.TurnOn(e)
	s.record(alert.ActionTurnOn, e, err)

	if err != nil {
		s.logger.Error().Err(err).Msg("Error in test webhook")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: "Test lightbulb control failed"})
		return
	}
	c.JSON(http.StatusOK, WebhookResponse{
		Status:    "success",
		Message:   "Test lightbulb control successful",
		Timestamp: s.timestamp(),
	})
}

func (s *Server) handleLEDOn(c *gin.Context) {
	s.manual(c, alert.ActionTurnOn, s.light.TurnOn)
}

func (s *Server) handleLEDOff(c *gin.Context) {
	s.manual(c, alert.ActionTurnOff, s.light.TurnOff)
}

func (s *Server) handleLEDBlink(c *gin.Context) {
	s.manual(c, status.ActionBlink, s.light.Blink)
}

// manual runs a control call with an empty event, so TurnOn lights steadily
// instead of playing a pattern.
func (s *Server) manual(c *gin.Context, action alert.Action, fn func(alert.Event) error) {
	var e alert.Event
	err := fn(e)
	s.record(action, e, err)

	if err != nil {
		s.logger.Error().Err(err).Str("action", string(action)).Msg("LED control failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "LED " + string(action)})
}

func (s *Server) handleLEDStatus(c *gin.Context) {
	state := s.light.Status()
	s.logger.Debug().Str("state", string(state)).Msg("LED status")
	c.JSON(http.StatusOK, gin.H{"message": "LED status", "status": string(state)})
}

func (s *Server) handleIndex(c *gin.Context) {
	snap := s.snapshot()
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := renderHTML(c.Writer, snap); err != nil {
		s.logger.Error().Err(err).Msg("Render status page")
	}
}

func (s *Server) handleJSON(c *gin.Context) {
	c.Data(http.StatusOK, "application/json", status.FormatJSON(s.snapshot()))
}

// snapshot refreshes the live fields of the tracker before reading it.
func (s *Server) snapshot() status.Snapshot {
	s.tracker.SetLight(s.light.Status(), s.light.Lifecycle())
	if cs, ok := s.pub.(mqtt.ConnectionStatus); ok {
		s.tracker.SetMQTTConnected(cs.IsConnected())
	}
	return s.tracker.Snapshot()
}

// record updates the tracker and publishes the outcome. Publish failures are
// logged and never fail the request.
func (s *Server) record(action alert.Action, e alert.Event, err error) {
	now := s.now()
	state := s.light.Status()
	s.tracker.Record(action, e, err == nil, now)
	s.tracker.SetLight(state, s.light.Lifecycle())

	if err != nil {
		return
	}
	if perr := s.pub.Publish(mqtt.NewLightEvent(action, e, state, now)); perr != nil {
		s.logger.Warn().Err(perr).Msg("Failed to publish light event")
	}
}
