// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/irm-lightbulb/internal/alert"
	"github.com/sweeney/irm-lightbulb/internal/light"
)

// DefaultTopic is the MQTT topic for light events.
const DefaultTopic = "alerts/lightbulb/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "alerts/lightbulb/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a light event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event LightEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// LightEvent is an action taken on the light in response to an alert or a
// manual request.
type LightEvent struct {
	ID        string
	Timestamp time.Time
	Action    alert.Action
	State     light.State
	Title     string
	Severity  alert.Severity
	EventType string
}

// NewLightEvent builds a LightEvent with a fresh ID.
func NewLightEvent(action alert.Action, e alert.Event, state light.State, now time.Time) LightEvent {
	return LightEvent{
		ID:        uuid.NewString(),
		Timestamp: now,
		Action:    action,
		State:     state,
		Title:     e.Group.Title,
		Severity:  e.Group.Severity,
		EventType: e.Type,
	}
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Light LightPayload `json:"light"`
}

// LightPayload contains the light event details.
type LightPayload struct {
	ID        string `json:"event_id"`
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
	State     string `json:"state"`
	Title     string `json:"alert_title,omitempty"`
	Severity  string `json:"severity,omitempty"`
	EventType string `json:"event_type,omitempty"`
}

// FormatPayload creates the JSON payload for a light event.
func FormatPayload(event LightEvent) ([]byte, error) {
	payload := Payload{
		Light: LightPayload{
			ID:        event.ID,
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Action:    string(event.Action),
			State:     string(event.State),
			Title:     event.Title,
			Severity:  string(event.Severity),
			EventType: event.EventType,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// Nop discards everything. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(LightEvent) error        { return nil }
func (Nop) PublishSystem(SystemEvent) error { return nil }
func (Nop) Close() error                    { return nil }
func (Nop) IsConnected() bool               { return false }
