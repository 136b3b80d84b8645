// Package alert contains the pure domain logic for Grafana IRM alerts.
// This package has NO external dependencies (no GPIO, MQTT, HTTP, or time.Sleep).
// It decides what an alert means for the light; the light package decides how.
package alert

import (
	"encoding/json"
	"time"
)

// Severity is the alert urgency classification. It drives blink cadence.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
)

// Alert group lifecycle states as sent by Grafana IRM.
const (
	StatusFiring   = "firing"
	StatusResolved = "resolved"
)

// Event types sent by Grafana IRM that this daemon cares about.
const (
	EventGroupCreated  = "alert_group_created"
	EventGroupResolved = "alert_group_resolved"
)

// Action is the light action an event resolves to.
type Action string

const (
	ActionTurnOn  Action = "turned on"
	ActionTurnOff Action = "turned off"
)

// UnknownTitle is reported when an alert group carries no title.
const UnknownTitle = "Unknown"

// Event is a single inbound webhook call. It is decoded per request and
// never persisted.
type Event struct {
	Type    string  `json:"event_type"`
	Group   Group   `json:"alert_group"`
	Payload Payload `json:"alert_payload"`
}

// Group describes the alert group the event belongs to.
type Group struct {
	ID         string   `json:"id,omitempty"`
	Title      string   `json:"title,omitempty"`
	Severity   Severity `json:"severity"`
	Status     string   `json:"status"`
	CreatedAt  string   `json:"created_at,omitempty"`
	ResolvedAt string   `json:"resolved_at,omitempty"`
}

// Payload carries the free-form alert body.
type Payload struct {
	Message     string            `json:"message,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty"`
}

// DefaultGroup returns a Group with the defaults Grafana IRM omits.
func DefaultGroup() Group {
	return Group{Severity: SeverityWarning, Status: StatusFiring}
}

// UnmarshalJSON applies the severity and status defaults before decoding, so a
// missing, empty or null field keeps the default.
func (g *Group) UnmarshalJSON(data []byte) error {
	type plain Group
	p := plain(DefaultGroup())
	if string(data) != "null" {
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
	}
	if p.Severity == "" {
		p.Severity = SeverityWarning
	}
	if p.Status == "" {
		p.Status = StatusFiring
	}
	*g = Group(p)
	return nil
}

// UnmarshalJSON decodes a webhook body. A missing alert_group is treated as a
// default group, so every decoded event carries a severity.
func (e *Event) UnmarshalJSON(data []byte) error {
	type plain Event
	p := plain{Group: DefaultGroup()}
	if string(data) != "null" {
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
	}
	*e = Event(p)
	return nil
}

// Resolved reports whether the event clears the alert.
func (e Event) Resolved() bool {
	return e.Type == EventGroupResolved || e.Group.Status == StatusResolved
}

// Action returns the light action for the event.
func (e Event) Action() Action {
	if e.Resolved() {
		return ActionTurnOff
	}
	return ActionTurnOn
}

// Title returns the group title, or UnknownTitle if it is empty.
func (e Event) Title() string {
	if e.Group.Title == "" {
		return UnknownTitle
	}
	return e.Group.Title
}

// TestEvent returns the synthetic alert used by the test endpoint.
func TestEvent(now time.Time) Event {
	return Event{
		Type: EventGroupCreated,
		Group: Group{
			Title:     "Test Alert",
			Severity:  SeverityWarning,
			Status:    StatusFiring,
			CreatedAt: now.UTC().Format(time.RFC3339),
		},
		Payload: Payload{Message: "This is a test alert"},
	}
}
