// Package status provides a thread-safe status tracker for the irm-lightbulb daemon.
// It is read by HTTP handlers and by the MQTT heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/irm-lightbulb/internal/alert"
	"github.com/sweeney/irm-lightbulb/internal/light"
)

// ActionBlink is recorded for manual blinks. Webhook actions use alert.Action.
const ActionBlink alert.Action = "blinked"

// Config contains daemon configuration for display.
type Config struct {
	LightbulbType string
	GPIOChip      string
	GPIOPin       int
	HTTPAddr      string
	Broker        string
	Topic         string
	HeartbeatMs   int64
	Debug         bool
}

// LastAction describes the most recent action taken on the light.
type LastAction struct {
	Action    alert.Action
	Title     string
	Severity  alert.Severity
	EventType string
	OK        bool
	Time      time.Time
}

// Counts tracks actions since startup.
type Counts struct {
	On     int
	Off    int
	Blink  int
	Failed int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Light         light.State
	Lifecycle     light.Lifecycle
	Last          *LastAction
	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Light:     light.StateOff,
			Lifecycle: light.LifecycleUninitialized,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Record notes an action taken for an event. Failed actions only bump the
// failure count.
func (t *Tracker) Record(action alert.Action, e alert.Event, ok bool, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap.Last = &LastAction{
		Action:    action,
		Title:     e.Group.Title,
		Severity:  e.Group.Severity,
		EventType: e.Type,
		OK:        ok,
		Time:      at,
	}
	if !ok {
		t.snap.Counts.Failed++
		return
	}
	switch action {
	case alert.ActionTurnOn:
		t.snap.Counts.On++
	case alert.ActionTurnOff:
		t.snap.Counts.Off++
	case ActionBlink:
		t.snap.Counts.Blink++
	}
}

// SetLight sets the light state as last read from the controller.
func (t *Tracker) SetLight(state light.State, lc light.Lifecycle) {
	t.mu.Lock()
	t.snap.Light = state
	t.snap.Lifecycle = lc
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.Last != nil {
		last := *s.Last
		s.Last = &last
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
