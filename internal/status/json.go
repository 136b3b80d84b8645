package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string          `json:"event,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	Light         string          `json:"light"`
	Lifecycle     string          `json:"lifecycle"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	StartTime     string          `json:"start_time"`
	Timestamp     string          `json:"timestamp"`
	MQTT          MQTTStatus      `json:"mqtt"`
	Counts        CountsJSON      `json:"action_counts"`
	Last          *LastActionJSON `json:"last_action,omitempty"`
	Config        ConfigJSON      `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of action counts.
type CountsJSON struct {
	On     int `json:"on"`
	Off    int `json:"off"`
	Blink  int `json:"blink"`
	Failed int `json:"failed"`
}

// LastActionJSON is the JSON representation of the last action.
type LastActionJSON struct {
	Action    string `json:"action"`
	Title     string `json:"alert_title,omitempty"`
	Severity  string `json:"severity,omitempty"`
	EventType string `json:"event_type,omitempty"`
	OK        bool   `json:"ok"`
	Timestamp string `json:"timestamp"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	LightbulbType string `json:"lightbulb_type"`
	GPIOChip      string `json:"gpio_chip"`
	GPIOPin       int    `json:"gpio_pin"`
	HTTPAddr      string `json:"http_addr"`
	Broker        string `json:"broker,omitempty"`
	Topic         string `json:"topic,omitempty"`
	HeartbeatMs   int64  `json:"heartbeat_ms"`
	Debug         bool   `json:"debug"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Light:         string(snap.Light),
		Lifecycle:     string(snap.Lifecycle),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			On:     snap.Counts.On,
			Off:    snap.Counts.Off,
			Blink:  snap.Counts.Blink,
			Failed: snap.Counts.Failed,
		},
		Config: ConfigJSON{
			LightbulbType: snap.Config.LightbulbType,
			GPIOChip:      snap.Config.GPIOChip,
			GPIOPin:       snap.Config.GPIOPin,
			HTTPAddr:      snap.Config.HTTPAddr,
			Broker:        snap.Config.Broker,
			Topic:         snap.Config.Topic,
			HeartbeatMs:   snap.Config.HeartbeatMs,
			Debug:         snap.Config.Debug,
		},
	}
	if snap.Last != nil {
		inner.Last = &LastActionJSON{
			Action:    string(snap.Last.Action),
			Title:     snap.Last.Title,
			Severity:  string(snap.Last.Severity),
			EventType: snap.Last.EventType,
			OK:        snap.Last.OK,
			Timestamp: snap.Last.Time.UTC().Format(time.RFC3339),
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
