package mqtt

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sweeney/irm-lightbulb/internal/alert"
	"github.com/sweeney/irm-lightbulb/internal/light"
)

func sampleEvent() LightEvent {
	return LightEvent{
		ID:        "6f1c2a9e-3b44-4b0e-9a51-0d1f9b1e2c3d",
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Action:    alert.ActionTurnOn,
		State:     light.StateOn,
		Title:     "Disk full",
		Severity:  alert.SeverityCritical,
		EventType: alert.EventGroupCreated,
	}
}

func TestFormatPayload(t *testing.T) {
	payload, err := FormatPayload(sampleEvent())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Light.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("unexpected timestamp: %s", parsed.Light.Timestamp)
	}
	if parsed.Light.Action != "turned on" {
		t.Errorf("unexpected action: %s", parsed.Light.Action)
	}
	if parsed.Light.State != "on" {
		t.Errorf("unexpected state: %s", parsed.Light.State)
	}
	if parsed.Light.Severity != "critical" {
		t.Errorf("unexpected severity: %s", parsed.Light.Severity)
	}
	if parsed.Light.EventType != "alert_group_created" {
		t.Errorf("unexpected event type: %s", parsed.Light.EventType)
	}
}

func TestFormatPayloadExactJSON(t *testing.T) {
	payload, err := FormatPayload(sampleEvent())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{"light":{"event_id":"6f1c2a9e-3b44-4b0e-9a51-0d1f9b1e2c3d","timestamp":"2026-02-02T22:18:12Z","action":"turned on","state":"on","alert_title":"Disk full","severity":"critical","event_type":"alert_group_created"}}`
	if string(payload) != want {
		t.Errorf("payload mismatch:\ngot:  %s\nwant: %s", payload, want)
	}
}

func TestFormatPayloadOmitsEmptyAlertFields(t *testing.T) {
	event := LightEvent{
		ID:        "id",
		Timestamp: time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
		Action:    alert.ActionTurnOff,
		State:     light.StateOff,
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var raw map[string]map[string]interface{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"alert_title", "severity", "event_type"} {
		if _, ok := raw["light"][key]; ok {
			t.Errorf("%s should be omitted when empty", key)
		}
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	event := sampleEvent()
	event.Timestamp = time.Date(2026, 2, 3, 3, 18, 12, 0, loc)

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	json.Unmarshal(payload, &parsed)
	if parsed.Light.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("expected UTC timestamp, got %s", parsed.Light.Timestamp)
	}
}

func TestNewLightEvent(t *testing.T) {
	now := time.Date(2026, 2, 2, 12, 0, 0, 0, time.UTC)
	e := alert.Event{
		Type:  alert.EventGroupResolved,
		Group: alert.Group{Title: "CPU", Severity: alert.SeverityHigh, Status: alert.StatusResolved},
	}

	got := NewLightEvent(alert.ActionTurnOff, e, light.StateOff, now)

	if _, err := uuid.Parse(got.ID); err != nil {
		t.Errorf("ID is not a UUID: %q", got.ID)
	}
	if got.Title != "CPU" || got.Severity != alert.SeverityHigh || got.EventType != alert.EventGroupResolved {
		t.Errorf("alert fields not copied: %+v", got)
	}
	if got.Action != alert.ActionTurnOff || got.State != light.StateOff || !got.Timestamp.Equal(now) {
		t.Errorf("unexpected event: %+v", got)
	}

	other := NewLightEvent(alert.ActionTurnOff, e, light.StateOff, now)
	if other.ID == got.ID {
		t.Error("expected distinct IDs for distinct events")
	}
}

func TestTopics(t *testing.T) {
	if DefaultTopic != "alerts/lightbulb/events" {
		t.Errorf("unexpected topic: %s", DefaultTopic)
	}
	if TopicSystem != "alerts/lightbulb/system" {
		t.Errorf("unexpected system topic: %s", TopicSystem)
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{"system":{"timestamp":"2026-02-03T10:00:00Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != want {
		t.Errorf("payload mismatch:\ngot:  %s\nwant: %s", payload, want)
	}
}

func TestFormatSystemPayloadAllSignals(t *testing.T) {
	for _, reason := range []string{"SIGINT", "SIGTERM", "SIGHUP"} {
		t.Run(reason, func(t *testing.T) {
			payload, err := FormatSystemPayload(SystemEvent{
				Timestamp: time.Now(),
				Event:     "SHUTDOWN",
				Reason:    reason,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var parsed SystemPayload
			if err := json.Unmarshal(payload, &parsed); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if parsed.System.Reason != reason {
				t.Errorf("reason: got %s, want %s", parsed.System.Reason, reason)
			}
		})
	}
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"status":{"event":"HEARTBEAT"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "HEARTBEAT", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload passthrough, got %s", payload)
	}
}

func TestWillPayloadFormat(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{"system":{"timestamp":"2026-02-10T08:30:00Z","event":"SHUTDOWN","reason":"MQTT_DISCONNECT"}}`
	if string(payload) != want {
		t.Errorf("payload mismatch:\ngot:  %s\nwant: %s", payload, want)
	}
}

func TestFormatSystemPayloadReconnectedOmitsReason(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 8, 31, 0, 0, time.UTC),
		Event:     "RECONNECTED",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{"system":{"timestamp":"2026-02-10T08:31:00Z","event":"RECONNECTED"}}`
	if string(payload) != want {
		t.Errorf("payload mismatch:\ngot:  %s\nwant: %s", payload, want)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	if err := f.Publish(sampleEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(f.Events))
	}
	if f.Events[0].Action != alert.ActionTurnOn {
		t.Errorf("unexpected action: %s", f.Events[0].Action)
	}
	if len(f.Payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(f.Payloads))
	}
}

func TestFakePublisherError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("simulated error")

	if err := f.Publish(sampleEvent()); err == nil {
		t.Error("expected error")
	}
	if len(f.Events) != 0 {
		t.Error("events should not be recorded on error")
	}

	f.PublishSystemError = errors.New("simulated error")
	if err := f.PublishSystem(SystemEvent{Event: "STARTUP"}); err == nil {
		t.Error("expected system error")
	}
	if len(f.SystemEvents) != 0 {
		t.Error("system events should not be recorded on error")
	}
}

func TestFakePublisherRecordsRetainedFlag(t *testing.T) {
	f := NewFakePublisher()

	f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP", Retained: true})
	f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "HEARTBEAT"})

	if !f.SystemEvents[0].Retained {
		t.Error("STARTUP should be retained")
	}
	if f.SystemEvents[1].Retained {
		t.Error("HEARTBEAT should not be retained")
	}
	if got := f.SystemEventNames(); len(got) != 2 || got[0] != "STARTUP" || got[1] != "HEARTBEAT" {
		t.Errorf("SystemEventNames: got %v", got)
	}
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.Publish(sampleEvent())
	f.PublishSystem(SystemEvent{Event: "STARTUP"})
	f.Connected = true
	f.Close()

	f.Reset()

	if len(f.Events) != 0 || len(f.Payloads) != 0 || len(f.SystemEvents) != 0 || len(f.SystemPayloads) != 0 {
		t.Error("expected recorded events to be cleared")
	}
	if f.Closed || f.Connected {
		t.Error("expected flags to be cleared")
	}

	if err := f.Publish(sampleEvent()); err != nil {
		t.Fatalf("publisher should be reusable after reset: %v", err)
	}
}

func TestFakePublisherConcurrent(t *testing.T) {
	f := NewFakePublisher()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			f.Publish(sampleEvent())
		}()
		go func() {
			defer wg.Done()
			f.PublishSystem(SystemEvent{Event: "HEARTBEAT"})
		}()
	}
	wg.Wait()

	if n := len(f.LightEvents()); n != 50 {
		t.Errorf("expected 50 light events, got %d", n)
	}
	if n := len(f.SystemEventNames()); n != 50 {
		t.Errorf("expected 50 system events, got %d", n)
	}
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	if err := p.Publish(sampleEvent()); err != nil {
		t.Errorf("Publish: %v", err)
	}
	if err := p.PublishSystem(SystemEvent{Event: "STARTUP"}); err != nil {
		t.Errorf("PublishSystem: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if (Nop{}).IsConnected() {
		t.Error("Nop should never report connected")
	}
}

func TestNewRealPublisherUnreachableBrokerDoesNotStall(t *testing.T) {
	start := time.Now()
	p, err := NewRealPublisher(RealOptions{
		Broker:      "tcp://127.0.0.1:1",
		ClientID:    "irm-lightbulb-test",
		ConnectWait: 100 * time.Millisecond,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("unreachable broker should not fail construction: %v", err)
	}
	defer p.Close()

	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("construction took %v, want well under the old 10s stall", elapsed)
	}
	if p.IsConnected() {
		t.Error("expected not connected")
	}

	// Published while offline: buffered, not an error.
	if err := p.Publish(sampleEvent()); err != nil {
		t.Errorf("Publish while offline: %v", err)
	}
	p.mu.Lock()
	n := p.buffer.len()
	p.mu.Unlock()
	if n != 1 {
		t.Errorf("buffered: got %d, want 1", n)
	}
}

func TestNewRealPublisherRequiresBroker(t *testing.T) {
	if _, err := NewRealPublisher(RealOptions{}, zerolog.Nop()); err == nil {
		t.Error("expected error for empty broker")
	}
}
