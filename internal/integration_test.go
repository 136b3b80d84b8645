package internal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sweeney/irm-lightbulb/internal/gpio"
	"github.com/sweeney/irm-lightbulb/internal/light"
	"github.com/sweeney/irm-lightbulb/internal/mqtt"
	"github.com/sweeney/irm-lightbulb/internal/status"
	"github.com/sweeney/irm-lightbulb/internal/web"
)

type harness struct {
	ts      *httptest.Server
	ctrl    *light.Controller
	opener  *gpio.FakeOpener
	mock    *clock.Mock
	tracker *status.Tracker
	pub     *mqtt.FakePublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	opener := gpio.NewFakeOpener()
	mock := clock.NewMock()
	ctrl := light.New(light.Config{Type: light.TypeRaspberryPi, Pin: gpio.DefaultPin}, opener.Open, mock, zerolog.Nop())
	tracker := status.NewTracker(time.Now(), status.Config{LightbulbType: "raspberry_pi", GPIOPin: gpio.DefaultPin})
	pub := mqtt.NewFakePublisher()

	srv := web.New(":0", web.Options{Light: ctrl, Tracker: tracker, Publisher: pub, Logger: zerolog.Nop()})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &harness{ts: ts, ctrl: ctrl, opener: opener, mock: mock, tracker: tracker, pub: pub}
}

func (h *harness) post(t *testing.T, path, body string) int {
	t.Helper()
	resp, err := http.Post(h.ts.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

// settle advances the mock clock until the running blink sequence ends.
func (h *harness) settle(t *testing.T) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-h.ctrl.Done():
			return
		case <-deadline:
			t.Fatal("blink sequence did not finish")
		default:
			h.mock.Add(50 * time.Millisecond)
		}
	}
}

// TestIntegrationAlertLifecycle drives a firing and a resolved alert through
// the HTTP layer down to the GPIO line and out to MQTT.
func TestIntegrationAlertLifecycle(t *testing.T) {
	h := newHarness(t)

	firing := `{"event_type":"alert_group_created","alert_group":{"id":"AG7","title":"API latency","severity":"high","status":"firing"}}`
	if code := h.post(t, "/webhook/grafana-irm", firing); code != 200 {
		t.Fatalf("firing webhook: got %d, want 200", code)
	}
	h.settle(t)

	// high: three on/off pairs, then rest on
	want := []int{1, 0, 1, 0, 1, 0, 1}
	if got := h.opener.Line.Writes(); !equalInts(got, want) {
		t.Errorf("writes after firing: got %v, want %v", got, want)
	}
	if h.ctrl.Status() != light.StateOn {
		t.Errorf("light after firing: got %q, want on", h.ctrl.Status())
	}

	resolved := `{"event_type":"alert_group_resolved","alert_group":{"id":"AG7","title":"API latency","severity":"high","status":"resolved"}}`
	if code := h.post(t, "/webhook/grafana-irm", resolved); code != 200 {
		t.Fatalf("resolved webhook: got %d, want 200", code)
	}
	if h.ctrl.Status() != light.StateOff {
		t.Errorf("light after resolve: got %q, want off", h.ctrl.Status())
	}

	if len(h.pub.Payloads) != 2 {
		t.Fatalf("expected 2 MQTT payloads, got %d", len(h.pub.Payloads))
	}
	var first mqtt.Payload
	if err := json.Unmarshal(h.pub.Payloads[0], &first); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if first.Light.Action != "turned on" || first.Light.Severity != "high" || first.Light.Title != "API latency" {
		t.Errorf("first payload: %+v", first.Light)
	}
	var second mqtt.Payload
	json.Unmarshal(h.pub.Payloads[1], &second)
	if second.Light.Action != "turned off" || second.Light.State != "off" {
		t.Errorf("second payload: %+v", second.Light)
	}

	snap := h.tracker.Snapshot()
	if snap.Counts.On != 1 || snap.Counts.Off != 1 {
		t.Errorf("counts: got %+v", snap.Counts)
	}

	if err := h.ctrl.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if !h.opener.Line.Closed() {
		t.Error("line should be released after cleanup")
	}
	if h.opener.Line.Current() != gpio.Inactive {
		t.Error("line should be driven inactive on cleanup")
	}
}

// TestIntegrationResolveDuringPattern checks that a resolution arriving while
// a critical pattern is still blinking leaves the light off.
func TestIntegrationResolveDuringPattern(t *testing.T) {
	h := newHarness(t)

	h.post(t, "/webhook/grafana-irm", `{"alert_group":{"title":"DB down","severity":"critical"}}`)
	h.mock.Add(600 * time.Millisecond)
	h.post(t, "/webhook/grafana-irm", `{"event_type":"alert_group_resolved","alert_group":{"title":"DB down"}}`)

	n := len(h.opener.Line.Writes())
	h.settle(t)
	h.mock.Add(5 * time.Second)

	writes := h.opener.Line.Writes()
	if len(writes) != n {
		t.Errorf("pattern kept writing after resolve: %v", writes)
	}
	if h.ctrl.Status() != light.StateOff {
		t.Errorf("light: got %q, want off", h.ctrl.Status())
	}
}

// TestIntegrationHeartbeatSnapshot mirrors the daemon's heartbeat: the
// tracker snapshot is formatted and published on the system topic.
func TestIntegrationHeartbeatSnapshot(t *testing.T) {
	h := newHarness(t)
	h.post(t, "/api/led/on", "")

	snap := h.tracker.Snapshot()
	err := h.pub.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "HEARTBEAT",
		RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
	})
	if err != nil {
		t.Fatalf("publish heartbeat: %v", err)
	}

	var parsed status.StatusJSON
	if err := json.Unmarshal(h.pub.SystemPayloads[0], &parsed); err != nil {
		t.Fatalf("invalid heartbeat JSON: %v", err)
	}
	if parsed.Status.Event != "HEARTBEAT" {
		t.Errorf("event: got %q", parsed.Status.Event)
	}
	if parsed.Status.Light != "on" {
		t.Errorf("light: got %q, want on", parsed.Status.Light)
	}
	if parsed.Status.Counts.On != 1 {
		t.Errorf("counts.on: got %d, want 1", parsed.Status.Counts.On)
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
