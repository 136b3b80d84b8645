package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/irm-lightbulb/internal/alert"
)

const defaultServerURL = "http://localhost:5000"

// apiClient talks to a running irm-lightbulb server.
type apiClient struct {
	baseURL    string
	httpClient *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// do sends body as JSON (if non-nil) and returns the status code and raw
// response body.
func (c *apiClient) do(method, path string, body interface{}) (int, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

// simulatedEvent builds the payload Grafana IRM would send for a test alert
// of the given severity.
func simulatedEvent(severity alert.Severity, resolved bool, now time.Time) alert.Event {
	ts := now.UTC().Format(time.RFC3339)
	e := alert.Event{
		Type: alert.EventGroupCreated,
		Group: alert.Group{
			ID:        "test-alert-001",
			Title:     "Test Alert - " + strings.ToUpper(string(severity)),
			Severity:  severity,
			Status:    alert.StatusFiring,
			CreatedAt: ts,
		},
		Payload: alert.Payload{
			Message: fmt.Sprintf("This is a test %s alert", severity),
			Labels: map[string]string{
				"severity":  string(severity),
				"alertname": "TestAlert",
				"instance":  "test-instance",
			},
			Annotations: map[string]string{
				"summary":     fmt.Sprintf("Test %s alert summary", severity),
				"description": fmt.Sprintf("This is a test %s alert description", severity),
			},
		},
	}
	if resolved {
		e.Type = alert.EventGroupResolved
		e.Group.Status = alert.StatusResolved
		e.Group.ResolvedAt = ts
	}
	return e
}

func newSendAlertCmd() *cobra.Command {
	var (
		serverURL string
		severity  string
		title     string
		resolved  bool
	)
	cmd := &cobra.Command{
		Use:   "send-alert",
		Short: "Post a simulated Grafana IRM alert to a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			e := simulatedEvent(alert.Severity(severity), resolved, time.Now())
			if title != "" {
				e.Group.Title = title
			}

			code, body, err := newAPIClient(serverURL).do(http.MethodPost, "/webhook/grafana-irm", e)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", code, bytes.TrimSpace(body))
			if code != http.StatusOK {
				return fmt.Errorf("server returned %d", code)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&serverURL, "url", defaultServerURL, "server base URL")
	cmd.Flags().StringVar(&severity, "severity", string(alert.SeverityWarning), "alert severity (critical, high, warning, info, low)")
	cmd.Flags().StringVar(&title, "title", "", "alert title (default derived from severity)")
	cmd.Flags().BoolVar(&resolved, "resolved", false, "send a resolution instead of a new alert")
	return cmd
}

func newPrintStatusCmd() *cobra.Command {
	var serverURL string
	cmd := &cobra.Command{
		Use:   "print-status",
		Short: "Print the LED state reported by a running server and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := fetchLEDStatus(newAPIClient(serverURL))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "LED: %s\n", state)
			return nil
		},
	}
	cmd.Flags().StringVar(&serverURL, "url", defaultServerURL, "server base URL")
	return cmd
}

func fetchLEDStatus(c *apiClient) (string, error) {
	code, body, err := c.do(http.MethodGet, "/api/led/status", nil)
	if err != nil {
		return "", err
	}
	if code != http.StatusOK {
		return "", fmt.Errorf("server returned %d: %s", code, bytes.TrimSpace(body))
	}
	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode status: %w", err)
	}
	return resp.Status, nil
}
