package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/irm-lightbulb/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": formatUptime,
	"ts": func(t time.Time) string {
		return t.UTC().Format(time.RFC3339)
	},
}).Parse(indexHTML))

func formatUptime(d time.Duration) string {
	d = d.Truncate(time.Second)
	days := int(d.Hours()) / 24
	h := int(d.Hours()) % 24
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
	}
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>IRM Lightbulb</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.error, .unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>IRM Lightbulb</h1>

<h2>Light</h2>
<table>
<tr><th>State</th><td id="light-state" class="{{.Light}}">{{.Light}}</td></tr>
<tr><th>Line</th><td>{{.Lifecycle}}</td></tr>
<tr><th>Type</th><td>{{.Config.LightbulbType}}</td></tr>
<tr><th>GPIO</th><td>{{.Config.GPIOChip}} line {{.Config.GPIOPin}}</td></tr>
</table>

<h2>Last Action</h2>
<table>
{{with .Last}}<tr><th>Action</th><td>{{.Action}}{{if not .OK}} (failed){{end}}</td></tr>
<tr><th>Alert</th><td>{{if .Title}}{{.Title}}{{else}}-{{end}}</td></tr>
<tr><th>Severity</th><td>{{if .Severity}}{{.Severity}}{{else}}-{{end}}</td></tr>
<tr><th>At</th><td>{{ts .Time}}</td></tr>{{else}}<tr><td>none yet</td></tr>{{end}}
</table>

<h2>Action Counts</h2>
<table>
<tr><th>Turned on</th><td>{{.Counts.On}}</td></tr>
<tr><th>Turned off</th><td>{{.Counts.Off}}</td></tr>
<tr><th>Blinked</th><td>{{.Counts.Blink}}</td></tr>
<tr><th>Failed</th><td>{{.Counts.Failed}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{ts .StartTime}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
