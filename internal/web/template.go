package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/pcmonitor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
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
	},
	"stateClass": func(s string) string {
		switch s {
		case "ON", "PRESSED", "CONNECTED":
			return "on"
		case "OFF", "RELEASED":
			return "off"
		}
		return "unknown"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>PC Monitor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>PC Monitor</h1>

<h2>State</h2>
<table>
<tr><th>Power LED</th><td id="sensor-state" class="{{stateClass .Sensor.String}}">{{.Sensor}}</td></tr>
<tr><th>Power switch</th><td id="switch-state" class="{{stateClass .Switch.String}}">{{.Switch}}</td></tr>
<tr><th>Session</th><td class="{{stateClass .Session}}">{{.Session}}</td></tr>
{{if .LastCommand}}<tr><th>Last command</th><td>{{.LastCommand}}</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Client ID</th><td>{{.Config.ClientID}}</td></tr>
<tr><th>Base topic</th><td>{{.Config.BaseTopic}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Counts</h2>
<table>
<tr><th>Commands</th><td>{{.Counts.Commands}}</td></tr>
<tr><th>Presses</th><td>{{.Counts.Presses}}</td></tr>
<tr><th>Forced off</th><td>{{.Counts.ForceOffs}}</td></tr>
<tr><th>Forced off timeouts</th><td>{{.Counts.ForceOffTimeouts}}</td></tr>
<tr><th>LED edges</th><td>{{.Counts.SensorEdges}}</td></tr>
<tr><th>Transport errors</th><td>{{.Counts.TransportErrors}}</td></tr>
<tr><th>Reconnects</th><td>{{.Counts.Reconnects}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Ping</th><td>{{.Config.PingFrequencySec}}s</td></tr>
<tr><th>Forced off timeout</th><td>{{.Config.ForceOffTimeoutMs}}ms</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has an Uptime method but the template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
