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
	Switch        string       `json:"switch"`
	Sensor        string       `json:"sensor"`
	Session       string       `json:"session"`
	LastCommand   string       `json:"last_command,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
	ClientID  string `json:"client_id"`
}

// CountsJSON is the JSON representation of the counters.
type CountsJSON struct {
	Commands         int64 `json:"commands"`
	Presses          int64 `json:"presses"`
	ForceOffs        int64 `json:"force_offs"`
	ForceOffTimeouts int64 `json:"force_off_timeouts"`
	SensorEdges      int64 `json:"sensor_edges"`
	TransportErrors  int64 `json:"transport_errors"`
	Reconnects       int64 `json:"reconnects"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	BaseTopic         string `json:"base_topic"`
	TickMs            int64  `json:"tick_ms"`
	PingFrequencySec  int64  `json:"ping_frequency_s"`
	ForceOffTimeoutMs int64  `json:"force_off_timeout_ms"`
	HTTPAddr          string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Switch:        snap.Switch.String(),
		Sensor:        snap.Sensor.String(),
		Session:       snap.Session,
		LastCommand:   snap.LastCommand,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT: MQTTStatus{
			Connected: snap.MQTTConnected,
			Broker:    snap.Config.Broker,
			ClientID:  snap.Config.ClientID,
		},
		Counts: CountsJSON(snap.Counts),
		Config: ConfigJSON{
			BaseTopic:         snap.Config.BaseTopic,
			TickMs:            snap.Config.TickMs,
			PingFrequencySec:  snap.Config.PingFrequencySec,
			ForceOffTimeoutMs: snap.Config.ForceOffTimeoutMs,
			HTTPAddr:          snap.Config.HTTPAddr,
		},
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the indented JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}
