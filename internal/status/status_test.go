package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/pcmonitor/internal/power"
)

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{TickMs: 75, Broker: "tcp://localhost:1883", HTTPAddr: ":8080"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.TickMs != 75 {
		t.Errorf("Config.TickMs: got %d, want 75", snap.Config.TickMs)
	}
	if snap.Session != "DISCONNECTED" {
		t.Errorf("Session: got %q, want DISCONNECTED", snap.Session)
	}
	if snap.Sensor != power.SensorUnknown {
		t.Errorf("Sensor: got %v, want UNKNOWN", snap.Sensor)
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestUpdateActuator(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.UpdateActuator(power.Pressed, power.SensorOn, power.Stats{Presses: 3, ForceOffs: 1, SensorEdges: 7})

	snap := tr.Snapshot()
	if snap.Switch != power.Pressed {
		t.Errorf("Switch: got %v, want PRESSED", snap.Switch)
	}
	if snap.Sensor != power.SensorOn {
		t.Errorf("Sensor: got %v, want ON", snap.Sensor)
	}
	if snap.Counts.Presses != 3 {
		t.Errorf("Counts.Presses: got %d, want 3", snap.Counts.Presses)
	}
	if snap.Counts.SensorEdges != 7 {
		t.Errorf("Counts.SensorEdges: got %d, want 7", snap.Counts.SensorEdges)
	}
}

func TestRecordCounters(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.RecordCommand("pc:on")
	tr.RecordCommand("esp:stop")
	tr.RecordTransportError()
	tr.RecordReconnect()

	snap := tr.Snapshot()
	if snap.Counts.Commands != 2 {
		t.Errorf("Counts.Commands: got %d, want 2", snap.Counts.Commands)
	}
	if snap.LastCommand != "esp:stop" {
		t.Errorf("LastCommand: got %q, want esp:stop", snap.LastCommand)
	}
	if snap.Counts.TransportErrors != 1 || snap.Counts.Reconnects != 1 {
		t.Errorf("counts: got %+v", snap.Counts)
	}
}

func TestActuatorUpdateKeepsSessionCounters(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.RecordTransportError()
	tr.UpdateActuator(power.Released, power.SensorOff, power.Stats{})

	if got := tr.Snapshot().Counts.TransportErrors; got != 1 {
		t.Errorf("TransportErrors: got %d, want 1", got)
	}
}

func TestSetSessionAndMQTT(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetSession("CONNECTED")
	tr.SetMQTTConnected(true)
	snap := tr.Snapshot()
	if snap.Session != "CONNECTED" || !snap.MQTTConnected {
		t.Errorf("got session=%q connected=%v", snap.Session, snap.MQTTConnected)
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSetNetwork(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	if tr.Snapshot().Network != nil {
		t.Error("expected nil Network initially")
	}

	tr.SetNetwork(&NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected"})

	snap := tr.Snapshot()
	if snap.Network == nil {
		t.Fatal("expected non-nil Network")
	}
	if snap.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want %q", snap.Network.IP, "192.168.1.42")
	}
}

func TestReadNetworkInfo(t *testing.T) {
	t.Setenv(envNetworkStatus, "")
	if ReadNetworkInfo() != nil {
		t.Error("expected nil without NETWORK_STATUS")
	}

	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkType, "ethernet")
	t.Setenv(envNetworkIP, "10.0.0.7")
	info := ReadNetworkInfo()
	if info == nil {
		t.Fatal("expected network info")
	}
	if info.Type != "ethernet" || info.IP != "10.0.0.7" {
		t.Errorf("got %+v", info)
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Config{})

	before := time.Now()
	snap := tr.Snapshot()
	after := time.Now()

	if snap.Now.Before(before) || snap.Now.After(after) {
		t.Errorf("Now (%v) not between %v and %v", snap.Now, before, after)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.UpdateActuator(power.Pressed, power.SensorOn, power.Stats{})

	snap1 := tr.Snapshot()
	tr.UpdateActuator(power.Released, power.SensorOff, power.Stats{})

	if snap1.Switch != power.Pressed {
		t.Error("snapshot should be a copy; Switch was modified")
	}
	if snap1.Sensor != power.SensorOn {
		t.Error("snapshot should be a copy; Sensor was modified")
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Switch:        power.Released,
		Sensor:        power.SensorOn,
		Session:       "CONNECTED",
		LastCommand:   "pc:on",
		Counts:        Counts{Commands: 4, Presses: 2, ForceOffTimeouts: 1},
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config: Config{
			ClientID:  "pcmonitor-1234",
			Broker:    "tcp://localhost:1883",
			BaseTopic: "pcmonitor",
			TickMs:    75,
		},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Switch != "RELEASED" {
		t.Errorf("Switch: got %q, want RELEASED", parsed.Status.Switch)
	}
	if parsed.Status.Sensor != "ON" {
		t.Errorf("Sensor: got %q, want ON", parsed.Status.Sensor)
	}
	if parsed.Status.Session != "CONNECTED" {
		t.Errorf("Session: got %q", parsed.Status.Session)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
	if !parsed.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if parsed.Status.MQTT.ClientID != "pcmonitor-1234" {
		t.Errorf("MQTT.ClientID: got %q", parsed.Status.MQTT.ClientID)
	}
	if parsed.Status.Counts.Commands != 4 || parsed.Status.Counts.ForceOffTimeouts != 1 {
		t.Errorf("Counts: got %+v", parsed.Status.Counts)
	}
	if parsed.Status.Config.BaseTopic != "pcmonitor" {
		t.Errorf("Config.BaseTopic: got %q", parsed.Status.Config.BaseTopic)
	}
}

func TestFormatJSONUnknownSensor(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	var parsed StatusJSON
	json.Unmarshal(FormatJSON(snap), &parsed)

	if parsed.Status.Sensor != "UNKNOWN" {
		t.Errorf("Sensor: got %q, want UNKNOWN", parsed.Status.Sensor)
	}
	if parsed.Status.Switch != "RELEASED" {
		t.Errorf("Switch: got %q, want RELEASED", parsed.Status.Switch)
	}
}

func TestFormatJSONOmitsEmptyFields(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	var raw map[string]interface{}
	json.Unmarshal(FormatJSON(snap), &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["last_command"]; exists {
		t.Error("last_command should be omitted when empty")
	}
	if _, exists := status["network"]; exists {
		t.Error("network should be omitted when nil")
	}
}

func TestFormatJSONWithNetwork(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC),
		Network:   &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"},
	}

	var parsed StatusJSON
	json.Unmarshal(FormatJSON(snap), &parsed)

	if parsed.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if parsed.Status.Network.SSID != "MyNet" {
		t.Errorf("Network.SSID: got %q, want MyNet", parsed.Status.Network.SSID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.UpdateActuator(power.Released, power.SensorOn, power.Stats{SensorEdges: int64(i)})
			tr.RecordCommand("pc:on")
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetNetwork(&NetworkInfo{IP: "1.2.3.4"})
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
		}
	}()

	wg.Wait()
}
