// Package status provides a thread-safe view of the pcmonitor daemon for the
// HTTP status server.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/pcmonitor/internal/power"
)

// NetworkInfo contains network state published by the host's network helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	ClientID          string
	Broker            string
	BaseTopic         string
	TickMs            int64
	PingFrequencySec  int64
	ForceOffTimeoutMs int64
	HTTPAddr          string
}

// Counts are cumulative counters since start.
type Counts struct {
	Commands         int64
	Presses          int64
	ForceOffs        int64
	ForceOffTimeouts int64
	SensorEdges      int64
	TransportErrors  int64
	Reconnects       int64
}

// Snapshot is a point-in-time view of daemon state. It is a value type and
// safe to use after the lock is released.
type Snapshot struct {
	Switch        power.SwitchState
	Sensor        power.SensorState
	Session       string
	LastCommand   string
	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
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
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Session:   "DISCONNECTED",
			Config:    cfg,
		},
		now: time.Now,
	}
}

// UpdateActuator copies the actuator's switch, sensor and counters.
func (t *Tracker) UpdateActuator(sw power.SwitchState, sensor power.SensorState, st power.Stats) {
	t.mu.Lock()
	t.snap.Switch = sw
	t.snap.Sensor = sensor
	t.snap.Counts.Presses = st.Presses
	t.snap.Counts.ForceOffs = st.ForceOffs
	t.snap.Counts.ForceOffTimeouts = st.ForceOffTimeouts
	t.snap.Counts.SensorEdges = st.SensorEdges
	t.mu.Unlock()
}

// SetSession records the session state name.
func (t *Tracker) SetSession(state string) {
	t.mu.Lock()
	t.snap.Session = state
	t.mu.Unlock()
}

// RecordCommand counts an inbound command and remembers it.
func (t *Tracker) RecordCommand(desc string) {
	t.mu.Lock()
	t.snap.Counts.Commands++
	t.snap.LastCommand = desc
	t.mu.Unlock()
}

// RecordTransportError counts a failed broker operation.
func (t *Tracker) RecordTransportError() {
	t.mu.Lock()
	t.snap.Counts.TransportErrors++
	t.mu.Unlock()
}

// RecordReconnect counts a completed reconnect.
func (t *Tracker) RecordReconnect() {
	t.mu.Lock()
	t.snap.Counts.Reconnects++
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
