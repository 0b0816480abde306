// Package metrics exposes controller activity as Prometheus collectors.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the controller's collectors. A nil *Recorder is valid and
// records nothing, so components can run without metrics.
type Recorder struct {
	commands        *prometheus.CounterVec
	switchWrites    *prometheus.CounterVec
	forceOffs       *prometheus.CounterVec
	sensorEdges     prometheus.Counter
	publishes       prometheus.Counter
	pings           prometheus.Counter
	transportErrors *prometheus.CounterVec
	reconnects      prometheus.Counter
	sessionState    *prometheus.GaugeVec
}

// NewRecorder registers the collectors on reg. If reg is nil, the default
// registerer is used. Collectors already registered are reused.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &Recorder{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pcmonitor_commands_total",
			Help: "Recognized remote commands by target and action",
		}, []string{"target", "action"}),
		switchWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pcmonitor_switch_writes_total",
			Help: "Power switch output writes by level",
		}, []string{"level"}),
		forceOffs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pcmonitor_force_off_total",
			Help: "Forced-off sequences by result",
		}, []string{"result"}),
		sensorEdges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pcmonitor_sensor_edges_total",
			Help: "Power LED transitions observed by the edge handler",
		}),
		publishes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pcmonitor_publishes_total",
			Help: "Messages published to the broker",
		}),
		pings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pcmonitor_pings_total",
			Help: "Keepalive pings issued by the session loop",
		}),
		transportErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pcmonitor_transport_errors_total",
			Help: "Broker errors by operation",
		}, []string{"op"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pcmonitor_reconnects_total",
			Help: "Session reconnects forced by repeated failures",
		}),
		sessionState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pcmonitor_session_state",
			Help: "1 for the current session state, 0 otherwise",
		}, []string{"state"}),
	}

	var err error
	r.commands, err = register(reg, r.commands)
	if err != nil {
		return nil, err
	}
	r.switchWrites, err = register(reg, r.switchWrites)
	if err != nil {
		return nil, err
	}
	r.forceOffs, err = register(reg, r.forceOffs)
	if err != nil {
		return nil, err
	}
	r.sensorEdges, err = register(reg, r.sensorEdges)
	if err != nil {
		return nil, err
	}
	r.publishes, err = register(reg, r.publishes)
	if err != nil {
		return nil, err
	}
	r.pings, err = register(reg, r.pings)
	if err != nil {
		return nil, err
	}
	r.transportErrors, err = register(reg, r.transportErrors)
	if err != nil {
		return nil, err
	}
	r.reconnects, err = register(reg, r.reconnects)
	if err != nil {
		return nil, err
	}
	r.sessionState, err = register(reg, r.sessionState)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (r *Recorder) Command(target, action string) {
	if r == nil {
		return
	}
	r.commands.WithLabelValues(target, action).Inc()
}

func (r *Recorder) SwitchWrite(pressed bool) {
	if r == nil {
		return
	}
	level := "released"
	if pressed {
		level = "pressed"
	}
	r.switchWrites.WithLabelValues(level).Inc()
}

// ForceOff records the outcome of a forced-off sequence: "ok", "timeout",
// "skipped" or "error".
func (r *Recorder) ForceOff(result string) {
	if r == nil {
		return
	}
	r.forceOffs.WithLabelValues(result).Inc()
}

// SensorEdge is safe to call from the GPIO event goroutine.
func (r *Recorder) SensorEdge() {
	if r == nil {
		return
	}
	r.sensorEdges.Inc()
}

func (r *Recorder) Publish() {
	if r == nil {
		return
	}
	r.publishes.Inc()
}

func (r *Recorder) Ping() {
	if r == nil {
		return
	}
	r.pings.Inc()
}

func (r *Recorder) TransportError(op string) {
	if r == nil {
		return
	}
	r.transportErrors.WithLabelValues(op).Inc()
}

func (r *Recorder) Reconnect() {
	if r == nil {
		return
	}
	r.reconnects.Inc()
}

// SessionState marks current as the only active state among all.
func (r *Recorder) SessionState(current string, all []string) {
	if r == nil {
		return
	}
	for _, s := range all {
		v := 0.0
		if s == current {
			v = 1
		}
		r.sessionState.WithLabelValues(s).Set(v)
	}
}
