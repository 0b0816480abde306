// Package session runs the single-threaded control loop: it owns the broker
// session, services inbound commands and keeps the connection alive.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/pcmonitor/internal/command"
	"github.com/sweeney/pcmonitor/internal/config"
	"github.com/sweeney/pcmonitor/internal/gpio"
	"github.com/sweeney/pcmonitor/internal/logging"
	"github.com/sweeney/pcmonitor/internal/metrics"
	"github.com/sweeney/pcmonitor/internal/mqtt"
	"github.com/sweeney/pcmonitor/internal/power"
	"github.com/sweeney/pcmonitor/internal/status"
)

// Status payloads.
const (
	PayloadOnline           = "ON"
	PayloadOffline          = "OFF"
	PayloadManualDisconnect = "MANUAL_DISCONNECT"
	DefaultWillPayload      = "OUT_OF_SYNC"
)

// Actuator is the part of power.Actuator the loop needs.
type Actuator interface {
	DrainSensor() error
	Switch() power.SwitchState
	Sensor() power.SensorState
	Stats() power.Stats
}

// Dispatcher executes inbound commands.
type Dispatcher interface {
	Dispatch(suffix, payload string) (command.Effect, error)
}

// Options configures a Loop. Zero durations select the defaults.
type Options struct {
	// Client carries the broker connection parameters; the will is filled
	// in by the loop.
	Client      mqtt.Options
	WillPayload string

	Tick                   time.Duration
	PingInterval           time.Duration
	ErrorBackoff           time.Duration
	ReconnectAfterFailures int

	// Heartbeat, if set, is toggled once per tick.
	Heartbeat gpio.Output

	Tracker *status.Tracker
	Metrics *metrics.Recorder
	Log     logging.Logger

	Now   func() time.Time
	Sleep func(time.Duration)
}

// Loop is the session state machine.
type Loop struct {
	client mqtt.Client
	act    Actuator
	disp   Dispatcher
	topics config.Topics
	opts   Options

	log     logging.Logger
	metrics *metrics.Recorder
	tracker *status.Tracker
	now     func() time.Time
	sleep   func(time.Duration)

	state     State
	lastPing  time.Time
	failures  int
	heartbeat bool
}

// New creates a Loop in the Disconnected state.
func New(client mqtt.Client, act Actuator, disp Dispatcher, topics config.Topics, opts Options) *Loop {
	if opts.Tick <= 0 {
		opts.Tick = 75 * time.Millisecond
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.ErrorBackoff <= 0 {
		opts.ErrorBackoff = time.Second
	}
	if opts.WillPayload == "" {
		opts.WillPayload = DefaultWillPayload
	}
	if opts.Log == nil {
		opts.Log = logging.NopLogger{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	opts.Client.Will = mqtt.Will{
		Topic:    topics.Topic(config.Status),
		Payload:  opts.WillPayload,
		Retained: true,
	}
	l := &Loop{
		client:  client,
		act:     act,
		disp:    disp,
		topics:  topics,
		opts:    opts,
		log:     opts.Log,
		metrics: opts.Metrics,
		tracker: opts.Tracker,
		now:     opts.Now,
		sleep:   opts.Sleep,
	}
	l.setState(Disconnected)
	return l
}

// State returns the current session state.
func (l *Loop) State() State { return l.state }

func (l *Loop) setState(s State) {
	l.state = s
	l.metrics.SessionState(s.String(), stateNames)
	if l.tracker != nil {
		l.tracker.SetSession(s.String())
		l.tracker.SetMQTTConnected(s == Connected)
	}
}

// Connect opens the broker session, subscribes to the command topics and
// announces the device online. On failure the session is left Disconnected.
func (l *Loop) Connect() error {
	l.setState(Connecting)
	l.log.Infof("connecting to %s as %s", l.opts.Client.Broker, l.opts.Client.ClientID)

	if err := l.client.Connect(l.opts.Client); err != nil {
		l.setState(Disconnected)
		return fmt.Errorf("connect %s: %w", l.opts.Client.Broker, err)
	}

	filter := l.topics.CommandFilter()
	if err := l.client.Subscribe(filter); err != nil {
		l.abort()
		return fmt.Errorf("subscribe %s: %w", filter, err)
	}

	if err := l.publish(config.Status, PayloadOnline, true); err != nil {
		l.abort()
		return fmt.Errorf("announce online: %w", err)
	}

	l.lastPing = l.now()
	l.failures = 0
	l.setState(Connected)
	l.log.Infof("connected, listening on %s", filter)
	return nil
}

func (l *Loop) abort() {
	if err := l.client.Disconnect(); err != nil {
		l.log.Warnf("close after failed connect: %v", err)
	}
	l.setState(Disconnected)
}

func (l *Loop) publish(name config.Name, payload string, retained bool) error {
	if err := l.client.Publish(l.topics.Topic(name), []byte(payload), retained); err != nil {
		return err
	}
	l.metrics.Publish()
	return nil
}

// Tick runs one iteration of the connected loop. Transport errors are logged
// and followed by the error backoff; they are not returned. A non-nil error
// means a reconnect attempt failed and the session is Disconnected.
func (l *Loop) Tick() (command.Effect, error) {
	var failed bool

	if err := l.act.DrainSensor(); err != nil {
		l.transportError("publish", err)
		failed = true
	}

	msg, ok, err := l.client.CheckMessage()
	if err != nil {
		l.transportError("check", err)
		failed = true
	} else if ok {
		if eff := l.handle(msg); eff != command.EffectNone {
			l.syncTracker()
			return eff, nil
		}
	}

	if now := l.now(); now.Sub(l.lastPing) >= l.opts.PingInterval {
		l.lastPing = now
		if err := l.client.Ping(); err != nil {
			l.transportError("ping", err)
			failed = true
		} else {
			l.metrics.Ping()
		}
	}

	if failed {
		l.failures++
		l.sleep(l.opts.ErrorBackoff)
		if n := l.opts.ReconnectAfterFailures; n > 0 && l.failures >= n {
			if err := l.reconnect(); err != nil {
				return command.EffectNone, err
			}
		}
	} else {
		l.failures = 0
	}

	l.sleep(l.opts.Tick)
	l.toggleHeartbeat()
	l.syncTracker()
	return command.EffectNone, nil
}

func (l *Loop) handle(msg mqtt.Message) command.Effect {
	payload := string(msg.Payload)
	suffix, ok := l.topics.Split(msg.Topic)
	if !ok {
		l.log.Debugf("ignoring message on %s", msg.Topic)
		return command.EffectNone
	}
	l.log.Infof("received %s: %q", msg.Topic, payload)
	if l.tracker != nil {
		l.tracker.RecordCommand(suffix + " " + payload)
	}

	eff, err := l.disp.Dispatch(suffix, payload)
	if err != nil {
		l.log.Errorf("command %s %q: %v", suffix, payload, err)
	}
	return eff
}

func (l *Loop) transportError(op string, err error) {
	l.log.Errorf("%s failed: %v", op, err)
	l.metrics.TransportError(op)
	if l.tracker != nil {
		l.tracker.RecordTransportError()
	}
}

func (l *Loop) reconnect() error {
	l.log.Warnf("%d consecutive failures, reconnecting", l.failures)
	if err := l.client.Disconnect(); err != nil {
		l.log.Warnf("close before reconnect: %v", err)
	}
	l.setState(Disconnected)
	if err := l.Connect(); err != nil {
		return fmt.Errorf("reconnect: %w", err)
	}
	l.metrics.Reconnect()
	if l.tracker != nil {
		l.tracker.RecordReconnect()
	}
	return nil
}

func (l *Loop) toggleHeartbeat() {
	if l.opts.Heartbeat == nil {
		return
	}
	l.heartbeat = !l.heartbeat
	if err := l.opts.Heartbeat.Write(l.heartbeat); err != nil {
		l.log.Debugf("heartbeat write: %v", err)
	}
}

func (l *Loop) syncTracker() {
	if l.tracker == nil {
		return
	}
	l.tracker.UpdateActuator(l.act.Switch(), l.act.Sensor(), l.act.Stats())
}

// Disconnect announces the device offline, marks the disconnect as
// intentional and closes the session. It is a no-op when Disconnected.
func (l *Loop) Disconnect() error {
	if l.state == Disconnected {
		return nil
	}
	l.setState(Disconnecting)

	var errs []error
	if err := l.publish(config.Status, PayloadOffline, true); err != nil {
		errs = append(errs, fmt.Errorf("announce offline: %w", err))
	}
	if err := l.publish(config.Status, PayloadManualDisconnect, false); err != nil {
		errs = append(errs, fmt.Errorf("announce manual disconnect: %w", err))
	}
	if err := l.client.Disconnect(); err != nil {
		errs = append(errs, fmt.Errorf("close: %w", err))
	}
	if l.opts.Heartbeat != nil {
		l.heartbeat = false
		if err := l.opts.Heartbeat.Write(false); err != nil {
			l.log.Debugf("heartbeat write: %v", err)
		}
	}

	l.setState(Disconnected)
	l.log.Infof("disconnected")
	return errors.Join(errs...)
}

// Run connects if needed and ticks until a command requests Stop or Reboot,
// ctx is cancelled, or the loop panics. Every exit after a successful connect
// disconnects first. The terminating effect is returned; cancellation
// returns EffectNone.
func (l *Loop) Run(ctx context.Context) (eff command.Effect, err error) {
	if l.state != Connected {
		if err := l.Connect(); err != nil {
			return command.EffectNone, err
		}
	}

	defer func() {
		if r := recover(); r != nil {
			l.log.Errorf("session loop panic: %v", r)
			eff = command.EffectNone
			err = fmt.Errorf("session loop panic: %v", r)
		}
		if derr := l.Disconnect(); derr != nil {
			l.log.Warnf("disconnect: %v", derr)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			l.log.Infof("shutting down: %v", context.Cause(ctx))
			return command.EffectNone, nil
		default:
		}

		eff, err := l.Tick()
		if err != nil {
			return command.EffectNone, err
		}
		if eff != command.EffectNone {
			l.log.Infof("%s requested", eff)
			return eff, nil
		}
	}
}
