// Package power drives the PC power switch and tracks the power LED.
//
// The Actuator is owned by the session loop goroutine. The one exception is
// OnSensorEdge, which the GPIO event goroutine calls; it touches only the
// atomic sensor cell and the pending flag. The loop publishes the change
// later from DrainSensor.
package power

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/sweeney/pcmonitor/internal/config"
	"github.com/sweeney/pcmonitor/internal/gpio"
	"github.com/sweeney/pcmonitor/internal/logging"
	"github.com/sweeney/pcmonitor/internal/metrics"
)

// ErrForceOffTimeout is returned when the LED stayed on for the whole
// forced-off window. The switch has been released.
var ErrForceOffTimeout = errors.New("power: machine still on after forced off")

// DefaultDwell is how long PressAndRelease holds the switch.
const DefaultDwell = 500 * time.Millisecond

// Publisher sends raw status updates to the broker.
type Publisher interface {
	Publish(topic string, payload []byte, retained bool) error
}

// Options tunes an Actuator. Zero values select defaults.
type Options struct {
	Dwell   time.Duration
	Sleep   func(time.Duration)
	Log     logging.Logger
	Metrics *metrics.Recorder
}

// Stats counts actuator activity since start.
type Stats struct {
	Presses          int64
	ForceOffs        int64
	ForceOffTimeouts int64
	SensorEdges      int64
}

// Actuator owns the switch output and the cached sensor state.
type Actuator struct {
	out     gpio.Output
	pub     Publisher
	topics  config.Topics
	dwell   time.Duration
	sleep   func(time.Duration)
	log     logging.Logger
	metrics *metrics.Recorder

	state SwitchState

	sensor  atomic.Int32 // SensorState, written by the edge handler
	pending atomic.Bool  // sensor changed since the last DrainSensor

	published SensorState // last LED level published, owned by the loop

	presses          atomic.Int64
	forceOffs        atomic.Int64
	forceOffTimeouts atomic.Int64
	edges            atomic.Int64
}

// New creates an Actuator in the Released state with an Unknown sensor.
// It does not write the output line.
func New(out gpio.Output, pub Publisher, topics config.Topics, opts Options) *Actuator {
	if opts.Dwell <= 0 {
		opts.Dwell = DefaultDwell
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	if opts.Log == nil {
		opts.Log = logging.NopLogger{}
	}
	return &Actuator{
		out:     out,
		pub:     pub,
		topics:  topics,
		dwell:   opts.Dwell,
		sleep:   opts.Sleep,
		log:     opts.Log,
		metrics: opts.Metrics,
	}
}

// Attach registers the edge handler, then reads the sensor once to leave
// Unknown and marks the level for publication. An edge delivered between the
// registration and the read wins over the read.
func (a *Actuator) Attach(in gpio.Input) error {
	in.OnEdge(a.OnSensorEdge)
	on, err := in.Read()
	if err != nil {
		return fmt.Errorf("read sensor: %w", err)
	}
	a.sensor.CompareAndSwap(int32(SensorUnknown), int32(sensorFromLevel(on)))
	a.pending.Store(true)
	a.log.Infof("sensor attached, led=%s", a.Sensor())
	return nil
}

// Switch returns the current switch state.
func (a *Actuator) Switch() SwitchState {
	return a.state
}

// Sensor returns the cached sensor state.
func (a *Actuator) Sensor() SensorState {
	return SensorState(a.sensor.Load())
}

// Stats returns a snapshot of the activity counters.
func (a *Actuator) Stats() Stats {
	return Stats{
		Presses:          a.presses.Load(),
		ForceOffs:        a.forceOffs.Load(),
		ForceOffTimeouts: a.forceOffTimeouts.Load(),
		SensorEdges:      a.edges.Load(),
	}
}

// Set drives the switch and publishes the raw switch status. Every call
// publishes, even when the level is unchanged. A failed write leaves the state
// untouched and publishes nothing; a failed publish is logged only.
func (a *Actuator) Set(pressed bool) error {
	if err := a.out.Write(pressed); err != nil {
		return fmt.Errorf("set switch: %w", err)
	}
	a.state = Released
	if pressed {
		a.state = Pressed
		a.presses.Add(1)
	}
	a.metrics.SwitchWrite(pressed)
	a.log.Debugf("switch %s", a.state)

	if err := a.pub.Publish(a.topics.Topic(config.RawSwitchStatus), payload(pressed), false); err != nil {
		a.metrics.TransportError("publish")
		a.log.Errorf("publish switch status: %v", err)
		return nil
	}
	a.metrics.Publish()
	return nil
}

// PressAndRelease presses the switch for the dwell time. It blocks the caller
// for the dwell. The switch is released even when the press fails.
func (a *Actuator) PressAndRelease() (err error) {
	defer func() {
		if rerr := a.Set(false); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()

	if err := a.Set(true); err != nil {
		return err
	}
	a.sleep(a.dwell)
	return nil
}

// ForceOff holds the switch until the sensor reads Off, polling every poll for
// at most ceil(timeout/poll) polls, then releases it whatever happened.
// It is a no-op unless the sensor reads On.
func (a *Actuator) ForceOff(timeout, poll time.Duration) (err error) {
	if s := a.Sensor(); s != SensorOn {
		a.log.Infof("force off skipped, led=%s", s)
		a.metrics.ForceOff("skipped")
		return nil
	}

	if poll <= 0 {
		poll = timeout
	}
	polls := 1
	if poll > 0 {
		polls = max(1, int(math.Ceil(float64(timeout)/float64(poll))))
	}

	a.forceOffs.Add(1)
	defer func() {
		if rerr := a.Set(false); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()

	if err := a.Set(true); err != nil {
		a.metrics.ForceOff("error")
		return err
	}
	for i := 1; i <= polls; i++ {
		a.sleep(poll)
		if a.Sensor() == SensorOff {
			a.log.Infof("force off confirmed after %d polls", i)
			a.metrics.ForceOff("ok")
			return nil
		}
	}

	a.forceOffTimeouts.Add(1)
	a.metrics.ForceOff("timeout")
	return fmt.Errorf("%w: %d polls over %v", ErrForceOffTimeout, polls, timeout)
}

// OnSensorEdge caches the new LED level. It runs on the GPIO event goroutine:
// one atomic swap of the cell, and the pending flag set only on an actual
// change. Rapid toggles coalesce to the latest level.
func (a *Actuator) OnSensorEdge(on bool) {
	next := int32(sensorFromLevel(on))
	if a.sensor.Swap(next) == next {
		return
	}
	a.edges.Add(1)
	a.metrics.SensorEdge()
	a.pending.Store(true)
}

// DrainSensor publishes the latest LED level if an edge arrived since the
// last drain and the level differs from the last one published. On a failed
// publish the change stays pending for the next call.
func (a *Actuator) DrainSensor() error {
	if !a.pending.Swap(false) {
		return nil
	}
	s := a.Sensor()
	if s == SensorUnknown || s == a.published {
		return nil
	}
	if err := a.pub.Publish(a.topics.Topic(config.RawLEDStatus), payload(s == SensorOn), false); err != nil {
		a.pending.Store(true)
		return fmt.Errorf("publish led status: %w", err)
	}
	a.published = s
	a.metrics.Publish()
	a.log.Debugf("led %s published", s)
	return nil
}
