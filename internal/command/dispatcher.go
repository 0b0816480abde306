package command

import (
	"fmt"
	"time"

	"github.com/sweeney/pcmonitor/internal/config"
	"github.com/sweeney/pcmonitor/internal/logging"
	"github.com/sweeney/pcmonitor/internal/metrics"
)

// Actuator is the part of power.Actuator the dispatcher drives.
type Actuator interface {
	Set(pressed bool) error
	PressAndRelease() error
	ForceOff(timeout, poll time.Duration) error
}

// Options tunes a Dispatcher.
type Options struct {
	ForceOffTimeout time.Duration
	ForceOffPoll    time.Duration
	Log             logging.Logger
	Metrics         *metrics.Recorder
}

// Dispatcher routes commands to the actuator.
type Dispatcher struct {
	topics  config.Topics
	act     Actuator
	timeout time.Duration
	poll    time.Duration
	log     logging.Logger
	metrics *metrics.Recorder
}

// NewDispatcher creates a Dispatcher. Unset forced-off timings default to 10s
// and 250ms.
func NewDispatcher(topics config.Topics, act Actuator, opts Options) *Dispatcher {
	if opts.ForceOffTimeout <= 0 {
		opts.ForceOffTimeout = 10 * time.Second
	}
	if opts.ForceOffPoll <= 0 {
		opts.ForceOffPoll = 250 * time.Millisecond
	}
	if opts.Log == nil {
		opts.Log = logging.NopLogger{}
	}
	return &Dispatcher{
		topics:  topics,
		act:     act,
		timeout: opts.ForceOffTimeout,
		poll:    opts.ForceOffPoll,
		log:     opts.Log,
		metrics: opts.Metrics,
	}
}

// Dispatch parses and executes one inbound command. Unrecognized pairs are
// ignored: EffectNone and a nil error. Actuation errors are returned for the
// caller to log; they never carry a session effect.
func (d *Dispatcher) Dispatch(suffix, payload string) (Effect, error) {
	cmd, ok := Parse(d.topics, suffix, payload)
	if !ok {
		d.log.Debugf("ignored %s %q", suffix, payload)
		return EffectNone, nil
	}
	d.log.Infof("command %s", cmd)
	return d.Execute(cmd)
}

// Execute runs a parsed command.
func (d *Dispatcher) Execute(cmd Command) (Effect, error) {
	d.metrics.Command(string(cmd.Target), string(cmd.Action))

	var err error
	switch cmd {
	case Command{TargetSwitch, ActionOn}:
		err = d.act.Set(true)
	case Command{TargetSwitch, ActionOff}:
		err = d.act.Set(false)
	case Command{TargetESP, ActionStop}:
		return EffectStop, nil
	case Command{TargetESP, ActionReboot}:
		return EffectReboot, nil
	case Command{TargetPC, ActionOn}:
		err = d.act.PressAndRelease()
	case Command{TargetPC, ActionForceOff}:
		err = d.act.ForceOff(d.timeout, d.poll)
	case Command{TargetPC, ActionSleep}:
		// reserved
	default:
		return EffectNone, fmt.Errorf("unsupported command %s", cmd)
	}
	if err != nil {
		return EffectNone, fmt.Errorf("%s: %w", cmd, err)
	}
	return EffectNone, nil
}
