package command

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/pcmonitor/internal/config"
)

type forceOffCall struct {
	timeout, poll time.Duration
}

type fakeActuator struct {
	sets     []bool
	presses  int
	forceOff []forceOffCall
	err      error
}

func (f *fakeActuator) Set(pressed bool) error {
	f.sets = append(f.sets, pressed)
	return f.err
}

func (f *fakeActuator) PressAndRelease() error {
	f.presses++
	return f.err
}

func (f *fakeActuator) ForceOff(timeout, poll time.Duration) error {
	f.forceOff = append(f.forceOff, forceOffCall{timeout, poll})
	return f.err
}

func newTestDispatcher() (*Dispatcher, *fakeActuator) {
	act := &fakeActuator{}
	return NewDispatcher(config.DefaultTopics(), act, Options{}), act
}

func TestParse(t *testing.T) {
	topics := config.DefaultTopics()
	tests := []struct {
		suffix  string
		payload string
		want    Command
	}{
		{"cmd/raw_switch", "ON", Command{TargetSwitch, ActionOn}},
		{"cmd/raw_switch", "1", Command{TargetSwitch, ActionOn}},
		{"cmd/raw_switch", "off", Command{TargetSwitch, ActionOff}},
		{"cmd/raw_switch", "0", Command{TargetSwitch, ActionOff}},
		{"cmd/esp", "stop", Command{TargetESP, ActionStop}},
		{"cmd/esp", "Stop", Command{TargetESP, ActionStop}},
		{"cmd/esp", "RESET", Command{TargetESP, ActionReboot}},
		{"cmd/esp", "reboot", Command{TargetESP, ActionReboot}},
		{"cmd/pc", "on", Command{TargetPC, ActionOn}},
		{"cmd/pc", "FORCE OFF", Command{TargetPC, ActionForceOff}},
		{"cmd/pc", "force_off", Command{TargetPC, ActionForceOff}},
		{"cmd/pc", " sleep\n", Command{TargetPC, ActionSleep}},
	}

	for _, tt := range tests {
		t.Run(tt.suffix+"/"+tt.payload, func(t *testing.T) {
			got, ok := Parse(topics, tt.suffix, tt.payload)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseUnrecognized(t *testing.T) {
	topics := config.DefaultTopics()
	tests := []struct{ suffix, payload string }{
		{"cmd/unknown", "x"},
		{"cmd/pc", "OFF"},
		{"cmd/pc", "1"},
		{"cmd/esp", "ON"},
		{"cmd/raw_switch", "toggle"},
		{"stat", "ON"},
		{"", ""},
	}
	for _, tt := range tests {
		_, ok := Parse(topics, tt.suffix, tt.payload)
		assert.False(t, ok, "%s %q", tt.suffix, tt.payload)
	}
}

func TestDispatchStop(t *testing.T) {
	for _, p := range []string{"stop", "STOP", "sToP"} {
		d, act := newTestDispatcher()
		eff, err := d.Dispatch("cmd/esp", p)
		require.NoError(t, err)
		assert.Equal(t, EffectStop, eff)
		assert.Empty(t, act.sets)
	}
}

func TestDispatchReboot(t *testing.T) {
	d, _ := newTestDispatcher()
	eff, err := d.Dispatch("cmd/esp", "reset")
	require.NoError(t, err)
	assert.Equal(t, EffectReboot, eff)
}

func TestDispatchForceOff(t *testing.T) {
	d, act := newTestDispatcher()
	eff, err := d.Dispatch("cmd/pc", "FORCE_OFF")
	require.NoError(t, err)
	assert.Equal(t, EffectNone, eff)
	assert.Equal(t, []forceOffCall{{10 * time.Second, 250 * time.Millisecond}}, act.forceOff)
}

func TestDispatchForceOffConfiguredTimings(t *testing.T) {
	act := &fakeActuator{}
	d := NewDispatcher(config.DefaultTopics(), act, Options{ForceOffTimeout: 6 * time.Second, ForceOffPoll: time.Second})

	_, err := d.Dispatch("cmd/pc", "force off")
	require.NoError(t, err)
	assert.Equal(t, []forceOffCall{{6 * time.Second, time.Second}}, act.forceOff)
}

func TestDispatchPCOn(t *testing.T) {
	d, act := newTestDispatcher()
	eff, err := d.Dispatch("cmd/pc", "On")
	require.NoError(t, err)
	assert.Equal(t, EffectNone, eff)
	assert.Equal(t, 1, act.presses)
}

func TestDispatchRawSwitch(t *testing.T) {
	d, act := newTestDispatcher()
	for _, p := range []string{"1", "off", "ON", "0"} {
		_, err := d.Dispatch("cmd/raw_switch", p)
		require.NoError(t, err)
	}
	assert.Equal(t, []bool{true, false, true, false}, act.sets)
}

func TestDispatchSleepIsNoop(t *testing.T) {
	d, act := newTestDispatcher()
	eff, err := d.Dispatch("cmd/pc", "SLEEP")
	require.NoError(t, err)
	assert.Equal(t, EffectNone, eff)
	assert.Empty(t, act.sets)
	assert.Zero(t, act.presses)
	assert.Empty(t, act.forceOff)
}

func TestDispatchUnknownIgnored(t *testing.T) {
	d, act := newTestDispatcher()
	eff, err := d.Dispatch("cmd/unknown", "x")
	require.NoError(t, err)
	assert.Equal(t, EffectNone, eff)
	assert.Empty(t, act.sets)
}

func TestDispatchActuationError(t *testing.T) {
	d, act := newTestDispatcher()
	boom := errors.New("machine still on")
	act.err = boom

	eff, err := d.Dispatch("cmd/pc", "force_off")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, EffectNone, eff)
	assert.Contains(t, err.Error(), "pc:force_off")
}

func TestExecuteUnsupported(t *testing.T) {
	d, _ := newTestDispatcher()
	_, err := d.Execute(Command{TargetESP, ActionSleep})
	assert.Error(t, err)
}

func TestCustomTopics(t *testing.T) {
	topics := config.Topics{ESPCommand: "cmd/controller"}
	topics.SetDefaults()
	d := NewDispatcher(topics, &fakeActuator{}, Options{})

	eff, err := d.Dispatch("cmd/controller", "stop")
	require.NoError(t, err)
	assert.Equal(t, EffectStop, eff)

	eff, _ = d.Dispatch("cmd/esp", "stop")
	assert.Equal(t, EffectNone, eff)
}

func TestEffectString(t *testing.T) {
	assert.Equal(t, "NONE", EffectNone.String())
	assert.Equal(t, "STOP", EffectStop.String())
	assert.Equal(t, "REBOOT", EffectReboot.String())
}
