// Package command turns inbound (topic suffix, payload) pairs into actions on
// the power actuator or effects on the session.
package command

import (
	"strings"

	"github.com/sweeney/pcmonitor/internal/config"
)

// Target is the subsystem a command addresses.
type Target string

const (
	TargetSwitch Target = "switch"
	TargetESP    Target = "esp"
	TargetPC     Target = "pc"
)

// Action is what the command asks the target to do.
type Action string

const (
	ActionOn       Action = "on"
	ActionOff      Action = "off"
	ActionStop     Action = "stop"
	ActionReboot   Action = "reboot"
	ActionForceOff Action = "force_off"
	ActionSleep    Action = "sleep"
)

// Command is a parsed remote command.
type Command struct {
	Target Target
	Action Action
}

func (c Command) String() string {
	return string(c.Target) + ":" + string(c.Action)
}

// Effect is the consequence of a command for the session loop.
type Effect int

const (
	EffectNone Effect = iota
	EffectStop
	EffectReboot
)

func (e Effect) String() string {
	switch e {
	case EffectStop:
		return "STOP"
	case EffectReboot:
		return "REBOOT"
	}
	return "NONE"
}

// Parse maps a topic suffix and payload to a Command. Payloads are matched
// case-insensitively after trimming. ok is false for anything unrecognized.
func Parse(topics config.Topics, suffix, payload string) (cmd Command, ok bool) {
	p := strings.ToUpper(strings.TrimSpace(payload))

	switch suffix {
	case topics.RawSwitchCommand:
		switch p {
		case "ON", "1":
			return Command{TargetSwitch, ActionOn}, true
		case "OFF", "0":
			return Command{TargetSwitch, ActionOff}, true
		}
	case topics.ESPCommand:
		switch p {
		case "STOP":
			return Command{TargetESP, ActionStop}, true
		case "RESET", "REBOOT":
			return Command{TargetESP, ActionReboot}, true
		}
	case topics.PCCommand:
		switch p {
		case "ON":
			return Command{TargetPC, ActionOn}, true
		case "FORCE OFF", "FORCE_OFF":
			return Command{TargetPC, ActionForceOff}, true
		case "SLEEP":
			return Command{TargetPC, ActionSleep}, true
		}
	}
	return Command{}, false
}
