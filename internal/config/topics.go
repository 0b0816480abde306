package config

import (
	"fmt"
	"strings"
)

// Name is the logical name of a topic in the table.
type Name string

const (
	Status           Name = "status"
	RawLEDStatus     Name = "raw_powerled_stat"
	RawSwitchStatus  Name = "raw_powerswitch_stat"
	ESPCommand       Name = "cmd_esp"
	PCCommand        Name = "cmd_pc"
	RawSwitchCommand Name = "cmd_raw_switch"
)

// commandSpace is the suffix prefix shared by every inbound command topic.
const commandSpace = "cmd/"

// Topics is the immutable topic table: a base prefix plus one suffix per
// logical name.
type Topics struct {
	Base             string `json:"base"`
	Status           string `json:"status"`
	RawLEDStatus     string `json:"raw_powerled_stat"`
	RawSwitchStatus  string `json:"raw_powerswitch_stat"`
	ESPCommand       string `json:"cmd_esp"`
	PCCommand        string `json:"cmd_pc"`
	RawSwitchCommand string `json:"cmd_raw_switch"`
}

// DefaultTopics returns the table used when the config file leaves topics out.
func DefaultTopics() Topics {
	var t Topics
	t.SetDefaults()
	return t
}

func (t *Topics) SetDefaults() {
	if t.Base == "" {
		t.Base = "pcmonitor"
	}
	t.Base = strings.TrimSuffix(t.Base, "/")
	set := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	set(&t.Status, "stat")
	set(&t.RawLEDStatus, "raw_powerled_stat")
	set(&t.RawSwitchStatus, "raw_powerswitch_stat")
	set(&t.ESPCommand, "cmd/esp")
	set(&t.PCCommand, "cmd/pc")
	set(&t.RawSwitchCommand, "cmd/raw_switch")
}

// Validate requires command suffixes to live under cmd/ so a single
// subscription covers them, and status suffixes to stay outside it.
func (t Topics) Validate() error {
	for _, s := range []string{t.ESPCommand, t.PCCommand, t.RawSwitchCommand} {
		if !strings.HasPrefix(s, commandSpace) {
			return fmt.Errorf("command topic %q must start with %q", s, commandSpace)
		}
	}
	for _, s := range []string{t.Status, t.RawLEDStatus, t.RawSwitchStatus} {
		if s == "" || strings.HasPrefix(s, commandSpace) {
			return fmt.Errorf("invalid status topic %q", s)
		}
	}
	return nil
}

// Suffix returns the suffix configured for name.
func (t Topics) Suffix(name Name) string {
	switch name {
	case Status:
		return t.Status
	case RawLEDStatus:
		return t.RawLEDStatus
	case RawSwitchStatus:
		return t.RawSwitchStatus
	case ESPCommand:
		return t.ESPCommand
	case PCCommand:
		return t.PCCommand
	case RawSwitchCommand:
		return t.RawSwitchCommand
	}
	return ""
}

// Topic returns the full topic string for name.
func (t Topics) Topic(name Name) string {
	return t.Base + "/" + t.Suffix(name)
}

// CommandFilter is the subscription filter covering every command topic.
func (t Topics) CommandFilter() string {
	return t.Base + "/" + commandSpace + "#"
}

// Split recovers the suffix of a received topic. It reports false for topics
// outside the base.
func (t Topics) Split(topic string) (string, bool) {
	suffix, ok := strings.CutPrefix(topic, t.Base+"/")
	if !ok || suffix == "" {
		return "", false
	}
	return suffix, true
}

// Lookup maps a suffix back to its logical name.
func (t Topics) Lookup(suffix string) (Name, bool) {
	for _, n := range []Name{Status, RawLEDStatus, RawSwitchStatus, ESPCommand, PCCommand, RawSwitchCommand} {
		if t.Suffix(n) == suffix {
			return n, true
		}
	}
	return "", false
}
