// Package system performs host-level actions requested over the broker.
package system

import (
	"errors"

	"github.com/sweeney/pcmonitor/internal/logging"
)

// ErrUnsupported is returned on platforms that cannot reboot the host.
var ErrUnsupported = errors.New("system: reboot not supported on this platform")

// Rebooter restarts the host.
type Rebooter interface {
	Reboot() error
}

// Host reboots the machine the daemon runs on. With DryRun set it only logs.
type Host struct {
	DryRun bool
	Log    logging.Logger

	reboot func() error
}

// NewHost returns a Host using the platform reboot call.
func NewHost(dryRun bool, log logging.Logger) *Host {
	if log == nil {
		log = logging.NopLogger{}
	}
	return &Host{DryRun: dryRun, Log: log, reboot: platformReboot}
}

// Reboot flushes filesystems and restarts the host. It does not return on
// success.
func (h *Host) Reboot() error {
	if h.DryRun {
		h.Log.Warnf("reboot requested (dry run, not rebooting)")
		return nil
	}
	h.Log.Warnf("rebooting")
	return h.reboot()
}
