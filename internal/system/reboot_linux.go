//go:build linux

package system

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func platformReboot() error {
	unix.Sync()
	if err := unix.Reboot(unix.LINUX_REBOOT_CMD_RESTART); err != nil {
		return fmt.Errorf("reboot: %w", err)
	}
	return nil
}
