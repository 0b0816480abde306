//go:build !linux

package system

func platformReboot() error {
	return ErrUnsupported
}
