// Package gpio provides the digital lines of the controller with hardware
// abstraction. The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "errors"

// ErrUnsupported is returned where no GPIO character device exists.
var ErrUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// Consumer labels the lines requested by pcmonitor in gpioinfo output.
const Consumer = "pcmonitor"

// Output drives a digital output line.
type Output interface {
	// Write sets the logical level: true drives the line active.
	Write(on bool) error
}

// Input reads a digital input line and reports its edges.
type Input interface {
	// Read returns the current logical level.
	Read() (bool, error)

	// OnEdge registers fn to receive the new logical level on every edge.
	// fn runs on the event goroutine, not the caller's, and must not block.
	OnEdge(fn func(on bool))
}
