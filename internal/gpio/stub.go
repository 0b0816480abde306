//go:build !linux

package gpio

import "github.com/sweeney/pcmonitor/internal/config"

// Board is not available on non-Linux platforms.
type Board struct{}

// Open returns ErrUnsupported on non-Linux platforms.
func Open(config.PinsConfig) (*Board, error) {
	return nil, ErrUnsupported
}

func (b *Board) Switch() Output    { return unsupported{} }
func (b *Board) Sensor() Input     { return unsupported{} }
func (b *Board) Heartbeat() Output { return nil }
func (b *Board) Close() error      { return nil }

type unsupported struct{}

func (unsupported) Write(bool) error     { return ErrUnsupported }
func (unsupported) Read() (bool, error)  { return false, ErrUnsupported }
func (unsupported) OnEdge(func(on bool)) {}
