//go:build linux

package gpio

import (
	"fmt"
	"sync/atomic"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/pcmonitor/internal/config"
)

// Board holds the requested lines of the controller on a GPIO chip.
type Board struct {
	chip      *gpiocdev.Chip
	switchPin *gpiocdev.Line
	ledPin    *gpiocdev.Line
	heartbeat *gpiocdev.Line

	edge atomic.Pointer[func(bool)]
}

// Open requests the switch output (released), the LED input with edge events,
// and the heartbeat output when configured.
func Open(cfg config.PinsConfig) (*Board, error) {
	chip, err := gpiocdev.NewChip(cfg.Chip, gpiocdev.WithConsumer(Consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", cfg.Chip, err)
	}
	b := &Board{chip: chip}

	swOpts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
	if cfg.SwitchActiveLow {
		swOpts = append(swOpts, gpiocdev.AsActiveLow)
	}
	b.switchPin, err = chip.RequestLine(cfg.PowerSwitch, swOpts...)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("request switch pin %d: %w", cfg.PowerSwitch, err)
	}

	ledOpts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(b.handleEdge),
	}
	if cfg.LEDActiveLow {
		ledOpts = append(ledOpts, gpiocdev.AsActiveLow)
	}
	if cfg.LEDPullUp {
		ledOpts = append(ledOpts, gpiocdev.WithPullUp)
	}
	if d := cfg.Debounce(); d > 0 {
		ledOpts = append(ledOpts, gpiocdev.WithDebounce(d))
	}
	b.ledPin, err = chip.RequestLine(cfg.PowerLED, ledOpts...)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("request led pin %d: %w", cfg.PowerLED, err)
	}

	if pin, ok := cfg.HeartbeatPin(); ok {
		b.heartbeat, err = chip.RequestLine(pin, gpiocdev.AsOutput(0))
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("request heartbeat pin %d: %w", pin, err)
		}
	}
	return b, nil
}

// Switch returns the power switch output.
func (b *Board) Switch() Output { return lineOutput{b.switchPin} }

// Sensor returns the power LED input.
func (b *Board) Sensor() Input { return boardInput{b} }

// Heartbeat returns the heartbeat output, or nil when none is configured.
func (b *Board) Heartbeat() Output {
	if b.heartbeat == nil {
		return nil
	}
	return lineOutput{b.heartbeat}
}

func (b *Board) handleEdge(evt gpiocdev.LineEvent) {
	fn := b.edge.Load()
	if fn == nil {
		return
	}
	(*fn)(evt.Type == gpiocdev.LineEventRisingEdge)
}

// Close releases the switch and every requested line.
// The switch is driven inactive first so a restart never inherits a held press.
func (b *Board) Close() error {
	var errs []error

	if b.switchPin != nil {
		if err := b.switchPin.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("release switch pin: %w", err))
		}
	}
	for _, l := range []*gpiocdev.Line{b.switchPin, b.ledPin, b.heartbeat} {
		if l == nil {
			continue
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line %d: %w", l.Offset(), err))
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

type lineOutput struct {
	line *gpiocdev.Line
}

func (o lineOutput) Write(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := o.line.SetValue(v); err != nil {
		return fmt.Errorf("write pin %d: %w", o.line.Offset(), err)
	}
	return nil
}

type boardInput struct {
	b *Board
}

func (i boardInput) Read() (bool, error) {
	v, err := i.b.ledPin.Value()
	if err != nil {
		return false, fmt.Errorf("read pin %d: %w", i.b.ledPin.Offset(), err)
	}
	return v == 1, nil
}

func (i boardInput) OnEdge(fn func(on bool)) {
	i.b.edge.Store(&fn)
}
