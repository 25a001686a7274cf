//go:build linux

package loadcell

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// GPIOChannel is one converter's pin pair claimed through the GPIO
// character device. It serves as both the clock and data pin.
type GPIOChannel struct {
	clock *gpiocdev.Line
	data  *gpiocdev.Line
}

// OpenGPIOChannel claims the clock line as an output driven low and the
// data line as an input on the named gpiochip.
func OpenGPIOChannel(chip string, clockOffset, dataOffset int) (*GPIOChannel, error) {
	clock, err := gpiocdev.RequestLine(chip, clockOffset,
		gpiocdev.AsOutput(0), gpiocdev.WithConsumer("armbridge-sck"))
	if err != nil {
		return nil, fmt.Errorf("loadcell: claim sck %s:%d: %w", chip, clockOffset, err)
	}

	data, err := gpiocdev.RequestLine(chip, dataOffset,
		gpiocdev.AsInput, gpiocdev.WithConsumer("armbridge-dout"))
	if err != nil {
		clock.Close()
		return nil, fmt.Errorf("loadcell: claim dout %s:%d: %w", chip, dataOffset, err)
	}

	return &GPIOChannel{clock: clock, data: data}, nil
}

// Set drives the clock line.
func (g *GPIOChannel) Set(high bool) error {
	v := 0
	if high {
		v = 1
	}
	return g.clock.SetValue(v)
}

// Get reads the data line.
func (g *GPIOChannel) Get() (bool, error) {
	v, err := g.data.Value()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// Close releases both lines.
func (g *GPIOChannel) Close() error {
	err := g.clock.Close()
	if derr := g.data.Close(); err == nil {
		err = derr
	}
	return err
}
