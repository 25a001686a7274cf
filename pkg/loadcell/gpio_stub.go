//go:build !linux

package loadcell

import "fmt"

// GPIOChannel is only available on Linux.
type GPIOChannel struct{}

// OpenGPIOChannel returns an error on non-Linux platforms.
func OpenGPIOChannel(chip string, clockOffset, dataOffset int) (*GPIOChannel, error) {
	return nil, fmt.Errorf("loadcell: gpio is only available on linux")
}

// Set drives the clock line.
func (g *GPIOChannel) Set(high bool) error {
	return fmt.Errorf("loadcell: gpio is only available on linux")
}

// Get reads the data line.
func (g *GPIOChannel) Get() (bool, error) {
	return false, fmt.Errorf("loadcell: gpio is only available on linux")
}

// Close releases the lines.
func (g *GPIOChannel) Close() error {
	return nil
}
