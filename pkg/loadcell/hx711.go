// Package loadcell reads HX711 load cell converters by bit-banging their
// two-wire interface, samples several of them quasi-simultaneously and
// records runs to CSV.
package loadcell

import (
	"errors"
	"fmt"
	"time"
)

// ClockPin drives a converter's SCK line.
type ClockPin interface {
	Set(high bool) error
}

// DataPin reads a converter's DOUT line.
type DataPin interface {
	Get() (bool, error)
}

// Gain selects the channel and gain programmed for the next conversion,
// expressed as the number of extra clock pulses after the 24 data bits.
type Gain int

const (
	GainA128 Gain = 1
	GainB32  Gain = 2
	GainA64  Gain = 3
)

// ErrNotReady is returned when DOUT stayed high for the whole timeout.
var ErrNotReady = errors.New("loadcell: hx711 not ready")

// Bit-bang timing. The HX711 is forgiving; the pauses only keep CPU
// jitter from producing runt pulses.
const (
	halfPeriod = 2 * time.Microsecond
	readyPoll  = 500 * time.Microsecond

	// DefaultReadTimeout bounds the wait for a conversion.
	DefaultReadTimeout = 200 * time.Millisecond
)

// Reader produces one raw conversion per call. HX711 implements it; tests
// substitute fakes.
type Reader interface {
	ReadRaw(timeout time.Duration) (int32, error)
}

// HX711 is one bit-banged converter.
type HX711 struct {
	clock ClockPin
	data  DataPin
	gain  Gain
}

// NewHX711 wraps a pin pair. A zero gain selects channel A at gain 128.
func NewHX711(clock ClockPin, data DataPin, gain Gain) *HX711 {
	if gain < GainA128 || gain > GainA64 {
		gain = GainA128
	}
	return &HX711{clock: clock, data: data, gain: gain}
}

// Ready reports whether a conversion is waiting. DOUT goes low when data
// is ready.
func (h *HX711) Ready() (bool, error) {
	high, err := h.data.Get()
	if err != nil {
		return false, fmt.Errorf("loadcell: read dout: %w", err)
	}
	return !high, nil
}

// WaitReady polls until a conversion is ready or the timeout expires.
func (h *HX711) WaitReady(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		ready, err := h.Ready()
		if err != nil {
			return err
		}
		if ready {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrNotReady
		}
		time.Sleep(readyPoll)
	}
}

// ReadRaw reads one 24-bit sample and returns it sign-extended. The
// extra gain pulses for the next conversion are clocked out before
// returning.
func (h *HX711) ReadRaw(timeout time.Duration) (int32, error) {
	if err := h.WaitReady(timeout); err != nil {
		return 0, err
	}

	var value uint32
	for i := 0; i < 24; i++ {
		if err := h.clock.Set(true); err != nil {
			return 0, fmt.Errorf("loadcell: clock high: %w", err)
		}
		time.Sleep(halfPeriod)

		high, err := h.data.Get()
		if err != nil {
			return 0, fmt.Errorf("loadcell: read bit: %w", err)
		}
		value <<= 1
		if high {
			value |= 1
		}

		if err := h.clock.Set(false); err != nil {
			return 0, fmt.Errorf("loadcell: clock low: %w", err)
		}
		time.Sleep(halfPeriod)
	}

	for i := 0; i < int(h.gain); i++ {
		if err := h.pulse(); err != nil {
			return 0, err
		}
	}

	// 24-bit two's complement.
	signed := int32(value)
	if value&0x800000 != 0 {
		signed -= 1 << 24
	}
	return signed, nil
}

func (h *HX711) pulse() error {
	if err := h.clock.Set(true); err != nil {
		return fmt.Errorf("loadcell: clock high: %w", err)
	}
	time.Sleep(halfPeriod)
	if err := h.clock.Set(false); err != nil {
		return fmt.Errorf("loadcell: clock low: %w", err)
	}
	time.Sleep(halfPeriod)
	return nil
}
