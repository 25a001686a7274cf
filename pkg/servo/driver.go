package servo

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/tarm/serial"
)

// DefaultBaud is the rate the bridge firmware listens at.
const DefaultBaud = 115200

// Driver ships frames to the servo bridge, dropping consecutive
// duplicates so the wire stays quiet while the arm is parked.
type Driver struct {
	mu       sync.Mutex
	w        io.WriteCloser
	last     Frame
	haveLast bool

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// Open opens a serial port and returns a driver on it.
func Open(device string, baud int) (*Driver, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	port, err := serial.OpenPort(&serial.Config{Name: device, Baud: baud})
	if err != nil {
		return nil, fmt.Errorf("servo: open %s: %w", device, err)
	}
	return NewDriver(port), nil
}

// NewDriver wraps an existing transport, typically a serial port.
func NewDriver(w io.WriteCloser) *Driver {
	return &Driver{w: w}
}

// Send writes the frame unless it repeats the previous one.
func (d *Driver) Send(f Frame) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.haveLast && f == d.last {
		d.dropped.Add(1)
		return nil
	}

	if _, err := d.w.Write(f.Encode()); err != nil {
		return fmt.Errorf("servo: write frame: %w", err)
	}
	d.last = f
	d.haveLast = true
	d.sent.Add(1)
	return nil
}

// Stats reports frames written and duplicates dropped.
func (d *Driver) Stats() (sent, dropped uint64) {
	return d.sent.Load(), d.dropped.Load()
}

// Close closes the underlying transport.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.w.Close()
}
