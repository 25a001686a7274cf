package loadcell

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// ErrClosed is returned when a sample arrives after the capture ended.
var ErrClosed = errors.New("loadcell: capture closed")

// Capture is one open CSV recording. Rows can come from any source that
// produces synchronized raw samples, a local sampler or a remote bridge.
type Capture struct {
	mu       sync.Mutex
	f        *os.File
	w        *csv.Writer
	path     string
	channels int
	rows     int
	closed   bool
}

// NewCapture opens a fresh uniquely named CSV file under dir with one
// raw column per channel, creating dir if needed.
func NewCapture(dir string, channels int) (*Capture, error) {
	if channels < 1 {
		channels = 1
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("loadcell: create recording dir: %w", err)
	}

	id := uuid.NewString()[:8]
	path := filepath.Join(dir, fmt.Sprintf("hx711_%s.csv", id))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("loadcell: create recording: %w", err)
	}

	w := csv.NewWriter(f)
	header := []string{"t_s"}
	for i := 0; i < channels; i++ {
		header = append(header, fmt.Sprintf("raw_%d", i+1))
	}
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("loadcell: write header: %w", err)
	}

	return &Capture{f: f, w: w, path: path, channels: channels}, nil
}

// Path returns the file being written.
func (c *Capture) Path() string {
	return c.path
}

// Rows returns the number of data rows written so far.
func (c *Capture) Rows() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rows
}

// Add appends one sample row. Short rows are padded with zeros and long
// ones truncated so every row matches the header.
func (c *Capture) Add(t float64, raw []int32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	record := make([]string, 0, c.channels+1)
	record = append(record, fmt.Sprintf("%.6f", t))
	for i := 0; i < c.channels; i++ {
		var v int32
		if i < len(raw) {
			v = raw[i]
		}
		record = append(record, strconv.FormatInt(int64(v), 10))
	}
	if err := c.w.Write(record); err != nil {
		return fmt.Errorf("loadcell: write row: %w", err)
	}
	c.rows++
	return nil
}

// Close flushes and closes the file. Closing twice is a no-op.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	c.w.Flush()
	werr := c.w.Error()
	cerr := c.f.Close()
	if werr != nil {
		return fmt.Errorf("loadcell: flush recording: %w", werr)
	}
	return cerr
}
