package loadcell

import (
	"fmt"
	"sync"
	"time"
)

// Scale converts raw counts from one converter into calibrated units
// using a tare offset and a counts-per-unit factor.
type Scale struct {
	mu     sync.Mutex
	r      Reader
	offset float64
	factor float64
}

// NewScale wraps a reader. factor is raw counts per output unit; a zero
// or negative factor reads back raw counts.
func NewScale(r Reader, factor float64) *Scale {
	if factor <= 0 {
		factor = 1
	}
	return &Scale{r: r, factor: factor}
}

// Tare averages the given number of samples and uses the mean as the new
// zero point.
func (s *Scale) Tare(samples int, timeout time.Duration) error {
	if samples <= 0 {
		samples = 10
	}

	var sum float64
	for i := 0; i < samples; i++ {
		raw, err := s.r.ReadRaw(timeout)
		if err != nil {
			return fmt.Errorf("loadcell: tare sample %d: %w", i+1, err)
		}
		sum += float64(raw)
	}

	s.mu.Lock()
	s.offset = sum / float64(samples)
	s.mu.Unlock()
	return nil
}

// SetFactor replaces the counts-per-unit calibration factor.
func (s *Scale) SetFactor(factor float64) {
	if factor <= 0 {
		return
	}
	s.mu.Lock()
	s.factor = factor
	s.mu.Unlock()
}

// Offset returns the current tare offset in raw counts.
func (s *Scale) Offset() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset
}

// Convert maps a raw count through the current tare and factor. Useful
// when the raw value came from somewhere else, like a shared sampler.
func (s *Scale) Convert(raw int32) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (float64(raw) - s.offset) / s.factor
}

// Read returns one calibrated measurement.
func (s *Scale) Read(timeout time.Duration) (float64, error) {
	raw, err := s.r.ReadRaw(timeout)
	if err != nil {
		return 0, err
	}
	return s.Convert(raw), nil
}
