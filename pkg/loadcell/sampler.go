package loadcell

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-armdeck/internal/log"
)

// DefaultSampleRate is the tick rate when none is configured. The HX711
// converts at 10 or 80 samples per second depending on strapping; 20Hz
// suits the 80 SPS mode.
const DefaultSampleRate = 20.0

// sampleTimeout bounds each per-channel read inside a tick.
const sampleTimeout = 250 * time.Millisecond

// Sample is one synchronized reading across all channels.
type Sample struct {
	T   float64 `json:"t"`   // seconds since the run started
	Raw []int32 `json:"raw"` // one value per channel, 0 where a read failed
}

// Sampler reads several converters quasi-simultaneously at a fixed rate.
// Each tick releases one goroutine per channel so the conversions overlap
// rather than queue.
type Sampler struct {
	readers []Reader
	period  time.Duration

	readErrors atomic.Uint64
}

// NewSampler samples the given channels at rateHz. A non-positive rate
// selects the default.
func NewSampler(readers []Reader, rateHz float64) *Sampler {
	if rateHz <= 0 {
		rateHz = DefaultSampleRate
	}
	return &Sampler{
		readers: readers,
		period:  time.Duration(float64(time.Second) / rateHz),
	}
}

// ReadErrors reports how many individual channel reads have failed.
func (s *Sampler) ReadErrors() uint64 {
	return s.readErrors.Load()
}

// Run streams samples to out until ctx is cancelled. A failed channel
// read records 0 for that channel and the tick still produces a sample.
// Run does not close out.
func (s *Sampler) Run(ctx context.Context, out chan<- Sample) {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		raw := make([]int32, len(s.readers))
		var wg sync.WaitGroup
		for i, r := range s.readers {
			wg.Add(1)
			go func(i int, r Reader) {
				defer wg.Done()
				v, err := r.ReadRaw(sampleTimeout)
				if err != nil {
					s.readErrors.Add(1)
					log.Debug("loadcell read failed", "channel", i+1, "error", err)
					v = 0
				}
				raw[i] = v
			}(i, r)
		}
		wg.Wait()

		sample := Sample{T: time.Since(start).Seconds(), Raw: raw}
		select {
		case out <- sample:
		case <-ctx.Done():
			return
		}
	}
}
