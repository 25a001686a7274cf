package loadcell

import (
	"context"
	"time"
)

// Recorder captures timed sampling runs to CSV, one file per run.
type Recorder struct {
	dir string
}

// NewRecorder writes recordings under dir, creating it on first use.
func NewRecorder(dir string) *Recorder {
	return &Recorder{dir: dir}
}

// Record runs the sampler for the given duration and writes every sample
// to a fresh CSV file. It returns the file path and the number of rows
// written. Cancelling ctx ends the recording early but still produces
// the file.
func (r *Recorder) Record(ctx context.Context, s *Sampler, d time.Duration) (string, int, error) {
	rec, err := NewCapture(r.dir, len(s.readers))
	if err != nil {
		return "", 0, err
	}

	runCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	samples := make(chan Sample, 16)
	done := make(chan struct{})
	go func() {
		s.Run(runCtx, samples)
		close(samples)
		close(done)
	}()

	for sample := range samples {
		if err := rec.Add(sample.T, sample.Raw); err != nil {
			cancel()
			<-done
			rec.Close()
			return "", 0, err
		}
	}
	<-done

	if err := rec.Close(); err != nil {
		return "", 0, err
	}
	return rec.Path(), rec.Rows(), nil
}
