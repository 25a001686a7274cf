package loadcell

import (
	"context"
	"errors"
	"testing"
	"time"
)

func collectSamples(t *testing.T, s *Sampler, d time.Duration) []Sample {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	out := make(chan Sample, 256)
	done := make(chan struct{})
	go func() {
		s.Run(ctx, out)
		close(done)
	}()
	<-done

	var got []Sample
	for {
		select {
		case sm := <-out:
			got = append(got, sm)
		default:
			return got
		}
	}
}

func TestSamplerReadsAllChannelsPerTick(t *testing.T) {
	readers := []Reader{
		&staticReader{v: 11},
		&staticReader{v: 22},
		&staticReader{v: 33},
	}
	s := NewSampler(readers, 200)

	got := collectSamples(t, s, 100*time.Millisecond)
	if len(got) < 5 {
		t.Fatalf("collected %d samples, want at least 5", len(got))
	}

	prev := -1.0
	for i, sm := range got {
		if len(sm.Raw) != 3 {
			t.Fatalf("sample %d has %d channels, want 3", i, len(sm.Raw))
		}
		if sm.Raw[0] != 11 || sm.Raw[1] != 22 || sm.Raw[2] != 33 {
			t.Fatalf("sample %d = %v, want [11 22 33]", i, sm.Raw)
		}
		if sm.T <= prev {
			t.Fatalf("sample %d time %v not after %v", i, sm.T, prev)
		}
		prev = sm.T
	}
}

func TestSamplerRecordsZeroForFailedChannel(t *testing.T) {
	readers := []Reader{
		&staticReader{v: 11},
		&staticReader{err: errors.New("loose wire")},
		&staticReader{v: 33},
	}
	s := NewSampler(readers, 200)

	got := collectSamples(t, s, 60*time.Millisecond)
	if len(got) == 0 {
		t.Fatal("collected no samples")
	}
	for i, sm := range got {
		if sm.Raw[0] != 11 || sm.Raw[1] != 0 || sm.Raw[2] != 33 {
			t.Fatalf("sample %d = %v, want [11 0 33]", i, sm.Raw)
		}
	}
	if s.ReadErrors() == 0 {
		t.Error("ReadErrors() = 0 with a failing channel")
	}
}

func TestSamplerDefaultRate(t *testing.T) {
	s := NewSampler(nil, 0)
	if s.period != 50*time.Millisecond {
		t.Errorf("period = %v, want 50ms", s.period)
	}
}
