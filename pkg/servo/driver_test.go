package servo

import (
	"bytes"
	"errors"
	"testing"
)

type fakePort struct {
	bytes.Buffer
	writes int
	failed bool
	closed bool
}

func (p *fakePort) Write(b []byte) (int, error) {
	if p.failed {
		return 0, errors.New("port gone")
	}
	p.writes++
	return p.Buffer.Write(b)
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func TestDriverDropsDuplicates(t *testing.T) {
	port := &fakePort{}
	d := NewDriver(port)

	f := Frame{Yaw: 1500, Shoulder: 1500, Elbow: 1500, Wrist: 1500, Pump: 500}
	for i := 0; i < 3; i++ {
		if err := d.Send(f); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	f.Pump = 1500
	if err := d.Send(f); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if port.writes != 2 {
		t.Errorf("port saw %d writes, want 2", port.writes)
	}
	sent, dropped := d.Stats()
	if sent != 2 || dropped != 2 {
		t.Errorf("Stats() = %d sent, %d dropped, want 2, 2", sent, dropped)
	}
}

func TestDriverWireFormat(t *testing.T) {
	port := &fakePort{}
	d := NewDriver(port)

	if err := d.Send(Frame{Yaw: 1500, Shoulder: 2000, Elbow: 1000, Wrist: 1500, Pump: 500}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := port.String(); got != "P 1500 2000 1000 1500 500\n" {
		t.Errorf("wire = %q", got)
	}
}

func TestDriverWriteError(t *testing.T) {
	port := &fakePort{failed: true}
	d := NewDriver(port)

	if err := d.Send(Frame{}); err == nil {
		t.Fatal("Send on a dead port returned nil")
	}

	// The failed frame must not count as sent, so a retry writes again.
	port.failed = false
	if err := d.Send(Frame{}); err != nil {
		t.Fatalf("Send retry: %v", err)
	}
	if port.writes != 1 {
		t.Errorf("port saw %d writes after retry, want 1", port.writes)
	}
}

func TestDriverClose(t *testing.T) {
	port := &fakePort{}
	d := NewDriver(port)
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !port.closed {
		t.Error("underlying port not closed")
	}
}
