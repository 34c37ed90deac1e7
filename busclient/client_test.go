package busclient

import (
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
)

func TestPumpDrainsBufferedSignalsUntilBudgetExpires(t *testing.T) {
	c := &Client{signals: make(chan *dbus.Signal, 8)}

	for i := 0; i < 3; i++ {
		c.signals <- &dbus.Signal{Name: "test.Signal"}
	}

	var handled int

	drained := c.Pump(50*time.Millisecond, func(*dbus.Signal) { handled++ })

	if drained != 3 {
		t.Errorf("Pump drained = %d, want 3", drained)
	}

	if handled != 3 {
		t.Errorf("handle called %d times, want 3", handled)
	}
}

func TestPumpReturnsZeroWhenNothingBuffered(t *testing.T) {
	c := &Client{signals: make(chan *dbus.Signal)}

	drained := c.Pump(20*time.Millisecond, func(*dbus.Signal) {
		t.Error("handle should not be called with no buffered signals")
	})

	if drained != 0 {
		t.Errorf("Pump drained = %d, want 0", drained)
	}
}

func TestPumpReturnsWhenChannelClosed(t *testing.T) {
	c := &Client{signals: make(chan *dbus.Signal)}
	close(c.signals)

	drained := c.Pump(time.Second, func(*dbus.Signal) {})

	if drained != 0 {
		t.Errorf("Pump drained = %d, want 0 on a closed channel", drained)
	}
}

func TestAcquireReleaseRefCounting(t *testing.T) {
	c := &Client{refs: 1}

	c.Acquire()
	if c.refs != 2 {
		t.Fatalf("refs after Acquire = %d, want 2", c.refs)
	}

	// First Release must not close the connection (conn is nil here; a
	// premature close would panic).
	if err := c.Release(); err != nil {
		t.Fatalf("Release (refs 2->1) unexpected error: %v", err)
	}

	if c.refs != 1 {
		t.Errorf("refs after first Release = %d, want 1", c.refs)
	}
}
