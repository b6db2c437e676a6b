package syncop

import "testing"

func TestClockTickIncrements(t *testing.T) {
	c := NewClock(100)

	if got := c.Tick(); got != 101 {
		t.Fatalf("Tick() = %d, want 101", got)
	}

	if got := c.Tick(); got != 102 {
		t.Fatalf("Tick() = %d, want 102", got)
	}
}

func TestClockObserveAdvancesPastRemote(t *testing.T) {
	c := NewClock(10)

	if got := c.Observe(50); got != 51 {
		t.Fatalf("Observe(50) = %d, want 51", got)
	}

	if got := c.Value(); got != 51 {
		t.Fatalf("Value() = %d, want 51", got)
	}
}

func TestClockObserveBehindLocalStillAdvances(t *testing.T) {
	c := NewClock(100)

	if got := c.Observe(5); got != 101 {
		t.Fatalf("Observe(5) = %d, want 101", got)
	}
}
