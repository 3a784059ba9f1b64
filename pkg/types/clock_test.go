package types

import (
	"testing"
	"time"
)

func TestRealClock_Timer(t *testing.T) {
	clock := NewRealClock()

	timer := clock.NewTimer(5 * time.Millisecond)
	select {
	case <-timer.C():
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestRealClock_TimerStop(t *testing.T) {
	clock := NewRealClock()

	timer := clock.NewTimer(time.Minute)
	if !timer.Stop() {
		t.Error("Stop() on a pending timer should report true")
	}
}

func TestRealClock_Since(t *testing.T) {
	clock := NewRealClock()

	start := clock.Now()
	if got := clock.Since(start); got < 0 {
		t.Errorf("Since() = %v, want non-negative", got)
	}
}
