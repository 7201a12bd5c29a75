package gateway

import (
	"testing"
	"time"
)

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := newBreaker(BreakerConfig{FailureThreshold: 3, Cooldown: time.Minute})
	now := time.Now()

	for i := 0; i < 2; i++ {
		if !b.allow(now) {
			t.Fatalf("closed breaker refused call %d", i)
		}
		b.recordFailure(now)
	}
	if got := b.currentState(now); got != stateClosed {
		t.Fatalf("state = %v before threshold, want closed", got)
	}

	b.recordFailure(now)
	if got := b.currentState(now); got != stateOpen {
		t.Fatalf("state = %v after threshold, want open", got)
	}
	if b.allow(now) {
		t.Error("open breaker admitted a call before cooldown")
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := newBreaker(BreakerConfig{FailureThreshold: 2, Cooldown: time.Minute})
	now := time.Now()

	b.recordFailure(now)
	b.recordSuccess()
	b.recordFailure(now)

	// Only consecutive failures count.
	if got := b.currentState(now); got != stateClosed {
		t.Fatalf("state = %v, want closed", got)
	}
}

func TestBreakerHalfOpenSingleProbe(t *testing.T) {
	b := newBreaker(BreakerConfig{FailureThreshold: 1, Cooldown: time.Minute})
	start := time.Now()

	b.recordFailure(start)
	if b.allow(start) {
		t.Fatal("open breaker admitted a call")
	}

	after := start.Add(time.Minute)
	if !b.allow(after) {
		t.Fatal("cooldown elapsed but probe refused")
	}
	if b.allow(after) {
		t.Fatal("second concurrent probe admitted while half-open")
	}

	b.recordSuccess()
	if got := b.currentState(after); got != stateClosed {
		t.Fatalf("state = %v after probe success, want closed", got)
	}
	if !b.allow(after) {
		t.Error("closed breaker refused a call")
	}
}

func TestBreakerReleasedProbeAdmitsAnother(t *testing.T) {
	b := newBreaker(BreakerConfig{FailureThreshold: 1, Cooldown: time.Minute})
	start := time.Now()

	b.recordFailure(start)
	probeAt := start.Add(time.Minute)
	if !b.allow(probeAt) {
		t.Fatal("probe refused after cooldown")
	}

	// The probing call was abandoned: no success, no failure.
	b.releaseProbe()

	if !b.allow(probeAt) {
		t.Fatal("probe slot not returned; breaker wedged half-open")
	}
	b.recordSuccess()
	if got := b.currentState(probeAt); got != stateClosed {
		t.Fatalf("state = %v after replacement probe succeeded, want closed", got)
	}
}

func TestBreakerProbeFailureReopens(t *testing.T) {
	b := newBreaker(BreakerConfig{FailureThreshold: 1, Cooldown: time.Minute})
	start := time.Now()

	b.recordFailure(start)
	probeAt := start.Add(time.Minute)
	if !b.allow(probeAt) {
		t.Fatal("probe refused")
	}
	b.recordFailure(probeAt)

	if got := b.currentState(probeAt); got != stateOpen {
		t.Fatalf("state = %v after probe failure, want open", got)
	}
	// The cooldown restarts from the failed probe.
	if b.allow(probeAt.Add(30 * time.Second)) {
		t.Error("call admitted before the new cooldown elapsed")
	}
	if !b.allow(probeAt.Add(time.Minute)) {
		t.Error("probe refused after the new cooldown")
	}
}
