package gateway

import (
	"sync"
	"time"
)

// breakerState is the circuit state for a single backend.
type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateClosed:
		return "closed"
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half_open"
	}
	return "unknown"
}

// breaker is a per-backend circuit breaker. All transitions happen under
// the mutex, so concurrent callers observe exactly one state change per
// recorded failure or success.
//
// closed -> open after FailureThreshold consecutive failures.
// open -> half_open once the cooldown elapses; a single probe is admitted.
// half_open -> closed on probe success, -> open on probe failure.
type breaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration

	state         breakerState
	failures      int
	openedAt      time.Time
	probeInFlight bool
}

func newBreaker(cfg BreakerConfig) *breaker {
	return &breaker{
		threshold: cfg.FailureThreshold,
		cooldown:  cfg.Cooldown,
	}
}

// allow reports whether a call against this backend may proceed.
// While half-open, only one probe is admitted at a time.
func (b *breaker) allow(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateClosed:
		return true
	case stateOpen:
		if now.Sub(b.openedAt) >= b.cooldown {
			b.state = stateHalfOpen
			b.probeInFlight = true
			return true
		}
		return false
	case stateHalfOpen:
		if b.probeInFlight {
			return false
		}
		b.probeInFlight = true
		return true
	}
	return false
}

// releaseProbe returns an admitted probe without recording an outcome.
// Used when the probing call is abandoned by its caller: the slot must
// come back, or no later caller could ever probe the backend again.
func (b *breaker) releaseProbe() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probeInFlight = false
}

// recordSuccess closes the circuit and resets the failure count.
func (b *breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = stateClosed
	b.failures = 0
	b.probeInFlight = false
}

// recordFailure counts a failure. A failed half-open probe reopens the
// circuit immediately; in the closed state the circuit opens once the
// consecutive-failure threshold is reached.
func (b *breaker) recordFailure(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateHalfOpen {
		b.state = stateOpen
		b.openedAt = now
		b.probeInFlight = false
		return
	}

	b.failures++
	if b.state == stateClosed && b.failures >= b.threshold {
		b.state = stateOpen
		b.openedAt = now
	}
}

// currentState returns the state as observed at now, resolving an elapsed
// cooldown to half_open without admitting a probe.
func (b *breaker) currentState(now time.Time) breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateOpen && now.Sub(b.openedAt) >= b.cooldown {
		return stateHalfOpen
	}
	return b.state
}
