package gateway

import "fmt"

// ErrInvalidRequest indicates the caller supplied a request the gateway
// cannot route: empty prompt or an unknown agent kind. Never retried.
type ErrInvalidRequest struct {
	Reason string
}

func (e *ErrInvalidRequest) Error() string {
	return fmt.Sprintf("invalid invocation request: %s", e.Reason)
}

// ErrCircuitOpen indicates a backend was skipped because its circuit is
// open. Fallback-eligible: the gateway moves on to the cache or the next
// backend without touching the network.
type ErrCircuitOpen struct {
	Backend string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit open for backend %q", e.Backend)
}

// ErrAllBackendsExhausted indicates every fallback avenue failed: retries
// against each permitted backend, the cache, everything. Fatal to the
// caller; the gateway does not retry it further.
type ErrAllBackendsExhausted struct {
	AgentKind string
	Err       error // last backend error
}

func (e *ErrAllBackendsExhausted) Error() string {
	return fmt.Sprintf("all backends exhausted for agent %q: %v", e.AgentKind, e.Err)
}

func (e *ErrAllBackendsExhausted) Unwrap() error { return e.Err }
