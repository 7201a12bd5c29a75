package gateway

import "context"

// InvocationEvent is the audit record for one gateway call.
type InvocationEvent struct {
	Backend      string
	Model        string
	AgentKind    string
	LatencyMs    int64
	InputTokens  int
	OutputTokens int
	Success      bool
	FromCache    bool
	ErrorMessage string
}

// EventRecorder persists invocation events. The store's event repository
// implements it; tests use in-memory fakes. Recording failures never fail
// the invocation itself.
type EventRecorder interface {
	RecordInvocation(ctx context.Context, ev InvocationEvent) error
}
