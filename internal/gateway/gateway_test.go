package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rmehta/studyflow/internal/llm"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Retry = RetryConfig{
		MaxAttempts: 3,
		InitialWait: time.Millisecond,
		MaxWait:     4 * time.Millisecond,
		Multiplier:  2.0,
	}
	cfg.Breaker = BreakerConfig{FailureThreshold: 2, Cooldown: time.Minute}
	return cfg
}

func okResponse(content string) llm.MockResponse {
	return llm.MockResponse{
		Content: json.RawMessage(content),
		Usage:   llm.Usage{InputTokens: 10, OutputTokens: 5},
	}
}

func failResponse(err error) llm.MockResponse {
	return llm.MockResponse{Err: err}
}

// alwaysFailing returns a provider whose every call fails with err.
func alwaysFailing(err error) *llm.MockProvider {
	p := llm.NewMockProvider(failResponse(err))
	p.Repeat = true
	return p
}

type recorderFake struct {
	events []InvocationEvent
}

func (r *recorderFake) RecordInvocation(_ context.Context, ev InvocationEvent) error {
	r.events = append(r.events, ev)
	return nil
}

func mustGateway(t *testing.T, cfg Config, backends []Backend, cache Cache, events EventRecorder) *Gateway {
	t.Helper()
	gw, err := New(cfg, backends, cache, events)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return gw
}

func TestInvokePrimarySuccess(t *testing.T) {
	primary := llm.NewMockProvider(okResponse(`{"answer":"42"}`))
	rec := &recorderFake{}
	gw := mustGateway(t, testConfig(), []Backend{{Name: "anthropic", Provider: primary}}, nil, rec)

	result, err := gw.Invoke(context.Background(), Request{AgentKind: "teacher", Prompt: "explain elasticity"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if string(result.Content) != `{"answer":"42"}` {
		t.Errorf("content = %s", result.Content)
	}
	if result.SourceBackend != "anthropic" {
		t.Errorf("source = %q, want anthropic", result.SourceBackend)
	}
	if result.ServedFromCache {
		t.Error("fresh response marked as cached")
	}
	if len(rec.events) != 1 || !rec.events[0].Success {
		t.Fatalf("events = %+v, want one success", rec.events)
	}
	if rec.events[0].InputTokens != 10 || rec.events[0].OutputTokens != 5 {
		t.Errorf("event tokens = %d/%d", rec.events[0].InputTokens, rec.events[0].OutputTokens)
	}
}

func TestInvokeRetriesTransientFailures(t *testing.T) {
	primary := llm.NewMockProvider(
		failResponse(&llm.ErrRateLimit{}),
		failResponse(&llm.ErrProviderUnavailable{}),
		okResponse(`"ok"`),
	)
	gw := mustGateway(t, testConfig(), []Backend{{Name: "anthropic", Provider: primary}}, nil, nil)

	result, err := gw.Invoke(context.Background(), Request{AgentKind: "teacher", Prompt: "p"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if primary.CallCount() != 3 {
		t.Errorf("call count = %d, want 3", primary.CallCount())
	}
	if string(result.Content) != `"ok"` {
		t.Errorf("content = %s", result.Content)
	}
}

func TestInvokeInvalidResponseRetriedOnce(t *testing.T) {
	primary := alwaysFailing(&llm.ErrInvalidResponse{Content: json.RawMessage("not json")})
	gw := mustGateway(t, testConfig(), []Backend{{Name: "anthropic", Provider: primary}}, nil, nil)

	_, err := gw.Invoke(context.Background(), Request{AgentKind: "teacher", Prompt: "p"})
	var exhausted *ErrAllBackendsExhausted
	if !errors.As(err, &exhausted) {
		t.Fatalf("err = %v, want ErrAllBackendsExhausted", err)
	}
	var invalid *llm.ErrInvalidResponse
	if !errors.As(err, &invalid) {
		t.Fatalf("cause = %v, want ErrInvalidResponse", exhausted.Err)
	}
	if primary.CallCount() != 2 {
		t.Errorf("call count = %d, want 2 (one retry for malformed output)", primary.CallCount())
	}
}

func TestInvokeMaxTokensNotRetried(t *testing.T) {
	primary := alwaysFailing(&llm.ErrMaxTokensExceeded{Content: json.RawMessage("trunc")})
	gw := mustGateway(t, testConfig(), []Backend{{Name: "anthropic", Provider: primary}}, nil, nil)

	_, err := gw.Invoke(context.Background(), Request{AgentKind: "teacher", Prompt: "p"})
	if err == nil {
		t.Fatal("expected error")
	}
	if primary.CallCount() != 1 {
		t.Errorf("call count = %d, want 1 (config errors are not transient)", primary.CallCount())
	}
}

func TestInvokeFallsBackToSecondary(t *testing.T) {
	primary := alwaysFailing(&llm.ErrProviderUnavailable{})
	secondary := llm.NewMockProvider(okResponse(`"from-openai"`))
	gw := mustGateway(t, testConfig(), []Backend{
		{Name: "anthropic", Provider: primary},
		{Name: "openai", Provider: secondary},
	}, nil, nil)

	result, err := gw.Invoke(context.Background(), Request{AgentKind: "teacher", Prompt: "p"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if result.SourceBackend != "openai" {
		t.Errorf("source = %q, want openai", result.SourceBackend)
	}
	if primary.CallCount() != 3 {
		t.Errorf("primary calls = %d, want full retry budget before fallback", primary.CallCount())
	}
}

func TestInvokeCriticalNeverFallsBack(t *testing.T) {
	primary := alwaysFailing(&llm.ErrProviderUnavailable{})
	secondary := llm.NewMockProvider(okResponse(`"wrong"`))
	gw := mustGateway(t, testConfig(), []Backend{
		{Name: "anthropic", Provider: primary},
		{Name: "openai", Provider: secondary},
	}, nil, nil)

	_, err := gw.Invoke(context.Background(), Request{AgentKind: "marker", Prompt: "mark this"})
	var exhausted *ErrAllBackendsExhausted
	if !errors.As(err, &exhausted) {
		t.Fatalf("err = %v, want ErrAllBackendsExhausted", err)
	}
	if exhausted.AgentKind != "marker" {
		t.Errorf("agent kind = %q", exhausted.AgentKind)
	}
	if secondary.CallCount() != 0 {
		t.Errorf("secondary called %d times for a critical agent", secondary.CallCount())
	}
}

func TestInvokeServesCacheBeforeSecondary(t *testing.T) {
	primary := alwaysFailing(&llm.ErrProviderUnavailable{})
	secondary := llm.NewMockProvider(okResponse(`"fresh"`))
	cache := NewMemoryCache()
	cache.Set(context.Background(), "k1", CacheEntry{
		Content:       json.RawMessage(`"cached"`),
		SourceBackend: "anthropic",
		StoredAt:      time.Now(),
	}, time.Hour)

	rec := &recorderFake{}
	gw := mustGateway(t, testConfig(), []Backend{
		{Name: "anthropic", Provider: primary},
		{Name: "openai", Provider: secondary},
	}, cache, rec)

	result, err := gw.Invoke(context.Background(), Request{AgentKind: "teacher", Prompt: "p", CacheKey: "k1"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !result.ServedFromCache {
		t.Error("result not marked as served from cache")
	}
	if result.SourceBackend != "anthropic" {
		t.Errorf("source = %q, want backend that wrote the entry", result.SourceBackend)
	}
	if secondary.CallCount() != 0 {
		t.Errorf("secondary called %d times; cache should be consulted first", secondary.CallCount())
	}
	if len(rec.events) != 1 || !rec.events[0].FromCache {
		t.Fatalf("events = %+v, want one cache-hit event", rec.events)
	}
}

func TestInvokeCriticalStillUsesCache(t *testing.T) {
	primary := alwaysFailing(&llm.ErrProviderUnavailable{})
	cache := NewMemoryCache()
	cache.Set(context.Background(), "mark:q1", CacheEntry{
		Content:       json.RawMessage(`{"marks":5}`),
		SourceBackend: "anthropic",
	}, time.Hour)

	gw := mustGateway(t, testConfig(), []Backend{{Name: "anthropic", Provider: primary}}, cache, nil)

	result, err := gw.Invoke(context.Background(), Request{AgentKind: "marker", Prompt: "p", CacheKey: "mark:q1"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !result.ServedFromCache {
		t.Error("critical agent should still be served from cache when the primary is down")
	}
}

func TestInvokeWritesCacheOnSuccess(t *testing.T) {
	primary := llm.NewMockProvider(okResponse(`"answer"`))
	cache := NewMemoryCache()
	gw := mustGateway(t, testConfig(), []Backend{{Name: "anthropic", Provider: primary}}, cache, nil)

	if _, err := gw.Invoke(context.Background(), Request{AgentKind: "teacher", Prompt: "p", CacheKey: "k2"}); err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	entry, ok, err := cache.Get(context.Background(), "k2")
	if err != nil || !ok {
		t.Fatalf("cache entry not written (ok=%v, err=%v)", ok, err)
	}
	if entry.SourceBackend != "anthropic" {
		t.Errorf("entry source = %q", entry.SourceBackend)
	}
	if string(entry.Content) != `"answer"` {
		t.Errorf("entry content = %s", entry.Content)
	}
}

func TestInvokeDoesNotCacheCriticalResponses(t *testing.T) {
	primary := llm.NewMockProvider(okResponse(`{"marks":5}`))
	cache := NewMemoryCache()
	gw := mustGateway(t, testConfig(), []Backend{{Name: "anthropic", Provider: primary}}, cache, nil)

	if _, err := gw.Invoke(context.Background(), Request{AgentKind: "marker", Prompt: "p", CacheKey: "k3"}); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if _, ok, _ := cache.Get(context.Background(), "k3"); ok {
		t.Error("marker response written to cache despite not being cache-eligible")
	}
}

func TestCircuitOpensAfterConsecutiveFailures(t *testing.T) {
	cfg := testConfig()
	cfg.Retry.MaxAttempts = 1

	primary := llm.NewMockProvider(
		failResponse(&llm.ErrProviderUnavailable{}),
		failResponse(&llm.ErrProviderUnavailable{}),
		okResponse(`"recovered"`),
	)
	gw := mustGateway(t, cfg, []Backend{{Name: "anthropic", Provider: primary}}, nil, nil)

	base := time.Now()
	gw.now = func() time.Time { return base }

	ctx := context.Background()
	req := Request{AgentKind: "teacher", Prompt: "p"}

	for i := 0; i < 2; i++ {
		if _, err := gw.Invoke(ctx, req); err == nil {
			t.Fatalf("invoke %d: expected failure", i)
		}
	}
	if got := gw.BackendStates()["anthropic"]; got != "open" {
		t.Fatalf("state = %q, want open after threshold failures", got)
	}

	// While open, calls short-circuit without touching the provider.
	_, err := gw.Invoke(ctx, req)
	var open *ErrCircuitOpen
	if !errors.As(err, &open) {
		t.Fatalf("err = %v, want ErrCircuitOpen in the chain", err)
	}
	if primary.CallCount() != 2 {
		t.Errorf("call count = %d, provider must not be touched while open", primary.CallCount())
	}

	// After the cooldown a single probe is admitted; success closes.
	gw.now = func() time.Time { return base.Add(cfg.Breaker.Cooldown) }
	result, err := gw.Invoke(ctx, req)
	if err != nil {
		t.Fatalf("probe invoke: %v", err)
	}
	if string(result.Content) != `"recovered"` {
		t.Errorf("content = %s", result.Content)
	}
	if got := gw.BackendStates()["anthropic"]; got != "closed" {
		t.Errorf("state = %q, want closed after probe success", got)
	}
}

// providerFunc adapts a function to llm.Provider for scripted behavior
// the canned-response mock cannot express.
type providerFunc func(ctx context.Context, req llm.Request) (*llm.Response, error)

func (f providerFunc) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return f(ctx, req)
}

func (f providerFunc) ModelID() string { return "mock" }

func TestAbandonedProbeDoesNotWedgeBreaker(t *testing.T) {
	cfg := testConfig()
	cfg.Retry.MaxAttempts = 1

	probeCtx, abandonProbe := context.WithCancel(context.Background())
	var calls int
	provider := providerFunc(func(ctx context.Context, _ llm.Request) (*llm.Response, error) {
		calls++
		switch {
		case calls <= 2:
			return nil, &llm.ErrProviderUnavailable{}
		case calls == 3:
			// The caller walks away while the probe is in flight.
			abandonProbe()
			return nil, ctx.Err()
		default:
			return &llm.Response{Content: json.RawMessage(`"recovered"`), Model: "mock"}, nil
		}
	})

	gw := mustGateway(t, cfg, []Backend{{Name: "anthropic", Provider: provider}}, nil, nil)

	base := time.Now()
	gw.now = func() time.Time { return base }
	req := Request{AgentKind: "teacher", Prompt: "p"}

	for i := 0; i < 2; i++ {
		if _, err := gw.Invoke(context.Background(), req); err == nil {
			t.Fatalf("invoke %d: expected failure", i)
		}
	}
	if got := gw.BackendStates()["anthropic"]; got != "open" {
		t.Fatalf("state = %q, want open after threshold failures", got)
	}

	// Cooldown elapses and the admitted probe is abandoned mid-call.
	gw.now = func() time.Time { return base.Add(cfg.Breaker.Cooldown) }
	if _, err := gw.Invoke(probeCtx, req); !errors.Is(err, context.Canceled) {
		t.Fatalf("abandoned probe: err = %v, want context.Canceled", err)
	}

	// A healthy backend must still be reachable long after: the probe
	// slot came back and the next caller's probe closes the circuit.
	gw.now = func() time.Time { return base.Add(cfg.Breaker.Cooldown + 24*time.Hour) }
	result, err := gw.Invoke(context.Background(), req)
	if err != nil {
		t.Fatalf("invoke after abandoned probe: %v", err)
	}
	if string(result.Content) != `"recovered"` {
		t.Errorf("content = %s", result.Content)
	}
	if got := gw.BackendStates()["anthropic"]; got != "closed" {
		t.Errorf("state = %q, want closed after a successful probe", got)
	}
}

func TestInvokeRejectsBadRequests(t *testing.T) {
	primary := llm.NewMockProvider(okResponse(`"x"`))
	gw := mustGateway(t, testConfig(), []Backend{{Name: "anthropic", Provider: primary}}, nil, nil)

	var invalid *ErrInvalidRequest
	if _, err := gw.Invoke(context.Background(), Request{AgentKind: "teacher"}); !errors.As(err, &invalid) {
		t.Errorf("empty prompt: err = %v, want ErrInvalidRequest", err)
	}
	if _, err := gw.Invoke(context.Background(), Request{AgentKind: "nope", Prompt: "p"}); !errors.As(err, &invalid) {
		t.Errorf("unknown agent: err = %v, want ErrInvalidRequest", err)
	}
	if primary.CallCount() != 0 {
		t.Errorf("provider called %d times for invalid requests", primary.CallCount())
	}
}

func TestInvokeHonorsContextCancellation(t *testing.T) {
	primary := alwaysFailing(&llm.ErrProviderUnavailable{})
	secondary := llm.NewMockProvider(okResponse(`"x"`))
	gw := mustGateway(t, testConfig(), []Backend{
		{Name: "anthropic", Provider: primary},
		{Name: "openai", Provider: secondary},
	}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gw.Invoke(ctx, Request{AgentKind: "teacher", Prompt: "p"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if secondary.CallCount() != 0 {
		t.Errorf("fallback attempted after cancellation")
	}
}
