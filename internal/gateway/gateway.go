package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"github.com/rmehta/studyflow/internal/llm"
)

// Backend is one named entry in the gateway's priority list.
type Backend struct {
	Name     string
	Provider llm.Provider
}

// Request is a single content-generation request routed by the gateway.
type Request struct {
	// AgentKind selects the timeout/criticality/cache profile.
	AgentKind string

	// Prompt is the opaque user-facing payload. Must be non-empty.
	Prompt string

	// System is an optional system prompt.
	System string

	// Schema, when set, requires structured output conforming to it.
	Schema *llm.Schema

	// MaxTokens caps the response length. Zero means the default.
	MaxTokens int

	// CacheKey, when set, enables cache fallback and (for cache-eligible
	// agent kinds) cache writes on success.
	CacheKey string
}

// Result is what the gateway hands back to the caller. Retries, circuit
// state and fallback hops stay internal; the one sanctioned degradation,
// serving from cache, is always visible here.
type Result struct {
	Content         json.RawMessage
	SourceBackend   string
	ServedFromCache bool
	Usage           llm.Usage
}

const defaultMaxTokens = 1024

// Gateway routes invocation requests across a fixed priority list of
// backends, adding retries, per-backend circuit breaking and response
// caching. Safe for concurrent use.
type Gateway struct {
	cfg      Config
	backends []Backend
	breakers map[string]*breaker
	cache    Cache
	events   EventRecorder

	now func() time.Time
}

// New creates a Gateway. cache and events may be nil, disabling caching
// and event recording respectively.
func New(cfg Config, backends []Backend, cache Cache, events EventRecorder) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("gateway config: %w", err)
	}
	if len(backends) == 0 {
		return nil, fmt.Errorf("at least one backend is required")
	}

	breakers := make(map[string]*breaker, len(backends))
	for _, b := range backends {
		if b.Provider == nil {
			return nil, fmt.Errorf("backend %q has no provider", b.Name)
		}
		if _, dup := breakers[b.Name]; dup {
			return nil, fmt.Errorf("duplicate backend %q", b.Name)
		}
		breakers[b.Name] = newBreaker(cfg.Breaker)
	}

	return &Gateway{
		cfg:      cfg,
		backends: backends,
		breakers: breakers,
		cache:    cache,
		events:   events,
		now:      time.Now,
	}, nil
}

// Invoke delivers the request to a working backend.
//
// Order of avenues: primary with retries, then the cache (when a CacheKey
// was supplied), then each further backend with the same retry policy —
// unless the agent kind is critical, in which case no secondary backend
// is attempted. When everything fails the caller gets
// *ErrAllBackendsExhausted.
func (g *Gateway) Invoke(ctx context.Context, req Request) (*Result, error) {
	profile, err := g.profileFor(req)
	if err != nil {
		return nil, err
	}

	start := g.now()
	var lastErr error

	for i, b := range g.backends {
		if i > 0 && profile.Critical {
			break
		}

		resp, err := g.callBackend(ctx, b, req, profile)
		if err == nil {
			result := &Result{
				Content:       resp.Content,
				SourceBackend: b.Name,
				Usage:         resp.Usage,
			}
			g.writeCache(ctx, req, profile, result)
			g.record(ctx, req, b.Name, resp.Model, start, result, nil)
			return result, nil
		}
		lastErr = err

		// Caller abandoned: don't start fallback work whose result
		// would be discarded.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		// Primary exhausted: the cache is the next avenue, for critical
		// and non-critical callers alike.
		if i == 0 && req.CacheKey != "" {
			if result, ok := g.lookupCache(ctx, req.CacheKey); ok {
				g.record(ctx, req, result.SourceBackend, "", start, result, nil)
				return result, nil
			}
		}
	}

	exhausted := &ErrAllBackendsExhausted{AgentKind: req.AgentKind, Err: lastErr}
	g.record(ctx, req, "", "", start, nil, exhausted)
	return nil, exhausted
}

// BackendStates reports each backend's current circuit state, keyed by
// backend name. For operational visibility only.
func (g *Gateway) BackendStates() map[string]string {
	now := g.now()
	states := make(map[string]string, len(g.breakers))
	for name, br := range g.breakers {
		states[name] = br.currentState(now).String()
	}
	return states
}

func (g *Gateway) profileFor(req Request) (AgentProfile, error) {
	if req.Prompt == "" {
		return AgentProfile{}, &ErrInvalidRequest{Reason: "empty prompt"}
	}
	profile, ok := g.cfg.Agents[req.AgentKind]
	if !ok {
		return AgentProfile{}, &ErrInvalidRequest{Reason: fmt.Sprintf("unknown agent kind %q", req.AgentKind)}
	}
	return profile, nil
}

// callBackend runs the retry loop against one backend, consulting its
// circuit breaker before every attempt and feeding every outcome back
// into it.
func (g *Gateway) callBackend(ctx context.Context, b Backend, req Request, profile AgentProfile) (*llm.Response, error) {
	br := g.breakers[b.Name]
	var lastErr error
	invalidRetried := false

	for attempt := range g.cfg.Retry.MaxAttempts {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !br.allow(g.now()) {
			return nil, &ErrCircuitOpen{Backend: b.Name}
		}

		callCtx, cancel := context.WithTimeout(ctx, profile.Timeout)
		resp, err := b.Provider.Generate(callCtx, buildProviderRequest(req))
		cancel()

		if err == nil {
			br.recordSuccess()
			return resp, nil
		}

		// A call abandoned by the caller is not a backend failure, but a
		// probe slot held by this attempt must be handed back.
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			br.releaseProbe()
			return nil, ctx.Err()
		}
		// An exceeded per-attempt deadline counts exactly like a
		// backend-reported failure.
		if errors.Is(err, context.DeadlineExceeded) {
			err = &llm.ErrProviderUnavailable{Err: fmt.Errorf("%s timed out after %s", b.Name, profile.Timeout)}
		}

		br.recordFailure(g.now())
		lastErr = err

		if !retryable(err, &invalidRetried) {
			return nil, err
		}
		if attempt == g.cfg.Retry.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(g.backoff(attempt, err)):
		}
	}

	return nil, lastErr
}

// retryable determines whether an error warrants another attempt against
// the same backend.
func retryable(err error, invalidRetried *bool) bool {
	var maxTok *llm.ErrMaxTokensExceeded
	if errors.As(err, &maxTok) {
		// Configuration issue, not transient.
		return false
	}

	var invResp *llm.ErrInvalidResponse
	if errors.As(err, &invResp) {
		// Malformed output gets one retry.
		if *invalidRetried {
			return false
		}
		*invalidRetried = true
		return true
	}

	// Rate limits, unavailability and unclassified network errors are
	// treated as transient.
	return true
}

// backoff computes the wait before the next attempt.
func (g *Gateway) backoff(attempt int, err error) time.Duration {
	var rl *llm.ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}

	wait := float64(g.cfg.Retry.InitialWait) * math.Pow(g.cfg.Retry.Multiplier, float64(attempt))
	if wait > float64(g.cfg.Retry.MaxWait) {
		wait = float64(g.cfg.Retry.MaxWait)
	}

	// ±20% jitter.
	wait += wait * 0.2 * (2*rand.Float64() - 1)
	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}

func (g *Gateway) lookupCache(ctx context.Context, key string) (*Result, bool) {
	if g.cache == nil {
		return nil, false
	}
	entry, ok, err := g.cache.Get(ctx, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: cache lookup failed: %v\n", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return &Result{
		Content:         entry.Content,
		SourceBackend:   entry.SourceBackend,
		ServedFromCache: true,
	}, true
}

func (g *Gateway) writeCache(ctx context.Context, req Request, profile AgentProfile, result *Result) {
	if g.cache == nil || !profile.CacheEligible || req.CacheKey == "" {
		return
	}
	entry := CacheEntry{
		Content:       result.Content,
		SourceBackend: result.SourceBackend,
		StoredAt:      g.now(),
	}
	if err := g.cache.Set(ctx, req.CacheKey, entry, g.cfg.CacheTTL); err != nil {
		fmt.Fprintf(os.Stderr, "warning: cache write failed: %v\n", err)
	}
}

// record logs the invocation outcome but never fails the request.
func (g *Gateway) record(ctx context.Context, req Request, backend, model string, start time.Time, result *Result, err error) {
	if g.events == nil {
		return
	}

	ev := InvocationEvent{
		Backend:   backend,
		Model:     model,
		AgentKind: req.AgentKind,
		LatencyMs: g.now().Sub(start).Milliseconds(),
		Success:   err == nil,
	}
	if result != nil {
		ev.InputTokens = result.Usage.InputTokens
		ev.OutputTokens = result.Usage.OutputTokens
		ev.FromCache = result.ServedFromCache
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
	}

	if logErr := g.events.RecordInvocation(ctx, ev); logErr != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to record invocation event: %v\n", logErr)
	}
}

func buildProviderRequest(req Request) llm.Request {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	return llm.Request{
		System:    req.System,
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: req.Prompt}},
		Schema:    req.Schema,
		MaxTokens: maxTokens,
	}
}
