package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rmehta/studyflow/internal/gateway"
)

// ErrEventNotFound indicates no invocation event exists for the requested ID.
var ErrEventNotFound = errors.New("invocation event not found")

// EventRepo persists gateway invocation events for cost and reliability
// auditing. It satisfies gateway.EventRecorder.
type EventRepo struct {
	db *sqlx.DB
}

// InvocationRecord is a stored invocation event.
type InvocationRecord struct {
	ID           int64     `db:"id"`
	Backend      string    `db:"backend"`
	Model        string    `db:"model"`
	AgentKind    string    `db:"agent_kind"`
	LatencyMs    int64     `db:"latency_ms"`
	InputTokens  int       `db:"input_tokens"`
	OutputTokens int       `db:"output_tokens"`
	Success      bool      `db:"success"`
	FromCache    bool      `db:"from_cache"`
	ErrorMessage string    `db:"error_message"`
	CreatedAt    time.Time `db:"created_at"`
}

// BackendStats aggregates stored events per backend and model.
type BackendStats struct {
	Backend      string  `db:"backend"`
	Model        string  `db:"model"`
	Calls        int     `db:"calls"`
	Failures     int     `db:"failures"`
	CacheHits    int     `db:"cache_hits"`
	InputTokens  int64   `db:"input_tokens"`
	OutputTokens int64   `db:"output_tokens"`
	AvgLatencyMs float64 `db:"avg_latency_ms"`
}

// RecordInvocation appends one invocation event.
func (r *EventRepo) RecordInvocation(ctx context.Context, ev gateway.InvocationEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO llm_events (backend, model, agent_kind, latency_ms, input_tokens, output_tokens, success, from_cache, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.Backend, ev.Model, ev.AgentKind, ev.LatencyMs,
		ev.InputTokens, ev.OutputTokens, ev.Success, ev.FromCache,
		ev.ErrorMessage, time.Now())
	if err != nil {
		return fmt.Errorf("record invocation event: %w", err)
	}
	return nil
}

// Recent returns the newest events, up to limit.
func (r *EventRepo) Recent(ctx context.Context, limit int) ([]InvocationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []InvocationRecord
	err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM llm_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list invocation events: %w", err)
	}
	return rows, nil
}

// Get loads a single event by ID.
func (r *EventRepo) Get(ctx context.Context, id int64) (*InvocationRecord, error) {
	var row InvocationRecord
	err := r.db.GetContext(ctx, &row, `SELECT * FROM llm_events WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get invocation event %d: %w", id, err)
	}
	return &row, nil
}

// Stats aggregates events per backend and model.
func (r *EventRepo) Stats(ctx context.Context) ([]BackendStats, error) {
	var rows []BackendStats
	err := r.db.SelectContext(ctx, &rows, `
		SELECT backend, model,
			COUNT(*) AS calls,
			SUM(CASE WHEN success THEN 0 ELSE 1 END) AS failures,
			SUM(CASE WHEN from_cache THEN 1 ELSE 0 END) AS cache_hits,
			SUM(input_tokens) AS input_tokens,
			SUM(output_tokens) AS output_tokens,
			AVG(latency_ms) AS avg_latency_ms
		FROM llm_events
		GROUP BY backend, model
		ORDER BY backend, model`)
	if err != nil {
		return nil, fmt.Errorf("aggregate invocation events: %w", err)
	}
	return rows, nil
}
