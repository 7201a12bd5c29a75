package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rmehta/studyflow/internal/schedule"
)

// ErrPlanNotFound indicates no plan exists for the requested ID.
var ErrPlanNotFound = errors.New("study plan not found")

// PlanRepo persists study plans. The day sequence and the easiness map
// are stored as JSON columns; plans are small and always read whole.
type PlanRepo struct {
	db *sqlx.DB
}

type planRow struct {
	ID          string    `db:"id"`
	ExamDate    time.Time `db:"exam_date"`
	TotalDays   int       `db:"total_days"`
	HoursPerDay float64   `db:"hours_per_day"`
	Schedule    string    `db:"schedule"`
	Easiness    string    `db:"easiness"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// PlanSummary is the listing row for a stored plan.
type PlanSummary struct {
	ID        string          `db:"id"`
	ExamDate  time.Time       `db:"exam_date"`
	TotalDays int             `db:"total_days"`
	Status    schedule.Status `db:"status"`
	CreatedAt time.Time       `db:"created_at"`
}

// Save upserts a plan, replacing the stored day sequence and easiness
// factors wholesale.
func (r *PlanRepo) Save(ctx context.Context, plan *schedule.StudyPlan) error {
	days, err := json.Marshal(plan.Days)
	if err != nil {
		return fmt.Errorf("marshal schedule: %w", err)
	}
	easiness, err := json.Marshal(plan.Easiness)
	if err != nil {
		return fmt.Errorf("marshal easiness: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO study_plans (id, exam_date, total_days, hours_per_day, schedule, easiness, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			exam_date = excluded.exam_date,
			total_days = excluded.total_days,
			hours_per_day = excluded.hours_per_day,
			schedule = excluded.schedule,
			easiness = excluded.easiness,
			status = excluded.status,
			updated_at = excluded.updated_at`,
		plan.ID, plan.ExamDate, plan.TotalDays, plan.HoursPerDay,
		string(days), string(easiness), string(plan.Status),
		plan.CreatedAt, time.Now())
	if err != nil {
		return fmt.Errorf("save plan %s: %w", plan.ID, err)
	}
	return nil
}

// Get loads a plan by ID.
func (r *PlanRepo) Get(ctx context.Context, id string) (*schedule.StudyPlan, error) {
	var row planRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM study_plans WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get plan %s: %w", id, err)
	}

	plan := &schedule.StudyPlan{
		ID:          row.ID,
		ExamDate:    row.ExamDate,
		TotalDays:   row.TotalDays,
		HoursPerDay: row.HoursPerDay,
		Status:      schedule.Status(row.Status),
		CreatedAt:   row.CreatedAt,
	}
	if err := json.Unmarshal([]byte(row.Schedule), &plan.Days); err != nil {
		return nil, fmt.Errorf("unmarshal schedule for plan %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(row.Easiness), &plan.Easiness); err != nil {
		return nil, fmt.Errorf("unmarshal easiness for plan %s: %w", id, err)
	}
	return plan, nil
}

// List returns plan summaries, newest first.
func (r *PlanRepo) List(ctx context.Context) ([]PlanSummary, error) {
	var rows []PlanSummary
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, exam_date, total_days, status, created_at
		FROM study_plans
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return rows, nil
}

// SetStatus updates a plan's lifecycle status.
func (r *PlanRepo) SetStatus(ctx context.Context, id string, status schedule.Status) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE study_plans SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now(), id)
	if err != nil {
		return fmt.Errorf("set status for plan %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrPlanNotFound
	}
	return nil
}
