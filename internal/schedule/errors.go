package schedule

import (
	"fmt"
	"time"
)

// ErrInvalidDate indicates the exam date is today or in the past, leaving
// no days to schedule.
type ErrInvalidDate struct {
	ExamDate time.Time
}

func (e *ErrInvalidDate) Error() string {
	return fmt.Sprintf("exam date %s leaves no study days", e.ExamDate.Format("2006-01-02"))
}

// ErrInvalidProgressUpdate indicates a progress update referenced an
// already-completed day or a topic the plan does not track. The plan is
// left unmutated.
type ErrInvalidProgressUpdate struct {
	Reason string
}

func (e *ErrInvalidProgressUpdate) Error() string {
	return fmt.Sprintf("invalid progress update: %s", e.Reason)
}

// ErrPlanInfeasible indicates the topic set cannot fit the available days
// under the per-day cap, so no schedule can cover the full syllabus.
type ErrPlanInfeasible struct {
	Topics   int
	Capacity int
}

func (e *ErrPlanInfeasible) Error() string {
	return fmt.Sprintf("%d topics cannot fit %d schedulable slots before the exam", e.Topics, e.Capacity)
}
