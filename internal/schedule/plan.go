package schedule

import (
	"sort"
	"time"
)

// Activity is a kind of work scheduled on a day.
type Activity string

const (
	ActivityStudy       Activity = "study"
	ActivityPractice    Activity = "practice"
	ActivityReview      Activity = "review"
	ActivityMixedReview Activity = "mixed_review"
	ActivityExam        Activity = "exam"
)

// Status is the lifecycle state of a plan.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

// Topic is one syllabus item to be scheduled. Topics sharing a syllabus
// section prefix (e.g. "9708.1.1" and "9708.1.2") are treated as related;
// Related lists explicit relations across sections.
type Topic struct {
	ID      string   `json:"id"`
	Related []string `json:"related,omitempty"`
}

// ScheduleDay is one calendar day within a plan.
//
// Topics carries 1-3 entries, never more: the cognitive-load cap.
// Past (completed) days are immutable except for the Completed flag flip
// that marks them done; future days may be rewritten by progress updates.
type ScheduleDay struct {
	DayIndex       int        `json:"day_index"`
	Date           time.Time  `json:"date"`
	Topics         []string   `json:"topics"`
	Interval       int        `json:"interval"`
	Activities     []Activity `json:"activities"`
	HoursAllocated float64    `json:"hours_allocated"`
	Completed      bool       `json:"completed"`
}

// HasActivity reports whether the day includes the given activity.
func (d *ScheduleDay) HasActivity(a Activity) bool {
	for _, act := range d.Activities {
		if act == a {
			return true
		}
	}
	return false
}

// StudyPlan owns the ordered day sequence plus the per-topic easiness
// factors the interval math runs on.
type StudyPlan struct {
	ID          string             `json:"id"`
	ExamDate    time.Time          `json:"exam_date"`
	TotalDays   int                `json:"total_days"`
	HoursPerDay float64            `json:"hours_per_day"`
	Days        []ScheduleDay      `json:"days"`
	Easiness    map[string]float64 `json:"easiness"`
	Status      Status             `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Day returns the day with the given index, or nil if the plan has no
// work scheduled on it.
func (p *StudyPlan) Day(index int) *ScheduleDay {
	for i := range p.Days {
		if p.Days[i].DayIndex == index {
			return &p.Days[i]
		}
	}
	return nil
}

// Topics returns the sorted set of topic IDs the plan tracks.
func (p *StudyPlan) Topics() []string {
	ids := make([]string, 0, len(p.Easiness))
	for id := range p.Easiness {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Covers reports whether every tracked topic appears on at least one day.
func (p *StudyPlan) Covers() bool {
	seen := make(map[string]bool, len(p.Easiness))
	for i := range p.Days {
		for _, t := range p.Days[i].Topics {
			seen[t] = true
		}
	}
	for id := range p.Easiness {
		if !seen[id] {
			return false
		}
	}
	return true
}

// Abandon marks the plan abandoned. Explicit caller decision; the
// scheduler itself never abandons a plan.
func (p *StudyPlan) Abandon() {
	p.Status = StatusAbandoned
}

// dateFor converts a day index to its calendar date. Day 1 is the day
// after plan creation; the final day lands on the exam date.
func (p *StudyPlan) dateFor(index int) time.Time {
	return startOfDay(p.CreatedAt).AddDate(0, 0, index)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysBetween counts calendar days from a to b. Both instants are
// reduced to their own calendar date before subtracting, so an offset
// change between them (a DST transition, say) cannot shave a day off
// the count.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	au := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	bu := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(bu.Sub(au).Hours() / 24)
}
