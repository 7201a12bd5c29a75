package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Engine builds study plans and adapts them as performance data arrives.
// All computation is pure and deterministic for a fixed clock; persistence
// belongs to the caller.
type Engine struct {
	cfg Config
	now func() time.Time
}

// NewEngine creates an Engine with the given configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg, now: time.Now}
}

// topicProgress tracks per-topic scheduling state during plan generation.
type topicProgress struct {
	exposures int
	interval  int
	lastDay   int
}

// CreatePlan turns a topic set, an exam date and a daily time budget into
// a day-by-day plan. Every topic is guaranteed to appear at least once on
// or before the exam date; no day carries more than the cognitive-load
// cap of topics.
func (e *Engine) CreatePlan(topics []Topic, examDate time.Time, hoursPerDay float64) (*StudyPlan, error) {
	if len(topics) == 0 {
		return nil, fmt.Errorf("at least one topic is required")
	}
	if hoursPerDay <= 0 {
		return nil, fmt.Errorf("hours per day must be positive")
	}

	created := e.now()
	exam := startOfDay(examDate)
	totalDays := daysBetween(created, examDate)
	if totalDays <= 0 {
		return nil, &ErrInvalidDate{ExamDate: examDate}
	}

	easiness := make(map[string]float64, len(topics))
	for _, t := range topics {
		easiness[t.ID] = DefaultEasiness
	}
	if len(easiness) > totalDays*e.cfg.MaxTopicsPerDay {
		return nil, &ErrPlanInfeasible{Topics: len(easiness), Capacity: totalDays * e.cfg.MaxTopicsPerDay}
	}

	plan := &StudyPlan{
		ID:          uuid.NewString(),
		ExamDate:    exam,
		TotalDays:   totalDays,
		HoursPerDay: hoursPerDay,
		Easiness:    easiness,
		Status:      StatusActive,
		CreatedAt:   created,
	}

	e.buildDays(plan, BuildClusters(topics, e.cfg.ClusterCap))
	e.ensureCoverage(plan)
	if !plan.Covers() {
		return nil, &ErrPlanInfeasible{Topics: len(easiness), Capacity: totalDays * e.cfg.MaxTopicsPerDay}
	}

	return plan, nil
}

// buildDays runs the day-by-day simulation: interval-scheduled study and
// review up to the exam window, then forced mixed review through the exam.
func (e *Engine) buildDays(plan *StudyPlan, clusters [][]string) {
	maxPerDay := e.cfg.MaxTopicsPerDay
	introEnd := plan.TotalDays - e.cfg.ExamWindowDays

	states := make(map[string]*topicProgress, len(plan.Easiness))
	stateFor := func(id string) *topicProgress {
		st := states[id]
		if st == nil {
			st = &topicProgress{}
			states[id] = st
		}
		return st
	}

	due := make(map[int][]string)
	nextCluster := 0

	for d := 1; d <= introEnd; d++ {
		dayTopics := dedupe(due[d])
		sort.Strings(dayTopics)
		if len(dayTopics) > maxPerDay {
			// Push the overflow one day out rather than breaking the cap.
			due[d+1] = append(due[d+1], dayTopics[maxPerDay:]...)
			dayTopics = dayTopics[:maxPerDay]
		}
		reviewCount := len(dayTopics)

		// Introduce whole clusters while the day has room: splitting a
		// cluster across days would defeat the interleaving.
		for nextCluster < len(clusters) && len(dayTopics)+len(clusters[nextCluster]) <= maxPerDay {
			dayTopics = append(dayTopics, clusters[nextCluster]...)
			nextCluster++
		}
		if len(dayTopics) == 0 {
			continue
		}

		interval := firstInterval
		for i, t := range dayTopics {
			st := stateFor(t)
			if i == 0 && st.exposures > 0 {
				interval = d - st.lastDay
			}
			st.exposures++
			gap := NextInterval(st.exposures, st.interval, plan.Easiness[t])
			st.interval = gap
			st.lastDay = d
			if next := d + gap; next <= introEnd {
				due[next] = append(due[next], t)
			}
			// Beyond introEnd the exam window forces review anyway.
		}

		plan.Days = append(plan.Days, ScheduleDay{
			DayIndex:       d,
			Date:           plan.dateFor(d),
			Topics:         dayTopics,
			Interval:       interval,
			Activities:     activitiesFor(len(dayTopics) > reviewCount, reviewCount > 0),
			HoursAllocated: plan.HoursPerDay,
		})
	}

	// Exam window: computed intervals are ignored and every remaining day
	// cycles through the full topic set as forced review.
	windowStart := introEnd + 1
	if windowStart < 1 {
		windowStart = 1
	}
	all := plan.Topics()
	cursor := 0
	for d := windowStart; d <= plan.TotalDays; d++ {
		n := maxPerDay
		if n > len(all) {
			n = len(all)
		}
		dayTopics := make([]string, 0, n)
		for i := 0; i < n; i++ {
			dayTopics = append(dayTopics, all[cursor%len(all)])
			cursor++
		}

		interval := firstInterval
		for i, t := range dayTopics {
			st := stateFor(t)
			if i == 0 && st.exposures > 0 {
				interval = d - st.lastDay
			}
			st.exposures++
			st.lastDay = d
		}

		acts := []Activity{ActivityMixedReview}
		if len(dayTopics) == 1 {
			acts = []Activity{ActivityReview}
		}
		if d == plan.TotalDays {
			acts = append(acts, ActivityExam)
		}

		plan.Days = append(plan.Days, ScheduleDay{
			DayIndex:       d,
			Date:           plan.dateFor(d),
			Topics:         dayTopics,
			Interval:       interval,
			Activities:     acts,
			HoursAllocated: plan.HoursPerDay,
		})
	}
}

// PracticeSequence returns the interleaved within-session practice order
// for a day's topics. Session runners use it to alternate between the
// day's topics instead of exhausting one before the next.
func (e *Engine) PracticeSequence(day *ScheduleDay) []string {
	return InterleaveCluster(day.Topics, e.cfg.InterleaveRounds)
}

// UpdateProgress applies a day's performance scores to the plan: easiness
// factors shift, the scored topics' next reviews move, and the day is
// marked complete. Invalid input rejects the whole update with the plan
// unmutated.
func (e *Engine) UpdateProgress(plan *StudyPlan, dayIndex int, performance map[string]int) (*StudyPlan, error) {
	if plan.Status != StatusActive {
		return nil, &ErrInvalidProgressUpdate{Reason: fmt.Sprintf("plan is %s", plan.Status)}
	}
	day := plan.Day(dayIndex)
	if day == nil {
		return nil, &ErrInvalidProgressUpdate{Reason: fmt.Sprintf("no work scheduled on day %d", dayIndex)}
	}
	if day.Completed {
		return nil, &ErrInvalidProgressUpdate{Reason: fmt.Sprintf("day %d is already completed", dayIndex)}
	}
	for t, score := range performance {
		if _, ok := plan.Easiness[t]; !ok {
			return nil, &ErrInvalidProgressUpdate{Reason: fmt.Sprintf("topic %q is not in the plan", t)}
		}
		if score < 0 || score > 100 {
			return nil, &ErrInvalidProgressUpdate{Reason: fmt.Sprintf("score %d for topic %q is outside 0-100", score, t)}
		}
	}

	scored := make([]string, 0, len(performance))
	for t := range performance {
		scored = append(scored, t)
	}
	sort.Strings(scored)

	introEnd := plan.TotalDays - e.cfg.ExamWindowDays

	for _, t := range scored {
		quality := QualityForScore(performance[t])
		plan.Easiness[t] = NextEasiness(plan.Easiness[t], quality)

		exposures, lapsed := topicHistory(plan, t, dayIndex)

		var gap int
		if quality < 3 {
			// Failed recall resets the topic to a next-day review.
			gap = firstInterval
		} else {
			gap = NextInterval(exposures, lapsed, plan.Easiness[t])
		}

		e.rescheduleTopic(plan, t, dayIndex, dayIndex+gap, introEnd)
	}

	day.Completed = true
	e.ensureCoverage(plan)
	e.maybeComplete(plan)

	return plan, nil
}

// topicHistory derives a topic's exposure count and its last review gap
// from the day sequence up to and including asOf.
func topicHistory(plan *StudyPlan, id string, asOf int) (exposures, lapsed int) {
	last, prev := 0, 0
	for i := range plan.Days {
		d := &plan.Days[i]
		if d.DayIndex > asOf {
			break
		}
		for _, t := range d.Topics {
			if t == id {
				exposures++
				prev = last
				last = d.DayIndex
			}
		}
	}
	if exposures == 0 {
		exposures = 1
	}
	lapsed = last - prev
	if prev == 0 || lapsed < 1 {
		lapsed = 1
	}
	return exposures, lapsed
}

// rescheduleTopic moves a topic's next interval-scheduled occurrence to
// target. Completed days and exam-window days are never touched; if no
// slot exists near the target the existing occurrence stays, so the topic
// is never dropped.
func (e *Engine) rescheduleTopic(plan *StudyPlan, id string, after, target, introEnd int) {
	var current *ScheduleDay
	for i := range plan.Days {
		d := &plan.Days[i]
		if d.DayIndex <= after || d.DayIndex > introEnd || d.Completed {
			continue
		}
		if containsTopic(d.Topics, id) {
			current = d
			break
		}
	}

	if target > introEnd {
		// The recomputed interval lands inside the exam window, which
		// already force-reviews every topic. Drop the interval slot.
		if current != nil {
			removeTopic(plan, current, id)
		}
		return
	}

	placed := e.placeTopic(plan, id, target, after, introEnd)
	if placed != nil && current != nil && placed != current {
		removeTopic(plan, current, id)
	}
}

// placeTopic finds a day for the topic at or near target, preferring
// later days over earlier ones, and inserts a new day when the calendar
// slot is empty. Returns the day used, or nil if everything is full.
func (e *Engine) placeTopic(plan *StudyPlan, id string, target, after, limit int) *ScheduleDay {
	if target <= after {
		target = after + 1
	}
	for d := target; d <= limit; d++ {
		if day := e.tryPlace(plan, id, d); day != nil {
			return day
		}
	}
	for d := target - 1; d > after; d-- {
		if day := e.tryPlace(plan, id, d); day != nil {
			return day
		}
	}
	return nil
}

func (e *Engine) tryPlace(plan *StudyPlan, id string, index int) *ScheduleDay {
	day := plan.Day(index)
	if day == nil {
		return insertDay(plan, ScheduleDay{
			DayIndex:       index,
			Date:           plan.dateFor(index),
			Topics:         []string{id},
			Interval:       firstInterval,
			Activities:     []Activity{ActivityReview},
			HoursAllocated: plan.HoursPerDay,
		})
	}
	if day.Completed {
		return nil
	}
	if containsTopic(day.Topics, id) {
		return day
	}
	if len(day.Topics) < e.cfg.MaxTopicsPerDay {
		day.Topics = append(day.Topics, id)
		if !day.HasActivity(ActivityReview) && !day.HasActivity(ActivityMixedReview) {
			day.Activities = append(day.Activities, ActivityReview)
		}
		return day
	}
	return nil
}

// ensureCoverage places any topic that lost its only appearance, so the
// plan always covers the full syllabus. Compression over omission.
func (e *Engine) ensureCoverage(plan *StudyPlan) {
	seen := make(map[string]bool, len(plan.Easiness))
	for i := range plan.Days {
		for _, t := range plan.Days[i].Topics {
			seen[t] = true
		}
	}
	for _, id := range plan.Topics() {
		if !seen[id] {
			e.placeTopic(plan, id, 1, 0, plan.TotalDays)
		}
	}
}

// maybeComplete flips the plan to completed once the exam date has passed
// with every day done.
func (e *Engine) maybeComplete(plan *StudyPlan) {
	for i := range plan.Days {
		if !plan.Days[i].Completed {
			return
		}
	}
	if !startOfDay(e.now()).Before(plan.ExamDate) {
		plan.Status = StatusCompleted
	}
}

func activitiesFor(introduced, reviewed bool) []Activity {
	switch {
	case introduced && reviewed:
		return []Activity{ActivityStudy, ActivityReview}
	case introduced:
		return []Activity{ActivityStudy, ActivityPractice}
	default:
		return []Activity{ActivityReview}
	}
}

func insertDay(plan *StudyPlan, day ScheduleDay) *ScheduleDay {
	at := len(plan.Days)
	for i := range plan.Days {
		if plan.Days[i].DayIndex > day.DayIndex {
			at = i
			break
		}
	}
	plan.Days = append(plan.Days, ScheduleDay{})
	copy(plan.Days[at+1:], plan.Days[at:])
	plan.Days[at] = day
	return &plan.Days[at]
}

func removeTopic(plan *StudyPlan, day *ScheduleDay, id string) {
	kept := day.Topics[:0]
	for _, t := range day.Topics {
		if t != id {
			kept = append(kept, t)
		}
	}
	day.Topics = kept
	if len(day.Topics) == 0 {
		for i := range plan.Days {
			if &plan.Days[i] == day {
				plan.Days = append(plan.Days[:i], plan.Days[i+1:]...)
				return
			}
		}
	}
}

func containsTopic(topics []string, id string) bool {
	for _, t := range topics {
		if t == id {
			return true
		}
	}
	return false
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
