package schedule

import (
	"context"
	"log"

	"interview-scheduler/internal/store"
)

// Conversion funnel stages, in intake order.
const (
	StagePending     = "pending"
	StageContacted   = "contacted"
	StageScheduled   = "scheduled"
	StageInterviewed = "interviewed"
	StageActive      = "active"
)

// ConversionTracker appends candidate stage transitions to an append-only log.
// The log is advisory: analytics reads it, scheduling decisions never do, and
// stage regressions are recorded rather than rejected.
type ConversionTracker struct {
	store store.Store
}

func (t *ConversionTracker) Track(ctx context.Context, candidateID, fromStage, toStage, method, notes string) error {
	ev := store.ConversionEventRecord{
		CandidateID: candidateID,
		FromStage:   fromStage,
		ToStage:     toStage,
		Method:      method,
		Notes:       notes,
	}
	return t.store.AppendConversionEvent(ctx, &ev)
}

// track logs a transition and swallows the error. Used where the funnel is a
// side effect of an operation that must not fail on analytics problems.
func (t *ConversionTracker) track(ctx context.Context, candidateID, fromStage, toStage, method, notes string) {
	if err := t.Track(ctx, candidateID, fromStage, toStage, method, notes); err != nil {
		log.Printf("conversion track %s %s->%s: %v", candidateID, fromStage, toStage, err)
	}
}

// History returns a candidate's stage transitions in chronological order.
func (t *ConversionTracker) History(ctx context.Context, candidateID string) ([]store.ConversionEventRecord, error) {
	return t.store.ListConversionEvents(ctx, candidateID)
}

// Summary returns how many candidates currently sit in each stage, judged by
// their latest logged transition.
func (t *ConversionTracker) Summary(ctx context.Context) (map[string]int, error) {
	return t.store.CountConversionsByStage(ctx)
}
