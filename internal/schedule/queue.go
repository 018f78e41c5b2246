package schedule

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"interview-scheduler/internal/store"
)

// EnqueueRequest adds a candidate to the waiting queue.
type EnqueueRequest struct {
	CandidateID    string   `json:"candidate_id"`
	PriorityScore  float64  `json:"priority_score"`
	PreferredTimes []string `json:"preferred_times,omitempty"`
	UrgencyLevel   string   `json:"urgency_level,omitempty"`
}

// Enqueue creates a waiting queue entry for the candidate. Idempotent: if the
// candidate already has a non-terminal entry, that entry is returned unchanged
// and created is false.
func (e *Engine) Enqueue(ctx context.Context, req EnqueueRequest) (store.QueueEntryRecord, bool, error) {
	if req.CandidateID == "" {
		return store.QueueEntryRecord{}, false, &IntegrityError{Entity: "candidate", Ref: "", Reason: "is required"}
	}
	if req.PriorityScore < 0 || req.PriorityScore > 1 {
		return store.QueueEntryRecord{}, false, &IntegrityError{
			Entity: "queue entry", Ref: req.CandidateID, Reason: "priority score must be in [0,1]"}
	}

	existing, ok, err := e.store.ActiveQueueEntryByCandidate(ctx, req.CandidateID)
	if err != nil {
		return store.QueueEntryRecord{}, false, err
	}
	if ok {
		return existing, false, nil
	}

	entry := store.QueueEntryRecord{
		ID:             uuid.NewString(),
		CandidateID:    req.CandidateID,
		PriorityScore:  req.PriorityScore,
		Status:         store.QueueWaiting,
		PreferredTimes: req.PreferredTimes,
		UrgencyLevel:   req.UrgencyLevel,
		AddedAt:        e.now(),
	}
	if err := e.store.InsertQueueEntry(ctx, &entry); err != nil {
		return store.QueueEntryRecord{}, false, err
	}
	e.tracker.track(ctx, req.CandidateID, "", StagePending, "enqueue", "")
	return entry, true, nil
}

// ListQueue returns queue entries, optionally filtered by status, in
// processing order.
func (e *Engine) ListQueue(ctx context.Context, status string, limit int) ([]store.QueueEntryRecord, error) {
	return e.store.ListQueueEntries(ctx, status, limit)
}

// RunCycle processes one batch of waiting candidates in priority order. Only
// one cycle may be in flight; a second concurrent call is rejected with a
// policy violation rather than interleaved. Within the cycle candidates are
// handled strictly sequentially so the capacity check and the commit stay
// consistent.
func (e *Engine) RunCycle(ctx context.Context) (CycleResult, error) {
	if e.control.isStopped() {
		return CycleResult{}, policyf(PolicySystemPaused, "queue processing is paused by emergency stop")
	}
	if !e.cycleMu.TryLock() {
		return CycleResult{}, policyf(PolicyCycleInFlight, "a scheduling cycle is already running")
	}
	defer e.cycleMu.Unlock()

	entries, err := e.store.ListQueueEntries(ctx, store.QueueWaiting, e.cfg.BatchSize)
	if err != nil {
		return CycleResult{}, err
	}

	fromDate := e.now().Format(dateLayout)
	toDate := e.now().AddDate(0, 0, e.cfg.SearchHorizonDays).Format(dateLayout)

	var res CycleResult
batch:
	for _, entry := range entries {
		remaining, err := e.CapacityRemaining(ctx, e.cfg.DefaultResource, fromDate, toDate)
		if err != nil {
			return res, err
		}
		if !remaining {
			// Halt, don't skip: the untouched tail keeps its priority order
			// for the next cycle.
			break
		}

		res.Processed++
		if err := e.scheduleEntry(ctx, entry, fromDate, toDate); err != nil {
			switch {
			case IsPolicy(err, PolicyCapacityExhausted):
				// A direct booking raced past the capacity check above; halt
				// the same way, leaving this entry untouched.
				res.Processed--
				break batch
			case errors.Is(err, ErrNoSlot), errors.Is(err, ErrConflict):
				res.Failed++
				entry.ContactAttempts++
				entry.LastContactAt = e.now()
				if uerr := e.store.UpdateQueueEntry(ctx, entry); uerr != nil {
					return res, uerr
				}
			case IsIntegrity(err):
				// One candidate's bad data must not block the rest.
				res.Failed++
				log.Printf("queue entry %s: %v", entry.ID, err)
			default:
				return res, err
			}
			continue
		}
		res.Scheduled++
	}
	return res, nil
}

func (e *Engine) scheduleEntry(ctx context.Context, entry store.QueueEntryRecord, fromDate, toDate string) error {
	booking, err := e.AllocateBooking(ctx, FindSlotRequest{
		CandidateID: entry.CandidateID,
		ResourceID:  e.cfg.DefaultResource,
		FromDate:    fromDate,
		ToDate:      toDate,
	})
	if err != nil {
		return err
	}

	entry.Status = store.QueueScheduled
	entry.LastContactAt = e.now()
	if err := e.store.UpdateQueueEntry(ctx, entry); err != nil {
		return err
	}

	fromStage := StagePending
	if entry.ContactAttempts > 0 {
		fromStage = StageContacted
	}
	e.tracker.track(ctx, entry.CandidateID, fromStage, StageScheduled, "queue_cycle",
		"booking "+booking.ID)
	return nil
}
