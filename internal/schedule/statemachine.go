package schedule

import (
	"context"
	"time"

	"interview-scheduler/internal/notify"
	"interview-scheduler/internal/store"
)

// rescheduleLock is how close to the interview start a reschedule is still
// allowed. Inside this window the request is a policy violation.
const rescheduleLock = 24 * time.Hour

// legalTransitions is the booking lifecycle. scheduled may skip confirmed and
// go straight to a terminal status.
var legalTransitions = map[string][]string{
	store.BookingScheduled: {store.BookingConfirmed, store.BookingCancelled, store.BookingNoShow},
	store.BookingConfirmed: {store.BookingCompleted, store.BookingCancelled, store.BookingNoShow},
	store.BookingCompleted: {},
	store.BookingCancelled: {},
	store.BookingNoShow:    {},
}

func transitionAllowed(from, to string) bool {
	for _, t := range legalTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

var eventForStatus = map[string]string{
	store.BookingConfirmed: notify.TypeBookingConfirmed,
	store.BookingCompleted: notify.TypeBookingCompleted,
	store.BookingCancelled: notify.TypeBookingCancelled,
	store.BookingNoShow:    notify.TypeBookingNoShow,
}

// Transition moves a booking to a new status. Re-applying the current status
// is a no-op, so duplicate external triggers are harmless. Only the completed
// transition stamps CompletedAt.
func (e *Engine) Transition(ctx context.Context, bookingID, target string) (store.BookingRecord, error) {
	b, ok, err := e.store.GetBooking(ctx, bookingID)
	if err != nil {
		return store.BookingRecord{}, err
	}
	if !ok {
		return store.BookingRecord{}, &IntegrityError{Entity: "booking", Ref: bookingID, Reason: "does not exist"}
	}

	unlock := e.locks.lock(b.ResourceID, b.Date)
	defer unlock()

	// Re-read under the lock: a concurrent transition may have moved the
	// booking between the first read and the lock acquisition.
	b, ok, err = e.store.GetBooking(ctx, bookingID)
	if err != nil {
		return store.BookingRecord{}, err
	}
	if !ok {
		return store.BookingRecord{}, &IntegrityError{Entity: "booking", Ref: bookingID, Reason: "does not exist"}
	}
	if b.Status == target {
		return b, nil
	}
	if !transitionAllowed(b.Status, target) {
		return b, policyf(PolicyInvalidTransition, "cannot move booking from %s to %s", b.Status, target)
	}

	b.Status = target
	if target == store.BookingCompleted {
		b.CompletedAt = e.now()
	}
	if target == store.BookingConfirmed {
		b.ConfirmationSent = true
	}
	if err := e.store.UpdateBooking(ctx, b); err != nil {
		return store.BookingRecord{}, err
	}

	if target == store.BookingCompleted {
		// Advisory funnel log; a tracking failure never undoes the transition.
		e.tracker.track(ctx, b.CandidateID, StageScheduled, StageInterviewed, "status_change", "")
	}
	if evType, ok := eventForStatus[target]; ok {
		e.emit(evType, b, map[string]any{"status": target})
	}
	return b, nil
}

func (e *Engine) Confirm(ctx context.Context, bookingID string) (store.BookingRecord, error) {
	return e.Transition(ctx, bookingID, store.BookingConfirmed)
}

func (e *Engine) Complete(ctx context.Context, bookingID string) (store.BookingRecord, error) {
	return e.Transition(ctx, bookingID, store.BookingCompleted)
}

func (e *Engine) Cancel(ctx context.Context, bookingID string) (store.BookingRecord, error) {
	return e.Transition(ctx, bookingID, store.BookingCancelled)
}

func (e *Engine) MarkNoShow(ctx context.Context, bookingID string) (store.BookingRecord, error) {
	return e.Transition(ctx, bookingID, store.BookingNoShow)
}

// Reschedule rewrites a live booking's date and start time. Not a state
// transition: the status stays scheduled/confirmed. Rejected once the current
// start is under 24 hours away, and the target increment must be free.
func (e *Engine) Reschedule(ctx context.Context, bookingID, newDate, newStart string) (store.BookingRecord, error) {
	b, ok, err := e.store.GetBooking(ctx, bookingID)
	if err != nil {
		return store.BookingRecord{}, err
	}
	if !ok {
		return store.BookingRecord{}, &IntegrityError{Entity: "booking", Ref: bookingID, Reason: "does not exist"}
	}
	if !b.Live() {
		return b, policyf(PolicyInvalidTransition, "cannot reschedule a %s booking", b.Status)
	}

	currentStart, err := combineUTC(b.Date, b.StartTime)
	if err != nil {
		return b, err
	}
	if !e.now().Before(currentStart.Add(-rescheduleLock)) {
		return b, policyf(PolicyRescheduleLocked,
			"booking starts at %s, rescheduling closes 24h before start", currentStart.Format(time.RFC3339))
	}
	if _, err := combineUTC(newDate, newStart); err != nil {
		return b, err
	}

	unlock := e.locks.lock(b.ResourceID, newDate)
	defer unlock()

	// The booking's own slot must not block its new one; free it in the check
	// by comparing against every other live booking.
	free, err := e.slotFreeExcluding(ctx, b.ResourceID, newDate, newStart, b.DurationMinutes, b.ID)
	if err != nil {
		return b, err
	}
	if !free {
		return b, ErrConflict
	}

	oldDate, oldStart := b.Date, b.StartTime
	b.Date = newDate
	b.StartTime = newStart
	b.ReminderSent = false
	if err := e.store.UpdateBooking(ctx, b); err != nil {
		return store.BookingRecord{}, err
	}

	e.emit(notify.TypeBookingRescheduled, b, map[string]any{
		"old_date": oldDate, "old_start": oldStart,
		"new_date": newDate, "new_start": newStart,
	})
	return b, nil
}

func (e *Engine) slotFreeExcluding(ctx context.Context, resourceID, date, startTime string, duration int, excludeID string) (bool, error) {
	start, err := minutesOfDay(startTime)
	if err != nil {
		return false, err
	}
	bookings, err := e.store.ListBookingsByDate(ctx, resourceID, date)
	if err != nil {
		return false, err
	}
	buffer := e.cfg.Capacity.BufferMinutes
	for _, other := range bookings {
		if other.ID == excludeID || !other.Live() {
			continue
		}
		oStart, err := minutesOfDay(other.StartTime)
		if err != nil {
			continue
		}
		oEnd := oStart + other.DurationMinutes + buffer
		if start < oEnd && oStart < start+duration+buffer {
			return false, nil
		}
	}
	return true, nil
}
