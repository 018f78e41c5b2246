package schedule

import (
	"context"

	"interview-scheduler/internal/notify"
)

// SweepReminders dispatches a reminder for every live booking starting within
// the next 24 hours that has not been reminded yet. Runs from the background
// job runner; safe to call repeatedly.
func (e *Engine) SweepReminders(ctx context.Context) (int, error) {
	now := e.now()
	bookings, err := e.store.ListLiveBookingsStartingBetween(ctx, now, now.Add(rescheduleLock))
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, b := range bookings {
		if b.ReminderSent {
			continue
		}
		b.ReminderSent = true
		if err := e.store.UpdateBooking(ctx, b); err != nil {
			return sent, err
		}
		e.emit(notify.TypeBookingReminder, b, map[string]any{
			"date":       b.Date,
			"start_time": b.StartTime,
		})
		sent++
	}
	return sent, nil
}
