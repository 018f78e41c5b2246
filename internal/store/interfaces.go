package store

import (
	"context"
	"errors"
	"time"
)

// ErrSlotTaken is returned by InsertBooking when a live booking already
// occupies the (resource_id, date, start_time) key.
var ErrSlotTaken = errors.New("slot already taken by a live booking")

// Store is the persistence boundary for the scheduling engine. Implementations
// must provide atomic read-then-write on the booking slot key, range queries by
// date, and an append-only conversion log.
type Store interface {
	// Availability windows.
	InsertWindow(ctx context.Context, w *AvailabilityWindow) error
	UpdateWindow(ctx context.Context, w AvailabilityWindow) (bool, error)
	ListWindows(ctx context.Context, resourceID, fromDate, toDate string) ([]AvailabilityWindow, error)
	// SetDateAvailability flips every window on the given date across all
	// resources and returns the IDs it actually changed.
	SetDateAvailability(ctx context.Context, date string, available bool) ([]int64, error)
	SetWindowsAvailability(ctx context.Context, ids []int64, available bool) error

	// Bookings. InsertBooking must check-and-insert atomically against live
	// bookings on the same slot key and return ErrSlotTaken on collision.
	InsertBooking(ctx context.Context, b BookingRecord) error
	GetBooking(ctx context.Context, id string) (BookingRecord, bool, error)
	UpdateBooking(ctx context.Context, b BookingRecord) error
	ListBookingsByDate(ctx context.Context, resourceID, date string) ([]BookingRecord, error)
	ListBookingsInRange(ctx context.Context, resourceID, fromDate, toDate string) ([]BookingRecord, error)
	CountLiveBookings(ctx context.Context, resourceID, fromDate, toDate string) (int, error)
	// ListLiveBookingsStartingBetween returns live bookings whose start instant
	// falls in [from, to); used by the reminder sweep.
	ListLiveBookingsStartingBetween(ctx context.Context, from, to time.Time) ([]BookingRecord, error)

	// Queue.
	InsertQueueEntry(ctx context.Context, e *QueueEntryRecord) error
	UpdateQueueEntry(ctx context.Context, e QueueEntryRecord) error
	GetQueueEntry(ctx context.Context, id string) (QueueEntryRecord, bool, error)
	// ActiveQueueEntryByCandidate returns the candidate's entry in a
	// non-terminal status (waiting/contacted/scheduled/paused), if any.
	ActiveQueueEntryByCandidate(ctx context.Context, candidateID string) (QueueEntryRecord, bool, error)
	// ListQueueEntries returns entries with the given status ordered by
	// priority_score descending, added_at ascending, capped at limit.
	ListQueueEntries(ctx context.Context, status string, limit int) ([]QueueEntryRecord, error)

	// Conversion funnel (append-only).
	AppendConversionEvent(ctx context.Context, ev *ConversionEventRecord) error
	ListConversionEvents(ctx context.Context, candidateID string) ([]ConversionEventRecord, error)
	CountConversionsByStage(ctx context.Context) (map[string]int, error)
}
