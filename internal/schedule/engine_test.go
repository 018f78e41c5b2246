package schedule

import (
	"context"
	"testing"
	"time"

	"interview-scheduler/internal/store"
)

func testEngine(t *testing.T, opts Options) (*Engine, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	e := NewEngine(st, opts)
	return e, st
}

func fixClock(e *Engine, at time.Time) {
	e.SetClock(func() time.Time { return at.UTC() })
}

func mustWindow(t *testing.T, st *store.MemoryStore, resourceID, date, start, end string) {
	t.Helper()
	w := store.AvailabilityWindow{
		ResourceID: resourceID,
		Date:       date,
		StartTime:  start,
		EndTime:    end,
		Available:  true,
		Kind:       store.WindowInterview,
	}
	if err := st.InsertWindow(context.Background(), &w); err != nil {
		t.Fatalf("insert window: %v", err)
	}
}

func mustBooking(t *testing.T, st *store.MemoryStore, b store.BookingRecord) {
	t.Helper()
	if err := st.InsertBooking(context.Background(), b); err != nil {
		t.Fatalf("insert booking: %v", err)
	}
}
