package schedule

import (
	"context"
	"sync"
	"testing"
	"time"

	"interview-scheduler/internal/store"
)

func seedEntry(t *testing.T, st *store.MemoryStore, id, candidateID string, priority float64, status string, addedAt time.Time) {
	t.Helper()
	entry := store.QueueEntryRecord{
		ID: id, CandidateID: candidateID, PriorityScore: priority,
		Status: status, AddedAt: addedAt,
	}
	if err := st.InsertQueueEntry(context.Background(), &entry); err != nil {
		t.Fatalf("insert queue entry: %v", err)
	}
}

func TestEnqueueValidation(t *testing.T) {
	e, _ := testEngine(t, Options{})

	if _, _, err := e.Enqueue(context.Background(), EnqueueRequest{CandidateID: ""}); !IsIntegrity(err) {
		t.Fatalf("expected integrity error for empty candidate, got %v", err)
	}
	if _, _, err := e.Enqueue(context.Background(), EnqueueRequest{CandidateID: "c", PriorityScore: 1.5}); !IsIntegrity(err) {
		t.Fatalf("expected integrity error for priority > 1, got %v", err)
	}
	if _, _, err := e.Enqueue(context.Background(), EnqueueRequest{CandidateID: "c", PriorityScore: -0.1}); !IsIntegrity(err) {
		t.Fatalf("expected integrity error for negative priority, got %v", err)
	}
}

func TestEnqueueIdempotent(t *testing.T) {
	e, _ := testEngine(t, Options{})

	first, created, err := e.Enqueue(context.Background(), EnqueueRequest{CandidateID: "cand-1", PriorityScore: 0.4})
	if err != nil || !created {
		t.Fatalf("first enqueue: created=%v err=%v", created, err)
	}
	second, created, err := e.Enqueue(context.Background(), EnqueueRequest{CandidateID: "cand-1", PriorityScore: 0.9})
	if err != nil {
		t.Fatalf("second enqueue: %v", err)
	}
	if created {
		t.Fatal("duplicate enqueue must not create a new entry")
	}
	if second.ID != first.ID || second.PriorityScore != 0.4 {
		t.Fatalf("expected the original entry back unchanged, got %+v", second)
	}
}

func TestEnqueueRecordsPendingStage(t *testing.T) {
	e, st := testEngine(t, Options{})
	if _, _, err := e.Enqueue(context.Background(), EnqueueRequest{CandidateID: "cand-1", PriorityScore: 0.4}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	events, err := st.ListConversionEvents(context.Background(), "cand-1")
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 || events[0].ToStage != StagePending {
		t.Fatalf("expected a pending funnel event, got %+v", events)
	}
}

func TestRunCycleSchedulesByPriorityThenAge(t *testing.T) {
	e, st := testEngine(t, Options{DefaultResource: "consultant-a"})
	fixClock(e, time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC))
	mustWindow(t, st, "consultant-a", "2024-06-03", "09:00", "13:00")

	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	seedEntry(t, st, "q-low", "cand-low", 0.3, store.QueueWaiting, base)
	seedEntry(t, st, "q-high", "cand-high", 0.9, store.QueueWaiting, base.Add(time.Hour))
	seedEntry(t, st, "q-mid-old", "cand-mid-old", 0.5, store.QueueWaiting, base)
	seedEntry(t, st, "q-mid-new", "cand-mid-new", 0.5, store.QueueWaiting, base.Add(2*time.Hour))

	res, err := e.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if res.Scheduled != 4 || res.Failed != 0 {
		t.Fatalf("expected 4 scheduled, got %+v", res)
	}

	// The 30m+15m footprint lands candidates on the hour; order of the start
	// times is the processing order.
	bookings, err := st.ListBookingsByDate(context.Background(), "consultant-a", "2024-06-03")
	if err != nil {
		t.Fatalf("list bookings: %v", err)
	}
	want := []string{"cand-high", "cand-mid-old", "cand-mid-new", "cand-low"}
	if len(bookings) != len(want) {
		t.Fatalf("expected %d bookings, got %d", len(want), len(bookings))
	}
	for i, b := range bookings {
		if b.CandidateID != want[i] {
			t.Fatalf("slot %d: expected %s, got %s", i, want[i], b.CandidateID)
		}
	}
}

func TestRunCycleMarksEntriesScheduled(t *testing.T) {
	e, st := testEngine(t, Options{DefaultResource: "consultant-a"})
	fixClock(e, time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC))
	mustWindow(t, st, "consultant-a", "2024-06-03", "09:00", "13:00")
	seedEntry(t, st, "q-1", "cand-1", 0.5, store.QueueWaiting, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))

	if _, err := e.RunCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}

	entry, ok, err := st.GetQueueEntry(context.Background(), "q-1")
	if err != nil || !ok {
		t.Fatalf("get entry: ok=%v err=%v", ok, err)
	}
	if entry.Status != store.QueueScheduled {
		t.Fatalf("expected scheduled entry, got %s", entry.Status)
	}
	if entry.LastContactAt.IsZero() {
		t.Fatal("expected LastContactAt to be stamped")
	}
}

func TestRunCycleNoSlotIncrementsContactAttempts(t *testing.T) {
	e, st := testEngine(t, Options{DefaultResource: "consultant-a"})
	fixClock(e, time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC))
	// No availability windows at all: every entry fails with no slot.
	seedEntry(t, st, "q-1", "cand-1", 0.5, store.QueueWaiting, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))

	res, err := e.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if res.Processed != 1 || res.Failed != 1 || res.Scheduled != 0 {
		t.Fatalf("unexpected result %+v", res)
	}

	entry, _, err := st.GetQueueEntry(context.Background(), "q-1")
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if entry.Status != store.QueueWaiting {
		t.Fatalf("failed entry must stay waiting, got %s", entry.Status)
	}
	if entry.ContactAttempts != 1 {
		t.Fatalf("expected one contact attempt, got %d", entry.ContactAttempts)
	}
	if entry.LastContactAt.IsZero() {
		t.Fatal("expected LastContactAt to be stamped on failure")
	}
}

func TestRunCycleHaltsWhenCapacityExhausted(t *testing.T) {
	capacity := DefaultCapacity()
	capacity.MaxWeeklyBookings = 1
	e, st := testEngine(t, Options{
		Capacity: capacity, DefaultResource: "consultant-a", SearchHorizonDays: 2,
	})
	fixClock(e, time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC))
	mustWindow(t, st, "consultant-a", "2024-06-03", "09:00", "13:00")

	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	seedEntry(t, st, "q-1", "cand-1", 0.9, store.QueueWaiting, base)
	seedEntry(t, st, "q-2", "cand-2", 0.5, store.QueueWaiting, base)
	seedEntry(t, st, "q-3", "cand-3", 0.1, store.QueueWaiting, base)

	res, err := e.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	// The first booking consumes the week; the rest of the batch is untouched,
	// not marked failed.
	if res.Processed != 1 || res.Scheduled != 1 || res.Failed != 0 {
		t.Fatalf("expected halt after one booking, got %+v", res)
	}
	for _, id := range []string{"q-2", "q-3"} {
		entry, _, err := st.GetQueueEntry(context.Background(), id)
		if err != nil {
			t.Fatalf("get entry: %v", err)
		}
		if entry.Status != store.QueueWaiting || entry.ContactAttempts != 0 {
			t.Fatalf("halted entry %s must be untouched, got %+v", id, entry)
		}
	}
}

func TestRunCycleDoesNotBookElapsedMorning(t *testing.T) {
	e, st := testEngine(t, Options{DefaultResource: "consultant-a"})
	// Afternoon run: the day's only window has fully passed.
	fixClock(e, time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC))
	mustWindow(t, st, "consultant-a", "2024-06-03", "09:00", "13:00")
	seedEntry(t, st, "q-1", "cand-1", 0.5, store.QueueWaiting, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))

	res, err := e.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if res.Scheduled != 0 || res.Failed != 1 {
		t.Fatalf("an elapsed window must not schedule, got %+v", res)
	}

	bookings, err := st.ListBookingsByDate(context.Background(), "consultant-a", "2024-06-03")
	if err != nil {
		t.Fatalf("list bookings: %v", err)
	}
	if len(bookings) != 0 {
		t.Fatalf("booked into the past: %+v", bookings)
	}
	entry, _, err := st.GetQueueEntry(context.Background(), "q-1")
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if entry.Status != store.QueueWaiting || entry.ContactAttempts != 1 {
		t.Fatalf("expected a failed contact attempt, got %+v", entry)
	}
}

func TestRunCycleHaltsWhenDirectBookingRacesCapacity(t *testing.T) {
	capacity := DefaultCapacity()
	capacity.MaxWeeklyBookings = 1

	// The scorer fires mid-search; the first call stands in for a direct
	// booking that lands between the cycle's capacity check and its commit.
	var e *Engine
	var st *store.MemoryStore
	var raced sync.Once
	racer := ScorerFunc(func(SlotContext) float64 {
		raced.Do(func() {
			mustBookingErr := st.InsertBooking(context.Background(), store.BookingRecord{
				ID: "b-race", CandidateID: "cand-direct", ResourceID: "consultant-a",
				Date: "2024-06-03", StartTime: "09:00", DurationMinutes: 30,
				Status: store.BookingScheduled,
			})
			if mustBookingErr != nil {
				t.Errorf("race insert: %v", mustBookingErr)
			}
		})
		return 0
	})
	e, st = testEngine(t, Options{
		Capacity: capacity, DefaultResource: "consultant-a",
		SearchHorizonDays: 2, Scorer: racer,
	})
	fixClock(e, time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC))
	mustWindow(t, st, "consultant-a", "2024-06-03", "09:00", "13:00")
	seedEntry(t, st, "q-1", "cand-1", 0.5, store.QueueWaiting, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))

	res, err := e.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("the raced cycle must halt, not fail: %v", err)
	}
	if res.Processed != 0 || res.Scheduled != 0 || res.Failed != 0 {
		t.Fatalf("expected a clean halt, got %+v", res)
	}

	entry, _, err := st.GetQueueEntry(context.Background(), "q-1")
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if entry.Status != store.QueueWaiting || entry.ContactAttempts != 0 {
		t.Fatalf("halted entry must be untouched, got %+v", entry)
	}
}

func TestRunCycleSingleFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	blocking := ScorerFunc(func(SlotContext) float64 {
		once.Do(func() { close(entered) })
		<-release
		return 0
	})
	e, st := testEngine(t, Options{DefaultResource: "consultant-a", Scorer: blocking})
	fixClock(e, time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC))
	mustWindow(t, st, "consultant-a", "2024-06-03", "09:00", "13:00")
	seedEntry(t, st, "q-1", "cand-1", 0.5, store.QueueWaiting, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))

	done := make(chan error, 1)
	go func() {
		_, err := e.RunCycle(context.Background())
		done <- err
	}()

	<-entered
	_, err := e.RunCycle(context.Background())
	if !IsPolicy(err, PolicyCycleInFlight) {
		t.Fatalf("expected cycle_in_flight while another cycle runs, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first cycle: %v", err)
	}
}

func TestRunCycleRejectedWhileStopped(t *testing.T) {
	e, _ := testEngine(t, Options{})
	fixClock(e, time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC))
	if err := e.EmergencyStop(context.Background()); err != nil {
		t.Fatalf("emergency stop: %v", err)
	}

	_, err := e.RunCycle(context.Background())
	if !IsPolicy(err, PolicySystemPaused) {
		t.Fatalf("expected system_paused, got %v", err)
	}
}

func TestRunCycleRecordsScheduledStage(t *testing.T) {
	e, st := testEngine(t, Options{DefaultResource: "consultant-a"})
	fixClock(e, time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC))
	mustWindow(t, st, "consultant-a", "2024-06-03", "09:00", "13:00")
	seedEntry(t, st, "q-1", "cand-1", 0.5, store.QueueWaiting, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))

	if _, err := e.RunCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}

	events, err := st.ListConversionEvents(context.Background(), "cand-1")
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	last := events[len(events)-1]
	if last.ToStage != StageScheduled || last.FromStage != StagePending {
		t.Fatalf("expected pending->scheduled, got %+v", last)
	}
}
