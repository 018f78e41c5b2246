package schedule

import (
	"context"
	"testing"
	"time"

	"interview-scheduler/internal/store"
)

func TestEmergencyStopPausesWaitingAndDisablesToday(t *testing.T) {
	e, st := testEngine(t, Options{DefaultResource: "consultant-a"})
	fixClock(e, time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC))
	mustWindow(t, st, "consultant-a", "2024-06-03", "09:00", "13:00")
	mustWindow(t, st, "consultant-a", "2024-06-04", "09:00", "13:00")
	seedEntry(t, st, "q-1", "cand-1", 0.5, store.QueueWaiting, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))

	if err := e.EmergencyStop(context.Background()); err != nil {
		t.Fatalf("emergency stop: %v", err)
	}

	entry, _, err := st.GetQueueEntry(context.Background(), "q-1")
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if entry.Status != store.QueuePaused {
		t.Fatalf("waiting entry must pause, got %s", entry.Status)
	}

	windows, err := st.ListWindows(context.Background(), "consultant-a", "2024-06-03", "2024-06-04")
	if err != nil {
		t.Fatalf("list windows: %v", err)
	}
	for _, w := range windows {
		switch w.Date {
		case "2024-06-03":
			if w.Available {
				t.Fatal("today's window must be disabled")
			}
		case "2024-06-04":
			if !w.Available {
				t.Fatal("future windows must be untouched")
			}
		}
	}

	status := e.ControlStatus()
	if !status.Stopped || status.PausedEntries != 1 || status.DisabledWindows != 1 {
		t.Fatalf("unexpected control status %+v", status)
	}
	if status.StoppedDate != "2024-06-03" {
		t.Fatalf("unexpected stopped date %s", status.StoppedDate)
	}
}

func TestEmergencyStopCoversEveryResource(t *testing.T) {
	e, st := testEngine(t, Options{DefaultResource: "consultant-a"})
	fixClock(e, time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC))
	mustWindow(t, st, "consultant-a", "2024-06-03", "09:00", "13:00")
	mustWindow(t, st, "consultant-b", "2024-06-03", "09:00", "13:00")

	if err := e.EmergencyStop(context.Background()); err != nil {
		t.Fatalf("emergency stop: %v", err)
	}
	for _, resource := range []string{"consultant-a", "consultant-b"} {
		windows, err := st.ListWindows(context.Background(), resource, "2024-06-03", "2024-06-03")
		if err != nil {
			t.Fatalf("list windows: %v", err)
		}
		for _, w := range windows {
			if w.Available {
				t.Fatalf("today's window on %s must be disabled", resource)
			}
		}
	}

	if err := e.Resume(context.Background()); err != nil {
		t.Fatalf("resume: %v", err)
	}
	for _, resource := range []string{"consultant-a", "consultant-b"} {
		windows, err := st.ListWindows(context.Background(), resource, "2024-06-03", "2024-06-03")
		if err != nil {
			t.Fatalf("list windows: %v", err)
		}
		for _, w := range windows {
			if !w.Available {
				t.Fatalf("window on %s must be restored", resource)
			}
		}
	}
}

func TestEmergencyStopBlocksAllocation(t *testing.T) {
	e, st := testEngine(t, Options{DefaultResource: "consultant-a"})
	fixClock(e, time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC))
	mustWindow(t, st, "consultant-a", "2024-06-04", "09:00", "13:00")

	if err := e.EmergencyStop(context.Background()); err != nil {
		t.Fatalf("emergency stop: %v", err)
	}
	_, err := e.AllocateBooking(context.Background(), FindSlotRequest{
		CandidateID: "cand-1", FromDate: "2024-06-04", ToDate: "2024-06-04",
	})
	if !IsPolicy(err, PolicySystemPaused) {
		t.Fatalf("expected system_paused, got %v", err)
	}
}

func TestEmergencyStopIdempotent(t *testing.T) {
	e, st := testEngine(t, Options{DefaultResource: "consultant-a"})
	fixClock(e, time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC))
	seedEntry(t, st, "q-1", "cand-1", 0.5, store.QueueWaiting, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))

	if err := e.EmergencyStop(context.Background()); err != nil {
		t.Fatalf("first stop: %v", err)
	}
	first := e.ControlStatus()

	// A second stop must not re-scan and must keep the original record of what
	// it mutated.
	seedEntry(t, st, "q-2", "cand-2", 0.5, store.QueueWaiting, time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC))
	if err := e.EmergencyStop(context.Background()); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if got := e.ControlStatus(); got != first {
		t.Fatalf("second stop changed state: %+v vs %+v", got, first)
	}

	entry, _, err := st.GetQueueEntry(context.Background(), "q-2")
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if entry.Status != store.QueueWaiting {
		t.Fatalf("entry added after the stop must stay waiting, got %s", entry.Status)
	}
}

func TestResumeRestoresExactlyWhatStopChanged(t *testing.T) {
	e, st := testEngine(t, Options{DefaultResource: "consultant-a"})
	fixClock(e, time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC))

	// One pre-disabled window and one pre-paused entry exist before the stop;
	// resume must leave both alone.
	preDisabled := store.AvailabilityWindow{
		ResourceID: "consultant-a", Date: "2024-06-03",
		StartTime: "14:00", EndTime: "16:00", Available: false, Kind: store.WindowInterview,
	}
	if err := st.InsertWindow(context.Background(), &preDisabled); err != nil {
		t.Fatalf("insert window: %v", err)
	}
	mustWindow(t, st, "consultant-a", "2024-06-03", "09:00", "13:00")
	seedEntry(t, st, "q-pre", "cand-pre", 0.5, store.QueuePaused, time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	seedEntry(t, st, "q-1", "cand-1", 0.5, store.QueueWaiting, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))

	if err := e.EmergencyStop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := e.Resume(context.Background()); err != nil {
		t.Fatalf("resume: %v", err)
	}

	entry, _, err := st.GetQueueEntry(context.Background(), "q-1")
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if entry.Status != store.QueueWaiting {
		t.Fatalf("stopped entry must return to waiting, got %s", entry.Status)
	}
	pre, _, err := st.GetQueueEntry(context.Background(), "q-pre")
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if pre.Status != store.QueuePaused {
		t.Fatalf("pre-paused entry must stay paused, got %s", pre.Status)
	}

	windows, err := st.ListWindows(context.Background(), "consultant-a", "2024-06-03", "2024-06-03")
	if err != nil {
		t.Fatalf("list windows: %v", err)
	}
	for _, w := range windows {
		if w.StartTime == "09:00" && !w.Available {
			t.Fatal("window disabled by the stop must be re-enabled")
		}
		if w.StartTime == "14:00" && w.Available {
			t.Fatal("pre-disabled window must stay unavailable")
		}
	}

	status := e.ControlStatus()
	if status.Stopped || status.PausedEntries != 0 || status.DisabledWindows != 0 {
		t.Fatalf("control state not cleared: %+v", status)
	}
}

func TestResumeSkipsEntriesThatMovedOn(t *testing.T) {
	e, st := testEngine(t, Options{DefaultResource: "consultant-a"})
	fixClock(e, time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC))
	seedEntry(t, st, "q-1", "cand-1", 0.5, store.QueueWaiting, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))

	if err := e.EmergencyStop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}

	// An operator resolves the entry manually while the system is stopped.
	entry, _, err := st.GetQueueEntry(context.Background(), "q-1")
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	entry.Status = store.QueueProcessed
	if err := st.UpdateQueueEntry(context.Background(), entry); err != nil {
		t.Fatalf("update entry: %v", err)
	}

	if err := e.Resume(context.Background()); err != nil {
		t.Fatalf("resume: %v", err)
	}
	entry, _, err = st.GetQueueEntry(context.Background(), "q-1")
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if entry.Status != store.QueueProcessed {
		t.Fatalf("resume must not revive a processed entry, got %s", entry.Status)
	}
}

func TestResumeWithoutStopIsNoOp(t *testing.T) {
	e, _ := testEngine(t, Options{})
	if err := e.Resume(context.Background()); err != nil {
		t.Fatalf("resume on a running system must be a no-op: %v", err)
	}
	if e.ControlStatus().Stopped {
		t.Fatal("system must stay running")
	}
}
