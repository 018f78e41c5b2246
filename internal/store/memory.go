package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and single-node deployments
// without Postgres. All methods serialize on one mutex, which also gives the
// engine the atomic check-then-insert it needs on the slot key.
type MemoryStore struct {
	mu       sync.Mutex
	windows  map[int64]AvailabilityWindow
	bookings map[string]BookingRecord
	entries  map[string]QueueEntryRecord
	events   []ConversionEventRecord
	nextWin  int64
	nextEv   int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows:  make(map[int64]AvailabilityWindow),
		bookings: make(map[string]BookingRecord),
		entries:  make(map[string]QueueEntryRecord),
		events:   make([]ConversionEventRecord, 0, 128),
		nextWin:  1,
		nextEv:   1,
	}
}

func (m *MemoryStore) InsertWindow(_ context.Context, w *AvailabilityWindow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	w.ID = m.nextWin
	m.nextWin++
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	w.UpdatedAt = now
	m.windows[w.ID] = *w
	return nil
}

func (m *MemoryStore) UpdateWindow(_ context.Context, w AvailabilityWindow) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.windows[w.ID]; !ok {
		return false, nil
	}
	w.UpdatedAt = time.Now().UTC()
	m.windows[w.ID] = w
	return true, nil
}

func (m *MemoryStore) ListWindows(_ context.Context, resourceID, fromDate, toDate string) ([]AvailabilityWindow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AvailabilityWindow, 0, 16)
	for _, w := range m.windows {
		if resourceID != "" && w.ResourceID != resourceID {
			continue
		}
		if fromDate != "" && w.Date < fromDate {
			continue
		}
		if toDate != "" && w.Date > toDate {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) SetDateAvailability(_ context.Context, date string, available bool) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	changed := make([]int64, 0, 8)
	now := time.Now().UTC()
	for id, w := range m.windows {
		if w.Date != date || w.Available == available {
			continue
		}
		w.Available = available
		w.UpdatedAt = now
		m.windows[id] = w
		changed = append(changed, id)
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i] < changed[j] })
	return changed, nil
}

func (m *MemoryStore) SetWindowsAvailability(_ context.Context, ids []int64, available bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	for _, id := range ids {
		w, ok := m.windows[id]
		if !ok {
			continue
		}
		w.Available = available
		w.UpdatedAt = now
		m.windows[id] = w
	}
	return nil
}

func (m *MemoryStore) InsertBooking(_ context.Context, b BookingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.bookings {
		if existing.Live() &&
			existing.ResourceID == b.ResourceID &&
			existing.Date == b.Date &&
			existing.StartTime == b.StartTime {
			return ErrSlotTaken
		}
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	m.bookings[b.ID] = b
	return nil
}

func (m *MemoryStore) GetBooking(_ context.Context, id string) (BookingRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	return b, ok, nil
}

func (m *MemoryStore) UpdateBooking(_ context.Context, b BookingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.ID] = b
	return nil
}

func (m *MemoryStore) ListBookingsByDate(_ context.Context, resourceID, date string) ([]BookingRecord, error) {
	return m.listBookings(resourceID, date, date)
}

func (m *MemoryStore) ListBookingsInRange(_ context.Context, resourceID, fromDate, toDate string) ([]BookingRecord, error) {
	return m.listBookings(resourceID, fromDate, toDate)
}

func (m *MemoryStore) listBookings(resourceID, fromDate, toDate string) ([]BookingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]BookingRecord, 0, 16)
	for _, b := range m.bookings {
		if resourceID != "" && b.ResourceID != resourceID {
			continue
		}
		if fromDate != "" && b.Date < fromDate {
			continue
		}
		if toDate != "" && b.Date > toDate {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) CountLiveBookings(_ context.Context, resourceID, fromDate, toDate string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, b := range m.bookings {
		if !b.Live() {
			continue
		}
		if resourceID != "" && b.ResourceID != resourceID {
			continue
		}
		if fromDate != "" && b.Date < fromDate {
			continue
		}
		if toDate != "" && b.Date > toDate {
			continue
		}
		count++
	}
	return count, nil
}

func (m *MemoryStore) ListLiveBookingsStartingBetween(_ context.Context, from, to time.Time) ([]BookingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]BookingRecord, 0, 16)
	for _, b := range m.bookings {
		if !b.Live() {
			continue
		}
		start, err := time.Parse("2006-01-02 15:04", b.Date+" "+b.StartTime)
		if err != nil {
			continue
		}
		start = start.UTC()
		if start.Before(from) || !start.Before(to) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) InsertQueueEntry(_ context.Context, e *QueueEntryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if e.AddedAt.IsZero() {
		e.AddedAt = now
	}
	e.UpdatedAt = now
	m.entries[e.ID] = *e
	return nil
}

func (m *MemoryStore) UpdateQueueEntry(_ context.Context, e QueueEntryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.UpdatedAt = time.Now().UTC()
	m.entries[e.ID] = e
	return nil
}

func (m *MemoryStore) GetQueueEntry(_ context.Context, id string) (QueueEntryRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	return e, ok, nil
}

func (m *MemoryStore) ActiveQueueEntryByCandidate(_ context.Context, candidateID string) (QueueEntryRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.CandidateID != candidateID {
			continue
		}
		if e.Status == QueueProcessed {
			continue
		}
		return e, true, nil
	}
	return QueueEntryRecord{}, false, nil
}

func (m *MemoryStore) ListQueueEntries(_ context.Context, status string, limit int) ([]QueueEntryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]QueueEntryRecord, 0, 32)
	for _, e := range m.entries {
		if status != "" && e.Status != status {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PriorityScore != out[j].PriorityScore {
			return out[i].PriorityScore > out[j].PriorityScore
		}
		if !out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].AddedAt.Before(out[j].AddedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) AppendConversionEvent(_ context.Context, ev *ConversionEventRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	ev.ID = m.nextEv
	m.nextEv++
	m.events = append(m.events, *ev)
	return nil
}

func (m *MemoryStore) ListConversionEvents(_ context.Context, candidateID string) ([]ConversionEventRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ConversionEventRecord, 0, 8)
	for _, ev := range m.events {
		if candidateID != "" && ev.CandidateID != candidateID {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (m *MemoryStore) CountConversionsByStage(_ context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Latest stage per candidate wins; events are appended in order.
	latest := make(map[string]string)
	for _, ev := range m.events {
		latest[ev.CandidateID] = ev.ToStage
	}
	counts := make(map[string]int)
	for _, stage := range latest {
		counts[stage]++
	}
	return counts, nil
}
