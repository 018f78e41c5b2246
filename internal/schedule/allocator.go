package schedule

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"interview-scheduler/internal/notify"
	"interview-scheduler/internal/store"
)

// occupied is a booked range on a date, in minutes since midnight. The end
// includes the configured buffer so back-to-back interviews keep a gap.
type occupied struct {
	start, end int
}

// FindSlot walks availability windows earliest-first and returns the first
// increment that survives the overlap, capacity and risk checks. First fit by
// design: the production behavior is "earliest available slot wins", not a
// global optimum. The search itself has no side effects; pair it with
// AllocateBooking to commit.
func (e *Engine) FindSlot(ctx context.Context, req FindSlotRequest) (Slot, error) {
	req = e.normalizeFind(req)
	if req.CandidateID == "" {
		return Slot{}, &IntegrityError{Entity: "candidate", Ref: "", Reason: "is required"}
	}

	windows, err := e.store.ListWindows(ctx, req.ResourceID, req.FromDate, req.ToDate)
	if err != nil {
		return Slot{}, err
	}
	bookings, err := e.store.ListBookingsInRange(ctx, req.ResourceID, req.FromDate, req.ToDate)
	if err != nil {
		return Slot{}, err
	}

	occupancy := make(map[string][]occupied)
	dailyLive := make(map[string]int)
	for _, b := range bookings {
		if !b.Live() {
			continue
		}
		start, err := minutesOfDay(b.StartTime)
		if err != nil {
			continue
		}
		occupancy[b.Date] = append(occupancy[b.Date], occupied{
			start: start,
			end:   start + b.DurationMinutes + e.cfg.Capacity.BufferMinutes,
		})
		dailyLive[b.Date]++
	}

	weeklyLive := make(map[string]int)
	weekOf := func(date string) (int, error) {
		monday, sunday, err := isoWeekBounds(date)
		if err != nil {
			return 0, err
		}
		if n, ok := weeklyLive[monday]; ok {
			return n, nil
		}
		n, err := e.store.CountLiveBookings(ctx, req.ResourceID, monday, sunday)
		if err != nil {
			return 0, err
		}
		weeklyLive[monday] = n
		return n, nil
	}

	workDays := e.cfg.Capacity.workingDaySet()
	workStart, _ := minutesOfDay(e.cfg.Capacity.WorkingHours.Start)
	workEnd, _ := minutesOfDay(e.cfg.Capacity.WorkingHours.End)
	step := e.cfg.Capacity.SlotDurationMinutes
	duration := req.DurationMinutes

	// Lowest-risk increment that was only excluded by a soft deny. Returned as
	// a last resort so risk signals never starve the search entirely.
	var fallback *Slot
	fallbackScore := 0.0

	for _, w := range windows {
		if !w.Available || w.Kind != store.WindowInterview {
			continue
		}
		day, err := time.Parse(dateLayout, w.Date)
		if err != nil {
			continue
		}
		if len(workDays) > 0 && !workDays[day.Weekday()] {
			continue
		}
		winStart, err := minutesOfDay(w.StartTime)
		if err != nil {
			return Slot{}, err
		}
		winEnd, err := minutesOfDay(w.EndTime)
		if err != nil {
			return Slot{}, err
		}
		if winEnd <= winStart {
			continue
		}
		if winStart < workStart {
			winStart = workStart
		}
		if winEnd > workEnd {
			winEnd = workEnd
		}

		if dailyLive[w.Date] >= e.cfg.Capacity.MaxDailyBookings {
			continue
		}
		weekCount, err := weekOf(w.Date)
		if err != nil {
			return Slot{}, err
		}
		if weekCount >= e.cfg.Capacity.MaxWeeklyBookings {
			continue
		}

		cut := e.firstBookableMinute(w.Date)
		for t := winStart; t+duration <= winEnd; t += step {
			if t < cut {
				continue
			}
			if overlapsAny(occupancy[w.Date], t, t+duration+e.cfg.Capacity.BufferMinutes) {
				continue
			}
			slot := Slot{
				ResourceID: req.ResourceID,
				Date:       w.Date,
				StartTime:  formatMinutes(t),
				EndTime:    formatMinutes(t + duration),
			}
			start, err := combineUTC(w.Date, slot.StartTime)
			if err != nil {
				continue
			}
			score := e.scorer.Score(SlotContext{ResourceID: req.ResourceID, Start: start})
			if score > e.cfg.RiskThreshold {
				// Soft deny: skip, but remember the least risky option.
				if fallback == nil || score < fallbackScore {
					s := slot
					fallback = &s
					fallbackScore = score
				}
				continue
			}
			return slot, nil
		}
	}

	if fallback != nil {
		return *fallback, nil
	}
	return Slot{}, ErrNoSlot
}

// ListOpenSlots enumerates every increment in the range that is free under
// the overlap and capacity rules. Risk soft-denies are a search-time
// preference only, so denied increments still appear here.
func (e *Engine) ListOpenSlots(ctx context.Context, resourceID, fromDate, toDate string) ([]Slot, error) {
	req := e.normalizeFind(FindSlotRequest{ResourceID: resourceID, FromDate: fromDate, ToDate: toDate})

	windows, err := e.store.ListWindows(ctx, req.ResourceID, req.FromDate, req.ToDate)
	if err != nil {
		return nil, err
	}
	bookings, err := e.store.ListBookingsInRange(ctx, req.ResourceID, req.FromDate, req.ToDate)
	if err != nil {
		return nil, err
	}

	occupancy := make(map[string][]occupied)
	dailyLive := make(map[string]int)
	for _, b := range bookings {
		if !b.Live() {
			continue
		}
		start, err := minutesOfDay(b.StartTime)
		if err != nil {
			continue
		}
		occupancy[b.Date] = append(occupancy[b.Date], occupied{
			start: start,
			end:   start + b.DurationMinutes + e.cfg.Capacity.BufferMinutes,
		})
		dailyLive[b.Date]++
	}

	weeklyLive := make(map[string]int)
	weekOf := func(date string) (int, error) {
		monday, sunday, err := isoWeekBounds(date)
		if err != nil {
			return 0, err
		}
		if n, ok := weeklyLive[monday]; ok {
			return n, nil
		}
		n, err := e.store.CountLiveBookings(ctx, req.ResourceID, monday, sunday)
		if err != nil {
			return 0, err
		}
		weeklyLive[monday] = n
		return n, nil
	}

	workDays := e.cfg.Capacity.workingDaySet()
	workStart, _ := minutesOfDay(e.cfg.Capacity.WorkingHours.Start)
	workEnd, _ := minutesOfDay(e.cfg.Capacity.WorkingHours.End)
	step := e.cfg.Capacity.SlotDurationMinutes
	duration := req.DurationMinutes

	var out []Slot
	for _, w := range windows {
		if !w.Available || w.Kind != store.WindowInterview {
			continue
		}
		day, err := time.Parse(dateLayout, w.Date)
		if err != nil {
			continue
		}
		if len(workDays) > 0 && !workDays[day.Weekday()] {
			continue
		}
		if dailyLive[w.Date] >= e.cfg.Capacity.MaxDailyBookings {
			continue
		}
		weekCount, err := weekOf(w.Date)
		if err != nil {
			return nil, err
		}
		if weekCount >= e.cfg.Capacity.MaxWeeklyBookings {
			continue
		}
		winStart, err := minutesOfDay(w.StartTime)
		if err != nil {
			return nil, err
		}
		winEnd, err := minutesOfDay(w.EndTime)
		if err != nil {
			return nil, err
		}
		if winStart < workStart {
			winStart = workStart
		}
		if winEnd > workEnd {
			winEnd = workEnd
		}
		cut := e.firstBookableMinute(w.Date)
		for t := winStart; t+duration <= winEnd; t += step {
			if t < cut {
				continue
			}
			if overlapsAny(occupancy[w.Date], t, t+duration+e.cfg.Capacity.BufferMinutes) {
				continue
			}
			out = append(out, Slot{
				ResourceID: req.ResourceID,
				Date:       w.Date,
				StartTime:  formatMinutes(t),
				EndTime:    formatMinutes(t + duration),
			})
		}
	}
	return out, nil
}

func overlapsAny(ranges []occupied, start, end int) bool {
	for _, r := range ranges {
		if start < r.end && r.start < end {
			return true
		}
	}
	return false
}

// firstBookableMinute returns the earliest minute of the given date that is
// not already in the past: 0 for future dates, a full day for past ones. A
// search range starting today must not surface increments behind the clock.
func (e *Engine) firstBookableMinute(date string) int {
	now := e.now()
	today := now.Format(dateLayout)
	switch {
	case date > today:
		return 0
	case date < today:
		return 24 * 60
	}
	m := now.Hour()*60 + now.Minute()
	if now.Second() > 0 || now.Nanosecond() > 0 {
		m++
	}
	return m
}

func (e *Engine) normalizeFind(req FindSlotRequest) FindSlotRequest {
	if req.ResourceID == "" {
		req.ResourceID = e.cfg.DefaultResource
	}
	if req.DurationMinutes <= 0 {
		req.DurationMinutes = e.cfg.Capacity.SlotDurationMinutes
	}
	today := e.now().Format(dateLayout)
	if req.FromDate == "" {
		req.FromDate = today
	}
	if req.ToDate == "" {
		req.ToDate = e.now().AddDate(0, 0, e.cfg.SearchHorizonDays).Format(dateLayout)
	}
	return req
}

// IsSlotFree checks a specific increment against live bookings and the
// capacity ceilings. durationSlots is a count of base increments.
func (e *Engine) IsSlotFree(ctx context.Context, resourceID, date, startTime string, durationSlots int) (bool, error) {
	if resourceID == "" {
		resourceID = e.cfg.DefaultResource
	}
	if durationSlots <= 0 {
		durationSlots = 1
	}
	start, err := minutesOfDay(startTime)
	if err != nil {
		return false, err
	}
	if start < e.firstBookableMinute(date) {
		return false, nil
	}
	duration := durationSlots * e.cfg.Capacity.SlotDurationMinutes

	bookings, err := e.store.ListBookingsByDate(ctx, resourceID, date)
	if err != nil {
		return false, err
	}
	live := 0
	for _, b := range bookings {
		if !b.Live() {
			continue
		}
		live++
		bStart, err := minutesOfDay(b.StartTime)
		if err != nil {
			continue
		}
		bEnd := bStart + b.DurationMinutes + e.cfg.Capacity.BufferMinutes
		if start < bEnd && bStart < start+duration+e.cfg.Capacity.BufferMinutes {
			return false, nil
		}
	}
	if live >= e.cfg.Capacity.MaxDailyBookings {
		return false, nil
	}

	monday, sunday, err := isoWeekBounds(date)
	if err != nil {
		return false, err
	}
	weekCount, err := e.store.CountLiveBookings(ctx, resourceID, monday, sunday)
	if err != nil {
		return false, err
	}
	if weekCount >= e.cfg.Capacity.MaxWeeklyBookings {
		return false, nil
	}
	return true, nil
}

// CapacityRemaining reports whether any date in [fromDate, toDate] can still
// accept a live booking under the daily and weekly ceilings.
func (e *Engine) CapacityRemaining(ctx context.Context, resourceID, fromDate, toDate string) (bool, error) {
	if resourceID == "" {
		resourceID = e.cfg.DefaultResource
	}
	from, err := time.Parse(dateLayout, fromDate)
	if err != nil {
		return false, err
	}
	to, err := time.Parse(dateLayout, toDate)
	if err != nil {
		return false, err
	}
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		date := d.Format(dateLayout)
		daily, err := e.store.CountLiveBookings(ctx, resourceID, date, date)
		if err != nil {
			return false, err
		}
		if daily >= e.cfg.Capacity.MaxDailyBookings {
			continue
		}
		monday, sunday, err := isoWeekBounds(date)
		if err != nil {
			return false, err
		}
		weekly, err := e.store.CountLiveBookings(ctx, resourceID, monday, sunday)
		if err != nil {
			return false, err
		}
		if weekly < e.cfg.Capacity.MaxWeeklyBookings {
			return true, nil
		}
	}
	return false, nil
}

// AllocateBooking runs find-then-commit as one critical section per
// (resource, date) key. A commit that loses a race retries the search once
// against fresh state before giving up.
func (e *Engine) AllocateBooking(ctx context.Context, req FindSlotRequest) (store.BookingRecord, error) {
	if e.control.isStopped() {
		return store.BookingRecord{}, policyf(PolicySystemPaused, "scheduling is paused by emergency stop")
	}
	req = e.normalizeFind(req)

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		slot, err := e.FindSlot(ctx, req)
		if err != nil {
			if errors.Is(err, ErrNoSlot) {
				// Distinguish "nothing free" from "ceilings reached": the
				// latter is a policy outcome the caller can act on.
				remaining, cerr := e.CapacityRemaining(ctx, req.ResourceID, req.FromDate, req.ToDate)
				if cerr == nil && !remaining {
					return store.BookingRecord{}, policyf(PolicyCapacityExhausted,
						"booking ceilings reached between %s and %s", req.FromDate, req.ToDate)
				}
			}
			return store.BookingRecord{}, err
		}

		b, err := e.commitSlot(ctx, req, slot)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, ErrConflict) {
			return store.BookingRecord{}, err
		}
		lastErr = err
	}
	return store.BookingRecord{}, lastErr
}

func (e *Engine) commitSlot(ctx context.Context, req FindSlotRequest, slot Slot) (store.BookingRecord, error) {
	unlock := e.locks.lock(slot.ResourceID, slot.Date)
	defer unlock()

	b := store.BookingRecord{
		ID:              uuid.NewString(),
		CandidateID:     req.CandidateID,
		ResourceID:      slot.ResourceID,
		Date:            slot.Date,
		StartTime:       slot.StartTime,
		DurationMinutes: req.DurationMinutes,
		Status:          store.BookingScheduled,
		InterviewType:   req.InterviewType,
		CreatedAt:       e.now(),
	}
	if e.cfg.Meetings != nil {
		ref, err := e.cfg.Meetings.MeetingLink(ctx, b)
		if err != nil {
			log.Printf("meeting link for booking %s: %v", b.ID, err)
		} else {
			b.MeetingReference = ref
		}
	}

	if err := e.store.InsertBooking(ctx, b); err != nil {
		if errors.Is(err, store.ErrSlotTaken) {
			return store.BookingRecord{}, ErrConflict
		}
		return store.BookingRecord{}, err
	}

	e.emit(notify.TypeBookingScheduled, b, map[string]any{
		"date":       b.Date,
		"start_time": b.StartTime,
		"duration":   b.DurationMinutes,
	})
	return b, nil
}
