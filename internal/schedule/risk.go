package schedule

import (
	"context"
	"sort"
	"sync"
	"time"

	"interview-scheduler/internal/store"
)

// SlotContext is what a scoring heuristic may look at when judging an
// increment. Kept small so scorers stay pure and independently testable.
type SlotContext struct {
	ResourceID string
	Start      time.Time
}

// Scorer estimates the no-show likelihood of an increment as a number in
// [0, 1]. Zero means "no signal"; the allocator soft-denies increments whose
// score exceeds its threshold.
type Scorer interface {
	Score(sc SlotContext) float64
}

// ScorerFunc adapts a plain function to Scorer.
type ScorerFunc func(sc SlotContext) float64

func (f ScorerFunc) Score(sc SlotContext) float64 { return f(sc) }

// RiskProfile is the observed no-show rate for one (resource, hour, weekday)
// bucket over the trailing window.
type RiskProfile struct {
	ResourceID string  `json:"resource_id"`
	HourOfDay  int     `json:"hour_of_day"`
	DayOfWeek  int     `json:"day_of_week"`
	NoShowRate float64 `json:"no_show_rate"`
	SampleSize int     `json:"sample_size"`
}

type riskKey struct {
	resourceID string
	hour       int
	weekday    int
}

// RiskOptimizer recomputes no-show rates over historical bookings and serves
// them to the allocator as soft-deny scores. Always a rolling recomputation;
// nothing here is ground truth.
type RiskOptimizer struct {
	store      store.Store
	minSample  int
	windowDays int
	now        func() time.Time

	mu    sync.RWMutex
	rates map[riskKey]RiskProfile
}

func newRiskOptimizer(st store.Store, minSample, windowDays int, now func() time.Time) *RiskOptimizer {
	return &RiskOptimizer{
		store:      st,
		minSample:  minSample,
		windowDays: windowDays,
		now:        now,
		rates:      make(map[riskKey]RiskProfile),
	}
}

// Recompute rebuilds the rate table from the trailing window. Buckets with
// fewer than the minimum sample are treated as unknown and never penalized;
// low data must not produce false soft-denies.
func (r *RiskOptimizer) Recompute(ctx context.Context, windowDays int) ([]RiskProfile, error) {
	if windowDays <= 0 {
		windowDays = r.windowDays
	}
	today := r.now().Format(dateLayout)
	from := r.now().AddDate(0, 0, -windowDays).Format(dateLayout)

	bookings, err := r.store.ListBookingsInRange(ctx, "", from, today)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		total  int
		noShow int
	}
	buckets := make(map[riskKey]*bucket)
	for _, b := range bookings {
		// Only attendance outcomes count; cancellations say nothing about
		// whether the candidate would have shown up.
		if b.Status != store.BookingCompleted && b.Status != store.BookingNoShow {
			continue
		}
		start, err := combineUTC(b.Date, b.StartTime)
		if err != nil {
			continue
		}
		key := riskKey{resourceID: b.ResourceID, hour: start.Hour(), weekday: int(start.Weekday())}
		bk := buckets[key]
		if bk == nil {
			bk = &bucket{}
			buckets[key] = bk
		}
		bk.total++
		if b.Status == store.BookingNoShow {
			bk.noShow++
		}
	}

	fresh := make(map[riskKey]RiskProfile)
	profiles := make([]RiskProfile, 0, len(buckets))
	for key, bk := range buckets {
		if bk.total < r.minSample {
			continue
		}
		p := RiskProfile{
			ResourceID: key.resourceID,
			HourOfDay:  key.hour,
			DayOfWeek:  key.weekday,
			NoShowRate: float64(bk.noShow) / float64(bk.total),
			SampleSize: bk.total,
		}
		fresh[key] = p
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool {
		a, b := profiles[i], profiles[j]
		if a.ResourceID != b.ResourceID {
			return a.ResourceID < b.ResourceID
		}
		if a.DayOfWeek != b.DayOfWeek {
			return a.DayOfWeek < b.DayOfWeek
		}
		return a.HourOfDay < b.HourOfDay
	})

	r.mu.Lock()
	r.rates = fresh
	r.mu.Unlock()
	return profiles, nil
}

// Rate returns the trusted no-show rate for a bucket, if one exists.
func (r *RiskOptimizer) Rate(resourceID string, hour, weekday int) (float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.rates[riskKey{resourceID: resourceID, hour: hour, weekday: weekday}]
	if !ok {
		return 0, false
	}
	return p.NoShowRate, true
}

// Score implements Scorer: the trusted rate for the increment's bucket, or
// zero when the bucket is unknown.
func (r *RiskOptimizer) Score(sc SlotContext) float64 {
	rate, ok := r.Rate(sc.ResourceID, sc.Start.Hour(), int(sc.Start.Weekday()))
	if !ok {
		return 0
	}
	return rate
}

// Profiles returns the current snapshot sorted for stable output.
func (r *RiskOptimizer) Profiles() []RiskProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RiskProfile, 0, len(r.rates))
	for _, p := range r.rates {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ResourceID != b.ResourceID {
			return a.ResourceID < b.ResourceID
		}
		if a.DayOfWeek != b.DayOfWeek {
			return a.DayOfWeek < b.DayOfWeek
		}
		return a.HourOfDay < b.HourOfDay
	})
	return out
}
