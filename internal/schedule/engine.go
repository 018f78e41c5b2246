package schedule

import (
	"context"
	"sync"
	"time"

	"interview-scheduler/internal/notify"
	"interview-scheduler/internal/store"
)

// MeetingLinker produces a meeting reference (conference URL, room, dial-in)
// for a freshly allocated booking. Implementations live at the app boundary.
type MeetingLinker interface {
	MeetingLink(ctx context.Context, b store.BookingRecord) (string, error)
}

type Options struct {
	Capacity          CapacityConfig
	DefaultResource   string
	BatchSize         int     // queue entries pulled per cycle
	SearchHorizonDays int     // default slot search window from today
	RiskThreshold     float64 // no-show rate above which an increment is soft-denied
	RiskMinSample     int     // observations required before a rate is trusted
	RiskWindowDays    int     // trailing window for risk recomputation
	Dispatcher        notify.Dispatcher
	Meetings          MeetingLinker
	Scorer            Scorer // overrides the no-show optimizer's heuristic when set
}

// Engine owns slot allocation, the booking lifecycle, queue processing, risk
// recomputation and the emergency control switch over a single Store.
type Engine struct {
	store    store.Store
	cfg      Options
	locks    *keyedLocks
	risk     *RiskOptimizer
	scorer   Scorer
	control  *controlState
	tracker  *ConversionTracker
	dispatch notify.Dispatcher

	cycleMu sync.Mutex // one RunCycle in flight at a time

	now func() time.Time
}

func NewEngine(st store.Store, opts Options) *Engine {
	if opts.Capacity.SlotDurationMinutes <= 0 {
		opts.Capacity = DefaultCapacity()
	}
	if opts.DefaultResource == "" {
		opts.DefaultResource = "primary"
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.SearchHorizonDays <= 0 {
		opts.SearchHorizonDays = 14
	}
	if opts.RiskThreshold <= 0 {
		opts.RiskThreshold = 0.20
	}
	if opts.RiskMinSample <= 0 {
		opts.RiskMinSample = 5
	}
	if opts.RiskWindowDays <= 0 {
		opts.RiskWindowDays = 30
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = notify.LogDispatcher{}
	}

	e := &Engine{
		store:    st,
		cfg:      opts,
		locks:    newKeyedLocks(),
		control:  &controlState{},
		dispatch: opts.Dispatcher,
		now:      func() time.Time { return time.Now().UTC() },
	}
	e.risk = newRiskOptimizer(st, opts.RiskMinSample, opts.RiskWindowDays, e.nowFunc)
	e.scorer = opts.Scorer
	if e.scorer == nil {
		e.scorer = e.risk
	}
	e.tracker = &ConversionTracker{store: st}
	return e
}

func (e *Engine) nowFunc() time.Time { return e.now() }

// SetClock overrides the engine clock. Test hook.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// Tracker exposes the conversion funnel log.
func (e *Engine) Tracker() *ConversionTracker { return e.tracker }

// Risk exposes the no-show optimizer.
func (e *Engine) Risk() *RiskOptimizer { return e.risk }

// Capacity returns the active capacity configuration.
func (e *Engine) Capacity() CapacityConfig { return e.cfg.Capacity }

func (e *Engine) emit(evType string, b store.BookingRecord, payload map[string]any) {
	e.dispatch.Dispatch(notify.Event{
		Type:        evType,
		BookingID:   b.ID,
		CandidateID: b.CandidateID,
		Payload:     payload,
		At:          e.now(),
	})
}
