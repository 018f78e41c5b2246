package schedule

import (
	"context"
	"sort"
	"sync"

	"interview-scheduler/internal/notify"
	"interview-scheduler/internal/store"
)

// controlState is the whole-system gate. It remembers exactly what the stop
// mutated so resume restores that and nothing else: entries already paused
// before the stop stay paused, windows already unavailable stay unavailable.
type controlState struct {
	mu               sync.Mutex
	stopped          bool
	pausedEntries    []string
	disabledWindows  []int64
	stoppedDate      string
	stoppedResources []string
}

func (c *controlState) isStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// ControlStatus is the operator-facing view of the switch.
type ControlStatus struct {
	Stopped         bool   `json:"stopped"`
	PausedEntries   int    `json:"paused_entries"`
	DisabledWindows int    `json:"disabled_windows"`
	StoppedDate     string `json:"stopped_date,omitempty"`
}

func (e *Engine) ControlStatus() ControlStatus {
	c := e.control
	c.mu.Lock()
	defer c.mu.Unlock()
	return ControlStatus{
		Stopped:         c.stopped,
		PausedEntries:   len(c.pausedEntries),
		DisabledWindows: len(c.disabledWindows),
		StoppedDate:     c.stoppedDate,
	}
}

// EmergencyStop pauses every waiting queue entry and disables today's
// availability so in-flight allocation attempts fail closed. Idempotent: a
// second stop is a no-op.
func (e *Engine) EmergencyStop(ctx context.Context) error {
	c := e.control
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return nil
	}

	today := e.now().Format(dateLayout)

	// Flipping today's windows touches every resource with availability, so
	// the stop serializes against in-flight allocations on each of them, in a
	// fixed order.
	todays, err := e.store.ListWindows(ctx, "", today, today)
	if err != nil {
		return err
	}
	resources := e.resourceLockOrder(todays)
	for _, r := range resources {
		unlock := e.locks.lock(r, today)
		defer unlock()
	}

	waiting, err := e.store.ListQueueEntries(ctx, store.QueueWaiting, 0)
	if err != nil {
		return err
	}
	paused := make([]string, 0, len(waiting))
	for _, entry := range waiting {
		entry.Status = store.QueuePaused
		if err := e.store.UpdateQueueEntry(ctx, entry); err != nil {
			return err
		}
		paused = append(paused, entry.ID)
	}

	disabled, err := e.store.SetDateAvailability(ctx, today, false)
	if err != nil {
		return err
	}

	c.stopped = true
	c.pausedEntries = paused
	c.disabledWindows = disabled
	c.stoppedDate = today
	c.stoppedResources = resources

	e.dispatch.Dispatch(notify.Event{
		Type: notify.TypeEmergencyStop,
		Payload: map[string]any{
			"paused_entries":   len(paused),
			"disabled_windows": len(disabled),
			"date":             today,
		},
		At: e.now(),
	})
	return nil
}

// resourceLockOrder returns the distinct resources behind the given windows
// plus the default resource, sorted so concurrent stops acquire locks in the
// same order.
func (e *Engine) resourceLockOrder(windows []store.AvailabilityWindow) []string {
	set := map[string]bool{e.cfg.DefaultResource: true}
	for _, w := range windows {
		set[w.ResourceID] = true
	}
	out := make([]string, 0, len(set))
	for r := range set {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Resume reverses an emergency stop: exactly the entries the stop paused go
// back to waiting, and exactly the windows it disabled become available again.
// Idempotent when the system is not stopped.
func (e *Engine) Resume(ctx context.Context) error {
	c := e.control
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.stopped {
		return nil
	}

	for _, r := range c.stoppedResources {
		unlock := e.locks.lock(r, c.stoppedDate)
		defer unlock()
	}

	for _, id := range c.pausedEntries {
		entry, ok, err := e.store.GetQueueEntry(ctx, id)
		if err != nil {
			return err
		}
		// Skip entries that moved on (e.g. manually processed) while paused.
		if !ok || entry.Status != store.QueuePaused {
			continue
		}
		entry.Status = store.QueueWaiting
		if err := e.store.UpdateQueueEntry(ctx, entry); err != nil {
			return err
		}
	}
	if err := e.store.SetWindowsAvailability(ctx, c.disabledWindows, true); err != nil {
		return err
	}

	restored := len(c.pausedEntries)
	c.stopped = false
	c.pausedEntries = nil
	c.disabledWindows = nil
	c.stoppedDate = ""
	c.stoppedResources = nil

	e.dispatch.Dispatch(notify.Event{
		Type:    notify.TypeSystemResumed,
		Payload: map[string]any{"restored_entries": restored},
		At:      e.now(),
	})
	return nil
}
