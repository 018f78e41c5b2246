// Package notify carries engine events to external delivery collaborators.
// The engine only emits {type, booking, candidate, payload}; rendering and
// channel choice live outside this service.
package notify

import (
	"encoding/json"
	"log"
	"time"
)

const (
	TypeBookingScheduled   = "booking_scheduled"
	TypeBookingConfirmed   = "booking_confirmed"
	TypeBookingCompleted   = "booking_completed"
	TypeBookingCancelled   = "booking_cancelled"
	TypeBookingNoShow      = "booking_no_show"
	TypeBookingRescheduled = "booking_rescheduled"
	TypeBookingReminder    = "booking_reminder"
	TypeEmergencyStop      = "emergency_stop"
	TypeSystemResumed      = "system_resumed"
)

type Event struct {
	Type        string         `json:"type"`
	BookingID   string         `json:"booking_id,omitempty"`
	CandidateID string         `json:"candidate_id,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
	At          time.Time      `json:"at"`
}

// Dispatcher receives engine events. Implementations must not block the
// caller; the engine dispatches from inside scheduling cycles.
type Dispatcher interface {
	Dispatch(ev Event)
}

// LogDispatcher writes events to the process log. Default when no hub or
// external dispatcher is wired.
type LogDispatcher struct{}

func (LogDispatcher) Dispatch(ev Event) {
	log.Printf("event %s booking=%s candidate=%s", ev.Type, ev.BookingID, ev.CandidateID)
}

// Multi fans an event out to several dispatchers.
type Multi []Dispatcher

func (m Multi) Dispatch(ev Event) {
	for _, d := range m {
		d.Dispatch(ev)
	}
}

func (ev Event) JSON() ([]byte, error) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	return json.Marshal(ev)
}
