package store

import "time"

// Booking statuses. "scheduled" and "confirmed" are live and occupy a slot;
// the terminal statuses free it.
const (
	BookingScheduled = "scheduled"
	BookingConfirmed = "confirmed"
	BookingCompleted = "completed"
	BookingCancelled = "cancelled"
	BookingNoShow    = "no_show"
)

// Queue entry statuses.
const (
	QueueWaiting   = "waiting"
	QueueContacted = "contacted"
	QueueScheduled = "scheduled"
	QueuePaused    = "paused"
	QueueProcessed = "processed"
)

// Availability window kinds.
const (
	WindowInterview = "interview"
	WindowBreak     = "break"
	WindowBlocked   = "blocked"
)

type AvailabilityWindow struct {
	ID         int64     `json:"id"`
	ResourceID string    `json:"resource_id"`
	Date       string    `json:"date"`       // "2006-01-02", UTC
	StartTime  string    `json:"start_time"` // "15:04"
	EndTime    string    `json:"end_time"`
	Available  bool      `json:"available"`
	Kind       string    `json:"kind"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

type BookingRecord struct {
	ID               string    `json:"id"`
	CandidateID      string    `json:"candidate_id"`
	ResourceID       string    `json:"resource_id"`
	Date             string    `json:"date"`
	StartTime        string    `json:"start_time"`
	DurationMinutes  int       `json:"duration_minutes"`
	Status           string    `json:"status"`
	InterviewType    string    `json:"interview_type,omitempty"`
	MeetingReference string    `json:"meeting_reference,omitempty"`
	ReminderSent     bool      `json:"reminder_sent"`
	ConfirmationSent bool      `json:"confirmation_sent"`
	Notes            string    `json:"notes,omitempty"`
	CreatedAt        time.Time `json:"created_at,omitempty"`
	CompletedAt      time.Time `json:"completed_at,omitempty"` // zero until completed
}

// Live reports whether the booking occupies its slot.
func (b BookingRecord) Live() bool {
	return b.Status == BookingScheduled || b.Status == BookingConfirmed
}

type QueueEntryRecord struct {
	ID              string    `json:"id"`
	CandidateID     string    `json:"candidate_id"`
	PriorityScore   float64   `json:"priority_score"`
	Status          string    `json:"status"`
	ContactAttempts int       `json:"contact_attempts"`
	LastContactAt   time.Time `json:"last_contact_at,omitempty"`
	PreferredTimes  []string  `json:"preferred_times,omitempty"`
	UrgencyLevel    string    `json:"urgency_level,omitempty"`
	AddedAt         time.Time `json:"added_at,omitempty"`
	UpdatedAt       time.Time `json:"updated_at,omitempty"`
}

type ConversionEventRecord struct {
	ID          int64     `json:"id"`
	CandidateID string    `json:"candidate_id"`
	FromStage   string    `json:"from_stage"`
	ToStage     string    `json:"to_stage"`
	Method      string    `json:"method,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}
