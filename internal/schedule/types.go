package schedule

import (
	"fmt"
	"time"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Slot is a bookable opportunity derived from an availability window.
type Slot struct {
	ResourceID string `json:"resource_id"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

// FindSlotRequest describes a slot search. FromDate/ToDate are inclusive
// "2006-01-02" bounds; empty bounds default to the engine's search horizon.
type FindSlotRequest struct {
	CandidateID     string `json:"candidate_id"`
	ResourceID      string `json:"resource_id"`
	FromDate        string `json:"from_date"`
	ToDate          string `json:"to_date"`
	DurationMinutes int    `json:"duration_minutes"`
	InterviewType   string `json:"interview_type"`
}

// CycleResult summarizes one queue processing batch.
type CycleResult struct {
	Processed int `json:"processed"`
	Scheduled int `json:"scheduled"`
	Failed    int `json:"failed"`
}

// WorkingHours clamps slot generation inside the configured day.
type WorkingHours struct {
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// CapacityConfig bounds what a scheduling run may allocate. Immutable while a
// cycle is running; change it only between runs.
type CapacityConfig struct {
	SlotDurationMinutes int          `yaml:"slot_duration_minutes" json:"slot_duration_minutes"`
	BufferMinutes       int          `yaml:"buffer_minutes" json:"buffer_minutes"`
	MaxDailyBookings    int          `yaml:"max_daily_bookings" json:"max_daily_bookings"`
	MaxWeeklyBookings   int          `yaml:"max_weekly_bookings" json:"max_weekly_bookings"`
	WorkingHours        WorkingHours `yaml:"working_hours" json:"working_hours"`
	WorkingDays         []string     `yaml:"working_days" json:"working_days"`
}

// DefaultCapacity mirrors the production defaults: 30-minute interviews with a
// 15-minute gap, eight per day, forty per ISO week, weekday business hours.
func DefaultCapacity() CapacityConfig {
	return CapacityConfig{
		SlotDurationMinutes: 30,
		BufferMinutes:       15,
		MaxDailyBookings:    8,
		MaxWeeklyBookings:   40,
		WorkingHours:        WorkingHours{Start: "08:00", End: "20:00"},
		WorkingDays:         []string{"monday", "tuesday", "wednesday", "thursday", "friday"},
	}
}

func (c CapacityConfig) workingDaySet() map[time.Weekday]bool {
	names := map[string]time.Weekday{
		"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
		"wednesday": time.Wednesday, "thursday": time.Thursday,
		"friday": time.Friday, "saturday": time.Saturday,
	}
	set := make(map[time.Weekday]bool, len(c.WorkingDays))
	for _, d := range c.WorkingDays {
		if wd, ok := names[d]; ok {
			set[wd] = true
		}
	}
	return set
}

// combineUTC builds the UTC instant for a date + "HH:MM" pair.
func combineUTC(date, hhmm string) (time.Time, error) {
	t, err := time.Parse(dateLayout+" "+timeLayout, date+" "+hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date/time %q %q: %w", date, hhmm, err)
	}
	return t.UTC(), nil
}

// parseHHMM accepts "HH:MM" with optional trailing seconds.
func parseHHMM(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("invalid time string: %s", s)
	}
	return time.Parse(timeLayout, s[:5])
}

// minutesOfDay converts "HH:MM" to minutes since midnight.
func minutesOfDay(s string) (int, error) {
	t, err := parseHHMM(s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func formatMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// isoWeekBounds returns the Monday and Sunday dates of the ISO week that
// contains the given date.
func isoWeekBounds(date string) (string, string, error) {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return "", "", err
	}
	offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
	monday := d.AddDate(0, 0, -offset)
	sunday := monday.AddDate(0, 0, 6)
	return monday.Format(dateLayout), sunday.Format(dateLayout), nil
}
