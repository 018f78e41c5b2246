package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"interview-scheduler/internal/store"
)

// CalendarLinker creates a Google Calendar event for a booking and returns
// its link as the meeting reference. One-way only: the engine never reads the
// calendar back, so there is no sync to keep consistent.
type CalendarLinker struct {
	config     *oauth2.Config
	token      *oauth2.Token
	calendarID string
}

// NewCalendarLinkerFromEnv returns nil when the Google OAuth2 settings are
// not configured; the caller then falls back to static references.
func NewCalendarLinkerFromEnv() *CalendarLinker {
	clientID := os.Getenv("GOOGLE_CLIENT_ID")
	clientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	redirectURL := os.Getenv("GOOGLE_REDIRECT_URL")
	tokenJSON := os.Getenv("GOOGLE_OAUTH_TOKEN")

	if clientID == "" || clientSecret == "" || tokenJSON == "" {
		return nil
	}
	var token oauth2.Token
	if err := json.Unmarshal([]byte(tokenJSON), &token); err != nil {
		return nil
	}

	calendarID := os.Getenv("GOOGLE_CALENDAR_ID")
	if calendarID == "" {
		calendarID = "primary"
	}
	return &CalendarLinker{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{calendar.CalendarEventsScope},
			Endpoint:     google.Endpoint,
		},
		token:      &token,
		calendarID: calendarID,
	}
}

func (l *CalendarLinker) MeetingLink(ctx context.Context, b store.BookingRecord) (string, error) {
	client := l.config.Client(ctx, l.token)
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return "", fmt.Errorf("create calendar service: %w", err)
	}

	start, err := time.Parse("2006-01-02 15:04", b.Date+" "+b.StartTime)
	if err != nil {
		return "", err
	}
	start = start.UTC()
	end := start.Add(time.Duration(b.DurationMinutes) * time.Minute)

	summary := "Interview"
	if b.InterviewType != "" {
		summary = "Interview (" + b.InterviewType + ")"
	}
	event := &calendar.Event{
		Summary:     summary,
		Description: "Candidate " + b.CandidateID,
		Start:       &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)},
	}

	created, err := srv.Events.Insert(l.calendarID, event).Do()
	if err != nil {
		return "", fmt.Errorf("insert calendar event: %w", err)
	}
	if created.HangoutLink != "" {
		return created.HangoutLink, nil
	}
	return created.HtmlLink, nil
}

// StaticLinker issues an internal meeting reference when no calendar
// integration is configured.
type StaticLinker struct{}

func (StaticLinker) MeetingLink(_ context.Context, b store.BookingRecord) (string, error) {
	return "meet://interviews/" + b.ID, nil
}
