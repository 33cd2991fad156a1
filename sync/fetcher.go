// ABOUTME: Paginated calendar event retrieval from the Google Calendar API
// ABOUTME: Surfaces provider-issued token rotation as an explicit page result
package sync

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/meetgraph/meetgraph/models"
)

const (
	// maxResults is the provider's maximum page size.
	maxResults = 250

	// syncWindowMonths bounds the trailing fetch window.
	syncWindowMonths = 12
)

// TimeWindow bounds an event listing.
type TimeWindow struct {
	Min time.Time
	Max time.Time
}

// SyncWindow returns the trailing window a sync pass covers.
func SyncWindow(now time.Time) TimeWindow {
	return TimeWindow{Min: now.AddDate(0, -syncWindowMonths, 0), Max: now}
}

// EventPage is one page of provider events. Rotated is non-nil when the
// provider issued fresh credentials while serving the page; the caller must
// persist them before requesting the next page.
type EventPage struct {
	Events        []models.CalendarEvent
	NextPageToken string
	Rotated       *models.CredentialPair
}

// EventSource abstracts the provider boundary so the pipeline can be driven
// by a fake in tests.
type EventSource interface {
	FetchPage(ctx context.Context, creds models.CredentialPair, window TimeWindow, pageToken string) (*EventPage, error)
}

// GoogleCalendarSource fetches events from the primary Google calendar.
type GoogleCalendarSource struct {
	oauth *oauth2.Config
}

func NewGoogleCalendarSource(oauth *oauth2.Config) *GoogleCalendarSource {
	return &GoogleCalendarSource{oauth: oauth}
}

// FetchPage lists one page of events. An expired access token triggers one
// explicit refresh through the oauth2 config; the rotated pair is returned
// on the page rather than persisted out-of-band.
func (s *GoogleCalendarSource) FetchPage(ctx context.Context, creds models.CredentialPair, window TimeWindow, pageToken string) (*EventPage, error) {
	page, err := s.listPage(ctx, creds.AccessToken, window, pageToken)
	if err == nil {
		return page, nil
	}

	if !isAuthError(err) || creds.RefreshToken == "" {
		if isAuthError(err) {
			return nil, ErrCredentialExpired
		}
		return nil, fmt.Errorf("failed to fetch calendar events: %w", err)
	}

	// Access token rejected: refresh once and retry the same page.
	rotated, err := s.refresh(ctx, creds.RefreshToken)
	if err != nil {
		return nil, err
	}

	page, err = s.listPage(ctx, rotated.AccessToken, window, pageToken)
	if err != nil {
		if isAuthError(err) {
			return nil, ErrCredentialExpired
		}
		return nil, fmt.Errorf("failed to fetch calendar events: %w", err)
	}

	page.Rotated = rotated
	return page, nil
}

func (s *GoogleCalendarSource) listPage(ctx context.Context, accessToken string, window TimeWindow, pageToken string) (*EventPage, error) {
	token := &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}
	service, err := calendar.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	call := service.Events.List("primary").
		MaxResults(maxResults).
		SingleEvents(true).
		OrderBy("startTime").
		TimeMin(window.Min.Format(time.RFC3339)).
		TimeMax(window.Max.Format(time.RFC3339)).
		Context(ctx)

	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	events, err := call.Do()
	if err != nil {
		return nil, err
	}

	page := &EventPage{NextPageToken: events.NextPageToken}
	for _, item := range events.Items {
		if ev, ok := mapEvent(item); ok {
			page.Events = append(page.Events, ev)
		}
	}

	return page, nil
}

// refresh exchanges the refresh token for a fresh pair. The provider may or
// may not rotate the refresh token itself; the stored one is kept when it
// does not.
func (s *GoogleCalendarSource) refresh(ctx context.Context, refreshToken string) (*models.CredentialPair, error) {
	stale := &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Now().Add(-time.Hour)}
	fresh, err := s.oauth.TokenSource(ctx, stale).Token()
	if err != nil {
		return nil, ErrCredentialExpired
	}

	rotated := &models.CredentialPair{
		AccessToken:  fresh.AccessToken,
		RefreshToken: fresh.RefreshToken,
	}
	if rotated.RefreshToken == "" {
		rotated.RefreshToken = refreshToken
	}
	return rotated, nil
}

// mapEvent converts a provider event into the ephemeral sync representation.
// Returns ok=false for events that carry nothing aggregatable.
func mapEvent(event *calendar.Event) (models.CalendarEvent, bool) {
	if event == nil || event.Start == nil {
		return models.CalendarEvent{}, false
	}
	if event.Status == "cancelled" {
		return models.CalendarEvent{}, false
	}

	ev := models.CalendarEvent{Title: event.Summary}

	if event.Start.Date != "" {
		// All-day event: date only, no usable duration.
		start, err := time.Parse("2006-01-02", event.Start.Date)
		if err != nil {
			return models.CalendarEvent{}, false
		}
		ev.Start = start
		ev.AllDay = true
	} else {
		start, err := time.Parse(time.RFC3339, event.Start.DateTime)
		if err != nil {
			return models.CalendarEvent{}, false
		}
		ev.Start = start

		if event.End != nil && event.End.DateTime != "" {
			if end, err := time.Parse(time.RFC3339, event.End.DateTime); err == nil {
				ev.End = end
			}
		}
	}

	for _, attendee := range event.Attendees {
		if attendee == nil || attendee.Email == "" || attendee.Resource {
			continue
		}
		ev.Attendees = append(ev.Attendees, models.Attendee{
			Email: attendee.Email,
			Name:  attendee.DisplayName,
		})
	}

	return ev, true
}

// isAuthError reports whether the provider rejected our bearer credential.
func isAuthError(err error) bool {
	if apiErr, ok := err.(*googleapi.Error); ok {
		return apiErr.Code == 401
	}
	if _, ok := err.(*oauth2.RetrieveError); ok {
		return true
	}
	return false
}
