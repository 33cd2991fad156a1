// ABOUTME: In-memory fold of calendar events into per-contact meeting stats
// ABOUTME: Keyed by lowercased attendee email, order-independent output
package sync

import (
	"sort"
	"strings"
	"time"

	"github.com/meetgraph/meetgraph/models"
)

// MeetingRecord is one observed meeting with a contact.
type MeetingRecord struct {
	Title           string
	Date            time.Time
	DurationMinutes *int
}

// ContactAggregate is the folded view of one attendee across a sync pass.
type ContactAggregate struct {
	Email          string
	Name           string
	MeetingsCount  int
	LastSeenAt     time.Time
	LastEventTitle string
	Meetings       []MeetingRecord
}

// Aggregator folds an event stream into per-contact aggregates. It is pure
// in-memory state; nothing is persisted until the Reconciler runs.
type Aggregator struct {
	ownerEmail string
	contacts   map[string]*ContactAggregate
}

func NewAggregator(ownerEmail string) *Aggregator {
	return &Aggregator{
		ownerEmail: ownerEmail,
		contacts:   make(map[string]*ContactAggregate),
	}
}

// Add folds one event into the aggregates. Attendees that fail business
// classification are ignored. "Most recent" fields move only on a strictly
// newer event date, so equal timestamps leave the recorded values untouched
// regardless of fold order.
func (a *Aggregator) Add(event models.CalendarEvent) {
	duration := eventDuration(event)

	for _, attendee := range event.Attendees {
		email := strings.ToLower(strings.TrimSpace(attendee.Email))
		if !IsBusinessEmail(email, a.ownerEmail) {
			continue
		}

		record := MeetingRecord{
			Title:           event.Title,
			Date:            event.Start,
			DurationMinutes: duration,
		}

		agg, exists := a.contacts[email]
		if !exists {
			a.contacts[email] = &ContactAggregate{
				Email:          email,
				Name:           attendee.Name,
				MeetingsCount:  1,
				LastSeenAt:     event.Start,
				LastEventTitle: event.Title,
				Meetings:       []MeetingRecord{record},
			}
			continue
		}

		agg.MeetingsCount++
		agg.Meetings = append(agg.Meetings, record)

		if event.Start.After(agg.LastSeenAt) {
			agg.LastSeenAt = event.Start
			agg.LastEventTitle = event.Title
			if attendee.Name != "" {
				agg.Name = attendee.Name
			}
		}
	}
}

// Contacts returns the aggregates sorted by email for deterministic output.
func (a *Aggregator) Contacts() []*ContactAggregate {
	out := make([]*ContactAggregate, 0, len(a.contacts))
	for _, agg := range a.contacts {
		out = append(out, agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}

// eventDuration derives whole minutes between start and end when both are
// timestamped. All-day and open-ended events contribute counts and dates
// only.
func eventDuration(event models.CalendarEvent) *int {
	if event.AllDay || event.End.IsZero() || !event.End.After(event.Start) {
		return nil
	}
	minutes := int(event.End.Sub(event.Start).Minutes())
	return &minutes
}
