// ABOUTME: Data models for the relationship graph entities
// ABOUTME: Defines User, Contact, Company, Meeting, and Relationship structs
package models

import (
	"time"

	"github.com/google/uuid"
)

// User owns a contact graph and, once connected, an encrypted calendar
// credential pair. Token columns hold vault envelopes, never raw secrets.
type User struct {
	ID                    uuid.UUID  `json:"id"`
	Email                 string     `json:"email"`
	Name                  string     `json:"name,omitempty"`
	EncryptedAccessToken  string     `json:"-"`
	EncryptedRefreshToken string     `json:"-"`
	LastSyncedAt          *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// CredentialPair holds decrypted provider tokens. Only ever lives in memory;
// persistence goes through the vault.
type CredentialPair struct {
	AccessToken  string
	RefreshToken string
}

// Attendee is a single calendar event participant.
type Attendee struct {
	Email string
	Name  string
}

// CalendarEvent is the ephemeral per-sync representation of a provider event.
// All-day events carry a date-only Start and no usable duration.
type CalendarEvent struct {
	Title     string
	Start     time.Time
	End       time.Time // zero when the provider gave no end timestamp
	AllDay    bool
	Attendees []Attendee
}

type Contact struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	Email          string     `json:"email"`
	Name           string     `json:"name,omitempty"`
	CompanyID      *uuid.UUID `json:"company_id,omitempty"`
	MeetingsCount  int        `json:"meetings_count"`
	LastSeenAt     time.Time  `json:"last_seen_at"`
	LastEventTitle string     `json:"last_event_title,omitempty"`
	IsApproved     bool       `json:"is_approved"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Meeting is a derived recent-activity record owned by one contact. The full
// set is replaced on every sync pass; it is a cache, not an audit log.
type Meeting struct {
	ID              string    `json:"id"`
	ContactID       uuid.UUID `json:"contact_id"`
	Title           string    `json:"title,omitempty"`
	Date            time.Time `json:"date"`
	DurationMinutes *int      `json:"duration_minutes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type Company struct {
	ID        uuid.UUID `json:"id"`
	Domain    string    `json:"domain"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Relationship is the derived aggregate standing between a user and a
// company, recomputed as a whole from approved contacts.
type Relationship struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	CompanyID     uuid.UUID `json:"company_id"`
	MeetingsCount int       `json:"meetings_count"`
	LastSeenAt    time.Time `json:"last_seen_at"`
	StrengthScore float64   `json:"strength_score"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

const (
	// RecencyWindowDays is the horizon after which recency contributes nothing.
	RecencyWindowDays = 365
	// FrequencySaturation caps how many meetings count toward frequency, so a
	// single over-represented contact cannot dwarf genuine breadth.
	FrequencySaturation = 20

	recencyWeight   = 0.6
	frequencyWeight = 0.4
)

// ComputeStrengthScore blends meeting recency and frequency into a 0-100
// score. Recency dominates: a company last seen over a year ago scores on
// frequency alone.
func ComputeStrengthScore(meetingsCount int, lastSeenAt, now time.Time) float64 {
	daysSinceLast := now.Sub(lastSeenAt).Hours() / 24
	if daysSinceLast < 0 {
		daysSinceLast = 0
	}

	recency := 1 - daysSinceLast/RecencyWindowDays
	if recency < 0 {
		recency = 0
	}

	frequency := float64(meetingsCount) / FrequencySaturation
	if frequency > 1 {
		frequency = 1
	}

	return (recency*recencyWeight + frequency*frequencyWeight) * 100
}
