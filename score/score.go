// ABOUTME: Relationship strength scoring from approved contacts
// ABOUTME: Groups contacts by company and full-replaces relationship rows
package score

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meetgraph/meetgraph/db"
	"github.com/meetgraph/meetgraph/models"
)

// Scorer recomputes per-company relationship strength from a user's
// approved contacts. It runs on explicit approval actions, never during a
// raw sync pass: approval is the single authority for what counts toward
// relationship strength.
type Scorer struct {
	database *sql.DB
	nowF     func() time.Time
}

func NewScorer(database *sql.DB) *Scorer {
	return &Scorer{database: database, nowF: time.Now}
}

// RescoreUser loads every approved contact for the user and recomputes the
// relationship row of each company those contacts belong to.
func (s *Scorer) RescoreUser(userID uuid.UUID) error {
	contacts, err := db.FindApprovedContacts(s.database, userID)
	if err != nil {
		return fmt.Errorf("failed to load approved contacts: %w", err)
	}
	return s.Rescore(userID, contacts)
}

// Rescore groups the given approved contacts by company, sums meeting
// counts, takes the most recent last-seen date, and upserts each
// (user, company) relationship as a full replace. Companies with no
// approved contacts in the batch are left untouched; a company that never
// had an approved contact never gets a row.
func (s *Scorer) Rescore(userID uuid.UUID, contacts []models.Contact) error {
	type group struct {
		meetingsCount int
		lastSeenAt    time.Time
	}

	groups := make(map[uuid.UUID]*group)
	for _, contact := range contacts {
		if !contact.IsApproved || contact.CompanyID == nil {
			continue
		}

		g, ok := groups[*contact.CompanyID]
		if !ok {
			g = &group{}
			groups[*contact.CompanyID] = g
		}
		g.meetingsCount += contact.MeetingsCount
		if contact.LastSeenAt.After(g.lastSeenAt) {
			g.lastSeenAt = contact.LastSeenAt
		}
	}

	now := s.nowF()
	for companyID, g := range groups {
		rel := &models.Relationship{
			UserID:        userID,
			CompanyID:     companyID,
			MeetingsCount: g.meetingsCount,
			LastSeenAt:    g.lastSeenAt,
			StrengthScore: models.ComputeStrengthScore(g.meetingsCount, g.lastSeenAt, now),
		}
		if err := db.UpsertRelationship(s.database, rel); err != nil {
			return fmt.Errorf("failed to upsert relationship for company %s: %w", companyID, err)
		}
	}

	return nil
}
