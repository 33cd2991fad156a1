// ABOUTME: Persists aggregated contacts into the relationship graph store
// ABOUTME: Idempotent company creation, contact upserts, and meeting replacement
package sync

import (
	"database/sql"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/meetgraph/meetgraph/db"
	"github.com/meetgraph/meetgraph/identity"
	"github.com/meetgraph/meetgraph/models"
)

// maxMeetingsPerContact bounds the stored meeting history. The store keeps a
// recent-activity cache, not a full audit trail.
const maxMeetingsPerContact = 10

// Reconciler upserts the output of an aggregation pass. Reconciliation is
// write-ahead per contact: a failure partway leaves earlier contacts applied.
// Callers must not run two passes for the same user concurrently.
type Reconciler struct {
	database *sql.DB
	cache    *identity.Cache
}

func NewReconciler(database *sql.DB, cache *identity.Cache) *Reconciler {
	return &Reconciler{database: database, cache: cache}
}

// Reconcile persists companies, contacts, and meeting caches for one user's
// completed pass and stamps the user's last-synced time. Relationship rows
// are never touched here; scoring is a separate, approval-driven operation.
func (r *Reconciler) Reconcile(userID uuid.UUID, aggregates []*ContactAggregate) (contactsFound, companiesFound int, err error) {
	companies, err := r.ensureCompanies(aggregates)
	if err != nil {
		return 0, 0, err
	}

	for _, agg := range aggregates {
		contact := &models.Contact{
			UserID:         userID,
			Email:          agg.Email,
			Name:           agg.Name,
			MeetingsCount:  agg.MeetingsCount,
			LastSeenAt:     agg.LastSeenAt,
			LastEventTitle: agg.LastEventTitle,
			IsApproved:     true, // calendar-sourced contacts are auto-approved
		}
		if company, ok := companies[extractDomain(agg.Email)]; ok {
			contact.CompanyID = &company.ID
		}

		if err := db.UpsertContact(r.database, contact); err != nil {
			return 0, 0, fmt.Errorf("failed to reconcile contact %s: %w", agg.Email, err)
		}

		meetings := recentMeetings(contact.ID, agg.Meetings)
		if err := db.ReplaceContactMeetings(r.database, contact.ID, meetings); err != nil {
			return 0, 0, fmt.Errorf("failed to replace meetings for %s: %w", agg.Email, err)
		}
	}

	if err := db.StampUserSynced(r.database, userID, time.Now()); err != nil {
		return 0, 0, err
	}
	r.cache.Invalidate(userID)

	return len(aggregates), len(companies), nil
}

// ensureCompanies idempotently creates a company per distinct contact
// domain. Names are fixed at first observation and never updated.
func (r *Reconciler) ensureCompanies(aggregates []*ContactAggregate) (map[string]*models.Company, error) {
	companies := make(map[string]*models.Company)
	for _, agg := range aggregates {
		domain := extractDomain(agg.Email)
		if domain == "" {
			continue
		}
		if _, seen := companies[domain]; seen {
			continue
		}

		company, err := db.EnsureCompany(r.database, domain, NormalizeCompanyName(domain))
		if err != nil {
			return nil, err
		}
		companies[domain] = company
	}
	return companies, nil
}

// recentMeetings sorts descending by date and keeps the newest entries.
func recentMeetings(contactID uuid.UUID, records []MeetingRecord) []models.Meeting {
	sorted := make([]MeetingRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.After(sorted[j].Date) })

	if len(sorted) > maxMeetingsPerContact {
		sorted = sorted[:maxMeetingsPerContact]
	}

	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	meetings := make([]models.Meeting, 0, len(sorted))
	for _, rec := range sorted {
		meetings = append(meetings, models.Meeting{
			ID:              ulid.MustNew(ulid.Timestamp(rec.Date), entropy).String(),
			ContactID:       contactID,
			Title:           rec.Title,
			Date:            rec.Date,
			DurationMinutes: rec.DurationMinutes,
		})
	}
	return meetings
}
