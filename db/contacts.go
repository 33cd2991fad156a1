// ABOUTME: Contact database operations
// ABOUTME: Handles upsert-by-owner-and-email, approval, and lookups
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/meetgraph/meetgraph/models"
)

// UpsertContact creates or updates a contact keyed by (user_id, email).
// On conflict the existing row keeps its id; meeting stats, company link,
// and approval are replaced with the incoming values. The contact's ID field
// is filled with the canonical row id on return.
func UpsertContact(db *sql.DB, contact *models.Contact) error {
	now := time.Now()

	var companyID *string
	if contact.CompanyID != nil {
		s := contact.CompanyID.String()
		companyID = &s
	}

	approved := 0
	if contact.IsApproved {
		approved = 1
	}

	_, err := db.Exec(`
		INSERT INTO contacts (id, user_id, email, name, company_id, meetings_count, last_seen_at, last_event_title, is_approved, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, email) DO UPDATE SET
			name = excluded.name,
			company_id = excluded.company_id,
			meetings_count = excluded.meetings_count,
			last_seen_at = excluded.last_seen_at,
			last_event_title = excluded.last_event_title,
			is_approved = excluded.is_approved,
			updated_at = excluded.updated_at
	`, uuid.New().String(), contact.UserID.String(), contact.Email, contact.Name, companyID,
		contact.MeetingsCount, contact.LastSeenAt, contact.LastEventTitle, approved, now, now)

	if err != nil {
		return fmt.Errorf("failed to upsert contact %s: %w", contact.Email, err)
	}

	// Read back the canonical id: a conflicting upsert keeps the original.
	var id string
	err = db.QueryRow(`
		SELECT id FROM contacts WHERE user_id = ? AND email = ?
	`, contact.UserID.String(), contact.Email).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to resolve contact id: %w", err)
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid contact id %q: %w", id, err)
	}
	contact.ID = parsed

	return nil
}

func GetContact(db *sql.DB, id uuid.UUID) (*models.Contact, error) {
	rows, err := db.Query(contactSelect+` WHERE id = ?`, id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts, err := collectContacts(rows)
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return nil, nil
	}
	return &contacts[0], nil
}

func FindContactsByUser(db *sql.DB, userID uuid.UUID, limit int) ([]models.Contact, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := db.Query(contactSelect+`
		WHERE user_id = ?
		ORDER BY last_seen_at DESC
		LIMIT ?
	`, userID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectContacts(rows)
}

// FindApprovedContacts returns every approved contact for a user, the input
// set for relationship scoring.
func FindApprovedContacts(db *sql.DB, userID uuid.UUID) ([]models.Contact, error) {
	rows, err := db.Query(contactSelect+`
		WHERE user_id = ? AND is_approved = 1
	`, userID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectContacts(rows)
}

// ApproveContact marks a contact as a confirmed network connection.
func ApproveContact(db *sql.DB, id uuid.UUID) error {
	res, err := db.Exec(`
		UPDATE contacts
		SET is_approved = 1, updated_at = ?
		WHERE id = ?
	`, time.Now(), id.String())
	if err != nil {
		return fmt.Errorf("failed to approve contact: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const contactSelect = `
	SELECT id, user_id, email, name, company_id, meetings_count, last_seen_at, last_event_title, is_approved, created_at, updated_at
	FROM contacts`

func collectContacts(rows *sql.Rows) ([]models.Contact, error) {
	var contacts []models.Contact
	for rows.Next() {
		var c models.Contact
		var name, lastEventTitle, companyID sql.NullString
		var lastSeenAt sql.NullTime
		var approved int

		if err := rows.Scan(&c.ID, &c.UserID, &c.Email, &name, &companyID, &c.MeetingsCount,
			&lastSeenAt, &lastEventTitle, &approved, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}

		c.Name = name.String
		c.LastEventTitle = lastEventTitle.String
		c.IsApproved = approved == 1
		if lastSeenAt.Valid {
			c.LastSeenAt = lastSeenAt.Time
		}
		if companyID.Valid {
			cid, err := uuid.Parse(companyID.String)
			if err == nil {
				c.CompanyID = &cid
			}
		}

		contacts = append(contacts, c)
	}

	return contacts, rows.Err()
}
