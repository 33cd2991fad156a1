// ABOUTME: Meeting database operations
// ABOUTME: Handles delete-then-insert replacement of a contact's meeting cache
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/meetgraph/meetgraph/models"
)

// ReplaceContactMeetings swaps a contact's entire meeting set for the given
// records inside one transaction. Meetings are a derived cache; the previous
// rows are never kept.
func ReplaceContactMeetings(db *sql.DB, contactID uuid.UUID, meetings []models.Meeting) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // Safe even after commit
	}()

	if _, err := tx.Exec(`DELETE FROM meetings WHERE contact_id = ?`, contactID.String()); err != nil {
		return fmt.Errorf("failed to delete meetings: %w", err)
	}

	now := time.Now()
	for _, m := range meetings {
		_, err := tx.Exec(`
			INSERT INTO meetings (id, contact_id, title, date, duration_minutes, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, m.ID, contactID.String(), m.Title, m.Date, m.DurationMinutes, now)
		if err != nil {
			return fmt.Errorf("failed to insert meeting: %w", err)
		}
	}

	return tx.Commit()
}

// ListContactMeetings returns a contact's meetings, most recent first.
func ListContactMeetings(db *sql.DB, contactID uuid.UUID) ([]models.Meeting, error) {
	rows, err := db.Query(`
		SELECT id, contact_id, title, date, duration_minutes, created_at
		FROM meetings
		WHERE contact_id = ?
		ORDER BY date DESC
	`, contactID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meetings []models.Meeting
	for rows.Next() {
		var m models.Meeting
		var title sql.NullString
		var duration sql.NullInt64

		if err := rows.Scan(&m.ID, &m.ContactID, &title, &m.Date, &duration, &m.CreatedAt); err != nil {
			return nil, err
		}

		m.Title = title.String
		if duration.Valid {
			d := int(duration.Int64)
			m.DurationMinutes = &d
		}

		meetings = append(meetings, m)
	}

	return meetings, rows.Err()
}
