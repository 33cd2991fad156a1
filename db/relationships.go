// ABOUTME: Relationship database operations
// ABOUTME: Handles full-replace upserts keyed by (user, company)
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/meetgraph/meetgraph/models"
)

// UpsertRelationship replaces the aggregate standing for (user, company)
// with freshly computed totals. Always a full replace, never an increment,
// so partial failures cannot cause drift.
func UpsertRelationship(db *sql.DB, rel *models.Relationship) error {
	now := time.Now()

	_, err := db.Exec(`
		INSERT INTO relationships (id, user_id, company_id, meetings_count, last_seen_at, strength_score, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, company_id) DO UPDATE SET
			meetings_count = excluded.meetings_count,
			last_seen_at = excluded.last_seen_at,
			strength_score = excluded.strength_score,
			updated_at = excluded.updated_at
	`, uuid.New().String(), rel.UserID.String(), rel.CompanyID.String(),
		rel.MeetingsCount, rel.LastSeenAt, rel.StrengthScore, now, now)

	if err != nil {
		return fmt.Errorf("failed to upsert relationship: %w", err)
	}
	return nil
}

func GetRelationship(db *sql.DB, userID, companyID uuid.UUID) (*models.Relationship, error) {
	rel := &models.Relationship{}
	err := db.QueryRow(`
		SELECT id, user_id, company_id, meetings_count, last_seen_at, strength_score, created_at, updated_at
		FROM relationships
		WHERE user_id = ? AND company_id = ?
	`, userID.String(), companyID.String()).Scan(
		&rel.ID,
		&rel.UserID,
		&rel.CompanyID,
		&rel.MeetingsCount,
		&rel.LastSeenAt,
		&rel.StrengthScore,
		&rel.CreatedAt,
		&rel.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rel, nil
}

func FindRelationshipsByUser(db *sql.DB, userID uuid.UUID) ([]models.Relationship, error) {
	rows, err := db.Query(`
		SELECT id, user_id, company_id, meetings_count, last_seen_at, strength_score, created_at, updated_at
		FROM relationships
		WHERE user_id = ?
		ORDER BY strength_score DESC
	`, userID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rels []models.Relationship
	for rows.Next() {
		var r models.Relationship
		if err := rows.Scan(&r.ID, &r.UserID, &r.CompanyID, &r.MeetingsCount, &r.LastSeenAt,
			&r.StrengthScore, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		rels = append(rels, r)
	}

	return rels, rows.Err()
}
