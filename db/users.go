// ABOUTME: User database operations
// ABOUTME: Handles user rows, encrypted credential storage, and sync stamps
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/meetgraph/meetgraph/models"
)

func CreateUser(db *sql.DB, user *models.User) error {
	user.ID = uuid.New()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.Exec(`
		INSERT INTO users (id, email, name, encrypted_access_token, encrypted_refresh_token, last_synced_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, user.ID.String(), user.Email, user.Name, nullableString(user.EncryptedAccessToken), nullableString(user.EncryptedRefreshToken), user.LastSyncedAt, user.CreatedAt, user.UpdatedAt)

	return err
}

func GetUser(db *sql.DB, id uuid.UUID) (*models.User, error) {
	return scanUser(db.QueryRow(`
		SELECT id, email, name, encrypted_access_token, encrypted_refresh_token, last_synced_at, created_at, updated_at
		FROM users WHERE id = ?
	`, id.String()))
}

func GetUserByEmail(db *sql.DB, email string) (*models.User, error) {
	return scanUser(db.QueryRow(`
		SELECT id, email, name, encrypted_access_token, encrypted_refresh_token, last_synced_at, created_at, updated_at
		FROM users WHERE LOWER(email) = LOWER(?)
	`, email))
}

// SetUserCredentials stores freshly encrypted token envelopes. Called on
// initial connect and on every provider-issued rotation.
func SetUserCredentials(db *sql.DB, id uuid.UUID, encryptedAccess, encryptedRefresh string) error {
	_, err := db.Exec(`
		UPDATE users
		SET encrypted_access_token = ?, encrypted_refresh_token = ?, updated_at = ?
		WHERE id = ?
	`, nullableString(encryptedAccess), nullableString(encryptedRefresh), time.Now(), id.String())

	if err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	return nil
}

// ClearUserCredentials drops an unusable credential so re-sync attempts stop
// failing on it and the user is prompted to reconnect.
func ClearUserCredentials(db *sql.DB, id uuid.UUID) error {
	_, err := db.Exec(`
		UPDATE users
		SET encrypted_access_token = NULL, encrypted_refresh_token = NULL, updated_at = ?
		WHERE id = ?
	`, time.Now(), id.String())

	if err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// StampUserSynced records completion of a sync pass.
func StampUserSynced(db *sql.DB, id uuid.UUID, at time.Time) error {
	_, err := db.Exec(`
		UPDATE users
		SET last_synced_at = ?, updated_at = ?
		WHERE id = ?
	`, at, time.Now(), id.String())

	if err != nil {
		return fmt.Errorf("failed to stamp sync completion: %w", err)
	}
	return nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var name, accessToken, refreshToken sql.NullString
	var lastSyncedAt sql.NullTime

	err := row.Scan(
		&user.ID,
		&user.Email,
		&name,
		&accessToken,
		&refreshToken,
		&lastSyncedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	user.Name = name.String
	user.EncryptedAccessToken = accessToken.String
	user.EncryptedRefreshToken = refreshToken.String
	if lastSyncedAt.Valid {
		user.LastSyncedAt = &lastSyncedAt.Time
	}

	return user, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
