// ABOUTME: Sync pass orchestration: fetch, aggregate, reconcile per user
// ABOUTME: Serializes passes per user and persists token rotation synchronously
package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/meetgraph/meetgraph/db"
	"github.com/meetgraph/meetgraph/identity"
	"github.com/meetgraph/meetgraph/models"
	"github.com/meetgraph/meetgraph/vault"
)

var (
	// ErrCredentialExpired means the stored credential is missing or
	// unusable. Callers surface an explicit "please reconnect" instruction,
	// never a generic sync failure.
	ErrCredentialExpired = errors.New("calendar credential expired: reauthentication required")

	// ErrUserNotFound means the sync target does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// SyncResult reports what a completed pass observed. Relationship rows are
// deliberately absent: scoring is decoupled from raw sync and driven by the
// approval flow.
type SyncResult struct {
	ContactsFound  int `json:"contacts_found"`
	CompaniesFound int `json:"companies_found"`
}

// SyncStatus is the externally visible connection state for a user.
type SyncStatus struct {
	Connected    bool       `json:"connected"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

// Syncer drives full sync passes. Passes for the same user are collapsed
// through a singleflight gate: the meeting delete-then-insert in the
// Reconciler is not atomic, so two interleaved passes for one user could
// corrupt a contact's meeting set. Different users sync concurrently without
// restriction.
type Syncer struct {
	database   *sql.DB
	vault      *vault.Vault
	source     EventSource
	reconciler *Reconciler
	log        *zap.Logger
	group      singleflight.Group
	nowF       func() time.Time
}

func NewSyncer(database *sql.DB, v *vault.Vault, source EventSource, cache *identity.Cache, log *zap.Logger) *Syncer {
	return &Syncer{
		database:   database,
		vault:      v,
		source:     source,
		reconciler: NewReconciler(database, cache),
		log:        log,
		nowF:       time.Now,
	}
}

// SyncForUser runs one full fetch-aggregate-reconcile pass. Concurrent calls
// for the same user share a single pass and its result.
func (s *Syncer) SyncForUser(ctx context.Context, userID uuid.UUID) (*SyncResult, error) {
	v, err, _ := s.group.Do(userID.String(), func() (interface{}, error) {
		return s.syncOnce(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*SyncResult), nil
}

func (s *Syncer) syncOnce(ctx context.Context, userID uuid.UUID) (*SyncResult, error) {
	user, err := db.GetUser(s.database, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	creds, err := s.decryptCredentials(user)
	if err != nil {
		return nil, err
	}

	window := SyncWindow(s.nowF())
	aggregator := NewAggregator(user.Email)

	// The fetch stage is all-or-nothing: any failure discards every page
	// already folded, so a truncated graph is never committed.
	pageToken := ""
	pages := 0
	for {
		page, err := s.source.FetchPage(ctx, creds, window, pageToken)
		if err != nil {
			if errors.Is(err, ErrCredentialExpired) {
				// The provider rejected a credential that decrypted fine;
				// clear it so the user is prompted to reconnect instead of
				// every future pass failing the same way.
				s.clearCredentials(user.ID)
				return nil, ErrCredentialExpired
			}
			return nil, fmt.Errorf("calendar fetch aborted: %w", err)
		}

		if page.Rotated != nil {
			// Rotation must be durable before this pass can be considered
			// successful; otherwise later calls fail silently on the stale
			// token.
			if err := s.persistCredentials(user.ID, *page.Rotated); err != nil {
				return nil, fmt.Errorf("failed to persist rotated credentials: %w", err)
			}
			creds = *page.Rotated
			s.log.Info("persisted rotated calendar credentials", zap.String("user_id", userID.String()))
		}

		for _, event := range page.Events {
			aggregator.Add(event)
		}

		pages++
		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	contactsFound, companiesFound, err := s.reconciler.Reconcile(userID, aggregator.Contacts())
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile contact graph: %w", err)
	}

	s.log.Info("sync pass complete",
		zap.String("user_id", userID.String()),
		zap.Int("pages", pages),
		zap.Int("contacts_found", contactsFound),
		zap.Int("companies_found", companiesFound),
	)

	return &SyncResult{ContactsFound: contactsFound, CompaniesFound: companiesFound}, nil
}

// decryptCredentials opens the stored envelopes. Any failure is equivalent
// to having no credential at all: the stale envelope is cleared and the user
// must reauthenticate.
func (s *Syncer) decryptCredentials(user *models.User) (models.CredentialPair, error) {
	if user.EncryptedAccessToken == "" {
		return models.CredentialPair{}, ErrCredentialExpired
	}

	access, ok := s.vault.Decrypt(user.EncryptedAccessToken)
	if !ok {
		s.clearCredentials(user.ID)
		return models.CredentialPair{}, ErrCredentialExpired
	}

	creds := models.CredentialPair{AccessToken: access}
	if user.EncryptedRefreshToken != "" {
		refresh, ok := s.vault.Decrypt(user.EncryptedRefreshToken)
		if !ok {
			s.clearCredentials(user.ID)
			return models.CredentialPair{}, ErrCredentialExpired
		}
		creds.RefreshToken = refresh
	}

	return creds, nil
}

// persistCredentials encrypts and stores a fresh pair.
func (s *Syncer) persistCredentials(userID uuid.UUID, creds models.CredentialPair) error {
	encAccess, err := s.vault.Encrypt(creds.AccessToken)
	if err != nil {
		return err
	}

	encRefresh := ""
	if creds.RefreshToken != "" {
		encRefresh, err = s.vault.Encrypt(creds.RefreshToken)
		if err != nil {
			return err
		}
	}

	return db.SetUserCredentials(s.database, userID, encAccess, encRefresh)
}

func (s *Syncer) clearCredentials(userID uuid.UUID) {
	if err := db.ClearUserCredentials(s.database, userID); err != nil {
		s.log.Warn("failed to clear unusable credentials",
			zap.String("user_id", userID.String()), zap.Error(err))
	}
}

// Status reports whether a credential is present and when the last pass
// completed, for the "connect" vs "last synced N ago" display decision.
func (s *Syncer) Status(userID uuid.UUID) (*SyncStatus, error) {
	user, err := db.GetUser(s.database, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return &SyncStatus{
		Connected:    user.EncryptedAccessToken != "",
		LastSyncedAt: user.LastSyncedAt,
	}, nil
}
