// ABOUTME: Tests for the sync pass orchestrator with a fake event source
// ABOUTME: Covers pagination, token rotation durability, and credential failure
package sync

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meetgraph/meetgraph/db"
	"github.com/meetgraph/meetgraph/models"
	"github.com/meetgraph/meetgraph/vault"
)

// fakeSource serves scripted pages in order and records what it was asked for.
type fakeSource struct {
	pages      []*EventPage
	err        error
	errOnCall  int
	calls      int
	seenTokens []string
	seenCreds  []models.CredentialPair
}

func (f *fakeSource) FetchPage(ctx context.Context, creds models.CredentialPair, window TimeWindow, pageToken string) (*EventPage, error) {
	call := f.calls
	f.calls++
	f.seenTokens = append(f.seenTokens, pageToken)
	f.seenCreds = append(f.seenCreds, creds)

	if f.err != nil && call == f.errOnCall {
		return nil, f.err
	}
	return f.pages[call], nil
}

func testVault(t *testing.T) *vault.Vault {
	t.Helper()
	v, err := vault.New("test-vault-secret")
	require.NoError(t, err)
	return v
}

func connectedUser(t *testing.T, database *sql.DB, v *vault.Vault) *models.User {
	t.Helper()

	user := &models.User{Email: "owner@acme.io"}
	require.NoError(t, db.CreateUser(database, user))

	encAccess, err := v.Encrypt("access-token")
	require.NoError(t, err)
	encRefresh, err := v.Encrypt("refresh-token")
	require.NoError(t, err)
	require.NoError(t, db.SetUserCredentials(database, user.ID, encAccess, encRefresh))

	return user
}

func timedEvent(title string, start time.Time, attendees ...string) models.CalendarEvent {
	ev := models.CalendarEvent{Title: title, Start: start, End: start.Add(30 * time.Minute)}
	for _, email := range attendees {
		ev.Attendees = append(ev.Attendees, models.Attendee{Email: email})
	}
	return ev
}

func TestSyncForUserPaginates(t *testing.T) {
	database := testDB(t)
	v := testVault(t)
	user := connectedUser(t, database, v)

	now := time.Now().UTC()
	source := &fakeSource{pages: []*EventPage{
		{
			Events:        []models.CalendarEvent{timedEvent("Kickoff", now.AddDate(0, -2, 0), "jane@bigcorp.com")},
			NextPageToken: "page-2",
		},
		{
			Events: []models.CalendarEvent{
				timedEvent("Review", now.AddDate(0, -1, 0), "jane@bigcorp.com"),
				timedEvent("Intro", now.AddDate(0, 0, -3), "joe@widgets.co"),
			},
		},
	}}

	syncer := NewSyncer(database, v, source, testCache(), zap.NewNop())
	result, err := syncer.SyncForUser(context.Background(), user.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, result.ContactsFound)
	assert.Equal(t, 2, result.CompaniesFound)
	assert.Equal(t, []string{"", "page-2"}, source.seenTokens)
	assert.Equal(t, "access-token", source.seenCreds[0].AccessToken)

	contacts, err := db.FindContactsByUser(database, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, contacts, 2)

	byEmail := make(map[string]models.Contact, len(contacts))
	for _, c := range contacts {
		byEmail[c.Email] = c
	}
	assert.Equal(t, 2, byEmail["jane@bigcorp.com"].MeetingsCount, "events fold across pages")
	assert.Equal(t, 1, byEmail["joe@widgets.co"].MeetingsCount)
}

func TestSyncForUserPersistsRotation(t *testing.T) {
	database := testDB(t)
	v := testVault(t)
	user := connectedUser(t, database, v)

	now := time.Now().UTC()
	rotated := &models.CredentialPair{AccessToken: "fresh-access", RefreshToken: "fresh-refresh"}
	source := &fakeSource{pages: []*EventPage{
		{
			Events:        []models.CalendarEvent{timedEvent("Kickoff", now.AddDate(0, -1, 0), "jane@bigcorp.com")},
			NextPageToken: "page-2",
			Rotated:       rotated,
		},
		{},
	}}

	syncer := NewSyncer(database, v, source, testCache(), zap.NewNop())
	_, err := syncer.SyncForUser(context.Background(), user.ID)
	require.NoError(t, err)

	// The next page was requested with the rotated pair.
	assert.Equal(t, "fresh-access", source.seenCreds[1].AccessToken)

	// And the rotated pair is what survives in the store.
	got, err := db.GetUser(database, user.ID)
	require.NoError(t, err)
	access, ok := v.Decrypt(got.EncryptedAccessToken)
	require.True(t, ok)
	refresh, ok := v.Decrypt(got.EncryptedRefreshToken)
	require.True(t, ok)
	assert.Equal(t, "fresh-access", access)
	assert.Equal(t, "fresh-refresh", refresh)
}

func TestSyncForUserMissingUser(t *testing.T) {
	database := testDB(t)
	syncer := NewSyncer(database, testVault(t), &fakeSource{}, testCache(), zap.NewNop())

	_, err := syncer.SyncForUser(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSyncForUserNoCredentials(t *testing.T) {
	database := testDB(t)
	v := testVault(t)

	user := &models.User{Email: "owner@acme.io"}
	require.NoError(t, db.CreateUser(database, user))

	source := &fakeSource{}
	syncer := NewSyncer(database, v, source, testCache(), zap.NewNop())

	_, err := syncer.SyncForUser(context.Background(), user.ID)
	assert.ErrorIs(t, err, ErrCredentialExpired)
	assert.Zero(t, source.calls, "the provider must never be called without a credential")
}

func TestSyncForUserGarbledCredentialCleared(t *testing.T) {
	database := testDB(t)
	v := testVault(t)

	user := &models.User{Email: "owner@acme.io"}
	require.NoError(t, db.CreateUser(database, user))
	require.NoError(t, db.SetUserCredentials(database, user.ID, "not:an:envelope", ""))

	syncer := NewSyncer(database, v, &fakeSource{}, testCache(), zap.NewNop())
	_, err := syncer.SyncForUser(context.Background(), user.ID)
	assert.ErrorIs(t, err, ErrCredentialExpired)

	got, err := db.GetUser(database, user.ID)
	require.NoError(t, err)
	assert.Empty(t, got.EncryptedAccessToken, "an undecryptable envelope must be cleared")
}

func TestSyncForUserProviderRejectionClearsCredentials(t *testing.T) {
	database := testDB(t)
	v := testVault(t)
	user := connectedUser(t, database, v)

	source := &fakeSource{err: ErrCredentialExpired, errOnCall: 0}
	syncer := NewSyncer(database, v, source, testCache(), zap.NewNop())

	_, err := syncer.SyncForUser(context.Background(), user.ID)
	assert.ErrorIs(t, err, ErrCredentialExpired)

	got, err := db.GetUser(database, user.ID)
	require.NoError(t, err)
	assert.Empty(t, got.EncryptedAccessToken)
}

func TestSyncForUserFetchFailureCommitsNothing(t *testing.T) {
	database := testDB(t)
	v := testVault(t)
	user := connectedUser(t, database, v)

	now := time.Now().UTC()
	source := &fakeSource{
		pages: []*EventPage{
			{
				Events:        []models.CalendarEvent{timedEvent("Kickoff", now.AddDate(0, -1, 0), "jane@bigcorp.com")},
				NextPageToken: "page-2",
			},
			nil,
		},
		err:       errors.New("rate limited"),
		errOnCall: 1,
	}

	syncer := NewSyncer(database, v, source, testCache(), zap.NewNop())
	_, err := syncer.SyncForUser(context.Background(), user.ID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCredentialExpired)

	contacts, err := db.FindContactsByUser(database, user.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, contacts, "a failed pass must not commit partial pages")

	got, err := db.GetUser(database, user.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LastSyncedAt)
}

func TestStatus(t *testing.T) {
	database := testDB(t)
	v := testVault(t)
	syncer := NewSyncer(database, v, &fakeSource{}, testCache(), zap.NewNop())

	user := &models.User{Email: "owner@acme.io"}
	require.NoError(t, db.CreateUser(database, user))

	status, err := syncer.Status(user.ID)
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.Nil(t, status.LastSyncedAt)

	enc, err := v.Encrypt("access-token")
	require.NoError(t, err)
	require.NoError(t, db.SetUserCredentials(database, user.ID, enc, ""))
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.StampUserSynced(database, user.ID, at))

	status, err = syncer.Status(user.ID)
	require.NoError(t, err)
	assert.True(t, status.Connected)
	require.NotNil(t, status.LastSyncedAt)
	assert.True(t, status.LastSyncedAt.Equal(at))

	_, err = syncer.Status(uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}
