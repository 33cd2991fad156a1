// ABOUTME: HTTP handler tests over the chi router with an in-memory store
// ABOUTME: Covers auth resolution, sync error mapping, and the approval flow
package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meetgraph/meetgraph/db"
	"github.com/meetgraph/meetgraph/identity"
	"github.com/meetgraph/meetgraph/models"
	"github.com/meetgraph/meetgraph/score"
	"github.com/meetgraph/meetgraph/sync"
	"github.com/meetgraph/meetgraph/vault"
)

type stubSource struct {
	page *sync.EventPage
	err  error
}

func (s *stubSource) FetchPage(ctx context.Context, creds models.CredentialPair, window sync.TimeWindow, pageToken string) (*sync.EventPage, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.page, nil
}

type testEnv struct {
	server   *Server
	handler  http.Handler
	database *sql.DB
	vault    *vault.Vault
	source   *stubSource
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database, err := db.OpenDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	v, err := vault.New("test-vault-secret")
	require.NoError(t, err)

	cache := identity.NewCache(time.Minute)
	source := &stubSource{page: &sync.EventPage{}}
	oauth := sync.NewOAuthConfig("client-id", "client-secret", "http://localhost:8080/oauth/callback")
	log := zap.NewNop()

	syncer := sync.NewSyncer(database, v, source, cache, log)
	server := NewServer(database, syncer, score.NewScorer(database), v, cache, oauth, log)

	return &testEnv{
		server:   server,
		handler:  server.Router(),
		database: database,
		vault:    v,
		source:   source,
	}
}

func (e *testEnv) request(t *testing.T, method, path string, userID string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seedUser(t *testing.T, connected bool) *models.User {
	t.Helper()

	user := &models.User{Email: "owner@acme.io"}
	require.NoError(t, db.CreateUser(e.database, user))

	if connected {
		encAccess, err := e.vault.Encrypt("access-token")
		require.NoError(t, err)
		encRefresh, err := e.vault.Encrypt("refresh-token")
		require.NoError(t, err)
		require.NoError(t, db.SetUserCredentials(e.database, user.ID, encAccess, encRefresh))
	}

	return user
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAuthHeaderRequired(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodGet, "/api/contacts", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/contacts", "not-a-uuid")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/contacts", uuid.NewString())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", decodeBody(t, rec)["error"])
}

func TestSyncEndpoint(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, true)

	now := time.Now().UTC()
	env.source.page = &sync.EventPage{
		Events: []models.CalendarEvent{
			{
				Title: "Kickoff", Start: now.AddDate(0, -1, 0), End: now.AddDate(0, -1, 0).Add(time.Hour),
				Attendees: []models.Attendee{{Email: "jane@bigcorp.com", Name: "Jane"}},
			},
		},
	}

	rec := env.request(t, http.MethodPost, "/api/sync", user.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.EqualValues(t, 1, body["contacts_found"])
	assert.EqualValues(t, 1, body["companies_found"])
}

func TestSyncEndpointDisconnected(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, false)

	rec := env.request(t, http.MethodPost, "/api/sync", user.ID.String())
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "calendar_disconnected", body["error"])
	assert.Contains(t, body["message"], "reconnect")
}

func TestSyncEndpointProviderFailure(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, true)
	env.source.err = context.DeadlineExceeded

	rec := env.request(t, http.MethodPost, "/api/sync", user.ID.String())
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "sync_failed", decodeBody(t, rec)["error"])
}

func TestSyncStatusEndpoint(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, false)

	rec := env.request(t, http.MethodGet, "/api/sync/status", user.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["connected"])

	enc, err := env.vault.Encrypt("access-token")
	require.NoError(t, err)
	require.NoError(t, db.SetUserCredentials(env.database, user.ID, enc, ""))
	require.NoError(t, db.StampUserSynced(env.database, user.ID, time.Now()))

	rec = env.request(t, http.MethodGet, "/api/sync/status", user.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, true, body["connected"])
	assert.NotEmpty(t, body["last_synced_at"])
}

func TestApproveContactFlow(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, false)

	company, err := db.EnsureCompany(env.database, "bigcorp.com", "Bigcorp")
	require.NoError(t, err)

	contact := &models.Contact{
		UserID: user.ID, Email: "jane@bigcorp.com", CompanyID: &company.ID,
		MeetingsCount: 5, LastSeenAt: time.Now().UTC().AddDate(0, 0, -3),
	}
	require.NoError(t, db.UpsertContact(env.database, contact))

	rec := env.request(t, http.MethodPost, "/api/contacts/"+contact.ID.String()+"/approve", user.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := db.GetContact(env.database, contact.ID)
	require.NoError(t, err)
	assert.True(t, got.IsApproved)

	// Approval drives scoring: the company relationship now exists.
	rel, err := db.GetRelationship(env.database, user.ID, company.ID)
	require.NoError(t, err)
	require.NotNil(t, rel)
	assert.Equal(t, 5, rel.MeetingsCount)
}

func TestApproveContactOwnership(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, false)

	other := &models.User{Email: "other@widgets.co"}
	require.NoError(t, db.CreateUser(env.database, other))

	contact := &models.Contact{UserID: owner.ID, Email: "jane@bigcorp.com", LastSeenAt: time.Now().UTC()}
	require.NoError(t, db.UpsertContact(env.database, contact))

	rec := env.request(t, http.MethodPost, "/api/contacts/"+contact.ID.String()+"/approve", other.ID.String())
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/contacts/not-a-uuid/approve", owner.ID.String())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListEndpointsEmpty(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, false)

	for _, path := range []string{"/api/contacts", "/api/companies", "/api/relationships"} {
		rec := env.request(t, http.MethodGet, path, user.ID.String())
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "[]\n", rec.Body.String(), "%s must return an empty array, not null", path)
	}
}

func TestOAuthConnectRedirect(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, false)

	rec := env.request(t, http.MethodGet, "/oauth/connect", user.ID.String())
	require.Equal(t, http.StatusFound, rec.Code)

	location := rec.Header().Get("Location")
	assert.Contains(t, location, "state="+user.ID.String())
	assert.Contains(t, location, "access_type=offline")
}

func TestOAuthCallbackValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodGet, "/oauth/callback", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.request(t, http.MethodGet, "/oauth/callback?code=abc&state=garbage", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
