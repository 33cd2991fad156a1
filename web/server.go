// ABOUTME: HTTP API surface: sync trigger, status, approval, and OAuth connect
// ABOUTME: Thin chi router over the sync pipeline and scorer
package web

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/meetgraph/meetgraph/db"
	"github.com/meetgraph/meetgraph/identity"
	"github.com/meetgraph/meetgraph/models"
	"github.com/meetgraph/meetgraph/score"
	"github.com/meetgraph/meetgraph/sync"
	"github.com/meetgraph/meetgraph/vault"
)

// userHeader identifies the acting user. Session issuance lives outside this
// service; the API trusts the upstream gateway to have authenticated it.
const userHeader = "X-User-ID"

type Server struct {
	database *sql.DB
	syncer   *sync.Syncer
	scorer   *score.Scorer
	vault    *vault.Vault
	cache    *identity.Cache
	oauth    *oauth2.Config
	log      *zap.Logger
}

func NewServer(database *sql.DB, syncer *sync.Syncer, scorer *score.Scorer, v *vault.Vault, cache *identity.Cache, oauth *oauth2.Config, log *zap.Logger) *Server {
	return &Server{
		database: database,
		syncer:   syncer,
		scorer:   scorer,
		vault:    v,
		cache:    cache,
		oauth:    oauth,
		log:      log,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/sync", s.handleSync)
		r.Get("/sync/status", s.handleSyncStatus)
		r.Get("/contacts", s.handleListContacts)
		r.Post("/contacts/{id}/approve", s.handleApproveContact)
		r.Get("/companies", s.handleListCompanies)
		r.Get("/relationships", s.handleListRelationships)
	})

	r.Get("/oauth/connect", s.handleOAuthConnect)
	r.Get("/oauth/callback", s.handleOAuthCallback)

	return r
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.resolveUser(w, r)
	if !ok {
		return
	}

	result, err := s.syncer.SyncForUser(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, sync.ErrCredentialExpired):
			respondError(w, http.StatusUnauthorized, "calendar_disconnected",
				"Your calendar connection has expired. Please reconnect your calendar.")
		case errors.Is(err, sync.ErrUserNotFound):
			respondError(w, http.StatusNotFound, "user_not_found", "User not found")
		default:
			s.log.Error("sync failed", zap.String("user_id", userID.String()), zap.Error(err))
			respondError(w, http.StatusBadGateway, "sync_failed", "Calendar sync failed. Please try again.")
		}
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.resolveUser(w, r)
	if !ok {
		return
	}

	status, err := s.syncer.Status(userID)
	if err != nil {
		if errors.Is(err, sync.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "user_not_found", "User not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal", "Failed to load sync status")
		return
	}

	respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleApproveContact(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.resolveUser(w, r)
	if !ok {
		return
	}

	contactID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", "Invalid contact id")
		return
	}

	contact, err := db.GetContact(s.database, contactID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal", "Failed to load contact")
		return
	}
	if contact == nil || contact.UserID != userID {
		respondError(w, http.StatusNotFound, "not_found", "Contact not found")
		return
	}

	if err := db.ApproveContact(s.database, contactID); err != nil {
		respondError(w, http.StatusInternalServerError, "internal", "Failed to approve contact")
		return
	}

	// Approval changes what counts toward relationship strength, so the
	// user's company scores are recomputed here, not during sync.
	if err := s.scorer.RescoreUser(userID); err != nil {
		s.log.Error("rescore failed", zap.String("user_id", userID.String()), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal", "Failed to recompute relationships")
		return
	}

	contact.IsApproved = true
	respondJSON(w, http.StatusOK, contact)
}

func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.resolveUser(w, r)
	if !ok {
		return
	}

	contacts, err := db.FindContactsByUser(s.database, userID, 200)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal", "Failed to list contacts")
		return
	}
	if contacts == nil {
		contacts = []models.Contact{}
	}
	respondJSON(w, http.StatusOK, contacts)
}

func (s *Server) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.resolveUser(w, r); !ok {
		return
	}

	companies, err := db.FindCompanies(s.database, 200)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal", "Failed to list companies")
		return
	}
	if companies == nil {
		companies = []models.Company{}
	}
	respondJSON(w, http.StatusOK, companies)
}

func (s *Server) handleListRelationships(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.resolveUser(w, r)
	if !ok {
		return
	}

	rels, err := db.FindRelationshipsByUser(s.database, userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal", "Failed to list relationships")
		return
	}
	if rels == nil {
		rels = []models.Relationship{}
	}
	respondJSON(w, http.StatusOK, rels)
}

func (s *Server) handleOAuthConnect(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.resolveUser(w, r)
	if !ok {
		return
	}

	// The user id rides in the state parameter; offline access makes the
	// provider issue a refresh token.
	url := s.oauth.AuthCodeURL(userID.String(), oauth2.AccessTypeOffline)
	http.Redirect(w, r, url, http.StatusFound)
}

func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		respondError(w, http.StatusBadRequest, "oauth_failed", "No authorization code received")
		return
	}

	userID, err := uuid.Parse(r.URL.Query().Get("state"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "oauth_failed", "Invalid state parameter")
		return
	}

	token, err := s.oauth.Exchange(r.Context(), code)
	if err != nil {
		s.log.Error("oauth exchange failed", zap.Error(err))
		respondError(w, http.StatusBadGateway, "oauth_failed", "Failed to exchange authorization code")
		return
	}

	encAccess, err := s.vault.Encrypt(token.AccessToken)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal", "Failed to store credentials")
		return
	}
	encRefresh := ""
	if token.RefreshToken != "" {
		encRefresh, err = s.vault.Encrypt(token.RefreshToken)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "internal", "Failed to store credentials")
			return
		}
	}

	if err := db.SetUserCredentials(s.database, userID, encAccess, encRefresh); err != nil {
		respondError(w, http.StatusInternalServerError, "internal", "Failed to store credentials")
		return
	}
	s.cache.Invalidate(userID)

	respondJSON(w, http.StatusOK, map[string]string{"status": "connected"})
}

// resolveUser authenticates the request against the identity cache, falling
// back to the store on a miss.
func (s *Server) resolveUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get(userHeader)
	if raw == "" {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "Missing "+userHeader+" header")
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(raw)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "Invalid "+userHeader+" header")
		return uuid.Nil, false
	}

	if _, ok := s.cache.Get(userID); ok {
		return userID, true
	}

	user, err := db.GetUser(s.database, userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal", "Failed to resolve user")
		return uuid.Nil, false
	}
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "Unknown user")
		return uuid.Nil, false
	}

	s.cache.Put(identity.Identity{UserID: user.ID, Email: user.Email, Name: user.Name})
	return userID, true
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]string{"error": code, "message": message})
}
