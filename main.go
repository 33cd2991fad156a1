// ABOUTME: Service entrypoint: wires config, store, vault, and HTTP server
// ABOUTME: Starts the relationship graph API on the configured address
package main

import (
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/meetgraph/meetgraph/config"
	"github.com/meetgraph/meetgraph/db"
	"github.com/meetgraph/meetgraph/identity"
	"github.com/meetgraph/meetgraph/logger"
	"github.com/meetgraph/meetgraph/score"
	"github.com/meetgraph/meetgraph/sync"
	"github.com/meetgraph/meetgraph/vault"
	"github.com/meetgraph/meetgraph/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(cfg.Env); err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Get()

	database, err := db.OpenDatabase(cfg.DatabasePath)
	if err != nil {
		log.Fatal("failed to open database", zap.String("path", cfg.DatabasePath), zap.Error(err))
	}
	defer database.Close()

	v, err := vault.New(cfg.VaultSecret)
	if err != nil {
		log.Fatal("failed to initialize credential vault", zap.Error(err))
	}

	oauthConfig := sync.NewOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.OAuthRedirectURL)
	cache := identity.NewCache(cfg.IdentityCacheTTL)
	source := sync.NewGoogleCalendarSource(oauthConfig)
	syncer := sync.NewSyncer(database, v, source, cache, log)
	scorer := score.NewScorer(database)

	server := web.NewServer(database, syncer, scorer, v, cache, oauthConfig, log)

	log.Info("starting meetgraph", zap.String("addr", cfg.Addr), zap.String("env", cfg.Env))
	if err := http.ListenAndServe(cfg.Addr, server.Router()); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}
