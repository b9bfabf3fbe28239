// Package api provides the VerseVault REST API server.
package api

import (
	"fmt"
	"net/http"
	"os"

	"github.com/FocuswithJustin/VerseVault/core/biblestore"
	"github.com/FocuswithJustin/VerseVault/internal/logging"
)

// appStore is the store serving all API requests.
var appStore *biblestore.Store

// Start starts the API server with the given configuration and blocks.
func Start(cfg Config) error {
	handler, err := initServer(cfg)
	if err != nil {
		return err
	}

	logging.ServerStartup("rest_api", "http", cfg.Port,
		"websocket_protocol", "ws",
		"data_dir", cfg.DataDir)

	addr := fmt.Sprintf(":%d", cfg.Port)
	return http.ListenAndServe(addr, handler)
}

// initServer wires the store, WebSocket hub, and middleware chain, and
// returns the root handler. Split from Start so tests can serve the same
// stack through httptest.
func initServer(cfg Config) (http.Handler, error) {
	ServerConfig = cfg

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	var opts []biblestore.Option
	if cfg.BaseURL != "" {
		opts = append(opts, biblestore.WithBaseURL(cfg.BaseURL))
	}
	appStore = biblestore.New(cfg.DataDir, opts...)

	GlobalHub = NewHub()
	go GlobalHub.Run()

	mux := setupRoutes()

	var handler http.Handler = SecurityHeadersMiddleware(mux)
	handler = CORSMiddleware(CORSConfig{AllowedOrigins: cfg.AllowedOrigins}, handler)
	handler = logging.CombinedMiddleware(handler)
	return handler, nil
}

// setupRoutes configures all HTTP routes.
func setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", handleRoot)
	mux.HandleFunc("/api/v1/health", handleHealth)
	mux.HandleFunc("/api/v1/translations", handleTranslations)
	mux.HandleFunc("/api/v1/translations/", handleTranslationSubtree)
	mux.HandleFunc("/api/v1/reset", handleReset)
	mux.HandleFunc("/api/v1/jobs/", handleJobByID)
	mux.HandleFunc("/api/v1/ws", handleWebSocket)

	return mux
}
