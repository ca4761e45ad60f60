// Package server wires HTTP handlers into a gorilla/mux router for the relay
// via routing helpers.
package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Tyrowin/chatrelay/internal/config"
)

// SetupRoutes returns the relay's router. When cfg.PublicDir is set the
// static client is served from it at "/"; otherwise "/" answers like /health.
func SetupRoutes(hub *Hub, cfg config.ServerConfig, log zerolog.Logger) *mux.Router {
	h := NewHandlers(hub, cfg, log)

	r := mux.NewRouter()
	r.HandleFunc("/ws", h.WebSocket).Methods(http.MethodGet)
	r.HandleFunc("/health", HealthHandler).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/api/stats", h.Stats).Methods(http.MethodGet)
	r.HandleFunc("/test", h.TestPage).Methods(http.MethodGet)

	if cfg.PublicDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.PublicDir))).Methods(http.MethodGet, http.MethodHead)
	} else {
		r.HandleFunc("/", HealthHandler).Methods(http.MethodGet, http.MethodHead)
	}
	return r
}
