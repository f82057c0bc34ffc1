package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Stats is the read surface the health endpoint reports on.
type Stats interface {
	QuoteCount() int
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr      string // listen address, e.g. ":8000"
	IndexPage string // path of the static dashboard page; optional
}

// Server exposes the hub on /ws plus the thin static and health endpoints.
type Server struct {
	cfg    ServerConfig
	hub    *Hub
	stats  Stats
	logger zerolog.Logger
	http   *http.Server
	start  time.Time
}

// NewServer creates the HTTP server around a hub.
func NewServer(cfg ServerConfig, hub *Hub, stats Stats, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		hub:    hub,
		stats:  stats,
		logger: logger.With().Str("component", "server").Logger(),
		start:  time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.HandleFunc("/healthz", s.handleHealth)
	s.http = &http.Server{Addr: cfg.Addr, Handler: mux}

	return s
}

// Start runs the listener in the background.
func (s *Server) Start() {
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("HTTP server listening")
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server stopped")
		}
	}()
}

// Shutdown stops the listener and closes all subscribers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.http.Shutdown(ctx)
}

// handleIndex serves the static dashboard page. Page content is not part
// of the core; a missing file yields a plain placeholder.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if s.cfg.IndexPage != "" {
		if page, err := os.ReadFile(s.cfg.IndexPage); err == nil {
			w.Write(page)
			return
		}
	}
	w.Write([]byte("<html><body><h3>chainwatch</h3><p>connect to /ws for snapshots</p></body></html>"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sent, dropped := s.hub.Metrics()
	body := map[string]interface{}{
		"status":        "ok",
		"uptime":        time.Since(s.start).String(),
		"subscribers":   s.hub.SubscriberCount(),
		"quotes_cached": s.stats.QuoteCount(),
		"sent":          sent,
		"dropped":       dropped,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}
