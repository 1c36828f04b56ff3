// Package httpapi exposes the pipeline's read-only HTTP surface:
// identity endpoints over the configured sources, the recent-event
// buffer, derived source health, the dispensary directory, and a live
// server-sent-events stream fed by the broker.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/custodia-labs/leafstream/internal/core/domain"
	"github.com/custodia-labs/leafstream/internal/core/ports/driven"
	"github.com/custodia-labs/leafstream/internal/logger"
)

// DefaultEventLimit is applied when /events is called without a limit.
const DefaultEventLimit = 30

// Server is the HTTP API over a running pipeline. All endpoints are
// read-only; the pipeline is controlled by the process, not the API.
type Server struct {
	sources   []domain.Source
	repo      driven.EventRepository
	broker    driven.EventBroker
	directory driven.DispensaryDirectory
}

// NewServer builds a Server. directory may be nil when no dispensary
// directory is configured.
func NewServer(
	sources []domain.Source,
	repo driven.EventRepository,
	broker driven.EventBroker,
	dir driven.DispensaryDirectory,
) *Server {
	return &Server{
		sources:   sources,
		repo:      repo,
		broker:    broker,
		directory: dir,
	}
}

// Router assembles the chi router with the standard middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(allowAllCORS)

	r.Get("/health", s.handleHealth)
	r.Get("/providers", s.handleProviders)
	r.Get("/events", s.handleEvents)
	r.Get("/source-health", s.handleSourceHealth)
	r.Get("/pa-dispensaries", s.handleDispensaries)
	r.Get("/stream", s.handleStream)

	return r
}

// ListenAndServe runs the API until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http: listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	dispensaries := 0
	if s.directory != nil {
		dispensaries = len(s.directory.Dispensaries())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":                  "ok",
		"sources":                 len(s.sources),
		"pa_medical_dispensaries": dispensaries,
	})
}

// providerEntry is the /providers row: source identity plus whether
// connector-specific configuration is present.
type providerEntry struct {
	SourceID   string `json:"source_id"`
	Name       string `json:"name"`
	Provider   string `json:"provider"`
	BaseURL    string `json:"base_url"`
	Configured bool   `json:"configured"`
}

func (s *Server) handleProviders(w http.ResponseWriter, _ *http.Request) {
	entries := make([]providerEntry, 0, len(s.sources))
	for _, source := range s.sources {
		entries = append(entries, providerEntry{
			SourceID:   source.ID,
			Name:       source.Name,
			Provider:   string(source.Provider),
			BaseURL:    source.BaseURL,
			Configured: len(source.ProviderConfig) > 0,
		})
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := DefaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	events := s.repo.RecentEvents(limit)
	if events == nil {
		events = []domain.IngestionEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleSourceHealth(w http.ResponseWriter, _ *http.Request) {
	health := s.repo.SourceHealth()
	if health == nil {
		health = []domain.SourceHealth{}
	}
	writeJSON(w, http.StatusOK, health)
}

func (s *Server) handleDispensaries(w http.ResponseWriter, _ *http.Request) {
	entries := []domain.Dispensary{}
	if s.directory != nil {
		entries = s.directory.Dispensaries()
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Debug("http: encoding response: %v", err)
	}
}

// allowAllCORS mirrors the permissive posture of the web ticker's
// backend: any origin may read the API.
func allowAllCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
