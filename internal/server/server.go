// Package server exposes the reading, study, and billing operations over
// HTTP. Chapter text and journal records are JSON; chat completions and
// full-sync progress stream as server-sent events.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/lectern-app/lectern"
)

// Billing is the subset of billing operations the server fronts. Nil
// disables the billing routes.
type Billing interface {
	CreateCheckoutSession(ctx context.Context, userID string) (string, error)
	CreatePortalSession(ctx context.Context, userID string) (string, error)
	HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error
	IsPro(ctx context.Context, userID string) (bool, error)
}

// Server wires the core services to HTTP handlers.
type Server struct {
	library   *lectern.Library
	assistant *lectern.Assistant
	journal   lectern.JournalStore
	billing   Billing
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithJournal enables the journal routes.
func WithJournal(j lectern.JournalStore) Option {
	return func(s *Server) { s.journal = j }
}

// WithBilling enables the billing routes.
func WithBilling(b Billing) Option {
	return func(s *Server) { s.billing = b }
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a Server over the reading library and the AI assistant.
func New(library *lectern.Library, assistant *lectern.Assistant, opts ...Option) *Server {
	s := &Server{
		library:   library,
		assistant: assistant,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Routes builds the HTTP mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)

	mux.HandleFunc("/v1/chapter", s.method(http.MethodGet, s.handleChapter))
	mux.HandleFunc("/v1/chapter/offline", s.method(http.MethodGet, s.handleChapterOffline))
	mux.HandleFunc("/v1/offline/download", s.method(http.MethodPost, s.handleDownloadAll))

	mux.HandleFunc("/v1/chat", s.method(http.MethodPost, s.handleChat))
	mux.HandleFunc("/v1/usage", s.method(http.MethodGet, s.handleUsage))

	mux.HandleFunc("/v1/docs/", s.method(http.MethodGet, s.handleDocs))

	if s.billing != nil {
		mux.HandleFunc("/v1/billing/checkout", s.method(http.MethodPost, s.handleCheckout))
		mux.HandleFunc("/v1/billing/portal", s.method(http.MethodPost, s.handlePortal))
		mux.HandleFunc("/v1/billing/webhook", s.method(http.MethodPost, s.handleWebhook))
		mux.HandleFunc("/v1/billing/status", s.method(http.MethodGet, s.handleBillingStatus))
	}

	if s.journal != nil {
		s.journalRoutes(mux)
	}

	return mux
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// method wraps a handler with a single-method check.
func (s *Server) method(m string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != m {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
