// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jeranaias/chillgpt-tui/internal/storage"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultHost binds to loopback only.
	DefaultHost = "127.0.0.1"

	// DefaultPort is the port the web front end expects.
	DefaultPort = 8000

	// MaxRequestBodySize bounds JSON request bodies (1MB).
	MaxRequestBodySize = 1 << 20

	// MaxUploadSize bounds document uploads (10MB).
	MaxUploadSize = 10 << 20

	// ChunkSize and ChunkOverlap control how uploads are split, in characters.
	ChunkSize    = 1000
	ChunkOverlap = 200

	// RetrievalK is the number of chunks retrieved per question.
	RetrievalK = 3

	// SimilarityThreshold is the minimum score for a chunk to be used.
	SimilarityThreshold = 0.7

	// DefaultRateLimit is the per-IP request rate.
	DefaultRateLimit = 5.0

	// defaultBurst lets a page load its status and history at once.
	defaultBurst = 10
)

// ============================================================================
// STATS
// ============================================================================

// Stats counts what the server has handled.
type Stats struct {
	ChatTurns    int64
	ChatFailures int64
	Uploads      int64
}

type serverStats struct {
	chatTurns    atomic.Int64
	chatFailures atomic.Int64
	uploads      atomic.Int64
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the local ChillGPT backend.
type Server struct {
	host      string
	port      int
	store     *storage.Store
	responder Responder
	limiter   *RateLimiter
	logger    *log.Logger

	router *http.ServeMux
	server *http.Server
	stats  serverStats

	mu sync.RWMutex
}

// NewServer creates a server that answers chats with responder and keeps
// uploads in store. A nil store disables document retrieval.
func NewServer(store *storage.Store, responder Responder) *Server {
	if responder == nil {
		responder = EchoResponder{}
	}
	s := &Server{
		host:      DefaultHost,
		port:      DefaultPort,
		store:     store,
		responder: responder,
		limiter:   NewRateLimiter(DefaultRateLimit, defaultBurst),
		logger:    log.Default(),
		router:    http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

// WithAddress sets the listen host and port.
func (s *Server) WithAddress(host string, port int) *Server {
	if host != "" {
		s.host = host
	}
	if port > 0 {
		s.port = port
	}
	return s
}

// WithRateLimit sets the per-IP request rate. Zero disables limiting.
func (s *Server) WithRateLimit(rps float64) *Server {
	s.limiter = NewRateLimiter(rps, defaultBurst)
	return s
}

// WithLogger sets the request logger.
func (s *Server) WithLogger(logger *log.Logger) *Server {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.host, strconv.Itoa(s.port))
}

// RAGEnabled reports whether document retrieval is available.
func (s *Server) RAGEnabled() bool {
	return s.store != nil
}

// Stats returns a snapshot of the counters.
func (s *Server) Stats() Stats {
	return Stats{
		ChatTurns:    s.stats.chatTurns.Load(),
		ChatFailures: s.stats.chatFailures.Load(),
		Uploads:      s.stats.uploads.Load(),
	}
}

// setupRoutes registers all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("POST /api/chat", s.handleChat)
	s.router.HandleFunc("POST /api/initialize", s.handleInitialize)
	s.router.HandleFunc("POST /api/upload-document", s.handleUpload)
	s.router.HandleFunc("GET /api/documents/status", s.handleDocumentStatus)
	s.router.HandleFunc("GET /api/documents/list", s.handleDocumentList)
	s.router.HandleFunc("POST /api/documents/clear", s.handleDocumentClear)
	s.router.HandleFunc("DELETE /api/documents/{filename}", s.handleDocumentDelete)
	s.router.HandleFunc("GET /api/health", s.handleHealth)
}

// Handler returns the routes wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return Chain(
		RecoveryMiddleware(),
		LoggingMiddleware(s.logger),
		CORSMiddleware(DefaultCORSConfig()),
		RateLimitMiddleware(s.limiter),
	)(s.router)
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Addr(), err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		// No WriteTimeout: chat replies stream for as long as the model talks.
	}

	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	s.logger.Printf("SERVER_START | addr=%s rag=%t", ln.Addr(), s.RAGEnabled())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}

	stats := s.Stats()
	s.logger.Printf("SERVER_SHUTDOWN | chats=%d failed=%d uploads=%d",
		stats.ChatTurns, stats.ChatFailures, stats.Uploads)
	return srv.Shutdown(ctx)
}

// ============================================================================
// HANDLERS
// ============================================================================

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"rag_enabled": s.RAGEnabled(),
	})
}

// handleInitialize handles POST /api/initialize. The key is only checked
// for presence; each chat carries its own.
func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var body struct {
		APIKey string `json:"api_key"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.APIKey == "" {
		writeError(w, http.StatusBadRequest, "API key is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Initialized"})
}

// ============================================================================
// HELPERS
// ============================================================================

// fieldError is one entry of a validation error detail.
type fieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes {"detail": message}.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"detail": message})
}

// writeValidationError writes a 422 with a list detail.
func writeValidationError(w http.ResponseWriter, errs ...fieldError) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string][]fieldError{"detail": errs})
}

// decodeJSON reads a bounded JSON body into v, answering 422 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		msg := "Invalid JSON body: " + err.Error()
		if errors.Is(err, io.EOF) {
			msg = "Request body is required"
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		writeValidationError(w, fieldError{Loc: []string{"body"}, Msg: msg, Type: "value_error.jsondecode"})
		return false
	}
	return true
}
