package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blackmichael/socialfeed-client/internal/clock"
	"github.com/blackmichael/socialfeed-client/internal/domain"
)

// Snapshots is the live client state the server exposes.
type Snapshots interface {
	UserID() string
	Posts() []domain.Post
	Messages() []domain.PrivateMessage
	Following() []string
	Clock() *clock.Clock
}

// Archive is the persisted event history.
type Archive interface {
	RecentPosts(ctx context.Context, limit int) ([]domain.Post, error)
	RecentMessages(ctx context.Context, limit int) ([]domain.PrivateMessage, error)
}

// Server is the read-only HTTP status server of a running client.
type Server struct {
	snaps      Snapshots
	archive    Archive
	logger     *slog.Logger
	handler    http.Handler
	httpServer *http.Server
}

// NewServer creates a status server on port. archive may be nil, in which
// case the archive endpoints answer 503. gatherer backs /metrics.
func NewServer(port int, snaps Snapshots, archive Archive, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	s := &Server{
		snaps:   snaps,
		archive: archive,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /posts", s.handlePosts)
	mux.HandleFunc("GET /messages", s.handleMessages)
	mux.HandleFunc("GET /clock", s.handleClock)
	mux.HandleFunc("GET /archive/posts", s.handleArchivePosts)
	mux.HandleFunc("GET /archive/messages", s.handleArchiveMessages)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s.handler = withLogging(logger, mux)
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the server's routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down or an error occurs.
func (s *Server) Start() error {
	s.logger.Info("starting status server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "user_id": s.snaps.UserID()})
}

func (s *Server) handlePosts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"posts": toPostViews(s.snaps.Posts())})
}

func (s *Server) handleMessages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"messages": toMessageViews(s.snaps.Messages())})
}

func (s *Server) handleClock(w http.ResponseWriter, _ *http.Request) {
	c := s.snaps.Clock()
	writeJSON(w, http.StatusOK, map[string]any{
		"clock":     c.Now(),
		"display":   c.Display(),
		"following": s.snaps.Following(),
	})
}

func (s *Server) handleArchivePosts(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.archiveLimit(w, r)
	if !ok {
		return
	}

	posts, err := s.archive.RecentPosts(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to read archived posts", "limit", limit, "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "failed to read archive")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": toPostViews(posts)})
}

func (s *Server) handleArchiveMessages(w http.ResponseWriter, r *http.Request) {
	limit, ok := s.archiveLimit(w, r)
	if !ok {
		return
	}

	msgs, err := s.archive.RecentMessages(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to read archived messages", "limit", limit, "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "failed to read archive")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": toMessageViews(msgs)})
}

// archiveLimit validates the archive is enabled and parses ?limit=, writing
// the error response itself when it returns false.
func (s *Server) archiveLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	if s.archive == nil {
		writeError(w, http.StatusServiceUnavailable, "ArchiveDisabled", "no archive configured")
		return 0, false
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 || parsed > 500 {
			s.logger.Warn("invalid limit parameter", "limit", l, "error", err)
			writeError(w, http.StatusBadRequest, "InvalidRequest", "limit must be between 1 and 500")
			return 0, false
		}
		limit = parsed
	}
	return limit, true
}

type postView struct {
	UserID          string `json:"user_id"`
	Content         string `json:"content"`
	CreatedAt       int64  `json:"created_at"`
	ClientTimestamp *int64 `json:"client_timestamp,omitempty"`
	ServerTimestamp *int64 `json:"server_timestamp,omitempty"`
}

type messageView struct {
	SenderID        string `json:"sender_id"`
	ReceiverID      string `json:"receiver_id,omitempty"`
	Content         string `json:"content"`
	CreatedAt       int64  `json:"created_at"`
	ClientTimestamp *int64 `json:"client_timestamp,omitempty"`
	ServerTimestamp *int64 `json:"server_timestamp,omitempty"`
}

func toPostViews(posts []domain.Post) []postView {
	result := make([]postView, len(posts))
	for i, p := range posts {
		result[i] = postView{
			UserID:          p.AuthorID,
			Content:         p.Content,
			CreatedAt:       p.CreatedAt,
			ClientTimestamp: p.ClientTimestamp,
			ServerTimestamp: p.ServerTimestamp,
		}
	}
	return result
}

func toMessageViews(msgs []domain.PrivateMessage) []messageView {
	result := make([]messageView, len(msgs))
	for i, m := range msgs {
		result[i] = messageView{
			SenderID:        m.SenderID,
			ReceiverID:      m.ReceiverID,
			Content:         m.Content,
			CreatedAt:       m.CreatedAt,
			ClientTimestamp: m.ClientTimestamp,
			ServerTimestamp: m.ServerTimestamp,
		}
	}
	return result
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, map[string]string{
		"error":   errType,
		"message": message,
	})
}

func withLogging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", time.Since(start),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
