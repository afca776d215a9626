// Package server exposes the HTTP front door: conversation creation, the
// WebSocket endpoint for turns, and health/info routes.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/quorumlabs/quorum/internal/coordinator"
	"github.com/quorumlabs/quorum/internal/state"
	"github.com/quorumlabs/quorum/internal/version"
)

// Server routes HTTP traffic to the conversation registry.
type Server struct {
	registry *Registry
	limiter  *RateLimiter
	log      *zap.Logger
	router   chi.Router
}

// New creates the HTTP server around a registry and a conversation-creation
// rate limiter.
func New(registry *Registry, limiter *RateLimiter, log *zap.Logger) *Server {
	s := &Server{
		registry: registry,
		limiter:  limiter,
		log:      log,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", s.handleInfo)
	r.Get("/health", s.handleHealth)
	r.Post("/api/conversation/new", s.handleNewConversation)
	r.Get("/api/ws", s.handleWS)
	s.router = r

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "quorum",
		"version": version.Get(),
		"endpoints": []string{
			"POST /api/conversation/new?userId=<id>",
			"GET /api/ws?conversationId=<id>",
			"GET /health",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleNewConversation(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		userID = "anonymous"
	}

	if !s.limiter.Allow(userID) {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{
			"error": "Rate limit exceeded. Try again later.",
		})
		return
	}

	conversationID, err := s.registry.Create(userID)
	if err != nil {
		s.log.Error("create conversation failed", zap.String("user_id", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Failed to create conversation",
		})
		return
	}

	s.log.Info("conversation created",
		zap.String("conversation_id", conversationID),
		zap.String("user_id", userID))

	writeJSON(w, http.StatusOK, map[string]string{
		"conversationId": conversationID,
		"userId":         userID,
	})
}

// lookupConversation resolves the conversationId query parameter to a live
// coordinator, writing the HTTP error itself on failure.
func (s *Server) lookupConversation(w http.ResponseWriter, r *http.Request) (conversationID string, coord *coordinator.Coordinator, ok bool) {
	conversationID = r.URL.Query().Get("conversationId")
	if conversationID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "conversationId is required"})
		return "", nil, false
	}

	c, err := s.registry.Get(conversationID)
	if errors.Is(err, state.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Conversation not found"})
		return "", nil, false
	}
	if err != nil {
		s.log.Error("lookup conversation failed", zap.String("conversation_id", conversationID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to load conversation"})
		return "", nil, false
	}

	return conversationID, c, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
