package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"gitlab.com/voxlane/api/voicedash/internal/syncjob"
	"gitlab.com/voxlane/api/voicedash/internal/usecase"
	"gitlab.com/voxlane/api/voicedash/pkg/logger"
	"gitlab.com/voxlane/api/voicedash/pkg/utils"
)

// Server is the dashboard HTTP API. Everything except the login, health and
// metrics endpoints sits behind the bearer auth middleware.
type Server struct {
	httpServer    *http.Server
	auth          *usecase.AuthService
	users         *usecase.UserService
	conversations *usecase.ConversationService
	metrics       *usecase.MetricsService
	agents        *usecase.AgentService
	enqueueSync   func(syncjob.TriggerPayload) error
}

// NewServer wires the router. enqueueSync may be nil when the job queue is
// not configured; the sync endpoint then answers 503.
func NewServer(
	port int,
	authService *usecase.AuthService,
	userService *usecase.UserService,
	conversationService *usecase.ConversationService,
	metricsService *usecase.MetricsService,
	agentService *usecase.AgentService,
	enqueueSync func(syncjob.TriggerPayload) error,
	metricsEnabled bool,
) *Server {
	s := &Server{
		auth:          authService,
		users:         userService,
		conversations: conversationService,
		metrics:       metricsService,
		agents:        agentService,
		enqueueSync:   enqueueSync,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(requestLoggingMiddleware)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Post("/auth/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/auth/me", s.handleMe)
		r.Post("/users", s.handleUserUpsert)

		r.Get("/conversations", s.handleConversationList)
		r.Get("/conversations/metrics", s.handleMetrics)
		r.Get("/conversations/{conversationID}", s.handleConversationDetail)
		r.Get("/conversations/{conversationID}/transcript", s.handleTranscript)
		r.Get("/conversations/{conversationID}/audio", s.handleAudioInfo)
		r.Get("/conversations/{conversationID}/audio/stream", s.handleAudioStream)

		r.Get("/agents", s.handleAgentList)
		r.Post("/agents", s.handleAgentCreate)
		r.Get("/agents/{agentID}", s.handleAgentGet)
		r.Put("/agents/{agentID}", s.handleAgentUpdate)

		r.Post("/sync", s.handleSyncTrigger)
	})

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // audio streaming holds the response open
	}
	return s
}

// Handler returns the router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	utils.SafeGo(func() {
		logger.Log.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error("HTTP server error", zap.Error(err))
		}
	}, nil)
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	logger.Log.Info("Stopping HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// HealthResponse is the body of the health and readiness probes.
type HealthResponse struct {
	Status  string            `json:"status"`
	Details map[string]string `json:"details,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSONResponse(w, http.StatusOK, HealthResponse{Status: "UP"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSONResponse(w, http.StatusOK, HealthResponse{
		Status: "READY",
		Details: map[string]string{
			"timestamp": utils.FormatISO8601(utils.Now()),
		},
	})
}
