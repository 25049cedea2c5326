package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/voxlane/api/voicedash/internal/apperrors"
	"gitlab.com/voxlane/api/voicedash/internal/auth"
	"gitlab.com/voxlane/api/voicedash/internal/observer"
	"gitlab.com/voxlane/api/voicedash/pkg/logger"
	"gitlab.com/voxlane/api/voicedash/pkg/utils"
)

const requestIDHeader = "X-Request-Id"

// requestIDMiddleware assigns every request an id, honoring one supplied by
// the caller, and echoes it on the response.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)
		ctx := logger.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// requestLoggingMiddleware logs every request and feeds the latency
// histogram. The route pattern, not the raw path, labels the metric so ids do
// not explode cardinality.
func requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := utils.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		duration := time.Since(start)
		observer.ObserveHTTPRequest(r.Method, routePattern(r), recorder.status, duration)
		logger.FromContext(r.Context()).Info("Request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", recorder.status),
			zap.Duration("duration", duration),
		)
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// authMiddleware resolves the bearer token into a user and attaches it to the
// context. The user row is loaded fresh on every request.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, r, apperrors.ErrUnauthenticated)
			return
		}

		user, err := s.auth.ResolveToken(r.Context(), token)
		if err != nil {
			writeError(w, r, err)
			return
		}

		ctx := auth.WithUser(r.Context(), user)
		ctx = logger.WithLogger(ctx, logger.FromContext(ctx).With(zap.String("user_email", user.Email)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
