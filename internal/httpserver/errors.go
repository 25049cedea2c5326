package httpserver

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"gitlab.com/voxlane/api/voicedash/internal/apperrors"
	"gitlab.com/voxlane/api/voicedash/pkg/logger"
	"gitlab.com/voxlane/api/voicedash/pkg/utils"
)

// ErrorResponse is the body of every error answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusFromError maps the error taxonomy to HTTP status codes. Unknown
// errors become 500 without leaking their message.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, apperrors.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFromError(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("Unhandled error serving request",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		message = "internal server error"
	}

	utils.WriteJSONResponse(w, status, ErrorResponse{Error: message})
}
