package httpserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"gitlab.com/voxlane/api/voicedash/internal/apperrors"
	"gitlab.com/voxlane/api/voicedash/internal/auth"
	"gitlab.com/voxlane/api/voicedash/internal/model"
	"gitlab.com/voxlane/api/voicedash/internal/syncjob"
	"gitlab.com/voxlane/api/voicedash/pkg/logger"
	"gitlab.com/voxlane/api/voicedash/pkg/utils"
)

const dateLayout = "2006-01-02"

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// handleLogin accepts form-encoded credentials and answers with a bearer
// token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, r, fmt.Errorf("%w: malformed form body", apperrors.ErrBadRequest))
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		writeError(w, r, fmt.Errorf("%w: username and password are required", apperrors.ErrBadRequest))
		return
	}

	token, err := s.auth.Login(r.Context(), username, password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, LoginResponse{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r.Context())
	if err != nil {
		writeError(w, r, apperrors.ErrUnauthenticated)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, user)
}

func (s *Server) handleUserUpsert(w http.ResponseWriter, r *http.Request) {
	var input model.UserUpsert
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, r, fmt.Errorf("%w: malformed JSON body", apperrors.ErrBadRequest))
		return
	}

	user, err := s.users.Upsert(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, user)
}

// parseDateRange reads the optional start_date and end_date query params.
// Each is a calendar day; the range covers [start of start_date, end of
// end_date).
func parseDateRange(r *http.Request) (*time.Time, *time.Time, error) {
	var startDate, endDate *time.Time

	if raw := r.URL.Query().Get("start_date"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: invalid start_date %q, want YYYY-MM-DD", apperrors.ErrBadRequest, raw)
		}
		start, _ := utils.DayBounds(parsed)
		startDate = &start
	}
	if raw := r.URL.Query().Get("end_date"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: invalid end_date %q, want YYYY-MM-DD", apperrors.ErrBadRequest, raw)
		}
		_, end := utils.DayBounds(parsed)
		endDate = &end
	}
	return startDate, endDate, nil
}

func (s *Server) handleConversationList(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r.Context())
	if err != nil {
		writeError(w, r, apperrors.ErrUnauthenticated)
		return
	}
	startDate, endDate, err := parseDateRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	conversations, err := s.conversations.List(r.Context(), user, startDate, endDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, conversations)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r.Context())
	if err != nil {
		writeError(w, r, apperrors.ErrUnauthenticated)
		return
	}
	startDate, endDate, err := parseDateRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	metrics, err := s.metrics.Compute(r.Context(), user, r.URL.Query().Get("period"), startDate, endDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, metrics)
}

func (s *Server) handleConversationDetail(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r.Context())
	if err != nil {
		writeError(w, r, apperrors.ErrUnauthenticated)
		return
	}

	conversation, err := s.conversations.Detail(r.Context(), user, chi.URLParam(r, "conversationID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, conversation)
}

// TranscriptResponse is the transcript answer body.
type TranscriptResponse struct {
	ConversationID string `json:"conversation_id"`
	Transcript     string `json:"transcript"`
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r.Context())
	if err != nil {
		writeError(w, r, apperrors.ErrUnauthenticated)
		return
	}

	conversationID := chi.URLParam(r, "conversationID")
	transcript, err := s.conversations.Transcript(r.Context(), user, conversationID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, TranscriptResponse{
		ConversationID: conversationID,
		Transcript:     transcript.Text,
	})
}

func (s *Server) handleAudioInfo(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r.Context())
	if err != nil {
		writeError(w, r, apperrors.ErrUnauthenticated)
		return
	}

	info, err := s.conversations.AudioInfo(r.Context(), user, chi.URLParam(r, "conversationID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, info)
}

// handleAudioStream proxies the provider audio straight through; the
// provider URL and key never reach the client.
func (s *Server) handleAudioStream(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r.Context())
	if err != nil {
		writeError(w, r, apperrors.ErrUnauthenticated)
		return
	}

	body, contentType, err := s.conversations.StreamAudio(r.Context(), user, chi.URLParam(r, "conversationID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer body.Close()

	if contentType == "" {
		contentType = "audio/mpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		logger.FromContext(r.Context()).Warn("Audio stream interrupted", zap.Error(err))
	}
}

func (s *Server) handleAgentList(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r.Context())
	if err != nil {
		writeError(w, r, apperrors.ErrUnauthenticated)
		return
	}

	agents, err := s.agents.List(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, agents)
}

func (s *Server) handleAgentGet(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r.Context())
	if err != nil {
		writeError(w, r, apperrors.ErrUnauthenticated)
		return
	}

	agent, err := s.agents.Get(r.Context(), user, chi.URLParam(r, "agentID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, agent)
}

func (s *Server) handleAgentCreate(w http.ResponseWriter, r *http.Request) {
	var input model.AgentUpsert
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, r, fmt.Errorf("%w: malformed JSON body", apperrors.ErrBadRequest))
		return
	}

	agent, err := s.agents.Create(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, agent)
}

func (s *Server) handleAgentUpdate(w http.ResponseWriter, r *http.Request) {
	var patch model.AgentPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, r, fmt.Errorf("%w: malformed JSON body", apperrors.ErrBadRequest))
		return
	}

	agent, err := s.agents.Update(r.Context(), chi.URLParam(r, "agentID"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, agent)
}

// SyncResponse is the body of an accepted sync trigger.
type SyncResponse struct {
	Status string `json:"status"`
}

// handleSyncTrigger queues a sync run; the 202 answer does not wait for it.
func (s *Server) handleSyncTrigger(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r.Context())
	if err != nil {
		writeError(w, r, apperrors.ErrUnauthenticated)
		return
	}
	if s.enqueueSync == nil {
		writeError(w, r, fmt.Errorf("%w: sync queue not configured", apperrors.ErrStorageUnavailable))
		return
	}

	err = s.enqueueSync(syncjob.TriggerPayload{
		RequestedBy: user.Email,
		Reason:      "manual",
		RequestedAt: utils.Now(),
	})
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: failed to queue sync run", apperrors.ErrStorageUnavailable))
		return
	}
	utils.WriteJSONResponse(w, http.StatusAccepted, SyncResponse{Status: "queued"})
}
