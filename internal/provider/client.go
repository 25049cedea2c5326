package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"gitlab.com/voxlane/api/voicedash/internal/apperrors"
	"gitlab.com/voxlane/api/voicedash/internal/observer"
	"gitlab.com/voxlane/api/voicedash/pkg/logger"
)

const (
	apiKeyHeader = "xi-api-key"

	defaultPageSize = 100

	requestRetryInitialInterval = 200 * time.Millisecond
	requestRetryMaxInterval     = 2 * time.Second
	requestRetryMaxElapsedTime  = 10 * time.Second
)

// Client talks to the conversational-voice provider API. The API key stays
// inside this package; nothing above it ever sees the provider URL or key.
type Client interface {
	ListConversations(ctx context.Context, cursor string) (*ConversationPage, error)
	GetConversation(ctx context.Context, conversationID string) (*ConversationDetail, error)
	GetTranscript(ctx context.Context, conversationID string) (string, error)
	StreamAudio(ctx context.Context, conversationID string) (io.ReadCloser, string, error)
	ListAgents(ctx context.Context) ([]Agent, error)
	GetAgent(ctx context.Context, agentID string) (*Agent, error)
	CreateAgent(ctx context.Context, payload AgentPayload) (*Agent, error)
	UpdateAgent(ctx context.Context, agentID string, payload AgentPayload) (*Agent, error)
}

// HTTPClient implements Client over net/http.
type HTTPClient struct {
	client   *http.Client
	baseURL  string
	apiKey   string
	pageSize int
}

// NewHTTPClient creates a provider client. baseURL must not end with a slash.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		client:   &http.Client{Timeout: timeout},
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		pageSize: defaultPageSize,
	}
}

var _ Client = (*HTTPClient)(nil)

// doJSON performs a request with retry on transport failures and decodes a
// JSON response. 404 maps to ErrNotFound; other non-2xx statuses map to
// ErrUpstreamUnavailable so the transport layer can answer accordingly.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, query url.Values, body interface{}, result interface{}) error {
	var reqBody []byte
	if body != nil {
		var err error
		reqBody, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	endpoint := endpointLabel(path)

	operation := func() error {
		fullURL := c.baseURL + path
		if len(query) > 0 {
			fullURL += "?" + query.Encode()
		}

		var reader io.Reader
		if reqBody != nil {
			reader = bytes.NewReader(reqBody)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set(apiKeyHeader, c.apiKey)
		if reqBody != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			observer.IncProviderRequest(endpoint, "transport_error")
			return fmt.Errorf("%w: %s %s: %w", apperrors.ErrUpstreamUnavailable, method, path, err)
		}
		defer resp.Body.Close()

		observer.IncProviderRequest(endpoint, strconv.Itoa(resp.StatusCode))

		if resp.StatusCode == http.StatusNotFound {
			return backoff.Permanent(fmt.Errorf("%w: %s %s", apperrors.ErrNotFound, method, path))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			err := fmt.Errorf("%w: %s %s: status %d: %s", apperrors.ErrUpstreamUnavailable, method, path, resp.StatusCode, string(respBody))
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return err // Retry server-side failures
			}
			return backoff.Permanent(err)
		}

		if result == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return backoff.Permanent(fmt.Errorf("%w: failed to decode %s response: %w", apperrors.ErrUpstreamUnavailable, path, err))
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = requestRetryInitialInterval
	b.MaxInterval = requestRetryMaxInterval
	b.MaxElapsedTime = requestRetryMaxElapsedTime

	notify := func(err error, d time.Duration) {
		logger.FromContext(ctx).Warn("Retrying provider request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
			zap.Duration("after", d),
		)
	}

	return backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify)
}

// endpointLabel collapses a request path to a low-cardinality metric label.
func endpointLabel(path string) string {
	switch {
	case strings.HasSuffix(path, "/transcript"):
		return "conversation_transcript"
	case strings.HasSuffix(path, "/audio"):
		return "conversation_audio"
	case strings.HasPrefix(path, "/convai/conversations/"):
		return "conversation_detail"
	case path == "/convai/conversations":
		return "conversations"
	case strings.HasPrefix(path, "/convai/agents"):
		return "agents"
	default:
		return "other"
	}
}

// ListConversations fetches one page of the conversation list. An empty
// cursor starts from the newest records; the returned page carries the
// cursor for the next call.
func (c *HTTPClient) ListConversations(ctx context.Context, cursor string) (*ConversationPage, error) {
	query := url.Values{}
	query.Set("page_size", strconv.Itoa(c.pageSize))
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	var page ConversationPage
	if err := c.doJSON(ctx, http.MethodGet, "/convai/conversations", query, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetConversation fetches the full detail of one conversation.
func (c *HTTPClient) GetConversation(ctx context.Context, conversationID string) (*ConversationDetail, error) {
	var detail ConversationDetail
	path := "/convai/conversations/" + url.PathEscape(conversationID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// GetTranscript fetches the rendered transcript text. The dedicated endpoint
// is tried first; when it fails the transcript is assembled from the detail
// payload's transcript turns.
func (c *HTTPClient) GetTranscript(ctx context.Context, conversationID string) (string, error) {
	var resp transcriptResponse
	path := "/convai/conversations/" + url.PathEscape(conversationID) + "/transcript"
	err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &resp)
	if err == nil {
		if resp.Text != "" {
			return resp.Text, nil
		}
		if resp.Transcript != "" {
			return resp.Transcript, nil
		}
	}

	detail, detailErr := c.GetConversation(ctx, conversationID)
	if detailErr != nil {
		if err != nil {
			return "", err
		}
		return "", detailErr
	}
	return RenderTranscript(detail.Transcript), nil
}

// RenderTranscript flattens transcript turns into display text. Empty turns
// and the provider's "..." placeholder are dropped.
func RenderTranscript(turns []TranscriptTurn) string {
	parts := make([]string, 0, len(turns))
	for _, turn := range turns {
		message := strings.TrimSpace(turn.Message)
		if message == "" || message == "..." {
			continue
		}
		role := turn.Role
		if role != "" {
			role = strings.ToUpper(role[:1]) + role[1:]
		}
		parts = append(parts, fmt.Sprintf("%s: %s", role, message))
	}
	return strings.Join(parts, "\n\n")
}

// StreamAudio opens the provider's audio stream for a conversation. The
// caller owns the returned body. The second return value is the content type.
func (c *HTTPClient) StreamAudio(ctx context.Context, conversationID string) (io.ReadCloser, string, error) {
	path := "/convai/conversations/" + url.PathEscape(conversationID) + "/audio"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		observer.IncProviderRequest("conversation_audio", "transport_error")
		return nil, "", fmt.Errorf("%w: audio fetch: %w", apperrors.ErrUpstreamUnavailable, err)
	}

	observer.IncProviderRequest("conversation_audio", strconv.Itoa(resp.StatusCode))

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, "", fmt.Errorf("%w: audio not available", apperrors.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, "", fmt.Errorf("%w: audio fetch: status %d", apperrors.ErrUpstreamUnavailable, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	return resp.Body, contentType, nil
}

// ListAgents fetches all provider agents.
func (c *HTTPClient) ListAgents(ctx context.Context) ([]Agent, error) {
	var resp agentListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/convai/agents", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Agents, nil
}

// GetAgent fetches one agent with its full conversation config.
func (c *HTTPClient) GetAgent(ctx context.Context, agentID string) (*Agent, error) {
	var agent Agent
	path := "/convai/agents/" + url.PathEscape(agentID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

// CreateAgent creates a provider agent.
func (c *HTTPClient) CreateAgent(ctx context.Context, payload AgentPayload) (*Agent, error) {
	var agent Agent
	if err := c.doJSON(ctx, http.MethodPost, "/convai/agents/create", nil, payload, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

// UpdateAgent patches a provider agent.
func (c *HTTPClient) UpdateAgent(ctx context.Context, agentID string, payload AgentPayload) (*Agent, error) {
	var agent Agent
	path := "/convai/agents/" + url.PathEscape(agentID)
	if err := c.doJSON(ctx, http.MethodPatch, path, nil, payload, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}
