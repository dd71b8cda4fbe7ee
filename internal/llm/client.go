package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxResponseBytes = 1 << 20

var _ Client = (*ChatClient)(nil)

type Dialect string

const (
	DialectDIAL   Dialect = "dial"
	DialectOpenAI Dialect = "openai"
)

type ChatConfig struct {
	BaseURL    string
	Token      string
	Deployment string
	Dialect    Dialect
	HTTPClient *http.Client
	Logger     *slog.Logger
	// Verbose logs full request and response bodies at debug level.
	Verbose bool
}

type ChatClient struct {
	baseURL    string
	token      string
	deployment string
	dialect    Dialect
	httpClient *http.Client
	logger     *slog.Logger
	verbose    bool
}

func NewChatClient(cfg ChatConfig) (*ChatClient, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errors.New("llm base url is required")
	}
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("llm token is required")
	}
	deployment := strings.TrimSpace(cfg.Deployment)
	if deployment == "" {
		return nil, errors.New("llm deployment is required")
	}
	dialect := cfg.Dialect
	if dialect == "" {
		dialect = DialectDIAL
	}
	if dialect != DialectDIAL && dialect != DialectOpenAI {
		return nil, fmt.Errorf("unsupported llm dialect: %s", dialect)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatClient{
		baseURL:    baseURL,
		token:      token,
		deployment: deployment,
		dialect:    dialect,
		httpClient: client,
		logger:     logger,
		verbose:    cfg.Verbose,
	}, nil
}

func (c *ChatClient) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	httpResp, logger, err := c.send(ctx, req, false)
	if err != nil {
		return ChatResponse{}, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return ChatResponse{}, &TransportError{Op: "read response", Err: err}
	}
	if c.verbose {
		logger.Debug("chat response", "body", string(raw))
	}
	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return ChatResponse{}, &ProtocolError{Reason: "decode response", Err: err}
	}
	if len(resp.Choices) == 0 {
		return ChatResponse{}, &ProtocolError{Reason: "no choices in response"}
	}
	choice := resp.Choices[0]
	if choice.Message.Content == nil {
		return ChatResponse{}, &ProtocolError{Reason: "no message content in response"}
	}
	return ChatResponse{
		Message:      NewMessage(RoleAssistant, *choice.Message.Content),
		Model:        resp.Model,
		FinishReason: choice.FinishReason,
	}, nil
}

func (c *ChatClient) ChatStream(ctx context.Context, req ChatRequest, handle StreamHandler) (ChatResponse, error) {
	httpResp, logger, err := c.send(ctx, req, true)
	if err != nil {
		return ChatResponse{}, err
	}
	defer httpResp.Body.Close()

	decoder := NewDecoder(handle)
	n, err := decoder.ReadFrom(httpResp.Body)
	if err != nil {
		logger.Debug("stream aborted", "bytes", n, "error", err)
		return ChatResponse{}, err
	}
	logger.Debug("stream finished", "bytes", n, "done", decoder.Done())
	if c.verbose {
		logger.Debug("stream content", "content", decoder.Content())
	}
	return decoder.Response(), nil
}

// send posts the request and returns the response only when its status is 2xx.
// The caller owns the returned body.
func (c *ChatClient) send(ctx context.Context, req ChatRequest, stream bool) (*http.Response, *slog.Logger, error) {
	deployment := c.resolveDeployment(req.Deployment)
	messages := req.Messages
	if messages == nil {
		messages = []Message{}
	}
	payload := chatRequest{
		Messages: messages,
		Stream:   stream,
	}
	if c.dialect == DialectOpenAI {
		payload.Model = deployment
	}
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal request: %w", err)
	}
	endpoint := c.endpoint(deployment)
	logger := c.logger.With("request_id", uuid.NewString(), "stream", stream)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(requestBody))
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.dialect == DialectOpenAI {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	} else {
		httpReq.Header.Set("api-key", c.token)
	}
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	logger.Debug("chat request", "endpoint", endpoint, "messages", len(req.Messages))
	if c.verbose {
		logger.Debug("chat request body", "body", string(requestBody))
	}
	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, nil, &TransportError{Op: "send request", Err: err}
	}
	logger.Debug("chat response status", "status", httpResp.StatusCode, "elapsed", time.Since(start))

	if httpResp.StatusCode < http.StatusOK || httpResp.StatusCode >= http.StatusMultipleChoices {
		defer httpResp.Body.Close()
		return nil, nil, readHTTPError(httpResp.Body, httpResp.StatusCode)
	}
	return httpResp, logger, nil
}

func (c *ChatClient) resolveDeployment(override string) string {
	if strings.TrimSpace(override) == "" {
		return c.deployment
	}
	return strings.TrimSpace(override)
}

func (c *ChatClient) endpoint(deployment string) string {
	if c.dialect == DialectOpenAI {
		return buildChatEndpoint(c.baseURL)
	}
	return buildDeploymentEndpoint(c.baseURL, deployment)
}

func buildDeploymentEndpoint(baseURL, deployment string) string {
	base := strings.TrimRight(baseURL, "/")
	return base + "/openai/deployments/" + url.PathEscape(deployment) + "/chat/completions"
}

func buildChatEndpoint(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + "/v1/chat/completions"
}

func readHTTPError(body io.Reader, status int) error {
	raw, err := io.ReadAll(io.LimitReader(body, maxResponseBytes))
	if err != nil {
		return &TransportError{Op: fmt.Sprintf("read error body (status %d)", status), Err: err}
	}
	return &HTTPError{StatusCode: status, Body: string(raw)}
}

type chatRequest struct {
	Model    string    `json:"model,omitempty"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    Role    `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}
