package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xiaot623/gogo/memproxy/internal/domain"
)

// Client is the inference backend client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new inference backend client. An empty baseURL yields a client
// whose calls fail with domain.ErrMisconfiguredEndpoint.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ChatCompletionRequest represents the chat completion request sent to the backend.
type ChatCompletionRequest struct {
	Model    string               `json:"model"`
	Messages []domain.ChatMessage `json:"messages"`
}

// ChatCompletionResponse represents the fields of a chat completion the proxy reads.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Choice represents a completion choice.
type Choice struct {
	Index        int                 `json:"index"`
	Message      *domain.ChatMessage `json:"message,omitempty"`
	FinishReason string              `json:"finish_reason,omitempty"`
}

// Usage represents token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionResult holds a backend reply. Raw keeps every top-level field exactly as
// received so it can be returned to the caller unchanged.
type ChatCompletionResult struct {
	Raw      map[string]json.RawMessage
	Response ChatCompletionResponse
	Content  string
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// APIError represents the error details.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}

// Model represents a model from the models list.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// ModelsResponse represents the response from /v1/models.
type ModelsResponse struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}

// CreateChatCompletion sends a chat completion request.
func (c *Client) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	respBody, status, err := c.do(ctx, http.MethodPost, "/v1/chat/completions", body)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &domain.UpstreamRejectedError{StatusCode: status, Body: string(respBody)}
	}

	return parseChatCompletion(respBody)
}

// ListModels retrieves the list of available models.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	respBody, status, err := c.do(ctx, http.MethodGet, "/v1/models", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &domain.UpstreamRejectedError{StatusCode: status, Body: string(respBody)}
	}

	var result ModelsResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &domain.UpstreamRejectedError{
			StatusCode: http.StatusBadGateway,
			Body:       fmt.Sprintf("malformed models list: %v", err),
		}
	}
	return result.Data, nil
}

// do performs one request and classifies transport failures. It never retries.
func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, int, error) {
	if c.baseURL == "" {
		return nil, 0, domain.ErrMisconfiguredEndpoint
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: invalid endpoint: %w", domain.ErrMisconfiguredEndpoint, err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: failed to read response: %w", domain.ErrUpstreamUnavailable, err)
	}
	return respBody, resp.StatusCode, nil
}

func parseChatCompletion(body []byte) (*ChatCompletionResult, error) {
	malformed := func(reason string) error {
		return &domain.UpstreamRejectedError{
			StatusCode: http.StatusBadGateway,
			Body:       "malformed chat completion: " + reason,
		}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, malformed(err.Error())
	}
	var resp ChatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, malformed(err.Error())
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return nil, malformed("no choices[0].message")
	}

	return &ChatCompletionResult{
		Raw:      raw,
		Response: resp,
		Content:  resp.Choices[0].Message.Content,
	}, nil
}

// setHeaders sets common request headers.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
