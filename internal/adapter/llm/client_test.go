package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/xiaot623/gogo/memproxy/internal/domain"
)

func testRequest() *ChatCompletionRequest {
	return &ChatCompletionRequest{
		Model:    "gpt",
		Messages: []domain.ChatMessage{{Role: "user", Content: "hello"}},
	}
}

func TestClientCreateChatCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected authorization header: %q", got)
		}
		var req ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 1 || req.Messages[0].Content != "hello" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt","choices":[{"index":0,"message":{"role":"assistant","content":"hi"},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3},"system_fingerprint":"fp_x"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", "secret", time.Second)
	result, err := client.CreateChatCompletion(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("CreateChatCompletion failed: %v", err)
	}
	if result.Content != "hi" {
		t.Fatalf("unexpected content: %q", result.Content)
	}
	if result.Response.Model != "gpt" || len(result.Response.Choices) != 1 {
		t.Fatalf("unexpected response: %+v", result.Response)
	}
	if string(result.Raw["system_fingerprint"]) != `"fp_x"` {
		t.Fatalf("raw reply lost unknown field: %v", result.Raw)
	}
}

func TestClientCreateChatCompletionRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"bad","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	_, err := client.CreateChatCompletion(context.Background(), testRequest())
	if !errors.Is(err, domain.ErrUpstreamRejected) {
		t.Fatalf("expected rejected error, got %v", err)
	}
	var rejected *domain.UpstreamRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected *UpstreamRejectedError, got %T", err)
	}
	if rejected.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rejected.StatusCode)
	}
	if rejected.Body != `{"error":{"message":"bad","type":"invalid_request_error"}}` {
		t.Fatalf("unexpected body: %s", rejected.Body)
	}
}

func TestClientCreateChatCompletionMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"c1","choices":[]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	_, err := client.CreateChatCompletion(context.Background(), testRequest())
	var rejected *domain.UpstreamRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected *UpstreamRejectedError, got %v", err)
	}
	if rejected.StatusCode != http.StatusBadGateway {
		t.Fatalf("unexpected status: %d", rejected.StatusCode)
	}
}

func TestClientCreateChatCompletionUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(url, "", time.Second)
	_, err := client.CreateChatCompletion(context.Background(), testRequest())
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func TestClientCreateChatCompletionTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(server.URL, "", 50*time.Millisecond)
	_, err := client.CreateChatCompletion(context.Background(), testRequest())
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected unavailable error on timeout, got %v", err)
	}
}

func TestClientMisconfigured(t *testing.T) {
	client := NewClient("", "", time.Second)
	_, err := client.CreateChatCompletion(context.Background(), testRequest())
	if !errors.Is(err, domain.ErrMisconfiguredEndpoint) {
		t.Fatalf("expected misconfigured error, got %v", err)
	}
	if _, err := client.ListModels(context.Background()); !errors.Is(err, domain.ErrMisconfiguredEndpoint) {
		t.Fatalf("expected misconfigured error, got %v", err)
	}
}

func TestClientListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"object":"list","data":[{"id":"m1","object":"model","created":1,"owned_by":"me"}]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(models) != 1 || models[0].ID != "m1" {
		t.Fatalf("unexpected models: %+v", models)
	}
}

func TestMockClientEchoesLastUserMessage(t *testing.T) {
	client := NewMockClient()
	result, err := client.CreateChatCompletion(context.Background(), &ChatCompletionRequest{
		Model: "mock-model",
		Messages: []domain.ChatMessage{
			{Role: "user", Content: "first"},
			{Role: "assistant", Content: "reply"},
			{Role: "user", Content: "second"},
		},
	})
	if err != nil {
		t.Fatalf("CreateChatCompletion failed: %v", err)
	}
	want := `[MOCK] Received your message: "second" (3 messages in context).`
	if result.Content != want {
		t.Fatalf("unexpected content: %q", result.Content)
	}
	if _, ok := result.Raw["choices"]; !ok {
		t.Fatalf("raw reply missing choices: %v", result.Raw)
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	s := strings.Repeat("é", 60) // two bytes per rune
	got := truncate(s, 101)
	if !utf8.ValidString(got) {
		t.Fatalf("truncate produced invalid UTF-8: %q", got)
	}
	if got != strings.Repeat("é", 50)+"..." {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if truncate("short", 100) != "short" {
		t.Fatalf("short strings must be unchanged")
	}

	result, err := NewMockClient().CreateChatCompletion(context.Background(), &ChatCompletionRequest{
		Model:    "mock-model",
		Messages: []domain.ChatMessage{{Role: "user", Content: strings.Repeat("日本", 40)}},
	})
	if err != nil {
		t.Fatalf("CreateChatCompletion failed: %v", err)
	}
	if !utf8.ValidString(result.Content) {
		t.Fatalf("mock reply is not valid UTF-8: %q", result.Content)
	}
}
