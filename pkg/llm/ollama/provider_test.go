package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kart-io/lectern/pkg/llm"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.BaseURL != "http://localhost:11434" {
		t.Errorf("expected BaseURL http://localhost:11434, got %s", cfg.BaseURL)
	}
	if cfg.EmbedModel != "nomic-embed-text" {
		t.Errorf("expected EmbedModel nomic-embed-text, got %s", cfg.EmbedModel)
	}
	if cfg.ChatModel != "qwen2.5:7b" {
		t.Errorf("expected ChatModel qwen2.5:7b, got %s", cfg.ChatModel)
	}
	if cfg.Timeout != 120*time.Second {
		t.Errorf("expected Timeout 120s, got %v", cfg.Timeout)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("expected MaxRetries 3, got %d", cfg.MaxRetries)
	}
}

func TestNewProvider(t *testing.T) {
	provider, err := NewProvider(map[string]any{
		"base_url":    "http://ollama:11434",
		"embed_model": "mxbai-embed-large",
		"chat_model":  "llama3.1:8b",
		"max_retries": 5,
	})
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	if provider.Name() != ProviderName {
		t.Errorf("expected provider name %s, got %s", ProviderName, provider.Name())
	}

	p, ok := provider.(*Provider)
	if !ok {
		t.Fatal("provider is not *Provider type")
	}
	if p.config.BaseURL != "http://ollama:11434" {
		t.Errorf("expected BaseURL http://ollama:11434, got %s", p.config.BaseURL)
	}
	if p.config.EmbedModel != "mxbai-embed-large" {
		t.Errorf("expected EmbedModel mxbai-embed-large, got %s", p.config.EmbedModel)
	}
	if p.config.ChatModel != "llama3.1:8b" {
		t.Errorf("expected ChatModel llama3.1:8b, got %s", p.config.ChatModel)
	}
	if p.config.MaxRetries != 5 {
		t.Errorf("expected MaxRetries 5, got %d", p.config.MaxRetries)
	}
}

func TestProviderEmbed(t *testing.T) {
	var receivedReq embedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("expected path /api/embed, got %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&receivedReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}

		resp := embedResponse{
			Model: "nomic-embed-text",
			Embeddings: [][]float32{
				{0.1, 0.2, 0.3},
				{0.4, 0.5, 0.6},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	provider := NewProviderWithConfig(cfg)

	embeddings, err := provider.Embed(context.Background(), []string{"text1", "text2"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if len(embeddings) != 2 {
		t.Errorf("expected 2 embeddings, got %d", len(embeddings))
	}
	if len(embeddings[0]) != 3 {
		t.Errorf("expected embedding dimension 3, got %d", len(embeddings[0]))
	}
	if receivedReq.Model != "nomic-embed-text" {
		t.Errorf("unexpected embed model %s", receivedReq.Model)
	}
	if len(receivedReq.Input) != 2 {
		t.Errorf("expected 2 inputs, got %d", len(receivedReq.Input))
	}
}

func TestProviderEmbedEmpty(t *testing.T) {
	provider := NewProviderWithConfig(DefaultConfig())

	embeddings, err := provider.Embed(context.Background(), []string{})
	if err != nil {
		t.Fatalf("Embed with empty texts failed: %v", err)
	}
	if embeddings != nil {
		t.Error("expected nil embeddings for empty input")
	}
}

func chatHandlerReturning(msg chatMessage) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := chatResponse{
			Model:           "qwen2.5:7b",
			Message:         msg,
			Done:            true,
			PromptEvalCount: 12,
			EvalCount:       7,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func TestProviderChat(t *testing.T) {
	server := httptest.NewServer(chatHandlerReturning(chatMessage{
		Role:    "assistant",
		Content: "test response",
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	provider := NewProviderWithConfig(cfg)

	response, err := provider.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "hello"},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if response != "test response" {
		t.Errorf("expected response 'test response', got '%s'", response)
	}
}

func TestProviderGenerate(t *testing.T) {
	var receivedReq generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("expected path /api/generate, got %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&receivedReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}

		resp := generateResponse{Model: "qwen2.5:7b", Response: "generated text", Done: true}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	provider := NewProviderWithConfig(cfg)

	response, err := provider.Generate(context.Background(), "write something", "you are a helper")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if response != "generated text" {
		t.Errorf("expected response 'generated text', got '%s'", response)
	}
	if receivedReq.System != "you are a helper" {
		t.Errorf("system prompt not forwarded, got '%s'", receivedReq.System)
	}
}

func TestChatWithTools(t *testing.T) {
	var receivedReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&receivedReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}

		// Ollama reports arguments as a JSON object, not a string.
		var call chatToolCall
		call.Function.Name = "search_course_content"
		call.Function.Arguments = json.RawMessage(`{"query":"lesson topics","lesson_number":2}`)

		chatHandlerReturning(chatMessage{
			Role:      "assistant",
			Content:   "",
			ToolCalls: []chatToolCall{call},
		})(w, r)
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	provider := NewProviderWithConfig(cfg)

	tools := []llm.Tool{{
		Name:        "search_course_content",
		Description: "Search course materials",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string"},
			},
			"required": []string{"query"},
		},
	}}

	resp, err := provider.ChatWithTools(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "what does lesson 2 cover?"},
	}, tools)
	if err != nil {
		t.Fatalf("ChatWithTools failed: %v", err)
	}

	if len(receivedReq.Tools) != 1 {
		t.Fatalf("expected 1 tool in request, got %d", len(receivedReq.Tools))
	}
	if receivedReq.Tools[0].Type != "function" {
		t.Errorf("expected tool type function, got %s", receivedReq.Tools[0].Type)
	}
	if receivedReq.Tools[0].Function.Name != "search_course_content" {
		t.Errorf("unexpected tool name %s", receivedReq.Tools[0].Function.Name)
	}

	if !resp.StopOnToolUse() {
		t.Fatal("expected tool-use stop")
	}
	if resp.ToolCalls[0].ID != "call_0" {
		t.Errorf("expected synthesized id call_0, got %s", resp.ToolCalls[0].ID)
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(resp.ToolCalls[0].Arguments), &args); err != nil {
		t.Fatalf("arguments are not valid JSON: %v", err)
	}
	if args["query"] != "lesson topics" {
		t.Errorf("unexpected query argument %v", args["query"])
	}

	if resp.Usage.PromptTokens != 12 || resp.Usage.CompletionTokens != 7 {
		t.Errorf("unexpected usage %+v", resp.Usage)
	}
	if resp.Usage.TotalTokens != 19 {
		t.Errorf("expected 19 total tokens, got %d", resp.Usage.TotalTokens)
	}
}

func TestChatWithToolsRoundTripsToolMessages(t *testing.T) {
	var receivedReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&receivedReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		chatHandlerReturning(chatMessage{Role: "assistant", Content: "final answer"})(w, r)
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	provider := NewProviderWithConfig(cfg)

	messages := []llm.Message{
		{Role: llm.RoleUser, Content: "question"},
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{
			{ID: "call_0", Name: "get_course_outline", Arguments: `{"course_name":"MCP"}`},
		}},
		{Role: llm.RoleTool, ToolCallID: "call_0", Content: "outline text"},
	}

	resp, err := provider.ChatWithTools(context.Background(), messages, nil)
	if err != nil {
		t.Fatalf("ChatWithTools failed: %v", err)
	}
	if resp.Content != "final answer" {
		t.Errorf("expected 'final answer', got '%s'", resp.Content)
	}
	if resp.StopOnToolUse() {
		t.Error("expected no tool calls in final response")
	}

	if len(receivedReq.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(receivedReq.Messages))
	}
	if len(receivedReq.Messages[1].ToolCalls) != 1 {
		t.Fatal("assistant message lost its tool calls")
	}
	if receivedReq.Messages[2].Role != "tool" {
		t.Errorf("expected tool role, got %s", receivedReq.Messages[2].Role)
	}
	if len(receivedReq.Tools) != 0 {
		t.Errorf("expected no tools in request, got %d", len(receivedReq.Tools))
	}
}

func TestServerErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.MaxRetries = 0
	provider := NewProviderWithConfig(cfg)

	_, err := provider.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "hello"},
	})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if !errors.Is(err, llm.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestConnectFailureIsUnavailable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseURL = "http://127.0.0.1:1"
	cfg.MaxRetries = 0
	cfg.Timeout = time.Second
	provider := NewProviderWithConfig(cfg)

	_, err := provider.Embed(context.Background(), []string{"text"})
	if err == nil {
		t.Fatal("expected error for unreachable server")
	}
	if !errors.Is(err, llm.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("expected path /api/tags, got %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"models":[{"name":"qwen2.5:7b"},{"name":"nomic-embed-text"}]}`))
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	provider := NewProviderWithConfig(cfg)

	if err := provider.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	models, err := provider.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(models))
	}
	if models[0] != "qwen2.5:7b" {
		t.Errorf("unexpected model name %s", models[0])
	}
}
