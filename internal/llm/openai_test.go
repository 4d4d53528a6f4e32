package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ovrelid/rpchat-backend/internal/domain"
	"github.com/ovrelid/rpchat-backend/internal/pkg/errors"
	"github.com/ovrelid/rpchat-backend/internal/platform/logger"
	"github.com/ovrelid/rpchat-backend/internal/prompt"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger init failed: %v", err)
	}
	return log
}

func testProvider(baseURL, protocol string) *domain.Provider {
	return &domain.Provider{
		Name:             "test",
		Protocol:         protocol,
		BaseURL:          baseURL,
		APIKey:           "sk-test-key",
		ChatModelID:      "test-model",
		EmbeddingModelID: "test-embed",
	}
}

func TestOpenAIChatCompletion(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth string
	var gotBody chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "Hello there!"}},
			},
		})
	}))
	defer srv.Close()

	client, err := NewClient(testProvider(srv.URL, domain.ProtocolOpenAICompatible), Config{MaxRetries: 0}, testLogger(t))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	completion, err := client.CreateChatCompletion(context.Background(), []prompt.Segment{
		{Role: domain.RoleSystem, Content: "be brief"},
		{Role: domain.RoleUser, Content: "hi"},
	})
	if err != nil {
		t.Fatalf("CreateChatCompletion failed: %v", err)
	}
	if completion.Text != "Hello there!" {
		t.Fatalf("unexpected completion text: %q", completion.Text)
	}
	if completion.Latency <= 0 {
		t.Fatalf("latency not measured")
	}
	if gotPath != "/chat/completions" {
		t.Fatalf("unexpected path: %q", gotPath)
	}
	if gotAuth != "Bearer sk-test-key" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotBody.Model != "test-model" || gotBody.Stream {
		t.Fatalf("unexpected request body: %+v", gotBody)
	}
	if len(gotBody.Messages) != 2 || gotBody.Messages[0].Role != domain.RoleSystem {
		t.Fatalf("segments not passed through: %+v", gotBody.Messages)
	}
}

func TestOpenAIAuthErrorMapping(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client, err := NewClient(testProvider(srv.URL, domain.ProtocolOpenAICompatible), Config{MaxRetries: 0}, testLogger(t))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = client.CreateChatCompletion(context.Background(), []prompt.Segment{{Role: domain.RoleUser, Content: "hi"}})
	if !errors.IsKind(err, errors.KindProviderAuth) {
		t.Fatalf("expected provider_auth_error, got %v", err)
	}
}

func TestOpenAITimeoutMapping(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client, err := NewClient(testProvider(srv.URL, domain.ProtocolOpenAICompatible), Config{Timeout: 20 * time.Millisecond, MaxRetries: 0}, testLogger(t))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = client.CreateChatCompletion(context.Background(), []prompt.Segment{{Role: domain.RoleUser, Content: "hi"}})
	if !errors.IsKind(err, errors.KindProviderTimeout) {
		t.Fatalf("expected provider_timeout, got %v", err)
	}
}

func TestOpenAIEmptyChoicesIsProtocolError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	client, err := NewClient(testProvider(srv.URL, domain.ProtocolOpenAICompatible), Config{MaxRetries: 0}, testLogger(t))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = client.CreateChatCompletion(context.Background(), []prompt.Segment{{Role: domain.RoleUser, Content: "hi"}})
	if !errors.IsKind(err, errors.KindProviderProtocol) {
		t.Fatalf("expected provider_protocol_error, got %v", err)
	}
}

func TestOpenAICreateEmbedding(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %q", r.URL.Path)
		}
		// Out-of-order indices must still land in input order.
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"embedding": []float64{0.3, 0.4}, "index": 1},
				{"embedding": []float64{0.1, 0.2}, "index": 0},
			},
		})
	}))
	defer srv.Close()

	client, err := NewClient(testProvider(srv.URL, domain.ProtocolOpenAICompatible), Config{MaxRetries: 0}, testLogger(t))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	vectors, err := client.CreateEmbedding(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("CreateEmbedding failed: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vectors))
	}
	if vectors[0][0] != 0.1 || vectors[1][0] != 0.3 {
		t.Fatalf("vectors not ordered by index: %v", vectors)
	}
}

func TestOpenAIEmbeddingWithoutModel(t *testing.T) {
	t.Parallel()

	p := testProvider("http://localhost:1", domain.ProtocolOpenAICompatible)
	p.EmbeddingModelID = ""
	client, err := NewClient(p, Config{MaxRetries: 0}, testLogger(t))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = client.CreateEmbedding(context.Background(), []string{"a"})
	if !errors.IsKind(err, errors.KindEmbeddingUnsupported) {
		t.Fatalf("expected embedding_unsupported, got %v", err)
	}
}

func TestFactoryRejectsUnknownProtocol(t *testing.T) {
	t.Parallel()

	p := testProvider("http://localhost:1", "smoke-signal")
	if _, err := NewClient(p, Config{}, testLogger(t)); !errors.IsKind(err, errors.KindProviderProtocol) {
		t.Fatalf("expected provider_protocol_error, got %v", err)
	}
}
