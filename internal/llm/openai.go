package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ovrelid/rpchat-backend/internal/domain"
	"github.com/ovrelid/rpchat-backend/internal/pkg/errors"
	"github.com/ovrelid/rpchat-backend/internal/platform/logger"
	"github.com/ovrelid/rpchat-backend/internal/prompt"
)

// openaiClient speaks the OpenAI-compatible chat-completions protocol. It
// works against any gateway exposing /chat/completions and /embeddings.
type openaiClient struct {
	caller
	baseURL     string
	chatModel   string
	embedModel  string
	temperature float64
	maxTokens   int
}

func newOpenAIClient(p *domain.Provider, cfg Config, log *logger.Logger) *openaiClient {
	cfg = cfg.withDefaults()
	return &openaiClient{
		caller:      newCaller(log.With("service", "openai_client"), p.APIKey, cfg),
		baseURL:     strings.TrimRight(p.BaseURL, "/"),
		chatModel:   p.ChatModelID,
		embedModel:  p.EmbeddingModelID,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *openaiClient) CreateChatCompletion(ctx context.Context, segments []prompt.Segment) (Completion, error) {
	messages := make([]chatMessage, 0, len(segments))
	for _, s := range segments {
		messages = append(messages, chatMessage{Role: s.Role, Content: s.Content})
	}

	req := chatCompletionRequest{
		Model:       c.chatModel,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Stream:      false,
	}

	start := time.Now()
	var resp chatCompletionResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/chat/completions", req, &resp); err != nil {
		return Completion{}, err
	}
	latency := time.Since(start)

	if len(resp.Choices) == 0 {
		return Completion{}, errors.Newf(errors.KindProviderProtocol, "chat completion returned no choices")
	}
	return Completion{Text: resp.Choices[0].Message.Content, Latency: latency}, nil
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (c *openaiClient) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if c.embedModel == "" {
		return nil, errors.Newf(errors.KindEmbeddingUnsupported, "provider has no embedding model configured")
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var resp embeddingsResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/embeddings", embeddingsRequest{Model: c.embedModel, Input: texts}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, errors.Newf(errors.KindProviderProtocol, "embeddings response has %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(out) {
			return nil, errors.Newf(errors.KindProviderProtocol, "embeddings response index %d out of range", item.Index)
		}
		out[item.Index] = item.Embedding
	}
	return out, nil
}
