package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/ovrelid/rpchat-backend/internal/domain"
	"github.com/ovrelid/rpchat-backend/internal/pkg/errors"
	"github.com/ovrelid/rpchat-backend/internal/platform/logger"
	"github.com/ovrelid/rpchat-backend/internal/prompt"
)

const hfInferenceBase = "https://api-inference.huggingface.co/models"

// inferenceClient speaks the single-string generation protocol used by
// hosted inference endpoints. The endpoint has no concept of role-tagged
// messages, so the composed segments are flattened into one prompt string
// and the assistant reply is carved back out of the generated text.
type inferenceClient struct {
	caller
	endpoint    string
	temperature float64
	maxTokens   int
}

func newInferenceClient(p *domain.Provider, cfg Config, log *logger.Logger) *inferenceClient {
	cfg = cfg.withDefaults()
	endpoint := strings.TrimRight(p.BaseURL, "/")
	if endpoint == "" {
		endpoint = fmt.Sprintf("%s/%s", hfInferenceBase, p.ChatModelID)
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 100
	}
	return &inferenceClient{
		caller:      newCaller(log.With("service", "inference_client"), p.APIKey, cfg),
		endpoint:    endpoint,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
	}
}

// FlattenSegments renders role-tagged segments as a single prompt string:
// system content verbatim, user and assistant turns prefixed with their
// role, ending with an assistant-priming marker.
func FlattenSegments(segments []prompt.Segment) string {
	parts := make([]string, 0, len(segments)+1)
	for _, s := range segments {
		switch s.Role {
		case domain.RoleSystem:
			parts = append(parts, s.Content+"\n")
		case domain.RoleUser:
			parts = append(parts, "User: "+s.Content)
		case domain.RoleAssistant:
			parts = append(parts, "Assistant: "+s.Content)
		}
	}
	parts = append(parts, "Assistant:")
	return strings.Join(parts, "\n")
}

type inferenceRequest struct {
	Inputs     string              `json:"inputs"`
	Parameters inferenceParameters `json:"parameters"`
	Options    inferenceOptions    `json:"options"`
}

type inferenceParameters struct {
	MaxNewTokens      int     `json:"max_new_tokens"`
	Temperature       float64 `json:"temperature"`
	DoSample          bool    `json:"do_sample"`
	TopP              float64 `json:"top_p"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
	ReturnFullText    bool    `json:"return_full_text"`
}

type inferenceOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

func (c *inferenceClient) CreateChatCompletion(ctx context.Context, segments []prompt.Segment) (Completion, error) {
	promptText := FlattenSegments(segments)

	req := inferenceRequest{
		Inputs: promptText,
		Parameters: inferenceParameters{
			MaxNewTokens:      c.maxTokens,
			Temperature:       c.temperature,
			DoSample:          true,
			TopP:              0.9,
			RepetitionPenalty: 1.1,
			ReturnFullText:    true,
		},
		Options: inferenceOptions{WaitForModel: true},
	}

	start := time.Now()
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, c.endpoint, req, &raw); err != nil {
		return Completion{}, err
	}
	latency := time.Since(start)

	generated, err := parseGeneratedText(raw)
	if err != nil {
		return Completion{}, err
	}
	return Completion{Text: extractAssistantReply(generated, promptText), Latency: latency}, nil
}

// CreateEmbedding always fails: the generation endpoint has no embedding
// surface. Callers downgrade retrieval rather than aborting the chat.
func (c *inferenceClient) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.Newf(errors.KindEmbeddingUnsupported, "inference endpoints do not support embeddings")
}

// parseGeneratedText handles both response shapes the endpoint produces: a
// one-element array of objects, or a bare object.
func parseGeneratedText(raw json.RawMessage) (string, error) {
	type generation struct {
		GeneratedText string `json:"generated_text"`
	}
	var list []generation
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return "", errors.Newf(errors.KindProviderProtocol, "inference response is an empty array")
		}
		return list[0].GeneratedText, nil
	}
	var single generation
	if err := json.Unmarshal(raw, &single); err != nil {
		return "", errors.Newf(errors.KindProviderProtocol, "unexpected inference response shape: %s", string(raw))
	}
	return single.GeneratedText, nil
}

var collapseWhitespace = regexp.MustCompile(`\s+`)

var specialTokens = []string{
	"<s>", "</s>", "<|endoftext|>", "<|user|>", "<|assistant|>",
	"<user>", "</user>", "<assistant>", "</assistant>",
	"<pad>", "</pad>", "<unk>",
}

// extractAssistantReply strips the echoed prompt from the generated text and
// cleans up artifacts the base models tend to emit.
func extractAssistantReply(generated, promptText string) string {
	var reply string
	if strings.HasPrefix(generated, promptText) {
		reply = strings.TrimSpace(generated[len(promptText):])
	} else if idx := strings.LastIndex(generated, "Assistant:"); idx >= 0 {
		reply = strings.TrimSpace(generated[idx+len("Assistant:"):])
	} else {
		reply = strings.TrimSpace(generated)
	}

	for _, tok := range specialTokens {
		reply = strings.ReplaceAll(reply, tok, "")
	}
	if idx := strings.Index(reply, "User:"); idx >= 0 {
		reply = reply[:idx]
	}
	reply = collapseWhitespace.ReplaceAllString(strings.TrimSpace(reply), " ")
	reply = strings.Trim(reply, `"'`)
	return reply
}
