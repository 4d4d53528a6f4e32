// Package chat is the orchestration facade: one SendMessage entry point that
// runs embedding, retrieval, composition, and provider dispatch for a single
// inbound chat turn.
package chat

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/ovrelid/rpchat-backend/internal/clients/redis"
	"github.com/ovrelid/rpchat-backend/internal/domain"
	"github.com/ovrelid/rpchat-backend/internal/llm"
	"github.com/ovrelid/rpchat-backend/internal/pkg/dbctx"
	"github.com/ovrelid/rpchat-backend/internal/pkg/errors"
	"github.com/ovrelid/rpchat-backend/internal/platform/logger"
	"github.com/ovrelid/rpchat-backend/internal/prompt"
	"github.com/ovrelid/rpchat-backend/internal/retrieval"
)

// Store interfaces are the minimal persistence surface the facade needs;
// the gorm repos satisfy them, tests supply fakes.
type ConversationStore interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Conversation, error)
	Touch(dbc dbctx.Context, id uuid.UUID, at time.Time) error
}

type CharacterStore interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Character, error)
}

type MessageStore interface {
	Create(dbc dbctx.Context, rows []*domain.Message) ([]*domain.Message, error)
	GetMaxSeq(dbc dbctx.Context, conversationID uuid.UUID) (int64, error)
	ListRecent(dbc dbctx.Context, conversationID uuid.UUID, limit int) ([]*domain.Message, error)
}

type ProviderStore interface {
	GetActive(dbc dbctx.Context) (*domain.Provider, error)
}

type ChunkStore interface {
	ListByKnowledgeBases(dbc dbctx.Context, kbIDs []uuid.UUID) ([]*domain.KBChunk, error)
}

// TemplateResolver resolves every template key to its active text.
type TemplateResolver interface {
	ResolveAll(ctx context.Context) (map[string]string, error)
}

// ClientFactory builds a provider adapter; injectable so tests can stub the
// wire protocol entirely.
type ClientFactory func(p *domain.Provider, cfg llm.Config, log *logger.Logger) (llm.Client, error)

// Config tunes one orchestration call.
type Config struct {
	// HistoryMaxMessages caps how many recent messages are even fetched.
	HistoryMaxMessages int
	// HistoryMaxChars is the character budget for included history.
	HistoryMaxChars int
	// ContextMaxChars bounds the template layers (drop-if-tight rule).
	ContextMaxChars int
	// RequestTimeout bounds each provider call (embedding and generation).
	RequestTimeout time.Duration
	// Provider tunes the adapter itself.
	Provider llm.Config
}

func (c Config) withDefaults() Config {
	if c.HistoryMaxMessages <= 0 {
		c.HistoryMaxMessages = 20
	}
	if c.HistoryMaxChars <= 0 {
		c.HistoryMaxChars = 8000
	}
	if c.ContextMaxChars <= 0 {
		c.ContextMaxChars = 16000
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 120 * time.Second
	}
	return c
}

// Orchestrator wires the stores, template registry, and adapter factory into
// the send-message flow.
type Orchestrator struct {
	log           *logger.Logger
	conversations ConversationStore
	characters    CharacterStore
	messages      MessageStore
	providers     ProviderStore
	chunks        ChunkStore
	templates     TemplateResolver
	embedCache    *redisclient.EmbedCache
	newClient     ClientFactory
	cfg           Config
}

func NewOrchestrator(
	log *logger.Logger,
	conversations ConversationStore,
	characters CharacterStore,
	messages MessageStore,
	providers ProviderStore,
	chunks ChunkStore,
	templates TemplateResolver,
	embedCache *redisclient.EmbedCache,
	newClient ClientFactory,
	cfg Config,
) *Orchestrator {
	if newClient == nil {
		newClient = llm.NewClient
	}
	return &Orchestrator{
		log:           log.With("service", "chat_orchestrator"),
		conversations: conversations,
		characters:    characters,
		messages:      messages,
		providers:     providers,
		chunks:        chunks,
		templates:     templates,
		embedCache:    embedCache,
		newClient:     newClient,
		cfg:           cfg.withDefaults(),
	}
}

// SendMessageInput is one inbound chat turn.
type SendMessageInput struct {
	ConversationID uuid.UUID
	Content        string
	KnowledgeBases []uuid.UUID
}

// SendMessageResult carries the two messages produced by a turn. On a
// dispatch failure the result is still returned alongside the error with
// UserMessage populated, so the caller never loses the typed text.
type SendMessageResult struct {
	UserMessage      *domain.Message
	AssistantMessage *domain.Message
	RAGSnippetsUsed  int
	Latency          time.Duration
}

// SendMessage runs one chat turn end to end: load state, embed and retrieve
// when knowledge bases are attached, compose the prompt, dispatch to the
// active provider, and persist both new messages. The user message is
// persisted before dispatch so a provider failure never loses it.
func (o *Orchestrator) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageResult, error) {
	dbc := dbctx.New(ctx)

	conversation, err := o.conversations.GetByID(dbc, in.ConversationID)
	if err != nil {
		return nil, err
	}

	var character *domain.Character
	if conversation.CharacterID != nil {
		character, err = o.characters.GetByID(dbc, *conversation.CharacterID)
		if err != nil && !stderrors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
	}

	provider, err := o.providers.GetActive(dbc)
	if err != nil {
		if stderrors.Is(err, errors.ErrNotFound) {
			return nil, errors.Newf(errors.KindNoActiveProvider, "no active provider configured")
		}
		return nil, err
	}

	client, err := o.newClient(provider, o.cfg.Provider, o.log)
	if err != nil {
		return nil, err
	}

	history, err := o.loadHistory(dbc, conversation.ID)
	if err != nil {
		return nil, err
	}

	snippets, used, err := o.retrieve(ctx, client, provider, conversation, in)
	if err != nil {
		return nil, err
	}

	templates, err := o.templates.ResolveAll(ctx)
	if err != nil {
		return nil, err
	}

	charSystem := ""
	if character != nil {
		charSystem = character.SystemPrompt
	}
	segments, _ := prompt.Compose(prompt.ComposeInput{
		Templates:       templates,
		Vars:            prompt.Variables(character, "", time.Now()),
		Snippets:        snippets,
		History:         history,
		CharacterSystem: charSystem,
		UserInput:       in.Content,
		ContextMaxChars: o.cfg.ContextMaxChars,
	})

	seq, err := o.messages.GetMaxSeq(dbc, conversation.ID)
	if err != nil {
		return nil, err
	}
	userMsg := &domain.Message{
		ConversationID: conversation.ID,
		Seq:            seq + 1,
		Role:           domain.RoleUser,
		Content:        in.Content,
	}
	if _, err := o.messages.Create(dbc, []*domain.Message{userMsg}); err != nil {
		return nil, err
	}

	result := &SendMessageResult{UserMessage: userMsg, RAGSnippetsUsed: used}

	callCtx, cancel := context.WithTimeout(ctx, o.cfg.RequestTimeout)
	defer cancel()
	completion, err := client.CreateChatCompletion(callCtx, segments)
	if err != nil {
		o.log.Warn("chat dispatch failed",
			"conversation_id", conversation.ID.String(),
			"provider_id", provider.ID.String(),
			"kind", string(errors.KindOf(err)),
			"error", err.Error(),
		)
		return result, err
	}
	result.Latency = completion.Latency

	assistantMsg := &domain.Message{
		ConversationID: conversation.ID,
		Seq:            seq + 2,
		Role:           domain.RoleAssistant,
		Content:        completion.Text,
	}
	if _, err := o.messages.Create(dbc, []*domain.Message{assistantMsg}); err != nil {
		return result, err
	}
	result.AssistantMessage = assistantMsg

	if err := o.conversations.Touch(dbc, conversation.ID, time.Now().UTC()); err != nil {
		o.log.Warn("conversation touch failed", "conversation_id", conversation.ID.String(), "error", err.Error())
	}

	return result, nil
}

func (o *Orchestrator) loadHistory(dbc dbctx.Context, conversationID uuid.UUID) ([]prompt.Segment, error) {
	rows, err := o.messages.ListRecent(dbc, conversationID, o.cfg.HistoryMaxMessages)
	if err != nil {
		return nil, err
	}
	segments := make([]prompt.Segment, 0, len(rows))
	for _, m := range rows {
		segments = append(segments, prompt.Segment{Role: m.Role, Content: m.Content})
	}
	return prompt.FitHistory(segments, o.cfg.HistoryMaxChars), nil
}

// retrieve runs the embedding and ranking stages. Retrieval is best effort
// in two cases: the provider has no embedding surface, or the stored chunks
// have a mismatched embedding dimension. Both degrade to an empty result so
// the chat still goes through. Every other failure aborts the turn.
func (o *Orchestrator) retrieve(ctx context.Context, client llm.Client, provider *domain.Provider, conversation *domain.Conversation, in SendMessageInput) ([]prompt.Snippet, int, error) {
	if len(in.KnowledgeBases) == 0 {
		return nil, 0, nil
	}
	if !provider.SupportsEmbedding() {
		o.log.Info("retrieval skipped, provider has no embedding model", "provider_id", provider.ID.String())
		return nil, 0, nil
	}

	query := o.embedCache.Get(ctx, provider.ID.String(), provider.EmbeddingModelID, in.Content)
	if query == nil {
		callCtx, cancel := context.WithTimeout(ctx, o.cfg.RequestTimeout)
		defer cancel()
		vectors, err := client.CreateEmbedding(callCtx, []string{in.Content})
		if err != nil {
			if errors.IsKind(err, errors.KindEmbeddingUnsupported) {
				return nil, 0, nil
			}
			return nil, 0, err
		}
		if len(vectors) == 0 {
			return nil, 0, errors.Newf(errors.KindProviderProtocol, "embedding call returned no vectors")
		}
		query = vectors[0]
		o.embedCache.Put(ctx, provider.ID.String(), provider.EmbeddingModelID, in.Content, query)
	}

	candidates, err := o.chunks.ListByKnowledgeBases(dbctx.New(ctx), in.KnowledgeBases)
	if err != nil {
		return nil, 0, err
	}

	ranked, err := retrieval.Rank(query, candidates, conversation.SimilarityThreshold, conversation.TopK)
	if err != nil {
		if errors.IsKind(err, errors.KindEmbeddingDimensionMismatch) {
			o.log.Warn("retrieval degraded, embedding dimension mismatch", "error", err.Error())
			return nil, 0, nil
		}
		return nil, 0, err
	}

	snippets := make([]prompt.Snippet, 0, len(ranked))
	for _, r := range ranked {
		snippets = append(snippets, prompt.Snippet{Source: r.Chunk.SourceFilename, Text: r.Chunk.ChunkText})
	}
	return snippets, len(snippets), nil
}

// FirstMessage renders a character's opening line through the placeholder
// resolver. Returns "" when the character has none.
func FirstMessage(character *domain.Character, now time.Time) string {
	if character == nil || character.FirstMessage == "" {
		return ""
	}
	return prompt.Substitute(character.FirstMessage, prompt.Variables(character, "", now))
}
