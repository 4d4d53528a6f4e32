package app

import (
	"github.com/ovrelid/rpchat-backend/internal/chat"
	redisclient "github.com/ovrelid/rpchat-backend/internal/clients/redis"
	"github.com/ovrelid/rpchat-backend/internal/ingestion"
	"github.com/ovrelid/rpchat-backend/internal/llm"
	"github.com/ovrelid/rpchat-backend/internal/platform/logger"
	"github.com/ovrelid/rpchat-backend/internal/prompt"
)

type Services struct {
	TemplateRegistry *prompt.Registry
	Orchestrator     *chat.Orchestrator
	Ingestion        *ingestion.Service
	EmbedCache       *redisclient.EmbedCache
}

func wireServices(log *logger.Logger, cfg Config, reposet Repos) (Services, error) {
	log.Info("Wiring services...")

	llmCfg := llm.Config{
		Timeout:     cfg.RequestTimeout,
		MaxRetries:  cfg.MaxRetries,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}

	registry := prompt.NewRegistry(reposet.PromptTemplate, log)

	embedCache, err := redisclient.NewEmbedCache(log)
	if err != nil {
		return Services{}, err
	}
	if embedCache == nil {
		log.Info("Redis not configured, embedding cache disabled")
	}

	orchestrator := chat.NewOrchestrator(
		log,
		reposet.Conversation,
		reposet.Character,
		reposet.Message,
		reposet.Provider,
		reposet.KBChunk,
		registry,
		embedCache,
		nil,
		chat.Config{
			HistoryMaxMessages: cfg.HistoryMaxMessages,
			HistoryMaxChars:    cfg.HistoryMaxChars,
			ContextMaxChars:    cfg.ContextMaxChars,
			RequestTimeout:     cfg.RequestTimeout,
			Provider:           llmCfg,
		},
	)

	chunker := ingestion.NewChunker(cfg.ChunkTokens, cfg.OverlapTokens, 4.0)
	ingestionSvc := ingestion.NewService(log, reposet.KBChunk, reposet.Provider, chunker, llmCfg)

	return Services{
		TemplateRegistry: registry,
		Orchestrator:     orchestrator,
		Ingestion:        ingestionSvc,
		EmbedCache:       embedCache,
	}, nil
}
