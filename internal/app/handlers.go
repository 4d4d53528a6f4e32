package app

import (
	"github.com/ovrelid/rpchat-backend/internal/discover"
	"github.com/ovrelid/rpchat-backend/internal/http/handlers"
	"github.com/ovrelid/rpchat-backend/internal/llm"
	"github.com/ovrelid/rpchat-backend/internal/platform/logger"
)

type Handlers struct {
	Health       *handlers.HealthHandler
	Character    *handlers.CharacterHandler
	Conversation *handlers.ConversationHandler
	Provider     *handlers.ProviderHandler
	Template     *handlers.TemplateHandler
	Knowledge    *handlers.KnowledgeHandler
	Discover     *handlers.DiscoverHandler
}

func wireHandlers(log *logger.Logger, cfg Config, reposet Repos, serviceset Services) Handlers {
	log.Info("Wiring handlers...")

	llmCfg := llm.Config{
		Timeout:     cfg.RequestTimeout,
		MaxRetries:  cfg.MaxRetries,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}

	return Handlers{
		Health:    handlers.NewHealthHandler(),
		Character: handlers.NewCharacterHandler(log, reposet.Character),
		Conversation: handlers.NewConversationHandler(
			log,
			reposet.Conversation,
			reposet.Character,
			reposet.Message,
			reposet.Provider,
			serviceset.Orchestrator,
		),
		Provider:  handlers.NewProviderHandler(log, reposet.Provider, llmCfg),
		Template:  handlers.NewTemplateHandler(log, serviceset.TemplateRegistry),
		Knowledge: handlers.NewKnowledgeHandler(log, reposet.KnowledgeBase, reposet.KBChunk, serviceset.Ingestion),
		Discover: handlers.NewDiscoverHandler(
			log,
			discover.NewCatalog(cfg.CardsDir, log),
			reposet.Character,
			reposet.Conversation,
			reposet.Message,
		),
	}
}
