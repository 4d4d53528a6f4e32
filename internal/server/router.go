package server

import (
	"github.com/gin-gonic/gin"

	"github.com/ovrelid/rpchat-backend/internal/http/handlers"
	"github.com/ovrelid/rpchat-backend/internal/http/middleware"
	"github.com/ovrelid/rpchat-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log                 *logger.Logger
	HealthHandler       *handlers.HealthHandler
	CharacterHandler    *handlers.CharacterHandler
	ConversationHandler *handlers.ConversationHandler
	ProviderHandler     *handlers.ProviderHandler
	TemplateHandler     *handlers.TemplateHandler
	KnowledgeHandler    *handlers.KnowledgeHandler
	DiscoverHandler     *handlers.DiscoverHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(middleware.CORS())
	router.Use(middleware.RequestLogger(cfg.Log))

	api := router.Group("/api")

	api.GET("/health", cfg.HealthHandler.Health)

	characters := api.Group("/characters")
	{
		characters.GET("", cfg.CharacterHandler.List)
		characters.POST("", cfg.CharacterHandler.Create)
		characters.POST("/import", cfg.CharacterHandler.Import)
		characters.GET("/:id", cfg.CharacterHandler.Get)
		characters.PUT("/:id", cfg.CharacterHandler.Update)
		characters.POST("/:id/favorite", cfg.CharacterHandler.ToggleFavorite)
		characters.DELETE("/:id", cfg.CharacterHandler.Delete)
	}

	conversations := api.Group("/conversations")
	{
		conversations.GET("", cfg.ConversationHandler.List)
		conversations.POST("", cfg.ConversationHandler.Create)
		conversations.GET("/:id", cfg.ConversationHandler.Get)
		conversations.PUT("/:id", cfg.ConversationHandler.Update)
		conversations.DELETE("/:id", cfg.ConversationHandler.Delete)
		conversations.GET("/:id/messages", cfg.ConversationHandler.ListMessages)
		conversations.POST("/:id/messages", cfg.ConversationHandler.SendMessage)
	}

	providers := api.Group("/providers")
	{
		providers.GET("", cfg.ProviderHandler.List)
		providers.POST("", cfg.ProviderHandler.Create)
		providers.GET("/:id", cfg.ProviderHandler.Get)
		providers.PUT("/:id", cfg.ProviderHandler.Update)
		providers.DELETE("/:id", cfg.ProviderHandler.Delete)
		providers.POST("/:id/activate", cfg.ProviderHandler.Activate)
		providers.POST("/:id/test", cfg.ProviderHandler.TestConnection)
		providers.POST("/:id/test-embedding", cfg.ProviderHandler.TestEmbedding)
	}

	templates := api.Group("/prompt-templates")
	{
		templates.GET("", cfg.TemplateHandler.List)
		templates.POST("/seed", cfg.TemplateHandler.Seed)
		templates.GET("/:key", cfg.TemplateHandler.Get)
		templates.PUT("/:key", cfg.TemplateHandler.Update)
		templates.DELETE("/:key", cfg.TemplateHandler.Reset)
	}

	official := api.Group("/discover/characters")
	{
		official.GET("", cfg.DiscoverHandler.List)
		official.GET("/:id", cfg.DiscoverHandler.Get)
		official.GET("/:id/avatar", cfg.DiscoverHandler.Avatar)
		official.POST("/:id/import", cfg.DiscoverHandler.Import)
		official.GET("/:id/download", cfg.DiscoverHandler.Download)
	}

	knowledge := api.Group("/knowledge-bases")
	{
		knowledge.GET("", cfg.KnowledgeHandler.List)
		knowledge.POST("", cfg.KnowledgeHandler.Create)
		knowledge.GET("/:id", cfg.KnowledgeHandler.Get)
		knowledge.PUT("/:id", cfg.KnowledgeHandler.Update)
		knowledge.DELETE("/:id", cfg.KnowledgeHandler.Delete)
		knowledge.GET("/:id/documents", cfg.KnowledgeHandler.ListDocuments)
		knowledge.DELETE("/:id/documents/:docId", cfg.KnowledgeHandler.DeleteDocument)
		knowledge.POST("/:id/upload", cfg.KnowledgeHandler.Upload)
		knowledge.POST("/:id/embed-all", cfg.KnowledgeHandler.EmbedAll)
	}

	return router
}
