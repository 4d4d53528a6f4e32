package app

import (
	"github.com/gin-gonic/gin"

	"github.com/ovrelid/rpchat-backend/internal/platform/logger"
	"github.com/ovrelid/rpchat-backend/internal/server"
)

func wireRouter(log *logger.Logger, handlerset Handlers) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		Log:                 log,
		HealthHandler:       handlerset.Health,
		CharacterHandler:    handlerset.Character,
		ConversationHandler: handlerset.Conversation,
		ProviderHandler:     handlerset.Provider,
		TemplateHandler:     handlerset.Template,
		KnowledgeHandler:    handlerset.Knowledge,
		DiscoverHandler:     handlerset.Discover,
	})
}
