package app

import (
	"gorm.io/gorm"

	"github.com/ovrelid/rpchat-backend/internal/data/repos"
	"github.com/ovrelid/rpchat-backend/internal/platform/logger"
)

type Repos struct {
	Character      repos.CharacterRepo
	Conversation   repos.ConversationRepo
	Message        repos.MessageRepo
	Provider       repos.ProviderRepo
	KnowledgeBase  repos.KnowledgeBaseRepo
	KBChunk        repos.KBChunkRepo
	PromptTemplate repos.PromptTemplateRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Character:      repos.NewCharacterRepo(db, log),
		Conversation:   repos.NewConversationRepo(db, log),
		Message:        repos.NewMessageRepo(db, log),
		Provider:       repos.NewProviderRepo(db, log),
		KnowledgeBase:  repos.NewKnowledgeBaseRepo(db, log),
		KBChunk:        repos.NewKBChunkRepo(db, log),
		PromptTemplate: repos.NewPromptTemplateRepo(db, log),
	}
}
