package handlers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/ovrelid/rpchat-backend/internal/chat"
	"github.com/ovrelid/rpchat-backend/internal/data/repos"
	"github.com/ovrelid/rpchat-backend/internal/discover"
	"github.com/ovrelid/rpchat-backend/internal/domain"
	"github.com/ovrelid/rpchat-backend/internal/http/response"
	"github.com/ovrelid/rpchat-backend/internal/pkg/dbctx"
	"github.com/ovrelid/rpchat-backend/internal/pkg/errors"
	"github.com/ovrelid/rpchat-backend/internal/platform/logger"
)

// DiscoverHandler serves the official character catalog and the one-click
// import that turns a bundled card into a character plus a fresh
// conversation.
type DiscoverHandler struct {
	log           *logger.Logger
	catalog       *discover.Catalog
	characters    repos.CharacterRepo
	conversations repos.ConversationRepo
	messages      repos.MessageRepo
}

func NewDiscoverHandler(
	log *logger.Logger,
	catalog *discover.Catalog,
	characters repos.CharacterRepo,
	conversations repos.ConversationRepo,
	messages repos.MessageRepo,
) *DiscoverHandler {
	return &DiscoverHandler{
		log:           log.With("handler", "DiscoverHandler"),
		catalog:       catalog,
		characters:    characters,
		conversations: conversations,
		messages:      messages,
	}
}

type officialCharacter struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	AvatarURL    string   `json:"avatar_url,omitempty"`
	Description  string   `json:"description,omitempty"`
	Tags         []string `json:"tags"`
	FirstMessage string   `json:"first_message,omitempty"`
}

func officialFromCard(card discover.Card) officialCharacter {
	out := officialCharacter{
		ID:           card.ID,
		Name:         card.Name,
		Description:  card.Description,
		Tags:         card.Tags,
		FirstMessage: card.FirstMessage,
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	if card.AvatarPath != "" {
		out.AvatarURL = avatarRoute(card.ID)
	}
	return out
}

func avatarRoute(id string) string {
	return "/api/discover/characters/" + id + "/avatar"
}

// GET /api/discover/characters
func (h *DiscoverHandler) List(c *gin.Context) {
	cards := h.catalog.List()
	out := make([]officialCharacter, 0, len(cards))
	for _, card := range cards {
		out = append(out, officialFromCard(card))
	}
	response.RespondOK(c, out)
}

// GET /api/discover/characters/:id
func (h *DiscoverHandler) Get(c *gin.Context) {
	card, err := h.catalog.Get(c.Param("id"))
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, officialFromCard(*card))
}

// GET /api/discover/characters/:id/avatar
func (h *DiscoverHandler) Avatar(c *gin.Context) {
	card, err := h.catalog.Get(c.Param("id"))
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	if card.AvatarPath == "" {
		response.RespondDomainError(c, errors.ErrNotFound)
		return
	}
	c.File(card.AvatarPath)
}

// POST /api/discover/characters/:id/import
//
// Imports the card as a regular character, opens a conversation with it, and
// seeds the character's first message.
func (h *DiscoverHandler) Import(c *gin.Context) {
	card, err := h.catalog.Get(c.Param("id"))
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}

	row := parseCard(card.Raw)
	raw, _ := json.Marshal(card.Raw)
	row.CardJSON = datatypes.JSON(raw)
	if card.AvatarPath != "" {
		row.AvatarURL = avatarRoute(card.ID)
	}

	dbc := dbctx.New(c.Request.Context())
	character, err := h.characters.Create(dbc, row)
	if err != nil {
		h.log.Error("Import official character failed", "error", err, "card_id", card.ID)
		response.RespondDomainError(c, err)
		return
	}

	conversation, err := h.conversations.Create(dbc, &domain.Conversation{
		CharacterID:         &character.ID,
		Title:               fmt.Sprintf("Chat with %s", character.Name),
		SimilarityThreshold: domain.DefaultSimilarityThreshold,
		TopK:                domain.DefaultTopK,
	})
	if err != nil {
		h.log.Error("Conversation for imported character failed", "error", err, "character_id", character.ID)
		response.RespondDomainError(c, err)
		return
	}

	if opening := chat.FirstMessage(character, time.Now()); opening != "" {
		first := &domain.Message{
			ConversationID: conversation.ID,
			Seq:            1,
			Role:           domain.RoleAssistant,
			Content:        opening,
		}
		if _, err := h.messages.Create(dbc, []*domain.Message{first}); err != nil {
			h.log.Warn("First message seeding failed", "error", err, "conversation_id", conversation.ID)
		}
	}

	response.RespondCreated(c, gin.H{
		"character_id":    character.ID,
		"conversation_id": conversation.ID,
		"message":         fmt.Sprintf("Imported %q and started a new conversation", character.Name),
	})
}

// GET /api/discover/characters/:id/download
func (h *DiscoverHandler) Download(c *gin.Context) {
	card, err := h.catalog.Get(c.Param("id"))
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	c.FileAttachment(card.CardPath, card.ID+".json")
}
