package handlers

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ovrelid/rpchat-backend/internal/chat"
	"github.com/ovrelid/rpchat-backend/internal/data/repos"
	"github.com/ovrelid/rpchat-backend/internal/domain"
	"github.com/ovrelid/rpchat-backend/internal/http/response"
	"github.com/ovrelid/rpchat-backend/internal/pkg/dbctx"
	"github.com/ovrelid/rpchat-backend/internal/pkg/errors"
	"github.com/ovrelid/rpchat-backend/internal/platform/logger"
)

type ConversationHandler struct {
	log           *logger.Logger
	conversations repos.ConversationRepo
	characters    repos.CharacterRepo
	messages      repos.MessageRepo
	providers     repos.ProviderRepo
	orchestrator  *chat.Orchestrator
}

func NewConversationHandler(
	log *logger.Logger,
	conversations repos.ConversationRepo,
	characters repos.CharacterRepo,
	messages repos.MessageRepo,
	providers repos.ProviderRepo,
	orchestrator *chat.Orchestrator,
) *ConversationHandler {
	return &ConversationHandler{
		log:           log.With("handler", "ConversationHandler"),
		conversations: conversations,
		characters:    characters,
		messages:      messages,
		providers:     providers,
		orchestrator:  orchestrator,
	}
}

// GET /api/conversations
func (h *ConversationHandler) List(c *gin.Context) {
	rows, err := h.conversations.List(dbctx.New(c.Request.Context()))
	if err != nil {
		h.log.Error("List conversations failed", "error", err)
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, rows)
}

type conversationCreateRequest struct {
	CharacterID         uuid.UUID  `json:"character_id" binding:"required"`
	ProviderID          *uuid.UUID `json:"provider_id"`
	Title               string     `json:"title"`
	SimilarityThreshold *float64   `json:"similarity_threshold"`
	TopK                *int       `json:"top_k"`
}

// POST /api/conversations
//
// Falls back to the active provider when none is given, and seeds the
// character's first message as the opening assistant turn.
func (h *ConversationHandler) Create(c *gin.Context) {
	var req conversationCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	dbc := dbctx.New(c.Request.Context())
	character, err := h.characters.GetByID(dbc, req.CharacterID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}

	providerID := req.ProviderID
	if providerID == nil {
		if active, err := h.providers.GetActive(dbc); err == nil {
			providerID = &active.ID
		} else if !stderrors.Is(err, errors.ErrNotFound) {
			response.RespondDomainError(c, err)
			return
		}
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = fmt.Sprintf("Chat with %s", character.Name)
	}

	row := &domain.Conversation{
		CharacterID:         &character.ID,
		ProviderID:          providerID,
		Title:               title,
		SimilarityThreshold: domain.DefaultSimilarityThreshold,
		TopK:                domain.DefaultTopK,
	}
	if req.SimilarityThreshold != nil {
		row.SimilarityThreshold = *req.SimilarityThreshold
	}
	if req.TopK != nil {
		row.TopK = *req.TopK
	}

	created, err := h.conversations.Create(dbc, row)
	if err != nil {
		h.log.Error("Create conversation failed", "error", err)
		response.RespondDomainError(c, err)
		return
	}

	if opening := chat.FirstMessage(character, time.Now()); opening != "" {
		first := &domain.Message{
			ConversationID: created.ID,
			Seq:            1,
			Role:           domain.RoleAssistant,
			Content:        opening,
		}
		if _, err := h.messages.Create(dbc, []*domain.Message{first}); err != nil {
			h.log.Warn("First message seeding failed", "error", err, "conversation_id", created.ID)
		}
	}

	response.RespondCreated(c, created)
}

// GET /api/conversations/:id
func (h *ConversationHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_conversation_id", err)
		return
	}
	row, err := h.conversations.GetByID(dbctx.New(c.Request.Context()), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, row)
}

// PUT /api/conversations/:id
func (h *ConversationHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_conversation_id", err)
		return
	}

	var req struct {
		Title               *string  `json:"title"`
		ProviderID          *string  `json:"provider_id"`
		SimilarityThreshold *float64 `json:"similarity_threshold"`
		TopK                *int     `json:"top_k"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.ProviderID != nil {
		pid, err := uuid.Parse(*req.ProviderID)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_provider_id", err)
			return
		}
		updates["provider_id"] = pid
	}
	if req.SimilarityThreshold != nil {
		if *req.SimilarityThreshold < 0 || *req.SimilarityThreshold > 1 {
			response.RespondError(c, http.StatusBadRequest, "invalid_similarity_threshold", nil)
			return
		}
		updates["similarity_threshold"] = *req.SimilarityThreshold
	}
	if req.TopK != nil {
		if *req.TopK <= 0 {
			response.RespondError(c, http.StatusBadRequest, "invalid_top_k", nil)
			return
		}
		updates["top_k"] = *req.TopK
	}
	if len(updates) == 0 {
		response.RespondError(c, http.StatusBadRequest, "no_updatable_fields", nil)
		return
	}

	dbc := dbctx.New(c.Request.Context())
	if err := h.conversations.UpdateFields(dbc, id, updates); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	row, err := h.conversations.GetByID(dbc, id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, row)
}

// DELETE /api/conversations/:id
func (h *ConversationHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_conversation_id", err)
		return
	}
	if err := h.conversations.Delete(dbctx.New(c.Request.Context()), id); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondNoContent(c)
}

// GET /api/conversations/:id/messages
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_conversation_id", err)
		return
	}
	dbc := dbctx.New(c.Request.Context())
	if _, err := h.conversations.GetByID(dbc, id); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	rows, err := h.messages.ListByConversation(dbc, id, 0)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, rows)
}

type sendMessageRequest struct {
	Content        string      `json:"content" binding:"required"`
	KnowledgeBases []uuid.UUID `json:"kb_ids"`
}

type sendMessageResponse struct {
	UserMessage      *domain.Message    `json:"user_message"`
	AssistantMessage *domain.Message    `json:"assistant_message,omitempty"`
	RAGSnippetsUsed  int                `json:"rag_snippets_used"`
	LatencyMS        int64              `json:"latency_ms"`
	Retryable        bool               `json:"retryable,omitempty"`
	Error            *response.APIError `json:"error,omitempty"`
}

// POST /api/conversations/:id/messages
//
// On a provider failure the persisted user message still comes back in the
// body so the client can offer a retry without retyping.
func (h *ConversationHandler) SendMessage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_conversation_id", err)
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		response.RespondError(c, http.StatusBadRequest, "empty_message", nil)
		return
	}

	result, err := h.orchestrator.SendMessage(c.Request.Context(), chat.SendMessageInput{
		ConversationID: id,
		Content:        req.Content,
		KnowledgeBases: req.KnowledgeBases,
	})
	if err != nil {
		if result == nil || result.UserMessage == nil {
			response.RespondDomainError(c, err)
			return
		}
		// Dispatch failed after the user turn was persisted.
		kind := errors.KindOf(err)
		c.JSON(response.StatusForKind(kind), sendMessageResponse{
			UserMessage:     result.UserMessage,
			RAGSnippetsUsed: result.RAGSnippetsUsed,
			Retryable:       errors.Retryable(err),
			Error:           &response.APIError{Message: err.Error(), Code: string(kind)},
		})
		return
	}

	response.RespondOK(c, sendMessageResponse{
		UserMessage:      result.UserMessage,
		AssistantMessage: result.AssistantMessage,
		RAGSnippetsUsed:  result.RAGSnippetsUsed,
		LatencyMS:        result.Latency.Milliseconds(),
	})
}
