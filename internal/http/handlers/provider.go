package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ovrelid/rpchat-backend/internal/data/repos"
	"github.com/ovrelid/rpchat-backend/internal/domain"
	"github.com/ovrelid/rpchat-backend/internal/http/response"
	"github.com/ovrelid/rpchat-backend/internal/llm"
	"github.com/ovrelid/rpchat-backend/internal/pkg/dbctx"
	"github.com/ovrelid/rpchat-backend/internal/pkg/errors"
	"github.com/ovrelid/rpchat-backend/internal/platform/logger"
	"github.com/ovrelid/rpchat-backend/internal/prompt"
)

type ProviderHandler struct {
	log       *logger.Logger
	providers repos.ProviderRepo
	llmCfg    llm.Config
}

func NewProviderHandler(log *logger.Logger, providers repos.ProviderRepo, llmCfg llm.Config) *ProviderHandler {
	return &ProviderHandler{
		log:       log.With("handler", "ProviderHandler"),
		providers: providers,
		llmCfg:    llmCfg,
	}
}

// providerView is the API shape: the credential is always masked.
type providerView struct {
	*domain.Provider
	MaskedKey string `json:"api_key_masked"`
}

func viewOf(p *domain.Provider) providerView {
	return providerView{Provider: p, MaskedKey: p.MaskedAPIKey()}
}

func viewsOf(rows []*domain.Provider) []providerView {
	out := make([]providerView, 0, len(rows))
	for _, p := range rows {
		out = append(out, viewOf(p))
	}
	return out
}

// GET /api/providers
func (h *ProviderHandler) List(c *gin.Context) {
	rows, err := h.providers.List(dbctx.New(c.Request.Context()))
	if err != nil {
		h.log.Error("List providers failed", "error", err)
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, viewsOf(rows))
}

type providerCreateRequest struct {
	Name             string `json:"name" binding:"required"`
	Protocol         string `json:"protocol"`
	BaseURL          string `json:"base_url" binding:"required"`
	APIKey           string `json:"api_key" binding:"required"`
	ChatModelID      string `json:"chat_model_id" binding:"required"`
	EmbeddingModelID string `json:"embedding_model_id"`
}

// POST /api/providers
func (h *ProviderHandler) Create(c *gin.Context) {
	var req providerCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	protocol := req.Protocol
	if protocol == "" {
		protocol = domain.ProtocolOpenAICompatible
	}
	if protocol != domain.ProtocolOpenAICompatible && protocol != domain.ProtocolInferenceEndpoint {
		response.RespondError(c, http.StatusBadRequest, "invalid_protocol", nil)
		return
	}

	created, err := h.providers.Create(dbctx.New(c.Request.Context()), &domain.Provider{
		Name:             req.Name,
		Protocol:         protocol,
		BaseURL:          req.BaseURL,
		APIKey:           req.APIKey,
		ChatModelID:      req.ChatModelID,
		EmbeddingModelID: req.EmbeddingModelID,
	})
	if err != nil {
		h.log.Error("Create provider failed", "error", err)
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, viewOf(created))
}

// GET /api/providers/:id
func (h *ProviderHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_provider_id", err)
		return
	}
	row, err := h.providers.GetByID(dbctx.New(c.Request.Context()), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, viewOf(row))
}

// PUT /api/providers/:id
func (h *ProviderHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_provider_id", err)
		return
	}

	var req map[string]any
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	updates := map[string]interface{}{}
	for _, key := range []string{"name", "protocol", "base_url", "api_key", "chat_model_id", "embedding_model_id"} {
		if v, ok := req[key]; ok {
			updates[key] = v
		}
	}
	if proto, ok := updates["protocol"].(string); ok {
		if proto != domain.ProtocolOpenAICompatible && proto != domain.ProtocolInferenceEndpoint {
			response.RespondError(c, http.StatusBadRequest, "invalid_protocol", nil)
			return
		}
	}
	if len(updates) == 0 {
		response.RespondError(c, http.StatusBadRequest, "no_updatable_fields", nil)
		return
	}

	dbc := dbctx.New(c.Request.Context())
	if err := h.providers.UpdateFields(dbc, id, updates); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	row, err := h.providers.GetByID(dbc, id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, viewOf(row))
}

// POST /api/providers/:id/activate
func (h *ProviderHandler) Activate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_provider_id", err)
		return
	}
	dbc := dbctx.New(c.Request.Context())
	if err := h.providers.Activate(dbc, id); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	row, err := h.providers.GetByID(dbc, id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, viewOf(row))
}

// DELETE /api/providers/:id
func (h *ProviderHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_provider_id", err)
		return
	}
	if err := h.providers.Delete(dbctx.New(c.Request.Context()), id); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondNoContent(c)
}

type providerTestResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	LatencyMS     int64  `json:"latency_ms"`
	ModelResponse string `json:"model_response,omitempty"`
	EmbeddingDim  int    `json:"embedding_dim,omitempty"`
}

// POST /api/providers/:id/test
//
// Small chat round trip to verify credentials and reachability.
func (h *ProviderHandler) TestConnection(c *gin.Context) {
	provider, client, ok := h.clientFor(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	completion, err := client.CreateChatCompletion(ctx, []prompt.Segment{
		{Role: domain.RoleUser, Content: "Say hello in one short sentence."},
	})
	if err != nil {
		response.RespondOK(c, providerTestResult{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	h.log.Info("provider test ok", "provider_id", provider.ID.String(), "latency_ms", completion.Latency.Milliseconds())
	response.RespondOK(c, providerTestResult{
		Success:       true,
		Message:       "connection ok",
		LatencyMS:     completion.Latency.Milliseconds(),
		ModelResponse: completion.Text,
	})
}

// POST /api/providers/:id/test-embedding
func (h *ProviderHandler) TestEmbedding(c *gin.Context) {
	provider, client, ok := h.clientFor(c)
	if !ok {
		return
	}
	if !provider.SupportsEmbedding() {
		response.RespondOK(c, providerTestResult{
			Success: false,
			Message: "provider has no embedding model configured",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	start := time.Now()
	vectors, err := client.CreateEmbedding(ctx, []string{"embedding connectivity probe"})
	if err != nil {
		response.RespondOK(c, providerTestResult{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	response.RespondOK(c, providerTestResult{
		Success:      true,
		Message:      "embedding ok",
		LatencyMS:    time.Since(start).Milliseconds(),
		EmbeddingDim: dim,
	})
}

func (h *ProviderHandler) clientFor(c *gin.Context) (*domain.Provider, llm.Client, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_provider_id", err)
		return nil, nil, false
	}
	provider, err := h.providers.GetByID(dbctx.New(c.Request.Context()), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return nil, nil, false
	}
	client, err := llm.NewClient(provider, h.llmCfg, h.log)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, string(errors.KindOf(err)), err)
		return nil, nil, false
	}
	return provider, client, true
}
