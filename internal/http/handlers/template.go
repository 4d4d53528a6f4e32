package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ovrelid/rpchat-backend/internal/domain"
	"github.com/ovrelid/rpchat-backend/internal/http/response"
	"github.com/ovrelid/rpchat-backend/internal/pkg/errors"
	"github.com/ovrelid/rpchat-backend/internal/platform/logger"
	"github.com/ovrelid/rpchat-backend/internal/prompt"
)

type TemplateHandler struct {
	log      *logger.Logger
	registry *prompt.Registry
}

func NewTemplateHandler(log *logger.Logger, registry *prompt.Registry) *TemplateHandler {
	return &TemplateHandler{
		log:      log.With("handler", "TemplateHandler"),
		registry: registry,
	}
}

// templateView adds the resolved text to the stored row.
type templateView struct {
	*domain.PromptTemplate
	ActivePrompt string `json:"active_prompt"`
}

func templateViewOf(t *domain.PromptTemplate) templateView {
	return templateView{PromptTemplate: t, ActivePrompt: t.ActivePrompt()}
}

// respondTemplateError treats an unknown key as a missing resource;
// elsewhere in the API the same kind is a configuration error.
func respondTemplateError(c *gin.Context, err error) {
	if errors.IsKind(err, errors.KindUnknownTemplateKey) {
		response.RespondError(c, http.StatusNotFound, string(errors.KindUnknownTemplateKey), err)
		return
	}
	response.RespondDomainError(c, err)
}

// GET /api/prompt-templates
func (h *TemplateHandler) List(c *gin.Context) {
	rows, err := h.registry.List(c.Request.Context())
	if err != nil {
		h.log.Error("List templates failed", "error", err)
		response.RespondDomainError(c, err)
		return
	}
	out := make([]templateView, 0, len(rows))
	for _, t := range rows {
		out = append(out, templateViewOf(t))
	}
	response.RespondOK(c, out)
}

// GET /api/prompt-templates/:key
func (h *TemplateHandler) Get(c *gin.Context) {
	row, err := h.registry.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		respondTemplateError(c, err)
		return
	}
	response.RespondOK(c, templateViewOf(row))
}

type templateUpdateRequest struct {
	CustomPrompt *string `json:"custom_prompt"`
}

// PUT /api/prompt-templates/:key
//
// A null custom_prompt reverts the template to its default.
func (h *TemplateHandler) Update(c *gin.Context) {
	var req templateUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	key := c.Param("key")
	if err := h.registry.SetCustom(c.Request.Context(), key, req.CustomPrompt); err != nil {
		respondTemplateError(c, err)
		return
	}
	row, err := h.registry.Get(c.Request.Context(), key)
	if err != nil {
		respondTemplateError(c, err)
		return
	}
	response.RespondOK(c, templateViewOf(row))
}

// DELETE /api/prompt-templates/:key resets to the default.
func (h *TemplateHandler) Reset(c *gin.Context) {
	key := c.Param("key")
	if err := h.registry.SetCustom(c.Request.Context(), key, nil); err != nil {
		respondTemplateError(c, err)
		return
	}
	row, err := h.registry.Get(c.Request.Context(), key)
	if err != nil {
		respondTemplateError(c, err)
		return
	}
	response.RespondOK(c, templateViewOf(row))
}

// POST /api/prompt-templates/seed inserts any missing defaults. Safe to call
// repeatedly.
func (h *TemplateHandler) Seed(c *gin.Context) {
	if err := h.registry.Seed(c.Request.Context()); err != nil {
		h.log.Error("Seed templates failed", "error", err)
		response.RespondDomainError(c, err)
		return
	}
	h.List(c)
}
