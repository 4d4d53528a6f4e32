package handlers

import (
	stderrors "errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ovrelid/rpchat-backend/internal/data/repos"
	"github.com/ovrelid/rpchat-backend/internal/domain"
	"github.com/ovrelid/rpchat-backend/internal/http/response"
	"github.com/ovrelid/rpchat-backend/internal/ingestion"
	"github.com/ovrelid/rpchat-backend/internal/pkg/dbctx"
	"github.com/ovrelid/rpchat-backend/internal/platform/logger"
)

type KnowledgeHandler struct {
	log       *logger.Logger
	bases     repos.KnowledgeBaseRepo
	chunks    repos.KBChunkRepo
	ingestion *ingestion.Service
}

func NewKnowledgeHandler(log *logger.Logger, bases repos.KnowledgeBaseRepo, chunks repos.KBChunkRepo, svc *ingestion.Service) *KnowledgeHandler {
	return &KnowledgeHandler{
		log:       log.With("handler", "KnowledgeHandler"),
		bases:     bases,
		chunks:    chunks,
		ingestion: svc,
	}
}

// kbView adds the chunk count to the stored row.
type kbView struct {
	*domain.KnowledgeBase
	ChunkCount int64 `json:"chunk_count"`
}

// GET /api/knowledge-bases
func (h *KnowledgeHandler) List(c *gin.Context) {
	dbc := dbctx.New(c.Request.Context())
	rows, err := h.bases.List(dbc)
	if err != nil {
		h.log.Error("List knowledge bases failed", "error", err)
		response.RespondDomainError(c, err)
		return
	}
	out := make([]kbView, 0, len(rows))
	for _, kb := range rows {
		count, err := h.bases.CountChunks(dbc, kb.ID)
		if err != nil {
			response.RespondDomainError(c, err)
			return
		}
		out = append(out, kbView{KnowledgeBase: kb, ChunkCount: count})
	}
	response.RespondOK(c, out)
}

type kbCreateRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// POST /api/knowledge-bases
func (h *KnowledgeHandler) Create(c *gin.Context) {
	var req kbCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	created, err := h.bases.Create(dbctx.New(c.Request.Context()), &domain.KnowledgeBase{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.log.Error("Create knowledge base failed", "error", err)
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, kbView{KnowledgeBase: created})
}

// GET /api/knowledge-bases/:id
func (h *KnowledgeHandler) Get(c *gin.Context) {
	id, ok := h.kbID(c)
	if !ok {
		return
	}
	dbc := dbctx.New(c.Request.Context())
	kb, err := h.bases.GetByID(dbc, id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	count, err := h.bases.CountChunks(dbc, id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, kbView{KnowledgeBase: kb, ChunkCount: count})
}

// PUT /api/knowledge-bases/:id
func (h *KnowledgeHandler) Update(c *gin.Context) {
	id, ok := h.kbID(c)
	if !ok {
		return
	}

	var req map[string]any
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	updates := map[string]interface{}{}
	for _, key := range []string{"name", "description"} {
		if v, ok := req[key]; ok {
			updates[key] = v
		}
	}
	if len(updates) == 0 {
		response.RespondError(c, http.StatusBadRequest, "no_updatable_fields", nil)
		return
	}

	dbc := dbctx.New(c.Request.Context())
	if err := h.bases.UpdateFields(dbc, id, updates); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	kb, err := h.bases.GetByID(dbc, id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, kbView{KnowledgeBase: kb})
}

// DELETE /api/knowledge-bases/:id
func (h *KnowledgeHandler) Delete(c *gin.Context) {
	id, ok := h.kbID(c)
	if !ok {
		return
	}
	if err := h.bases.Delete(dbctx.New(c.Request.Context()), id); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondNoContent(c)
}

// GET /api/knowledge-bases/:id/documents
func (h *KnowledgeHandler) ListDocuments(c *gin.Context) {
	id, ok := h.kbID(c)
	if !ok {
		return
	}
	dbc := dbctx.New(c.Request.Context())
	if _, err := h.bases.GetByID(dbc, id); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	rows, err := h.chunks.ListByKnowledgeBase(dbc, id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, rows)
}

// DELETE /api/knowledge-bases/:id/documents/:docId
func (h *KnowledgeHandler) DeleteDocument(c *gin.Context) {
	id, ok := h.kbID(c)
	if !ok {
		return
	}
	docID, err := uuid.Parse(c.Param("docId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_document_id", err)
		return
	}
	if err := h.chunks.Delete(dbctx.New(c.Request.Context()), id, docID); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondNoContent(c)
}

// POST /api/knowledge-bases/:id/upload
func (h *KnowledgeHandler) Upload(c *gin.Context) {
	id, ok := h.kbID(c)
	if !ok {
		return
	}
	dbc := dbctx.New(c.Request.Context())
	if _, err := h.bases.GetByID(dbc, id); err != nil {
		response.RespondDomainError(c, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	if fileHeader.Size > ingestion.MaxFileSize {
		response.RespondError(c, http.StatusBadRequest, "file_too_large", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	defer file.Close()
	content, err := io.ReadAll(io.LimitReader(file, ingestion.MaxFileSize+1))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}

	result, err := h.ingestion.Upload(c.Request.Context(), id, fileHeader.Filename, content)
	if err != nil {
		var bad *ingestion.ErrUnsupportedFile
		if stderrors.As(err, &bad) {
			response.RespondError(c, http.StatusBadRequest, "invalid_file", err)
			return
		}
		h.log.Error("Upload failed", "error", err, "kb_id", id)
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, result)
}

// POST /api/knowledge-bases/:id/embed-all
func (h *KnowledgeHandler) EmbedAll(c *gin.Context) {
	id, ok := h.kbID(c)
	if !ok {
		return
	}
	if _, err := h.bases.GetByID(dbctx.New(c.Request.Context()), id); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	result, err := h.ingestion.EmbedAll(c.Request.Context(), id)
	if err != nil {
		h.log.Error("EmbedAll failed", "error", err, "kb_id", id)
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, result)
}

func (h *KnowledgeHandler) kbID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_kb_id", err)
		return uuid.Nil, false
	}
	return id, true
}
