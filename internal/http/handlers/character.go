package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/ovrelid/rpchat-backend/internal/data/repos"
	"github.com/ovrelid/rpchat-backend/internal/domain"
	"github.com/ovrelid/rpchat-backend/internal/http/response"
	"github.com/ovrelid/rpchat-backend/internal/pkg/dbctx"
	"github.com/ovrelid/rpchat-backend/internal/platform/logger"
)

type CharacterHandler struct {
	log        *logger.Logger
	characters repos.CharacterRepo
}

func NewCharacterHandler(log *logger.Logger, characters repos.CharacterRepo) *CharacterHandler {
	return &CharacterHandler{
		log:        log.With("handler", "CharacterHandler"),
		characters: characters,
	}
}

type characterCreateRequest struct {
	Name           string   `json:"name" binding:"required"`
	AvatarURL      string   `json:"avatar_url"`
	Description    string   `json:"description"`
	FirstMessage   string   `json:"first_message"`
	Personality    string   `json:"personality_prompt"`
	Scenario       string   `json:"scenario_prompt"`
	ExampleDialogs string   `json:"example_dialogues_prompt"`
	SystemPrompt   string   `json:"system_prompt"`
	Tags           []string `json:"tags"`
}

// GET /api/characters?favorite_only=true
func (h *CharacterHandler) List(c *gin.Context) {
	dbc := dbctx.New(c.Request.Context())
	rows, err := h.characters.List(dbc)
	if err != nil {
		h.log.Error("List characters failed", "error", err)
		response.RespondDomainError(c, err)
		return
	}
	if c.Query("favorite_only") == "true" {
		filtered := rows[:0]
		for _, row := range rows {
			if row.IsFavorite {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}
	response.RespondOK(c, rows)
}

// POST /api/characters
func (h *CharacterHandler) Create(c *gin.Context) {
	var req characterCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	tags, _ := json.Marshal(req.Tags)
	if req.Tags == nil {
		tags = []byte("[]")
	}
	row := &domain.Character{
		Name:           req.Name,
		AvatarURL:      req.AvatarURL,
		Description:    req.Description,
		FirstMessage:   req.FirstMessage,
		Personality:    req.Personality,
		Scenario:       req.Scenario,
		ExampleDialogs: req.ExampleDialogs,
		SystemPrompt:   req.SystemPrompt,
		Tags:           datatypes.JSON(tags),
	}

	created, err := h.characters.Create(dbctx.New(c.Request.Context()), row)
	if err != nil {
		h.log.Error("Create character failed", "error", err)
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, created)
}

type characterImportRequest struct {
	CardJSON map[string]any `json:"card_json" binding:"required"`
}

// POST /api/characters/import
//
// Accepts a SillyTavern-style character card, v1 (flat) or v2 (nested under
// "data"). The raw card is kept so unmapped fields survive.
func (h *CharacterHandler) Import(c *gin.Context) {
	var req characterImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	row := parseCard(req.CardJSON)
	raw, _ := json.Marshal(req.CardJSON)
	row.CardJSON = datatypes.JSON(raw)

	created, err := h.characters.Create(dbctx.New(c.Request.Context()), row)
	if err != nil {
		h.log.Error("Import character failed", "error", err)
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, created)
}

func parseCard(card map[string]any) *domain.Character {
	data := card
	if nested, ok := card["data"].(map[string]any); ok {
		data = nested
	}

	str := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := data[k].(string); ok && v != "" {
				return v
			}
		}
		return ""
	}

	name := str("name")
	if name == "" {
		name = "Unknown"
	}

	tags := []byte("[]")
	if v, ok := data["tags"]; ok {
		if raw, err := json.Marshal(v); err == nil {
			tags = raw
		}
	}

	return &domain.Character{
		Name:           name,
		Description:    str("description"),
		FirstMessage:   str("first_mes", "first_message"),
		Personality:    str("personality"),
		Scenario:       str("scenario"),
		ExampleDialogs: str("mes_example", "example_dialogues"),
		SystemPrompt:   str("system_prompt"),
		Tags:           datatypes.JSON(tags),
	}
}

// GET /api/characters/:id
func (h *CharacterHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_character_id", err)
		return
	}
	row, err := h.characters.GetByID(dbctx.New(c.Request.Context()), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, row)
}

// PUT /api/characters/:id
func (h *CharacterHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_character_id", err)
		return
	}

	var req map[string]any
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	updates := map[string]interface{}{}
	allowed := map[string]string{
		"name":                     "name",
		"avatar_url":               "avatar_url",
		"description":              "description",
		"first_message":            "first_message",
		"personality_prompt":       "personality_prompt",
		"scenario_prompt":          "scenario_prompt",
		"example_dialogues_prompt": "example_dialogues_prompt",
		"system_prompt":            "system_prompt",
		"is_favorite":              "is_favorite",
	}
	for key, col := range allowed {
		if v, ok := req[key]; ok {
			updates[col] = v
		}
	}
	if len(updates) == 0 {
		response.RespondError(c, http.StatusBadRequest, "no_updatable_fields", nil)
		return
	}

	dbc := dbctx.New(c.Request.Context())
	if err := h.characters.UpdateFields(dbc, id, updates); err != nil {
		h.log.Error("Update character failed", "error", err, "character_id", id)
		response.RespondDomainError(c, err)
		return
	}
	row, err := h.characters.GetByID(dbc, id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, row)
}

// POST /api/characters/:id/favorite
func (h *CharacterHandler) ToggleFavorite(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_character_id", err)
		return
	}

	dbc := dbctx.New(c.Request.Context())
	row, err := h.characters.GetByID(dbc, id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	if err := h.characters.UpdateFields(dbc, id, map[string]interface{}{"is_favorite": !row.IsFavorite}); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	row.IsFavorite = !row.IsFavorite
	response.RespondOK(c, row)
}

// DELETE /api/characters/:id
func (h *CharacterHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_character_id", err)
		return
	}
	if err := h.characters.Delete(dbctx.New(c.Request.Context()), id); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondNoContent(c)
}
