package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Wire protocols a provider can speak.
const (
	// ProtocolOpenAICompatible is the chat-completions JSON protocol
	// (OpenAI, DeepSeek, Doubao, OpenAI-style gateways).
	ProtocolOpenAICompatible = "openai-compatible"
	// ProtocolInferenceEndpoint is a single-string generation API
	// (HuggingFace Inference style: {"inputs": ...} -> generated_text).
	ProtocolInferenceEndpoint = "inference-endpoint"
)

// Provider is one configured LLM endpoint. At most one provider is active;
// activation deactivates the rest.
type Provider struct {
	ID   uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name string    `gorm:"size:100;not null" json:"name"`

	Protocol         string `gorm:"size:40;not null;default:'openai-compatible'" json:"protocol"`
	BaseURL          string `gorm:"size:500;not null" json:"base_url"`
	APIKey           string `gorm:"type:text;not null" json:"-"`
	ChatModelID      string `gorm:"size:200;not null" json:"chat_model_id"`
	EmbeddingModelID string `gorm:"size:200;not null;default:''" json:"embedding_model_id"`

	IsActive bool `gorm:"not null;default:false;index" json:"is_active"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Provider) TableName() string { return "provider" }

// SupportsEmbedding reports whether retrieval can run against this provider.
func (p *Provider) SupportsEmbedding() bool {
	return p != nil && strings.TrimSpace(p.EmbeddingModelID) != ""
}

// MaskedAPIKey renders the credential for API responses: first 3 and last 4
// characters visible, everything else starred.
func (p *Provider) MaskedAPIKey() string {
	key := p.APIKey
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:3] + strings.Repeat("*", len(key)-7) + key[len(key)-4:]
}
