package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	DefaultSimilarityThreshold = 0.5
	DefaultTopK                = 5
)

// Conversation is one chat session with a character. Retrieval settings are
// stored per conversation.
type Conversation struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CharacterID *uuid.UUID `gorm:"type:uuid;index" json:"character_id,omitempty"`
	ProviderID  *uuid.UUID `gorm:"type:uuid;index" json:"provider_id,omitempty"`

	Title string `gorm:"size:200" json:"title,omitempty"`

	SimilarityThreshold float64 `gorm:"not null;default:0.5" json:"similarity_threshold"`
	TopK                int     `gorm:"not null;default:5" json:"top_k"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now();index" json:"updated_at"`
}

func (Conversation) TableName() string { return "conversation" }
