package domain

import (
	"time"

	"github.com/google/uuid"
)

// KnowledgeBase groups uploaded documents that can be attached to a
// conversation for retrieval.
type KnowledgeBase struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (KnowledgeBase) TableName() string { return "knowledge_base" }

// KBChunk is one text chunk of an ingested document. The embedding is
// attached after a provider call and may be absent; chunks without an
// embedding are listable but never ranked.
type KBChunk struct {
	ID              uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	KnowledgeBaseID uuid.UUID `gorm:"type:uuid;not null;index" json:"knowledge_base_id"`

	SourceFilename string `gorm:"size:255" json:"source_filename,omitempty"`
	ChunkIndex     int    `gorm:"not null;default:0" json:"chunk_index"`
	ChunkText      string `gorm:"type:text;not null" json:"chunk_text"`

	Embedding Vector `gorm:"type:vector(1024)" json:"-"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (KBChunk) TableName() string { return "kb_chunk" }

// HasEmbedding reports whether the chunk is eligible for ranking.
func (c *KBChunk) HasEmbedding() bool {
	return c != nil && len(c.Embedding) > 0
}
