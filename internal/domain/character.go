package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Character is an imported character card (SillyTavern v2 compatible fields).
// CardJSON keeps the raw imported card so future fields survive round trips.
type Character struct {
	ID              uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name            string    `gorm:"size:200;not null" json:"name"`
	AvatarURL       string    `gorm:"size:500" json:"avatar_url,omitempty"`
	Description     string    `gorm:"type:text" json:"description,omitempty"`
	FirstMessage    string    `gorm:"type:text" json:"first_message,omitempty"`
	Personality     string    `gorm:"type:text;column:personality_prompt" json:"personality_prompt,omitempty"`
	Scenario        string    `gorm:"type:text;column:scenario_prompt" json:"scenario_prompt,omitempty"`
	ExampleDialogs  string    `gorm:"type:text;column:example_dialogues_prompt" json:"example_dialogues_prompt,omitempty"`
	SystemPrompt    string    `gorm:"type:text" json:"system_prompt,omitempty"`

	CardJSON datatypes.JSON `gorm:"type:jsonb" json:"card_json,omitempty"`
	Tags     datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"tags,omitempty"`

	IsFavorite bool `gorm:"not null;default:false" json:"is_favorite"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Character) TableName() string { return "character" }
