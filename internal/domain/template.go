package domain

import "strings"

// PromptTemplate is one of the eight fixed prompt layers. DefaultPrompt ships
// with the app and is never mutated; CustomPrompt is the user's override.
type PromptTemplate struct {
	Key         string `gorm:"size:50;primaryKey" json:"key"`
	Title       string `gorm:"size:100;not null" json:"title"`
	Description string `gorm:"type:text;not null" json:"description"`

	DefaultPrompt string  `gorm:"type:text;not null" json:"default_prompt"`
	CustomPrompt  *string `gorm:"type:text" json:"custom_prompt,omitempty"`
}

func (PromptTemplate) TableName() string { return "prompt_template" }

// ActivePrompt returns the custom override when set and non-empty, otherwise
// the shipped default.
func (t *PromptTemplate) ActivePrompt() string {
	if t.CustomPrompt != nil && strings.TrimSpace(*t.CustomPrompt) != "" {
		return *t.CustomPrompt
	}
	return t.DefaultPrompt
}
