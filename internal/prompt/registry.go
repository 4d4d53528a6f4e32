package prompt

import (
	"context"
	stderrors "errors"

	"github.com/ovrelid/rpchat-backend/internal/domain"
	"github.com/ovrelid/rpchat-backend/internal/pkg/dbctx"
	"github.com/ovrelid/rpchat-backend/internal/pkg/errors"
	"github.com/ovrelid/rpchat-backend/internal/platform/logger"
)

// Template keys. The set is fixed; callers cannot register new keys at
// runtime.
const (
	KeyGlobalSystem         = "global_system"
	KeyRealWorldTime        = "real_world_time"
	KeyRoleplayMeta         = "roleplay_meta"
	KeyDialogueSystem       = "dialogue_system"
	KeyCharacterConfig      = "character_config"
	KeyCharacterPersonality = "character_personality"
	KeyScene                = "scene"
	KeyExampleDialogues     = "example_dialogues"
)

// Keys returns the template keys in composition order.
func Keys() []string {
	return []string{
		KeyGlobalSystem,
		KeyRealWorldTime,
		KeyRoleplayMeta,
		KeyDialogueSystem,
		KeyCharacterConfig,
		KeyCharacterPersonality,
		KeyScene,
		KeyExampleDialogues,
	}
}

func defaultTemplates() []*domain.PromptTemplate {
	return []*domain.PromptTemplate{
		{
			Key:           KeyGlobalSystem,
			Title:         "Global System Prompt",
			Description:   "The main system prompt that sets the overall behavior of the assistant.",
			DefaultPrompt: "You are a creative and immersive roleplay assistant. Respond thoughtfully and stay in character.",
		},
		{
			Key:           KeyRealWorldTime,
			Title:         "Real-World Time Prompt",
			Description:   "Provides current date and time context to the assistant.",
			DefaultPrompt: "Current date and time: {{current_time}}. Use this for temporal awareness in roleplay.",
		},
		{
			Key:           KeyRoleplayMeta,
			Title:         "Role-Play Meta Prompt",
			Description:   "Defines the roleplay style and conventions.",
			DefaultPrompt: "This is a tavern-style roleplay. Use *asterisks* for actions and descriptions. Stay immersive and creative. Address the user as {{user}} and play as {{char}}.",
		},
		{
			Key:           KeyDialogueSystem,
			Title:         "Dialogue System Prompt",
			Description:   "Defines how dialogue should be formatted and presented.",
			DefaultPrompt: "Format dialogue naturally. Use quotation marks for speech. Describe emotions and reactions. Keep responses engaging but concise.",
		},
		{
			Key:           KeyCharacterConfig,
			Title:         "Character Config Prompt",
			Description:   "Template for injecting character metadata.",
			DefaultPrompt: "Character: {{char_name}}\nDescription: {{char_description}}\nPersonality: {{char_personality}}",
		},
		{
			Key:           KeyCharacterPersonality,
			Title:         "Character Personality Prompt",
			Description:   "Emphasizes the character's personality traits.",
			DefaultPrompt: "Stay true to {{char}}'s personality. Be consistent with their traits, speech patterns, and mannerisms.",
		},
		{
			Key:           KeyScene,
			Title:         "Scene Prompt",
			Description:   "Sets the scene and environment for the roleplay.",
			DefaultPrompt: "Scene: {{scenario}}\n\nMaintain awareness of the environment and use it in your responses.",
		},
		{
			Key:           KeyExampleDialogues,
			Title:         "Example Dialogues Prompt",
			Description:   "Few-shot examples to guide the assistant's response style.",
			DefaultPrompt: "Example interactions:\n{{example_dialogues}}\n\nUse these as a guide for tone and style.",
		},
	}
}

// TemplateStore is the persistence surface the registry needs.
type TemplateStore interface {
	SeedDefaults(dbc dbctx.Context, defaults []*domain.PromptTemplate) error
	GetByKey(dbc dbctx.Context, key string) (*domain.PromptTemplate, error)
	List(dbc dbctx.Context) ([]*domain.PromptTemplate, error)
	SetCustom(dbc dbctx.Context, key string, custom *string) error
}

// Registry resolves template keys to their active text, custom override
// first, shipped default otherwise.
type Registry struct {
	store TemplateStore
	log   *logger.Logger
	keys  map[string]struct{}
}

func NewRegistry(store TemplateStore, log *logger.Logger) *Registry {
	keys := make(map[string]struct{}, len(Keys()))
	for _, k := range Keys() {
		keys[k] = struct{}{}
	}
	return &Registry{store: store, log: log.With("service", "prompt_registry"), keys: keys}
}

// Seed inserts any missing default templates. Existing rows, including ones
// with custom overrides, are left untouched. Safe to call on every startup.
func (r *Registry) Seed(ctx context.Context) error {
	return r.store.SeedDefaults(dbctx.New(ctx), defaultTemplates())
}

// Get returns the full template row for key.
func (r *Registry) Get(ctx context.Context, key string) (*domain.PromptTemplate, error) {
	if _, ok := r.keys[key]; !ok {
		return nil, errors.Newf(errors.KindUnknownTemplateKey, "unknown template key %q", key)
	}
	tpl, err := r.store.GetByKey(dbctx.New(ctx), key)
	if err != nil {
		if stderrors.Is(err, errors.ErrNotFound) {
			return nil, errors.Newf(errors.KindUnknownTemplateKey, "template %q not seeded", key)
		}
		return nil, err
	}
	return tpl, nil
}

// Resolve returns the active prompt text for key.
func (r *Registry) Resolve(ctx context.Context, key string) (string, error) {
	tpl, err := r.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return tpl.ActivePrompt(), nil
}

// ResolveAll returns the active text for every template key in one pass.
func (r *Registry) ResolveAll(ctx context.Context) (map[string]string, error) {
	rows, err := r.store.List(dbctx.New(ctx))
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]*domain.PromptTemplate, len(rows))
	for _, row := range rows {
		byKey[row.Key] = row
	}
	out := make(map[string]string, len(r.keys))
	for _, k := range Keys() {
		tpl, ok := byKey[k]
		if !ok {
			return nil, errors.Newf(errors.KindUnknownTemplateKey, "template %q not seeded", k)
		}
		out[k] = tpl.ActivePrompt()
	}
	return out, nil
}

// List returns all template rows.
func (r *Registry) List(ctx context.Context) ([]*domain.PromptTemplate, error) {
	return r.store.List(dbctx.New(ctx))
}

// SetCustom stores a custom override for key. A nil custom reverts the
// template to its default.
func (r *Registry) SetCustom(ctx context.Context, key string, custom *string) error {
	if _, ok := r.keys[key]; !ok {
		return errors.Newf(errors.KindUnknownTemplateKey, "unknown template key %q", key)
	}
	if err := r.store.SetCustom(dbctx.New(ctx), key, custom); err != nil {
		if stderrors.Is(err, errors.ErrNotFound) {
			return errors.Newf(errors.KindUnknownTemplateKey, "template %q not seeded", key)
		}
		return err
	}
	return nil
}
