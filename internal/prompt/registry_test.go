package prompt

import (
	"context"
	"testing"

	"github.com/ovrelid/rpchat-backend/internal/domain"
	"github.com/ovrelid/rpchat-backend/internal/pkg/dbctx"
	"github.com/ovrelid/rpchat-backend/internal/pkg/errors"
	"github.com/ovrelid/rpchat-backend/internal/platform/logger"
)

type fakeTemplateStore struct {
	rows map[string]*domain.PromptTemplate
}

func newFakeTemplateStore() *fakeTemplateStore {
	return &fakeTemplateStore{rows: map[string]*domain.PromptTemplate{}}
}

func (s *fakeTemplateStore) SeedDefaults(dbc dbctx.Context, defaults []*domain.PromptTemplate) error {
	for _, tpl := range defaults {
		if _, ok := s.rows[tpl.Key]; !ok {
			cp := *tpl
			s.rows[tpl.Key] = &cp
		}
	}
	return nil
}

func (s *fakeTemplateStore) GetByKey(dbc dbctx.Context, key string) (*domain.PromptTemplate, error) {
	tpl, ok := s.rows[key]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return tpl, nil
}

func (s *fakeTemplateStore) List(dbc dbctx.Context) ([]*domain.PromptTemplate, error) {
	out := make([]*domain.PromptTemplate, 0, len(s.rows))
	for _, k := range Keys() {
		if tpl, ok := s.rows[k]; ok {
			out = append(out, tpl)
		}
	}
	return out, nil
}

func (s *fakeTemplateStore) SetCustom(dbc dbctx.Context, key string, custom *string) error {
	tpl, ok := s.rows[key]
	if !ok {
		return errors.ErrNotFound
	}
	tpl.CustomPrompt = custom
	return nil
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger init failed: %v", err)
	}
	reg := NewRegistry(newFakeTemplateStore(), log)
	if err := reg.Seed(context.Background()); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	return reg
}

func TestRegistrySeedsAllKeys(t *testing.T) {
	t.Parallel()
	reg := testRegistry(t)

	all, err := reg.ResolveAll(context.Background())
	if err != nil {
		t.Fatalf("ResolveAll failed: %v", err)
	}
	if len(all) != len(Keys()) {
		t.Fatalf("expected %d templates, got %d", len(Keys()), len(all))
	}
	for _, k := range Keys() {
		if all[k] == "" {
			t.Fatalf("template %q resolved empty", k)
		}
	}
}

func TestRegistryCustomOverridesDefault(t *testing.T) {
	t.Parallel()
	reg := testRegistry(t)
	ctx := context.Background()

	custom := "Custom system prompt."
	if err := reg.SetCustom(ctx, KeyGlobalSystem, &custom); err != nil {
		t.Fatalf("SetCustom failed: %v", err)
	}
	got, err := reg.Resolve(ctx, KeyGlobalSystem)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != custom {
		t.Fatalf("custom override ignored: got=%q", got)
	}

	// Clearing reverts to the default.
	if err := reg.SetCustom(ctx, KeyGlobalSystem, nil); err != nil {
		t.Fatalf("SetCustom(nil) failed: %v", err)
	}
	got, err = reg.Resolve(ctx, KeyGlobalSystem)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got == custom || got == "" {
		t.Fatalf("reset did not restore default: got=%q", got)
	}
}

func TestRegistryEmptyCustomFallsBackToDefault(t *testing.T) {
	t.Parallel()
	reg := testRegistry(t)
	ctx := context.Background()

	empty := "   "
	if err := reg.SetCustom(ctx, KeyScene, &empty); err != nil {
		t.Fatalf("SetCustom failed: %v", err)
	}
	got, err := reg.Resolve(ctx, KeyScene)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got == empty {
		t.Fatalf("blank custom text should fall back to the default")
	}
}

func TestRegistryUnknownKey(t *testing.T) {
	t.Parallel()
	reg := testRegistry(t)
	ctx := context.Background()

	if _, err := reg.Resolve(ctx, "nope"); !errors.IsKind(err, errors.KindUnknownTemplateKey) {
		t.Fatalf("expected unknown_template_key, got %v", err)
	}
	if err := reg.SetCustom(ctx, "nope", nil); !errors.IsKind(err, errors.KindUnknownTemplateKey) {
		t.Fatalf("expected unknown_template_key, got %v", err)
	}
}
