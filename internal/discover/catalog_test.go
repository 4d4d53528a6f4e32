package discover

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ovrelid/rpchat-backend/internal/pkg/errors"
	"github.com/ovrelid/rpchat-backend/internal/platform/logger"
)

func testCatalog(t *testing.T) (*Catalog, string) {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	dir := t.TempDir()
	return NewCatalog(dir, log), dir
}

func writeCard(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestCatalogListParsesBothCardShapes(t *testing.T) {
	t.Parallel()

	catalog, dir := testCatalog(t)
	writeCard(t, dir, "mira.json", `{"data":{"name":"Mira","description":"a ranger","first_mes":"*waves*","tags":["fantasy","demo"]}}`)
	writeCard(t, dir, "zed.json", `{"name":"Zed","first_message":"yo"}`)
	writeCard(t, dir, "notes.txt", "not a card")
	writeCard(t, dir, "broken.json", "{nope")

	cards := catalog.List()
	if len(cards) != 2 {
		t.Fatalf("cards: got=%d want=2", len(cards))
	}
	if cards[0].ID != "mira" || cards[1].ID != "zed" {
		t.Fatalf("order: got=[%s %s] want=[mira zed]", cards[0].ID, cards[1].ID)
	}

	mira := cards[0]
	if mira.Name != "Mira" || mira.Description != "a ranger" || mira.FirstMessage != "*waves*" {
		t.Fatalf("nested card fields: got=%+v", mira)
	}
	if len(mira.Tags) != 2 || mira.Tags[0] != "fantasy" {
		t.Fatalf("tags: got=%v", mira.Tags)
	}
	if mira.Raw == nil {
		t.Fatalf("raw card should be retained")
	}

	zed := cards[1]
	if zed.Name != "Zed" || zed.FirstMessage != "yo" {
		t.Fatalf("flat card fields: got=%+v", zed)
	}
}

func TestCatalogNameFallsBackToFileStem(t *testing.T) {
	t.Parallel()

	catalog, dir := testCatalog(t)
	writeCard(t, dir, "nameless.json", `{"description":"no name field"}`)

	card, err := catalog.Get("nameless")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if card.Name != "nameless" {
		t.Fatalf("name: got=%q want=%q", card.Name, "nameless")
	}
}

func TestCatalogDetectsAvatar(t *testing.T) {
	t.Parallel()

	catalog, dir := testCatalog(t)
	writeCard(t, dir, "ava.json", `{"name":"Ava"}`)
	writeCard(t, dir, "ava.png", "\x89PNG")
	writeCard(t, dir, "bare.json", `{"name":"Bare"}`)

	ava, err := catalog.Get("ava")
	if err != nil {
		t.Fatalf("get ava: %v", err)
	}
	if ava.AvatarPath == "" {
		t.Fatalf("expected avatar path for card with matching image")
	}

	bare, err := catalog.Get("bare")
	if err != nil {
		t.Fatalf("get bare: %v", err)
	}
	if bare.AvatarPath != "" {
		t.Fatalf("unexpected avatar path: %q", bare.AvatarPath)
	}
}

func TestCatalogGetRejectsUnknownAndTraversal(t *testing.T) {
	t.Parallel()

	catalog, dir := testCatalog(t)
	writeCard(t, dir, "mira.json", `{"name":"Mira"}`)

	for _, id := range []string{"nope", "../mira", "./mira", ""} {
		if _, err := catalog.Get(id); !stderrors.Is(err, errors.ErrNotFound) {
			t.Fatalf("get %q: got=%v want=ErrNotFound", id, err)
		}
	}
}

func TestCatalogMissingDirIsEmpty(t *testing.T) {
	t.Parallel()

	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	catalog := NewCatalog(filepath.Join(t.TempDir(), "missing"), log)
	if cards := catalog.List(); len(cards) != 0 {
		t.Fatalf("cards from missing dir: got=%d want=0", len(cards))
	}
}
