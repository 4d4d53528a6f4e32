// Package discover exposes the bundled official character cards: static
// JSON files shipped alongside the app, browsable and importable without
// touching the database first.
package discover

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ovrelid/rpchat-backend/internal/pkg/errors"
	"github.com/ovrelid/rpchat-backend/internal/platform/logger"
)

// Card is one official character card on disk. ID is the file stem; Raw is
// the full card JSON so an import keeps unmapped fields.
type Card struct {
	ID           string
	Name         string
	Description  string
	FirstMessage string
	Tags         []string
	AvatarPath   string // empty when the card ships without an image
	CardPath     string
	Raw          map[string]any
}

var avatarExts = []string{".png", ".jpg", ".jpeg", ".webp"}

// Catalog reads cards from a directory on every call, so dropping a new
// card file in takes effect without a restart.
type Catalog struct {
	log *logger.Logger
	dir string
}

func NewCatalog(dir string, log *logger.Logger) *Catalog {
	return &Catalog{dir: dir, log: log.With("service", "discover_catalog")}
}

// List returns every readable card, sorted by ID. A missing directory is an
// empty catalog, not an error.
func (c *Catalog) List() []Card {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil
	}
	var cards []Card
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}
		card, err := c.load(entry.Name())
		if err != nil {
			c.log.Warn("Skipping unreadable card", "file", entry.Name(), "error", err.Error())
			continue
		}
		cards = append(cards, *card)
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })
	return cards
}

// Get loads a single card by its file stem. IDs never contain path
// separators, so traversal attempts fall out as not found.
func (c *Catalog) Get(id string) (*Card, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return nil, errors.ErrNotFound
	}
	card, err := c.load(id + ".json")
	if err != nil {
		return nil, errors.ErrNotFound
	}
	return card, nil
}

func (c *Catalog) load(filename string) (*Card, error) {
	path := filepath.Join(c.dir, filename)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var card map[string]any
	if err := json.Unmarshal(raw, &card); err != nil {
		return nil, err
	}

	// Cards come in v1 (flat) and v2 (nested under "data") shapes.
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

	id := strings.TrimSuffix(filename, filepath.Ext(filename))
	name := str("name")
	if name == "" {
		name = id
	}

	var tags []string
	if vs, ok := data["tags"].([]any); ok {
		for _, v := range vs {
			if s, ok := v.(string); ok {
				tags = append(tags, s)
			}
		}
	}

	out := &Card{
		ID:           id,
		Name:         name,
		Description:  str("description"),
		FirstMessage: str("first_mes", "first_message"),
		Tags:         tags,
		CardPath:     path,
		Raw:          card,
	}
	for _, ext := range avatarExts {
		p := filepath.Join(c.dir, id+ext)
		if _, err := os.Stat(p); err == nil {
			out.AvatarPath = p
			break
		}
	}
	return out, nil
}
