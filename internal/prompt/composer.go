package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/ovrelid/rpchat-backend/internal/domain"
)

// Snippet is one retrieved knowledge chunk ready for inclusion in the RAG
// block, already ranked by the caller.
type Snippet struct {
	Source string
	Text   string
}

// ComposeInput carries everything Compose needs. It is built fresh per
// request; Compose retains no references across calls.
type ComposeInput struct {
	// Templates maps each template key to its resolved (active) text.
	Templates map[string]string
	// Vars is the placeholder context for this request.
	Vars map[string]string
	// Snippets are ranked retrieval results, empty when retrieval was
	// skipped or found nothing.
	Snippets []Snippet
	// History is the budgeted slice of prior conversation messages in
	// chronological order, roles preserved.
	History []Segment
	// CharacterSystem is the character's own free-form system prompt,
	// appended after the template layers when non-empty.
	CharacterSystem string
	// UserInput is the new user turn, passed through verbatim.
	UserInput string
	// ContextMaxChars bounds the running size of the template layers; the
	// example_dialogues layer is dropped when it would push past this.
	// Zero disables the check.
	ContextMaxChars int
}

// Variables builds the placeholder context for one composition request.
// The timestamp is caller-supplied so composition stays deterministic.
func Variables(character *domain.Character, userName string, now time.Time) map[string]string {
	charName := "Assistant"
	description := ""
	personality := ""
	scenario := ""
	examples := ""
	if character != nil {
		if character.Name != "" {
			charName = character.Name
		}
		description = character.Description
		personality = character.Personality
		scenario = character.Scenario
		examples = character.ExampleDialogs
	}
	if userName == "" {
		userName = "User"
	}
	return map[string]string{
		"char":              charName,
		"char_name":         charName,
		"char_description":  description,
		"char_personality":  personality,
		"scenario":          scenario,
		"example_dialogues": examples,
		"user":              userName,
		"date":              now.Format("2006-01-02"),
		"time":              now.Format("15:04"),
		"day":               now.Weekday().String(),
		"current_time":      now.Format("2006-01-02 15:04:05"),
	}
}

// RAGBlock renders the ranked snippets as a single system segment body.
func RAGBlock(snippets []Snippet) string {
	if len(snippets) == 0 {
		return ""
	}
	parts := make([]string, 0, len(snippets))
	for i, s := range snippets {
		source := s.Source
		if source == "" {
			source = "Unknown"
		}
		parts = append(parts, fmt.Sprintf("[%d] (Source: %s)\n%s", i+1, source, s.Text))
	}
	return "Relevant Knowledge:\n" + strings.Join(parts, "\n\n")
}

// Compose assembles the full segment list in fixed order: the eight template
// layers, the RAG block, budgeted history, then the new user message. It
// returns the segments and the number of snippets included. Identical inputs
// always yield identical output.
func Compose(in ComposeInput) ([]Segment, int) {
	segments := make([]Segment, 0, len(Keys())+len(in.History)+2)
	running := 0

	appendLayer := func(content string) {
		segments = append(segments, Segment{Role: domain.RoleSystem, Content: content})
		running += len(content)
	}

	for _, key := range Keys() {
		text := Substitute(in.Templates[key], in.Vars)
		if strings.TrimSpace(text) == "" {
			continue
		}
		if key == KeyExampleDialogues && in.ContextMaxChars > 0 && running+len(text) > in.ContextMaxChars {
			continue
		}
		appendLayer(text)
	}

	if strings.TrimSpace(in.CharacterSystem) != "" {
		appendLayer(Substitute(in.CharacterSystem, in.Vars))
	}

	used := 0
	if block := RAGBlock(in.Snippets); block != "" {
		appendLayer(block)
		used = len(in.Snippets)
	}

	segments = append(segments, in.History...)
	segments = append(segments, Segment{Role: domain.RoleUser, Content: in.UserInput})
	return segments, used
}
