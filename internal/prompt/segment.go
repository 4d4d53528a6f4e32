// Package prompt assembles the layered, role-tagged prompt a provider call is
// made from: eight fixed template layers, an optional retrieved-knowledge
// block, budgeted conversation history, and the new user turn.
package prompt

// Segment is one role-tagged block of the composed prompt.
type Segment struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
