package prompt

import "strings"

// Substitute replaces every {{name}} occurrence in text with vars[name].
// Unknown placeholders are left verbatim so partially configured characters
// still render a usable prompt. Substitution is single-pass and
// non-recursive: substituted values are never re-scanned for placeholders.
func Substitute(text string, vars map[string]string) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	for {
		open := strings.Index(text, "{{")
		if open < 0 {
			b.WriteString(text)
			break
		}
		end := strings.Index(text[open:], "}}")
		if end < 0 {
			b.WriteString(text)
			break
		}
		end += open
		name := text[open+2 : end]
		b.WriteString(text[:open])
		if val, ok := vars[name]; ok {
			b.WriteString(val)
		} else {
			b.WriteString(text[open : end+2])
		}
		text = text[end+2:]
	}
	return b.String()
}
