package prompt

import "testing"

func TestSubstituteReplacesKnownPlaceholders(t *testing.T) {
	t.Parallel()

	got := Substitute("Hello {{user}}, I am {{char}}.", map[string]string{
		"user": "Sam",
		"char": "Mira",
	})
	want := "Hello Sam, I am Mira."
	if got != want {
		t.Fatalf("unexpected substitution: got=%q want=%q", got, want)
	}
}

func TestSubstituteLeavesUnknownPlaceholdersVerbatim(t *testing.T) {
	t.Parallel()

	got := Substitute("Hello {{unknown}}", map[string]string{})
	if got != "Hello {{unknown}}" {
		t.Fatalf("unknown placeholder was altered: got=%q", got)
	}
}

func TestSubstituteIsSinglePass(t *testing.T) {
	t.Parallel()

	// A substituted value containing a placeholder must not be expanded
	// again.
	got := Substitute("{{a}}", map[string]string{
		"a": "{{b}}",
		"b": "secret",
	})
	if got != "{{b}}" {
		t.Fatalf("substitution recursed: got=%q want=%q", got, "{{b}}")
	}
}

func TestSubstituteHandlesUnterminatedPlaceholder(t *testing.T) {
	t.Parallel()

	got := Substitute("broken {{tail", map[string]string{"tail": "x"})
	if got != "broken {{tail" {
		t.Fatalf("unterminated placeholder was altered: got=%q", got)
	}
}
