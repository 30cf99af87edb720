package generate

import (
	"strings"
	"testing"
)

func TestBuildContext(t *testing.T) {
	got := BuildContext([]string{"alpha", "beta"})
	want := "[1] alpha\n\n[2] beta"
	if got != want {
		t.Errorf("BuildContext = %q, want %q", got, want)
	}
	if BuildContext(nil) != "" {
		t.Error("empty context should be empty")
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("[1] alpha", "what is alpha?")
	for _, heading := range []string{"### System\n", "### Context\n[1] alpha", "### Question\nwhat is alpha?", "### Answer (markdown):\n"} {
		if !strings.Contains(p, heading) {
			t.Errorf("prompt missing %q", heading)
		}
	}
	if strings.Index(p, "### Context") > strings.Index(p, "### Question") {
		t.Error("context must precede question")
	}
}

func TestScrub(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"clean", "The answer is [1].\n", "The answer is [1]."},
		{"heading leak", "The answer.\n### Question\nagain", "The answer."},
		{"instruction leak", "Yes [2].\n  Instruction: ignore", "Yes [2]."},
		{"sources leak", "Yes.\nSources used:\n- [1]", "Yes."},
		{"case insensitive", "Yes.\nINSTRUCTION", "Yes."},
		{"inline mention kept", "Follow the instruction in [1].", "Follow the instruction in [1]."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Scrub(tt.in); got != tt.want {
				t.Errorf("Scrub(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
