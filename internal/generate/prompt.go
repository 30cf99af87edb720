package generate

import (
	"fmt"
	"regexp"
	"strings"
)

const systemPrompt = `You are an expert factual Q & A assistant that must **answer ONLY from the given CONTEXT**.
If the answer is not 100 % contained in CONTEXT, reply exactly: **I don't know**.
Never fabricate, speculate, or combine outside knowledge.

* Cite every supporting fact with its chunk number in square brackets, e.g. [2].
* If multiple chunks support the same sentence, list them comma-separated: [1, 4].
* Do **not** invent chunk numbers.
* Keep the answer concise but complete (at most 250 words).
* Use Markdown for formatting.
* End on a new line with **Confidence: High | Medium | Low**.`

// DefaultStopSequences end generation when the model starts echoing the
// prompt structure.
var DefaultStopSequences = []string{
	"</s>",
	"### System",
	"### Context",
	"### Question",
	"### Answer",
	"Instruction",
	"instruction",
}

// BuildContext numbers passages from 1 as "[i] text" separated by blank lines.
func BuildContext(passages []string) string {
	parts := make([]string, len(passages))
	for i, p := range passages {
		parts[i] = fmt.Sprintf("[%d] %s", i+1, p)
	}
	return strings.Join(parts, "\n\n")
}

// BuildPrompt fills the grounded answering template.
func BuildPrompt(contextText, question string) string {
	var b strings.Builder
	b.WriteString("### System\n")
	b.WriteString(systemPrompt)
	b.WriteString("\n\n### Context\n")
	b.WriteString(contextText)
	b.WriteString("\n\n### Question\n")
	b.WriteString(question)
	b.WriteString("\n\n### Answer (markdown):\n")
	return b.String()
}

var leakPattern = regexp.MustCompile(`(?i)\n\s*(instruction|###|sources used)`)

// Scrub removes everything from the first leaked prompt heading onward.
func Scrub(text string) string {
	if loc := leakPattern.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}
	return strings.TrimRight(text, " \t\r\n")
}
