package segment

import (
	"regexp"
	"strings"
)

var pageNumberLine = regexp.MustCompile(`^\s*\d+\s*$`)

// Clean drops lines made up only of digits and whitespace (page numbers) and
// joins the remaining lines with single spaces.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if pageNumberLine.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, " ")
}
