package generate

import (
	"regexp"
	"strings"
)

// StopGuard watches the accumulated output for stop sequences, ignoring case.
type StopGuard struct {
	stops   []string
	longest int
	buf     strings.Builder
	stopped bool
}

// NewStopGuard creates a guard for stops. Nil uses DefaultStopSequences.
func NewStopGuard(stops []string) *StopGuard {
	if stops == nil {
		stops = DefaultStopSequences
	}
	g := &StopGuard{}
	for _, s := range stops {
		if s == "" {
			continue
		}
		s = strings.ToLower(s)
		g.stops = append(g.stops, s)
		if len(s) > g.longest {
			g.longest = len(s)
		}
	}
	return g
}

// Push appends fragment and reports whether the buffer now contains a stop
// sequence. Once stopped, Push keeps returning true.
func (g *StopGuard) Push(fragment string) bool {
	if g.stopped {
		return true
	}
	lower := strings.ToLower(fragment)
	start := g.buf.Len() - g.longest
	if start < 0 {
		start = 0
	}
	g.buf.WriteString(lower)
	window := g.buf.String()[start:]
	for _, s := range g.stops {
		if strings.Contains(window, s) {
			g.stopped = true
			return true
		}
	}
	return false
}

// Stopped reports whether a stop sequence has been seen.
func (g *StopGuard) Stopped() bool {
	return g.stopped
}

// TrimAtStop cuts text at the first stop sequence, ignoring case.
func TrimAtStop(text string, stops []string) string {
	if stops == nil {
		stops = DefaultStopSequences
	}
	var alts []string
	for _, s := range stops {
		if s != "" {
			alts = append(alts, regexp.QuoteMeta(s))
		}
	}
	if len(alts) == 0 {
		return text
	}
	re := regexp.MustCompile("(?i)" + strings.Join(alts, "|"))
	if loc := re.FindStringIndex(text); loc != nil {
		return text[:loc[0]]
	}
	return text
}
