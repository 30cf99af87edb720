// Package cli formats command output for passage.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/passage/internal/answer"
	"github.com/hyperjump/passage/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputJSON:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	if len(response.Hits) == 0 {
		fmt.Fprintf(w, "\nNo grounded passages for %q (%dms)\n", response.Query, response.QueryTime)
		return nil
	}
	fmt.Fprintf(w, "\nFound %d passages in %dms\n\n", response.Total, response.QueryTime)
	for i, h := range response.Hits {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "[%d] %s p%d | Score: %.4f\n", i+1, h.Source, h.Page, h.Score)
		fmt.Fprintf(w, "ID: %s\n", h.ID)
		fmt.Fprintf(w, "\n%s\n\n", TruncateWords(h.Text, 60))
	}
	return nil
}

// WriteAnswer writes an answer and its sources to w in the given format.
func WriteAnswer(w io.Writer, resp *models.AskResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "%s\n", resp.Answer)
	WriteSources(w, resp.Sources)
	return nil
}

// WriteSources writes the "Sources used" block. Nothing is written for no sources.
func WriteSources(w io.Writer, sources []models.Source) {
	if len(sources) == 0 {
		return
	}
	fmt.Fprintf(w, "\nSources used:\n%s", answer.FormatSources(sources))
}

// WriteStatus writes index status to w in the given format.
func WriteStatus(w io.Writer, st *models.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "chunks:             %d   # passages in the index\n", st.Chunks)
	fmt.Fprintf(w, "sources:            %d   # source documents\n", st.Sources)
	fmt.Fprintf(w, "dimensions:         %d\n", st.Dimensions)
	fmt.Fprintf(w, "index_type:         %s\n", st.IndexType)
	if st.Model != "" {
		fmt.Fprintf(w, "model:              %s\n", st.Model)
	}
	if st.RunID != "" {
		fmt.Fprintf(w, "run_id:             %s\n", st.RunID)
	}
	if st.BuiltAt != nil {
		fmt.Fprintf(w, "built_at:           %s\n", st.BuiltAt.Format("2006-01-02 15:04:05 MST"))
	}
	if st.Runs > 0 {
		fmt.Fprintf(w, "runs:               %d   # builds recorded in the catalog\n", st.Runs)
	}
	if st.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # chunk records + index + catalog on disk\n", *st.DiskUsageBytes)
	}
	if c := st.Catalog; c != nil {
		fmt.Fprintf(w, "catalog_run_id:     %s\n", c.RunID)
		fmt.Fprintf(w, "catalog_chunks:     %d\n", c.Chunks)
		if !c.InSync {
			fmt.Fprintf(w, "catalog_in_sync:    false   # catalog and loaded index describe different builds\n")
		}
	}
	return nil
}

// Truncate shortens s to maxLen characters and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if maxLen <= 0 || len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
