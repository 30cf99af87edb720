// Package extract pulls per-page plain text out of document files.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/passage/internal/models"
)

// DefaultExtensions lists the file extensions the extractor understands.
var DefaultExtensions = []string{".pdf", ".docx", ".odt", ".rtf", ".xlsx", ".pptx", ".txt", ".md", ".rst"}

// Extractor extracts page text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Supported reports whether ext (with leading dot) has a dedicated extractor.
func (e *Extractor) Supported(ext string) bool {
	ext = strings.ToLower(ext)
	for _, s := range DefaultExtensions {
		if s == ext {
			return true
		}
	}
	return false
}

// ExtractPages reads the file at path and returns its pages.
// Page numbers are 1-based and follow the document's own pagination where it
// has one: PDF pages, spreadsheet sheets, presentation slides, form-feed
// separated text. Other formats are a single page. Blank pages are omitted
// but keep their numbers.
func (e *Extractor) ExtractPages(path string) ([]models.Page, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.ExtractPagesBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ExtractPagesBytes extracts pages from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractPagesBytes(content []byte, ext string) ([]models.Page, error) {
	var (
		texts []string
		err   error
	)
	switch strings.ToLower(ext) {
	case ".pdf":
		texts, err = extractPDF(content)
	case ".docx":
		texts, err = single(extractDOCX(content))
	case ".odt", ".rtf":
		texts, err = single(extractWithCat(content))
	case ".xlsx":
		texts, err = extractExcel(content)
	case ".pptx":
		texts, err = extractPPTX(content)
	default:
		texts, err = extractPlain(content)
	}
	if err != nil {
		return nil, err
	}
	return toPages(texts), nil
}

// Text returns all pages joined by blank lines.
func Text(pages []models.Page) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n\n")
}

func single(text string, err error) ([]string, error) {
	if err != nil {
		return nil, err
	}
	return []string{text}, nil
}

func toPages(texts []string) []models.Page {
	pages := make([]models.Page, 0, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		pages = append(pages, models.Page{Number: i + 1, Text: t})
	}
	return pages
}
