package extract

import (
	"archive/zip"
	"fmt"
	"regexp"
	"strings"
)

const (
	docxDefaultPath     = "word/document.xml"
	contentTypesPath    = "[Content_Types].xml"
	docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

// wtTag matches <w:t>text</w:t> with any attributes.
var wtTag = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

var overrideTag = regexp.MustCompile(`<Override[^>]*/?>`)

var partNameAttr = regexp.MustCompile(`PartName="([^"]+)"`)

// docxMainPath finds the main document part declared in [Content_Types].xml,
// falling back to word/document.xml.
func docxMainPath(zr *zip.Reader) string {
	for _, f := range zr.File {
		if f.Name != contentTypesPath {
			continue
		}
		types, err := readZipFile(f)
		if err != nil {
			break
		}
		for _, tag := range overrideTag.FindAllString(types, -1) {
			if !strings.Contains(tag, `ContentType="`+docxMainContentType+`"`) {
				continue
			}
			if m := partNameAttr.FindStringSubmatch(tag); len(m) > 1 {
				return strings.TrimPrefix(m[1], "/")
			}
		}
		break
	}
	return docxDefaultPath
}

// extractDOCX collects every <w:t> run of the main document part.
func extractDOCX(content []byte) (string, error) {
	zr, err := openZip(content, "DOCX")
	if err != nil {
		return "", err
	}
	docPath := docxMainPath(zr)
	for _, f := range zr.File {
		if f.Name != docPath {
			continue
		}
		xml, err := readZipFile(f)
		if err != nil {
			return "", fmt.Errorf("extract DOCX: %w", err)
		}
		return joinTextRuns(wtTag, xml), nil
	}
	return "", fmt.Errorf("extract DOCX: %s not found", docPath)
}
