package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

func openZip(content []byte, format string) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("extract %s: not a zip: %w", format, err)
	}
	return zr, nil
}

func readZipFile(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return "", fmt.Errorf("read %s: %w", f.Name, err)
	}
	return buf.String(), nil
}

// joinTextRuns concatenates the first capture group of every match, space separated.
func joinTextRuns(re *regexp.Regexp, xml string) string {
	parts := re.FindAllStringSubmatch(xml, -1)
	runs := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p[1]); s != "" {
			runs = append(runs, s)
		}
	}
	return strings.Join(runs, " ")
}
