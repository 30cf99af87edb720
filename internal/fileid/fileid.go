// Package fileid derives stable identifiers for source documents from their paths.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

const prefix = "src:"

// SourceID returns a stable catalog ID for a source document path.
// Same path always yields the same ID.
func SourceID(path string) string {
	normalized := filepath.ToSlash(filepath.Clean(path))
	hash := sha256.Sum256([]byte(normalized))
	return prefix + hex.EncodeToString(hash[:])
}

// SourceKey returns the short key used as the prefix of chunk IDs: the path
// without its extension, with directory separators replaced by "-".
// "reports/q3.pdf" becomes "reports-q3".
func SourceKey(relPath string) string {
	p := filepath.ToSlash(filepath.Clean(relPath))
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimPrefix(p, "/")
	p = strings.TrimSuffix(p, filepath.Ext(p))
	p = strings.ReplaceAll(p, "/", "-")
	return strings.ReplaceAll(p, " ", "_")
}
