package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/passage/internal/models"
	"github.com/hyperjump/passage/internal/vector"
)

// Save writes the store pair and manifest into dir as one unit: files are
// written to a staging directory which then replaces dir.
func (x *Index) Save(dir string) error {
	dir = filepath.Clean(dir)
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return fmt.Errorf("failed to create index parent dir: %w", err)
	}
	stage, err := os.MkdirTemp(parent, "."+filepath.Base(dir)+".staging-")
	if err != nil {
		return fmt.Errorf("failed to create staging dir: %w", err)
	}
	defer os.RemoveAll(stage)

	if err := x.vectors.Save(filepath.Join(stage, VectorsFile)); err != nil {
		return fmt.Errorf("failed to write vectors: %w", err)
	}
	if err := writeJSON(filepath.Join(stage, MetadataFile), x.chunks); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := writeJSON(filepath.Join(stage, ManifestFile), x.manifest); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	old := dir + ".old"
	if err := os.RemoveAll(old); err != nil {
		return fmt.Errorf("failed to clear previous backup: %w", err)
	}
	hadOld := true
	if err := os.Rename(dir, old); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to move previous index aside: %w", err)
		}
		hadOld = false
	}
	if err := os.Rename(stage, dir); err != nil {
		if hadOld {
			_ = os.Rename(old, dir)
		}
		return fmt.Errorf("failed to install index: %w", err)
	}
	if hadOld {
		_ = os.RemoveAll(old)
	}
	return nil
}

// Load reads the store pair from dir. indexType selects the vector store
// implementation. Every failure wraps ErrIndexUnavailable: absent or
// unreadable files are ErrMissingIndex, disagreement between the files is
// ErrIndexMetadataMismatch.
func Load(dir, indexType string) (*Index, error) {
	vecPath := filepath.Join(dir, VectorsFile)
	metaPath := filepath.Join(dir, MetadataFile)

	for _, p := range []string{vecPath, metaPath} {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMissingIndex, err)
		}
	}

	store, err := vector.OpenVectorIndex(indexType, vecPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMissingIndex, vecPath, err)
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("%w: %v", ErrMissingIndex, err)
	}
	var chunks []models.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		store.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrIndexMetadataMismatch, metaPath, err)
	}

	manifest, err := readManifest(filepath.Join(dir, ManifestFile))
	if err != nil {
		store.Close()
		return nil, err
	}
	if manifest.Dimensions != 0 && manifest.Dimensions != store.Dimensions() {
		store.Close()
		return nil, fmt.Errorf("%w: manifest dimension %d, vectors %d", ErrIndexMetadataMismatch, manifest.Dimensions, store.Dimensions())
	}

	if manifest.Count != 0 && manifest.Count != len(chunks) {
		store.Close()
		return nil, fmt.Errorf("%w: manifest count %d, metadata entries %d", ErrIndexMetadataMismatch, manifest.Count, len(chunks))
	}

	idx, err := New(store, chunks, manifest)
	if err != nil {
		store.Close()
		return nil, err
	}
	return idx, nil
}

// readManifest tolerates a missing manifest; the pair alone is a usable index.
func readManifest(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return m, fmt.Errorf("%w: %v", ErrMissingIndex, err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("%w: %s: %v", ErrIndexMetadataMismatch, path, err)
	}
	return m, nil
}

// ReadManifest reads the manifest of the index stored in dir.
func ReadManifest(dir string) (Manifest, error) {
	return readManifest(filepath.Join(dir, ManifestFile))
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
