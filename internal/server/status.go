package server

import (
	"context"
	"errors"

	"github.com/hyperjump/passage/internal/index"
	"github.com/hyperjump/passage/internal/models"
	"github.com/hyperjump/passage/internal/storage"
)

// CollectStatus summarizes idx, the catalog's run history and the disk usage
// of diskPaths. catalog may be nil.
func CollectStatus(ctx context.Context, idx *index.Index, catalog storage.Catalog, diskPaths ...string) (*models.Status, error) {
	if idx == nil {
		return nil, index.ErrIndexUnavailable
	}
	m := idx.Manifest()
	st := &models.Status{
		Chunks:     idx.Len(),
		Dimensions: idx.Dimensions(),
		Model:      m.Model,
		RunID:      m.RunID,
		IndexType:  idx.Type(),
	}
	if !m.CreatedAt.IsZero() {
		t := m.CreatedAt
		st.BuiltAt = &t
	}
	seen := make(map[string]struct{})
	for _, c := range idx.Chunks() {
		seen[c.Source] = struct{}{}
	}
	st.Sources = len(seen)

	if catalog != nil {
		runs, err := catalog.ListRuns(ctx, -1)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		st.Runs = len(runs)
		cs, err := catalogStatus(ctx, catalog, idx)
		if err != nil {
			return nil, err
		}
		st.Catalog = cs
	}
	if len(diskPaths) > 0 {
		if n, err := storage.DiskUsageBytes(diskPaths...); err == nil {
			st.DiskUsageBytes = &n
		}
	}
	return st, nil
}

// catalogStatus compares the catalog's latest run with the loaded index. It
// returns nil when the catalog has no runs yet.
func catalogStatus(ctx context.Context, catalog storage.Catalog, idx *index.Index) (*models.CatalogStatus, error) {
	run, err := catalog.LatestRun(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	count, err := catalog.CountChunks(ctx)
	if err != nil {
		return nil, err
	}
	cs := &models.CatalogStatus{
		RunID:  run.ID,
		Model:  run.Model,
		Chunks: count,
		InSync: run.ID == idx.Manifest().RunID && count == int64(idx.Len()),
	}
	if !run.CreatedAt.IsZero() {
		t := run.CreatedAt
		cs.BuiltAt = &t
	}
	return cs, nil
}
