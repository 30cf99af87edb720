package models

import "time"

// Status summarizes the loaded index and the catalog.
type Status struct {
	Chunks         int            `json:"chunks"`
	Sources        int            `json:"sources"`
	Dimensions     int            `json:"dimensions"`
	Model          string         `json:"model,omitempty"`
	RunID          string         `json:"run_id,omitempty"`
	BuiltAt        *time.Time     `json:"built_at,omitempty"`
	IndexType      string         `json:"index_type"`
	Runs           int            `json:"runs"`
	DiskUsageBytes *int64         `json:"disk_usage_bytes,omitempty"`
	Catalog        *CatalogStatus `json:"catalog,omitempty"`
}

// CatalogStatus is the catalog's view of the latest build. InSync is false
// when the catalog describes a different run than the loaded index.
type CatalogStatus struct {
	RunID   string     `json:"run_id"`
	Model   string     `json:"model,omitempty"`
	BuiltAt *time.Time `json:"built_at,omitempty"`
	Chunks  int64      `json:"chunks"`
	InSync  bool       `json:"in_sync"`
}
