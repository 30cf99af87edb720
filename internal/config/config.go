// Package config provides configuration loading and structs for passage.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Segment    SegmentConfig    `yaml:"segment"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Vector     VectorConfig     `yaml:"vector"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Generation GenerationConfig `yaml:"generation"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	RequestTimeoutSecs int    `yaml:"request_timeout_secs"`
}

// StorageConfig holds paths for chunk records, the index pair and the catalog.
type StorageConfig struct {
	ChunkDir     string `yaml:"chunk_dir"`
	IndexDir     string `yaml:"index_dir"`
	DatabasePath string `yaml:"database_path"`
}

// IngestConfig holds source document settings.
type IngestConfig struct {
	DataDir    string   `yaml:"data_dir"`
	Extensions []string `yaml:"extensions"`
	Recursive  *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to walk data_dir recursively; defaults to true when unset.
func (i *IngestConfig) RecursiveOrDefault() bool {
	if i.Recursive != nil {
		return *i.Recursive
	}
	return true
}

// SegmentConfig holds chunking settings.
type SegmentConfig struct {
	MaxWords        int      `yaml:"max_words"`
	OverlapFraction *float64 `yaml:"overlap_fraction"`
	HardMaxWords    int      `yaml:"hard_max_words"`
}

// Overlap returns the overlap fraction; 0.20 when unset.
func (s *SegmentConfig) Overlap() float64 {
	if s.OverlapFraction != nil {
		return *s.OverlapFraction
	}
	return 0.20
}

// EmbeddingConfig holds encoder settings.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"`
	ModelPath   string `yaml:"model_path"`
	LibraryPath string `yaml:"library_path"`
	OutputName  string `yaml:"output_name"`
	Pooling     string `yaml:"pooling"`
	Model       string `yaml:"model"`
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Dimensions  int    `yaml:"dimensions"`
	MaxTokens   int    `yaml:"max_tokens"`
	CacheSize   int    `yaml:"cache_size"`
	BatchSize   int    `yaml:"batch_size"`
}

// VectorConfig selects the dense vector store.
type VectorConfig struct {
	IndexType string `yaml:"index_type"`
}

// RetrievalConfig holds search settings.
type RetrievalConfig struct {
	DefaultK            int      `yaml:"default_k"`
	MaxK                int      `yaml:"max_k"`
	SimilarityThreshold *float64 `yaml:"similarity_threshold"`
	MinKeywordRatio     *float64 `yaml:"min_keyword_ratio"`
	Stopwords           []string `yaml:"stopwords"`
}

// Threshold returns the cosine similarity threshold; 0.45 when unset.
func (r *RetrievalConfig) Threshold() float64 {
	if r.SimilarityThreshold != nil {
		return *r.SimilarityThreshold
	}
	return 0.45
}

// KeywordRatio returns the minimum keyword overlap ratio; 0.40 when unset.
func (r *RetrievalConfig) KeywordRatio() float64 {
	if r.MinKeywordRatio != nil {
		return *r.MinKeywordRatio
	}
	return 0.40
}

// GenerationConfig holds answer generation settings.
type GenerationConfig struct {
	Provider      string   `yaml:"provider"`
	Model         string   `yaml:"model"`
	BaseURL       string   `yaml:"base_url"`
	APIKeyEnv     string   `yaml:"api_key_env"`
	MaxTokens     int      `yaml:"max_tokens"`
	Temperature   float32  `yaml:"temperature"`
	StopSequences []string `yaml:"stop_sequences"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	configDir := filepath.Dir(path)
	cfg.Storage.ChunkDir = expandPath(cfg.Storage.ChunkDir, configDir)
	cfg.Storage.IndexDir = expandPath(cfg.Storage.IndexDir, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Ingest.DataDir = expandPath(cfg.Ingest.DataDir, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.Embedding.LibraryPath = expandPath(cfg.Embedding.LibraryPath, configDir)

	return &cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Segment.MaxWords <= 0 {
		return fmt.Errorf("segment.max_words must be positive, got %d", c.Segment.MaxWords)
	}
	if f := c.Segment.Overlap(); f < 0 || f >= 1 {
		return fmt.Errorf("segment.overlap_fraction must be in [0, 1), got %v", f)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if r := c.Retrieval.KeywordRatio(); r < 0 || r > 1 {
		return fmt.Errorf("retrieval.min_keyword_ratio must be in [0, 1], got %v", r)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
