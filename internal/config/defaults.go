package config

import "github.com/hyperjump/passage/internal/generate"

const defaultRoot = "/usr/local/var/passage"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeoutSecs == 0 {
		cfg.Server.RequestTimeoutSecs = 60
	}
	if cfg.Storage.ChunkDir == "" {
		cfg.Storage.ChunkDir = defaultRoot + "/data/chunks"
	}
	if cfg.Storage.IndexDir == "" {
		cfg.Storage.IndexDir = defaultRoot + "/data/index"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = defaultRoot + "/data/db/catalog.db"
	}
	if cfg.Ingest.DataDir == "" {
		cfg.Ingest.DataDir = defaultRoot + "/docs"
	}
	if cfg.Ingest.Extensions == nil {
		cfg.Ingest.Extensions = []string{".pdf", ".docx", ".odt", ".rtf", ".xlsx", ".pptx", ".txt", ".md", ".rst"}
	}
	if cfg.Ingest.Recursive == nil {
		t := true
		cfg.Ingest.Recursive = &t
	}
	if cfg.Segment.MaxWords == 0 {
		cfg.Segment.MaxWords = 160
	}
	if cfg.Segment.OverlapFraction == nil {
		f := 0.20
		cfg.Segment.OverlapFraction = &f
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.ModelPath == "" && cfg.Embedding.Provider == "onnx" {
		cfg.Embedding.ModelPath = defaultRoot + "/data/models/bge-small-en-v1.5.onnx"
	}
	if cfg.Embedding.OutputName == "" {
		cfg.Embedding.OutputName = "last_hidden_state"
	}
	if cfg.Embedding.Pooling == "" {
		cfg.Embedding.Pooling = "cls"
	}
	if cfg.Embedding.Model == "" && cfg.Embedding.Provider == "openai" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 64
	}
	if cfg.Vector.IndexType == "" {
		cfg.Vector.IndexType = "memory"
	}
	if cfg.Retrieval.DefaultK == 0 {
		cfg.Retrieval.DefaultK = 6
	}
	if cfg.Retrieval.MaxK == 0 {
		cfg.Retrieval.MaxK = 50
	}
	if cfg.Retrieval.SimilarityThreshold == nil {
		v := 0.45
		cfg.Retrieval.SimilarityThreshold = &v
	}
	if cfg.Retrieval.MinKeywordRatio == nil {
		v := 0.40
		cfg.Retrieval.MinKeywordRatio = &v
	}
	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = "none"
	}
	if cfg.Generation.APIKeyEnv == "" {
		cfg.Generation.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = 512
	}
	if cfg.Generation.StopSequences == nil {
		cfg.Generation.StopSequences = append([]string(nil), generate.DefaultStopSequences...)
	}
}

// Default returns a configuration suitable for "passage init", with data
// paths relative to the config file.
func Default() *Config {
	cfg := &Config{
		Storage: StorageConfig{
			ChunkDir:     "./data/chunks",
			IndexDir:     "./data/index",
			DatabasePath: "./data/db/catalog.db",
		},
		Ingest:    IngestConfig{DataDir: "./docs"},
		Embedding: EmbeddingConfig{Provider: "hash"},
	}
	ApplyDefaults(cfg)
	return cfg
}
