// Package config provides unified configuration for datapeek.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Size constants for ingestion limits.
const (
	MiB = 1024 * 1024
	GiB = 1024 * MiB
)

// Config holds the unified configuration for datapeek.
type Config struct {
	// Ingest configuration
	Ingest IngestConfig `json:"ingest" yaml:"ingest"`

	// Query configuration
	Query QueryConfig `json:"query" yaml:"query"`

	// SelfTest configuration
	SelfTest SelfTestConfig `json:"self_test" yaml:"self_test"`
}

// IngestConfig holds CSV ingestion configuration.
type IngestConfig struct {
	// MaxFileBytes is the maximum accepted file size (default 1 GiB)
	MaxFileBytes int64 `json:"max_file_bytes" yaml:"max_file_bytes"`

	// ChunkBytes is the streaming chunk size (default 10 MiB)
	ChunkBytes int `json:"chunk_bytes" yaml:"chunk_bytes"`

	// BatchRows is the number of rows per batch on the producer channel
	BatchRows int `json:"batch_rows" yaml:"batch_rows"`
}

// QueryConfig holds query engine configuration.
type QueryConfig struct {
	// TableName is the fixed virtual table name the dataset is bound to
	TableName string `json:"table_name" yaml:"table_name"`

	// DisplayRowLimit caps the rows exposed for tabular display.
	// Statistics always use the full result.
	DisplayRowLimit int `json:"display_row_limit" yaml:"display_row_limit"`

	// MaxHistogramColumns is the number of numeric columns visualized
	MaxHistogramColumns int `json:"max_histogram_columns" yaml:"max_histogram_columns"`
}

// SelfTestConfig holds self-test harness configuration.
type SelfTestConfig struct {
	// SettleDelay is the fixed delay representing visualization generation
	SettleDelay time.Duration `json:"settle_delay" yaml:"settle_delay"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Ingest: IngestConfig{
			MaxFileBytes: 1 * GiB,
			ChunkBytes:   10 * MiB,
			BatchRows:    1024,
		},
		Query: QueryConfig{
			TableName:           "tablename",
			DisplayRowLimit:     100,
			MaxHistogramColumns: 6,
		},
		SelfTest: SelfTestConfig{
			SettleDelay: 500 * time.Millisecond,
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Ingest.MaxFileBytes <= 0 {
		return fmt.Errorf("ingest.max_file_bytes must be positive, got %d", c.Ingest.MaxFileBytes)
	}

	if c.Ingest.ChunkBytes <= 0 {
		return fmt.Errorf("ingest.chunk_bytes must be positive, got %d", c.Ingest.ChunkBytes)
	}

	if c.Ingest.BatchRows <= 0 {
		return fmt.Errorf("ingest.batch_rows must be positive, got %d", c.Ingest.BatchRows)
	}

	if c.Query.TableName == "" {
		return fmt.Errorf("query.table_name is required")
	}

	if c.Query.DisplayRowLimit <= 0 {
		return fmt.Errorf("query.display_row_limit must be positive, got %d", c.Query.DisplayRowLimit)
	}

	if c.Query.MaxHistogramColumns <= 0 {
		return fmt.Errorf("query.max_histogram_columns must be positive, got %d", c.Query.MaxHistogramColumns)
	}

	if c.SelfTest.SettleDelay < 0 {
		return fmt.Errorf("self_test.settle_delay must not be negative, got %s", c.SelfTest.SettleDelay)
	}

	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the DATAPEEK_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("DATAPEEK_MAX_FILE_BYTES"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Ingest.MaxFileBytes)
	}
	if v := os.Getenv("DATAPEEK_CHUNK_BYTES"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Ingest.ChunkBytes)
	}
	if v := os.Getenv("DATAPEEK_BATCH_ROWS"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Ingest.BatchRows)
	}
	if v := os.Getenv("DATAPEEK_TABLE_NAME"); v != "" {
		cfg.Query.TableName = v
	}
	if v := os.Getenv("DATAPEEK_DISPLAY_ROW_LIMIT"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Query.DisplayRowLimit)
	}
	if v := os.Getenv("DATAPEEK_MAX_HISTOGRAM_COLUMNS"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Query.MaxHistogramColumns)
	}
	if v := os.Getenv("DATAPEEK_SELFTEST_SETTLE_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SelfTest.SettleDelay = d
		}
	}
}
