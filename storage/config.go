package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// DefaultHistoryDepth is the default k for the LRU-K replacer
const DefaultHistoryDepth = 2

// Config holds page cache configuration
type Config struct {
	// Buffer Pool Configuration
	BufferPoolSize uint32 `json:"buffer_pool_size"` // Number of frames in buffer pool
	CacheReplacer  string `json:"cache_replacer"`   // Frame replacement policy (lruk, lru)
	HistoryDepth   uint32 `json:"history_depth"`    // Accesses tracked per frame (LRU-K only)

	// Disk Configuration
	DataDirectory   string `json:"data_directory"`   // Directory for data files
	UseMmap         bool   `json:"use_mmap"`         // Use memory-mapped disk access
	PageCompression string `json:"page_compression"` // Compression algorithm (none, snappy, lz4)

	// Performance Configuration
	EnableMetrics bool `json:"enable_metrics"` // Whether to collect performance metrics
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		BufferPoolSize:  100,
		CacheReplacer:   "lruk", // LRU-K resists scan pollution
		HistoryDepth:    DefaultHistoryDepth,
		DataDirectory:   "./data",
		UseMmap:         false,
		PageCompression: "none",
		EnableMetrics:   true,
	}
}

// LoadConfigFromFile loads configuration from a JSON file
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadConfigFromEnv loads configuration from environment variables.
// Falls back to default values if environment variables are not set.
func LoadConfigFromEnv() *Config {
	config := DefaultConfig()

	if val := os.Getenv("KITEDB_BUFFER_POOL_SIZE"); val != "" {
		if size, err := strconv.ParseUint(val, 10, 32); err == nil {
			config.BufferPoolSize = uint32(size)
		}
	}

	if val := os.Getenv("KITEDB_CACHE_REPLACER"); val != "" {
		config.CacheReplacer = val
	}

	if val := os.Getenv("KITEDB_HISTORY_DEPTH"); val != "" {
		if k, err := strconv.ParseUint(val, 10, 32); err == nil {
			config.HistoryDepth = uint32(k)
		}
	}

	if val := os.Getenv("KITEDB_DATA_DIRECTORY"); val != "" {
		config.DataDirectory = val
	}

	if val := os.Getenv("KITEDB_USE_MMAP"); val != "" {
		config.UseMmap = val == "true" || val == "1"
	}

	if val := os.Getenv("KITEDB_PAGE_COMPRESSION"); val != "" {
		config.PageCompression = val
	}

	if val := os.Getenv("KITEDB_ENABLE_METRICS"); val != "" {
		config.EnableMetrics = val == "true" || val == "1"
	}

	return config
}

// SaveToFile saves the configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.BufferPoolSize == 0 {
		return fmt.Errorf("buffer pool size must be greater than 0")
	}

	switch c.CacheReplacer {
	case "lruk", "lru", "2q", "arc":
	default:
		return fmt.Errorf("invalid cache replacer: %s (must be lruk, lru, 2q or arc)", c.CacheReplacer)
	}

	if c.CacheReplacer == "lruk" && c.HistoryDepth == 0 {
		return fmt.Errorf("history depth must be at least 1")
	}

	if c.DataDirectory == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if _, err := ParseCompressionType(c.PageCompression); err != nil {
		return err
	}

	if c.UseMmap && c.PageCompression != "none" {
		return fmt.Errorf("page compression is not supported with mmap disk access")
	}

	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// DataFilePath returns the path of the page file inside the data directory
func (c *Config) DataFilePath() string {
	return filepath.Join(c.DataDirectory, "pages.db")
}
