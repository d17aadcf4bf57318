// Package config provides configuration loading and structs for the Latent-FS server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Naming    NamingConfig    `yaml:"naming"`
	Cluster   ClusterConfig   `yaml:"cluster"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the document database path.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// EmbeddingConfig holds embedding backend settings. Provider is "openai" or
// "mock" (deterministic, for development without an API key).
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"`
	Model          string `yaml:"model"`
	Dimensions     int    `yaml:"dimensions"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	CacheSize      int    `yaml:"cache_size"`
}

// Timeout returns the embedding call timeout.
func (e *EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// NamingConfig holds LLM folder-naming settings. When disabled (or when no
// API key is available) the deterministic fallback namer is used alone.
type NamingConfig struct {
	Enabled        *bool  `yaml:"enabled"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	SampleSize     int    `yaml:"sample_size"`
}

// EnabledOrDefault returns whether LLM naming is enabled; defaults to true when unset.
func (n *NamingConfig) EnabledOrDefault() bool {
	if n.Enabled != nil {
		return *n.Enabled
	}
	return true
}

// Timeout returns the naming call timeout.
func (n *NamingConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutSeconds) * time.Second
}

// ClusterConfig holds clustering and re-embedding policy.
type ClusterConfig struct {
	TargetClusters      int     `yaml:"target_clusters"`
	Alpha               float64 `yaml:"alpha"`
	MaxIterations       int     `yaml:"max_iterations"`
	NInit               int     `yaml:"n_init"`
	Seed                int64   `yaml:"seed"`
	StabilityThreshold  float64 `yaml:"stability_threshold"`
	DebounceSeconds     float64 `yaml:"debounce_seconds"`
	NormalizeAfterNudge *bool   `yaml:"normalize_after_nudge"`
}

// Debounce returns the minimum interval between re-clustering runs triggered
// by re-embedding. Zero disables debouncing.
func (c *ClusterConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceSeconds * float64(time.Second))
}

// NormalizeOrDefault returns whether nudged embeddings are re-normalized to
// unit length; defaults to true when unset (both embedding backends emit
// unit-norm vectors).
func (c *ClusterConfig) NormalizeOrDefault() bool {
	if c.NormalizeAfterNudge != nil {
		return *c.NormalizeAfterNudge
	}
	return true
}

// WatchConfig holds inbox directory watch settings. Files dropped into the
// watched directories are ingested as documents.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
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

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
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
