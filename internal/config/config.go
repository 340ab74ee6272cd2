// Package config loads recall's settings file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/recall/internal/guard"
)

const (
	IndexFlat    = "flat"
	IndexChromem = "chromem"

	// HomeEnv overrides the default ~/.recall home directory.
	HomeEnv = "RECALL_HOME"
)

var knownProviders = map[string]bool{
	"openai": true, "ollama": true, "gemini": true, "anthropic": true, "stub": true,
}

// embeddingProviders lists the providers that can produce vectors.
var embeddingProviders = map[string]bool{
	"openai": true, "ollama": true, "gemini": true, "stub": true,
}

// Config holds the settings for a recall process.
type Config struct {
	Provider          string       `json:"provider" yaml:"provider"`
	Model             string       `json:"model" yaml:"model"`
	EmbeddingProvider string       `json:"embedding_provider" yaml:"embedding_provider"`
	EmbeddingModel    string       `json:"embedding_model" yaml:"embedding_model"`
	Dimension         int          `json:"dimension" yaml:"dimension"`
	TopK              int          `json:"top_k" yaml:"top_k"`
	Index             string       `json:"index" yaml:"index"`
	DataDir           string       `json:"data_dir" yaml:"data_dir"`
	Listen            string       `json:"listen" yaml:"listen"`
	QueryCacheTTL     string       `json:"query_cache_ttl" yaml:"query_cache_ttl"`
	Policy            guard.Policy `json:"policy" yaml:"policy"`
}

// ValidationResult represents the outcome of a validation pass.
type ValidationResult struct {
	Valid    bool
	Warnings []string
	Errors   []string
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Provider:      "openai",
		TopK:          5,
		Index:         IndexFlat,
		DataDir:       HomeDir(),
		Listen:        "127.0.0.1:5000",
		QueryCacheTTL: "10m",
		Policy:        guard.DefaultPolicy,
	}
}

// HomeDir returns $RECALL_HOME, or ~/.recall.
func HomeDir() string {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".recall"
	}
	return filepath.Join(home, ".recall")
}

// Load reads a config file (JSON or YAML) over the defaults. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal JSON config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal YAML config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s (use .json or .yaml)", ext)
	}

	return cfg, nil
}

// DBPath is the SQLite file inside DataDir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "memories.db")
}

// EmbeddingProviderName falls back to the chat provider.
func (c *Config) EmbeddingProviderName() string {
	if c.EmbeddingProvider != "" {
		return c.EmbeddingProvider
	}
	return c.Provider
}

// CacheTTL parses QueryCacheTTL. Zero disables the query cache.
func (c *Config) CacheTTL() time.Duration {
	d, err := time.ParseDuration(c.QueryCacheTTL)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// Validate checks the settings for consistency.
func (c *Config) Validate() ValidationResult {
	res := ValidationResult{
		Valid:    true,
		Warnings: []string{},
		Errors:   []string{},
	}
	fail := func(msg string) {
		res.Valid = false
		res.Errors = append(res.Errors, msg)
	}

	if c.Provider == "" {
		fail("Provider is required")
	} else if !knownProviders[c.Provider] && !strings.HasPrefix(c.Provider, "cli:") {
		fail(fmt.Sprintf("Unknown provider %q", c.Provider))
	}

	if emb := c.EmbeddingProviderName(); emb != "" && !embeddingProviders[emb] {
		fail(fmt.Sprintf("Provider %q cannot produce embeddings; set embedding_provider", emb))
	}

	switch c.Index {
	case IndexFlat, IndexChromem:
	default:
		fail(fmt.Sprintf("Unknown index %q (use flat or chromem)", c.Index))
	}

	if c.Dimension < 0 {
		fail("Dimension must not be negative")
	}
	if c.TopK <= 0 {
		res.Warnings = append(res.Warnings, "top_k is not positive; the default of 5 will be used")
	}

	if c.QueryCacheTTL != "" {
		if d, err := time.ParseDuration(c.QueryCacheTTL); err != nil || d < 0 {
			fail(fmt.Sprintf("Invalid query_cache_ttl %q", c.QueryCacheTTL))
		}
	}

	if c.DataDir == "" {
		fail("data_dir is required")
	}

	if err := guard.New(c.Policy).ValidatePatterns(); err != nil {
		fail(err.Error())
	}
	if c.Policy.MaxContentLength == 0 {
		res.Warnings = append(res.Warnings, "No content length limit set")
	}

	return res
}
