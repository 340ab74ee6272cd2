package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	yamlPath := filepath.Join(tmpDir, "recall.yaml")
	os.WriteFile(yamlPath, []byte("provider: ollama\nmodel: llama3.2\nembedding_model: nomic-embed-text\nindex: chromem\npolicy:\n  max_keywords: 3\n  blocked_keyword_globs: [\"secret*\"]\n"), 0600)

	jsonPath := filepath.Join(tmpDir, "recall.json")
	os.WriteFile(jsonPath, []byte(`{"provider": "stub", "top_k": 8, "dimension": 32}`), 0600)

	t.Run("YAML", func(t *testing.T) {
		cfg, err := Load(yamlPath)
		if err != nil {
			t.Fatalf("Failed to load YAML: %v", err)
		}
		if cfg.Provider != "ollama" || cfg.Index != IndexChromem {
			t.Errorf("Unexpected config %+v", cfg)
		}
		if cfg.Policy.MaxKeywords != 3 || len(cfg.Policy.BlockedKeywordGlobs) != 1 {
			t.Errorf("Policy not loaded: %+v", cfg.Policy)
		}
		// Unset fields keep their defaults.
		if cfg.TopK != 5 || cfg.Listen != "127.0.0.1:5000" {
			t.Errorf("Defaults not kept: %+v", cfg)
		}
	})

	t.Run("JSON", func(t *testing.T) {
		cfg, err := Load(jsonPath)
		if err != nil {
			t.Fatalf("Failed to load JSON: %v", err)
		}
		if cfg.Provider != "stub" || cfg.TopK != 8 || cfg.Dimension != 32 {
			t.Errorf("Unexpected config %+v", cfg)
		}
	})

	t.Run("Empty path", func(t *testing.T) {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Provider != "openai" {
			t.Errorf("Expected default provider, got %q", cfg.Provider)
		}
	})

	t.Run("Invalid Extension", func(t *testing.T) {
		path := filepath.Join(tmpDir, "recall.txt")
		os.WriteFile(path, []byte("x"), 0600)
		if _, err := Load(path); err == nil {
			t.Error("Expected error for .txt extension")
		}
	})

	t.Run("Missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(tmpDir, "missing.yaml")); err == nil {
			t.Error("Expected error for missing file")
		}
	})
}

func TestHomeDir(t *testing.T) {
	t.Setenv(HomeEnv, "/tmp/recall-home")
	if got := HomeDir(); got != "/tmp/recall-home" {
		t.Errorf("Expected RECALL_HOME to win, got %q", got)
	}
	if got := Default().DBPath(); got != filepath.Join("/tmp/recall-home", "memories.db") {
		t.Errorf("Unexpected DBPath %q", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		res := Default().Validate()
		if !res.Valid {
			t.Errorf("Expected valid, got errors: %v", res.Errors)
		}
	})

	t.Run("Anthropic needs an embedding provider", func(t *testing.T) {
		cfg := Default()
		cfg.Provider = "anthropic"
		if res := cfg.Validate(); res.Valid {
			t.Error("Expected invalid config")
		}
		cfg.EmbeddingProvider = "openai"
		if res := cfg.Validate(); !res.Valid {
			t.Errorf("Expected valid, got errors: %v", res.Errors)
		}
	})

	t.Run("Invalid fields", func(t *testing.T) {
		cfg := Default()
		cfg.Provider = "mystery"
		cfg.Index = "hnsw"
		cfg.Dimension = -1
		cfg.QueryCacheTTL = "soon"
		cfg.Policy.BlockedKeywordGlobs = []string{"[bad"}
		res := cfg.Validate()
		if res.Valid {
			t.Fatal("Expected invalid config")
		}
		if len(res.Errors) != 6 {
			t.Errorf("Expected 6 errors, got %d: %v", len(res.Errors), res.Errors)
		}
	})

	t.Run("Warnings", func(t *testing.T) {
		cfg := Default()
		cfg.TopK = 0
		cfg.Policy.MaxContentLength = 0
		res := cfg.Validate()
		if !res.Valid {
			t.Errorf("Expected valid, got errors: %v", res.Errors)
		}
		if len(res.Warnings) != 2 {
			t.Errorf("Expected 2 warnings, got %v", res.Warnings)
		}
	})

	t.Run("CLI provider", func(t *testing.T) {
		cfg := Default()
		cfg.Provider = "cli:claude"
		cfg.EmbeddingProvider = "ollama"
		if res := cfg.Validate(); !res.Valid {
			t.Errorf("Expected valid, got errors: %v", res.Errors)
		}
	})
}

func TestConfig_CacheTTL(t *testing.T) {
	cfg := Default()
	if cfg.CacheTTL() != 10*time.Minute {
		t.Errorf("Expected 10m, got %v", cfg.CacheTTL())
	}
	cfg.QueryCacheTTL = ""
	if cfg.CacheTTL() != 0 {
		t.Errorf("Expected disabled cache, got %v", cfg.CacheTTL())
	}
}
