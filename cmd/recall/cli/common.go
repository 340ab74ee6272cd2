package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/felixgeelhaar/recall/internal/agent"
	"github.com/felixgeelhaar/recall/internal/config"
	"github.com/felixgeelhaar/recall/internal/credential"
	"github.com/felixgeelhaar/recall/internal/graph"
	"github.com/felixgeelhaar/recall/internal/guard"
	"github.com/felixgeelhaar/recall/internal/index"
	"github.com/felixgeelhaar/recall/internal/memory"
	"github.com/felixgeelhaar/recall/internal/observe"
	"github.com/felixgeelhaar/recall/internal/provider"
	"github.com/felixgeelhaar/recall/internal/store"
	"github.com/felixgeelhaar/recall/internal/ui"
)

// app is the wired stack shared by the commands.
type app struct {
	Config   *config.Config
	Observer *observe.Observer
	Store    *store.SQLiteStore
	Vault    *credential.Vault
	Guard    *guard.Guard
	Engine   *memory.Engine
	Graph    *graph.Builder
	Agent    *agent.Agent
	Provider provider.Provider

	closers []func() error
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if providerType != "" {
		cfg.Provider = providerType
	}
	if modelName != "" {
		cfg.Model = modelName
	}
	return cfg, nil
}

func newObserver() *observe.Observer {
	if jsonLogs {
		return observe.NewJSON(os.Stderr, verbose)
	}
	return observe.New(os.Stderr, verbose)
}

// openStore opens the metadata store and the settings vault without any
// model provider. Used by commands that never embed.
func openStore(cfg *config.Config) (*store.SQLiteStore, *credential.Vault, error) {
	s, err := store.NewSQLiteStore(cfg.DBPath())
	if err != nil {
		return nil, nil, err
	}
	m, err := credential.NewManager()
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	return s, credential.NewVault(s, m), nil
}

// newApp loads the configuration and wires store, providers, engine and agent.
// The index starts empty; call rebuild before serving.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	obs := newObserver()

	res := cfg.Validate()
	for _, w := range res.Warnings {
		obs.Log().Warn().Msg(w)
	}
	if !res.Valid {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(res.Errors, "; "))
	}

	s, vault, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{
		Config:   cfg,
		Observer: obs,
		Store:    s,
		Vault:    vault,
		Guard:    guard.New(cfg.Policy),
		closers:  []func() error{s.Close},
	}

	chat, err := a.buildProvider(cfg.Provider, cfg.Model)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize provider %s: %w", cfg.Provider, err)
	}
	a.Provider = chat

	embedder, err := a.buildEmbedder(chat)
	if err != nil {
		a.Close()
		return nil, err
	}

	idx, err := newIndex(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Engine = memory.NewEngine(s, idx, embedder, obs)
	if ttl := cfg.CacheTTL(); ttl > 0 {
		a.Engine.SetQueryEmbedder(provider.NewCachedEmbedder(embedder, ttl))
	}
	a.Graph = graph.NewBuilder(s, obs)
	a.Agent = agent.New(a.Engine, s, a.Guard, agent.NewLLMAnalyzer(chat), chat, obs)
	a.Agent.SetTopK(cfg.TopK)
	a.Agent.Events().SubscribeAll(func(ev agent.Event) {
		obs.Log().Debug().
			Str("event", string(ev.Type)).
			Str("turn", ev.TurnID).
			Msg("agent event")
	})

	obs.Log().Info().
		Str("provider", chat.Name()).
		Str("embedding_provider", embedder.Name()).
		Str("index", cfg.Index).
		Str("db", cfg.DBPath()).
		Msg("recall initialized")
	return a, nil
}

func newIndex(cfg *config.Config) (index.Index, error) {
	switch cfg.Index {
	case config.IndexChromem:
		return index.NewChromem(cfg.Dimension)
	default:
		return index.NewFlat(cfg.Dimension), nil
	}
}

func (a *app) buildEmbedder(chat provider.Provider) (provider.Provider, error) {
	name := a.Config.EmbeddingProviderName()
	var p provider.Provider
	if name == a.Config.Provider {
		p = chat
	} else {
		var err error
		p, err = a.buildProvider(name, "")
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedding provider %s: %w", name, err)
		}
	}

	if a.Config.EmbeddingModel != "" {
		if s, ok := p.(interface{ SetEmbeddingModel(string) }); ok {
			s.SetEmbeddingModel(a.Config.EmbeddingModel)
		}
	}
	return p, nil
}

func (a *app) buildProvider(name, model string) (provider.Provider, error) {
	switch {
	case name == "openai":
		baseURL, _ := a.Vault.Get("openai.base_url")
		return provider.NewOpenAIProvider(a.apiKey("openai"), baseURL, model)
	case name == "ollama":
		return provider.NewOllamaProvider(model)
	case name == "gemini":
		p, err := provider.NewGeminiProvider(a.apiKey("gemini"), model)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, p.Close)
		return p, nil
	case name == "anthropic":
		return provider.NewAnthropicProvider(a.apiKey("anthropic"), model)
	case name == "stub":
		return provider.NewStubProvider(), nil
	case strings.HasPrefix(name, "cli:"):
		return detectCLIProvider(strings.TrimPrefix(name, "cli:"))
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

// apiKey reads <provider>.api_key from the vault, then $<PROVIDER>_API_KEY.
func (a *app) apiKey(name string) string {
	if key, err := a.Vault.Get(name + ".api_key"); err == nil && key != "" {
		return key
	} else if err != nil {
		a.Observer.Log().Warn().Str("provider", name).Err(err).Msg("failed to read stored api key")
	}
	return os.Getenv(strings.ToUpper(name) + "_API_KEY")
}

func detectCLIProvider(binary string) (provider.Provider, error) {
	if binary != "" {
		path, err := exec.LookPath(binary)
		if err != nil {
			return nil, fmt.Errorf("cli agent %q not found: %w", binary, err)
		}
		return provider.NewCLIProvider(path, []string{})
	}

	tools := []string{"claude", "codex", "gemini", "llm"}
	for _, t := range tools {
		path, err := exec.LookPath(t)
		if err == nil {
			return provider.NewCLIProvider(path, []string{})
		}
	}

	return nil, fmt.Errorf("no local CLI agents detected (tried claude, codex, gemini, llm)")
}

// rebuild re-embeds every stored memory into the index, reporting progress to u.
func (a *app) rebuild(ctx context.Context, u ui.UI) error {
	if u == nil {
		u = ui.SilentUI{}
	}
	u.UpdateStatus("Rebuilding memory index...")
	n, err := a.Engine.Rebuild(ctx, u.UpdateProgress)
	if err != nil {
		u.UpdateStatus("Index rebuild failed")
		return fmt.Errorf("failed to rebuild index: %w", err)
	}
	u.UpdateStatus(fmt.Sprintf("Ready (%d memories)", n))
	return nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Observer.Log().Warn().Err(err).Msg("close failed")
		}
	}
}
