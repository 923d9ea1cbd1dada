package main

import (
	"fmt"
	"log/slog"

	"github.com/user/tradeagent/internal/agent"
	"github.com/user/tradeagent/internal/config"
	"github.com/user/tradeagent/internal/exchange"
	"github.com/user/tradeagent/internal/planner"
	"github.com/user/tradeagent/internal/state"
	"github.com/user/tradeagent/internal/tools"
	"github.com/user/tradeagent/internal/trader"
	"github.com/user/tradeagent/pkg/llm"
	"github.com/user/tradeagent/pkg/llm/anthropic"
)

// runtimeParts is everything a command needs to act on sessions.
type runtimeParts struct {
	db        *state.DB
	events    *state.EventStore
	artifacts *state.ArtifactStore
	memory    *state.MemoryStore
	provider  llm.Provider
	registry  *tools.Registry
	toolCtx   *tools.Context
	core      *agent.Agent
}

func (p *runtimeParts) Close() { p.db.Close() }

// buildRuntime opens the stores and wires the agent core the same way
// for the daemon and the one-shot commands.
func buildRuntime(cfg *config.Config) (*runtimeParts, error) {
	db, err := state.Open(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	events := state.NewEventStore(db)
	artifacts := state.NewArtifactStore(db)
	memory := state.NewMemoryStore(db)

	provider := anthropic.New(&llm.Config{
		BaseURL:   cfg.LLM.BaseURL,
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
	})

	registry := tools.BuildDefaultRegistry()

	toolCtx := &tools.Context{Memory: memory}
	if cfg.Exchange.APIKey != "" || cfg.Exchange.BaseURL != "" {
		toolCtx.Exchange = exchange.NewOKX(cfg.Exchange.APIKey, cfg.Exchange.APISecret, cfg.Exchange.Passphrase, cfg.Exchange.BaseURL)
	} else {
		slog.Warn("exchange client disabled (no credentials)")
	}
	if tr := buildTrader(cfg); tr != nil {
		toolCtx.Trader = tr
	}

	budget, err := planner.NewBudget(cfg.LLM.Model, cfg.Planner.HistoryTokens)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create token budget: %w", err)
	}
	pl := planner.NewLLMPlanner(provider, registry.Names(), budget, slog.Default())

	core := agent.New(events, artifacts, registry, pl, slog.Default())

	return &runtimeParts{
		db:        db,
		events:    events,
		artifacts: artifacts,
		memory:    memory,
		provider:  provider,
		registry:  registry,
		toolCtx:   toolCtx,
		core:      core,
	}, nil
}

// buildTrader resolves freqtrade API credentials, preferring explicit
// config over the freqtrade config file.
func buildTrader(cfg *config.Config) *trader.Client {
	url := cfg.Trader.URL
	username := cfg.Trader.Username
	password := cfg.Trader.Password

	if cfg.Trader.ConfigPath != "" {
		auth, err := trader.LoadAPIAuth(cfg.Trader.ConfigPath)
		if err != nil {
			slog.Warn("could not read freqtrade config", "path", cfg.Trader.ConfigPath, "error", err)
		} else {
			url = config.FirstNonEmpty(url, auth.BaseURL)
			username = config.FirstNonEmpty(username, auth.Username)
			password = config.FirstNonEmpty(password, auth.Password)
		}
	}

	if url == "" && username == "" {
		slog.Warn("trader client disabled (no freqtrade api config)")
		return nil
	}
	return trader.NewClient(url, username, password)
}
