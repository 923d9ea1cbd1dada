// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9000"
storage:
  path: /tmp/agent.db
policy:
  enabled: true
news:
  allow_domains:
    - coindesk.com
    - www.theblock.co
jobs:
  - name: morning-brief
    schedule: "0 9 * * *"
    session_key: "telegram:1"
    prompt: "Summarize overnight market moves"
    enabled: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("server.addr = %q", cfg.Server.Addr)
	}
	if cfg.Storage.Path != "/tmp/agent.db" {
		t.Errorf("storage.path = %q", cfg.Storage.Path)
	}
	if !cfg.Policy.Enabled {
		t.Error("policy.enabled not set")
	}
	if len(cfg.News.AllowDomains) != 2 {
		t.Errorf("allow_domains = %v", cfg.News.AllowDomains)
	}
	if len(cfg.Jobs) != 1 || cfg.Jobs[0].Name != "morning-brief" || !cfg.Jobs[0].Enabled {
		t.Errorf("jobs = %+v", cfg.Jobs)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("default server.addr = %q", cfg.Server.Addr)
	}
	if cfg.LLM.MaxTokens != 800 {
		t.Errorf("default llm.max_tokens = %d", cfg.LLM.MaxTokens)
	}
	if cfg.Planner.HistoryTokens != 6000 {
		t.Errorf("default planner.history_tokens = %d", cfg.Planner.HistoryTokens)
	}
	if cfg.Gateway.MaxConcurrent != 2 {
		t.Errorf("default gateway.max_concurrent = %d", cfg.Gateway.MaxConcurrent)
	}
	if cfg.News.RefreshSchedule != "@every 30m" {
		t.Errorf("default news.refresh_schedule = %q", cfg.News.RefreshSchedule)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: \":9000\"\n")
	t.Setenv("TRADEAGENT_SERVER__ADDR", ":7777")
	t.Setenv("TRADEAGENT_LOGGING__LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":7777" {
		t.Errorf("env override lost, server.addr = %q", cfg.Server.Addr)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging.level = %q", cfg.Logging.Level)
	}
}

func TestLoadSubstitutesSecretEnvVars(t *testing.T) {
	path := writeConfig(t, `
llm:
  api_key: ${TEST_LLM_KEY}
telegram:
  token: ${TEST_TG_TOKEN}
`)
	t.Setenv("TEST_LLM_KEY", "sk-test-123")
	t.Setenv("TEST_TG_TOKEN", "tg-abc")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.APIKey != "sk-test-123" {
		t.Errorf("llm.api_key = %q", cfg.LLM.APIKey)
	}
	if cfg.Telegram.Token != "tg-abc" {
		t.Errorf("telegram.token = %q", cfg.Telegram.Token)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := FirstNonEmpty("", "", "third"); got != "third" {
		t.Errorf("FirstNonEmpty = %q", got)
	}
	if got := FirstNonEmpty("first", "second"); got != "first" {
		t.Errorf("FirstNonEmpty = %q", got)
	}
	if got := FirstNonEmpty(); got != "" {
		t.Errorf("FirstNonEmpty() = %q", got)
	}
}
