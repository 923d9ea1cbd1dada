// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the full application configuration. Values come from a
// YAML file overridden by TRADEAGENT_* environment variables, with
// "__" in variable names mapping to nesting (for example
// TRADEAGENT_SERVER__ADDR sets server.addr).
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Storage  StorageConfig  `koanf:"storage"`
	LLM      LLMConfig      `koanf:"llm"`
	Policy   PolicyConfig   `koanf:"policy"`
	Planner  PlannerConfig  `koanf:"planner"`
	Exchange ExchangeConfig `koanf:"exchange"`
	Trader   TraderConfig   `koanf:"trader"`
	News     NewsConfig     `koanf:"news"`
	Telegram TelegramConfig `koanf:"telegram"`
	Dispatch DispatchConfig `koanf:"dispatch"`
	Gateway  GatewayConfig  `koanf:"gateway"`
	Jobs     []JobConfig    `koanf:"jobs"`
	Logging  LoggingConfig  `koanf:"logging"`
}

type ServerConfig struct {
	Addr string `koanf:"addr"`
}

type StorageConfig struct {
	Path string `koanf:"path"`
}

type LLMConfig struct {
	APIKey    string `koanf:"api_key"`
	BaseURL   string `koanf:"base_url"`
	Model     string `koanf:"model"`
	MaxTokens int    `koanf:"max_tokens"`
}

type PolicyConfig struct {
	Enabled bool `koanf:"enabled"`
}

type PlannerConfig struct {
	HistoryTokens int `koanf:"history_tokens"`
}

type ExchangeConfig struct {
	APIKey     string `koanf:"api_key"`
	APISecret  string `koanf:"api_secret"`
	Passphrase string `koanf:"passphrase"`
	BaseURL    string `koanf:"base_url"`
}

type TraderConfig struct {
	ConfigPath string `koanf:"config_path"`
	URL        string `koanf:"url"`
	Username   string `koanf:"username"`
	Password   string `koanf:"password"`
}

type NewsConfig struct {
	AllowDomains    []string `koanf:"allow_domains"`
	Feeds           []string `koanf:"feeds"`
	RefreshSchedule string   `koanf:"refresh_schedule"`
}

type DispatchConfig struct {
	Schedule string `koanf:"schedule"`
}

type TelegramConfig struct {
	Token          string  `koanf:"token"`
	AllowedChatIDs []int64 `koanf:"allowed_chat_ids"`
}

type GatewayConfig struct {
	MaxConcurrent int64 `koanf:"max_concurrent"`
}

type JobConfig struct {
	Name       string `koanf:"name"`
	Schedule   string `koanf:"schedule"`
	SessionKey string `koanf:"session_key"`
	Prompt     string `koanf:"prompt"`
	Enabled    bool   `koanf:"enabled"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads configuration from path (skipped when absent) and the
// environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("load config file: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider("TRADEAGENT_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "TRADEAGENT_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	applyDefaults(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Secrets in YAML may reference environment variables as ${VAR}.
	cfg.LLM.APIKey = substituteEnvVars(cfg.LLM.APIKey)
	cfg.Exchange.APIKey = substituteEnvVars(cfg.Exchange.APIKey)
	cfg.Exchange.APISecret = substituteEnvVars(cfg.Exchange.APISecret)
	cfg.Exchange.Passphrase = substituteEnvVars(cfg.Exchange.Passphrase)
	cfg.Trader.Password = substituteEnvVars(cfg.Trader.Password)
	cfg.Telegram.Token = substituteEnvVars(cfg.Telegram.Token)

	return &cfg, nil
}

func applyDefaults(k *koanf.Koanf) {
	defaults := map[string]any{
		"server.addr":            ":8080",
		"storage.path":           "tradeagent.db",
		"llm.model":              "claude-sonnet-4-20250514",
		"llm.max_tokens":         800,
		"planner.history_tokens": 6000,
		"news.refresh_schedule":  "@every 30m",
		"gateway.max_concurrent": 2,
		"logging.level":          "info",
		"logging.format":         "text",
	}
	for key, val := range defaults {
		if !k.Exists(key) {
			k.Set(key, val)
		}
	}
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// FirstNonEmpty returns the first non-empty value, so callers can
// spell out a fallback order explicitly instead of consulting globals.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
