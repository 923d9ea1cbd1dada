package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration with secrets masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		fmt.Fprintf(os.Stdout, "server.addr = %s\n", cfg.Server.Addr)
		fmt.Fprintf(os.Stdout, "storage.path = %s\n", cfg.Storage.Path)
		fmt.Fprintf(os.Stdout, "llm.model = %s\n", cfg.LLM.Model)
		fmt.Fprintf(os.Stdout, "llm.base_url = %s\n", cfg.LLM.BaseURL)
		fmt.Fprintf(os.Stdout, "llm.api_key = %s\n", mask(cfg.LLM.APIKey))
		fmt.Fprintf(os.Stdout, "llm.max_tokens = %d\n", cfg.LLM.MaxTokens)
		fmt.Fprintf(os.Stdout, "policy.enabled = %t\n", cfg.Policy.Enabled)
		fmt.Fprintf(os.Stdout, "planner.history_tokens = %d\n", cfg.Planner.HistoryTokens)
		fmt.Fprintf(os.Stdout, "exchange.base_url = %s\n", cfg.Exchange.BaseURL)
		fmt.Fprintf(os.Stdout, "exchange.api_key = %s\n", mask(cfg.Exchange.APIKey))
		fmt.Fprintf(os.Stdout, "trader.url = %s\n", cfg.Trader.URL)
		fmt.Fprintf(os.Stdout, "trader.config_path = %s\n", cfg.Trader.ConfigPath)
		fmt.Fprintf(os.Stdout, "news.allow_domains = %s\n", strings.Join(cfg.News.AllowDomains, ","))
		fmt.Fprintf(os.Stdout, "news.feeds = %s\n", strings.Join(cfg.News.Feeds, ","))
		fmt.Fprintf(os.Stdout, "news.refresh_schedule = %s\n", cfg.News.RefreshSchedule)
		fmt.Fprintf(os.Stdout, "dispatch.schedule = %s\n", cfg.Dispatch.Schedule)
		fmt.Fprintf(os.Stdout, "telegram.token = %s\n", mask(cfg.Telegram.Token))
		fmt.Fprintf(os.Stdout, "gateway.max_concurrent = %d\n", cfg.Gateway.MaxConcurrent)
		fmt.Fprintf(os.Stdout, "logging.level = %s\n", cfg.Logging.Level)
		fmt.Fprintf(os.Stdout, "logging.format = %s\n", cfg.Logging.Format)
		for _, j := range cfg.Jobs {
			fmt.Fprintf(os.Stdout, "job %s schedule=%q enabled=%t\n", j.Name, j.Schedule, j.Enabled)
		}
		return nil
	},
}

func mask(s string) string {
	if s == "" {
		return "(unset)"
	}
	if len(s) <= 6 {
		return "***"
	}
	return s[:3] + "..." + s[len(s)-3:]
}
