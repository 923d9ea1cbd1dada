package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/tradeagent/internal/api"
	"github.com/user/tradeagent/internal/gateway"
	"github.com/user/tradeagent/internal/news"
	"github.com/user/tradeagent/internal/policy"
	"github.com/user/tradeagent/internal/scheduler"
	"github.com/user/tradeagent/internal/telegram"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tradeagent daemon",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	rt, err := buildRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	// Policy gate
	var assessor policy.RiskAssessor
	if cfg.Policy.Enabled {
		assessor = policy.NewLLMAssessor(rt.provider)
	}
	gate := policy.NewGate(assessor, cfg.Policy.Enabled, slog.Default())

	// News
	fetcher := news.NewFetcher(cfg.News.AllowDomains)
	newsCache := &news.Cache{}

	// Gateway
	gw := gateway.New(rt.core, cfg.Gateway.MaxConcurrent)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw.Start(ctx)
	defer gw.Stop()

	slog.Info("tradeagent started",
		"storage", cfg.Storage.Path,
		"log_level", cfg.Logging.Level,
		"max_concurrent", cfg.Gateway.MaxConcurrent,
		"llm_model", cfg.LLM.Model,
		"policy_enabled", cfg.Policy.Enabled,
	)

	// Telegram adapter
	if cfg.Telegram.Token != "" {
		adapter, err := telegram.New(cfg.Telegram.Token, gw, rt.core, rt.toolCtx, cfg.Telegram.AllowedChatIDs)
		if err != nil {
			return fmt.Errorf("create telegram adapter: %w", err)
		}
		go adapter.Start(ctx)
		slog.Info("telegram adapter started")
	} else {
		slog.Warn("telegram adapter disabled (no token)")
	}

	// Scheduler. Configured jobs run as ordinary turns through the
	// gateway; news refresh and the auto-dispatch sweep are internal
	// tasks.
	jobs := make([]scheduler.Job, 0, len(cfg.Jobs))
	for _, j := range cfg.Jobs {
		jobs = append(jobs, scheduler.Job{
			Name:       j.Name,
			Schedule:   j.Schedule,
			SessionKey: j.SessionKey,
			Prompt:     j.Prompt,
			Enabled:    j.Enabled,
		})
	}
	sched := scheduler.New(jobs, func(sessionKey, prompt string) {
		inbound := &gateway.Inbound{SessionKey: sessionKey, Text: prompt}
		if err := gw.HandleInbound(ctx, inbound); err != nil {
			slog.Error("cron job failed", "session_key", sessionKey, "error", err)
		}
	})

	if len(cfg.News.Feeds) > 0 {
		refresh := func() {
			summaries := fetcher.FetchAndSummarize(ctx, cfg.News.Feeds)
			newsCache.Set(summaries)
			slog.Info("news refreshed", "summaries", len(summaries))
		}
		if err := sched.AddFunc("news-refresh", cfg.News.RefreshSchedule, refresh); err != nil {
			return err
		}
		go refresh()
	}

	if cfg.Dispatch.Schedule != "" {
		sweep := func() {
			sessions, err := rt.core.Sessions(ctx, 100)
			if err != nil {
				slog.Error("dispatch sweep failed", "error", err)
				return
			}
			for _, s := range sessions {
				outcomes, err := rt.core.RunApproved(ctx, s.SessionID, rt.toolCtx)
				if err != nil {
					slog.Error("dispatch sweep failed", "session_id", s.SessionID, "error", err)
					continue
				}
				if len(outcomes) > 0 {
					slog.Info("dispatch sweep ran calls", "session_id", s.SessionID, "count", len(outcomes))
				}
			}
		}
		if err := sched.AddFunc("auto-dispatch", cfg.Dispatch.Schedule, sweep); err != nil {
			return err
		}
	}

	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	// HTTP API
	server := api.New(rt.core, rt.toolCtx, rt.artifacts, gate, rt.memory, newsCache, slog.Default())
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx, cfg.Server.Addr)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("shutting down", "signal", sig.String())
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api server: %w", err)
		}
	}
	return nil
}
