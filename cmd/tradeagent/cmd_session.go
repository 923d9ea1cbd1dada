package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/tradeagent/internal/types"
)

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionListCmd, sessionEventsCmd, sessionSayCmd, sessionPendingCmd, sessionApproveCmd, sessionRunCmd)
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect and drive sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		rt, err := buildRuntime(cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		sessions, err := rt.core.Sessions(context.Background(), 100)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tEVENTS\tSTARTED\tLAST")
		for _, s := range sessions {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
				s.SessionID,
				s.Events,
				formatTS(s.StartedTS),
				formatTS(s.LastTS),
			)
		}
		return w.Flush()
	},
}

var sessionEventsCmd = &cobra.Command{
	Use:   "events <session-id>",
	Short: "Print a session's event log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		rt, err := buildRuntime(cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		events, err := rt.core.Events(context.Background(), types.SessionID(args[0]), 0)
		if err != nil {
			return fmt.Errorf("list events: %w", err)
		}
		for _, ev := range events {
			fmt.Fprintf(os.Stdout, "%6d  %s  %-20s  %s\n", ev.ID, formatTS(ev.TS), ev.Type, compactPayload(ev.Payload))
		}
		return nil
	},
}

var sessionSayCmd = &cobra.Command{
	Use:   "say <session-id> <text...>",
	Short: "Send a message to a session and print the turn result",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		rt, err := buildRuntime(cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		sid := types.SessionID(args[0])
		text := strings.Join(args[1:], " ")

		result, err := rt.core.UserMessage(context.Background(), sid, text, nil)
		if err != nil {
			return fmt.Errorf("send message: %w", err)
		}

		if result.Reply != "" {
			fmt.Println(result.Reply)
		}
		for _, tc := range result.ToolCalls {
			fmt.Fprintf(os.Stdout, "proposed %s %s risk=%s\n", tc.CallID, tc.Tool, tc.Risk)
		}
		for _, q := range result.Questions {
			fmt.Fprintf(os.Stdout, "question: %s\n", q)
		}
		return nil
	},
}

var sessionPendingCmd = &cobra.Command{
	Use:   "pending <session-id>",
	Short: "List tool calls awaiting approval",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		rt, err := buildRuntime(cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		pending, err := rt.core.PendingToolCalls(context.Background(), types.SessionID(args[0]))
		if err != nil {
			return fmt.Errorf("list pending: %w", err)
		}
		if len(pending) == 0 {
			fmt.Println("No pending tool calls.")
			return nil
		}
		for _, tc := range pending {
			fmt.Fprintf(os.Stdout, "%s  %s  risk=%s  %s\n", tc.CallID, tc.Proposal.Tool, tc.Proposal.Risk, tc.Proposal.Reason)
		}
		return nil
	},
}

var sessionApproveCmd = &cobra.Command{
	Use:   "approve <session-id> <call-id>",
	Short: "Approve a proposed tool call",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		rt, err := buildRuntime(cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.core.Approve(context.Background(), types.SessionID(args[0]), args[1]); err != nil {
			return fmt.Errorf("approve: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Approved %s.\n", args[1])
		return nil
	},
}

var sessionRunCmd = &cobra.Command{
	Use:   "run <session-id>",
	Short: "Execute approved tool calls",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		rt, err := buildRuntime(cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		outcomes, err := rt.core.RunApproved(context.Background(), types.SessionID(args[0]), rt.toolCtx)
		if err != nil {
			return fmt.Errorf("run approved: %w", err)
		}
		if len(outcomes) == 0 {
			fmt.Println("Nothing approved to run.")
			return nil
		}
		for _, o := range outcomes {
			if o.OK {
				fmt.Fprintf(os.Stdout, "%s  %s  ok\n", o.CallID, o.Tool)
			} else {
				fmt.Fprintf(os.Stdout, "%s  %s  failed: %s\n", o.CallID, o.Tool, o.Error)
			}
		}
		return nil
	},
}

func formatTS(ts float64) string {
	if ts == 0 {
		return "-"
	}
	return time.Unix(int64(ts), 0).Format("2006-01-02 15:04:05")
}

func compactPayload(raw json.RawMessage) string {
	s := string(raw)
	if len(s) > 120 {
		s = s[:120] + "..."
	}
	return s
}
