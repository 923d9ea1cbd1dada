package telegram

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/tradeagent/internal/agent"
	"github.com/user/tradeagent/internal/gateway"
	"github.com/user/tradeagent/internal/tools"
	"github.com/user/tradeagent/internal/types"
)

const maxTelegramMessage = 4096

// Adapter bridges Telegram to the gateway. Plain messages become
// planner turns; commands act on the chat's session directly.
type Adapter struct {
	bot     *tgbotapi.BotAPI
	gateway *gateway.Gateway
	agent   *agent.Agent
	toolCtx *tools.Context
	allowed map[int64]bool
}

// New creates a Telegram adapter. allowedChatIDs restricts who may
// talk to the bot; empty means any chat.
func New(token string, gw *gateway.Gateway, a *agent.Agent, toolCtx *tools.Context, allowedChatIDs []int64) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	allowed := make(map[int64]bool, len(allowedChatIDs))
	for _, id := range allowedChatIDs {
		allowed[id] = true
	}
	return &Adapter{
		bot:     bot,
		gateway: gw,
		agent:   a,
		toolCtx: toolCtx,
		allowed: allowed,
	}, nil
}

// Start begins long-polling for Telegram updates.
func (a *Adapter) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := a.bot.GetUpdatesChan(u)

	for {
		select {
		case update := <-updates:
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			if len(a.allowed) > 0 && !a.allowed[update.Message.Chat.ID] {
				continue
			}
			a.handleMessage(ctx, update.Message)
		case <-ctx.Done():
			a.bot.StopReceivingUpdates()
			return
		}
	}
}

func sessionKey(chatID int64) string {
	return "telegram:" + strconv.FormatInt(chatID, 10)
}

func (a *Adapter) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		a.handleCommand(ctx, msg)
		return
	}

	chatID := msg.Chat.ID
	inbound := &gateway.Inbound{
		SessionKey: sessionKey(chatID),
		Text:       msg.Text,
	}

	err := a.gateway.HandleInbound(ctx, inbound, gateway.WithOnComplete(func(response string) {
		a.sendResponse(chatID, response)
	}))
	if err != nil {
		log.Printf("handle inbound error: %v", err)
		a.sendResponse(chatID, "Sorry, I encountered an error processing your message.")
	}
}

func (a *Adapter) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	sid := gateway.ResolveSession(sessionKey(chatID))

	switch msg.Command() {
	case "start":
		a.sendResponse(chatID, "Hello! I'm your trading assistant. Ask me about the market, or use /pending, /approve <call_id>, /run, /chart, /status.")

	case "pending":
		pending, err := a.agent.PendingToolCalls(ctx, sid)
		if err != nil {
			a.sendResponse(chatID, "Error fetching pending calls.")
			return
		}
		if len(pending) == 0 {
			a.sendResponse(chatID, "No pending tool calls.")
			return
		}
		var b strings.Builder
		b.WriteString("Pending tool calls:")
		for _, tc := range pending {
			fmt.Fprintf(&b, "\n%s %s risk=%s", tc.CallID, tc.Proposal.Tool, tc.Proposal.Risk)
			if tc.Proposal.Reason != "" {
				b.WriteString(" - " + tc.Proposal.Reason)
			}
		}
		a.sendResponse(chatID, b.String())

	case "approve":
		callID := strings.TrimSpace(msg.CommandArguments())
		if callID == "" {
			a.sendResponse(chatID, "Usage: /approve <call_id>")
			return
		}
		if err := a.agent.Approve(ctx, sid, callID); err != nil {
			a.sendResponse(chatID, "Error recording approval.")
			return
		}
		a.sendResponse(chatID, fmt.Sprintf("Approved %s. Use /run to execute.", callID))

	case "run":
		outcomes, err := a.agent.RunApproved(ctx, sid, a.toolCtx)
		if err != nil {
			a.sendResponse(chatID, "Error running approved calls.")
			return
		}
		if len(outcomes) == 0 {
			a.sendResponse(chatID, "Nothing approved to run.")
			return
		}
		var b strings.Builder
		b.WriteString("Run results:")
		for _, o := range outcomes {
			if o.OK {
				fmt.Fprintf(&b, "\n%s %s ok", o.CallID, o.Tool)
			} else {
				fmt.Fprintf(&b, "\n%s %s failed: %s", o.CallID, o.Tool, o.Error)
			}
		}
		a.sendResponse(chatID, b.String())

	case "chart":
		artifact, err := a.agent.LatestChart(ctx, sid)
		if err != nil {
			a.sendResponse(chatID, "Error loading chart.")
			return
		}
		if artifact == nil {
			a.sendResponse(chatID, "No chart yet. Approve and run a candle fetch first.")
			return
		}
		a.sendResponse(chatID, describeChart(artifact))

	case "status":
		events, err := a.agent.Events(ctx, sid, 0)
		if err != nil {
			a.sendResponse(chatID, "Error fetching status.")
			return
		}
		a.sendResponse(chatID, fmt.Sprintf("Session: %s\nEvents: %d", sid, len(events)))

	default:
		a.sendResponse(chatID, "Unknown command. Available: /start, /pending, /approve, /run, /chart, /status")
	}
}

func describeChart(artifact *types.Artifact) string {
	symbol, _ := artifact.Metadata["symbol"].(string)
	timeframe, _ := artifact.Metadata["timeframe"].(string)
	return fmt.Sprintf("Latest chart: %s %s (artifact %s)", symbol, timeframe, artifact.ID)
}

func (a *Adapter) sendResponse(chatID int64, text string) {
	parts := splitMessage(text)
	for _, part := range parts {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = "Markdown"
		if _, err := a.bot.Send(msg); err != nil {
			// Retry without markdown if it fails
			msg.ParseMode = ""
			if _, err := a.bot.Send(msg); err != nil {
				log.Printf("send message error: %v", err)
			}
		}
	}
}

func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		end := maxTelegramMessage
		if end > len(text) {
			end = len(text)
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}
