package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/masato4809/line-career-bot/internal/database"
	"github.com/masato4809/line-career-bot/internal/gemini"
	"github.com/masato4809/line-career-bot/internal/prompt"
)

const (
	reportHistoryLimit  = 10
	profileHistoryLimit = 30
)

// IncomingMessage is a verified inbound text event: who sent it, what they
// said, and the one-time token usable to send exactly one reply.
type IncomingMessage struct {
	SenderID   string
	Text       string
	ReplyToken string
}

// MessageHandler processes one inbound text event end to end.
type MessageHandler struct {
	deps HandlerDeps
}

// NewMessageHandler creates the handler for inbound webhook text messages.
func NewMessageHandler(deps HandlerDeps) *MessageHandler {
	return &MessageHandler{deps: deps}
}

// Handle runs the conversation pipeline for one event. A returned error means
// the pipeline aborted without managing to reply; the caller is expected to
// log it and still acknowledge the event to the transport.
func (h *MessageHandler) Handle(ctx context.Context, msg IncomingMessage) error {
	log := h.deps.Logger.With("handler", "message")

	if msg.SenderID == "" {
		log.InfoContext(ctx, "Event carries no usable sender ID, sending identification notice")
		if err := h.deps.Messenger.Reply(ctx, msg.ReplyToken, h.deps.Config.Messages.NoUserID); err != nil {
			return fmt.Errorf("failed to send identification notice: %w", err)
		}
		return nil
	}

	if err := h.deps.Store.EnsureUser(ctx, msg.SenderID); err != nil {
		return fmt.Errorf("failed to ensure user: %w", err)
	}

	text := strings.TrimSpace(msg.Text)

	if IsProfileQuery(text) {
		return h.handleProfileQuery(ctx, log, msg)
	}
	return h.handleDailyReport(ctx, log, msg, text)
}

// handleProfileQuery answers "what am I like these days" questions from the
// recorded history. Profile queries are read-only views: nothing is persisted
// regardless of the gateway outcome.
func (h *MessageHandler) handleProfileQuery(ctx context.Context, log *slog.Logger, msg IncomingMessage) error {
	log.InfoContext(ctx, "Handling profile query", "user_id", msg.SenderID)

	logs, err := h.deps.Store.RecentLogs(ctx, msg.SenderID, profileHistoryLimit)
	if err != nil {
		return fmt.Errorf("failed to fetch history for profile query: %w", err)
	}

	res := h.deps.Gateway.Generate(ctx, prompt.BuildProfilePrompt(logs), 0)

	if res.Text == "" {
		reply := fmt.Sprintf(h.deps.Config.Messages.ProfileQuotaFallback, h.waitEstimate(res))
		log.WarnContext(ctx, "No text produced for profile query, sending quota fallback",
			"user_id", msg.SenderID, "retry_known", res.RetryKnown)
		if err := h.deps.Messenger.Reply(ctx, msg.ReplyToken, reply); err != nil {
			return fmt.Errorf("failed to send profile fallback reply: %w", err)
		}
		return nil
	}

	if err := h.deps.Messenger.Reply(ctx, msg.ReplyToken, res.Text); err != nil {
		return fmt.Errorf("failed to send profile reply: %w", err)
	}
	return nil
}

// handleDailyReport runs the default flow: generate a supportive reply to
// today's report and persist the entry. On quota exhaustion the user still
// gets a deterministic fallback and the report is stored with a NULL model,
// so the journal never loses an entry.
func (h *MessageHandler) handleDailyReport(ctx context.Context, log *slog.Logger, msg IncomingMessage, text string) error {
	log.InfoContext(ctx, "Handling daily report", "user_id", msg.SenderID)

	logs, err := h.deps.Store.RecentLogs(ctx, msg.SenderID, reportHistoryLimit)
	if err != nil {
		return fmt.Errorf("failed to fetch history for daily report: %w", err)
	}

	res := h.deps.Gateway.Generate(ctx, prompt.BuildReportPrompt(text, logs), h.deps.Config.Gemini.MaxWait)

	entry := &database.DailyLog{
		UserID:   msg.SenderID,
		LogDate:  time.Now().In(h.deps.Location).Format(time.DateOnly),
		UserText: text,
	}

	if res.Text == "" {
		fallback := fmt.Sprintf(h.deps.Config.Messages.ReportQuotaFallback, h.waitEstimate(res))
		log.WarnContext(ctx, "No text produced for daily report, persisting fallback entry",
			"user_id", msg.SenderID, "retry_known", res.RetryKnown)

		entry.AIReply = fallback
		if err := h.deps.Store.AppendLog(ctx, entry); err != nil {
			return fmt.Errorf("failed to persist fallback log entry: %w", err)
		}
		if err := h.deps.Messenger.Reply(ctx, msg.ReplyToken, fallback); err != nil {
			return fmt.Errorf("failed to send fallback reply: %w", err)
		}
		return nil
	}

	entry.AIReply = res.Text
	entry.ModelUsed = sql.NullString{String: res.Model, Valid: true}
	if err := h.deps.Store.AppendLog(ctx, entry); err != nil {
		return fmt.Errorf("failed to persist log entry: %w", err)
	}

	if err := h.deps.Messenger.Reply(ctx, msg.ReplyToken, res.Text); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}

	log.InfoContext(ctx, "Daily report handled", "user_id", msg.SenderID, "model", res.Model)
	return nil
}

// waitEstimate renders the retry-wait estimate for the quota fallback
// messages, falling back to a vague "shortly" when no delay was parsed.
func (h *MessageHandler) waitEstimate(res gemini.Result) string {
	if res.RetryKnown {
		return fmt.Sprintf("%d秒", res.RetrySeconds)
	}
	return h.deps.Config.Messages.WaitShortly
}
