// Package line adapts the LINE Messaging API for the bot: replying to
// webhook events and pushing unsolicited messages.
package line

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// Messenger defines the outbound messaging operations used by the bot.
// Reply consumes a one-time reply token from a webhook event; Push sends an
// unsolicited message to a user by identifier.
type Messenger interface {
	Reply(ctx context.Context, replyToken, text string) error
	Push(ctx context.Context, userID, text string) error
}

type client struct {
	api *messaging_api.MessagingApiAPI
	log *slog.Logger
}

// NewClient creates a Messenger backed by the LINE Messaging API.
func NewClient(channelToken string, log *slog.Logger) (Messenger, error) {
	if channelToken == "" {
		return nil, fmt.Errorf("LINE channel access token is required")
	}

	api, err := messaging_api.NewMessagingApiAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create LINE messaging client: %w", err)
	}

	return &client{
		api: api,
		log: log.With("component", "line_client"),
	}, nil
}

func (c *client) Reply(ctx context.Context, replyToken, text string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	_, err := c.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages: []messaging_api.MessageInterface{
			messaging_api.TextMessage{Text: text},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send reply message: %w", err)
	}

	c.log.DebugContext(ctx, "Sent reply message")
	return nil
}

func (c *client) Push(ctx context.Context, userID, text string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	_, err := c.api.PushMessage(&messaging_api.PushMessageRequest{
		To: userID,
		Messages: []messaging_api.MessageInterface{
			messaging_api.TextMessage{Text: text},
		},
	}, "")
	if err != nil {
		return fmt.Errorf("failed to send push message to user %s: %w", userID, err)
	}

	c.log.DebugContext(ctx, "Sent push message", "user_id", userID)
	return nil
}
