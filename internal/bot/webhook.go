package bot

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/masato4809/line-career-bot/internal/bot/handlers"
	"github.com/masato4809/line-career-bot/internal/database"
)

// NewWebhookMux builds the HTTP routes for the bot: the LINE callback
// endpoint and a health check backed by the store.
func NewWebhookMux(logger *slog.Logger, channelSecret string, handler *handlers.MessageHandler, store database.Store) *http.ServeMux {
	log := logger.With("component", "webhook")

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", newCallbackHandler(log, channelSecret, handler))
	mux.HandleFunc("/healthz", newHealthHandler(log, store))
	return mux
}

// newCallbackHandler verifies and dispatches inbound LINE webhook deliveries.
// Invalid signatures are rejected with 400; every other failure is logged and
// acknowledged with 200 so the platform does not loop on redelivery.
func newCallbackHandler(log *slog.Logger, channelSecret string, handler *handlers.MessageHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		ctx := r.Context()

		defer func() {
			if rec := recover(); rec != nil {
				log.ErrorContext(ctx, "Panic while handling webhook delivery", "panic", rec)
				w.WriteHeader(http.StatusOK)
			}
		}()

		cb, err := webhook.ParseRequest(channelSecret, r)
		if err != nil {
			if errors.Is(err, webhook.ErrInvalidSignature) {
				log.WarnContext(ctx, "Rejected webhook delivery with invalid signature")
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			log.ErrorContext(ctx, "Failed to parse webhook request", "error", err)
			w.WriteHeader(http.StatusOK)
			return
		}

		for _, event := range cb.Events {
			e, ok := event.(webhook.MessageEvent)
			if !ok {
				continue
			}
			content, ok := e.Message.(webhook.TextMessageContent)
			if !ok {
				continue
			}

			msg := handlers.IncomingMessage{
				SenderID:   senderID(e.Source),
				Text:       content.Text,
				ReplyToken: e.ReplyToken,
			}
			if err := handler.Handle(ctx, msg); err != nil {
				log.ErrorContext(ctx, "Failed to handle message event", "error", err)
			}
		}

		w.WriteHeader(http.StatusOK)
	}
}

// senderID extracts the user identifier from a webhook event source, or ""
// when the source carries none.
func senderID(source webhook.SourceInterface) string {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId
	case *webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.UserId
	case *webhook.GroupSource:
		return s.UserId
	case webhook.RoomSource:
		return s.UserId
	case *webhook.RoomSource:
		return s.UserId
	}
	return ""
}

func newHealthHandler(log *slog.Logger, store database.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			log.ErrorContext(r.Context(), "Health check failed", "error", err)
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
