// Package handlers implements the per-event conversation pipeline: classify
// the message, build a prompt from stored history, call the generation
// gateway, persist the outcome, and send exactly one reply.
package handlers

import (
	"log/slog"
	"time"

	"github.com/masato4809/line-career-bot/internal/config"
	"github.com/masato4809/line-career-bot/internal/database"
	"github.com/masato4809/line-career-bot/internal/gemini"
	"github.com/masato4809/line-career-bot/internal/line"
)

// HandlerDeps provides dependencies for the webhook message handler.
type HandlerDeps struct {
	Logger    *slog.Logger
	Config    *config.Config
	Store     database.Store
	Gateway   gemini.Gateway
	Messenger line.Messenger

	// Location is the reference time zone used to derive log dates.
	Location *time.Location
}
