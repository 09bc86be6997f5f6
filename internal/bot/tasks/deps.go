// Package tasks implements the scheduled jobs of the check-in bot: the
// nightly check-in push and periodic database maintenance.
package tasks

import (
	"log/slog"

	"github.com/masato4809/line-career-bot/internal/config"
	"github.com/masato4809/line-career-bot/internal/database"
	"github.com/masato4809/line-career-bot/internal/line"
)

// TaskDeps contains all dependencies required by scheduled tasks. The
// generation gateway is deliberately absent: scheduled jobs only push fixed
// text and never spend model quota.
type TaskDeps struct {
	Logger    *slog.Logger
	Store     database.Store
	Messenger line.Messenger
	Config    *config.Config
}
