// Package main contains the entrypoint for the LINE check-in bot application.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/masato4809/line-career-bot/internal/bot"
	"github.com/masato4809/line-career-bot/internal/bot/handlers"
	"github.com/masato4809/line-career-bot/internal/bot/tasks"
	"github.com/masato4809/line-career-bot/internal/config"
	"github.com/masato4809/line-career-bot/internal/database"
	"github.com/masato4809/line-career-bot/internal/gemini"
	"github.com/masato4809/line-career-bot/internal/line"
	"github.com/masato4809/line-career-bot/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop() // Ensure context cancellation is signaled before exit
	os.Exit(exitCode)
}

// run initializes and starts all application components (config, logger, db,
// gateway, LINE client, webhook server, scheduler), handles graceful
// shutdown, and returns an exit code (0 for success, 1 for failure).
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	listModels := flag.Bool("list-models", false, "List models usable with the configured API key and exit")
	flag.Parse()

	// Optional .env file for local development.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	gateway, err := gemini.NewGateway(ctx, cfg.Gemini, log)
	if err != nil {
		log.Error("Failed to initialize Gemini gateway", "error", err)
		return 1
	}

	if *listModels {
		names, err := gateway.ListModels(ctx)
		if err != nil {
			log.Error("Failed to list models", "error", err)
			return 1
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return 0
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Error("Failed to resolve reference time zone", "timezone", cfg.Timezone, "error", err)
		return 1
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db) // Ensure DB is closed on function exit
	store := database.NewStore(db, log)

	messenger, err := line.NewClient(cfg.Line.ChannelToken, log)
	if err != nil {
		log.Error("Failed to create LINE client", "error", err)
		return 1
	}

	hDeps := handlers.HandlerDeps{
		Logger:    log,
		Config:    cfg,
		Store:     store,
		Gateway:   gateway,
		Messenger: messenger,
		Location:  loc,
	}
	tDeps := tasks.TaskDeps{
		Logger:    log,
		Store:     store,
		Messenger: messenger,
		Config:    cfg,
	}

	mux := bot.NewWebhookMux(log, cfg.Line.ChannelSecret, handlers.NewMessageHandler(hDeps), store)

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, loc, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	app := bot.NewBot(log, cfg, mux, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx) // Run blocks until context is cancelled or an error occurs
	log.Info("Bot run loop finished. Initiating shutdown...")

	// Check if the error is significant (not just context cancellation)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		// Allow logs to flush before exiting on error
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}
