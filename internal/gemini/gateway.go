// Package gemini wraps Google's Gemini API behind a quota-aware gateway.
// It tries a prioritized list of candidate models and converts every backend
// failure into a result value, so callers always get something to reply with.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/masato4809/line-career-bot/internal/config"
)

// emptyReplyFallback is returned when a model answers without any text.
const emptyReplyFallback = "ごめん、今うまく文章を作れなかった…もう一回送って！"

// Result is the outcome of a generation attempt. Text is empty when no
// candidate produced anything. Model names the candidate that produced Text
// and is empty on total failure. RetrySeconds carries the most recently
// parsed quota wait, valid only when RetryKnown is true.
type Result struct {
	Text         string
	Model        string
	RetrySeconds int
	RetryKnown   bool
}

// Gateway defines the interface for AI text generation used throughout the
// application.
type Gateway interface {
	// Generate produces text for prompt, falling through the configured
	// candidate models on quota exhaustion. It never returns an error: all
	// failure paths yield a Result without text. When maxWait is positive
	// and the backend suggests a retry delay within it, the same candidate
	// is retried once after an in-request sleep.
	Generate(ctx context.Context, prompt string, maxWait time.Duration) Result

	// ListModels returns the names of models usable for text generation
	// with the configured API key.
	ListModels(ctx context.Context) ([]string, error)
}

// backend abstracts the genai SDK call so the fallback loop can be tested
// without network access.
type backend interface {
	generateText(ctx context.Context, model, prompt string) (string, error)
	listModels(ctx context.Context) ([]string, error)
}

type gateway struct {
	backend backend
	models  []string
	log     *slog.Logger
	sleep   func(time.Duration)
}

// NewGateway creates a Gateway backed by the Gemini API with the provided
// configuration.
func NewGateway(ctx context.Context, cfg config.GeminiConfig, log *slog.Logger) (Gateway, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if len(cfg.Models) == 0 {
		return nil, fmt.Errorf("at least one candidate model is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	logger := log.With("component", "gemini_gateway")
	logger.Info("Gemini gateway initialized successfully", "models", cfg.Models)
	return &gateway{
		backend: &sdkBackend{client: client},
		models:  cfg.Models,
		log:     logger,
		sleep:   time.Sleep,
	}, nil
}

func (g *gateway) Generate(ctx context.Context, prompt string, maxWait time.Duration) Result {
	var lastRetrySeconds int
	var retryKnown bool

	for _, model := range g.models {
		waited := false
		for {
			text, err := g.backend.generateText(ctx, model, prompt)
			if err == nil {
				if text != "" {
					g.log.DebugContext(ctx, "Generated reply", "model", model)
					return Result{Text: text, Model: model}
				}
				g.log.WarnContext(ctx, "Model returned empty text, using placeholder", "model", model)
				return Result{Text: emptyReplyFallback, Model: model}
			}

			if !isQuotaExhausted(err) {
				// Network, auth, and malformed-request failures won't get
				// better on another candidate.
				g.log.ErrorContext(ctx, "Generation failed with non-quota error, giving up",
					"model", model, "error", err)
				return Result{RetrySeconds: lastRetrySeconds, RetryKnown: retryKnown}
			}

			seconds, parsed := parseRetrySeconds(err.Error())
			if parsed {
				lastRetrySeconds, retryKnown = seconds, true
			}
			g.log.WarnContext(ctx, "Model quota exhausted",
				"model", model, "retry_seconds", seconds, "retry_parsed", parsed)

			if parsed && !waited && maxWait > 0 && time.Duration(seconds)*time.Second <= maxWait {
				// One bounded in-request wait per candidate, then retry the
				// same model instead of advancing.
				g.log.InfoContext(ctx, "Waiting for quota window before retrying model",
					"model", model, "wait_seconds", seconds)
				g.sleep(time.Duration(seconds) * time.Second)
				waited = true
				continue
			}

			break
		}
	}

	g.log.ErrorContext(ctx, "All candidate models exhausted without producing text",
		"retry_seconds", lastRetrySeconds, "retry_known", retryKnown)
	return Result{RetrySeconds: lastRetrySeconds, RetryKnown: retryKnown}
}

func (g *gateway) ListModels(ctx context.Context) ([]string, error) {
	return g.backend.listModels(ctx)
}

// isQuotaExhausted reports whether err signals Gemini quota exhaustion
// (HTTP 429 or a RESOURCE_EXHAUSTED error payload).
func isQuotaExhausted(err error) bool {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return true
	}
	return strings.Contains(err.Error(), "RESOURCE_EXHAUSTED")
}

var (
	// Matches "... Please retry in 38.507s."
	retryInPattern = regexp.MustCompile(`retry in ([0-9]+(?:\.[0-9]+)?)s`)
	// Matches "... retryDelay': '36s' ..."
	retryDelayPattern = regexp.MustCompile(`retryDelay[^0-9]*([0-9]+)s`)
)

// parseRetrySeconds extracts a suggested retry delay in whole seconds from a
// quota error message. Fractional seconds are floored.
func parseRetrySeconds(msg string) (int, bool) {
	if m := retryInPattern.FindStringSubmatch(msg); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			return int(f), true
		}
	}
	if m := retryDelayPattern.FindStringSubmatch(msg); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n, true
		}
	}
	return 0, false
}

// sdkBackend implements backend over the genai SDK client.
type sdkBackend struct {
	client *genai.Client
}

func (b *sdkBackend) generateText(ctx context.Context, model, prompt string) (string, error) {
	resp, err := b.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (b *sdkBackend) listModels(ctx context.Context) ([]string, error) {
	names := []string{}
	for model, err := range b.client.Models.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("failed to list models: %w", err)
		}
		if slices.Contains(model.SupportedActions, "generateContent") {
			names = append(names, strings.TrimPrefix(model.Name, "models/"))
		}
	}
	return names, nil
}
