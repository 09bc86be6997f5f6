package tasks

import (
	"context"
	"fmt"
	"time"
)

// newNightlyCheckinTask creates the scheduled task that pushes the daily
// check-in question to every known user. Per-user push failures are logged
// and the iteration continues, so one broken recipient never silences the
// rest.
func newNightlyCheckinTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "nightly_checkin")

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Starting nightly check-in push...")
		startTime := time.Now()

		userIDs, err := deps.Store.AllUserIDs(ctx)
		if err != nil {
			log.ErrorContext(ctx, "Failed to list users for nightly check-in", "error", err)
			return fmt.Errorf("nightly check-in failed: %w", err)
		}

		pushed := 0
		for _, userID := range userIDs {
			if ctx.Err() != nil {
				log.WarnContext(ctx, "Nightly check-in cancelled mid-iteration", "pushed", pushed)
				return ctx.Err()
			}

			if err := deps.Messenger.Push(ctx, userID, deps.Config.Messages.DailyQuestion); err != nil {
				log.ErrorContext(ctx, "Failed to push daily question", "user_id", userID, "error", err)
				continue
			}
			pushed++
		}

		log.InfoContext(ctx, "Nightly check-in push completed",
			"users", len(userIDs), "pushed", pushed, "duration", time.Since(startTime))
		return nil
	}
}
