package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for database operations. All methods are safe
// for concurrent use; every call is a self-contained statement or transaction.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// EnsureUser inserts a user row if none exists for userID. The creation
	// timestamp of an existing row is never overwritten.
	EnsureUser(ctx context.Context, userID string) error

	// AppendLog appends one immutable daily log entry. It fails when the
	// owning user is unknown.
	AppendLog(ctx context.Context, entry *DailyLog) error

	// RecentLogs returns up to limit most recent entries for userID, newest
	// first. It returns an empty slice, never nil, when there is no history.
	RecentLogs(ctx context.Context, userID string, limit int) ([]DailyLog, error)

	// AllUserIDs returns the identifiers of all known users.
	AllUserIDs(ctx context.Context) ([]string, error)

	// RunMaintenance performs database maintenance tasks like VACUUM.
	RunMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// EnsureUser inserts a user row if none exists for userID.
func (s *sqlxStore) EnsureUser(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user_id cannot be empty")
	}

	query := `INSERT OR IGNORE INTO users (user_id, created_at) VALUES (?, ?);`

	result, err := s.db.ExecContext(ctx, query, userID, time.Now().UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "Error ensuring user", "user_id", userID, "error", err)
		return fmt.Errorf("failed to ensure user %s: %w", userID, err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 1 {
		s.logger.InfoContext(ctx, "Registered new user", "user_id", userID)
	}
	return nil
}

// AppendLog appends one immutable daily log entry.
func (s *sqlxStore) AppendLog(ctx context.Context, entry *DailyLog) error {
	if entry == nil {
		return fmt.Errorf("cannot save nil log entry")
	}
	if entry.UserID == "" {
		return fmt.Errorf("log entry must have a non-empty user_id")
	}
	if entry.LogDate == "" {
		return fmt.Errorf("log entry must have a non-empty log_date")
	}

	entry.CreatedAt = time.Now().UTC()

	query := `
        INSERT INTO daily_logs (user_id, log_date, user_text, ai_reply, model_used, created_at)
        VALUES (:user_id, :log_date, :user_text, :ai_reply, :model_used, :created_at);
    `

	result, err := s.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving log entry", "user_id", entry.UserID, "log_date", entry.LogDate, "error", err)
		return fmt.Errorf("failed to save log entry for user %s: %w", entry.UserID, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		entry.ID = id
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after saving log entry",
			"user_id", entry.UserID, "error", err)
	}

	s.logger.DebugContext(ctx, "Log entry saved successfully",
		"user_id", entry.UserID, "log_date", entry.LogDate, "log_id", entry.ID)
	return nil
}

// RecentLogs returns up to limit most recent entries for userID, newest first.
func (s *sqlxStore) RecentLogs(ctx context.Context, userID string, limit int) ([]DailyLog, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id cannot be empty")
	}

	if limit <= 0 {
		limit = 20
		s.logger.DebugContext(ctx, "Invalid limit provided, using default", "user_id", userID, "default_limit", limit)
	}

	logs := []DailyLog{}
	query := `
        SELECT id, user_id, log_date, user_text, ai_reply, model_used, created_at
        FROM daily_logs
        WHERE user_id = ?
        ORDER BY id DESC
        LIMIT ?;
    `

	err := s.db.SelectContext(ctx, &logs, query, userID, limit)

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching logs",
			"user_id", userID, "error", err)
		return nil, err
	}

	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting recent logs", "user_id", userID, "limit", limit, "error", err)
		return nil, fmt.Errorf("failed to get recent logs for user %s: %w", userID, err)
	}

	s.logger.DebugContext(ctx, "Fetched recent logs successfully", "user_id", userID, "count", len(logs))
	return logs, nil
}

// AllUserIDs returns the identifiers of all known users.
func (s *sqlxStore) AllUserIDs(ctx context.Context) ([]string, error) {
	ids := []string{}
	query := `SELECT user_id FROM users;`

	if err := s.db.SelectContext(ctx, &ids, query); err != nil {
		s.logger.ErrorContext(ctx, "Error getting all user IDs", "error", err)
		return nil, fmt.Errorf("failed to get all user IDs: %w", err)
	}

	return ids, nil
}

// RunMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite.
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)

	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}

	return nil
}
