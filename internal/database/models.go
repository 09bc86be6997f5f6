package database

import (
	"database/sql"
	"time"
)

// User represents a chat platform user known to the bot. A row is created on
// the first observed message from that user and is never updated afterwards.
type User struct {
	ID        string    `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
}

// DailyLog represents one check-in entry: what the user reported and what the
// bot replied. Entries are immutable and append-only. ModelUsed is NULL when
// the reply came from the quota fallback instead of a model.
type DailyLog struct {
	ID        int64          `db:"id"`
	UserID    string         `db:"user_id"`
	LogDate   string         `db:"log_date"` // YYYY-MM-DD in the reference time zone
	UserText  string         `db:"user_text"`
	AIReply   string         `db:"ai_reply"`
	ModelUsed sql.NullString `db:"model_used"`
	CreatedAt time.Time      `db:"created_at"`
}
