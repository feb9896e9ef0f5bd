// Package feedback stores messages users leave for the bot owner.
package feedback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// MaxLength caps stored feedback; longer text is truncated.
const MaxLength = 4000

// Entry is one feedback message.
type Entry struct {
	ID        uuid.UUID `db:"id"`
	UserID    int64     `db:"user_id"`
	ChatID    int64     `db:"chat_id"`
	Body      string    `db:"body"`
	CreatedAt time.Time `db:"created_at"`
}

// Repository reads and writes the feedback table.
type Repository struct {
	db *sqlx.DB
}

// NewRepository wraps db.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Save stores body on behalf of userID and returns the new entry id.
func (r *Repository) Save(ctx context.Context, userID, chatID int64, body string) (uuid.UUID, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return uuid.Nil, fmt.Errorf("feedback: empty body")
	}
	if runes := []rune(body); len(runes) > MaxLength {
		body = string(runes[:MaxLength])
	}
	id := uuid.New()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO feedback (id, user_id, chat_id, body) VALUES ($1, $2, $3, $4)`,
		id, userID, chatID, body)
	if err != nil {
		return uuid.Nil, fmt.Errorf("feedback: save: %w", err)
	}
	return id, nil
}

// Recent returns the latest limit entries, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []Entry
	err := r.db.SelectContext(ctx, &out,
		`SELECT id, user_id, chat_id, body, created_at FROM feedback ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("feedback: recent: %w", err)
	}
	return out, nil
}
