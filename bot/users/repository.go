// Package users stores everyone who has talked to the bot.
package users

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"
)

// User is a Telegram account known to the bot.
type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	LanguageCode string    `db:"language_code"`
	CreatedAt    time.Time `db:"created_at"`
}

// FromTelegram copies the profile fields of a Telegram user.
func FromTelegram(u *tele.User) User {
	if u == nil {
		return User{}
	}
	return User{
		ID:           u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		LanguageCode: u.LanguageCode,
	}
}

// Repository reads and writes the users table.
type Repository struct {
	db *sqlx.DB
}

// NewRepository wraps db.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const registerQuery = `INSERT INTO users (id, username, first_name, last_name, language_code)
VALUES (:id, :username, :first_name, :last_name, :language_code)
ON CONFLICT (id) DO UPDATE SET
    username = EXCLUDED.username,
    first_name = EXCLUDED.first_name,
    last_name = EXCLUDED.last_name,
    language_code = EXCLUDED.language_code
RETURNING (xmax = 0) AS created`

// Register upserts u and reports whether the row was newly created.
func (r *Repository) Register(ctx context.Context, u User) (bool, error) {
	rows, err := r.db.NamedQueryContext(ctx, registerQuery, u)
	if err != nil {
		return false, fmt.Errorf("users: register %d: %w", u.ID, err)
	}
	defer rows.Close()

	var created bool
	if rows.Next() {
		if err := rows.Scan(&created); err != nil {
			return false, fmt.Errorf("users: register %d: %w", u.ID, err)
		}
	}
	return created, rows.Err()
}

// Count returns the number of registered users.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT count(*) FROM users`); err != nil {
		return 0, fmt.Errorf("users: count: %w", err)
	}
	return n, nil
}
