// Package handlers holds the base command, callback and message handlers of the bot.
package handlers

import (
	"context"
	"fmt"
	"html"

	"github.com/google/uuid"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/juliabot/bot/deps"
	"github.com/m3rciful/juliabot/bot/feedback"
	"github.com/m3rciful/juliabot/bot/users"
	"github.com/m3rciful/juliabot/core/telegram/keyboard"
	"github.com/m3rciful/juliabot/core/telegram/state"
)

// StateFeedback waits for the text of a feedback message.
const StateFeedback state.State = "feedback:await"

// FeedbackStore persists feedback messages.
type FeedbackStore interface {
	Save(ctx context.Context, userID, chatID int64, body string) (uuid.UUID, error)
	Recent(ctx context.Context, limit int) ([]feedback.Entry, error)
}

// UserCounter reports how many users the bot knows.
type UserCounter interface {
	Count(ctx context.Context) (int, error)
}

// Options configure New. Nil resolvers use the session factory of the update.
type Options struct {
	// MenuRows are appended to the main menu, one slice per enabled app.
	MenuRows [][]keyboard.InlineBtn

	Feedback func(c tele.Context) (FeedbackStore, bool)
	Users    func(c tele.Context) (UserCounter, bool)
}

// Handlers is the base handler set.
type Handlers struct {
	menuRows [][]keyboard.InlineBtn
	feedback func(c tele.Context) (FeedbackStore, bool)
	users    func(c tele.Context) (UserCounter, bool)
	help     func() string
}

// New creates the base handlers.
func New(opts Options) *Handlers {
	h := &Handlers{
		menuRows: opts.MenuRows,
		feedback: opts.Feedback,
		users:    opts.Users,
		help:     func() string { return "" },
	}
	if h.feedback == nil {
		h.feedback = func(c tele.Context) (FeedbackStore, bool) {
			db, ok := deps.DB(c)
			if !ok {
				return nil, false
			}
			return feedback.NewRepository(db), true
		}
	}
	if h.users == nil {
		h.users = func(c tele.Context) (UserCounter, bool) {
			db, ok := deps.DB(c)
			if !ok {
				return nil, false
			}
			return users.NewRepository(db), true
		}
	}
	return h
}

func greeting(c tele.Context) string {
	name := "there"
	if u := c.Sender(); u != nil && u.FirstName != "" {
		name = u.FirstName
	}
	return fmt.Sprintf("Hi, <b>%s</b>! I am Julia.\nPick an option below or send /help.", html.EscapeString(name))
}

const (
	feedbackPrompt    = "Write your message and I will pass it on. Send /cancel to stop."
	feedbackThanks    = "Thank you! Your message has been saved."
	feedbackDown      = "Feedback is unavailable right now, please try again later."
	cancelledText     = "Cancelled."
	nothingToCancel   = "Nothing to cancel."
	unknownText       = "I don't understand that. Send /help to see what I can do."
	unsupportedAction = "Unsupported action"
	noFeedback        = "No feedback yet."
)
