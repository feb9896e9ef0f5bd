package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/juliabot/core/logger"
	"golang.org/x/time/rate"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	Interval  time.Duration
	Burst     int
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
}

// RateLimitMiddleware returns a middleware that allows one update per Interval
// from the same user, with Burst updates of slack.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	limiters := newLimiterSet(opts.Interval, opts.Burst, time.Now)
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}

			if _, skip := opts.Exclude[UpdateKind(c.Update())]; skip {
				return next(c)
			}

			if limiters.allow(user.ID) {
				return next(c)
			}

			attrs := []any{
				slog.String("event", "tg.rate_limit"),
				slog.Int64("user_id", user.ID),
			}
			if chat := c.Chat(); chat != nil {
				attrs = append(attrs, slog.Int64("chat_id", chat.ID))
			}
			logger.TG.Warn("rate limit", attrs...)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}

// minIdle bounds how often the limiter set is swept.
const minIdle = time.Minute

// limiterSet keeps one token bucket per user. A bucket untouched for
// every*burst is full again, so it is dropped on the next sweep.
type limiterSet struct {
	mu        sync.Mutex
	every     time.Duration
	burst     int
	idle      time.Duration
	now       func() time.Time
	entries   map[int64]*limiterEntry
	lastSweep time.Time
}

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

func newLimiterSet(every time.Duration, burst int, now func() time.Time) *limiterSet {
	idle := every * time.Duration(burst)
	if idle < minIdle {
		idle = minIdle
	}
	return &limiterSet{
		every:     every,
		burst:     burst,
		idle:      idle,
		now:       now,
		entries:   make(map[int64]*limiterEntry),
		lastSweep: now(),
	}
}

func (s *limiterSet) allow(userID int64) bool {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) >= s.idle {
		for id, e := range s.entries {
			if now.Sub(e.seen) >= s.idle {
				delete(s.entries, id)
			}
		}
		s.lastSweep = now
	}

	e, ok := s.entries[userID]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(rate.Every(s.every), s.burst)}
		s.entries[userID] = e
	}
	e.seen = now
	return e.lim.AllowN(now, 1)
}

func (s *limiterSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// UpdateKind classifies an update for rate limit exclusions.
func UpdateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil:
		return "message"
	case upd.Query != nil:
		return "inline_query"
	}
	return "other"
}
