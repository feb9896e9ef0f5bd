package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"
)

type ctxKey struct{ name string }

var (
	loggerKey = ctxKey{"logger"}
	metaKey   = ctxKey{"meta"}
)

// meta is the correlation data added to every record logged with a context.
// Each With* call stores an updated copy.
type meta struct {
	rid      string
	updateID int
	userID   int64
	chatID   int64
	handler  string
}

func metaOf(ctx context.Context) meta {
	if ctx == nil {
		return meta{}
	}
	m, _ := ctx.Value(metaKey).(meta)
	return m
}

func withMeta(ctx context.Context, edit func(*meta)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	m := metaOf(ctx)
	edit(&m)
	return context.WithValue(ctx, metaKey, m)
}

// WithLogger stores log in ctx.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey, log)
}

// FromContext returns the logger stored in ctx or the base logger.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
			return l
		}
	}
	return L
}

// WithRID sets the correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	return withMeta(ctx, func(m *meta) { m.rid = rid })
}

// RIDFrom returns the correlation id or "".
func RIDFrom(ctx context.Context) string { return metaOf(ctx).rid }

// WithUpdateMeta sets the identifiers of the Telegram update being handled.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	return withMeta(ctx, func(m *meta) {
		m.updateID, m.userID, m.chatID = updateID, userID, chatID
	})
}

// WithHandler sets the handler name. An empty name leaves ctx unchanged.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	return withMeta(ctx, func(m *meta) { m.handler = handler })
}

// HandlerFrom returns the handler name or "".
func HandlerFrom(ctx context.Context) string { return metaOf(ctx).handler }

// UserIDFrom returns the Telegram user id or 0.
func UserIDFrom(ctx context.Context) int64 { return metaOf(ctx).userID }

// ChatIDFrom returns the chat id or 0.
func ChatIDFrom(ctx context.Context) int64 { return metaOf(ctx).chatID }

// UpdateIDFrom returns the update id or 0.
func UpdateIDFrom(ctx context.Context) int { return metaOf(ctx).updateID }

// Sanitize drops control and format runes from s, keeping newlines and tabs.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case unicode.IsControl(r) || unicode.Is(unicode.Cf, r):
			return -1
		}
		return r
	}, s)
}

// SanitizeLimit sanitizes s and cuts it to max runes.
func SanitizeLimit(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(Sanitize(s))
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max])
}

// BuildRID returns the correlation id "updateID:chatID:userID".
func BuildRID(updateID int, chatID, userID int64) string {
	return fmt.Sprintf("%d:%d:%d", updateID, chatID, userID)
}

// CompactRID rewrites each part of a BuildRID id in base36, joined by dots.
// Other input is returned trimmed but otherwise unchanged.
func CompactRID(rid string) string {
	rid = strings.TrimSpace(rid)
	parts := strings.Split(rid, ":")
	if len(parts) != 3 {
		return rid
	}
	for i, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return rid
		}
		parts[i] = strconv.FormatInt(n, 36)
	}
	return strings.Join(parts, ".")
}
