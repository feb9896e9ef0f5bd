package logger

import (
	"log/slog"
	"strings"
)

const fatalName = "FATAL"

var levelNames = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
	"fatal":   fatalName,
}

func levelName(level slog.Level) string {
	if level >= LevelFatal {
		return fatalName
	}
	s := level.String()
	if name, ok := levelNames[strings.ToLower(s)]; ok {
		return name
	}
	return strings.ToUpper(s)
}

// enum lists the accepted values of an enumerated key. Unknown values are
// kept verbatim when loose is set and dropped otherwise.
type enum struct {
	values map[string]struct{}
	loose  bool
}

func newEnum(loose bool, values ...string) enum {
	e := enum{values: make(map[string]struct{}, len(values)), loose: loose}
	for _, v := range values {
		e.values[v] = struct{}{}
	}
	return e
}

var enums = map[string]enum{
	"status":  newEnum(true, "ok", "fail", "skip", "retry", "rate_limited", "cancelled"),
	"cache":   newEnum(false, "hit", "miss", "refresh"),
	"outcome": newEnum(false, "ok", "fail", "cancelled", "rate_limited"),
}

// normalizeEnums lowercases known enum values and drops invalid strict ones.
func normalizeEnums(f fields) {
	for key, e := range enums {
		raw, ok := f[key].(string)
		if !ok || raw == "" {
			continue
		}
		v := strings.ToLower(strings.TrimSpace(raw))
		switch _, known := e.values[v]; {
		case known:
			f[key] = v
		case !e.loose:
			delete(f, key)
		}
	}
}

// defaultKeyOrder puts correlation fields first; other keys follow sorted.
var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "msg", "status",
	"rid", "rid_full", "ts_unix_nano",
	"update_id", "user_id", "chat_id", "chat_type",
	"handler", "state", "kind", "cb_key", "outcome", "duration_ms",
	"payload", "lang", "username",
	"mode", "storage", "url", "allowed_updates",
	"method", "http_code", "db", "host", "port",
	"app", "commands", "messages", "kb", "answered",
	"source", "err", "err_code", "cause", "attempts", "backoff_ms",
}
