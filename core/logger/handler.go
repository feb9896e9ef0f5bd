package logger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"
	// formatLine renders "file.go:12 #LEVEL    [ts] - component - message k=v".
	formatLine logFormat = "line"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

var errNoWriter = errors.New("logger: writer not initialized")

type handlerConfig struct {
	level      slog.Leveler
	components *levelTable
	writer     *lineWriter
	format     logFormat
	keyOrder   []string
}

type structuredHandler struct {
	cfg    handlerConfig
	attrs  []slog.Attr
	groups []string
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if cfg.keyOrder == nil {
		cfg.keyOrder = append([]string(nil), defaultKeyOrder...)
	}
	return &structuredHandler{cfg: cfg}
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

// Handle flattens r into fields, applies context metadata and component
// filtering, and queues the encoded line.
func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return errNoWriter
	}
	f := h.header(r)
	for _, a := range h.attrs {
		h.add(f, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.add(f, a)
		return true
	})
	f.fromContext(ctx)
	h.finish(f, r.Message)

	if !h.cfg.components.Allows(f.str("component"), r.Level) {
		return nil
	}
	normalizeEnums(f)
	f.prune()

	line, err := h.encode(f)
	if err != nil {
		return err
	}
	if len(line) == 0 || line[len(line)-1] != '\n' {
		line = append(line, '\n')
	}
	return h.cfg.writer.Write(line)
}

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

func (h *structuredHandler) header(r slog.Record) fields {
	ts := r.Time.UTC()
	f := make(fields, 16)
	f["ts"] = ts.Truncate(time.Millisecond).Format(timeFormatMillis)
	f["level"] = levelName(r.Level)
	if src := sourceOf(r.PC); src != "" {
		f["source"] = src
	}
	if h.cfg.format == formatJSON {
		f["ts_unix_nano"] = ts.UnixNano()
	}
	return f
}

func (h *structuredHandler) add(f fields, a slog.Attr) {
	walkAttr(strings.Join(h.groups, "."), a, func(key string, v slog.Value) {
		if key == "" {
			return
		}
		if k, val, ok := normalizeValue(key, v); ok {
			f[k] = val
		}
	})
}

// finish compacts the rid and fills event, msg and component.
func (h *structuredHandler) finish(f fields, message string) {
	if rid := f.str("rid"); rid != "" {
		if compact := CompactRID(rid); compact != "" && compact != rid {
			if h.cfg.format == formatJSON {
				f.setDefault("rid_full", rid)
			}
			f["rid"] = compact
		}
	}

	switch event := f.str("event"); {
	case event == "" && message != "":
		f["event"] = message
	case event == "":
		f["event"] = "unknown"
	case message != "" && message != event:
		f["msg"] = message
	}

	if f.str("component") == "" {
		f["component"] = "app"
	}
}

// walkAttr calls fn for every leaf of a, with group names joined by dots.
func walkAttr(prefix string, a slog.Attr, fn func(string, slog.Value)) {
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	v := a.Value.Resolve()
	if v.Kind() != slog.KindGroup {
		fn(key, v)
		return
	}
	for _, child := range v.Group() {
		walkAttr(key, child, fn)
	}
}

// normalizeValue converts v into a JSON-friendly value. Durations become
// integer milliseconds under a key ending in "_ms".
func normalizeValue(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(v.String()), true
	case slog.KindBool:
		return key, v.Bool(), true
	case slog.KindInt64:
		return key, v.Int64(), true
	case slog.KindUint64:
		if u := v.Uint64(); u > math.MaxInt64 {
			return key, u, true
		}
		return key, int64(v.Uint64()), true
	case slog.KindFloat64:
		return key, v.Float64(), true
	case slog.KindDuration:
		return durationField(key, v.Duration())
	case slog.KindTime:
		return key, v.Time().UTC().Format(timeFormatMillis), true
	}

	switch x := v.Any().(type) {
	case nil:
		return key, nil, false
	case time.Duration:
		return durationField(key, x)
	case error:
		return key, x.Error(), true
	case string:
		return key, strings.TrimSpace(x), true
	case fmt.Stringer:
		return key, x.String(), true
	default:
		return key, fmt.Sprint(x), true
	}
}

func durationField(key string, d time.Duration) (string, any, bool) {
	if !strings.HasSuffix(key, "_ms") {
		key += "_ms"
	}
	return key, RoundMS(d).Milliseconds(), true
}

// sourceOf resolves a program counter into "file.go:line".
func sourceOf(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	if frame.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)
}

// fields is one record flattened to dotted keys.
type fields map[string]any

func (f fields) str(key string) string {
	switch v := f[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func (f fields) setDefault(key string, v any) {
	if _, ok := f[key]; !ok {
		f[key] = v
	}
}

// fromContext adds correlation metadata without overriding explicit attrs.
func (f fields) fromContext(ctx context.Context) {
	m := metaOf(ctx)
	if m.rid != "" {
		f.setDefault("rid", m.rid)
	}
	if m.userID != 0 {
		f.setDefault("user_id", m.userID)
	}
	if m.updateID != 0 {
		f.setDefault("update_id", m.updateID)
	}
	if m.chatID != 0 {
		f.setDefault("chat_id", m.chatID)
	}
	if m.handler != "" {
		f.setDefault("handler", m.handler)
	}
}

func (f fields) prune() {
	for k, v := range f {
		if s, ok := v.(string); v == nil || ok && s == "" {
			delete(f, k)
		}
	}
}
