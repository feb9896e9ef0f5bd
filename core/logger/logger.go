package logger

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/juliabot/core/buildinfo"
	coreconfig "github.com/m3rciful/juliabot/core/config"
)

// LevelFatal is the slog level used to silence everything but fatal records.
const LevelFatal = slog.Level(12)

var (
	initOnce   sync.Once
	shutdownMu sync.Mutex
	shutdowned bool

	logWriter  *lineWriter
	logClosers []io.Closer

	levelVar        slog.LevelVar
	componentLevels = newLevelTable()

	traceOverride bool

	// L is the base logger. Before InitLogger it falls back to slog.Default().
	L = slog.Default()

	// App logs process lifecycle events.
	App *slog.Logger
	// DB logs database-related events.
	DB *slog.Logger
	// MIG logs database migration events.
	MIG *slog.Logger
	// Cache logs Redis client events.
	Cache *slog.Logger
	// TG logs Telegram transport events.
	TG *slog.Logger
	// TWire logs Telegram wiring steps.
	TWire *slog.Logger
	// FSM logs conversation state transitions.
	FSM *slog.Logger
	// HTTPAccess logs outbound Bot API requests.
	HTTPAccess *slog.Logger
)

func init() {
	setDebugEvery(defaultDebugEvery)
	wireComponents()
}

// InitLogger configures the global structured logger. It may be called only once.
func InitLogger(cfg *coreconfig.Config) error {
	var initErr error
	initOnce.Do(func() {
		format := selectFormat(cfg)
		order := selectKeyOrder(cfg)
		level := selectLevel(cfg)
		levelVar.Set(level)

		setDebugEvery(debugEvery(cfg))
		traceOverride = detectTraceFlag()

		outputs, closers, err := buildOutputs(cfg)
		if err != nil {
			initErr = err
			return
		}
		logClosers = closers
		logWriter = newLineWriter(outputs, 1024)

		handler := newStructuredHandler(handlerConfig{
			level:      &levelVar,
			components: componentLevels,
			writer:     logWriter,
			format:     format,
			keyOrder:   order,
		})

		logger := slog.New(handler)
		L = logger
		slog.SetDefault(logger)

		wireComponents()
		logStartup(cfg)
	})
	return initErr
}

func wireComponents() {
	if L == nil {
		return
	}
	App = L.With("component", "app")
	DB = L.With("component", "db")
	MIG = L.With("component", "db.migrate")
	Cache = L.With("component", "redis")
	TG = L.With("component", "tg")
	TWire = L.With("component", "tg.wire")
	FSM = L.With("component", "tg.fsm")
	HTTPAccess = L.With("component", "http.access")
}

func logStartup(cfg *coreconfig.Config) {
	if L == nil {
		return
	}
	build := buildinfo.Read()
	attrs := []slog.Attr{
		slog.String("component", "app"),
		slog.String("event", "startup"),
		slog.String("go_version", runtime.Version()),
		slog.String("build_version", build.Version),
		slog.String("build_commit", build.Commit),
		slog.String("build_time", build.Date),
	}
	if build.Modified {
		attrs = append(attrs, slog.Bool("build_dirty", true))
	}
	if cfg != nil {
		attrs = append(attrs,
			slog.String("cfg_profile", selectProfile(cfg)),
		)
	}
	logAt(context.Background(), L, slog.LevelInfo, "startup", 3, attrs...)
}

// Shutdown flushes buffered log output and closes opened sinks.
func Shutdown() error {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	if shutdowned {
		return nil
	}
	shutdowned = true

	var errs []error
	if logWriter != nil {
		if err := logWriter.Flush(); err != nil {
			errs = append(errs, err)
		}
		if err := logWriter.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, c := range logClosers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetComponentLevel raises (or lowers) the minimum level for records of one component.
// It mirrors silencing a single named logger without touching the rest.
func SetComponentLevel(component string, level slog.Level) {
	componentLevels.Set(strings.TrimSpace(component), level)
}

// ResetComponentLevel removes a per-component override.
func ResetComponentLevel(component string) {
	componentLevels.Delete(strings.TrimSpace(component))
}

func selectFormat(cfg *coreconfig.Config) logFormat {
	if cfg == nil {
		return formatLine
	}
	raw := strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	switch raw {
	case "kv", "text", "pretty":
		return formatKV
	case "json":
		return formatJSON
	case "line", "":
		return formatLine
	}
	if strings.EqualFold(cfg.Logging.Profile, "prod") {
		return formatJSON
	}
	return formatLine
}

func selectKeyOrder(cfg *coreconfig.Config) []string {
	if cfg == nil {
		return append([]string(nil), defaultKeyOrder...)
	}
	raw := strings.TrimSpace(cfg.Logging.KeysOrder)
	if raw == "" || raw == "default" {
		return append([]string(nil), defaultKeyOrder...)
	}
	parts := strings.Split(raw, ",")
	order := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		order = append(order, trimmed)
	}
	if len(order) == 0 {
		return append([]string(nil), defaultKeyOrder...)
	}
	return order
}

func selectLevel(cfg *coreconfig.Config) slog.Level {
	if cfg == nil {
		return slog.LevelInfo
	}
	return parseLevel(cfg.Logging.Level)
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "fatal", "critical":
		return LevelFatal
	default:
		return slog.LevelInfo
	}
}

func buildOutputs(cfg *coreconfig.Config) ([]io.Writer, []io.Closer, error) {
	writers := []io.Writer{os.Stdout}
	var closers []io.Closer
	if cfg == nil {
		return writers, closers, nil
	}
	dir := strings.TrimSpace(cfg.Logging.Dir)
	file := strings.TrimSpace(cfg.Logging.BotFile)
	if dir != "" && file != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Printf("logger: failed to create log dir %s: %v", dir, err)
		} else {
			path := filepath.Join(dir, file)
			f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				log.Printf("logger: failed to open log file %s: %v", path, err)
			} else {
				writers = append(writers, f)
				closers = append(closers, f)
			}
		}
	}
	return writers, closers, nil
}

func selectProfile(cfg *coreconfig.Config) string {
	if cfg == nil {
		return ""
	}
	if profile := strings.TrimSpace(cfg.Logging.Profile); profile != "" {
		return strings.ToLower(profile)
	}
	return "prod"
}

// Background returns context.Background() provided for compatibility with existing call sites.
func Background() context.Context {
	return context.Background()
}

// LogEvent logs an event attribute first, keeping the caller's file:line as source.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	logAt(ctx, logg, level, event, 3, attrs...)
}

// logAt builds the record itself so that the source points at the caller
// skip frames above runtime.Callers instead of at this package.
func logAt(ctx context.Context, logg *slog.Logger, level slog.Level, event string, skip int, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		logg = L
	}
	if logg == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !logg.Enabled(ctx, level) {
		return
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	var pcs [1]uintptr
	runtime.Callers(skip, pcs[:])
	r := slog.NewRecord(time.Now(), level, "", pcs[0])
	r.AddAttrs(attrs...)
	_ = logg.Handler().Handle(ctx, r)
}

// Component constructs a logger scoped to the provided component attribute.
func Component(name string) *slog.Logger {
	if L == nil {
		return nil
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return L
	}
	return L.With("component", trimmed)
}

func debugEvery(cfg *coreconfig.Config) int {
	if cfg == nil {
		return defaultDebugEvery
	}
	return parseDebugEvery(cfg.Logging.DebugSample)
}

func detectTraceFlag() bool {
	return isTruthy(os.Getenv("TRACE")) || isTruthy(os.Getenv("LOG_TRACE"))
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// ShouldSampleDebug reports whether debug-level details should be logged for high-volume events.
func ShouldSampleDebug() bool {
	if traceOverride {
		return true
	}
	return sampleDebug()
}

// Status maps an error to the status value used in log records.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Took returns the time since start rounded for logs.
func Took(start time.Time) time.Duration {
	return RoundMS(time.Since(start))
}

// RoundMS rounds d to whole milliseconds.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}
