package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/juliabot/core/cache"
	coreconfig "github.com/m3rciful/juliabot/core/config"
	coredatabase "github.com/m3rciful/juliabot/core/database"
	"github.com/m3rciful/juliabot/core/logger"
	coretelegram "github.com/m3rciful/juliabot/core/telegram"
	"github.com/m3rciful/juliabot/core/telegram/state"
)

// Keys of the workflow data available to handlers in polling mode.
const (
	DataSessionMaker = "session_maker"
	DataRedis        = "redis"
)

// Options control the bootstrap pipeline. Nil factories fall back to the real implementations.
type Options struct {
	Config   *coreconfig.Config
	Handlers Handlers

	LoggerInit   func(*coreconfig.Config) error
	NewClient    func(*coreconfig.Config) (coretelegram.Client, error)
	ConnectRedis func(ctx context.Context, dsn string) (*redis.Client, error)
	ConnectDB    func(ctx context.Context, cfg coreconfig.DatabaseConfig) (*sqlx.DB, error)
	Migrate      func(ctx context.Context, cfg coreconfig.DatabaseConfig) error
	SetMenu      func(ctx context.Context, client coretelegram.Client, reg *coretelegram.Registry) error
}

func (o *Options) applyDefaults() {
	if o.LoggerInit == nil {
		o.LoggerInit = logger.InitLogger
	}
	if o.NewClient == nil {
		o.NewClient = NewClient
	}
	if o.ConnectRedis == nil {
		o.ConnectRedis = cache.Connect
	}
	if o.ConnectDB == nil {
		o.ConnectDB = coredatabase.Connect
	}
	if o.Migrate == nil {
		o.Migrate = coredatabase.RunMigrations
	}
	if o.SetMenu == nil {
		o.SetMenu = func(ctx context.Context, client coretelegram.Client, reg *coretelegram.Registry) error {
			return coretelegram.SetMenu(ctx, client, reg)
		}
	}
}

// NewClient builds the bot client with HTML parse mode and the tuned HTTP client.
func NewClient(cfg *coreconfig.Config) (coretelegram.Client, error) {
	return coretelegram.NewBot(coretelegram.BotOptions{
		Token:           cfg.Telegram.Token,
		ParseMode:       cfg.Telegram.ParseMode,
		LongPollTimeout: time.Duration(cfg.Telegram.LongPollTimeoutSeconds) * time.Second,
		HTTPClient:      coretelegram.BuildHTTPClient(),
	})
}

// SelectStorage maps the configured kind onto an FSM storage backend.
func SelectStorage(kind coreconfig.FSMStorage, rdb *redis.Client, opts state.RedisOptions) (state.Storage, error) {
	switch kind {
	case coreconfig.FSMStorageMemory:
		return state.NewMemoryStorage(), nil
	case coreconfig.FSMStorageRedis:
		if rdb == nil {
			return nil, fmt.Errorf("bootstrap: redis storage selected without a redis client")
		}
		return state.NewRedisStorage(rdb, opts), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown fsm storage %q", kind)
	}
}

// Run composes the bot and serves updates until ctx is done (polling) or the
// webhook is registered (webhook). The bot session is closed exactly once on every exit path.
func Run(ctx context.Context, opts Options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return fmt.Errorf("bootstrap: nil config provided")
	}
	cfg := opts.Config
	opts.applyDefaults()
	startedAt := time.Now()

	if err := opts.LoggerInit(cfg); err != nil {
		return fmt.Errorf("bootstrap: logger init failed: %w", err)
	}
	logger.App.Info("is started", slog.String("event", "startup"))

	client, err := opts.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: bot client: %w", err)
	}

	var (
		rdb       *redis.Client
		db        *sqlx.DB
		closeOnce sync.Once
	)
	defer func() {
		logger.App.Info("finally closing connection", slog.String("event", "shutdown"))
		closeOnce.Do(func() {
			if cerr := client.Close(); cerr != nil {
				logger.App.Warn("bot session close failed", slog.String("err", cerr.Error()))
			}
		})
		if db != nil {
			if cerr := db.Close(); cerr != nil {
				logger.DB.Warn("db close failed", slog.String("err", cerr.Error()))
			}
		}
		if rdb != nil {
			if cerr := rdb.Close(); cerr != nil {
				logger.Cache.Warn("redis close failed", slog.String("err", cerr.Error()))
			}
		}
	}()

	if cfg.Redis.DSN != "" {
		rdb, err = opts.ConnectRedis(ctx, cfg.Redis.DSN)
		if err != nil {
			return fmt.Errorf("bootstrap: redis: %w", err)
		}
	}

	storage, err := SelectStorage(cfg.Telegram.FSMStorage, rdb, state.RedisOptions{
		StateTTL: time.Duration(cfg.Redis.StateTTLSeconds) * time.Second,
		DataTTL:  time.Duration(cfg.Redis.DataTTLSeconds) * time.Second,
	})
	if err != nil {
		return err
	}
	defer func() { _ = storage.Close() }()
	logger.TWire.Info(string(cfg.Telegram.FSMStorage)+" enabled",
		slog.String("event", "fsm.storage"),
		slog.String("storage", string(cfg.Telegram.FSMStorage)),
	)

	dispatcher := coretelegram.NewDispatcher(storage, coretelegram.DispatcherOptions{
		Middlewares: coretelegram.DefaultMiddlewares(cfg, nil),
		AdminID:     cfg.Telegram.AdminID,
	})
	if err := opts.Handlers.Apply(ctx, cfg, dispatcher); err != nil {
		return err
	}
	if err := dispatcher.Bind(client, client.ID()); err != nil {
		return fmt.Errorf("bootstrap: bind handlers: %w", err)
	}
	if err := opts.SetMenu(ctx, client, dispatcher.Registry()); err != nil {
		return fmt.Errorf("bootstrap: command menu: %w", err)
	}

	db, err = opts.ConnectDB(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := opts.Migrate(ctx, cfg.Database); err != nil {
			return fmt.Errorf("bootstrap: migrations failed: %w", err)
		}
	}

	allowed := dispatcher.UsedUpdateTypes()
	logger.App.Info("app ready",
		slog.String("event", "ready"),
		slog.String("mode", cfg.RunMode()),
		slog.Duration("startup_duration", logger.Took(startedAt)),
	)

	if cfg.RunMode() == coreconfig.RunModeWebhook {
		logger.App.Info("webhook domain set", slog.String("event", "mode"))
		logger.SetComponentLevel("http.access", logger.LevelFatal)
		return coretelegram.RegisterWebhook(ctx, client, cfg.WebhookURL(), allowed)
	}

	logger.App.Info("webhook domain not set", slog.String("event", "mode"))
	dispatcher.SetData(DataSessionMaker, db)
	if rdb != nil {
		dispatcher.SetData(DataRedis, rdb)
	}
	return coretelegram.StartPolling(ctx, client, allowed)
}
