package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// FSMStorage selects the backend holding per-conversation FSM data.
type FSMStorage string

const (
	// FSMStorageMemory keeps FSM data in process memory.
	FSMStorageMemory FSMStorage = "memory"
	// FSMStorageRedis keeps FSM data in Redis.
	FSMStorageRedis FSMStorage = "redis"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token      string     `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID    int64      `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	ParseMode  string     `yaml:"parse_mode" envconfig:"BOT_PARSE_MODE"`
	FSMStorage FSMStorage `yaml:"fsm_storage" envconfig:"BOT_FSM_STORAGE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings. A non-empty Domain selects webhook mode.
type WebhookConfig struct {
	Domain string `yaml:"domain" envconfig:"WEBHOOK_DOMAIN"`
	Path   string `yaml:"path" envconfig:"WEBHOOK_PATH"`
}

// RedisConfig holds the key-value store connection and FSM key lifetimes.
type RedisConfig struct {
	DSN             string `yaml:"dsn" envconfig:"REDIS_DSN"`
	StateTTLSeconds int    `yaml:"state_ttl_seconds" envconfig:"REDIS_STATE_TTL_SECONDS"`
	DataTTLSeconds  int    `yaml:"data_ttl_seconds" envconfig:"REDIS_DATA_TTL_SECONDS"`
}

// DatabaseConfig holds the relational database connection settings.
type DatabaseConfig struct {
	DSN            string `yaml:"dsn" envconfig:"POSTGRES_DSN"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	MigrationsDir  string `yaml:"migrations_dir" envconfig:"DB_MIGRATIONS_DIR"`
	AutoMigrate    bool   `yaml:"auto_migrate" envconfig:"DB_AUTO_MIGRATE"`
}

// AppsConfig toggles optional handler sub-applications.
type AppsConfig struct {
	Library bool `yaml:"library_app" envconfig:"LIBRARY_APP"`
	Trigger bool `yaml:"trigger_app" envconfig:"TRIGGER_APP"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
)

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the whole bot configuration. It is passed explicitly into startup.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Redis     RedisConfig     `yaml:"redis"`
	Database  DatabaseConfig  `yaml:"database"`
	Apps      AppsConfig      `yaml:"apps"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Load reads configuration from a YAML file and environment variables.
// A .env file next to the config file (or in the working directory) is loaded first when present.
func Load(path string) (*Config, error) {
	if err := loadDotenv(filepath.Join(filepath.Dir(path), ".env"), ".env"); err != nil {
		return nil, err
	}

	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotenv(paths ...string) error {
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		// godotenv.Load never overrides variables already set in the environment.
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return fmt.Errorf("telegram token is required")
	}
	if cfg.Telegram.LongPollTimeoutSeconds < 0 {
		return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
	}
	if strings.TrimSpace(cfg.Telegram.ParseMode) == "" {
		cfg.Telegram.ParseMode = "HTML"
	}

	storage, err := ParseFSMStorage(string(cfg.Telegram.FSMStorage))
	if err != nil {
		return err
	}
	cfg.Telegram.FSMStorage = storage

	cfg.Redis.DSN = strings.TrimSpace(cfg.Redis.DSN)
	if storage == FSMStorageRedis && cfg.Redis.DSN == "" {
		return fmt.Errorf("redis.dsn is required when telegram.fsm_storage is 'redis'")
	}
	if cfg.Apps.Trigger && cfg.Redis.DSN == "" {
		return fmt.Errorf("redis.dsn is required when apps.trigger_app is enabled")
	}
	if cfg.Redis.StateTTLSeconds < 0 || cfg.Redis.DataTTLSeconds < 0 {
		return fmt.Errorf("redis ttl values must be >= 0")
	}

	cfg.Database.DSN = strings.TrimSpace(cfg.Database.DSN)
	if cfg.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if cfg.Database.MaxConnections < 0 {
		return fmt.Errorf("database.max_connections must be >= 0")
	}
	if cfg.Database.MaxConnections == 0 {
		cfg.Database.MaxConnections = 10
	}
	if strings.TrimSpace(cfg.Database.MigrationsDir) == "" {
		cfg.Database.MigrationsDir = "migrations"
	}

	cfg.Webhook.Domain = strings.TrimRight(strings.TrimSpace(cfg.Webhook.Domain), "/")
	cfg.Webhook.Path = strings.TrimSpace(cfg.Webhook.Path)
	if cfg.Webhook.Domain != "" {
		if !strings.HasPrefix(cfg.Webhook.Domain, "https://") && !strings.HasPrefix(cfg.Webhook.Domain, "http://") {
			return fmt.Errorf("webhook.domain must include scheme, got %q", cfg.Webhook.Domain)
		}
		if cfg.Webhook.Path != "" && !strings.HasPrefix(cfg.Webhook.Path, "/") {
			cfg.Webhook.Path = "/" + cfg.Webhook.Path
		}
	}

	allowed := map[string]struct{}{
		UpdateCallback: {},
		UpdateMessage:  {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}
	return nil
}

// ParseFSMStorage maps a raw selector onto the closed storage enumeration.
// Empty input selects memory; anything unrecognised is rejected.
func ParseFSMStorage(raw string) (FSMStorage, error) {
	switch FSMStorage(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FSMStorageMemory:
		return FSMStorageMemory, nil
	case FSMStorageRedis:
		return FSMStorageRedis, nil
	default:
		return "", fmt.Errorf("invalid telegram.fsm_storage %q; allowed: memory, redis", raw)
	}
}

// RunMode reports the delivery mode implied by the webhook domain.
func (c *Config) RunMode() string {
	if c == nil || strings.TrimSpace(c.Webhook.Domain) == "" {
		return RunModeLongpoll
	}
	return RunModeWebhook
}

// WebhookURL joins the webhook domain and path.
func (c *Config) WebhookURL() string {
	if c == nil {
		return ""
	}
	return strings.TrimRight(c.Webhook.Domain, "/") + c.Webhook.Path
}
