package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{Token: "123:abc"},
		Database: DatabaseConfig{DSN: "postgres://bot@localhost/bot"},
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, Normalize(cfg))

	assert.Equal(t, FSMStorageMemory, cfg.Telegram.FSMStorage)
	assert.Equal(t, "HTML", cfg.Telegram.ParseMode)
	assert.Equal(t, 10, cfg.Database.MaxConnections)
	assert.Equal(t, "migrations", cfg.Database.MigrationsDir)
	assert.Equal(t, RunModeLongpoll, cfg.RunMode())
}

func TestNormalizeRequiresToken(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.Token = "  "
	require.EqualError(t, Normalize(cfg), "telegram token is required")
}

func TestNormalizeRequiresDatabaseDSN(t *testing.T) {
	cfg := validConfig()
	cfg.Database.DSN = ""
	require.EqualError(t, Normalize(cfg), "database.dsn is required")
}

func TestParseFSMStorage(t *testing.T) {
	cases := map[string]FSMStorage{
		"":        FSMStorageMemory,
		"memory":  FSMStorageMemory,
		" Redis ": FSMStorageRedis,
		"redis":   FSMStorageRedis,
	}
	for raw, want := range cases {
		got, err := ParseFSMStorage(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseFSMStorage("mongo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"mongo"`)
}

func TestNormalizeRedisStorageNeedsDSN(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.FSMStorage = FSMStorageRedis
	require.Error(t, Normalize(cfg))

	cfg.Redis.DSN = "redis://localhost:6379/0"
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, FSMStorageRedis, cfg.Telegram.FSMStorage)
}

func TestNormalizeTriggerAppNeedsRedis(t *testing.T) {
	cfg := validConfig()
	cfg.Apps.Trigger = true
	require.Error(t, Normalize(cfg))

	cfg.Redis.DSN = "localhost:6379"
	require.NoError(t, Normalize(cfg))
}

func TestWebhookModeAndURL(t *testing.T) {
	cfg := validConfig()
	cfg.Webhook.Domain = "https://bot.example.com/"
	cfg.Webhook.Path = "hook/telegram"
	require.NoError(t, Normalize(cfg))

	assert.Equal(t, RunModeWebhook, cfg.RunMode())
	assert.Equal(t, "https://bot.example.com/hook/telegram", cfg.WebhookURL())
}

func TestWebhookDomainNeedsScheme(t *testing.T) {
	cfg := validConfig()
	cfg.Webhook.Domain = "bot.example.com"
	require.Error(t, Normalize(cfg))
}

func TestNormalizeRateLimitExclusions(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit.ExcludeUpdates = []string{" Callback ", "MESSAGE"}
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, []string{"callback", "message"}, cfg.RateLimit.ExcludeUpdates)

	cfg.RateLimit.ExcludeUpdates = []string{"inline_query"}
	require.Error(t, Normalize(cfg))
}

func TestLoadYAMLWithEnvOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
telegram:
  token: "yaml-token"
  fsm_storage: memory
redis:
  dsn: "redis://localhost:6379/1"
database:
  dsn: "postgresql+asyncpg://bot:secret@db:5432/julia"
apps:
  library_app: true
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TRIGGER_APP=true\n"), 0o600))

	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("BOT_FSM_STORAGE", "redis")
	t.Setenv("WEBHOOK_DOMAIN", "")

	cfg, err := Load(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Unsetenv("TRIGGER_APP") })

	assert.Equal(t, "env-token", cfg.Telegram.Token)
	assert.Equal(t, FSMStorageRedis, cfg.Telegram.FSMStorage)
	assert.True(t, cfg.Apps.Library)
	assert.True(t, cfg.Apps.Trigger)
	assert.Equal(t, RunModeLongpoll, cfg.RunMode())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
