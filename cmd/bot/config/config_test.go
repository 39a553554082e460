package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bot_config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadBotConfig(t *testing.T) {
	t.Run("yaml plus defaults", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "")
		t.Setenv("BOT_ADMINS", "")

		path := writeConfig(t, `
bot:
  token: "123456:token"
  bootstrap_admins: [100, 200]
  storage:
    backend: sqlite
    sqlite_path: /tmp/rules.db
`)

		cfg, err := LoadBotConfig(path)
		require.NoError(t, err)

		assert.Equal(t, "123456:token", cfg.Token)
		assert.Equal(t, []int64{100, 200}, cfg.BootstrapAdmins)
		assert.Equal(t, "sqlite", cfg.Storage.Backend)
		assert.Equal(t, "/tmp/rules.db", cfg.Storage.SQLitePath)

		// Незаполненные поля добиваются значениями по умолчанию.
		assert.Equal(t, DefaultWelcomeTemplate, cfg.WelcomeTemplate)
		assert.Equal(t, DefaultButtonLabel, cfg.ButtonLabel)
		assert.Equal(t, DefaultPollTimeoutSeconds, cfg.PollTimeoutSeconds)
		assert.Equal(t, DefaultExcelThreshold, cfg.ExcelThreshold)
		assert.Equal(t, DefaultMatchingPolicy, cfg.Matching.Policy)
		assert.Equal(t, DefaultKeywordColumnWidth, cfg.Render.Keyword)
		assert.Equal(t, DefaultLogLevel, cfg.Logging.Level)
	})

	t.Run("environment overrides yaml", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "999:env-token")
		t.Setenv("BOT_ADMINS", "300, 400")

		path := writeConfig(t, `
bot:
  token: "123456:yaml-token"
  bootstrap_admins: [100]
`)

		cfg, err := LoadBotConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "999:env-token", cfg.Token)
		assert.Equal(t, []int64{300, 400}, cfg.BootstrapAdmins)
	})

	t.Run("missing file is fine with environment", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "999:env-token")
		t.Setenv("BOT_ADMINS", "300")

		cfg, err := LoadBotConfig(filepath.Join(t.TempDir(), "no-such.yml"))
		require.NoError(t, err)
		assert.Equal(t, "999:env-token", cfg.Token)
		assert.Equal(t, DefaultStorageBackend, cfg.Storage.Backend)
	})

	t.Run("broken yaml is an error", func(t *testing.T) {
		path := writeConfig(t, "bot: [broken")
		_, err := LoadBotConfig(path)
		assert.Error(t, err)
	})
}

func TestBotConfig_Validate(t *testing.T) {
	valid := func() *BotConfig {
		c := &BotConfig{
			Token:           "123456:token",
			BootstrapAdmins: []int64{100},
		}
		applyDefaults(c)
		return c
	}

	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	tests := []struct {
		name    string
		mutate  func(*BotConfig)
		errPart string
	}{
		{
			name:    "empty token",
			mutate:  func(c *BotConfig) { c.Token = "" },
			errPart: "token",
		},
		{
			name:    "placeholder token",
			mutate:  func(c *BotConfig) { c.Token = "YOUR_TELEGRAM_BOT_TOKEN" },
			errPart: "token",
		},
		{
			name:    "no admins",
			mutate:  func(c *BotConfig) { c.BootstrapAdmins = nil },
			errPart: "bootstrap_admins",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *BotConfig) { c.Storage.Backend = "redis" },
			errPart: "storage.backend",
		},
		{
			name:    "unknown policy",
			mutate:  func(c *BotConfig) { c.Matching.Policy = "exact" },
			errPart: "matching.policy",
		},
		{
			name: "bad health port",
			mutate: func(c *BotConfig) {
				c.Health.Enabled = true
				c.Health.Port = 70000
			},
			errPart: "health.port",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *BotConfig) { c.Logging.Level = "trace" },
			errPart: "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestBotConfig_HealthAddress(t *testing.T) {
	c := &BotConfig{}
	applyDefaults(c)
	assert.Equal(t, "0.0.0.0:8080", c.HealthAddress())
}
