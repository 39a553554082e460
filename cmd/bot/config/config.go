// Package config загружает и валидирует конфигурацию бота.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// StorageConfig выбирает бэкенд хранилища.
type StorageConfig struct {
	// Backend: "file" (JSON-документы) или "sqlite".
	Backend string `yaml:"backend"`
	// DataDir — каталог JSON-документов файлового бэкенда.
	DataDir string `yaml:"data_dir"`
	// SQLitePath — путь к базе для бэкенда sqlite.
	SQLitePath string `yaml:"sqlite_path"`
	// WatchFiles включает перечитывание JSON-файлов при внешних правках.
	WatchFiles bool `yaml:"watch_files"`
}

// MatchingConfig выбирает стратегию матчера.
type MatchingConfig struct {
	// Policy: "fuzzy" (подмножество/70% пересечения) или "strict"
	// (фраза целиком по границам слов).
	Policy string `yaml:"policy"`
}

// HealthConfig настраивает HTTP-эндпоинт для keep-alive пингеров.
type HealthConfig struct {
	Enabled                bool   `yaml:"enabled"`
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
}

// ColumnWidths определяет ширину колонок таблицы /list.
type ColumnWidths struct {
	Keyword  int `yaml:"keyword"`
	Response int `yaml:"response"`
}

// Logging содержит конфигурацию логирования.
type Logging struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// BotConfig содержит конфигурацию Telegram-бота.
type BotConfig struct {
	Token string `yaml:"token"`
	// BootstrapAdmins засевают пустой список админов при первом запуске.
	BootstrapAdmins []int64 `yaml:"bootstrap_admins"`
	// WelcomeTemplate — шаблон ответа по умолчанию, может содержать {mention}.
	WelcomeTemplate string `yaml:"welcome_template"`
	// ButtonLabel — подпись кнопки для правил bracket-формы.
	ButtonLabel        string `yaml:"button_label"`
	PollTimeoutSeconds int    `yaml:"poll_timeout_seconds"`
	// ExcelThreshold — начиная с этого числа правил /list предлагает /export.
	ExcelThreshold int `yaml:"excel_threshold"`

	Storage  StorageConfig  `yaml:"storage"`
	Matching MatchingConfig `yaml:"matching"`
	Health   HealthConfig   `yaml:"health"`
	Render   ColumnWidths   `yaml:"render"`
	Logging  Logging        `yaml:"logging"`
}

// Config является оберткой для соответствия структуре YAML файла.
type Config struct {
	Bot BotConfig `yaml:"bot"`
}

// LoadBotConfig загружает конфигурацию из YAML-файла. Токен и
// bootstrap-админы могут быть переопределены переменными окружения
// BOT_TOKEN и BOT_ADMINS (через .env, если он существует).
func LoadBotConfig(filename string) (*BotConfig, error) {
	// Отсутствующий .env — это нормально.
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(filename)
	switch {
	case os.IsNotExist(err):
		// Конфиг целиком из окружения.
	case err != nil:
		return nil, fmt.Errorf("failed to read bot config file %s: %w", filename, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal bot config: %w", err)
		}
	}

	botCfg := &cfg.Bot
	applyEnv(botCfg)
	applyDefaults(botCfg)
	return botCfg, nil
}

func applyEnv(c *BotConfig) {
	if token := os.Getenv("BOT_TOKEN"); token != "" {
		c.Token = token
	}
	if admins := os.Getenv("BOT_ADMINS"); admins != "" {
		c.BootstrapAdmins = c.BootstrapAdmins[:0]
		for _, part := range strings.Split(admins, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err == nil {
				c.BootstrapAdmins = append(c.BootstrapAdmins, id)
			}
		}
	}
}

func applyDefaults(c *BotConfig) {
	if c.WelcomeTemplate == "" {
		c.WelcomeTemplate = DefaultWelcomeTemplate
	}
	if c.ButtonLabel == "" {
		c.ButtonLabel = DefaultButtonLabel
	}
	if c.PollTimeoutSeconds == 0 {
		c.PollTimeoutSeconds = DefaultPollTimeoutSeconds
	}
	if c.ExcelThreshold == 0 {
		c.ExcelThreshold = DefaultExcelThreshold
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = DefaultStorageBackend
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = DefaultDataDir
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = DefaultSQLitePath
	}
	if c.Matching.Policy == "" {
		c.Matching.Policy = DefaultMatchingPolicy
	}
	if c.Health.Host == "" {
		c.Health.Host = DefaultHealthHost
	}
	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}
	if c.Health.ShutdownTimeoutSeconds == 0 {
		c.Health.ShutdownTimeoutSeconds = DefaultShutdownTimeoutSeconds
	}
	if c.Render.Keyword == 0 {
		c.Render.Keyword = DefaultKeywordColumnWidth
	}
	if c.Render.Response == 0 {
		c.Render.Response = DefaultResponseColumnWidth
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

// HealthAddress возвращает адрес HTTP-сервера в формате "host:port".
func (c *BotConfig) HealthAddress() string {
	return fmt.Sprintf("%s:%d", c.Health.Host, c.Health.Port)
}

// Validate проверяет корректность конфигурации бота.
func (c *BotConfig) Validate() error {
	if c.Token == "" || c.Token == "YOUR_TELEGRAM_BOT_TOKEN" {
		return fmt.Errorf("bot.token is not configured")
	}
	if len(c.BootstrapAdmins) == 0 {
		return fmt.Errorf("bot.bootstrap_admins must contain at least one user id")
	}
	if c.PollTimeoutSeconds <= 0 {
		return fmt.Errorf("bot.poll_timeout_seconds must be positive")
	}
	if c.ExcelThreshold <= 0 {
		return fmt.Errorf("bot.excel_threshold must be positive")
	}

	switch c.Storage.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("bot.storage.backend must be one of: file, sqlite")
	}

	switch c.Matching.Policy {
	case "fuzzy", "strict":
	default:
		return fmt.Errorf("bot.matching.policy must be one of: fuzzy, strict")
	}

	if c.Health.Enabled {
		if c.Health.Port <= 0 || c.Health.Port > 65535 {
			return fmt.Errorf("bot.health.port must be a valid port number (1-65535)")
		}
		if c.Health.ShutdownTimeoutSeconds <= 0 {
			return fmt.Errorf("bot.health.shutdown_timeout_seconds must be positive")
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("bot.logging.level must be one of: debug, info, warn, error")
	}

	return nil
}
