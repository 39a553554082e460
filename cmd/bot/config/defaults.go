package config

// Значения по умолчанию.
const (
	DefaultWelcomeTemplate = "🔥 Добро пожаловать, {mention}! 🔥\n" +
		"Напиши название любимого тайтла — и смотри прямо сейчас 🍿"
	DefaultButtonLabel        = "📥 WATCH & DOWNLOAD 📥"
	DefaultPollTimeoutSeconds = 60
	DefaultExcelThreshold     = 30

	DefaultStorageBackend = "file"
	DefaultDataDir        = "data"
	DefaultSQLitePath     = "data/rules.db"

	DefaultMatchingPolicy = "fuzzy"

	DefaultHealthHost             = "0.0.0.0"
	DefaultHealthPort             = 8080
	DefaultShutdownTimeoutSeconds = 15

	DefaultKeywordColumnWidth  = 22
	DefaultResponseColumnWidth = 40

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)
