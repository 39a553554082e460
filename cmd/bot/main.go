package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telegram-keyword-bot/cmd/bot/config"
	"telegram-keyword-bot/internal/bot"
	botlog "telegram-keyword-bot/internal/log"
	"telegram-keyword-bot/internal/matcher"
	"telegram-keyword-bot/internal/server"
	"telegram-keyword-bot/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run инкапсулирует всю логику инициализации и запуска приложения.
func run() error {
	// 1. Конфигурация
	cfg, err := config.LoadBotConfig("bot_config.yml")
	if err != nil {
		return fmt.Errorf("failed to load bot config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("failed to validate bot config: %w", err)
	}

	// 2. Логгер с маскировкой токена
	var level slog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	switch cfg.Logging.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	default:
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	logger := botlog.NewMaskedLogger(handler)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Хранилище
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("failed to close store", slog.String("error", err.Error()))
		}
	}()

	// 4. Бот
	m := matcher.New(matcher.Policy(cfg.Matching.Policy))
	b, err := bot.NewBot(*cfg, store, m, logger.With(slog.String("component", "bot")))
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}

	// 5. HTTP-сервер для keep-alive пингеров
	var healthSrv *server.Server
	if cfg.Health.Enabled {
		healthSrv = server.New(cfg.HealthAddress(), cfg.Storage.Backend, store,
			logger.With(slog.String("component", "health")))
		go func() {
			if err := healthSrv.Start(); err != nil {
				slog.Error("health server failed", slog.String("error", err.Error()))
			}
		}()
	}

	slog.Info("Bot created successfully, starting...")
	go b.Start(ctx)

	<-ctx.Done()

	slog.Info("Shutting down...")
	if healthSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			time.Duration(cfg.Health.ShutdownTimeoutSeconds)*time.Second)
		defer cancel()
		if err := healthSrv.Shutdown(shutdownCtx); err != nil {
			slog.Error("health server shutdown failed", slog.String("error", err.Error()))
		}
	}

	slog.Info("Bot stopped gracefully")
	return nil
}

// openStore открывает выбранный конфигурацией бэкенд хранилища.
func openStore(ctx context.Context, cfg *config.BotConfig, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		store, err := storage.NewSQLStore(cfg.Storage.SQLitePath, cfg.BootstrapAdmins)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return store, nil
	default:
		store, err := storage.NewFileStore(cfg.Storage.DataDir, cfg.BootstrapAdmins,
			logger.With(slog.String("component", "storage")))
		if err != nil {
			return nil, fmt.Errorf("failed to open file store: %w", err)
		}
		if cfg.Storage.WatchFiles {
			if err := store.Watch(ctx); err != nil {
				return nil, fmt.Errorf("failed to start store watcher: %w", err)
			}
		}
		return store, nil
	}
}
