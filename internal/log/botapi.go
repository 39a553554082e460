package log

import (
	"fmt"
	"log/slog"
	"strings"
)

// BotAPIAdapter подгоняет slog.Logger под интерфейс tgbotapi.BotLogger.
// Сообщения библиотеки проходят через общий маскировщик токена.
type BotAPIAdapter struct {
	Logger *slog.Logger
}

func (a *BotAPIAdapter) Println(v ...interface{}) {
	a.Logger.Info(strings.TrimSpace(fmt.Sprintln(v...)))
}

func (a *BotAPIAdapter) Printf(format string, v ...interface{}) {
	a.Logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
