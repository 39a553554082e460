// Package log содержит обвязку вокруг slog: маскировку токена бота
// в логах и адаптер логгера для библиотеки go-telegram-bot-api.
package log

import (
	"context"
	"log/slog"
	"regexp"
)

// Токен в формате bot<ID>:<секрет> попадает в логи вместе с URL запросов
// к Bot API, поэтому маскируем его на уровне обработчика.
var botTokenRe = regexp.MustCompile(`\bbot\d+:[A-Za-z0-9_-]{35,}`)

const tokenMask = "bot***:***masked-token***"

func maskTokens(s string) string {
	return botTokenRe.ReplaceAllString(s, tokenMask)
}

// MaskHandler — обертка slog.Handler, маскирующая токен бота в сообщении
// и во всех строковых атрибутах записи.
type MaskHandler struct {
	inner slog.Handler
}

// NewMaskedLogger оборачивает handler маскировкой и возвращает готовый логгер.
func NewMaskedLogger(handler slog.Handler) *slog.Logger {
	return slog.New(&MaskHandler{inner: handler})
}

func (h *MaskHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *MaskHandler) Handle(ctx context.Context, record slog.Record) error {
	// Собираем запись заново: оригинальную slog может переиспользовать,
	// а Clone сохранил бы немаскированные атрибуты.
	r := slog.NewRecord(record.Time, record.Level, maskTokens(record.Message), record.PC)

	record.Attrs(func(a slog.Attr) bool {
		r.AddAttrs(slog.Attr{Key: a.Key, Value: maskValue(a.Value)})
		return true
	})

	return h.inner.Handle(ctx, r)
}

func (h *MaskHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = slog.Attr{Key: a.Key, Value: maskValue(a.Value)}
	}
	return &MaskHandler{inner: h.inner.WithAttrs(masked)}
}

func (h *MaskHandler) WithGroup(name string) slog.Handler {
	return &MaskHandler{inner: h.inner.WithGroup(name)}
}

func maskValue(v slog.Value) slog.Value {
	switch v.Kind() {
	case slog.KindString:
		return slog.StringValue(maskTokens(v.String()))
	case slog.KindAny:
		// Ошибки сетевого слоя несут URL с токеном внутри текста.
		if err, ok := v.Any().(error); ok {
			return slog.StringValue(maskTokens(err.Error()))
		}
		return v
	case slog.KindGroup:
		group := v.Group()
		masked := make([]slog.Attr, len(group))
		for i, a := range group {
			masked[i] = slog.Attr{Key: a.Key, Value: maskValue(a.Value)}
		}
		return slog.GroupValue(masked...)
	default:
		return v
	}
}
