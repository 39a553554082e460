package bot

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mattn/go-runewidth"

	"telegram-keyword-bot/cmd/bot/config"
	"telegram-keyword-bot/internal/domain"
)

// Лимит Telegram на длину одного сообщения.
const maxMessageLen = 4096

// handleList показывает правила области. Небольшие наборы рендерятся
// выровненной таблицей, большие уходят Excel-файлом через /export.
func (b *Bot) handleList(ctx context.Context, msg *tgbotapi.Message) {
	entries, err := b.store.List(ctx, scopeID(msg.Chat.ID))
	if err != nil {
		b.logger.Error("failed to list rules", slog.String("error", err.Error()))
		b.reply(msg.Chat.ID, "⚠️ Не удалось прочитать список ключей.")
		return
	}
	if len(entries) == 0 {
		b.reply(msg.Chat.ID, "❌ В этом чате нет ни одного ключа.")
		return
	}

	if len(entries) >= b.cfg.ExcelThreshold {
		b.reply(msg.Chat.ID, fmt.Sprintf("Ключей слишком много (%d), отправляю файлом...", len(entries)))
		b.sendExcel(msg.Chat.ID, entries)
		return
	}

	text := formatRuleTable(entries, b.cfg.Render)
	if len(text) > maxMessageLen {
		b.logger.Warn("list table too long, falling back to excel", slog.Int("length", len(text)))
		b.sendExcel(msg.Chat.ID, entries)
		return
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ParseMode = tgbotapi.ModeHTML
	b.send(reply)
}

// formatRuleTable строит таблицу "ключ | ответ" в <pre><code>, выравнивая
// колонки по runewidth и перенося длинные значения на следующие строки.
func formatRuleTable(entries []domain.Entry, widths config.ColumnWidths) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🎬 Ключей в чате: %d\n", len(entries)))
	sb.WriteString("<pre><code>")

	kwWidth := widths.Keyword
	respWidth := widths.Response

	writeRow := func(kw, resp string) {
		kwLines := wrapString(kw, kwWidth)
		respLines := wrapString(resp, respWidth)

		maxLines := len(kwLines)
		if len(respLines) > maxLines {
			maxLines = len(respLines)
		}
		for i := 0; i < maxLines; i++ {
			var kwPart, respPart string
			if i < len(kwLines) {
				kwPart = kwLines[i]
			}
			if i < len(respLines) {
				respPart = respLines[i]
			}
			sb.WriteString(fmt.Sprintf("| %s%s | %s%s |\n",
				kwPart, padding(kwPart, kwWidth),
				respPart, padding(respPart, respWidth)))
		}
	}

	writeRow("Ключ", "Ответ")
	sb.WriteString(fmt.Sprintf("|%s|%s|\n",
		strings.Repeat("-", kwWidth+2),
		strings.Repeat("-", respWidth+2)))

	for _, e := range entries {
		writeRow(html.EscapeString(e.Form), html.EscapeString(ruleSummary(e.Rule)))
	}

	sb.WriteString("</code></pre>")
	return sb.String()
}

// ruleSummary — короткое описание правила для таблицы: ссылка кнопки,
// либо первая строка собственного текста, либо пометка про шаблон.
func ruleSummary(rule domain.Rule) string {
	if rule.Response != "" {
		return strings.SplitN(rule.Response, "\n", 2)[0]
	}
	if rule.Button != nil {
		return rule.Button.URL
	}
	return "(шаблон по умолчанию)"
}

// padding добивает строку пробелами до ширины колонки с учетом
// реальной ширины рун.
func padding(s string, colWidth int) string {
	n := colWidth - runewidth.StringWidth(s)
	if n > 0 {
		return strings.Repeat(" ", n)
	}
	return ""
}

// wrapString переносит строку по словам в колонку заданной ширины.
// Слово длиннее колонки режется посередине.
func wrapString(s string, width int) []string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return []string{s}
	}

	var lines []string
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{s}
	}

	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
	}

	for _, word := range words {
		if runewidth.StringWidth(word) > width {
			flush()
			lines = append(lines, chopRunes(word, width)...)
			continue
		}
		lineWidth := runewidth.StringWidth(current.String())
		if lineWidth > 0 && lineWidth+1+runewidth.StringWidth(word) > width {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	flush()

	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}

// chopRunes режет слово на куски не шире width.
func chopRunes(word string, width int) []string {
	var parts []string
	runes := []rune(word)
	for len(runes) > 0 {
		i, w := 0, 0
		for i < len(runes) {
			rw := runewidth.RuneWidth(runes[i])
			if w+rw > width {
				break
			}
			w += rw
			i++
		}
		if i == 0 {
			i = 1
		}
		parts = append(parts, string(runes[:i]))
		runes = runes[i:]
	}
	return parts
}
