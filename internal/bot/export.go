package bot

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xuri/excelize/v2"

	"telegram-keyword-bot/internal/domain"
)

// handleExport выгружает правила области Excel-файлом.
func (b *Bot) handleExport(ctx context.Context, msg *tgbotapi.Message) {
	if !b.requireAdmin(ctx, msg) {
		return
	}

	entries, err := b.store.List(ctx, scopeID(msg.Chat.ID))
	if err != nil {
		b.logger.Error("failed to list rules for export", slog.String("error", err.Error()))
		b.reply(msg.Chat.ID, "⚠️ Не удалось прочитать список ключей.")
		return
	}
	if len(entries) == 0 {
		b.reply(msg.Chat.ID, "❌ В этом чате нет ни одного ключа.")
		return
	}

	b.sendExcel(msg.Chat.ID, entries)
}

// sendExcel формирует книгу и отправляет ее документом.
func (b *Bot) sendExcel(chatID int64, entries []domain.Entry) {
	buf, err := buildRulesWorkbook(entries)
	if err != nil {
		b.logger.Error("failed to build excel file", slog.String("error", err.Error()))
		b.reply(chatID, "⚠️ Не удалось сформировать Excel-файл.")
		return
	}

	fileName := fmt.Sprintf("keyword_rules_%s.xlsx", time.Now().Format("2006-01-02_15-04-05"))
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  fileName,
		Bytes: buf.Bytes(),
	})
	doc.Caption = fmt.Sprintf("Выгрузка завершена. Ключей: %d.", len(entries))
	b.send(doc)
}

// buildRulesWorkbook собирает xlsx со всеми правилами в порядке вставки.
func buildRulesWorkbook(entries []domain.Entry) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheetName = "Ключи"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	headers := []string{"Ключ", "Ответ", "Кнопка", "Ссылка", "Медиа", "ID правила"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to compute header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, e := range entries {
		row := i + 2
		var btnLabel, btnURL, media string
		if e.Rule.Button != nil {
			btnLabel, btnURL = e.Rule.Button.Label, e.Rule.Button.URL
		}
		if e.Rule.Media != nil {
			media = string(e.Rule.Media.Kind)
		}
		values := []interface{}{e.Form, ruleSummary(e.Rule), btnLabel, btnURL, media, e.Rule.ID}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, fmt.Errorf("failed to compute cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, fmt.Errorf("failed to write row: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write excel to buffer: %w", err)
	}
	return &buf, nil
}
