package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-keyword-bot/internal/compiler"
	"telegram-keyword-bot/internal/domain"
)

const (
	startCommand       = "start"
	bulkAddCommand     = "rs"
	filterCommand      = "filter"
	listCommand        = "list"
	exportCommand      = "export"
	deleteCommand      = "delfilter"
	clearCommand       = "clear"
	photoCommand       = "photo"
	removePhotoCommand = "removephoto"
	addAdminCommand    = "addadmin"
)

const startReply = "👋 Привет! Я бот-автоответчик по ключевым словам.\n\n" +
	"Добавить сразу несколько ключей:\n" +
	"/rs\n" +
	"[Naruto] https://link1\n" +
	"[One Piece, OP] https://link2\n\n" +
	"Добавить ключ с собственным текстом ответа:\n" +
	"/filter (Bleach) Держи ссылку! Button: Смотреть | https://link3\n\n" +
	"📋 /list — список ключей\n" +
	"📊 /export — выгрузка в Excel\n" +
	"🗑 /delfilter ключ — удалить ключ\n" +
	"📸 /photo — привязать фото или GIF к ответам\n" +
	"👑 /addadmin user_id — добавить админа"

// handleCommand обрабатывает команды.
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case startCommand:
		b.reply(msg.Chat.ID, startReply)
	case bulkAddCommand:
		b.handleBulkAdd(ctx, msg)
	case filterCommand:
		b.handleFilter(ctx, msg)
	case listCommand:
		b.handleList(ctx, msg)
	case exportCommand:
		b.handleExport(ctx, msg)
	case deleteCommand:
		b.handleDelete(ctx, msg)
	case clearCommand:
		b.handleClear(ctx, msg)
	case photoCommand:
		b.handleSetPhoto(ctx, msg)
	case removePhotoCommand:
		b.handleRemovePhoto(ctx, msg)
	case addAdminCommand:
		b.handleAddAdmin(ctx, msg)
	default:
		b.reply(msg.Chat.ID, "Я не знаю такой команды.")
	}
}

// authorize проверяет права отправителя на команды записи.
func (b *Bot) authorize(ctx context.Context, userID int64) error {
	ok, err := b.store.IsAdmin(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to check admin: %w", err)
	}
	if !ok {
		return domain.ErrPermissionDenied
	}
	return nil
}

// requireAdmin переводит отказ authorize в ответ пользователю.
// Хранилище при отказе не трогается.
func (b *Bot) requireAdmin(ctx context.Context, msg *tgbotapi.Message) bool {
	switch err := b.authorize(ctx, msg.From.ID); {
	case err == nil:
		return true
	case errors.Is(err, domain.ErrPermissionDenied):
		b.reply(msg.Chat.ID, "❌ Эта команда доступна только админам.")
	default:
		b.logger.Error("admin check failed", slog.String("error", err.Error()))
		b.reply(msg.Chat.ID, "⚠️ Не удалось проверить права, попробуйте еще раз.")
	}
	return false
}

// handleBulkAdd — bracket-форма: каждая строка после команды содержит
// "[метка, метка] ссылка".
func (b *Bot) handleBulkAdd(ctx context.Context, msg *tgbotapi.Message) {
	if !b.requireAdmin(ctx, msg) {
		return
	}

	parts := strings.SplitN(msg.Text, "\n", 2)
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		b.reply(msg.Chat.ID, "Использование:\n/rs\n[Keyword] ссылка\n[Another, Alias] ссылка")
		return
	}

	res := compiler.CompileBracket(parts[1], b.cfg.ButtonLabel)
	b.storeCompiled(ctx, msg, res)
}

// handleFilter — paren-форма: "(метка) текст ответа", блоки делятся по
// каждому вхождению команды. Медиа берется из сообщения, на которое ответили.
func (b *Bot) handleFilter(ctx context.Context, msg *tgbotapi.Message) {
	if !b.requireAdmin(ctx, msg) {
		return
	}

	body := msg.CommandArguments()
	if strings.TrimSpace(body) == "" {
		b.reply(msg.Chat.ID, "Использование: /filter (Keyword) текст ответа\nButton: подпись | https://ссылка — опционально.")
		return
	}

	res := compiler.CompileParen(body, "/"+msg.Command(), replyMedia(msg.ReplyToMessage))
	b.storeCompiled(ctx, msg, res)
}

// storeCompiled записывает разобранные правила по одному: дубликат ключа
// внутри одной команды перезаписывает более ранний.
func (b *Bot) storeCompiled(ctx context.Context, msg *tgbotapi.Message, res compiler.Result) {
	scope := scopeID(msg.Chat.ID)
	added := 0
	skipped := res.Skipped

	for _, c := range res.Rules {
		for _, form := range c.Forms {
			err := b.store.Upsert(ctx, scope, form, c.Rule)
			switch {
			case errors.Is(err, domain.ErrEmptyKeyword):
				skipped++
			case err != nil:
				b.logger.Error("failed to store rule",
					slog.String("scope", scope),
					slog.String("form", form),
					slog.String("error", err.Error()))
				b.reply(msg.Chat.ID, "⚠️ Ошибка записи на диск, правило не сохранено. Повторите команду.")
				return
			default:
				added++
			}
		}
	}

	if added == 0 {
		b.reply(msg.Chat.ID, "❌ 0 ключей добавлено: ни один блок не разобран. Проверьте формат.")
		return
	}
	text := fmt.Sprintf("✅ Сохранено ключей: %d", added)
	if skipped > 0 {
		text += fmt.Sprintf(" (пропущено некорректных: %d)", skipped)
	}
	b.reply(msg.Chat.ID, text)
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) {
	if !b.requireAdmin(ctx, msg) {
		return
	}

	form := strings.TrimSpace(msg.CommandArguments())
	if form == "" {
		b.reply(msg.Chat.ID, "Использование: /delfilter keyword")
		return
	}

	err := b.store.Delete(ctx, scopeID(msg.Chat.ID), form)
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrEmptyKeyword):
		b.reply(msg.Chat.ID, "❌ Такой ключ не найден.")
	case err != nil:
		b.logger.Error("failed to delete rule", slog.String("error", err.Error()))
		b.reply(msg.Chat.ID, "⚠️ Ошибка записи на диск, удаление не выполнено.")
	default:
		b.reply(msg.Chat.ID, fmt.Sprintf("✅ Ключ '%s' удален.", strings.ToLower(form)))
	}
}

func (b *Bot) handleClear(ctx context.Context, msg *tgbotapi.Message) {
	if !b.requireAdmin(ctx, msg) {
		return
	}

	count, err := b.store.Clear(ctx, scopeID(msg.Chat.ID))
	if err != nil {
		b.logger.Error("failed to clear rules", slog.String("error", err.Error()))
		b.reply(msg.Chat.ID, "⚠️ Ошибка записи на диск, очистка не выполнена.")
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("✅ Все ключи удалены. Всего: %d", count))
}

// handleSetPhoto взводит ожидание: следующее фото или GIF от этого админа
// станет привязкой медиа текущего чата.
func (b *Bot) handleSetPhoto(ctx context.Context, msg *tgbotapi.Message) {
	if !b.requireAdmin(ctx, msg) {
		return
	}

	b.mu.Lock()
	b.pendingMedia[msg.From.ID] = msg.Chat.ID
	b.mu.Unlock()

	b.reply(msg.Chat.ID, "📸 Теперь пришлите фото или GIF...")
}

// handleIncomingMedia завершает сценарий /photo. Медиа от пользователей
// без взведенного ожидания игнорируется: в группах картинок много.
func (b *Bot) handleIncomingMedia(ctx context.Context, msg *tgbotapi.Message) {
	b.mu.Lock()
	chatID, waiting := b.pendingMedia[msg.From.ID]
	if waiting {
		delete(b.pendingMedia, msg.From.ID)
	}
	b.mu.Unlock()
	if !waiting {
		return
	}

	ref := messageMedia(msg)
	if ref == nil {
		b.reply(msg.Chat.ID, "❌ Нужно фото или GIF.")
		return
	}

	if err := b.store.SetMediaBinding(ctx, scopeID(chatID), *ref); err != nil {
		b.logger.Error("failed to set media binding", slog.String("error", err.Error()))
		b.reply(msg.Chat.ID, "⚠️ Ошибка записи на диск, медиа не сохранено.")
		return
	}
	b.reply(msg.Chat.ID, "✅ Фото/GIF сохранено и будет прикрепляться к ответам.")
}

func (b *Bot) handleRemovePhoto(ctx context.Context, msg *tgbotapi.Message) {
	if !b.requireAdmin(ctx, msg) {
		return
	}

	err := b.store.RemoveMediaBinding(ctx, scopeID(msg.Chat.ID))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		b.reply(msg.Chat.ID, "❌ Для этого чата медиа не задано.")
	case err != nil:
		b.logger.Error("failed to remove media binding", slog.String("error", err.Error()))
		b.reply(msg.Chat.ID, "⚠️ Ошибка записи на диск, медиа не удалено.")
	default:
		b.reply(msg.Chat.ID, "✅ Фото/GIF отвязано.")
	}
}

func (b *Bot) handleAddAdmin(ctx context.Context, msg *tgbotapi.Message) {
	if !b.requireAdmin(ctx, msg) {
		return
	}

	arg := strings.TrimSpace(msg.CommandArguments())
	userID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		b.reply(msg.Chat.ID, "Использование: /addadmin user_id")
		return
	}

	err = b.store.AddAdmin(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrAlreadyAdmin):
		b.reply(msg.Chat.ID, "❌ Этот пользователь уже админ.")
	case err != nil:
		b.logger.Error("failed to add admin", slog.String("error", err.Error()))
		b.reply(msg.Chat.ID, "⚠️ Ошибка записи на диск, админ не добавлен.")
	default:
		b.reply(msg.Chat.ID, fmt.Sprintf("✅ Новый админ добавлен: %d", userID))
	}
}

// replyMedia извлекает медиа из сообщения, на которое ответили командой.
func replyMedia(msg *tgbotapi.Message) *domain.MediaRef {
	if msg == nil {
		return nil
	}
	return messageMedia(msg)
}

// messageMedia возвращает file_id фото (самого крупного размера) или GIF.
func messageMedia(msg *tgbotapi.Message) *domain.MediaRef {
	switch {
	case len(msg.Photo) > 0:
		return &domain.MediaRef{
			FileID: msg.Photo[len(msg.Photo)-1].FileID,
			Kind:   domain.MediaPhoto,
		}
	case msg.Animation != nil:
		return &domain.MediaRef{
			FileID: msg.Animation.FileID,
			Kind:   domain.MediaAnimation,
		}
	default:
		return nil
	}
}
