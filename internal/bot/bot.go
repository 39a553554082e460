package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-keyword-bot/cmd/bot/config"
	"telegram-keyword-bot/internal/domain"
	botlog "telegram-keyword-bot/internal/log"
	"telegram-keyword-bot/internal/matcher"
	"telegram-keyword-bot/internal/storage"
)

// Bot представляет собой основной объект Telegram-бота: принимает
// обновления, гоняет сообщения через матчер и исполняет админские команды.
type Bot struct {
	api    *tgbotapi.BotAPI
	cfg    config.BotConfig
	store  storage.Store
	match  *matcher.Matcher
	logger *slog.Logger

	// Ожидание медиа после /photo: user_id -> chat_id, куда привязать.
	mu           sync.Mutex
	pendingMedia map[int64]int64

	// Шов для тестов: в проде это api.Send.
	sendMessageFunc func(msg tgbotapi.Chattable) (tgbotapi.Message, error)
}

// NewBot создает и инициализирует новый экземпляр бота.
func NewBot(cfg config.BotConfig, store storage.Store, m *matcher.Matcher, logger *slog.Logger) (*Bot, error) {
	if err := tgbotapi.SetLogger(&botlog.BotAPIAdapter{Logger: logger}); err != nil {
		return nil, fmt.Errorf("failed to set bot api logger: %w", err)
	}

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot api: %w", err)
	}

	logger.Info("Authorized on account", slog.String("username", api.Self.UserName))

	b := &Bot{
		api:          api,
		cfg:          cfg,
		store:        store,
		match:        m,
		logger:       logger,
		pendingMedia: make(map[int64]int64),
	}
	b.sendMessageFunc = api.Send
	return b, nil
}

// Start запускает основной цикл обработки обновлений от Telegram.
// Одно обновление обрабатывается целиком до следующего: мутации хранилища
// в пределах области сериализуются самим циклом.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.PollTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Context cancelled, stopping bot...")
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	switch {
	case msg.IsCommand():
		b.handleCommand(ctx, msg)
	case len(msg.Photo) > 0 || msg.Animation != nil:
		b.handleIncomingMedia(ctx, msg)
	case msg.Text != "":
		b.handleText(ctx, msg)
	}
}

// handleText — горячий путь: свободный текст против набора правил области.
func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	scope := scopeID(msg.Chat.ID)

	entries, err := b.store.List(ctx, scope)
	if err != nil {
		b.logger.Error("failed to load rules", slog.String("scope", scope), slog.String("error", err.Error()))
		return
	}
	if len(entries) == 0 {
		return
	}

	entry, ok := b.match.Match(entries, msg.Text)
	if !ok {
		// Обычное сообщение без ключей — молчим, это группа.
		return
	}

	b.logger.Info("rule matched",
		slog.String("scope", scope),
		slog.String("form", entry.Form),
		slog.String("rule_id", entry.Rule.ID))

	binding := b.mediaBinding(ctx, scope)
	payload := Render(b.cfg.WelcomeTemplate, entry.Rule, binding, msg.From)
	b.sendPayload(msg.Chat.ID, payload)
}

// mediaBinding возвращает привязку области или nil, если ее нет.
func (b *Bot) mediaBinding(ctx context.Context, scope string) *domain.MediaRef {
	ref, err := b.store.MediaBinding(ctx, scope)
	if err != nil {
		return nil
	}
	return ref
}

func (b *Bot) send(msg tgbotapi.Chattable) {
	if _, err := b.sendMessageFunc(msg); err != nil {
		b.logger.Error("failed to send message", slog.String("error", err.Error()))
	}
}

// reply отправляет простой текстовый ответ в чат.
func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

// sendPayload превращает собранный ответ в конкретный вид сообщения Telegram.
func (b *Bot) sendPayload(chatID int64, p domain.ReplyPayload) {
	var markup interface{}
	if p.Button != nil {
		markup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL(p.Button.Label, p.Button.URL),
			),
		)
	}

	switch {
	case p.Media != nil && p.Media.Kind == domain.MediaAnimation:
		m := tgbotapi.NewAnimation(chatID, tgbotapi.FileID(p.Media.FileID))
		m.Caption = p.Text
		m.ParseMode = tgbotapi.ModeMarkdown
		if markup != nil {
			m.ReplyMarkup = markup
		}
		b.send(m)
	case p.Media != nil:
		m := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(p.Media.FileID))
		m.Caption = p.Text
		m.ParseMode = tgbotapi.ModeMarkdown
		if markup != nil {
			m.ReplyMarkup = markup
		}
		b.send(m)
	default:
		m := tgbotapi.NewMessage(chatID, p.Text)
		m.ParseMode = tgbotapi.ModeMarkdown
		if markup != nil {
			m.ReplyMarkup = markup
		}
		b.send(m)
	}
}

func scopeID(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}
