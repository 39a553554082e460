package bot

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-keyword-bot/cmd/bot/config"
	"telegram-keyword-bot/internal/domain"
	"telegram-keyword-bot/internal/matcher"
	"telegram-keyword-bot/internal/storage"
)

const adminID int64 = 100

// newTestBot собирает бота поверх настоящего файлового хранилища, подменяя
// только отправку сообщений.
func newTestBot(t *testing.T) (*Bot, *[]tgbotapi.Chattable) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := storage.NewFileStore(t.TempDir(), []int64{adminID}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	b := &Bot{
		cfg: config.BotConfig{
			WelcomeTemplate: "Привет, {mention}! Держи ссылку.",
			ButtonLabel:     "📥 WATCH & DOWNLOAD 📥",
			ExcelThreshold:  30,
			Render:          config.ColumnWidths{Keyword: 22, Response: 40},
		},
		store:        store,
		match:        matcher.New(matcher.PolicyFuzzy),
		logger:       logger,
		pendingMedia: make(map[int64]int64),
	}

	sent := &[]tgbotapi.Chattable{}
	b.sendMessageFunc = func(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
		*sent = append(*sent, msg)
		return tgbotapi.Message{}, nil
	}
	return b, sent
}

// commandMsg строит сообщение-команду с корректной entity bot_command.
func commandMsg(text string, chatID, userID int64) *tgbotapi.Message {
	cmdLen := len(text)
	if i := strings.IndexAny(text, " \n"); i != -1 {
		cmdLen = i
	}
	return &tgbotapi.Message{
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
		Chat:     &tgbotapi.Chat{ID: chatID},
		From:     &tgbotapi.User{ID: userID, UserName: "tester"},
	}
}

func textMsg(text string, chatID, userID int64) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{ID: userID, UserName: "tester"},
	}
}

func lastMessageText(t *testing.T, sent *[]tgbotapi.Chattable) string {
	t.Helper()
	require.NotEmpty(t, *sent)
	msg, ok := (*sent)[len(*sent)-1].(tgbotapi.MessageConfig)
	require.True(t, ok, "last sent item is not a text message: %T", (*sent)[len(*sent)-1])
	return msg.Text
}

func TestBot_NonAdminIsRejected(t *testing.T) {
	ctx := context.Background()
	b, sent := newTestBot(t)

	b.handleMessage(ctx, commandMsg("/rs\n[Naruto] https://example.com", 10, 999))

	assert.Contains(t, lastMessageText(t, sent), "только админам")

	// Хранилище не тронуто.
	entries, err := b.store.List(ctx, "10")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBot_BulkAdd(t *testing.T) {
	ctx := context.Background()

	t.Run("stores rules and reports count", func(t *testing.T) {
		b, sent := newTestBot(t)

		b.handleMessage(ctx, commandMsg(
			"/rs\n[Naruto, Naruto Shippuden] https://example.com/naruto\n[One Piece] https://example.com/op",
			10, adminID))

		assert.Equal(t, "✅ Сохранено ключей: 3", lastMessageText(t, sent))

		entries, err := b.store.List(ctx, "10")
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, "naruto", entries[0].Form)
		require.NotNil(t, entries[0].Rule.Button)
		assert.Equal(t, "📥 WATCH & DOWNLOAD 📥", entries[0].Rule.Button.Label)
		// Алиасы одной строки разделяют одно правило.
		assert.Equal(t, entries[0].Rule.ID, entries[1].Rule.ID)
		assert.NotEqual(t, entries[0].Rule.ID, entries[2].Rule.ID)
	})

	t.Run("reports skipped malformed lines", func(t *testing.T) {
		b, sent := newTestBot(t)

		b.handleMessage(ctx, commandMsg(
			"/rs\n[Naruto] https://example.com\nстрока без формата",
			10, adminID))

		assert.Equal(t, "✅ Сохранено ключей: 1 (пропущено некорректных: 1)", lastMessageText(t, sent))
	})

	t.Run("nothing parsed yields explicit zero", func(t *testing.T) {
		b, sent := newTestBot(t)

		b.handleMessage(ctx, commandMsg("/rs\nмусор без скобок", 10, adminID))

		assert.Contains(t, lastMessageText(t, sent), "0 ключей добавлено")
	})

	t.Run("empty body shows usage", func(t *testing.T) {
		b, sent := newTestBot(t)

		b.handleMessage(ctx, commandMsg("/rs", 10, adminID))

		assert.Contains(t, lastMessageText(t, sent), "Использование")
	})
}

func TestBot_Filter(t *testing.T) {
	ctx := context.Background()

	t.Run("paren form with button", func(t *testing.T) {
		b, sent := newTestBot(t)

		b.handleMessage(ctx, commandMsg(
			"/filter (One Piece) Вот ссылка Button: Смотреть | https://example.com/op",
			10, adminID))

		assert.Equal(t, "✅ Сохранено ключей: 1", lastMessageText(t, sent))

		entries, err := b.store.List(ctx, "10")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "one piece", entries[0].Form)
		assert.Equal(t, "Вот ссылка", entries[0].Rule.Response)
		require.NotNil(t, entries[0].Rule.Button)
		assert.Equal(t, "https://example.com/op", entries[0].Rule.Button.URL)
	})

	t.Run("media from replied message attaches to rule", func(t *testing.T) {
		b, _ := newTestBot(t)

		msg := commandMsg("/filter (naruto) Ответ", 10, adminID)
		msg.ReplyToMessage = &tgbotapi.Message{
			Photo: []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}},
		}
		b.handleMessage(ctx, msg)

		entries, err := b.store.List(ctx, "10")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.NotNil(t, entries[0].Rule.Media)
		// Берется самый крупный размер фото.
		assert.Equal(t, "large", entries[0].Rule.Media.FileID)
		assert.Equal(t, domain.MediaPhoto, entries[0].Rule.Media.Kind)
	})
}

func TestBot_DeleteAndClear(t *testing.T) {
	ctx := context.Background()

	t.Run("delete existing and missing", func(t *testing.T) {
		b, sent := newTestBot(t)
		require.NoError(t, b.store.Upsert(ctx, "10", "naruto", domain.Rule{ID: "r1"}))

		b.handleMessage(ctx, commandMsg("/delfilter Naruto", 10, adminID))
		assert.Contains(t, lastMessageText(t, sent), "удален")

		b.handleMessage(ctx, commandMsg("/delfilter Naruto", 10, adminID))
		assert.Contains(t, lastMessageText(t, sent), "не найден")
	})

	t.Run("clear reports count", func(t *testing.T) {
		b, sent := newTestBot(t)
		require.NoError(t, b.store.Upsert(ctx, "10", "naruto", domain.Rule{ID: "r1"}))
		require.NoError(t, b.store.Upsert(ctx, "10", "bleach", domain.Rule{ID: "r2"}))

		b.handleMessage(ctx, commandMsg("/clear", 10, adminID))
		assert.Contains(t, lastMessageText(t, sent), "Всего: 2")
	})
}

func TestBot_TextMatching(t *testing.T) {
	ctx := context.Background()

	t.Run("matched keyword sends templated reply with button", func(t *testing.T) {
		b, sent := newTestBot(t)
		require.NoError(t, b.store.Upsert(ctx, "10", "naruto", domain.Rule{
			ID:     "r1",
			Button: &domain.Button{Label: "Смотреть", URL: "https://example.com"},
		}))

		b.handleMessage(ctx, textMsg("хочу посмотреть naruto", 10, 999))

		require.Len(t, *sent, 1)
		msg, ok := (*sent)[0].(tgbotapi.MessageConfig)
		require.True(t, ok)
		assert.Equal(t, "Привет, @tester! Держи ссылку.", msg.Text)
		require.NotNil(t, msg.ReplyMarkup)
	})

	t.Run("no match stays silent", func(t *testing.T) {
		b, sent := newTestBot(t)
		require.NoError(t, b.store.Upsert(ctx, "10", "naruto", domain.Rule{ID: "r1"}))

		b.handleMessage(ctx, textMsg("просто болтаем", 10, 999))
		assert.Empty(t, *sent)
	})

	t.Run("rules of another chat do not leak", func(t *testing.T) {
		b, sent := newTestBot(t)
		require.NoError(t, b.store.Upsert(ctx, "20", "naruto", domain.Rule{ID: "r1"}))

		b.handleMessage(ctx, textMsg("naruto", 10, 999))
		assert.Empty(t, *sent)
	})

	t.Run("chat media binding turns reply into photo", func(t *testing.T) {
		b, sent := newTestBot(t)
		require.NoError(t, b.store.Upsert(ctx, "10", "naruto", domain.Rule{ID: "r1"}))
		require.NoError(t, b.store.SetMediaBinding(ctx, "10",
			domain.MediaRef{FileID: "chat-photo", Kind: domain.MediaPhoto}))

		b.handleMessage(ctx, textMsg("naruto", 10, 999))

		require.Len(t, *sent, 1)
		photo, ok := (*sent)[0].(tgbotapi.PhotoConfig)
		require.True(t, ok, "expected photo, got %T", (*sent)[0])
		assert.Equal(t, "Привет, @tester! Держи ссылку.", photo.Caption)
	})

	t.Run("gif binding turns reply into animation", func(t *testing.T) {
		b, sent := newTestBot(t)
		require.NoError(t, b.store.Upsert(ctx, "10", "naruto", domain.Rule{ID: "r1"}))
		require.NoError(t, b.store.SetMediaBinding(ctx, "10",
			domain.MediaRef{FileID: "chat-gif", Kind: domain.MediaAnimation}))

		b.handleMessage(ctx, textMsg("naruto", 10, 999))

		require.Len(t, *sent, 1)
		_, ok := (*sent)[0].(tgbotapi.AnimationConfig)
		require.True(t, ok, "expected animation, got %T", (*sent)[0])
	})
}

func TestBot_PhotoFlow(t *testing.T) {
	ctx := context.Background()

	t.Run("photo after /photo becomes chat binding", func(t *testing.T) {
		b, sent := newTestBot(t)

		b.handleMessage(ctx, commandMsg("/photo", 10, adminID))
		assert.Contains(t, lastMessageText(t, sent), "пришлите фото")

		photo := textMsg("", 10, adminID)
		photo.Photo = []tgbotapi.PhotoSize{{FileID: "p1"}, {FileID: "p2"}}
		b.handleMessage(ctx, photo)

		ref, err := b.store.MediaBinding(ctx, "10")
		require.NoError(t, err)
		assert.Equal(t, "p2", ref.FileID)
		assert.Equal(t, domain.MediaPhoto, ref.Kind)
	})

	t.Run("unsolicited media is ignored", func(t *testing.T) {
		b, sent := newTestBot(t)

		photo := textMsg("", 10, 999)
		photo.Photo = []tgbotapi.PhotoSize{{FileID: "p1"}}
		b.handleMessage(ctx, photo)

		assert.Empty(t, *sent)
		_, err := b.store.MediaBinding(ctx, "10")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("removephoto detaches binding", func(t *testing.T) {
		b, sent := newTestBot(t)
		require.NoError(t, b.store.SetMediaBinding(ctx, "10",
			domain.MediaRef{FileID: "p1", Kind: domain.MediaPhoto}))

		b.handleMessage(ctx, commandMsg("/removephoto", 10, adminID))
		assert.Contains(t, lastMessageText(t, sent), "отвязано")

		b.handleMessage(ctx, commandMsg("/removephoto", 10, adminID))
		assert.Contains(t, lastMessageText(t, sent), "не задано")
	})
}

func TestBot_AddAdmin(t *testing.T) {
	ctx := context.Background()
	b, sent := newTestBot(t)

	b.handleMessage(ctx, commandMsg("/addadmin 200", 10, adminID))
	assert.Contains(t, lastMessageText(t, sent), "200")

	ok, err := b.store.IsAdmin(ctx, 200)
	require.NoError(t, err)
	assert.True(t, ok)

	b.handleMessage(ctx, commandMsg("/addadmin 200", 10, adminID))
	assert.Contains(t, lastMessageText(t, sent), "уже админ")

	b.handleMessage(ctx, commandMsg("/addadmin not-a-number", 10, adminID))
	assert.Contains(t, lastMessageText(t, sent), "Использование")
}
