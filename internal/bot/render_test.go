package bot

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-keyword-bot/internal/domain"
)

func TestRender(t *testing.T) {
	user := &tgbotapi.User{ID: 42, UserName: "tester"}

	t.Run("rule response wins over template", func(t *testing.T) {
		rule := domain.Rule{Response: "Вот ссылка, {mention}!"}
		p := Render("шаблон не должен использоваться", rule, nil, user)
		assert.Equal(t, "Вот ссылка, @tester!", p.Text)
	})

	t.Run("empty response falls back to template", func(t *testing.T) {
		p := Render("Привет, {mention}!", domain.Rule{}, nil, user)
		assert.Equal(t, "Привет, @tester!", p.Text)
	})

	t.Run("chat binding overrides rule media", func(t *testing.T) {
		rule := domain.Rule{Media: &domain.MediaRef{FileID: "rule-media", Kind: domain.MediaPhoto}}
		binding := &domain.MediaRef{FileID: "chat-media", Kind: domain.MediaAnimation}

		p := Render("Привет", rule, binding, user)
		require.NotNil(t, p.Media)
		assert.Equal(t, "chat-media", p.Media.FileID)
	})

	t.Run("rule media used when no binding", func(t *testing.T) {
		rule := domain.Rule{Media: &domain.MediaRef{FileID: "rule-media", Kind: domain.MediaPhoto}}
		p := Render("Привет", rule, nil, user)
		require.NotNil(t, p.Media)
		assert.Equal(t, "rule-media", p.Media.FileID)
	})

	t.Run("button is carried through", func(t *testing.T) {
		rule := domain.Rule{Button: &domain.Button{Label: "Смотреть", URL: "https://example.com"}}
		p := Render("Привет", rule, nil, user)
		require.NotNil(t, p.Button)
		assert.Equal(t, "Смотреть", p.Button.Label)
	})
}

func TestMention(t *testing.T) {
	t.Run("username preferred", func(t *testing.T) {
		got := mention(&tgbotapi.User{ID: 1, UserName: "tester", FirstName: "Иван"})
		assert.Equal(t, "@tester", got)
	})

	t.Run("fallback to tg link with name", func(t *testing.T) {
		got := mention(&tgbotapi.User{ID: 7, FirstName: "Иван", LastName: "Петров"})
		assert.Equal(t, "[Иван Петров](tg://user?id=7)", got)
	})

	t.Run("markdown in name is escaped", func(t *testing.T) {
		got := mention(&tgbotapi.User{ID: 7, FirstName: "Иван_[хак]"})
		assert.Equal(t, "[Иван\\_\\[хак\\]](tg://user?id=7)", got)
	})

	t.Run("nameless user gets numeric placeholder", func(t *testing.T) {
		got := mention(&tgbotapi.User{ID: 7})
		assert.Equal(t, "[user7](tg://user?id=7)", got)
	})

	t.Run("nil user renders empty", func(t *testing.T) {
		assert.Equal(t, "", mention(nil))
	})
}
