package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-keyword-bot/internal/domain"
)

// mentionPlaceholder — плейсхолдер в шаблоне ответа, на место которого
// подставляется упоминание отправителя.
const mentionPlaceholder = "{mention}"

// Render собирает готовый ответ по сработавшему правилу: подстановка
// упоминания в шаблон, выбор медиа и кнопки. Чистая функция, без записи.
//
// Привязка медиа области имеет приоритет над медиа самого правила:
// она задумана как единая картинка на все ответы чата.
func Render(defaultTemplate string, rule domain.Rule, binding *domain.MediaRef, from *tgbotapi.User) domain.ReplyPayload {
	tpl := rule.Response
	if tpl == "" {
		tpl = defaultTemplate
	}

	media := rule.Media
	if binding != nil {
		media = binding
	}

	return domain.ReplyPayload{
		Text:   strings.ReplaceAll(tpl, mentionPlaceholder, mention(from)),
		Media:  media,
		Button: rule.Button,
	}
}

// mention строит Markdown-упоминание: @username, если он есть, иначе
// ссылку tg://user по идентификатору с видимым именем.
func mention(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	if u.UserName != "" {
		return "@" + u.UserName
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = fmt.Sprintf("user%d", u.ID)
	}
	return fmt.Sprintf("[%s](tg://user?id=%d)", escapeMarkdown(name), u.ID)
}

// escapeMarkdown экранирует символы, ломающие легаси-Markdown в имени.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer("[", "\\[", "]", "\\]", "*", "\\*", "_", "\\_", "`", "\\`")
	return r.Replace(s)
}
