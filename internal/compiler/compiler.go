// Package compiler превращает текст админской команды в набор правил.
// Чистый парсинг: никаких побочных эффектов, запись в хранилище —
// забота вызывающей стороны.
package compiler

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"telegram-keyword-bot/internal/domain"
	"telegram-keyword-bot/internal/matcher"
)

// Compiled — одно разобранное правило вместе со всеми его алиасами.
// Алиасы идут в порядке появления во входном тексте.
type Compiled struct {
	Forms []string
	Rule  domain.Rule
}

// Result — итог разбора одной команды. Rules идут в порядке входа,
// Skipped считает некорректные блоки/строки, которые были молча пропущены.
type Result struct {
	Rules   []Compiled
	Skipped int
}

// FormCount возвращает общее число ключевых форм во всех правилах.
// Именно это число сообщается админу ("N ключей сохранено").
func (r Result) FormCount() int {
	n := 0
	for _, c := range r.Rules {
		n += len(c.Forms)
	}
	return n
}

// Строка bracket-формы: "[Naruto, Naruto Shippuden] https://...".
var bracketLineRe = regexp.MustCompile(`\[(.*?)\]\s+(https?://\S+)`)

// Метка paren-формы в начале блока: "(One Piece) текст ответа...".
var parenLabelRe = regexp.MustCompile(`^\s*\((.*?)\)\s*`)

// Опциональная кнопка внутри тела: "Button: Смотреть | https://...".
var buttonClauseRe = regexp.MustCompile(`(?i)button:\s*([^|\n]+?)\s*\|\s*(\S+)`)

// CompileBracket разбирает bracket-форму: каждая строка тела содержит
// группу меток в квадратных скобках и ссылку. Все метки строки становятся
// алиасами одного правила, ссылка уходит в кнопку. Строки без скобок или
// без ссылки пропускаются, не прерывая разбор остальных.
func CompileBracket(body, buttonLabel string) Result {
	var res Result
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		m := bracketLineRe.FindStringSubmatch(line)
		if m == nil {
			res.Skipped++
			continue
		}

		forms := splitLabels(m[1])
		if len(forms) == 0 {
			res.Skipped++
			continue
		}

		res.Rules = append(res.Rules, Compiled{
			Forms: forms,
			Rule: domain.Rule{
				ID: uuid.NewString(),
				// Response пустой: рендерер подставит шаблон по умолчанию.
				Button: &domain.Button{Label: buttonLabel, URL: strings.TrimSpace(m[2])},
			},
		})
	}
	return res
}

// CompileParen разбирает paren-форму: тело делится на блоки по каждому
// вхождению токена команды, блок дает ровно одну ключевую форму (метка
// в круглых скобках) и текст ответа. Кляуза "Button: текст | url"
// вырезается из тела и становится кнопкой. media (из сообщения, на которое
// ответили) прикрепляется к каждому правилу команды.
func CompileParen(body, commandToken string, media *domain.MediaRef) Result {
	var res Result
	for _, block := range splitBlocks(body, commandToken) {
		c, ok := compileParenBlock(block, media)
		if !ok {
			res.Skipped++
			continue
		}
		res.Rules = append(res.Rules, c)
	}
	return res
}

func compileParenBlock(block string, media *domain.MediaRef) (Compiled, bool) {
	m := parenLabelRe.FindStringSubmatch(block)
	if m == nil {
		return Compiled{}, false
	}
	form := strings.ToLower(strings.TrimSpace(m[1]))
	if form == "" || len(matcher.WordSet(form)) == 0 {
		return Compiled{}, false
	}

	rest := block[len(m[0]):]

	var button *domain.Button
	if bm := buttonClauseRe.FindStringSubmatch(rest); bm != nil {
		button = &domain.Button{
			Label: strings.TrimSpace(bm[1]),
			URL:   strings.TrimSpace(bm[2]),
		}
		rest = buttonClauseRe.ReplaceAllString(rest, "")
	}

	return Compiled{
		Forms: []string{form},
		Rule: domain.Rule{
			ID:       uuid.NewString(),
			Response: strings.TrimSpace(rest),
			Media:    media,
			Button:   button,
		},
	}, true
}

// splitLabels делит содержимое квадратных скобок по запятым,
// отбрасывая пустые метки и приводя их к нижнему регистру.
func splitLabels(group string) []string {
	var forms []string
	for _, label := range strings.Split(group, ",") {
		label = strings.ToLower(strings.TrimSpace(label))
		if label == "" || len(matcher.WordSet(label)) == 0 {
			continue
		}
		forms = append(forms, label)
	}
	return forms
}

// splitBlocks режет тело на блоки по каждому вхождению токена команды.
// Текст до первого токена — тоже блок: команда "/filter (x) ..." приходит
// сюда уже без ведущего токена.
func splitBlocks(body, token string) []string {
	var blocks []string
	for _, part := range strings.Split(body, token) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		blocks = append(blocks, part)
	}
	return blocks
}
