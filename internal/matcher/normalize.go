package matcher

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Декоративные символы, которыми в группах любят украшать названия
// ("❖ Naruto - Official ❖"). Вырезаются целиком, включая стилизованные
// small-caps буквы слова "official", которые NFKC не разворачивает.
var decorativeRunes = map[rune]struct{}{
	'❖': {}, '◆': {}, '★': {}, '▪': {}, '•': {}, '‣': {}, '✧': {}, '📡': {},
	'@': {}, '#': {},
	'ᴏ': {}, 'ғ': {}, 'ɪ': {}, 'ᴄ': {}, 'ᴀ': {}, 'ʟ': {},
	'(': {}, ')': {}, '[': {}, ']': {}, '{': {}, '}': {},
}

// dashRunes — варианты дефиса/тире, заменяются на пробел, чтобы
// "naruto-shippuden" и "naruto shippuden" давали одинаковый набор слов.
var dashRunes = map[rune]struct{}{
	'-': {}, '–': {}, '—': {},
}

// Normalize приводит текст к канонической форме для сравнения:
// NFKC-фолдинг, вырезание декоративных символов и скобок, дефисы и
// переводы строк в пробелы, схлопывание пробелов, trim, lower-case.
// Нормализация идемпотентна: Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	text = norm.NFKC.String(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case isDecorative(r):
			// пропускаем
		case isDash(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}

	// strings.Fields схлопывает любые пробельные последовательности,
	// включая переводы строк.
	words := strings.Fields(b.String())
	return strings.ToLower(strings.Join(words, " "))
}

func isDecorative(r rune) bool {
	_, ok := decorativeRunes[r]
	return ok
}

func isDash(r rune) bool {
	_, ok := dashRunes[r]
	return ok
}

// WordSet разбивает нормализованный текст на множество слов.
// Дубликаты схлопываются, порядок не имеет значения.
func WordSet(text string) map[string]struct{} {
	words := strings.Fields(Normalize(text))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
