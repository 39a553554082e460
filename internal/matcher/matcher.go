package matcher

import (
	"regexp"
	"sync"

	"telegram-keyword-bot/internal/domain"
)

// Policy определяет стратегию сопоставления ключевых форм с текстом.
type Policy string

const (
	// PolicyFuzzy — основная стратегия: ключ срабатывает, если все его слова
	// встречаются в сообщении, либо пересечение покрывает не менее
	// OverlapThreshold доли слов ключа.
	PolicyFuzzy Policy = "fuzzy"
	// PolicyStrict — ключ трактуется как фраза целиком и ищется в сообщении
	// по границам слов, без нечеткости.
	PolicyStrict Policy = "strict"
)

// OverlapThreshold — минимальная доля слов ключа, которая должна
// встретиться в сообщении при частичном совпадении.
const OverlapThreshold = 0.7

// Matcher решает, какое из зарегистрированных правил срабатывает
// для произвольного текста сообщения.
type Matcher struct {
	policy    Policy
	threshold float64

	// Кэш скомпилированных регулярных выражений для strict-режима,
	// ключ — нормализованная форма.
	mu      sync.RWMutex
	regexps map[string]*regexp.Regexp
}

// New создает матчер с указанной стратегией и порогом по умолчанию.
func New(policy Policy) *Matcher {
	return &Matcher{
		policy:    policy,
		threshold: OverlapThreshold,
		regexps:   make(map[string]*regexp.Regexp),
	}
}

// Match перебирает записи в том порядке, в котором их отдало хранилище
// (порядок вставки), и возвращает сработавшее правило.
//
// Пустое сообщение или сообщение из одних декоративных символов не
// совпадает ни с чем — это не ошибка, просто нет ответа.
func (m *Matcher) Match(entries []domain.Entry, text string) (domain.Entry, bool) {
	if m.policy == PolicyStrict {
		return m.matchStrict(entries, text)
	}
	return m.matchFuzzy(entries, text)
}

// matchFuzzy реализует основную стратегию. Среди всех кандидатов побеждает
// правило с наибольшим числом слов в ключе; при равенстве — более раннее
// по порядку вставки. Это дает детерминированный результат, когда одно
// сообщение удовлетворяет нескольким ключам ("naruto" и "naruto shippuden").
func (m *Matcher) matchFuzzy(entries []domain.Entry, text string) (domain.Entry, bool) {
	userWords := WordSet(text)
	if len(userWords) == 0 {
		return domain.Entry{}, false
	}

	var (
		best     domain.Entry
		bestSize int
		found    bool
	)
	for _, e := range entries {
		keywordWords := WordSet(e.Form)
		if len(keywordWords) == 0 {
			// Пустые ключи отклоняются при регистрации; на всякий случай
			// не даем им вакуумно совпасть здесь.
			continue
		}

		common := 0
		for w := range keywordWords {
			if _, ok := userWords[w]; ok {
				common++
			}
		}

		subset := common == len(keywordWords)
		overlap := float64(common) >= float64(len(keywordWords))*m.threshold
		if !subset && !overlap {
			continue
		}

		if !found || len(keywordWords) > bestSize {
			best = e
			bestSize = len(keywordWords)
			found = true
		}
	}
	return best, found
}

// matchStrict ищет ключ как целую фразу по границам слов: "op" не совпадет
// внутри "opening", "наруто" — внутри "нарутоведение". Первый совпавший
// ключ в порядке вставки побеждает.
func (m *Matcher) matchStrict(entries []domain.Entry, text string) (domain.Entry, bool) {
	normalized := Normalize(text)
	if normalized == "" {
		return domain.Entry{}, false
	}

	for _, e := range entries {
		form := Normalize(e.Form)
		if form == "" {
			continue
		}
		if m.phraseRegexp(form).MatchString(normalized) {
			return e, true
		}
	}
	return domain.Entry{}, false
}

func (m *Matcher) phraseRegexp(form string) *regexp.Regexp {
	m.mu.RLock()
	re, ok := m.regexps[form]
	m.mu.RUnlock()
	if ok {
		return re
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if re, ok = m.regexps[form]; ok {
		return re
	}
	// `\b` в regexp понимает только ASCII-слова, кириллический ключ он
	// не нашел бы никогда. Граница слова — не-буква/не-цифра или край строки.
	re = regexp.MustCompile(`(?:^|[^\p{L}\p{N}_])` + regexp.QuoteMeta(form) + `(?:$|[^\p{L}\p{N}_])`)
	m.regexps[form] = re
	return re
}
