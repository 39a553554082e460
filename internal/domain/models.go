package domain

// MediaKind — тип медиа, прикрепляемого к ответу.
type MediaKind string

const (
	MediaPhoto     MediaKind = "photo"
	MediaAnimation MediaKind = "gif"
)

// MediaRef — ссылка на медиа, которое хранится на стороне Telegram.
// Мы храним только file_id, сам файл нам не принадлежит.
type MediaRef struct {
	FileID string    `json:"file_id"`
	Kind   MediaKind `json:"type"`
}

// Button — inline-кнопка со ссылкой, прикрепляемая к ответу.
type Button struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Rule — правило автоответа. Одно правило может быть зарегистрировано
// под несколькими ключевыми формами (алиасами), но в хранилище каждая
// нормализованная форма ссылается ровно на одно правило.
type Rule struct {
	// ID — служебный идентификатор для логов и экспорта, на матчинг не влияет.
	ID string `json:"id"`
	// Response — шаблон ответа. Может содержать плейсхолдер {mention}.
	// Пустая строка означает "использовать шаблон по умолчанию из конфига".
	Response string    `json:"response,omitempty"`
	Media    *MediaRef `json:"media,omitempty"`
	Button   *Button   `json:"button,omitempty"`
}

// Entry — пара "нормализованная ключевая форма -> правило".
// Хранилище отдает записи в порядке вставки, и матчер на этот порядок опирается.
type Entry struct {
	Form string
	Rule Rule
}

// ReplyPayload — собранный ответ, готовый к отправке через адаптер бота.
type ReplyPayload struct {
	Text   string
	Media  *MediaRef
	Button *Button
}
