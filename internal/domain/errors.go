package domain

import "errors"

// Ошибки уровня домена. Обработчики команд переводят их в ответы пользователю,
// ни одна из них не фатальна для процесса.
var (
	// ErrNotFound — удаление/чтение ссылается на отсутствующую запись.
	ErrNotFound = errors.New("not found")
	// ErrEmptyKeyword — ключевая форма после нормализации не содержит ни одного
	// слова. Такое правило совпало бы с любым сообщением, поэтому отклоняется при
	// регистрации и никогда не сохраняется.
	ErrEmptyKeyword = errors.New("keyword normalizes to empty word set")
	// ErrPermissionDenied — операцию записи запросил не-админ.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrAlreadyAdmin — попытка добавить уже существующего админа.
	ErrAlreadyAdmin = errors.New("user is already an admin")
)
