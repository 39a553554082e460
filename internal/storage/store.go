// Package storage отвечает за долговременное хранение правил, списка
// админов и привязок медиа. Каждая мутация сбрасывается на диск до того,
// как операция считается завершенной; при ошибке записи состояние в памяти
// откатывается, чтобы не разойтись с диском.
package storage

import (
	"context"

	"telegram-keyword-bot/internal/domain"
	"telegram-keyword-bot/internal/matcher"
)

// Store — интерфейс хранилища. Две реализации: файловая (JSON-документы)
// и таблица в SQLite, выбираются конфигурацией.
type Store interface {
	// Upsert вставляет или заменяет правило под нормализованной ключевой
	// формой. Возвращает domain.ErrEmptyKeyword, если форма после
	// нормализации не содержит ни одного слова.
	Upsert(ctx context.Context, scope, form string, rule domain.Rule) error
	// Delete удаляет форму; domain.ErrNotFound, если ее не было.
	Delete(ctx context.Context, scope, form string) error
	// Clear удаляет все правила области и возвращает число удаленных.
	Clear(ctx context.Context, scope string) (int, error)
	// List отдает записи области в порядке вставки.
	List(ctx context.Context, scope string) ([]domain.Entry, error)
	// Stats возвращает число правил по каждой области (для HTTP-эндпоинта).
	Stats(ctx context.Context) (map[string]int, error)

	IsAdmin(ctx context.Context, userID int64) (bool, error)
	// AddAdmin добавляет админа; domain.ErrAlreadyAdmin, если он уже есть.
	AddAdmin(ctx context.Context, userID int64) error
	Admins(ctx context.Context) ([]int64, error)

	// MediaBinding возвращает привязку медиа области или domain.ErrNotFound.
	MediaBinding(ctx context.Context, scope string) (*domain.MediaRef, error)
	SetMediaBinding(ctx context.Context, scope string, ref domain.MediaRef) error
	// RemoveMediaBinding удаляет привязку; domain.ErrNotFound, если ее не было.
	RemoveMediaBinding(ctx context.Context, scope string) error

	Close() error
}

// normalizeForm приводит ключевую форму к канонической и отклоняет формы,
// у которых после нормализации не остается слов.
func normalizeForm(form string) (string, error) {
	normalized := matcher.Normalize(form)
	if len(matcher.WordSet(normalized)) == 0 {
		return "", domain.ErrEmptyKeyword
	}
	return normalized, nil
}
