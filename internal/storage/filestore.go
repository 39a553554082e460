package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"telegram-keyword-bot/internal/domain"
)

// Имена JSON-документов внутри каталога данных.
const (
	rulesFile  = "rules.json"
	mediaFile  = "media.json"
	adminsFile = "admins.json"
)

// scopeRules хранит правила одной области вместе с порядком вставки.
// Порядок — явная часть контракта: от него зависит tie-break матчера.
type scopeRules struct {
	Order []string               `json:"order"`
	Rules map[string]domain.Rule `json:"rules"`
}

// FileStore — файловая реализация Store: три JSON-документа в каталоге
// данных, полное состояние в памяти, сброс на диск при каждой мутации.
type FileStore struct {
	mu     sync.RWMutex
	dir    string
	logger *slog.Logger

	rules  map[string]*scopeRules
	media  map[string]domain.MediaRef
	admins []int64

	watcher *fileWatcher

	// Время последней собственной записи каждого файла, чтобы вотчер
	// не принимал наши же сбросы за внешние правки.
	selfWrite map[string]time.Time
}

// NewFileStore открывает (или создает) каталог данных и загружает состояние.
// Если список админов пуст, он засевается bootstrap-идентификаторами.
func NewFileStore(dir string, bootstrapAdmins []int64, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	s := &FileStore{
		dir:       dir,
		logger:    logger,
		rules:     make(map[string]*scopeRules),
		media:     make(map[string]domain.MediaRef),
		selfWrite: make(map[string]time.Time),
	}

	if err := s.loadAll(); err != nil {
		return nil, err
	}

	if len(s.admins) == 0 && len(bootstrapAdmins) > 0 {
		s.admins = append(s.admins, bootstrapAdmins...)
		if err := s.flush(adminsFile, s.admins); err != nil {
			return nil, fmt.Errorf("failed to seed bootstrap admins: %w", err)
		}
	}

	return s, nil
}

// Upsert вставляет или заменяет правило. Новая форма добавляется в конец
// порядка вставки, замена существующей позицию не меняет.
func (s *FileStore) Upsert(_ context.Context, scope, form string, rule domain.Rule) error {
	normalized, err := normalizeForm(form)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.rules[scope]
	if !ok {
		sc = &scopeRules{Rules: make(map[string]domain.Rule)}
		s.rules[scope] = sc
	}

	prev, existed := sc.Rules[normalized]
	sc.Rules[normalized] = rule
	if !existed {
		sc.Order = append(sc.Order, normalized)
	}

	if err := s.flush(rulesFile, s.rules); err != nil {
		// Откат: на диске мутации нет, значит и в памяти быть не должно.
		if existed {
			sc.Rules[normalized] = prev
		} else {
			delete(sc.Rules, normalized)
			sc.Order = sc.Order[:len(sc.Order)-1]
		}
		return fmt.Errorf("failed to persist rule: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, scope, form string) error {
	normalized, err := normalizeForm(form)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.rules[scope]
	if !ok {
		return domain.ErrNotFound
	}
	prev, existed := sc.Rules[normalized]
	if !existed {
		return domain.ErrNotFound
	}

	idx := -1
	for i, f := range sc.Order {
		if f == normalized {
			idx = i
			break
		}
	}
	delete(sc.Rules, normalized)
	if idx >= 0 {
		sc.Order = append(sc.Order[:idx], sc.Order[idx+1:]...)
	}

	if err := s.flush(rulesFile, s.rules); err != nil {
		sc.Rules[normalized] = prev
		if idx >= 0 {
			sc.Order = append(sc.Order[:idx], append([]string{normalized}, sc.Order[idx:]...)...)
		}
		return fmt.Errorf("failed to persist rule deletion: %w", err)
	}
	return nil
}

func (s *FileStore) Clear(_ context.Context, scope string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.rules[scope]
	if !ok {
		return 0, nil
	}
	count := len(sc.Rules)
	delete(s.rules, scope)

	if err := s.flush(rulesFile, s.rules); err != nil {
		s.rules[scope] = sc
		return 0, fmt.Errorf("failed to persist clear: %w", err)
	}
	return count, nil
}

func (s *FileStore) List(_ context.Context, scope string) ([]domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.rules[scope]
	if !ok {
		return nil, nil
	}
	entries := make([]domain.Entry, 0, len(sc.Order))
	for _, form := range sc.Order {
		rule, ok := sc.Rules[form]
		if !ok {
			continue
		}
		entries = append(entries, domain.Entry{Form: form, Rule: rule})
	}
	return entries, nil
}

func (s *FileStore) Stats(_ context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]int, len(s.rules))
	for scope, sc := range s.rules {
		stats[scope] = len(sc.Rules)
	}
	return stats, nil
}

func (s *FileStore) IsAdmin(_ context.Context, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasAdmin(userID), nil
}

func (s *FileStore) AddAdmin(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasAdmin(userID) {
		return domain.ErrAlreadyAdmin
	}
	s.admins = append(s.admins, userID)

	if err := s.flush(adminsFile, s.admins); err != nil {
		s.admins = s.admins[:len(s.admins)-1]
		return fmt.Errorf("failed to persist admin: %w", err)
	}
	return nil
}

func (s *FileStore) Admins(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int64, len(s.admins))
	copy(out, s.admins)
	return out, nil
}

func (s *FileStore) MediaBinding(_ context.Context, scope string) (*domain.MediaRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ref, ok := s.media[scope]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &ref, nil
}

func (s *FileStore) SetMediaBinding(_ context.Context, scope string, ref domain.MediaRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.media[scope]
	s.media[scope] = ref

	if err := s.flush(mediaFile, s.media); err != nil {
		if existed {
			s.media[scope] = prev
		} else {
			delete(s.media, scope)
		}
		return fmt.Errorf("failed to persist media binding: %w", err)
	}
	return nil
}

func (s *FileStore) RemoveMediaBinding(_ context.Context, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.media[scope]
	if !existed {
		return domain.ErrNotFound
	}
	delete(s.media, scope)

	if err := s.flush(mediaFile, s.media); err != nil {
		s.media[scope] = prev
		return fmt.Errorf("failed to persist media binding removal: %w", err)
	}
	return nil
}

// Close останавливает вотчер, если он был запущен.
func (s *FileStore) Close() error {
	if s.watcher != nil {
		return s.watcher.close()
	}
	return nil
}

func (s *FileStore) hasAdmin(userID int64) bool {
	for _, id := range s.admins {
		if id == userID {
			return true
		}
	}
	return false
}

// flush сериализует документ во временный файл и атомарно переименовывает
// его на место. Вызывается строго под s.mu.
func (s *FileStore) flush(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}

	s.selfWrite[name] = time.Now()
	return nil
}

// loadAll читает все три документа; отсутствующий файл — это пустое состояние.
func (s *FileStore) loadAll() error {
	if err := s.loadFile(rulesFile, &s.rules); err != nil {
		return err
	}
	if err := s.loadFile(mediaFile, &s.media); err != nil {
		return err
	}
	if err := s.loadFile(adminsFile, &s.admins); err != nil {
		return err
	}
	// Страховка от руками отредактированного файла без поля order.
	for _, sc := range s.rules {
		if sc.Rules == nil {
			sc.Rules = make(map[string]domain.Rule)
		}
		if len(sc.Order) != len(sc.Rules) {
			sc.Order = sc.Order[:0]
			for form := range sc.Rules {
				sc.Order = append(sc.Order, form)
			}
			// Порядок вставки утрачен, восстанавливаем хоть какой-то
			// детерминированный.
			sort.Strings(sc.Order)
		}
	}
	return nil
}

func (s *FileStore) loadFile(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}
