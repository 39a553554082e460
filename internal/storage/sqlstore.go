package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"telegram-keyword-bot/internal/domain"
)

// SQLStore — реализация Store поверх SQLite. Порядок вставки правил
// хранится явно в колонке position, чтобы List был детерминированным.
type SQLStore struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLStore открывает (или создает) базу и накатывает схему.
// Пустая таблица админов засевается bootstrap-идентификаторами.
func NewSQLStore(dbPath string, bootstrapAdmins []int64) (*SQLStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS rules (
			scope         TEXT NOT NULL,
			form          TEXT NOT NULL,
			rule_id       TEXT NOT NULL,
			response      TEXT NOT NULL DEFAULT '',
			media_file_id TEXT NOT NULL DEFAULT '',
			media_kind    TEXT NOT NULL DEFAULT '',
			button_label  TEXT NOT NULL DEFAULT '',
			button_url    TEXT NOT NULL DEFAULT '',
			position      INTEGER NOT NULL,
			PRIMARY KEY (scope, form)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create rules table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS admins (
			user_id INTEGER PRIMARY KEY
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create admins table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS media_bindings (
			scope   TEXT PRIMARY KEY,
			file_id TEXT NOT NULL,
			kind    TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create media_bindings table: %w", err)
	}

	s := &SQLStore{db: db}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM admins`).Scan(&count); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to count admins: %w", err)
	}
	if count == 0 {
		for _, id := range bootstrapAdmins {
			if _, err := db.Exec(`INSERT OR IGNORE INTO admins (user_id) VALUES (?)`, id); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to seed bootstrap admin: %w", err)
			}
		}
	}

	return s, nil
}

// Upsert сохраняет правило. Замена существующей формы сохраняет ее позицию,
// новая форма получает следующую позицию в области.
func (s *SQLStore) Upsert(ctx context.Context, scope, form string, rule domain.Rule) error {
	normalized, err := normalizeForm(form)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var position int
	err = s.db.QueryRowContext(ctx,
		`SELECT position FROM rules WHERE scope = ? AND form = ?`, scope, normalized,
	).Scan(&position)
	if errors.Is(err, sql.ErrNoRows) {
		if err := s.db.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position), -1) + 1 FROM rules WHERE scope = ?`, scope,
		).Scan(&position); err != nil {
			return fmt.Errorf("failed to compute rule position: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to query rule position: %w", err)
	}

	var fileID, kind, btnLabel, btnURL string
	if rule.Media != nil {
		fileID, kind = rule.Media.FileID, string(rule.Media.Kind)
	}
	if rule.Button != nil {
		btnLabel, btnURL = rule.Button.Label, rule.Button.URL
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO rules
			(scope, form, rule_id, response, media_file_id, media_kind, button_label, button_url, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, scope, normalized, rule.ID, rule.Response, fileID, kind, btnLabel, btnURL, position)
	if err != nil {
		return fmt.Errorf("failed to persist rule: %w", err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, scope, form string) error {
	normalized, err := normalizeForm(form)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM rules WHERE scope = ? AND form = ?`, scope, normalized)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deletion: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *SQLStore) Clear(ctx context.Context, scope string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE scope = ?`, scope)
	if err != nil {
		return 0, fmt.Errorf("failed to clear rules: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleared rules: %w", err)
	}
	return int(affected), nil
}

func (s *SQLStore) List(ctx context.Context, scope string) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT form, rule_id, response, media_file_id, media_kind, button_label, button_url
		FROM rules
		WHERE scope = ?
		ORDER BY position
	`, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var entries []domain.Entry
	for rows.Next() {
		var e domain.Entry
		var fileID, kind, label, btnURL string
		if err := rows.Scan(&e.Form, &e.Rule.ID, &e.Rule.Response, &fileID, &kind, &label, &btnURL); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		if fileID != "" {
			e.Rule.Media = &domain.MediaRef{FileID: fileID, Kind: domain.MediaKind(kind)}
		}
		if btnURL != "" {
			e.Rule.Button = &domain.Button{Label: label, URL: btnURL}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLStore) Stats(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT scope, COUNT(*) FROM rules GROUP BY scope`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var scope string
		var n int
		if err := rows.Scan(&scope, &n); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		stats[scope] = n
	}
	return stats, rows.Err()
}

func (s *SQLStore) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM admins WHERE user_id = ?`, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query admin: %w", err)
	}
	return true, nil
}

func (s *SQLStore) AddAdmin(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO admins (user_id) VALUES (?)`, userID)
	if err != nil {
		return fmt.Errorf("failed to add admin: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check admin insert: %w", err)
	}
	if affected == 0 {
		return domain.ErrAlreadyAdmin
	}
	return nil
}

func (s *SQLStore) Admins(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM admins ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	defer rows.Close()

	var admins []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan admin: %w", err)
		}
		admins = append(admins, id)
	}
	return admins, rows.Err()
}

func (s *SQLStore) MediaBinding(ctx context.Context, scope string) (*domain.MediaRef, error) {
	var ref domain.MediaRef
	err := s.db.QueryRowContext(ctx,
		`SELECT file_id, kind FROM media_bindings WHERE scope = ?`, scope,
	).Scan(&ref.FileID, (*string)(&ref.Kind))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query media binding: %w", err)
	}
	return &ref, nil
}

func (s *SQLStore) SetMediaBinding(ctx context.Context, scope string, ref domain.MediaRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO media_bindings (scope, file_id, kind) VALUES (?, ?, ?)
	`, scope, ref.FileID, string(ref.Kind))
	if err != nil {
		return fmt.Errorf("failed to persist media binding: %w", err)
	}
	return nil
}

func (s *SQLStore) RemoveMediaBinding(ctx context.Context, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM media_bindings WHERE scope = ?`, scope)
	if err != nil {
		return fmt.Errorf("failed to remove media binding: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check media binding removal: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Close закрывает соединение с базой.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
