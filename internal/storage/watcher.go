package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"telegram-keyword-bot/internal/domain"
)

// selfWriteWindow — окно, в течение которого событие по файлу считается
// эхом нашего собственного сброса, а не внешней правкой.
const selfWriteWindow = 2 * time.Second

type fileWatcher struct {
	watcher *fsnotify.Watcher
}

func (fw *fileWatcher) close() error {
	return fw.watcher.Close()
}

// Watch запускает наблюдение за каталогом данных: правка rules.json,
// media.json или admins.json внешним редактором перечитывает состояние
// без перезапуска бота. Собственные сбросы отфильтровываются по времени
// последней записи.
func (s *FileStore) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := w.Add(s.dir); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch data dir: %w", err)
	}

	s.watcher = &fileWatcher{watcher: w}
	go s.watchLoop(ctx, w)

	s.logger.Info("file watcher started", slog.String("dir", s.dir))
	return nil
}

func (s *FileStore) watchLoop(ctx context.Context, w *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if name != rulesFile && name != mediaFile && name != adminsFile {
				continue
			}
			if s.isSelfWrite(name) {
				continue
			}
			// Небольшая пауза, чтобы внешняя запись успела завершиться.
			time.Sleep(100 * time.Millisecond)
			s.reload(name)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Error("file watcher error", slog.String("error", err.Error()))
		}
	}
}

func (s *FileStore) isSelfWrite(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	last, ok := s.selfWrite[name]
	return ok && time.Since(last) < selfWriteWindow
}

// reload перечитывает один документ с диска поверх состояния в памяти.
func (s *FileStore) reload(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	switch name {
	case rulesFile:
		fresh := make(map[string]*scopeRules)
		if err = s.loadFile(rulesFile, &fresh); err == nil {
			for _, sc := range fresh {
				if sc.Rules == nil {
					sc.Rules = make(map[string]domain.Rule)
				}
			}
			s.rules = fresh
		}
	case mediaFile:
		fresh := make(map[string]domain.MediaRef)
		if err = s.loadFile(mediaFile, &fresh); err == nil {
			s.media = fresh
		}
	case adminsFile:
		var fresh []int64
		if err = s.loadFile(adminsFile, &fresh); err == nil && len(fresh) > 0 {
			s.admins = fresh
		}
	}
	if err != nil {
		s.logger.Error("failed to reload store file",
			slog.String("file", name), slog.String("error", err.Error()))
		return
	}
	s.logger.Info("store file reloaded after external edit", slog.String("file", name))
}
