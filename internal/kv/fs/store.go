// Package fs реализует kv.Store как каталог, где каждый ключ — отдельный файл.
// Изменения, сделанные другим процессом (синхронизация папки, второй экземпляр),
// можно отслеживать через Watch.
package fs

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"NotesAI/internal/kv"
)

const fileExt = ".kv"

// Store — файловое key-value хранилище.
type Store struct {
	dir    string
	mu     sync.RWMutex
	logger *zap.SugaredLogger
}

var _ kv.Store = (*Store)(nil)

// Open создаёт каталог при необходимости и возвращает хранилище.
func Open(dir string, logger *zap.SugaredLogger) (*Store, error) {
	if dir == "" {
		return nil, errors.New("empty data dir")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string { return s.dir }

func fileName(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key)) + fileExt
}

// keyFromFile восстанавливает ключ по имени файла; ok=false для чужих файлов.
func keyFromFile(name string) (string, bool) {
	base := filepath.Base(name)
	if !strings.HasSuffix(base, fileExt) {
		return "", false
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSuffix(base, fileExt))
	if err != nil {
		return "", false
	}
	return string(raw), true
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, fileName(key))
}

// Get читает файл ключа.
func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(b), true, nil
}

// Set пишет значение атомарно: временный файл + rename.
func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// Delete удаляет файл ключа.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) Close() error { return nil }

// Watch starts an fsnotify watcher on the store directory and emits the key of every
// created, written, removed or renamed entry. The channel is closed when ctx is done.
func (s *Store) Watch(ctx context.Context) (<-chan string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(s.dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	out := make(chan string, 16)
	go func() {
		defer close(out)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				key, ok := keyFromFile(event.Name)
				if !ok {
					continue
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}
				select {
				case out <- key:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warnw("kv watcher error", "dir", s.dir, "error", err)
			}
		}
	}()
	return out, nil
}
