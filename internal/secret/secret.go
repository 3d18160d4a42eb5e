// Package secret — защищённое хранилище секретов устройства (ключ шифрования, хэш кода доступа).
package secret

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// Store описывает абстракцию хранилища секретов.
type Store interface {
	// GetItem возвращает значение и признак его наличия.
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	DeleteItem(ctx context.Context, key string) error
}

var keyRe = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidateKey проверяет, что имя секрета безопасно использовать как имя файла.
func ValidateKey(key string) error {
	if key == "" {
		return errors.New("empty secret key")
	}
	if !keyRe.MatchString(key) {
		return errors.New("invalid secret key: " + key)
	}
	return nil
}

// FSStore — файловое хранилище секретов: каталог 0700, файлы 0600.
type FSStore struct {
	dir string
}

var _ Store = FSStore{}

// NewFSStore создаёт хранилище в каталоге dir.
func NewFSStore(dir string) (FSStore, error) {
	if dir == "" {
		return FSStore{}, errors.New("empty secrets dir")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return FSStore{}, err
	}
	return FSStore{dir: dir}, nil
}

func (s FSStore) path(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, key), nil
}

// GetItem читает секрет из файла.
func (s FSStore) GetItem(_ context.Context, key string) (string, bool, error) {
	p, err := s.path(key)
	if err != nil {
		return "", false, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	// обрезаем завершающие переводы строки/пробелы
	v := strings.TrimRight(string(b), "\r\n\t ")
	if v == "" {
		return "", false, nil
	}
	return v, true, nil
}

// SetItem записывает секрет с ограниченными правами доступа.
func (s FSStore) SetItem(_ context.Context, key, value string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	return os.WriteFile(p, []byte(value), 0o600)
}

// DeleteItem удаляет секрет; отсутствие файла не ошибка.
func (s FSStore) DeleteItem(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Memory — хранилище секретов в памяти (тесты, режим без диска).
type Memory struct {
	mu    sync.Mutex
	items map[string]string
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory secret store.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]string)}
}

func (m *Memory) GetItem(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *Memory) SetItem(_ context.Context, key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *Memory) DeleteItem(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}
