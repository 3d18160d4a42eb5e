// Package kv описывает синхронное строковое key-value хранилище,
// поверх которого построено хранилище документов, и его in-memory реализацию.
package kv

import (
	"context"
	"sync"
)

// Store is the key-value persistence port. Values are opaque strings (usually JSON).
type Store interface {
	// Get возвращает значение и признак наличия ключа. Отсутствие ключа — не ошибка.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set записывает значение, перезаписывая существующее.
	Set(ctx context.Context, key, value string) error
	// Delete удаляет ключ. Удаление отсутствующего ключа — не ошибка.
	Delete(ctx context.Context, key string) error
	// Close освобождает ресурсы хранилища.
	Close() error
}

// Memory — потокобезопасное хранилище в памяти (тесты, backend=memory).
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

var _ Store = (*Memory)(nil)

// NewMemory создаёт пустое хранилище в памяти.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *Memory) Close() error { return nil }

// Keys returns a snapshot of stored keys. Used by tests and diagnostics.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys
}
