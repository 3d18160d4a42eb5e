// Package sqlite реализует kv.Store поверх файла SQLite (modernc.org/sqlite, без cgo).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"NotesAI/internal/kv"

	_ "modernc.org/sqlite"
)

// FileName — имя файла БД внутри каталога данных.
const FileName = "notes.sqlite"

// Store — key-value хранилище в таблице kv локальной БД SQLite.
type Store struct {
	db *sql.DB
}

var _ kv.Store = (*Store)(nil)

// Open открывает (и создаёт при необходимости) файл БД в каталоге dir,
// выполняет миграцию и возвращает хранилище. Вторым значением возвращается путь к БД.
func Open(dir string) (*Store, string, error) {
	if dir == "" {
		return nil, "", errors.New("empty data dir")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, "", err
	}
	dbPath := filepath.Join(dir, FileName)
	s, err := OpenDSN(dbPath)
	if err != nil {
		return nil, "", err
	}
	return s, dbPath, nil
}

// OpenDSN открывает хранилище по произвольному DSN драйвера sqlite (например, ":memory:").
func OpenDSN(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// один писатель: SQLite не любит параллельные записи из разных соединений
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate гарантирует наличие таблицы kv.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(initialDDL())
	return err
}

// Close закрывает соединение с БД.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get читает значение по ключу.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE id = ?`, key).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

// Set записывает значение (upsert).
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO kv(id, value, updated_at) VALUES(?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix(),
	)
	return err
}

// Delete удаляет ключ.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE id = ?`, key)
	return err
}
