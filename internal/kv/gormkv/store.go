// Package gormkv реализует kv.Store поверх gorm (SQLite или PostgreSQL).
package gormkv

import (
	"context"
	"errors"
	"strings"
	"time"

	"NotesAI/internal/kv"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// Entry — строка таблицы kv_entries.
type Entry struct {
	Key       string    `gorm:"primaryKey;size:255"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName фиксирует имя таблицы.
func (Entry) TableName() string { return "kv_entries" }

// Store — key-value хранилище на gorm.
type Store struct {
	db *gorm.DB
}

var _ kv.Store = (*Store)(nil)

// Dialector выбирает драйвер по DSN: postgres:// и postgresql:// — PostgreSQL,
// всё остальное — SQLite через modernc (без cgo).
func Dialector(dsn string) gorm.Dialector {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return postgres.Open(dsn)
	}
	return gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}
}

// Open подключается к БД по DSN и выполняет AutoMigrate.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("empty dsn")
	}
	db, err := gorm.Open(Dialector(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	return New(db)
}

// New оборачивает готовое подключение gorm и мигрирует схему.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Get читает значение по ключу.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var e Entry
	err := s.db.WithContext(ctx).Where(map[string]any{"key": key}).Take(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return e.Value, true, nil
}

// Set записывает значение (upsert по первичному ключу).
func (s *Store) Set(ctx context.Context, key, value string) error {
	e := &Entry{Key: key, Value: value}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(e).Error
}

// Delete удаляет ключ.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where(map[string]any{"key": key}).Delete(&Entry{}).Error
}

// Close закрывает пул соединений.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
