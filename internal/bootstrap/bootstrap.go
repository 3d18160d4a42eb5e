// Package bootstrap собирает приложение из конфигурации: key-value бэкенд,
// хранилище секретов, шифрование, биометрический шлюз и контекст заметок.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"NotesAI/internal/biometric"
	"NotesAI/internal/config"
	"NotesAI/internal/crypto"
	"NotesAI/internal/kv"
	kvfs "NotesAI/internal/kv/fs"
	"NotesAI/internal/kv/gormkv"
	kvsqlite "NotesAI/internal/kv/sqlite"
	"NotesAI/internal/notesctx"
	"NotesAI/internal/secret"
	"NotesAI/internal/storage"
)

const (
	secretsDir = "secrets"
	fsKVDir    = "kv"
)

// App — собранные зависимости одного процесса.
type App struct {
	Notes    *notesctx.Context
	Gate     *biometric.Gate
	Crypto   *crypto.Service
	Secrets  secret.Store
	KV       kv.Store
	Passcode *biometric.PasscodePlatform // nil при auth=none
}

// Open открывает хранилище по конфигурации, загружает кэш заметок
// и возвращает (app, cleanup, error). cleanup закрывает хранилище и
// останавливает наблюдение за файлами; вызывать после окончания работы.
// in/out используются для ввода кода доступа.
func Open(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger, in io.Reader, out io.Writer) (*App, func() error, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	mode, err := crypto.ParseMode(cfg.Cipher)
	if err != nil {
		return nil, nil, err
	}

	store, changes, stopWatch, err := openKV(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() error {
		stopWatch()
		return store.Close()
	}

	var secrets secret.Store
	if cfg.Backend == config.BackendMemory {
		secrets = secret.NewMemory()
	} else {
		fsSecrets, err := secret.NewFSStore(filepath.Join(cfg.DBPath, secretsDir))
		if err != nil {
			_ = cleanup()
			return nil, nil, fmt.Errorf("open secret store: %w", err)
		}
		secrets = fsSecrets
	}

	app := &App{KV: store, Secrets: secrets}
	var platform biometric.Platform
	switch cfg.Auth {
	case config.AuthNone:
		logger.Warnw("locked notes are not protected by authentication", "auth", cfg.Auth)
		platform = biometric.AlwaysAllow()
	default:
		app.Passcode = biometric.NewPasscodePlatform(secrets, in, out)
		platform = app.Passcode
	}

	app.Crypto = crypto.NewService(secrets, mode, logger)
	app.Gate = biometric.NewGate(platform, logger)
	app.Notes = notesctx.New(storage.New(store, logger), app.Crypto, app.Gate, logger)
	if err := app.Notes.Load(ctx); err != nil {
		_ = cleanup()
		return nil, nil, fmt.Errorf("load notes: %w", err)
	}
	if changes != nil {
		go app.Notes.Watch(ctx, changes)
	}
	logger.Infow("storage opened", "backend", cfg.Backend, "cipher", string(mode), "auth", cfg.Auth)
	return app, cleanup, nil
}

// openKV открывает бэкенд. Для fs-бэкенда дополнительно возвращает канал изменённых ключей.
func openKV(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (kv.Store, <-chan string, func(), error) {
	noop := func() {}
	switch cfg.Backend {
	case config.BackendMemory:
		return kv.NewMemory(), nil, noop, nil
	case config.BackendGorm:
		if err := os.MkdirAll(cfg.DBPath, 0o700); err != nil {
			return nil, nil, nil, err
		}
		s, err := gormkv.Open(cfg.DSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open gorm store: %w", err)
		}
		return s, nil, noop, nil
	case config.BackendFS:
		s, err := kvfs.Open(filepath.Join(cfg.DBPath, fsKVDir), logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open fs store: %w", err)
		}
		wctx, cancel := context.WithCancel(ctx)
		changes, err := s.Watch(wctx)
		if err != nil {
			// без наблюдения работаем, просто не видим внешних правок
			logger.Warnw("fs watch unavailable", "error", err)
			cancel()
			return s, nil, noop, nil
		}
		return s, changes, cancel, nil
	default:
		s, path, err := kvsqlite.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.Infow("sqlite store", "path", path)
		return s, nil, noop, nil
	}
}
