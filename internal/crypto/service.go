package crypto

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"NotesAI/internal/secret"
)

// KeyName — имя секрета с ключом шифрования в защищённом хранилище.
const KeyName = "notes_encryption_key"

// Mode выбирает формат новых шифртекстов.
type Mode string

const (
	// ModeAESGCM — AES‑256‑GCM (по умолчанию).
	ModeAESGCM Mode = "aesgcm"
	// ModeXOR — legacy XOR, совместимый со старыми данными.
	ModeXOR Mode = "xor"
)

// ParseMode разбирает название режима; пустая строка — режим по умолчанию.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeAESGCM:
		return ModeAESGCM, nil
	case ModeXOR:
		return ModeXOR, nil
	default:
		return "", fmt.Errorf("unknown cipher %q (expected: aesgcm|xor)", s)
	}
}

// Service — сервис шифрования тел заметок.
type Service struct {
	secrets secret.Store
	mode    Mode
	logger  *zap.SugaredLogger

	mu  sync.Mutex
	key []byte
}

// NewService создаёт сервис поверх хранилища секретов.
func NewService(secrets secret.Store, mode Mode, logger *zap.SugaredLogger) *Service {
	if mode == "" {
		mode = ModeAESGCM
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{secrets: secrets, mode: mode, logger: logger}
}

// Mode returns the format used for new ciphertexts.
func (s *Service) Mode() Mode { return s.mode }

// GetEncryptionKey загружает ключ устройства или создаёт новый случайный при первом вызове.
// Все последующие вызовы возвращают тот же ключ.
func (s *Service) GetEncryptionKey(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key != nil {
		return s.key, nil
	}
	if s.secrets == nil {
		return nil, fmt.Errorf("secret store is not configured")
	}
	stored, ok, err := s.secrets.GetItem(ctx, KeyName)
	if err != nil {
		return nil, fmt.Errorf("read encryption key: %w", err)
	}
	if ok {
		key, err := base64.StdEncoding.DecodeString(stored)
		if err != nil {
			return nil, fmt.Errorf("decode encryption key: %w", err)
		}
		if len(key) != keyLen {
			return nil, ErrInvalidKey
		}
		s.key = key
		return key, nil
	}
	key, err := NewKey()
	if err != nil {
		return nil, err
	}
	if err := s.secrets.SetItem(ctx, KeyName, base64.StdEncoding.EncodeToString(key)); err != nil {
		return nil, fmt.Errorf("store encryption key: %w", err)
	}
	s.logger.Infow("encryption key generated", "cipher", string(s.mode))
	s.key = key
	return key, nil
}

// EncryptText шифрует текст. Пустая строка остаётся пустой.
func (s *Service) EncryptText(ctx context.Context, plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	key, err := s.GetEncryptionKey(ctx)
	if err != nil {
		return "", err
	}
	if s.mode == ModeXOR {
		return EncryptXOR([]byte(plaintext), key)
	}
	return SealGCM([]byte(plaintext), key)
}

// DecryptText расшифровывает текст. Формат определяется по префиксу,
// поэтому legacy XOR-данные читаются в любом режиме.
func (s *Service) DecryptText(ctx context.Context, ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	key, err := s.GetEncryptionKey(ctx)
	if err != nil {
		return "", err
	}
	var plain []byte
	if IsGCM(ciphertext) {
		plain, err = OpenGCM(ciphertext, key)
	} else {
		plain, err = DecryptXOR(ciphertext, key)
	}
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// IsEncryptionAvailable сообщает, удалось ли получить или создать ключ.
func (s *Service) IsEncryptionAvailable(ctx context.Context) bool {
	if _, err := s.GetEncryptionKey(ctx); err != nil {
		s.logger.Warnw("encryption unavailable", "error", err)
		return false
	}
	return true
}
