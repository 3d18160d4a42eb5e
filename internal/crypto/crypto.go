// Package crypto шифрует тела заметок ключом, который хранится в защищённом хранилище устройства.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// keyLen — длина секрета устройства и ключа AES‑256 (в байтах).
const keyLen = 32

// gcmPrefix помечает шифртексты формата AES‑GCM; всё остальное считается legacy XOR.
const gcmPrefix = "v2:"

var (
	// ErrDecrypt — шифртекст повреждён или зашифрован другим ключом.
	ErrDecrypt = errors.New("decrypt failed")
	// ErrInvalidKey — ключ пустой или неправильной длины.
	ErrInvalidKey = errors.New("invalid key length")
)

// NewKey генерирует случайный ключ из crypto/rand.
func NewKey() ([]byte, error) {
	key := make([]byte, keyLen)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// XOR применяет циклически повторённый ключ к данным. Операция самообратна.
func XOR(data, key []byte) []byte {
	out := make([]byte, len(data))
	for i := range data {
		out[i] = data[i] ^ key[i%len(key)]
	}
	return out
}

// EncryptXOR — legacy-формат: base64(plain XOR key).
func EncryptXOR(plain, key []byte) (string, error) {
	if len(key) == 0 {
		return "", ErrInvalidKey
	}
	return base64.StdEncoding.EncodeToString(XOR(plain, key)), nil
}

// DecryptXOR — обратная операция к EncryptXOR.
func DecryptXOR(payload string, key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, ErrInvalidKey
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return XOR(raw, key), nil
}

// bodyKey выводит ключ AES из секрета устройства (HKDF-SHA256).
func bodyKey(secret []byte) ([]byte, error) {
	if len(secret) != keyLen {
		return nil, ErrInvalidKey
	}
	out := make([]byte, keyLen)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte("notes-body")), out); err != nil {
		return nil, err
	}
	return out, nil
}

func newGCM(secret []byte) (cipher.AEAD, error) {
	k, err := bodyKey(secret)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// SealGCM шифрует данные plain с помощью AES‑GCM.
// Возвращает "v2:" + base64(nonce || шифртекст).
func SealGCM(plain, secret []byte) (string, error) {
	gcm, err := newGCM(secret)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	out := gcm.Seal(nonce, nonce, plain, nil)
	return gcmPrefix + base64.StdEncoding.EncodeToString(out), nil
}

// OpenGCM расшифровывает результат SealGCM.
func OpenGCM(payload string, secret []byte) ([]byte, error) {
	gcm, err := newGCM(secret)
	if err != nil {
		return nil, err
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(payload, gcmPrefix))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	if len(raw) < gcm.NonceSize() {
		return nil, fmt.Errorf("%w: payload too short", ErrDecrypt)
	}
	nonce, sealed := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return plain, nil
}

// IsGCM reports whether the payload carries the AES-GCM format marker.
func IsGCM(payload string) bool {
	return strings.HasPrefix(payload, gcmPrefix)
}
