package biometric

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"NotesAI/internal/secret"
)

// PasscodeKey — имя секрета с bcrypt-хэшем кода доступа.
const PasscodeKey = "notes_passcode_hash"

// MinPasscodeLen — минимальная длина кода доступа.
const MinPasscodeLen = 4

// ErrPasscodeMismatch — введён неверный код.
var ErrPasscodeMismatch = errors.New("passcode mismatch")

// PasscodePlatform — запасной вариант биометрии: код доступа, введённый в терминале.
// Хэш кода хранится в защищённом хранилище секретов.
type PasscodePlatform struct {
	secrets secret.Store

	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

var _ Platform = (*PasscodePlatform)(nil)

// NewPasscodePlatform создаёт платформу, читающую код из in и пишущую приглашение в out.
func NewPasscodePlatform(secrets secret.Store, in io.Reader, out io.Writer) *PasscodePlatform {
	p := &PasscodePlatform{secrets: secrets, out: out}
	if in != nil {
		p.in = bufio.NewReader(in)
	}
	return p
}

// HasHardware — ввод кода возможен, если есть откуда читать.
func (p *PasscodePlatform) HasHardware(context.Context) bool {
	return p.in != nil
}

// IsEnrolled — код доступа уже задан.
func (p *PasscodePlatform) IsEnrolled(ctx context.Context) bool {
	if p.secrets == nil {
		return false
	}
	_, ok, err := p.secrets.GetItem(ctx, PasscodeKey)
	return err == nil && ok
}

// Enroll задаёт (или меняет) код доступа.
func (p *PasscodePlatform) Enroll(ctx context.Context, passcode string) error {
	if len(passcode) < MinPasscodeLen {
		return fmt.Errorf("passcode must be at least %d characters", MinPasscodeLen)
	}
	if p.secrets == nil {
		return errors.New("secret store is not configured")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return p.secrets.SetItem(ctx, PasscodeKey, string(hash))
}

// Prompt печатает причину и читает код. Пустая строка или EOF — отмена.
func (p *PasscodePlatform) Prompt(ctx context.Context, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.in == nil {
		return errors.New("no passcode input")
	}
	hash, ok, err := p.secrets.GetItem(ctx, PasscodeKey)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("passcode is not set")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.out != nil {
		fmt.Fprintf(p.out, "%s\nPasscode (empty to cancel): ", reason)
	}
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return ErrCancelled
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(line)) != nil {
		return ErrPasscodeMismatch
	}
	return nil
}

// StaticPlatform — платформа с заранее заданным ответом (тесты, режим auth=none).
type StaticPlatform struct {
	Hardware bool
	Enrolled bool
	Err      error
}

var _ Platform = StaticPlatform{}

// AlwaysAllow returns a platform on which every prompt succeeds.
func AlwaysAllow() StaticPlatform {
	return StaticPlatform{Hardware: true, Enrolled: true}
}

func (s StaticPlatform) HasHardware(context.Context) bool { return s.Hardware }
func (s StaticPlatform) IsEnrolled(context.Context) bool  { return s.Enrolled }
func (s StaticPlatform) Prompt(context.Context, string) error {
	return s.Err
}
