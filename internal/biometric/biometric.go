// Package biometric оборачивает платформенный запрос биометрии (или кода доступа)
// перед операциями над заблокированными заметками.
package biometric

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ErrCancelled возвращается платформой, если пользователь закрыл запрос.
var ErrCancelled = errors.New("authentication cancelled")

// Тексты ошибок результата. Отмена распознаётся по подстроке "cancel".
const (
	MsgNoHardware  = "Biometric hardware not available"
	MsgNotEnrolled = "No biometrics enrolled"
	MsgCancelled   = "Authentication cancelled"
	MsgFailed      = "Authentication failed"
)

// Platform — порт к платформенному API аутентификации.
type Platform interface {
	// HasHardware сообщает, есть ли на устройстве сенсор (или иной способ ввода).
	HasHardware(ctx context.Context) bool
	// IsEnrolled сообщает, зарегистрированы ли учётные данные пользователя.
	IsEnrolled(ctx context.Context) bool
	// Prompt показывает запрос с причиной reason и ждёт результата.
	// Отмена пользователем — ErrCancelled.
	Prompt(ctx context.Context, reason string) error
}

// Result — итог аутентификации.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Cancelled reports whether the failure was a user cancellation rather than a real failure.
func (r Result) Cancelled() bool {
	return !r.Success && IsCancelMessage(r.Error)
}

// IsCancelMessage — регистронезависимый поиск подстроки "cancel".
func IsCancelMessage(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "cancel")
}

// Gate — биометрический шлюз.
type Gate struct {
	platform Platform
	logger   *zap.SugaredLogger
}

// NewGate создаёт шлюз поверх платформы.
func NewGate(p Platform, logger *zap.SugaredLogger) *Gate {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Gate{platform: p, logger: logger}
}

// IsBiometricAvailable — есть оборудование И зарегистрированы учётные данные.
func (g *Gate) IsBiometricAvailable(ctx context.Context) bool {
	if g.platform == nil {
		return false
	}
	return g.platform.HasHardware(ctx) && g.platform.IsEnrolled(ctx)
}

// AuthenticateWithBiometrics запрашивает аутентификацию. Любой путь неудачи,
// включая панику платформенного кода, превращается в Result{Success:false}.
func (g *Gate) AuthenticateWithBiometrics(ctx context.Context, reason string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Errorw("biometric prompt panicked", "reason", reason, "panic", r)
			res = Result{Error: fmt.Sprintf("%s: %v", MsgFailed, r)}
		}
	}()

	if g.platform == nil || !g.platform.HasHardware(ctx) {
		return Result{Error: MsgNoHardware}
	}
	if !g.platform.IsEnrolled(ctx) {
		return Result{Error: MsgNotEnrolled}
	}
	err := g.platform.Prompt(ctx, reason)
	switch {
	case err == nil:
		return Result{Success: true}
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		g.logger.Infow("authentication cancelled", "reason", reason)
		return Result{Error: MsgCancelled}
	default:
		g.logger.Warnw("authentication failed", "reason", reason, "error", err)
		return Result{Error: fmt.Sprintf("%s: %v", MsgFailed, err)}
	}
}
