package notesctx

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"NotesAI/internal/biometric"
	"NotesAI/internal/model"
	"NotesAI/internal/storage"
)

// Причины, показываемые в биометрическом запросе.
const (
	ReasonLock   = "Authenticate to lock note"
	ReasonUnlock = "Authenticate to unlock note"
	ReasonView   = "Authenticate to view note"
	ReasonDelete = "Authenticate to delete locked note"
	ReasonEdit   = "Authenticate to edit locked note"
)

// Тексты ошибок результатов.
const (
	MsgNoteNotFound = "Note not found"
	MsgNoteChanged  = "Note changed during authentication"
)

// LockResult — итог ToggleLock.
type LockResult struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Note    *model.Note `json:"note,omitempty"`
	// SoftLocked — заметка помечена заблокированной, но тело не зашифровано.
	SoftLocked bool `json:"soft_locked,omitempty"`
}

// Cancelled reports whether the failure was a user cancellation.
func (r LockResult) Cancelled() bool {
	return !r.Success && biometric.IsCancelMessage(r.Error)
}

// UnlockResult — итог UnlockNote.
type UnlockResult struct {
	Success       bool   `json:"success"`
	Error         string `json:"error,omitempty"`
	DecryptedBody string `json:"decrypted_body,omitempty"`
}

// Cancelled reports whether the failure was a user cancellation.
func (r UnlockResult) Cancelled() bool {
	return !r.Success && biometric.IsCancelMessage(r.Error)
}

// ToggleLock переключает блокировку заметки после успешной аутентификации.
//
// Unlocked → Locked: тело шифруется; если шифрование недоступно или упало,
// заметка блокируется «мягко» (тело не меняется).
// Locked → Unlocked: тело расшифровывается; при ошибке расшифровки хранимое
// тело считается открытым текстом.
// Отказ или отмена аутентификации ничего не меняют.
func (c *Context) ToggleLock(ctx context.Context, id string) LockResult {
	before, err := c.store.GetNoteByID(ctx, id)
	if err != nil {
		return LockResult{Error: err.Error()}
	}
	if before == nil {
		return LockResult{Error: MsgNoteNotFound}
	}

	reason := ReasonLock
	if before.IsLocked {
		reason = ReasonUnlock
	}
	if res := c.authenticate(ctx, reason); !res.Success {
		return LockResult{Error: res.Error}
	}

	// запрос мог длиться долго: перечитываем заметку перед записью
	note, err := c.store.GetNoteByID(ctx, id)
	if err != nil {
		return LockResult{Error: err.Error()}
	}
	if note == nil {
		return LockResult{Error: MsgNoteNotFound}
	}
	if note.IsLocked != before.IsLocked {
		return LockResult{Error: MsgNoteChanged}
	}

	var (
		body string
		soft bool
	)
	if note.IsLocked {
		body = c.lockedBody(ctx, note)
	} else {
		body, soft = c.encryptOrSoft(ctx, id, note.Body)
	}

	updated, err := c.store.SetLocked(ctx, id, note.UpdatedAt, !note.IsLocked, soft, body)
	if errors.Is(err, storage.ErrNoteChanged) {
		return LockResult{Error: MsgNoteChanged}
	}
	if err != nil {
		return LockResult{Error: err.Error()}
	}
	if updated == nil {
		return LockResult{Error: MsgNoteNotFound}
	}
	c.logger.Infow("note lock toggled", "id", id, "locked", updated.IsLocked, "soft", soft)
	c.refreshNotes(ctx)
	return LockResult{Success: true, Note: updated, SoftLocked: soft}
}

// UnlockNote возвращает расшифрованное тело заблокированной заметки для
// просмотра. Хранилище не меняется: заметка остаётся заблокированной.
func (c *Context) UnlockNote(ctx context.Context, id string) UnlockResult {
	note, err := c.store.GetNoteByID(ctx, id)
	if err != nil {
		return UnlockResult{Error: err.Error()}
	}
	if note == nil {
		return UnlockResult{Error: MsgNoteNotFound}
	}
	if !note.IsLocked {
		return UnlockResult{Success: true, DecryptedBody: note.Body}
	}
	if res := c.authenticate(ctx, ReasonView); !res.Success {
		return UnlockResult{Error: res.Error}
	}
	return UnlockResult{Success: true, DecryptedBody: c.lockedBody(ctx, note)}
}

// SaveLockedNoteBody сохраняет открытый текст тела заметки. Для заблокированной
// заметки запрашивается аутентификация, тело шифруется и блокировка остаётся.
func (c *Context) SaveLockedNoteBody(ctx context.Context, id, plaintext string) (*model.Note, error) {
	return c.UpdateNote(ctx, id, model.NotePatch{Body: &plaintext})
}

// lockedBody — открытый текст заблокированной заметки. Тело мягкой блокировки
// не шифровалось и возвращается как есть.
func (c *Context) lockedBody(ctx context.Context, note *model.Note) string {
	if note.SoftLocked {
		return note.Body
	}
	return c.decryptOrRaw(ctx, note.ID, note.Body)
}

// authenticate вызывает шлюз; отсутствие шлюза — отказ.
func (c *Context) authenticate(ctx context.Context, reason string) (res biometric.Result) {
	if c.auth == nil {
		return biometric.Result{Error: biometric.MsgNoHardware}
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Errorw("authenticator panicked", "reason", reason, "panic", r)
			res = biometric.Result{Error: fmt.Sprintf("%s: %v", biometric.MsgFailed, r)}
		}
	}()
	return c.auth.AuthenticateWithBiometrics(ctx, reason)
}

// encryptOrSoft шифрует тело. Любая проблема с шифрованием даёт «мягкую» блокировку:
// тело возвращается как есть, второй результат — true.
func (c *Context) encryptOrSoft(ctx context.Context, id, plain string) (string, bool) {
	if c.cipher == nil || !c.safeAvailable(ctx) {
		c.logger.Warnw("encryption unavailable, soft-locking note", "id", id)
		return plain, true
	}
	enc, err := c.safeEncrypt(ctx, plain)
	if err != nil {
		c.logger.Warnw("encrypt failed, soft-locking note", "id", id, "error", err)
		return plain, true
	}
	return enc, false
}

// decryptOrRaw расшифровывает тело; при ошибке (или невалидном UTF-8 на выходе,
// что бывает при XOR-расшифровке открытого текста) возвращает хранимое тело.
func (c *Context) decryptOrRaw(ctx context.Context, id, stored string) string {
	if c.cipher == nil {
		return stored
	}
	plain, err := c.safeDecrypt(ctx, stored)
	if err == nil && !utf8.ValidString(plain) {
		err = errors.New("decrypted body is not valid UTF-8")
	}
	if err != nil {
		c.logger.Warnw("decrypt failed, treating stored body as plaintext", "id", id, "error", err)
		return stored
	}
	return plain
}

func (c *Context) safeAvailable(ctx context.Context) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Errorw("encryption availability check panicked", "panic", r)
			ok = false
		}
	}()
	return c.cipher.IsEncryptionAvailable(ctx)
}

func (c *Context) safeEncrypt(ctx context.Context, plain string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("encrypt panicked: %v", r)
		}
	}()
	return c.cipher.EncryptText(ctx, plain)
}

func (c *Context) safeDecrypt(ctx context.Context, stored string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decrypt panicked: %v", r)
		}
	}()
	return c.cipher.DecryptText(ctx, stored)
}
