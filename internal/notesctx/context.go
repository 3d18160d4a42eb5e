// Package notesctx — единый источник правды для UI: кэш заметок и категорий
// поверх хранилища документов, плюс переходы блокировки через биометрию и шифрование.
//
// Любая мутация идёт по схеме «записать в хранилище, полностью перечитать кэш,
// вернуть результат».
package notesctx

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"NotesAI/internal/biometric"
	"NotesAI/internal/model"
	"NotesAI/internal/storage"
)

// Cipher — то, что контексту нужно от сервиса шифрования.
type Cipher interface {
	EncryptText(ctx context.Context, plaintext string) (string, error)
	DecryptText(ctx context.Context, ciphertext string) (string, error)
	IsEncryptionAvailable(ctx context.Context) bool
}

// Authenticator — то, что контексту нужно от биометрического шлюза.
type Authenticator interface {
	AuthenticateWithBiometrics(ctx context.Context, reason string) biometric.Result
}

// AuthError — операция над заблокированной заметкой отклонена шлюзом.
type AuthError struct {
	Result biometric.Result
}

func (e *AuthError) Error() string {
	if e.Result.Error == "" {
		return biometric.MsgFailed
	}
	return e.Result.Error
}

// Cancelled reports whether the user dismissed the prompt.
func (e *AuthError) Cancelled() bool { return e.Result.Cancelled() }

// IsAuthError — ошибка вызвана отказом в аутентификации.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// Context — кэш и оркестрация. Нулевое значение не готово к работе, используйте New.
type Context struct {
	store  *storage.Store
	cipher Cipher
	auth   Authenticator
	logger *zap.SugaredLogger

	mu         sync.RWMutex
	notes      []model.Note
	categories []model.Category
	counts     map[string]int
	loading    bool
}

// New собирает контекст. Кэш пуст до вызова Load.
func New(store *storage.Store, cipher Cipher, auth Authenticator, logger *zap.SugaredLogger) *Context {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Context{
		store:      store,
		cipher:     cipher,
		auth:       auth,
		logger:     logger,
		notes:      []model.Note{},
		categories: []model.Category{},
		counts:     map[string]int{},
	}
}

// Load инициализирует хранилище и заполняет кэш.
func (c *Context) Load(ctx context.Context) error {
	c.setLoading(true)
	defer c.setLoading(false)

	if err := c.store.InitializeStorage(ctx); err != nil {
		return err
	}
	if err := c.RefreshCategories(ctx); err != nil {
		return err
	}
	return c.RefreshNotes(ctx)
}

func (c *Context) setLoading(v bool) {
	c.mu.Lock()
	c.loading = v
	c.mu.Unlock()
}

// Loading сообщает, идёт ли начальная загрузка.
func (c *Context) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// RefreshNotes перечитывает все заметки и счётчики категорий.
func (c *Context) RefreshNotes(ctx context.Context) error {
	notes, err := c.store.GetAllNotes(ctx)
	if err != nil {
		return err
	}
	counts, err := c.store.GetCategoryNoteCounts(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.notes = notes
	c.counts = counts
	c.mu.Unlock()
	return nil
}

// RefreshCategories перечитывает категории и счётчики.
func (c *Context) RefreshCategories(ctx context.Context) error {
	cats, err := c.store.GetAllCategories(ctx)
	if err != nil {
		return err
	}
	counts, err := c.store.GetCategoryNoteCounts(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.categories = cats
	c.counts = counts
	c.mu.Unlock()
	return nil
}

// refreshNotes — обновление после успешной записи. Запись уже состоялась,
// поэтому ошибка перечитывания только логируется.
func (c *Context) refreshNotes(ctx context.Context) {
	if err := c.RefreshNotes(ctx); err != nil {
		c.logger.Errorw("refresh notes failed", "error", err)
	}
}

func (c *Context) refreshAll(ctx context.Context) {
	if err := c.RefreshCategories(ctx); err != nil {
		c.logger.Errorw("refresh categories failed", "error", err)
	}
	c.refreshNotes(ctx)
}

// Notes returns a snapshot of the cached notes.
func (c *Context) Notes() []model.Note {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Note, len(c.notes))
	for i, n := range c.notes {
		out[i] = n.Clone()
	}
	return out
}

// Categories returns a snapshot of the cached categories.
func (c *Context) Categories() []model.Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.Category{}, c.categories...)
}

// CategoryCounts returns a snapshot of the per-category active note counts.
func (c *Context) CategoryCounts() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// Stats проксирует счётчики хранилища.
func (c *Context) Stats() storage.Stats { return c.store.Stats() }

// GetNoteByID читает заметку напрямую из хранилища.
func (c *Context) GetNoteByID(ctx context.Context, id string) (*model.Note, error) {
	return c.store.GetNoteByID(ctx, id)
}

// GetCategoryByID читает категорию напрямую из хранилища.
func (c *Context) GetCategoryByID(ctx context.Context, id string) (*model.Category, error) {
	return c.store.GetCategoryByID(ctx, id)
}

// CreateNote — passthrough с обновлением кэша.
func (c *Context) CreateNote(ctx context.Context, in model.NoteInput) (*model.Note, error) {
	n, err := c.store.CreateNote(ctx, in)
	if err != nil {
		return nil, err
	}
	c.refreshNotes(ctx)
	return n, nil
}

// UpdateNote применяет патч и обновляет кэш. Новое тело заблокированной заметки
// требует аутентификации и шифруется перед записью (при недоступном шифровании
// заметка остаётся мягко заблокированной). Патч пишется одной условной записью:
// если заметку изменили во время запроса, возвращается storage.ErrNoteChanged.
func (c *Context) UpdateNote(ctx context.Context, id string, patch model.NotePatch) (*model.Note, error) {
	if patch.Body == nil {
		return c.afterNoteWrite(ctx)(c.store.UpdateNote(ctx, id, patch))
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	note, err := c.store.GetNoteByID(ctx, id)
	if err != nil || note == nil {
		return nil, err
	}
	soft := false
	if note.IsLocked {
		if res := c.authenticate(ctx, ReasonEdit); !res.Success {
			return nil, &AuthError{Result: res}
		}
		body, s := c.encryptOrSoft(ctx, id, *patch.Body)
		patch.Body, soft = &body, s
	}
	return c.afterNoteWrite(ctx)(c.store.UpdateNoteIf(ctx, id, note.UpdatedAt, patch, soft))
}

// RestoreNote — passthrough с обновлением кэша.
func (c *Context) RestoreNote(ctx context.Context, id string) (*model.Note, error) {
	return c.afterNoteWrite(ctx)(c.store.RestoreNote(ctx, id))
}

// ToggleFavorite — passthrough с обновлением кэша.
func (c *Context) ToggleFavorite(ctx context.Context, id string) (*model.Note, error) {
	return c.afterNoteWrite(ctx)(c.store.ToggleFavorite(ctx, id))
}

// ToggleArchive — passthrough с обновлением кэша.
func (c *Context) ToggleArchive(ctx context.Context, id string) (*model.Note, error) {
	return c.afterNoteWrite(ctx)(c.store.ToggleArchive(ctx, id))
}

// SetNoteCategory — passthrough с обновлением кэша.
func (c *Context) SetNoteCategory(ctx context.Context, id string, categoryID *string) (*model.Note, error) {
	return c.afterNoteWrite(ctx)(c.store.SetNoteCategory(ctx, id, categoryID))
}

// afterNoteWrite обновляет кэш, если запись что-то изменила.
func (c *Context) afterNoteWrite(ctx context.Context) func(*model.Note, error) (*model.Note, error) {
	return func(n *model.Note, err error) (*model.Note, error) {
		if err != nil {
			return nil, err
		}
		if n != nil {
			c.refreshNotes(ctx)
		}
		return n, nil
	}
}

// DeleteNote переносит заметку в корзину. Заблокированная заметка требует аутентификации.
func (c *Context) DeleteNote(ctx context.Context, id string) (*model.Note, error) {
	if err := c.authorizeLockedDelete(ctx, id); err != nil {
		return nil, err
	}
	return c.afterNoteWrite(ctx)(c.store.DeleteNote(ctx, id))
}

// PermanentlyDeleteNote удаляет заметку безвозвратно. Заблокированная заметка требует аутентификации.
func (c *Context) PermanentlyDeleteNote(ctx context.Context, id string) (bool, error) {
	if err := c.authorizeLockedDelete(ctx, id); err != nil {
		return false, err
	}
	ok, err := c.store.PermanentlyDeleteNote(ctx, id)
	if err != nil {
		return false, err
	}
	if ok {
		c.refreshNotes(ctx)
	}
	return ok, nil
}

// EmptyTrash очищает корзину. Если в ней есть заблокированные заметки, запрашивается
// одна аутентификация на всю операцию.
func (c *Context) EmptyTrash(ctx context.Context) (int, error) {
	notes, err := c.store.GetAllNotes(ctx)
	if err != nil {
		return 0, err
	}
	for _, n := range notes {
		if n.IsDeleted && n.IsLocked {
			if res := c.authenticate(ctx, ReasonDelete); !res.Success {
				return 0, &AuthError{Result: res}
			}
			break
		}
	}
	purged, err := c.store.EmptyTrash(ctx)
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		c.refreshNotes(ctx)
	}
	return purged, nil
}

func (c *Context) authorizeLockedDelete(ctx context.Context, id string) error {
	n, err := c.store.GetNoteByID(ctx, id)
	if err != nil {
		return err
	}
	if n == nil || !n.IsLocked {
		return nil
	}
	if res := c.authenticate(ctx, ReasonDelete); !res.Success {
		return &AuthError{Result: res}
	}
	return nil
}

// CreateCategory — passthrough; обновляет обе коллекции.
func (c *Context) CreateCategory(ctx context.Context, in model.CategoryInput) (*model.Category, error) {
	cat, err := c.store.CreateCategory(ctx, in)
	if err != nil {
		return nil, err
	}
	c.refreshAll(ctx)
	return cat, nil
}

// UpdateCategory — passthrough; обновляет обе коллекции.
func (c *Context) UpdateCategory(ctx context.Context, id string, patch model.CategoryPatch) (*model.Category, error) {
	cat, err := c.store.UpdateCategory(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if cat != nil {
		c.refreshAll(ctx)
	}
	return cat, nil
}

// DeleteCategory — passthrough; обновляет обе коллекции.
func (c *Context) DeleteCategory(ctx context.Context, id string, reassignTo *string) (bool, int, error) {
	found, reassigned, err := c.store.DeleteCategory(ctx, id, reassignTo)
	if err != nil {
		return false, reassigned, err
	}
	if found {
		c.refreshAll(ctx)
	}
	return found, reassigned, nil
}

// UpdateCategoriesOrder — passthrough; обновляет обе коллекции.
func (c *Context) UpdateCategoriesOrder(ctx context.Context, orderedIDs []string) ([]model.Category, error) {
	cats, err := c.store.UpdateCategoriesOrder(ctx, orderedIDs)
	if err != nil {
		return nil, err
	}
	c.refreshAll(ctx)
	return cats, nil
}

// Watch перечитывает кэш, когда бэкенд сообщает о внешних изменениях ключей.
// Блокируется до отмены ctx или закрытия changes.
func (c *Context) Watch(ctx context.Context, changes <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case key, ok := <-changes:
			if !ok {
				return
			}
			notes, cats := classify(key)
			// схлопываем пачку событий в одно перечитывание
		drain:
			for {
				select {
				case k, ok := <-changes:
					if !ok {
						break drain
					}
					n, ct := classify(k)
					notes, cats = notes || n, cats || ct
				default:
					break drain
				}
			}
			switch {
			case cats:
				c.refreshAll(ctx)
			case notes:
				c.refreshNotes(ctx)
			}
		}
	}
}

func classify(key string) (notes, categories bool) {
	switch {
	case strings.HasPrefix(key, "note"):
		return true, false
	case strings.HasPrefix(key, "categor"):
		return false, true
	}
	return false, false
}
