// Package storage — хранилище документов (заметки и категории) поверх key-value хранилища.
//
// Раскладка ключей:
//
//	notes:list        JSON-массив id заметок
//	note:<id>         JSON заметки
//	categories:list   JSON-массив id категорий
//	category:<id>     JSON категории
//
// Порядок записи выбран так, чтобы прерывание между двумя записями оставляло
// в худшем случае «осиротевшую» сущность, а не ссылку индекса в никуда:
// при создании сначала пишется сущность, потом индекс; при удалении сначала
// индекс, потом сущность.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"NotesAI/internal/kv"
)

// Ключи индексов и префиксы сущностей.
const (
	NotesListKey      = "notes:list"
	CategoriesListKey = "categories:list"
	NotePrefix        = "note:"
	CategoryPrefix    = "category:"
)

const (
	collectionNotes      = "notes"
	collectionCategories = "categories"
	maxIDAttempts        = 5
)

var (
	// ErrUnknownCategory — в порядке категорий указан id, которого нет в хранилище.
	ErrUnknownCategory = errors.New("unknown category id")
	// ErrDuplicateCategory — id категории указан в порядке дважды.
	ErrDuplicateCategory = errors.New("duplicate category id")
	// ErrNoteChanged — заметка изменилась после чтения, условная запись отклонена.
	ErrNoteChanged = errors.New("note changed concurrently")
	// ErrIDCollision — не удалось подобрать свободный id.
	ErrIDCollision = errors.New("could not allocate a unique id")
)

// Stats — счётчики «самовосстанавливающихся» чтений.
type Stats struct {
	OrphanedIndexEntries int64
	CorruptEntities      int64
}

// Store — хранилище документов. Мутации одной коллекции сериализуются
// её мьютексом; при необходимости взять оба мьютекса порядок всегда
// «категории, затем заметки».
type Store struct {
	kv     kv.Store
	logger *zap.SugaredLogger

	now   func() time.Time
	newID func() string

	categoriesMu sync.RWMutex
	notesMu      sync.RWMutex

	orphans atomic.Int64
	corrupt atomic.Int64
}

// New создаёт хранилище документов поверх kv.
func New(store kv.Store, logger *zap.SugaredLogger) *Store {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Store{
		kv:     store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// InitializeStorage гарантирует наличие индексных ключей. Идемпотентна;
// держит оба мьютекса на запись, поэтому чтения не видят частичной инициализации.
func (s *Store) InitializeStorage(ctx context.Context) error {
	s.categoriesMu.Lock()
	defer s.categoriesMu.Unlock()
	s.notesMu.Lock()
	defer s.notesMu.Unlock()

	for _, key := range []string{NotesListKey, CategoriesListKey} {
		_, ok, err := s.kv.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("initialize %s: %w", key, err)
		}
		if ok {
			continue
		}
		if err := s.kv.Set(ctx, key, "[]"); err != nil {
			return fmt.Errorf("initialize %s: %w", key, err)
		}
	}
	return nil
}

// Stats returns the orphan/corruption counters accumulated by read paths.
func (s *Store) Stats() Stats {
	return Stats{
		OrphanedIndexEntries: s.orphans.Load(),
		CorruptEntities:      s.corrupt.Load(),
	}
}

// readIDs читает индекс; отсутствующий индекс — пустой список.
func (s *Store) readIDs(ctx context.Context, key string) ([]string, error) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read index %s: %w", key, err)
	}
	if !ok || raw == "" {
		return []string{}, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("decode index %s: %w", key, err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (s *Store) writeIDs(ctx context.Context, key string, ids []string) error {
	b, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, key, string(b)); err != nil {
		return fmt.Errorf("write index %s: %w", key, err)
	}
	return nil
}

// readEntity читает и декодирует сущность. Отсутствие — (false, nil).
// Битый JSON логируется, учитывается в счётчике и тоже считается отсутствием.
func (s *Store) readEntity(ctx context.Context, collection, key string, dst any) (bool, error) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.corrupt.Add(1)
		s.logger.Warnw("corrupt entity skipped", "collection", collection, "key", key, "error", err)
		return false, nil
	}
	return true, nil
}

func (s *Store) writeEntity(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, key, string(b)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *Store) entityExists(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	return ok, nil
}

func (s *Store) orphan(collection, id string) {
	s.orphans.Add(1)
	s.logger.Warnw("orphaned index entry skipped", "collection", collection, "id", id)
}

// allocateID подбирает id, под которым ещё нет сущности.
func (s *Store) allocateID(ctx context.Context, prefix string) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := s.newID()
		exists, err := s.entityExists(ctx, prefix+id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
		s.logger.Warnw("id collision, regenerating", "prefix", prefix, "id", id)
	}
	return "", ErrIDCollision
}

// appendID добавляет id в индекс, если его там ещё нет.
func appendID(ids []string, id string) []string {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

// removeID возвращает индекс без id и признак того, что id там был.
func removeID(ids []string, id string) ([]string, bool) {
	out := make([]string, 0, len(ids))
	found := false
	for _, v := range ids {
		if v == id {
			found = true
			continue
		}
		out = append(out, v)
	}
	return out, found
}
