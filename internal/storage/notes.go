package storage

import (
	"context"
	"time"

	"NotesAI/internal/model"
)

func noteKey(id string) string { return NotePrefix + id }

// CreateNote создаёт заметку: сначала пишет сущность, затем добавляет id в индекс.
func (s *Store) CreateNote(ctx context.Context, in model.NoteInput) (*model.Note, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	s.notesMu.Lock()
	defer s.notesMu.Unlock()

	id, err := s.allocateID(ctx, NotePrefix)
	if err != nil {
		return nil, err
	}
	now := s.now()
	n := model.Note{
		ID:              id,
		Title:           in.Title,
		Body:            in.Body,
		CategoryID:      in.CategoryID,
		Color:           in.Color,
		IsFavorite:      in.IsFavorite,
		Images:          append([]string{}, in.Images...),
		AudioRecordings: append([]string{}, in.AudioRecordings...),
		ChecklistItems:  append([]model.ChecklistItem{}, in.ChecklistItems...),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.writeEntity(ctx, noteKey(id), n); err != nil {
		return nil, err
	}
	ids, err := s.readIDs(ctx, NotesListKey)
	if err != nil {
		return nil, err
	}
	if err := s.writeIDs(ctx, NotesListKey, appendID(ids, id)); err != nil {
		return nil, err
	}
	return &n, nil
}

// loadNotes читает все заметки по индексу без блокировки (вызывающий держит мьютекс).
func (s *Store) loadNotes(ctx context.Context) ([]model.Note, error) {
	ids, err := s.readIDs(ctx, NotesListKey)
	if err != nil {
		return nil, err
	}
	notes := make([]model.Note, 0, len(ids))
	for _, id := range ids {
		var n model.Note
		ok, err := s.readEntity(ctx, collectionNotes, noteKey(id), &n)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.orphan(collectionNotes, id)
			continue
		}
		notes = append(notes, n)
	}
	return notes, nil
}

// GetAllNotes возвращает все заметки индекса. Id без сущности пропускаются.
func (s *Store) GetAllNotes(ctx context.Context) ([]model.Note, error) {
	s.notesMu.RLock()
	defer s.notesMu.RUnlock()
	return s.loadNotes(ctx)
}

// GetNoteByID возвращает заметку или nil, если её нет.
func (s *Store) GetNoteByID(ctx context.Context, id string) (*model.Note, error) {
	s.notesMu.RLock()
	defer s.notesMu.RUnlock()
	return s.readNote(ctx, id)
}

func (s *Store) readNote(ctx context.Context, id string) (*model.Note, error) {
	var n model.Note
	ok, err := s.readEntity(ctx, collectionNotes, noteKey(id), &n)
	if err != nil || !ok {
		return nil, err
	}
	return &n, nil
}

// mutateNote — read-modify-write под мьютексом заметок. Для отсутствующей заметки — nil.
func (s *Store) mutateNote(ctx context.Context, id string, fn func(n *model.Note)) (*model.Note, error) {
	return s.mutateNoteWhen(ctx, id, nil, fn)
}

// mutateNoteIf — как mutateNote, но только если updated_at заметки равен expected.
// Иначе ErrNoteChanged и заметка не трогается.
func (s *Store) mutateNoteIf(ctx context.Context, id string, expected time.Time, fn func(n *model.Note)) (*model.Note, error) {
	return s.mutateNoteWhen(ctx, id, func(n *model.Note) error {
		if !n.UpdatedAt.Equal(expected) {
			return ErrNoteChanged
		}
		return nil
	}, fn)
}

func (s *Store) mutateNoteWhen(ctx context.Context, id string, check func(n *model.Note) error, fn func(n *model.Note)) (*model.Note, error) {
	s.notesMu.Lock()
	defer s.notesMu.Unlock()
	n, err := s.readNote(ctx, id)
	if err != nil || n == nil {
		return nil, err
	}
	if check != nil {
		if err := check(n); err != nil {
			return nil, err
		}
	}
	fn(n)
	n.UpdatedAt = s.now()
	if err := s.writeEntity(ctx, noteKey(id), n); err != nil {
		return nil, err
	}
	return n, nil
}

// UpdateNote применяет частичное обновление. Для отсутствующего id возвращает nil без ошибки.
func (s *Store) UpdateNote(ctx context.Context, id string, patch model.NotePatch) (*model.Note, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	return s.mutateNote(ctx, id, patch.Apply)
}

// UpdateNoteIf применяет патч, если заметка не менялась с момента чтения
// (updated_at == expected). soft выставляет признак мягкой блокировки
// заблокированной заметки: тело патча записано открытым текстом.
func (s *Store) UpdateNoteIf(ctx context.Context, id string, expected time.Time, patch model.NotePatch, soft bool) (*model.Note, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	return s.mutateNoteIf(ctx, id, expected, func(n *model.Note) {
		patch.Apply(n)
		if n.IsLocked && patch.Body != nil {
			n.SoftLocked = soft
		}
	})
}

// DeleteNote — мягкое удаление (в корзину).
func (s *Store) DeleteNote(ctx context.Context, id string) (*model.Note, error) {
	return s.mutateNote(ctx, id, func(n *model.Note) { n.IsDeleted = true })
}

// RestoreNote возвращает заметку из корзины.
func (s *Store) RestoreNote(ctx context.Context, id string) (*model.Note, error) {
	return s.mutateNote(ctx, id, func(n *model.Note) { n.IsDeleted = false })
}

// ToggleFavorite переключает флаг избранного.
func (s *Store) ToggleFavorite(ctx context.Context, id string) (*model.Note, error) {
	return s.mutateNote(ctx, id, func(n *model.Note) { n.IsFavorite = !n.IsFavorite })
}

// ToggleArchive переключает флаг архива.
func (s *Store) ToggleArchive(ctx context.Context, id string) (*model.Note, error) {
	return s.mutateNote(ctx, id, func(n *model.Note) { n.IsArchived = !n.IsArchived })
}

// SetNoteCategory переносит заметку в категорию (nil — без категории).
func (s *Store) SetNoteCategory(ctx context.Context, id string, categoryID *string) (*model.Note, error) {
	return s.mutateNote(ctx, id, func(n *model.Note) {
		if categoryID == nil {
			n.CategoryID = nil
			return
		}
		v := *categoryID
		n.CategoryID = &v
	})
}

// SetLocked атомарно выставляет флаг блокировки и тело заметки, если заметка
// не менялась с момента чтения (updated_at == expected). soft учитывается только
// при блокировке.
func (s *Store) SetLocked(ctx context.Context, id string, expected time.Time, locked, soft bool, body string) (*model.Note, error) {
	return s.mutateNoteIf(ctx, id, expected, func(n *model.Note) {
		n.IsLocked = locked
		n.SoftLocked = locked && soft
		n.Body = body
	})
}

// PermanentlyDeleteNote безвозвратно удаляет заметку: сначала из индекса, затем сущность.
// Возвращает false, если заметки не было.
func (s *Store) PermanentlyDeleteNote(ctx context.Context, id string) (bool, error) {
	s.notesMu.Lock()
	defer s.notesMu.Unlock()
	return s.purgeNote(ctx, id)
}

func (s *Store) purgeNote(ctx context.Context, id string) (bool, error) {
	ids, err := s.readIDs(ctx, NotesListKey)
	if err != nil {
		return false, err
	}
	rest, inIndex := removeID(ids, id)
	exists, err := s.entityExists(ctx, noteKey(id))
	if err != nil {
		return false, err
	}
	if !inIndex && !exists {
		return false, nil
	}
	if inIndex {
		if err := s.writeIDs(ctx, NotesListKey, rest); err != nil {
			return false, err
		}
	}
	if err := s.kv.Delete(ctx, noteKey(id)); err != nil {
		return false, err
	}
	return true, nil
}

// EmptyTrash безвозвратно удаляет все заметки из корзины и возвращает их число.
func (s *Store) EmptyTrash(ctx context.Context) (int, error) {
	s.notesMu.Lock()
	defer s.notesMu.Unlock()
	notes, err := s.loadNotes(ctx)
	if err != nil {
		return 0, err
	}
	purged := 0
	for _, n := range notes {
		if !n.IsDeleted {
			continue
		}
		ok, err := s.purgeNote(ctx, n.ID)
		if err != nil {
			return purged, err
		}
		if ok {
			purged++
		}
	}
	return purged, nil
}
