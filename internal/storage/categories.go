package storage

import (
	"context"
	"fmt"
	"sort"

	"NotesAI/internal/model"
)

func categoryKey(id string) string { return CategoryPrefix + id }

// loadCategories читает категории по индексу и сортирует по order_index.
func (s *Store) loadCategories(ctx context.Context) ([]model.Category, error) {
	ids, err := s.readIDs(ctx, CategoriesListKey)
	if err != nil {
		return nil, err
	}
	cats := make([]model.Category, 0, len(ids))
	for _, id := range ids {
		var c model.Category
		ok, err := s.readEntity(ctx, collectionCategories, categoryKey(id), &c)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.orphan(collectionCategories, id)
			continue
		}
		cats = append(cats, c)
	}
	sortCategories(cats)
	return cats, nil
}

func sortCategories(cats []model.Category) {
	sort.SliceStable(cats, func(i, j int) bool {
		if cats[i].OrderIndex != cats[j].OrderIndex {
			return cats[i].OrderIndex < cats[j].OrderIndex
		}
		if !cats[i].CreatedAt.Equal(cats[j].CreatedAt) {
			return cats[i].CreatedAt.Before(cats[j].CreatedAt)
		}
		return cats[i].ID < cats[j].ID
	})
}

// GetAllCategories возвращает категории в порядке отображения.
func (s *Store) GetAllCategories(ctx context.Context) ([]model.Category, error) {
	s.categoriesMu.RLock()
	defer s.categoriesMu.RUnlock()
	return s.loadCategories(ctx)
}

// GetCategoryByID возвращает категорию или nil.
func (s *Store) GetCategoryByID(ctx context.Context, id string) (*model.Category, error) {
	s.categoriesMu.RLock()
	defer s.categoriesMu.RUnlock()
	return s.readCategory(ctx, id)
}

func (s *Store) readCategory(ctx context.Context, id string) (*model.Category, error) {
	var c model.Category
	ok, err := s.readEntity(ctx, collectionCategories, categoryKey(id), &c)
	if err != nil || !ok {
		return nil, err
	}
	return &c, nil
}

// CreateCategory создаёт категорию. Без явного order_index она встаёт в конец.
func (s *Store) CreateCategory(ctx context.Context, in model.CategoryInput) (*model.Category, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	s.categoriesMu.Lock()
	defer s.categoriesMu.Unlock()

	order := 0
	if in.OrderIndex != nil {
		order = *in.OrderIndex
	} else {
		existing, err := s.loadCategories(ctx)
		if err != nil {
			return nil, err
		}
		for _, c := range existing {
			if c.OrderIndex+1 > order {
				order = c.OrderIndex + 1
			}
		}
	}
	id, err := s.allocateID(ctx, CategoryPrefix)
	if err != nil {
		return nil, err
	}
	now := s.now()
	c := model.Category{
		ID:         id,
		Name:       in.Name,
		Color:      in.Color,
		Icon:       in.Icon,
		OrderIndex: order,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.writeEntity(ctx, categoryKey(id), c); err != nil {
		return nil, err
	}
	ids, err := s.readIDs(ctx, CategoriesListKey)
	if err != nil {
		return nil, err
	}
	if err := s.writeIDs(ctx, CategoriesListKey, appendID(ids, id)); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateCategory применяет частичное обновление; для отсутствующего id — nil.
func (s *Store) UpdateCategory(ctx context.Context, id string, patch model.CategoryPatch) (*model.Category, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	s.categoriesMu.Lock()
	defer s.categoriesMu.Unlock()
	c, err := s.readCategory(ctx, id)
	if err != nil || c == nil {
		return nil, err
	}
	patch.Apply(c)
	c.UpdatedAt = s.now()
	if err := s.writeEntity(ctx, categoryKey(id), c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCategory удаляет категорию. Заметки категории переносятся в reassignTo,
// если это другая существующая категория, иначе остаются без категории.
// Возвращает признак того, что категория была, и число перенесённых заметок.
func (s *Store) DeleteCategory(ctx context.Context, id string, reassignTo *string) (bool, int, error) {
	s.categoriesMu.Lock()
	defer s.categoriesMu.Unlock()
	s.notesMu.Lock()
	defer s.notesMu.Unlock()

	ids, err := s.readIDs(ctx, CategoriesListKey)
	if err != nil {
		return false, 0, err
	}
	rest, inIndex := removeID(ids, id)
	exists, err := s.entityExists(ctx, categoryKey(id))
	if err != nil {
		return false, 0, err
	}
	if !inIndex && !exists {
		return false, 0, nil
	}

	var target *string
	if reassignTo != nil && *reassignTo != id {
		t, err := s.readCategory(ctx, *reassignTo)
		if err != nil {
			return false, 0, err
		}
		if t != nil {
			v := t.ID
			target = &v
		} else {
			s.logger.Warnw("reassign target not found, clearing category", "category_id", id, "target", *reassignTo)
		}
	}

	// сначала заметки: прерывание после этого шага оставит пустую категорию, но не висячие ссылки
	notes, err := s.loadNotes(ctx)
	if err != nil {
		return false, 0, err
	}
	reassigned := 0
	now := s.now()
	for i := range notes {
		n := &notes[i]
		if !n.InCategory(id) {
			continue
		}
		n.CategoryID = target
		n.UpdatedAt = now
		if err := s.writeEntity(ctx, noteKey(n.ID), n); err != nil {
			return false, reassigned, err
		}
		reassigned++
	}

	if inIndex {
		if err := s.writeIDs(ctx, CategoriesListKey, rest); err != nil {
			return false, reassigned, err
		}
	}
	if err := s.kv.Delete(ctx, categoryKey(id)); err != nil {
		return false, reassigned, err
	}
	return true, reassigned, nil
}

// UpdateCategoriesOrder переписывает order_index по позиции id в orderedIDs.
// Неизвестные и повторяющиеся id отклоняются; категории, не упомянутые в списке,
// встают после перечисленных в своём текущем порядке.
func (s *Store) UpdateCategoriesOrder(ctx context.Context, orderedIDs []string) ([]model.Category, error) {
	s.categoriesMu.Lock()
	defer s.categoriesMu.Unlock()

	current, err := s.loadCategories(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.Category, len(current))
	for _, c := range current {
		byID[c.ID] = c
	}
	seen := make(map[string]bool, len(orderedIDs))
	final := make([]model.Category, 0, len(current))
	for _, id := range orderedIDs {
		c, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, id)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCategory, id)
		}
		seen[id] = true
		final = append(final, c)
	}
	for _, c := range current {
		if !seen[c.ID] {
			final = append(final, c)
		}
	}

	now := s.now()
	for i := range final {
		if final[i].OrderIndex == i {
			continue
		}
		final[i].OrderIndex = i
		final[i].UpdatedAt = now
		if err := s.writeEntity(ctx, categoryKey(final[i].ID), final[i]); err != nil {
			return nil, err
		}
	}
	return final, nil
}

// GetCategoryNoteCounts считает активные (не удалённые и не архивные) заметки
// по категориям. Ключ model.AllCategoryID — общее число активных заметок.
func (s *Store) GetCategoryNoteCounts(ctx context.Context) (map[string]int, error) {
	s.categoriesMu.RLock()
	defer s.categoriesMu.RUnlock()
	s.notesMu.RLock()
	defer s.notesMu.RUnlock()

	cats, err := s.loadCategories(ctx)
	if err != nil {
		return nil, err
	}
	notes, err := s.loadNotes(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(cats)+1)
	counts[model.AllCategoryID] = 0
	for _, c := range cats {
		counts[c.ID] = 0
	}
	for _, n := range notes {
		if !n.IsActive() {
			continue
		}
		counts[model.AllCategoryID]++
		if n.CategoryID != nil {
			if _, ok := counts[*n.CategoryID]; ok {
				counts[*n.CategoryID]++
			}
		}
	}
	return counts, nil
}
