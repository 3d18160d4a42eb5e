package notesctx

import (
	"sort"
	"strings"

	"NotesAI/internal/model"
)

// ActiveNotes — заметки основного списка: не в корзине и не в архиве.
// categoryID "" или model.AllCategoryID — без фильтра. Избранные идут первыми,
// затем по убыванию updated_at.
func (c *Context) ActiveNotes(categoryID string) []model.Note {
	filterByCategory := categoryID != "" && categoryID != model.AllCategoryID
	out := c.filter(func(n model.Note) bool {
		if !n.IsActive() {
			return false
		}
		return !filterByCategory || n.InCategory(categoryID)
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsFavorite != out[j].IsFavorite {
			return out[i].IsFavorite
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// ArchivedNotes — архивные заметки вне корзины, новые первыми.
func (c *Context) ArchivedNotes() []model.Note {
	out := c.filter(func(n model.Note) bool { return n.IsArchived && !n.IsDeleted })
	sortByUpdatedDesc(out)
	return out
}

// TrashedNotes — заметки в корзине, новые первыми.
func (c *Context) TrashedNotes() []model.Note {
	out := c.filter(func(n model.Note) bool { return n.IsDeleted })
	sortByUpdatedDesc(out)
	return out
}

// Search ищет подстроку без учёта регистра в заголовке и теле заметок вне корзины.
// Тела заблокированных заметок не просматриваются.
func (c *Context) Search(query string) []model.Note {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return c.ActiveNotes("")
	}
	out := c.filter(func(n model.Note) bool {
		if n.IsDeleted {
			return false
		}
		if strings.Contains(strings.ToLower(n.Title), q) {
			return true
		}
		return !n.IsLocked && strings.Contains(strings.ToLower(n.Body), q)
	})
	sortByUpdatedDesc(out)
	return out
}

func (c *Context) filter(keep func(model.Note) bool) []model.Note {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Note, 0, len(c.notes))
	for _, n := range c.notes {
		if keep(n) {
			out = append(out, n.Clone())
		}
	}
	return out
}

func sortByUpdatedDesc(notes []model.Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].UpdatedAt.After(notes[j].UpdatedAt)
	})
}
