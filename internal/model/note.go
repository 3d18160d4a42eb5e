package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// ChecklistItem — пункт чек-листа. Живёт только внутри документа заметки.
type ChecklistItem struct {
	ID        string `json:"id"`
	Text      string `json:"text" validate:"max=2000"`
	Completed bool   `json:"completed"`
	Order     int    `json:"order"`
}

// Note — документ заметки в том виде, в котором он лежит под ключом note:<id>.
// Если IsLocked=true, в Body хранится шифртекст, кроме «мягкой» блокировки
// (SoftLocked=true): шифрование было недоступно и тело лежит открытым текстом.
type Note struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Body            string          `json:"body"`
	CategoryID      *string         `json:"category_id"`
	Color           *string         `json:"color"`
	IsFavorite      bool            `json:"is_favorite"`
	IsArchived      bool            `json:"is_archived"`
	IsDeleted       bool            `json:"is_deleted"`
	IsLocked        bool            `json:"is_locked"`
	SoftLocked      bool            `json:"soft_locked,omitempty"`
	Images          []string        `json:"images"`
	AudioRecordings []string        `json:"audio_recordings"`
	ChecklistItems  []ChecklistItem `json:"checklist_items"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// IsActive reports whether the note belongs to the main (non-trash, non-archive) views.
func (n Note) IsActive() bool {
	return !n.IsDeleted && !n.IsArchived
}

// InCategory сравнивает category_id заметки с id категории.
func (n Note) InCategory(id string) bool {
	return n.CategoryID != nil && *n.CategoryID == id
}

// Clone returns a copy that shares no slices or pointers with n.
func (n Note) Clone() Note {
	c := n
	c.CategoryID = cloneString(n.CategoryID)
	c.Color = cloneString(n.Color)
	c.Images = append([]string{}, n.Images...)
	c.AudioRecordings = append([]string{}, n.AudioRecordings...)
	c.ChecklistItems = append([]ChecklistItem{}, n.ChecklistItems...)
	return c
}

// NoteInput — начальные значения при создании заметки.
type NoteInput struct {
	Title           string          `json:"title" validate:"max=500"`
	Body            string          `json:"body"`
	CategoryID      *string         `json:"category_id"`
	Color           *string         `json:"color" validate:"omitempty,max=64"`
	IsFavorite      bool            `json:"is_favorite"`
	Images          []string        `json:"images"`
	AudioRecordings []string        `json:"audio_recordings"`
	ChecklistItems  []ChecklistItem `json:"checklist_items" validate:"dive"`
}

// Validate проверяет ограничения полей.
func (in NoteInput) Validate() error {
	return validate.Struct(in)
}

// Nullable is a patch value that distinguishes "not provided" from an explicit null.
type Nullable struct {
	Value *string
	Set   bool
}

// Null returns a patch value that clears the field.
func Null() Nullable { return Nullable{Set: true} }

// Value returns a patch value that sets the field to s.
func Value(s string) Nullable { return Nullable{Value: &s, Set: true} }

// UnmarshalJSON помечает поле как заданное; JSON null сбрасывает значение.
func (v *Nullable) UnmarshalJSON(b []byte) error {
	v.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		v.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v.Value = &s
	return nil
}

// NotePatch — частичное обновление заметки. Поля nil/не заданные не трогаются.
// is_locked и is_deleted меняются только отдельными операциями.
type NotePatch struct {
	Title           *string          `json:"title" validate:"omitempty,max=500"`
	Body            *string          `json:"body"`
	CategoryID      Nullable         `json:"category_id"`
	Color           Nullable         `json:"color"`
	IsFavorite      *bool            `json:"is_favorite"`
	IsArchived      *bool            `json:"is_archived"`
	Images          *[]string        `json:"images"`
	AudioRecordings *[]string        `json:"audio_recordings"`
	ChecklistItems  *[]ChecklistItem `json:"checklist_items"`
}

// Validate проверяет ограничения полей патча.
func (p NotePatch) Validate() error {
	if err := validate.Struct(p); err != nil {
		return err
	}
	if p.Color.Value != nil {
		if err := validate.Var(*p.Color.Value, "max=64"); err != nil {
			return err
		}
	}
	if p.ChecklistItems != nil {
		for _, it := range *p.ChecklistItems {
			if err := validate.Struct(it); err != nil {
				return err
			}
		}
	}
	return nil
}

// Apply переносит заданные поля патча в заметку.
func (p NotePatch) Apply(n *Note) {
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Body != nil {
		n.Body = *p.Body
	}
	if p.CategoryID.Set {
		n.CategoryID = cloneString(p.CategoryID.Value)
	}
	if p.Color.Set {
		n.Color = cloneString(p.Color.Value)
	}
	if p.IsFavorite != nil {
		n.IsFavorite = *p.IsFavorite
	}
	if p.IsArchived != nil {
		n.IsArchived = *p.IsArchived
	}
	if p.Images != nil {
		n.Images = append([]string{}, (*p.Images)...)
	}
	if p.AudioRecordings != nil {
		n.AudioRecordings = append([]string{}, (*p.AudioRecordings)...)
	}
	if p.ChecklistItems != nil {
		n.ChecklistItems = append([]ChecklistItem{}, (*p.ChecklistItems)...)
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
