package model

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// AllCategoryID — id синтетической категории «Все». Никогда не сохраняется.
const AllCategoryID = "all"

var validate = validator.New()

// Category — папка для заметок. Порядок отображения задаётся OrderIndex.
type Category struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Color      string    `json:"color"`
	Icon       *string   `json:"icon"`
	OrderIndex int       `json:"order_index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AllCategory returns the synthetic "All" pseudo-category shown before every real one.
func AllCategory() Category {
	return Category{ID: AllCategoryID, Name: "All", OrderIndex: -1}
}

// CategoryInput — значения для создания категории.
// OrderIndex=nil означает «в конец списка».
type CategoryInput struct {
	Name       string  `json:"name" validate:"required,min=1,max=100"`
	Color      string  `json:"color" validate:"max=64"`
	Icon       *string `json:"icon" validate:"omitempty,max=64"`
	OrderIndex *int    `json:"order_index" validate:"omitempty,min=0"`
}

// Validate проверяет ограничения полей.
func (in CategoryInput) Validate() error {
	return validate.Struct(in)
}

// CategoryPatch — частичное обновление категории.
type CategoryPatch struct {
	Name  *string  `json:"name"`
	Color *string  `json:"color"`
	Icon  Nullable `json:"icon"`
}

// Validate проверяет ограничения полей патча.
func (p CategoryPatch) Validate() error {
	if p.Name != nil {
		if err := validate.Var(*p.Name, "required,min=1,max=100"); err != nil {
			return err
		}
	}
	if p.Color != nil {
		if err := validate.Var(*p.Color, "max=64"); err != nil {
			return err
		}
	}
	if p.Icon.Value != nil {
		return validate.Var(*p.Icon.Value, "max=64")
	}
	return nil
}

// Apply переносит заданные поля патча в категорию.
func (p CategoryPatch) Apply(c *Category) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
	if p.Icon.Set {
		c.Icon = cloneString(p.Icon.Value)
	}
}
