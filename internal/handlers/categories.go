package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"NotesAI/internal/model"
	"NotesAI/internal/notesctx"
)

const msgCategoryNotFound = "Category not found"

type CategoryHandler struct {
	Notes  *notesctx.Context
	Logger *zap.SugaredLogger
}

func NewCategoryHandler(notes *notesctx.Context, logger *zap.SugaredLogger) *CategoryHandler {
	return &CategoryHandler{Notes: notes, Logger: logger}
}

type orderRequest struct {
	IDs []string `json:"ids"`
}

type categoryDeleteResponse struct {
	Reassigned int `json:"reassigned"`
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Notes.Categories())
}

// Counts — число активных заметок по категориям, ключ "all" для всех.
func (h *CategoryHandler) Counts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Notes.CategoryCounts())
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.CategoryInput
	if !decodeJSON(w, r, &in) {
		return
	}
	c, err := h.Notes.CreateCategory(r.Context(), in)
	if err != nil {
		writeFailure(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.Notes.GetCategoryByID(r.Context(), chi.URLParam(r, "id"))
	h.respondCategory(w, c, err)
}

func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch model.CategoryPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	c, err := h.Notes.UpdateCategory(r.Context(), chi.URLParam(r, "id"), patch)
	h.respondCategory(w, c, err)
}

// Delete удаляет категорию. ?reassign=<id> переносит её заметки в другую категорию.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var reassignTo *string
	if v := r.URL.Query().Get("reassign"); v != "" {
		reassignTo = &v
	}
	found, n, err := h.Notes.DeleteCategory(r.Context(), chi.URLParam(r, "id"), reassignTo)
	if err != nil {
		writeFailure(w, h.Logger, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, msgCategoryNotFound)
		return
	}
	writeJSON(w, http.StatusOK, categoryDeleteResponse{Reassigned: n})
}

func (h *CategoryHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cats, err := h.Notes.UpdateCategoriesOrder(r.Context(), req.IDs)
	if err != nil {
		writeFailure(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (h *CategoryHandler) respondCategory(w http.ResponseWriter, c *model.Category, err error) {
	if err != nil {
		writeFailure(w, h.Logger, err)
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, msgCategoryNotFound)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
