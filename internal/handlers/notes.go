package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"NotesAI/internal/model"
	"NotesAI/internal/notesctx"
)

// Представления списка заметок для GET /api/notes?view=.
const (
	ViewActive   = "active"
	ViewArchived = "archived"
	ViewTrash    = "trash"
)

type NoteHandler struct {
	Notes  *notesctx.Context
	Logger *zap.SugaredLogger
}

func NewNoteHandler(notes *notesctx.Context, logger *zap.SugaredLogger) *NoteHandler {
	return &NoteHandler{Notes: notes, Logger: logger}
}

type bodyRequest struct {
	Body string `json:"body"`
}

type deletedResponse struct {
	Deleted int `json:"deleted"`
}

// List отдаёт заметки из кэша: поиск по q, иначе представление view.
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if query := q.Get("q"); query != "" {
		writeJSON(w, http.StatusOK, h.Notes.Search(query))
		return
	}
	switch q.Get("view") {
	case "", ViewActive:
		writeJSON(w, http.StatusOK, h.Notes.ActiveNotes(q.Get("category")))
	case ViewArchived:
		writeJSON(w, http.StatusOK, h.Notes.ArchivedNotes())
	case ViewTrash:
		writeJSON(w, http.StatusOK, h.Notes.TrashedNotes())
	default:
		writeError(w, http.StatusBadRequest, "unknown view")
	}
}

func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.NoteInput
	if !decodeJSON(w, r, &in) {
		return
	}
	note, err := h.Notes.CreateNote(r.Context(), in)
	if err != nil {
		writeFailure(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// Get отдаёт заметку как она хранится: тело заблокированной остаётся зашифрованным.
func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	note, err := h.Notes.GetNoteByID(r.Context(), chi.URLParam(r, "id"))
	h.respondNote(w, note, err)
}

// Update применяет частичное изменение. Новое тело заблокированной заметки
// шифруется контекстом заметок после аутентификации.
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch model.NotePatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	note, err := h.Notes.UpdateNote(r.Context(), chi.URLParam(r, "id"), patch)
	h.respondNote(w, note, err)
}

// Delete переносит заметку в корзину, с ?permanent=true удаляет навсегда.
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	permanent, _ := strconv.ParseBool(r.URL.Query().Get("permanent"))
	if !permanent {
		note, err := h.Notes.DeleteNote(r.Context(), id)
		h.respondNote(w, note, err)
		return
	}
	found, err := h.Notes.PermanentlyDeleteNote(r.Context(), id)
	if err != nil {
		writeFailure(w, h.Logger, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, notesctx.MsgNoteNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NoteHandler) Restore(w http.ResponseWriter, r *http.Request) {
	note, err := h.Notes.RestoreNote(r.Context(), chi.URLParam(r, "id"))
	h.respondNote(w, note, err)
}

func (h *NoteHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	note, err := h.Notes.ToggleFavorite(r.Context(), chi.URLParam(r, "id"))
	h.respondNote(w, note, err)
}

func (h *NoteHandler) ToggleArchive(w http.ResponseWriter, r *http.Request) {
	note, err := h.Notes.ToggleArchive(r.Context(), chi.URLParam(r, "id"))
	h.respondNote(w, note, err)
}

// ToggleLock блокирует или разблокирует заметку. Отказ аутентификации — 401.
func (h *NoteHandler) ToggleLock(w http.ResponseWriter, r *http.Request) {
	res := h.Notes.ToggleLock(r.Context(), chi.URLParam(r, "id"))
	switch {
	case res.Success:
		writeJSON(w, http.StatusOK, res)
	case res.Error == notesctx.MsgNoteNotFound:
		writeError(w, http.StatusNotFound, res.Error)
	case res.Error == notesctx.MsgNoteChanged:
		writeError(w, http.StatusConflict, res.Error)
	default:
		h.writeResultFailure(w, res.Error)
	}
}

// Unlock отдаёт расшифрованное тело, не меняя хранимую заметку.
func (h *NoteHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	res := h.Notes.UnlockNote(r.Context(), chi.URLParam(r, "id"))
	switch {
	case res.Success:
		writeJSON(w, http.StatusOK, res)
	case res.Error == notesctx.MsgNoteNotFound:
		writeError(w, http.StatusNotFound, res.Error)
	default:
		h.writeResultFailure(w, res.Error)
	}
}

// SaveBody сохраняет открытый текст тела, шифруя его для заблокированной заметки.
func (h *NoteHandler) SaveBody(w http.ResponseWriter, r *http.Request) {
	var req bodyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := h.Notes.SaveLockedNoteBody(r.Context(), chi.URLParam(r, "id"), req.Body)
	h.respondNote(w, note, err)
}

func (h *NoteHandler) EmptyTrash(w http.ResponseWriter, r *http.Request) {
	n, err := h.Notes.EmptyTrash(r.Context())
	if err != nil {
		writeFailure(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse{Deleted: n})
}

// writeResultFailure отличает отказ аутентификации от ошибки хранилища.
func (h *NoteHandler) writeResultFailure(w http.ResponseWriter, msg string) {
	if isAuthMessage(msg) {
		writeAuthFailure(w, msg)
		return
	}
	h.Logger.Errorw("lock operation failed", "error", msg)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func (h *NoteHandler) respondNote(w http.ResponseWriter, note *model.Note, err error) {
	if err != nil {
		writeFailure(w, h.Logger, err)
		return
	}
	if note == nil {
		writeError(w, http.StatusNotFound, notesctx.MsgNoteNotFound)
		return
	}
	writeJSON(w, http.StatusOK, note)
}
