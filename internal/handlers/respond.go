package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"NotesAI/internal/biometric"
	"NotesAI/internal/middleware"
	"NotesAI/internal/notesctx"
	"NotesAI/internal/storage"
)

// ErrorResponse — тело ответа с ошибкой.
type ErrorResponse struct {
	Error     string `json:"error"`
	Cancelled bool   `json:"cancelled,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeAuthFailure — 401 с признаком отмены.
func writeAuthFailure(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: msg, Cancelled: biometric.IsCancelMessage(msg)})
}

func isAuthMessage(msg string) bool {
	switch msg {
	case biometric.MsgNoHardware, biometric.MsgNotEnrolled, biometric.MsgCancelled:
		return true
	}
	return strings.HasPrefix(msg, biometric.MsgFailed)
}

// writeFailure переводит ошибку слоя заметок в HTTP-статус.
func writeFailure(w http.ResponseWriter, logger *zap.SugaredLogger, err error) {
	var verrs validator.ValidationErrors
	var authErr *notesctx.AuthError
	switch {
	case errors.As(err, &verrs):
		writeError(w, http.StatusBadRequest, verrs.Error())
	case errors.Is(err, storage.ErrUnknownCategory), errors.Is(err, storage.ErrDuplicateCategory):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &authErr):
		writeAuthFailure(w, authErr.Error())
	case errors.Is(err, storage.ErrNoteChanged):
		writeError(w, http.StatusConflict, notesctx.MsgNoteChanged)
	default:
		logger.Errorw("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return false
	}
	return true
}

func decodeBytes(w http.ResponseWriter, b []byte, dst any) bool {
	if err := json.Unmarshal(b, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return false
	}
	return true
}

// requireSession пропускает только запросы с валидной сессией.
func requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.GetSessionFromContext(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
