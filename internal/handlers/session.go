package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"NotesAI/internal/config"
	"NotesAI/internal/middleware"
	"NotesAI/internal/notesctx"
)

// DefaultSessionReason — текст запроса при открытии сессии без явной причины.
const DefaultSessionReason = "Authenticate to open notes"

// SessionHandler выдаёт cookie сессии после биометрической проверки.
type SessionHandler struct {
	Auth   notesctx.Authenticator
	Logger *zap.SugaredLogger
	Config *config.Config
}

// NewSessionHandler создаёт хендлер сессий
func NewSessionHandler(auth notesctx.Authenticator, logger *zap.SugaredLogger, cfg *config.Config) *SessionHandler {
	return &SessionHandler{Auth: auth, Logger: logger, Config: cfg}
}

type sessionRequest struct {
	Reason string `json:"reason"`
}

type sessionResponse struct {
	Success bool `json:"success"`
}

// Create проходит аутентификацию и ставит cookie auth_token.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	// пустое тело допустимо
	if r.ContentLength != 0 {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid body")
			return
		}
		if len(body) > 0 && !decodeBytes(w, body, &req) {
			return
		}
	}
	if req.Reason == "" {
		req.Reason = DefaultSessionReason
	}
	if h.Auth == nil {
		writeAuthFailure(w, "authentication is not configured")
		return
	}
	res := h.Auth.AuthenticateWithBiometrics(r.Context(), req.Reason)
	if !res.Success {
		h.Logger.Infow("session denied", "error", res.Error)
		writeAuthFailure(w, res.Error)
		return
	}
	sid := uuid.NewString()
	if err := middleware.SetLoginCookie(w, sid, h.Config.APISecret); err != nil {
		h.Logger.Errorw("sign session token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.Logger.Infow("session opened", "session", sid)
	writeJSON(w, http.StatusOK, sessionResponse{Success: true})
}

// Delete сбрасывает cookie сессии.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
	w.WriteHeader(http.StatusNoContent)
}
