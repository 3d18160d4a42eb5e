package handlers

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"NotesAI/internal/config"
	"NotesAI/internal/middleware"
	"NotesAI/internal/notesctx"
)

type Handler struct {
	Router chi.Router
}

// NewHandler разводящий для хендлеров
func NewHandler(
	notes *notesctx.Context,
	auth notesctx.Authenticator,
	logger *zap.SugaredLogger,
	config *config.Config,
) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	r := chi.NewRouter()

	r.Use(middleware.WithGzip)
	r.Use(middleware.WithLogging)
	r.Use(middleware.WithAuth(config.APISecret))

	// Handlers
	sessionHandler := NewSessionHandler(auth, logger, config)
	noteHandler := NewNoteHandler(notes, logger)
	categoryHandler := NewCategoryHandler(notes, logger)

	// Session routes
	r.Post("/api/session", sessionHandler.Create)
	r.Delete("/api/session", sessionHandler.Delete)

	r.Group(func(r chi.Router) {
		r.Use(requireSession)

		// Notes routes
		r.Get("/api/notes", noteHandler.List)
		r.Post("/api/notes", noteHandler.Create)
		r.Get("/api/notes/{id}", noteHandler.Get)
		r.Patch("/api/notes/{id}", noteHandler.Update)
		r.Delete("/api/notes/{id}", noteHandler.Delete)
		r.Post("/api/notes/{id}/restore", noteHandler.Restore)
		r.Post("/api/notes/{id}/favorite", noteHandler.ToggleFavorite)
		r.Post("/api/notes/{id}/archive", noteHandler.ToggleArchive)
		r.Post("/api/notes/{id}/lock", noteHandler.ToggleLock)
		r.Post("/api/notes/{id}/unlock", noteHandler.Unlock)
		r.Put("/api/notes/{id}/body", noteHandler.SaveBody)
		r.Delete("/api/trash", noteHandler.EmptyTrash)

		// Categories routes
		r.Get("/api/categories", categoryHandler.List)
		r.Post("/api/categories", categoryHandler.Create)
		r.Get("/api/categories/counts", categoryHandler.Counts)
		r.Put("/api/categories/order", categoryHandler.Reorder)
		r.Get("/api/categories/{id}", categoryHandler.Get)
		r.Patch("/api/categories/{id}", categoryHandler.Update)
		r.Delete("/api/categories/{id}", categoryHandler.Delete)
	})

	return &Handler{Router: r}
}
