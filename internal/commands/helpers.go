package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"NotesAI/internal/biometric"
	"NotesAI/internal/bootstrap"
	"NotesAI/internal/config"
	"NotesAI/internal/model"
	"NotesAI/internal/notesctx"
)

// withApp открывает приложение, выполняет fn и закрывает хранилище.
func withApp(ctx context.Context, cfg *config.Config, fn func(app *bootstrap.App) error) error {
	app, done, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = done() }()
	return fn(app)
}

func noteNotFound(id string) error { return fmt.Errorf("note %s not found", id) }

func categoryNotFound(id string) error { return fmt.Errorf("category %s not found", id) }

// resultErr превращает текст ошибки результата аутентификации в ошибку команды.
func resultErr(msg string) error {
	if biometric.IsCancelMessage(msg) {
		return ErrCancelled
	}
	return errors.New(msg)
}

// authErr выделяет отмену из ошибок контекста заметок.
func authErr(err error) error {
	var ae *notesctx.AuthError
	if errors.As(err, &ae) && ae.Cancelled() {
		return ErrCancelled
	}
	return err
}

func flags(n model.Note) string {
	var f []string
	if n.IsFavorite {
		f = append(f, "fav")
	}
	if n.IsArchived {
		f = append(f, "archived")
	}
	if n.IsDeleted {
		f = append(f, "deleted")
	}
	if n.IsLocked {
		f = append(f, "locked")
	}
	if len(f) == 0 {
		return ""
	}
	return " [" + strings.Join(f, ",") + "]"
}

func printNoteLine(n model.Note) {
	title := n.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(Out, "- %s  %s%s\n", n.ID, title, flags(n))
}

func printNote(n model.Note) {
	fmt.Fprintf(Out, "id:       %s\n", n.ID)
	fmt.Fprintf(Out, "title:    %s\n", n.Title)
	if n.CategoryID != nil {
		fmt.Fprintf(Out, "category: %s\n", *n.CategoryID)
	}
	if n.Color != nil {
		fmt.Fprintf(Out, "color:    %s\n", *n.Color)
	}
	if f := flags(n); f != "" {
		fmt.Fprintf(Out, "flags:   %s\n", f)
	}
	fmt.Fprintf(Out, "created:  %s\n", n.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(Out, "updated:  %s\n", n.UpdatedAt.Format("2006-01-02 15:04:05"))
	for _, it := range n.ChecklistItems {
		mark := " "
		if it.Completed {
			mark = "x"
		}
		fmt.Fprintf(Out, "  [%s] %s\n", mark, it.Text)
	}
	if n.IsLocked {
		fmt.Fprintln(Out, "body:     <locked, use unlock to view>")
		return
	}
	fmt.Fprintf(Out, "body:\n%s\n", n.Body)
}
