package commands

import (
	"context"
	"fmt"

	"NotesAI/internal/bootstrap"
	"NotesAI/internal/config"
	"NotesAI/internal/model"
)

type initCmd struct{}

func (initCmd) Name() string        { return "init" }
func (initCmd) Description() string { return "Создать хранилище заметок" }
func (initCmd) Usage() string       { return "init" }

func (initCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	return withApp(ctx, cfg, func(app *bootstrap.App) error {
		// Open уже инициализировал индексы
		fmt.Fprintf(Out, "Storage ready: backend=%s dir=%s\n", cfg.Backend, cfg.DBPath)
		fmt.Fprintf(Out, "Notes: %d, categories: %d\n", len(app.Notes.Notes()), len(app.Notes.Categories()))
		return nil
	})
}

type addCmd struct{}

func (addCmd) Name() string        { return "add" }
func (addCmd) Description() string { return "Создать заметку" }
func (addCmd) Usage() string       { return "add <title> [body]" }

func (addCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return ErrUsage
	}
	in := model.NoteInput{Title: args[0]}
	if len(args) == 2 {
		in.Body = args[1]
	}
	return withApp(ctx, cfg, func(app *bootstrap.App) error {
		n, err := app.Notes.CreateNote(ctx, in)
		if err != nil {
			return err
		}
		fmt.Fprintln(Out, "Created:")
		fmt.Fprintf(Out, "  id:    %s\n", n.ID)
		fmt.Fprintf(Out, "  title: %s\n", n.Title)
		return nil
	})
}

type listCmd struct{}

func (listCmd) Name() string        { return "list" }
func (listCmd) Description() string { return "Показать заметки (active, archived, trash)" }
func (listCmd) Usage() string       { return "list [active|archived|trash] [category-id]" }

func (listCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) > 2 {
		return ErrUsage
	}
	view := "active"
	if len(args) >= 1 {
		view = args[0]
	}
	category := ""
	if len(args) == 2 {
		if view != "active" {
			return ErrUsage
		}
		category = args[1]
	}
	return withApp(ctx, cfg, func(app *bootstrap.App) error {
		var list []model.Note
		switch view {
		case "active":
			list = app.Notes.ActiveNotes(category)
		case "archived":
			list = app.Notes.ArchivedNotes()
		case "trash":
			list = app.Notes.TrashedNotes()
		default:
			return ErrUsage
		}
		if len(list) == 0 {
			fmt.Fprintln(Out, "Нет заметок")
			return nil
		}
		for _, n := range list {
			printNoteLine(n)
		}
		fmt.Fprintf(Out, "Всего: %d\n", len(list))
		return nil
	})
}

type searchCmd struct{}

func (searchCmd) Name() string        { return "search" }
func (searchCmd) Description() string { return "Искать по заголовку и тексту" }
func (searchCmd) Usage() string       { return "search <query>" }

func (searchCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	return withApp(ctx, cfg, func(app *bootstrap.App) error {
		found := app.Notes.Search(args[0])
		if len(found) == 0 {
			fmt.Fprintln(Out, "Ничего не найдено")
			return nil
		}
		for _, n := range found {
			printNoteLine(n)
		}
		return nil
	})
}

type showCmd struct{}

func (showCmd) Name() string        { return "show" }
func (showCmd) Description() string { return "Показать заметку" }
func (showCmd) Usage() string       { return "show <id>" }

func (showCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	return withApp(ctx, cfg, func(app *bootstrap.App) error {
		n, err := app.Notes.GetNoteByID(ctx, args[0])
		if err != nil {
			return err
		}
		if n == nil {
			return noteNotFound(args[0])
		}
		printNote(*n)
		return nil
	})
}

type editCmd struct{}

func (editCmd) Name() string        { return "edit" }
func (editCmd) Description() string { return "Изменить поле заметки (title, body, color, category; '-' очищает)" }
func (editCmd) Usage() string       { return "edit <id> <title|body|color|category> <value>" }

func (editCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 3 {
		return ErrUsage
	}
	id, field, value := args[0], args[1], args[2]
	var patch model.NotePatch
	nullable := model.Value(value)
	if value == "-" {
		nullable = model.Null()
	}
	switch field {
	case "title":
		patch.Title = &value
	case "body":
		patch.Body = &value
	case "color":
		patch.Color = nullable
	case "category":
		patch.CategoryID = nullable
	default:
		return ErrUsage
	}
	return withApp(ctx, cfg, func(app *bootstrap.App) error {
		n, err := app.Notes.UpdateNote(ctx, id, patch)
		if err != nil {
			return authErr(err)
		}
		if n == nil {
			return noteNotFound(id)
		}
		fmt.Fprintf(Out, "Updated %s: %s\n", field, n.ID)
		return nil
	})
}

type rmCmd struct{}

func (rmCmd) Name() string        { return "rm" }
func (rmCmd) Description() string { return "Удалить заметку в корзину (--permanent — навсегда)" }
func (rmCmd) Usage() string       { return "rm <id> [--permanent]" }

func (rmCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return ErrUsage
	}
	permanent := false
	if len(args) == 2 {
		if args[1] != "--permanent" {
			return ErrUsage
		}
		permanent = true
	}
	id := args[0]
	return withApp(ctx, cfg, func(app *bootstrap.App) error {
		if permanent {
			ok, err := app.Notes.PermanentlyDeleteNote(ctx, id)
			if err != nil {
				return authErr(err)
			}
			if !ok {
				return noteNotFound(id)
			}
			fmt.Fprintf(Out, "Deleted permanently: %s\n", id)
			return nil
		}
		n, err := app.Notes.DeleteNote(ctx, id)
		if err != nil {
			return authErr(err)
		}
		if n == nil {
			return noteNotFound(id)
		}
		fmt.Fprintf(Out, "Moved to trash: %s\n", id)
		return nil
	})
}

// noteFlagCmd — команды вида "<name> <id>", меняющие один флаг заметки.
type noteFlagCmd struct {
	name, desc, done string
	apply            func(ctx context.Context, app *bootstrap.App, id string) (*model.Note, error)
}

func (c noteFlagCmd) Name() string        { return c.name }
func (c noteFlagCmd) Description() string { return c.desc }
func (c noteFlagCmd) Usage() string       { return c.name + " <id>" }

func (c noteFlagCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	return withApp(ctx, cfg, func(app *bootstrap.App) error {
		n, err := c.apply(ctx, app, args[0])
		if err != nil {
			return err
		}
		if n == nil {
			return noteNotFound(args[0])
		}
		fmt.Fprintf(Out, "%s: %s%s\n", c.done, n.ID, flags(*n))
		return nil
	})
}

type emptyTrashCmd struct{}

func (emptyTrashCmd) Name() string        { return "empty-trash" }
func (emptyTrashCmd) Description() string { return "Очистить корзину" }
func (emptyTrashCmd) Usage() string       { return "empty-trash" }

func (emptyTrashCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	return withApp(ctx, cfg, func(app *bootstrap.App) error {
		n, err := app.Notes.EmptyTrash(ctx)
		if err != nil {
			return authErr(err)
		}
		fmt.Fprintf(Out, "Deleted permanently: %d\n", n)
		return nil
	})
}

func init() {
	RegisterCmd(initCmd{})
	RegisterCmd(addCmd{})
	RegisterCmd(listCmd{})
	RegisterCmd(searchCmd{})
	RegisterCmd(showCmd{})
	RegisterCmd(editCmd{})
	RegisterCmd(rmCmd{})
	RegisterCmd(emptyTrashCmd{})
	RegisterCmd(noteFlagCmd{
		name: "restore", desc: "Вернуть заметку из корзины", done: "Restored",
		apply: func(ctx context.Context, app *bootstrap.App, id string) (*model.Note, error) {
			return app.Notes.RestoreNote(ctx, id)
		},
	})
	RegisterCmd(noteFlagCmd{
		name: "fav", desc: "Переключить избранное", done: "Favorite toggled",
		apply: func(ctx context.Context, app *bootstrap.App, id string) (*model.Note, error) {
			return app.Notes.ToggleFavorite(ctx, id)
		},
	})
	RegisterCmd(noteFlagCmd{
		name: "archive", desc: "Переключить архив", done: "Archive toggled",
		apply: func(ctx context.Context, app *bootstrap.App, id string) (*model.Note, error) {
			return app.Notes.ToggleArchive(ctx, id)
		},
	})
}
