package commands

import (
	"context"
	"fmt"

	"NotesAI/internal/bootstrap"
	"NotesAI/internal/config"
	"NotesAI/internal/model"
)

type catAddCmd struct{}

func (catAddCmd) Name() string        { return "cat-add" }
func (catAddCmd) Description() string { return "Создать категорию" }
func (catAddCmd) Usage() string       { return "cat-add <name> [color]" }

func (catAddCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return ErrUsage
	}
	in := model.CategoryInput{Name: args[0]}
	if len(args) == 2 {
		in.Color = args[1]
	}
	return withApp(ctx, cfg, func(app *bootstrap.App) error {
		c, err := app.Notes.CreateCategory(ctx, in)
		if err != nil {
			return err
		}
		fmt.Fprintf(Out, "Created category: %s  %s (order %d)\n", c.ID, c.Name, c.OrderIndex)
		return nil
	})
}

type catListCmd struct{}

func (catListCmd) Name() string        { return "cat-list" }
func (catListCmd) Description() string { return "Показать категории с числом заметок" }
func (catListCmd) Usage() string       { return "cat-list" }

func (catListCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 0 {
		return ErrUsage
	}
	return withApp(ctx, cfg, func(app *bootstrap.App) error {
		counts := app.Notes.CategoryCounts()
		all := model.AllCategory()
		fmt.Fprintf(Out, "- %-36s  %s (%d)\n", all.ID, all.Name, counts[all.ID])
		for _, c := range app.Notes.Categories() {
			fmt.Fprintf(Out, "- %-36s  %s (%d)\n", c.ID, c.Name, counts[c.ID])
		}
		return nil
	})
}

type catRmCmd struct{}

func (catRmCmd) Name() string        { return "cat-rm" }
func (catRmCmd) Description() string { return "Удалить категорию (заметки переносятся или остаются без категории)" }
func (catRmCmd) Usage() string       { return "cat-rm <id> [reassign-to]" }

func (catRmCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return ErrUsage
	}
	var reassign *string
	if len(args) == 2 {
		reassign = &args[1]
	}
	return withApp(ctx, cfg, func(app *bootstrap.App) error {
		found, moved, err := app.Notes.DeleteCategory(ctx, args[0], reassign)
		if err != nil {
			return err
		}
		if !found {
			return categoryNotFound(args[0])
		}
		fmt.Fprintf(Out, "Deleted category: %s (notes updated: %d)\n", args[0], moved)
		return nil
	})
}

type catOrderCmd struct{}

func (catOrderCmd) Name() string        { return "cat-order" }
func (catOrderCmd) Description() string { return "Задать порядок категорий" }
func (catOrderCmd) Usage() string       { return "cat-order <id>..." }

func (catOrderCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	return withApp(ctx, cfg, func(app *bootstrap.App) error {
		cats, err := app.Notes.UpdateCategoriesOrder(ctx, args)
		if err != nil {
			return err
		}
		for _, c := range cats {
			fmt.Fprintf(Out, "%d. %s  %s\n", c.OrderIndex, c.ID, c.Name)
		}
		return nil
	})
}

func init() {
	RegisterCmd(catAddCmd{})
	RegisterCmd(catListCmd{})
	RegisterCmd(catRmCmd{})
	RegisterCmd(catOrderCmd{})
}
