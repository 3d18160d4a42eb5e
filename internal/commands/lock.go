package commands

import (
	"context"
	"errors"
	"fmt"

	"NotesAI/internal/bootstrap"
	"NotesAI/internal/config"
)

type lockCmd struct{}

func (lockCmd) Name() string        { return "lock" }
func (lockCmd) Description() string { return "Заблокировать или разблокировать заметку" }
func (lockCmd) Usage() string       { return "lock <id>" }

func (lockCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	return withApp(ctx, cfg, func(app *bootstrap.App) error {
		res := app.Notes.ToggleLock(ctx, args[0])
		if !res.Success {
			return resultErr(res.Error)
		}
		switch {
		case res.Note.IsLocked && res.SoftLocked:
			fmt.Fprintf(Out, "Locked (without encryption): %s\n", res.Note.ID)
		case res.Note.IsLocked:
			fmt.Fprintf(Out, "Locked: %s\n", res.Note.ID)
		default:
			fmt.Fprintf(Out, "Unlocked: %s\n", res.Note.ID)
		}
		return nil
	})
}

type unlockCmd struct{}

func (unlockCmd) Name() string        { return "unlock" }
func (unlockCmd) Description() string { return "Показать текст заблокированной заметки, не снимая блокировку" }
func (unlockCmd) Usage() string       { return "unlock <id>" }

func (unlockCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	return withApp(ctx, cfg, func(app *bootstrap.App) error {
		res := app.Notes.UnlockNote(ctx, args[0])
		if !res.Success {
			return resultErr(res.Error)
		}
		fmt.Fprintln(Out, res.DecryptedBody)
		return nil
	})
}

type passcodeSetCmd struct{}

func (passcodeSetCmd) Name() string        { return "passcode-set" }
func (passcodeSetCmd) Description() string { return "Задать код доступа к заблокированным заметкам" }
func (passcodeSetCmd) Usage() string       { return "passcode-set <passcode>" }

func (passcodeSetCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	return withApp(ctx, cfg, func(app *bootstrap.App) error {
		if app.Passcode == nil {
			return errors.New("passcode auth is disabled (NOTES_AUTH=none)")
		}
		// смена существующего кода требует старый код
		if app.Passcode.IsEnrolled(ctx) {
			res := app.Gate.AuthenticateWithBiometrics(ctx, "Enter current passcode")
			if !res.Success {
				return resultErr(res.Error)
			}
		}
		if err := app.Passcode.Enroll(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintln(Out, "Passcode saved")
		return nil
	})
}

func init() {
	RegisterCmd(lockCmd{})
	RegisterCmd(unlockCmd{})
	RegisterCmd(passcodeSetCmd{})
}
