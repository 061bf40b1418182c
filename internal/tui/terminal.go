package tui

import (
	"context"
	"errors"
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jmylchreest/cmsnotifs/internal/display"
	"github.com/jmylchreest/cmsnotifs/internal/present"
)

// Options configures the terminal surface.
type Options struct {
	Logger *slog.Logger
	Input  io.Reader // default stdin
	Output io.Writer // default stdout
}

// runFunc runs one model to completion.
type runFunc func(ctx context.Context, m Model) (tea.Model, error)

// Terminal shows views as full-screen BubbleTea programs. Each command
// ends the program; it is handled and the view is drawn again unless the
// handler closed it.
type Terminal struct {
	opts   Options
	logger *slog.Logger
	run    runFunc
}

var _ display.Surface = (*Terminal)(nil)

// NewTerminal creates a terminal surface.
func NewTerminal(opts Options) *Terminal {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	t := &Terminal{opts: opts, logger: logger}
	t.run = t.runProgram
	return t
}

// Show implements display.Surface.
func (t *Terminal) Show(ctx context.Context, view present.View, handle display.Handler) error {
	var (
		cursor    int
		status    string
		statusErr bool
	)

	for {
		m := New(view).WithCursor(cursor).WithStatus(status, statusErr)

		final, err := t.run(ctx, m)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return &display.Error{Surface: "terminal", Err: err}
		}

		done, ok := final.(Model)
		if !ok {
			return &display.Error{Surface: "terminal", Err: errors.New("unexpected model type")}
		}
		cursor = done.Cursor()

		cmd := done.Result()
		if cmd == nil {
			return nil
		}
		if _, ok := cmd.(present.Close); ok {
			return nil
		}

		status, statusErr = "", false
		err = handle(cmd)
		if errors.Is(err, display.ErrCloseView) {
			return nil
		}
		if err != nil {
			t.logger.Warn("command failed", "command", cmd.Name(), "error", err)
			status, statusErr = err.Error(), true
		}
	}
}

func (t *Terminal) runProgram(ctx context.Context, m Model) (tea.Model, error) {
	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}
	if t.opts.Input != nil {
		opts = append(opts, tea.WithInput(t.opts.Input))
	}
	if t.opts.Output != nil {
		opts = append(opts, tea.WithOutput(t.opts.Output))
	}
	return tea.NewProgram(m, opts...).Run()
}
