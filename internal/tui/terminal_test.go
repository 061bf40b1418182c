package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/cmsnotifs/internal/display"
	"github.com/jmylchreest/cmsnotifs/internal/present"
)

// scripted returns a runner that feeds each run the next batch of keys,
// stopping as soon as the model quits. It records the models it was given.
func scripted(t *testing.T, runs ...[]tea.KeyMsg) (runFunc, *[]Model) {
	t.Helper()
	var started []Model
	return func(ctx context.Context, m Model) (tea.Model, error) {
		started = append(started, m)
		require.Less(t, len(started)-1, len(runs), "unexpected extra run")
		m = sized(m)
		for _, k := range runs[len(started)-1] {
			next, _ := m.Update(k)
			m = next.(Model)
			if m.Result() != nil {
				break
			}
		}
		return m, nil
	}, &started
}

func TestTerminal_DispatchesUntilClosed(t *testing.T) {
	term := NewTerminal(Options{})
	run, started := scripted(t,
		[]tea.KeyMsg{{Type: tea.KeyDown}, runes("o")},
		[]tea.KeyMsg{runes("m")},
		[]tea.KeyMsg{runes("q")},
	)
	term.run = run

	var got []present.Command
	err := term.Show(context.Background(), sampleView(), func(cmd present.Command) error {
		got = append(got, cmd)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []present.Command{present.OpenURL{URL: "https://cms.example"}, present.MarkRead{}}, got)

	require.Len(t, *started, 3)
	assert.Equal(t, 1, (*started)[1].Cursor(), "cursor survives a redraw")
}

func TestTerminal_HandlerErrorShownOnRedraw(t *testing.T) {
	term := NewTerminal(Options{})
	run, started := scripted(t,
		[]tea.KeyMsg{runes("m")},
		[]tea.KeyMsg{runes("q")},
	)
	term.run = run

	err := term.Show(context.Background(), sampleView(), func(present.Command) error {
		return errors.New("server unreachable")
	})
	require.NoError(t, err)
	require.Len(t, *started, 2)
	assert.Equal(t, "server unreachable", (*started)[1].statusMsg)
	assert.True(t, (*started)[1].statusErr)
}

func TestTerminal_CloseViewFromHandler(t *testing.T) {
	term := NewTerminal(Options{})
	run, started := scripted(t, []tea.KeyMsg{runes("s")})
	term.run = run

	err := term.Show(context.Background(), present.View{Kind: present.KindError, Message: "boom"},
		func(cmd present.Command) error {
			assert.Equal(t, present.OpenSettings{}, cmd)
			return display.ErrCloseView
		})
	require.NoError(t, err)
	assert.Len(t, *started, 1)
}

func TestTerminal_ProgramFailure(t *testing.T) {
	term := NewTerminal(Options{})
	term.run = func(context.Context, Model) (tea.Model, error) {
		return nil, errors.New("could not open a new TTY")
	}

	err := term.Show(context.Background(), sampleView(), func(present.Command) error { return nil })
	require.Error(t, err)
	assert.True(t, display.IsError(err))
}

func TestTerminal_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	term := NewTerminal(Options{})
	term.run = func(ctx context.Context, m Model) (tea.Model, error) {
		cancel()
		return m, tea.ErrProgramKilled
	}

	err := term.Show(ctx, sampleView(), func(present.Command) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
