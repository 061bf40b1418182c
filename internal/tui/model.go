// Package tui provides the BubbleTea-based terminal display surface.
package tui

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/jmylchreest/cmsnotifs/internal/config"
	"github.com/jmylchreest/cmsnotifs/internal/present"
)

// Mode represents the current UI mode.
type Mode int

const (
	ModeList Mode = iota
	ModeDetail
	ModeError
	ModeSettings
	ModeHelp
)

// settingsFields holds the values bound to the settings form. It is shared
// by pointer so the bindings survive Model copies.
type settingsFields struct {
	url   string
	token string
}

// Model renders one present.View. It quits as soon as the user issues a
// command; Result reports which.
type Model struct {
	view present.View
	mode Mode
	// mode to return to when help closes
	prevMode Mode

	// Components
	list     list.Model
	viewport viewport.Model
	form     *huh.Form
	fields   *settingsFields

	// State
	selected *present.Item
	width    int
	height   int
	ready    bool

	keys KeyMap

	statusMsg string
	statusErr bool

	result present.Command
}

// notificationItem wraps a rendered notification for the list component.
type notificationItem struct {
	item present.Item
}

func (i notificationItem) Title() string {
	return i.item.Subject
}

func (i notificationItem) Description() string {
	return i.item.Created + " - " + firstLine(i.item.Detail)
}

func (i notificationItem) FilterValue() string {
	return i.item.Subject + " " + i.item.Detail
}

// New creates a model for view.
func New(view present.View) Model {
	items := make([]list.Item, len(view.Items))
	for i, it := range view.Items {
		items[i] = notificationItem{item: it}
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = view.Heading
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	m := Model{
		view:   view,
		mode:   ModeList,
		list:   l,
		keys:   DefaultKeyMap(),
		fields: &settingsFields{url: view.Config.MoodleLocation, token: view.Config.Token},
	}

	switch view.Kind {
	case present.KindError:
		m.mode = ModeError
	case present.KindSettings:
		m.mode = ModeSettings
		m.form = m.buildSettingsForm()
	}
	return m
}

// WithStatus returns a copy showing a transient status line.
func (m Model) WithStatus(text string, isErr bool) Model {
	m.statusMsg = text
	m.statusErr = isErr
	return m
}

// WithCursor returns a copy with the list cursor on index i.
func (m Model) WithCursor(i int) Model {
	if i > 0 && i < len(m.list.Items()) {
		m.list.Select(i)
	}
	return m
}

// Cursor is the list cursor position.
func (m Model) Cursor() int {
	return m.list.Index()
}

// Result is the command that ended the model, or nil if it was killed.
func (m Model) Result() present.Command {
	return m.result
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.form != nil {
		cmds = append(cmds, m.form.Init())
	}
	if m.statusMsg != "" {
		cmds = append(cmds, clearStatusAfter(5*time.Second))
	}
	return tea.Batch(cmds...)
}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		m.list.SetSize(msg.Width, msg.Height-2)
		m.viewport = viewport.New(msg.Width, msg.Height-4)
		m.viewport.YPosition = 2
		if m.selected != nil {
			m.viewport.SetContent(m.renderDetail(*m.selected))
		}
		if m.form != nil {
			m.form = m.form.WithWidth(min(msg.Width, 80))
		}
		return m, nil

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, clearStatusAfter(3 * time.Second)

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil

	case copyResultMsg:
		if msg.err != nil {
			return m, func() tea.Msg {
				return statusMsg{text: "Copy failed: " + msg.err.Error(), isErr: true}
			}
		}
		return m, func() tea.Msg {
			return statusMsg{text: "Link copied to clipboard"}
		}
	}

	var cmd tea.Cmd
	switch m.mode {
	case ModeList:
		m.list, cmd = m.list.Update(msg)
	case ModeDetail:
		m.viewport, cmd = m.viewport.Update(msg)
	case ModeSettings:
		return m.updateForm(msg)
	}
	return m, cmd
}

// finish records cmd and quits the program.
func (m Model) finish(cmd present.Command) (tea.Model, tea.Cmd) {
	m.result = cmd
	return m, tea.Quit
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The form owns the keyboard; only esc and ctrl+c escape it.
	if m.mode == ModeSettings {
		if msg.Type == tea.KeyEsc {
			return m.finish(present.Close{})
		}
		return m.updateForm(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.finish(present.Close{})
	case key.Matches(msg, m.keys.Help):
		if m.mode == ModeHelp {
			m.mode = m.prevMode
		} else {
			m.prevMode = m.mode
			m.mode = ModeHelp
		}
		return m, nil
	}

	switch m.mode {
	case ModeList:
		return m.handleListKey(msg)
	case ModeDetail:
		return m.handleDetailKey(msg)
	case ModeError:
		return m.handleErrorKey(msg)
	case ModeHelp:
		if key.Matches(msg, m.keys.Back) {
			m.mode = m.prevMode
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Enter):
		if ni, ok := m.list.SelectedItem().(notificationItem); ok {
			item := ni.item
			m.selected = &item
			m.mode = ModeDetail
			m.viewport.SetContent(m.renderDetail(item))
			m.viewport.GotoTop()
		}
		return m, nil

	case key.Matches(msg, m.keys.Back):
		return m.finish(present.Close{})

	case key.Matches(msg, m.keys.Open):
		if ni, ok := m.list.SelectedItem().(notificationItem); ok {
			return m.finish(present.OpenURL{URL: ni.item.Link})
		}
		return m, nil

	case key.Matches(msg, m.keys.OpenCMS):
		if m.view.BaseURL != "" {
			return m.finish(present.OpenURL{URL: m.view.BaseURL})
		}
		return m, nil

	case key.Matches(msg, m.keys.MarkRead):
		return m.finish(present.MarkRead{})

	case key.Matches(msg, m.keys.Settings):
		return m.finish(present.OpenSettings{})

	case key.Matches(msg, m.keys.Copy):
		if ni, ok := m.list.SelectedItem().(notificationItem); ok {
			return m, copyToClipboard(ni.item.Link)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.mode = ModeList
		m.selected = nil
		return m, nil

	case key.Matches(msg, m.keys.Open):
		if m.selected != nil {
			return m.finish(present.OpenURL{URL: m.selected.Link})
		}
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		if m.selected != nil {
			return m, copyToClipboard(m.selected.Link)
		}
		return m, nil

	case key.Matches(msg, m.keys.MarkRead):
		return m.finish(present.MarkRead{})
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleErrorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Settings):
		return m.finish(present.OpenSettings{})
	case key.Matches(msg, m.keys.Back):
		return m.finish(present.Close{})
	}
	return m, nil
}

func (m Model) buildSettingsForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("CMS connection").
				Description(present.SettingsHint),
			huh.NewInput().
				Title("Moodle URL").
				Placeholder(config.DefaultMoodleLocation).
				Value(&m.fields.url).
				Validate(validateURL),
			huh.NewInput().
				Title("Authentication token").
				EchoMode(huh.EchoModePassword).
				Value(&m.fields.token).
				Validate(validateRequired("Token")),
		),
	).WithShowHelp(true)
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		return m.submitSettings()
	case huh.StateAborted:
		return m.finish(present.Close{})
	}
	return m, cmd
}

// submitSettings ends the form with the values as typed; the handler
// normalizes them.
func (m Model) submitSettings() (tea.Model, tea.Cmd) {
	return m.finish(present.SaveConfig{Config: config.Config{
		MoodleLocation: m.fields.url,
		Token:          m.fields.token,
	}})
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("URL is required")
	}
	parsed, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("URL must include scheme and host (e.g., %s)", config.DefaultMoodleLocation)
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
