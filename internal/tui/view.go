package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jmylchreest/cmsnotifs/internal/present"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

// View renders the model.
func (m Model) View() string {
	if !m.ready && m.mode != ModeSettings {
		return "Initializing..."
	}

	switch m.mode {
	case ModeList:
		return m.viewList()
	case ModeDetail:
		return m.viewDetail()
	case ModeError:
		return m.viewError()
	case ModeSettings:
		return m.viewSettings()
	case ModeHelp:
		return m.viewHelp()
	default:
		return ""
	}
}

func (m Model) viewList() string {
	return m.list.View() + "\n" + m.footer("list")
}

func (m Model) viewDetail() string {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1).Render("Notification")
	return header + "\n" + m.viewport.View() + "\n" + m.footer("detail")
}

func (m Model) viewError() string {
	width := max(m.width-2, 20)
	var s strings.Builder
	s.WriteString(errorStyle.Render(m.view.Heading) + "\n\n")
	s.WriteString(lipgloss.NewStyle().Width(width).Render(m.view.Message) + "\n\n")
	s.WriteString(labelStyle.Width(width).Render(m.view.Hint) + "\n\n")
	s.WriteString(m.footer("error"))
	return s.String()
}

func (m Model) viewSettings() string {
	return headerStyle.Render("Settings") + "\n\n" + m.form.View() + "\n" + m.footer("settings")
}

func (m Model) viewHelp() string {
	s := headerStyle.MarginBottom(1).Render("Keyboard Shortcuts") + "\n\n"

	s += labelStyle.Render("Navigation") + "\n"
	s += keyStyle.Render("  j/k, ↑/↓") + "     Move up/down\n"
	s += keyStyle.Render("  pgup/pgdn") + "    Page up/down\n"
	s += "\n"

	s += labelStyle.Render("Actions") + "\n"
	s += keyStyle.Render("  enter") + "        View notification details\n"
	s += keyStyle.Render("  o") + "            Open notification in browser\n"
	s += keyStyle.Render("  O") + "            Open CMS in browser\n"
	s += keyStyle.Render("  y") + "            Copy link to clipboard\n"
	s += keyStyle.Render("  m") + "            Mark all as read\n"
	s += keyStyle.Render("  s") + "            Connection settings\n"
	s += "\n"

	s += labelStyle.Render("General") + "\n"
	s += keyStyle.Render("  ?") + "            Toggle this help\n"
	s += keyStyle.Render("  esc") + "          Back / Close\n"
	s += keyStyle.Render("  q") + "            Close\n"

	s += "\n" + labelStyle.Render("Press ? or esc to return")
	return s
}

// footer shows the status line if there is one, otherwise the keybind bar.
func (m Model) footer(mode string) string {
	if m.statusMsg != "" {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
		if m.statusErr {
			style = style.Foreground(lipgloss.Color("9"))
		}
		return style.Render(m.statusMsg)
	}
	return buildKeybindBar(m.width, mode)
}

// renderDetail renders the detail view for a notification.
func (m Model) renderDetail(item present.Item) string {
	width := max(m.width-2, 20)

	var s strings.Builder
	s.WriteString(headerStyle.Width(width).Render(item.Subject) + "\n\n")
	s.WriteString(labelStyle.Render("Time: ") + item.Created + "\n")
	s.WriteString(labelStyle.Render("Link: ") + item.Link + "\n\n")
	s.WriteString(lipgloss.NewStyle().Width(width).Render(item.Detail) + "\n")
	return s.String()
}

// keybind represents a single keybind with priority for the status bar.
type keybind struct {
	key      string
	desc     string
	priority int // lower = more important (shown first)
}

// buildKeybindBar builds a keybind bar that fits within the given width.
func buildKeybindBar(width int, mode string) string {
	var binds []keybind

	switch mode {
	case "list":
		binds = []keybind{
			{"q", "close", 1},
			{"enter", "view", 2},
			{"o", "open", 3},
			{"m", "mark read", 4},
			{"?", "help", 5},
			{"s", "settings", 6},
			{"O", "open CMS", 7},
			{"y", "copy link", 8},
		}
	case "detail":
		binds = []keybind{
			{"q", "close", 1},
			{"esc", "back", 2},
			{"o", "open", 3},
			{"y", "copy link", 4},
			{"j/k", "scroll", 5},
		}
	case "error":
		binds = []keybind{
			{"s", "settings", 1},
			{"q", "close", 2},
		}
	case "settings":
		binds = []keybind{
			{"enter", "next/save", 1},
			{"esc", "cancel", 2},
		}
	}

	const separator = "  "
	result := ""
	for _, b := range binds {
		item := keyStyle.Render(b.key) + " " + b.desc
		next := item
		if result != "" {
			next = result + separator + item
		}
		if width > 0 && lipgloss.Width(next) > width {
			break
		}
		result = next
	}

	return labelStyle.Render(result)
}
