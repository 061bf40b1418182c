package present

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jmylchreest/cmsnotifs/internal/config"
)

// Command names used on the display-surface message channel.
const (
	CmdURL      = "url"
	CmdSettings = "settings"
	CmdMarkRead = "mark_read"
	CmdConfig   = "config"
	CmdClose    = "close"
	CmdUnload   = "unload"
)

// ErrUnknownCommand is returned by ParseCommand for names it does not know.
// Callers log it and carry on.
var ErrUnknownCommand = errors.New("unknown command")

// Command is a user action delivered by a display surface.
type Command interface {
	// Name is the wire name of the command.
	Name() string
}

// OpenURL opens a link in the system browser.
type OpenURL struct {
	URL string
}

// OpenSettings opens the connection settings view.
type OpenSettings struct{}

// MarkRead marks every notification read.
type MarkRead struct{}

// SaveConfig submits the settings form.
type SaveConfig struct {
	Config config.Config
}

// Close closes the current view.
type Close struct{}

// Unload reports that the page showing the view went away, so every open
// view is dismissed.
type Unload struct{}

func (OpenURL) Name() string      { return CmdURL }
func (OpenSettings) Name() string { return CmdSettings }
func (MarkRead) Name() string     { return CmdMarkRead }
func (SaveConfig) Name() string   { return CmdConfig }
func (Close) Name() string        { return CmdClose }
func (Unload) Name() string       { return CmdUnload }

// ParseCommand parses a "<command> <data>" message. The message is split on
// the first whitespace character and data is the remainder, unmodified.
func ParseCommand(msg string) (Command, error) {
	name, data := msg, ""
	if i := strings.IndexFunc(msg, unicode.IsSpace); i >= 0 {
		name = msg[:i]
		_, size := utf8.DecodeRuneInString(msg[i:])
		data = msg[i+size:]
	}

	switch name {
	case CmdURL:
		if strings.TrimSpace(data) == "" {
			return nil, fmt.Errorf("%s: missing link", CmdURL)
		}
		return OpenURL{URL: data}, nil
	case CmdSettings:
		return OpenSettings{}, nil
	case CmdMarkRead:
		return MarkRead{}, nil
	case CmdConfig:
		var cfg config.Config
		if err := json.Unmarshal([]byte(data), &cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", CmdConfig, err)
		}
		return SaveConfig{Config: cfg}, nil
	case CmdClose:
		return Close{}, nil
	case CmdUnload:
		return Unload{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
}

// FormatCommand renders cmd in the wire form ParseCommand accepts.
func FormatCommand(cmd Command) string {
	switch c := cmd.(type) {
	case OpenURL:
		return CmdURL + " " + c.URL
	case SaveConfig:
		data, _ := json.Marshal(c.Config)
		return CmdConfig + " " + string(data)
	default:
		return cmd.Name()
	}
}
