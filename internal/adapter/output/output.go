// Package output provides output formatters for fetched notifications.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jmylchreest/cmsnotifs/internal/model"
)

// Formatter formats notifications for output.
type Formatter interface {
	// Format writes formatted notifications to the writer.
	Format(w io.Writer, notifications []model.Notification) error
}

// SingleFormatter is implemented by formatters that print one notification
// as a document rather than a one-element list.
type SingleFormatter interface {
	FormatSingle(w io.Writer, n *model.Notification) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatPlain FormatType = "plain"
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
	FormatDmenu FormatType = "dmenu"
	FormatIDs   FormatType = "ids"
)

// ParseFormat parses a --format value.
func ParseFormat(s string) (FormatType, error) {
	switch f := FormatType(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPlain, FormatJSON, FormatYAML, FormatDmenu, FormatIDs:
		return f, nil
	case "":
		return FormatPlain, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use plain, json, yaml, dmenu or ids)", s)
	}
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) Formatter {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(opts)
	case FormatYAML:
		return NewYAMLFormatter(opts)
	case FormatDmenu:
		return NewDmenuFormatter(opts)
	case FormatIDs:
		return NewIDsFormatter()
	default:
		return NewPlainFormatter(opts)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template       string // Go text/template per notification (plain, dmenu)
	ShowIndex      bool   // 1-based index prefix
	ShowTime       bool   // creation time
	ShowLink       bool   // context URL (plain)
	BodyMaxLen     int    // 0 = unlimited
	Separator      string // dmenu field separator
	IncludeNewline bool   // keep newlines in text instead of folding them
	BaseURL        string // link fallback for notifications without a context URL
}

// DefaultFormatterOptions returns the defaults for terminal output.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		ShowIndex:  true,
		ShowTime:   true,
		ShowLink:   true,
		BodyMaxLen: 120,
		Separator:  " | ",
	}
}

// FormatField returns one field of n. Unknown fields return the subject.
func FormatField(n *model.Notification, field, baseURL string) string {
	switch strings.ToLower(field) {
	case "id":
		return fmt.Sprint(n.ID)
	case "subject", "summary", "title":
		return n.Subject
	case "text", "body", "detail":
		return n.Detail()
	case "link", "url", "contexturl":
		return n.Link(baseURL)
	case "created", "time":
		return n.Created()
	case "user", "useridto":
		return fmt.Sprint(n.UserIDTo)
	case "all", "full":
		return n.Subject + "\n" + n.Detail()
	default:
		return n.Subject
	}
}
