package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/cmsnotifs/internal/model"
)

// DmenuFormatter formats notifications one per line for dmenu, rofi or
// fuzzel. The leading index can be fed back to "check <selection>".
type DmenuFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewDmenuFormatter creates a new dmenu formatter. An unparsable template
// falls back to the default line layout.
func NewDmenuFormatter(opts FormatterOptions) *DmenuFormatter {
	f := &DmenuFormatter{opts: opts}
	if opts.Template != "" {
		if tmpl, err := template.New("dmenu").Funcs(templateFuncs()).Parse(opts.Template); err == nil {
			f.template = tmpl
		}
	}
	return f
}

// Format writes notifications in dmenu format (one per line).
func (f *DmenuFormatter) Format(w io.Writer, notifications []model.Notification) error {
	for i := range notifications {
		if _, err := fmt.Fprintln(w, f.formatLine(i+1, &notifications[i])); err != nil {
			return err
		}
	}
	return nil
}

// formatLine renders "index | created | subject: text".
func (f *DmenuFormatter) formatLine(index int, n *model.Notification) string {
	if f.template != nil {
		var buf strings.Builder
		if err := f.template.Execute(&buf, newTemplateData(index, n, f.opts.BaseURL)); err == nil {
			return sanitizeBody(buf.String(), 0, false)
		}
	}

	sep := f.opts.Separator
	if sep == "" {
		sep = " | "
	}

	var parts []string
	if f.opts.ShowIndex {
		parts = append(parts, strconv.Itoa(index))
	}
	if f.opts.ShowTime {
		parts = append(parts, createdOrUnknown(n))
	}

	content := n.Subject
	if n.HasDetail() {
		if text := sanitizeBody(*n.Text, f.opts.BodyMaxLen, false); text != "" {
			content += ": " + text
		}
	}
	parts = append(parts, content)

	return strings.Join(parts, sep)
}

// templateData is what custom templates see.
type templateData struct {
	Index        int
	Notification *model.Notification
	Created      string
	Detail       string
	Link         string
}

func newTemplateData(index int, n *model.Notification, baseURL string) templateData {
	return templateData{
		Index:        index,
		Notification: n,
		Created:      createdOrUnknown(n),
		Detail:       n.Detail(),
		Link:         n.Link(baseURL),
	}
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"truncate": truncate,
		"reltime": func(ts int64) string {
			if ts <= 0 {
				return "unknown"
			}
			return humanize.Time(time.Unix(ts, 0))
		},
		"oneline": func(s string) string {
			return sanitizeBody(s, 0, false)
		},
	}
}

func createdOrUnknown(n *model.Notification) string {
	if c := n.Created(); c != "" {
		return c
	}
	return "unknown"
}

// truncate shortens s to maxLen runes, ending in "..." when cut.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if maxLen <= 0 || len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// sanitizeBody folds s onto one line, collapses runs of whitespace, and
// truncates it.
func sanitizeBody(s string, maxLen int, includeNewline bool) string {
	if includeNewline {
		lines := strings.Split(strings.ReplaceAll(s, "\r", ""), "\n")
		for i, line := range lines {
			lines[i] = strings.Join(strings.Fields(line), " ")
		}
		s = strings.TrimSpace(strings.Join(lines, "\n"))
	} else {
		s = strings.Join(strings.Fields(s), " ")
	}
	return truncate(s, maxLen)
}
