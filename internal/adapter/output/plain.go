package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/jmylchreest/cmsnotifs/internal/model"
)

// PlainFormatter formats notifications as indented plain text.
type PlainFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewPlainFormatter creates a new plain text formatter.
func NewPlainFormatter(opts FormatterOptions) *PlainFormatter {
	f := &PlainFormatter{opts: opts}
	if opts.Template != "" {
		if tmpl, err := template.New("plain").Funcs(templateFuncs()).Parse(opts.Template); err == nil {
			f.template = tmpl
		}
	}
	return f
}

// Format writes notifications as plain text.
func (f *PlainFormatter) Format(w io.Writer, notifications []model.Notification) error {
	for i := range notifications {
		if err := f.formatNotification(w, i+1, &notifications[i]); err != nil {
			return err
		}
	}
	return nil
}

func (f *PlainFormatter) formatNotification(w io.Writer, index int, n *model.Notification) error {
	if f.template != nil {
		if err := f.template.Execute(w, newTemplateData(index, n, f.opts.BaseURL)); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n")
		return err
	}

	var sb strings.Builder

	if f.opts.ShowIndex {
		fmt.Fprintf(&sb, "[%d] ", index)
	}
	sb.WriteString(n.Subject)
	if f.opts.ShowTime {
		if created := n.Created(); created != "" {
			fmt.Fprintf(&sb, " (%s)", created)
		}
	}
	sb.WriteString("\n")

	if n.HasDetail() {
		text := sanitizeBody(*n.Text, f.opts.BodyMaxLen, f.opts.IncludeNewline)
		for line := range strings.SplitSeq(text, "\n") {
			sb.WriteString("    " + line + "\n")
		}
	}

	if f.opts.ShowLink {
		if link := n.Link(f.opts.BaseURL); link != "" {
			sb.WriteString("    " + link + "\n")
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}
