package output

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/cmsnotifs/internal/model"
)

// YAMLFormatter formats notifications as a YAML sequence.
type YAMLFormatter struct {
	opts FormatterOptions
}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter(opts FormatterOptions) *YAMLFormatter {
	return &YAMLFormatter{opts: opts}
}

// Format writes notifications as a YAML sequence.
func (f *YAMLFormatter) Format(w io.Writer, notifications []model.Notification) error {
	if notifications == nil {
		notifications = []model.Notification{}
	}
	return f.encode(w, notifications)
}

// FormatSingle writes a single notification as a YAML mapping.
func (f *YAMLFormatter) FormatSingle(w io.Writer, n *model.Notification) error {
	return f.encode(w, n)
}

func (f *YAMLFormatter) encode(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
