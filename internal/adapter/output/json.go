package output

import (
	"encoding/json"
	"io"

	"github.com/jmylchreest/cmsnotifs/internal/model"
)

// JSONFormatter formats notifications as JSON in the Moodle field names.
type JSONFormatter struct {
	opts FormatterOptions
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(opts FormatterOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Format writes notifications as a JSON array. An empty list is "[]".
func (f *JSONFormatter) Format(w io.Writer, notifications []model.Notification) error {
	if notifications == nil {
		notifications = []model.Notification{}
	}
	return f.encode(w, notifications)
}

// FormatSingle writes a single notification as a JSON object.
func (f *JSONFormatter) FormatSingle(w io.Writer, n *model.Notification) error {
	return f.encode(w, n)
}

func (f *JSONFormatter) encode(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
