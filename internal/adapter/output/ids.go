package output

import (
	"fmt"
	"io"

	"github.com/jmylchreest/cmsnotifs/internal/model"
)

// IDsFormatter outputs just the Moodle notification ids, one per line,
// for piping into other tools.
type IDsFormatter struct{}

// NewIDsFormatter creates a new IDs formatter.
func NewIDsFormatter() *IDsFormatter {
	return &IDsFormatter{}
}

// Format writes ids to the writer, one per line.
func (f *IDsFormatter) Format(w io.Writer, notifications []model.Notification) error {
	for _, n := range notifications {
		if _, err := fmt.Fprintln(w, n.ID); err != nil {
			return err
		}
	}
	return nil
}
