package display

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmylchreest/cmsnotifs/internal/present"
)

// ErrCloseView is returned by a Handler to close the view it was called from.
var ErrCloseView = errors.New("close view")

// Handler receives each command issued from a view. Handlers run on the
// goroutine that called Show, one at a time, and may call Show again to open
// a nested view.
type Handler func(cmd present.Command) error

// Surface shows views modally.
type Surface interface {
	// Show displays view and blocks until the view is closed or ctx is done.
	// A Close command closes the view without reaching handle.
	Show(ctx context.Context, view present.View, handle Handler) error
}

// Error is a failure of the display host itself, as opposed to a failure
// of a command handler.
type Error struct {
	Surface string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s display: %v", e.Surface, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsError reports whether err (or any error in its chain) is a display Error.
func IsError(err error) bool {
	var displayErr *Error
	return errors.As(err, &displayErr)
}
