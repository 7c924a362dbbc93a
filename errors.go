// errors

package gitsubset

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrEmptyFilter         = errors.New("empty filter")
	ErrUnsupportedRevision = errors.New("unsupported revision range")
	ErrOnlyEmptyCommits    = errors.New("filtering only produced empty commits")
	ErrBranchExists        = errors.New("branch already exists")
	ErrNilStorage          = errors.New("nil storage")
)

// errorf wraps err with fmt.Errorf unless it is a context cancellation,
// which is passed through unchanged.
func errorf(err error, format string, args ...any) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return fmt.Errorf(format, args...)
}
