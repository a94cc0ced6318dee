package task

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by repositories when a record does not exist.
var ErrNotFound = errors.New("not found")

// LookupKind classifies a LookupError.
type LookupKind string

const (
	KindTask   LookupKind = "task"
	KindConfig LookupKind = "config"
)

// LookupError reports a referenced task or config record that could not be
// resolved. It aborts a submission before any engine interaction.
type LookupError struct {
	Kind LookupKind
	Key  string
	Err  error
}

func (e *LookupError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s lookup failed: %s", e.Kind, e.Key)
	}

	return fmt.Sprintf("%s lookup failed: %s: %v", e.Kind, e.Key, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// IsLookupError reports whether err is, or wraps, a *LookupError.
func IsLookupError(err error) bool {
	var le *LookupError
	return errors.As(err, &le)
}

// TaskLookupError wraps a failed task fetch.
func TaskLookupError(id ID, err error) *LookupError {
	return &LookupError{Kind: KindTask, Key: id.String(), Err: err}
}
