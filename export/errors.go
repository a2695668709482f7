package export

import (
	"errors"
	"fmt"
)

var (
	ErrNotExport       = errors.New("no recognised data export documents")
	ErrMissingCategory = errors.New("export has no section for category")
)

// ParseError is returned when an export is missing, unreadable or malformed. It is always fatal.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot read export %q: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
