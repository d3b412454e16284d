package cleaner

import "errors"

var (
	// ErrEmptySuffix is returned when the rules carry no duplicate-column suffix.
	ErrEmptySuffix = errors.New("duplicate column suffix is empty")

	// ErrNotRegularFile is returned when the path names a directory or device.
	ErrNotRegularFile = errors.New("not a regular file")

	// ErrInvalidEncoding is returned when a file is not valid UTF-8 text.
	ErrInvalidEncoding = errors.New("file is not valid UTF-8")
)
