package fileproto

import "errors"

var (
	// ErrNotSupported is reported by backends that do not support the
	// requested action, such as writes on an HTTP range backend.
	ErrNotSupported = errors.New("operation not supported by this file backend")

	// ErrOutOfSpace is reported when an insert cannot find a free region,
	// such as on a fixed-size backend.
	ErrOutOfSpace = errors.New("no free region available for insert")
)
