package filesource

import "errors"

var (
	// ErrNotFound is reported by a get once the chain is fully read and no
	// table contains the id.
	ErrNotFound = errors.New("no entry found for id")

	// ErrMalformed is reported when a table header has a bad signature or
	// reports more valid entries than its capacity. A chain that links back
	// onto itself is not reported with it: traversal stops and the tables
	// read so far keep serving.
	ErrMalformed = errors.New("malformed table")

	// ErrShortRead is reported when a table read returned fewer bytes than
	// the header requires even after a retry with the correct size.
	ErrShortRead = errors.New("short table read")

	// ErrCancelled is reported for actions still pending when the source is
	// torn down.
	ErrCancelled = errors.New("source closed while action pending")

	// ErrNotImplemented is reported by actions the source does not implement
	// yet.
	ErrNotImplemented = errors.New("not implemented")

	// ErrInternal wraps file backend errors surfaced through source actions.
	ErrInternal = errors.New("internal error")
)
