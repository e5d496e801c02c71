// Package filesource implements the daicon source over a file backend: a
// get/set/list front-end backed by a chain of index tables living in the
// file.
//
// The package is split the same way the wire format is. The table cache holds
// one resident table and its unflushed insertions. The indices engine owns
// the chain: it walks tables in from the file, resolves id lookups against
// resident tables, and publishes new entries by rewriting table images. The
// source service sequences payload appends before index publication, which is
// what makes a torn write leave an orphan payload rather than a dangling
// index entry.
//
// The engine and the service each run one goroutine draining a private
// mailbox; all communication between them, the backends, and callers happens
// by message. No lock is held across file I/O.
package filesource

// mailboxSize bounds how many messages can be queued on the engine and
// service mailboxes before senders fall back to asynchronous delivery.
const mailboxSize = 256

// DefaultCapacity is the slot count of newly allocated tables.
const DefaultCapacity uint16 = 256

// Options configures opening a file as a daicon source.
type Options struct {
	// FirstTable is the absolute offset of the first table of an existing
	// file. If nil, the source starts with an empty table written to offset
	// zero of the file, and appends further tables when that one is full.
	FirstTable *uint64

	// AllocateCapacity is the slot count of newly created tables. Zero means
	// DefaultCapacity.
	AllocateCapacity uint16
}

func (o Options) withDefaults() Options {
	if o.AllocateCapacity == 0 {
		o.AllocateCapacity = DefaultCapacity
	}
	return o
}

// OpenExisting returns options for opening a file whose first table lives at
// the given absolute offset. Zero is the conventional default.
func OpenExisting(firstTable uint64) Options {
	return Options{FirstTable: &firstTable}
}
