// Package fileproto defines the message contract between the daicon source
// and a file backend.
//
// A "file" is an addressable blob of binary data, not necessarily a system
// file. A backend accepts request messages and emits exactly one response per
// request through the request's OnResult callback. Responses to requests on
// the same file are emitted in the order the requests were accepted.
package fileproto

import "github.com/google/uuid"

// Message is a request to a file backend.
type Message struct {
	// ID identifies the request; it is echoed back in the response.
	ID     uuid.UUID
	Action Action
}

// Action is one of ReadAction, WriteAction or InsertAction.
type Action interface {
	isAction()
}

// ReadAction reads size bytes starting at offset.
//
// Reading past the end of the file yields a short buffer; depending on the
// backend the missing tail is either truncated or zero-filled. Callers must
// tolerate both.
type ReadAction struct {
	Offset   uint64
	Size     uint64
	OnResult func(ReadResponse)
}

// WriteAction overwrites the region starting at offset. Writing at or before
// the current end of the file extends it as needed.
type WriteAction struct {
	Offset   uint64
	Data     []byte
	OnResult func(WriteResponse)
}

// InsertAction appends data to a free region of the file, typically the end,
// and reports where it landed.
type InsertAction struct {
	Data     []byte
	OnResult func(InsertResponse)
}

func (ReadAction) isAction()   {}
func (WriteAction) isAction()  {}
func (InsertAction) isAction() {}

// ReadResponse is the result of a ReadAction.
type ReadResponse struct {
	ID uuid.UUID
	// Offset is the resolved stream offset read from.
	Offset uint64
	Data   []byte
	Err    error
}

// WriteResponse is the result of a WriteAction.
type WriteResponse struct {
	ID uuid.UUID
	// Offset is the resolved stream offset written to.
	Offset uint64
	Err    error
}

// InsertResponse is the result of an InsertAction.
type InsertResponse struct {
	ID uuid.UUID
	// Offset is the absolute offset the data was inserted at.
	Offset uint64
	Err    error
}

// Sender is the handle used to submit requests to a file backend.
type Sender chan<- Message
