// Package filestore provides the local file backends for the daicon file
// protocol: an OS file and an in-memory buffer.
//
// Each backend runs a single goroutine that drains its mailbox and handles
// requests strictly in arrival order, which is what gives the file protocol
// its response ordering guarantee.
package filestore

import (
	"github.com/open-mv-sandbox/daicon-go/fileproto"
	"github.com/open-mv-sandbox/daicon-go/metrics"
)

// mailboxSize bounds how many requests can be queued on a backend before
// senders block.
const mailboxSize = 128

func countRequest(backend string, action fileproto.Action) {
	metrics.FileRequestsTotal.WithLabelValues(backend, actionName(action)).Inc()
}

func countError(backend string, action fileproto.Action) {
	metrics.FileRequestErrorsTotal.WithLabelValues(backend, actionName(action)).Inc()
}

func actionName(action fileproto.Action) string {
	switch action.(type) {
	case fileproto.ReadAction:
		return "read"
	case fileproto.WriteAction:
		return "write"
	case fileproto.InsertAction:
		return "insert"
	default:
		return "unknown"
	}
}
