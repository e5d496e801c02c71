package filestore

import (
	"sync"

	"k8s.io/klog/v2"

	"github.com/open-mv-sandbox/daicon-go/fileproto"
)

// BufferFile is a file backend over an in-memory byte buffer.
type BufferFile struct {
	mailbox chan fileproto.Message
	done    chan struct{}

	mu  sync.Mutex
	buf []byte
	// limit is the maximum buffer size in bytes, or zero for unbounded.
	limit uint64
}

// OpenBuffer starts a backend over a copy of the given initial contents.
func OpenBuffer(initial []byte) *BufferFile {
	return OpenBufferWithLimit(initial, 0)
}

// OpenBufferWithLimit starts a backend whose buffer never grows past limit
// bytes. Inserts that would exceed the limit fail with ErrOutOfSpace.
func OpenBufferWithLimit(initial []byte, limit uint64) *BufferFile {
	f := &BufferFile{
		mailbox: make(chan fileproto.Message, mailboxSize),
		done:    make(chan struct{}),
		buf:     append([]byte(nil), initial...),
		limit:   limit,
	}
	go f.serve()
	return f
}

// Sender returns the handle for submitting requests to this backend.
func (f *BufferFile) Sender() fileproto.Sender {
	return f.mailbox
}

// Close drains all queued requests and stops the backend goroutine. The
// caller must guarantee no further sends on the mailbox.
func (f *BufferFile) Close() error {
	close(f.mailbox)
	<-f.done
	return nil
}

// Bytes returns a snapshot of the buffer contents.
func (f *BufferFile) Bytes() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.buf...)
}

func (f *BufferFile) serve() {
	defer close(f.done)
	for msg := range f.mailbox {
		f.handle(msg)
	}
}

func (f *BufferFile) handle(msg fileproto.Message) {
	countRequest("buffer", msg.Action)
	f.mu.Lock()
	defer f.mu.Unlock()

	switch action := msg.Action.(type) {
	case fileproto.ReadAction:
		// Bytes past the end of the buffer are left zero.
		data := make([]byte, action.Size)
		if action.Offset < uint64(len(f.buf)) {
			copy(data, f.buf[action.Offset:])
		}
		klog.V(3).Infof("buffer read offset=%d size=%d", action.Offset, action.Size)
		action.OnResult(fileproto.ReadResponse{ID: msg.ID, Offset: action.Offset, Data: data, Err: nil})

	case fileproto.WriteAction:
		err := f.writeAt(action.Data, action.Offset)
		if err != nil {
			countError("buffer", msg.Action)
		}
		klog.V(3).Infof("buffer write offset=%d size=%d err=%v", action.Offset, len(action.Data), err)
		action.OnResult(fileproto.WriteResponse{ID: msg.ID, Offset: action.Offset, Err: err})

	case fileproto.InsertAction:
		offset := uint64(len(f.buf))
		err := f.writeAt(action.Data, offset)
		if err != nil {
			countError("buffer", msg.Action)
		}
		klog.V(3).Infof("buffer insert offset=%d size=%d err=%v", offset, len(action.Data), err)
		action.OnResult(fileproto.InsertResponse{ID: msg.ID, Offset: offset, Err: err})
	}
}

func (f *BufferFile) writeAt(data []byte, offset uint64) error {
	end := offset + uint64(len(data))
	if f.limit != 0 && end > f.limit {
		return fileproto.ErrOutOfSpace
	}
	if end > uint64(len(f.buf)) {
		grown := make([]byte, end)
		copy(grown, f.buf)
		f.buf = grown
	}
	copy(f.buf[offset:end], data)
	return nil
}
