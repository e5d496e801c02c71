package filestore

import (
	"errors"
	"fmt"
	"io"
	"os"

	"k8s.io/klog/v2"

	"github.com/open-mv-sandbox/daicon-go/fileproto"
)

// DiskFile is a file backend over an OS file.
type DiskFile struct {
	mailbox chan fileproto.Message
	file    *os.File
	done    chan struct{}
}

// OpenDisk opens or creates the file at path and starts the backend
// goroutine. With truncate set, existing contents are discarded.
func OpenDisk(path string, truncate bool) (*DiskFile, error) {
	flags := os.O_RDWR | os.O_CREATE
	if truncate {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %q: %w", path, err)
	}

	f := &DiskFile{
		mailbox: make(chan fileproto.Message, mailboxSize),
		file:    file,
		done:    make(chan struct{}),
	}
	go f.serve()
	return f, nil
}

// Sender returns the handle for submitting requests to this backend.
func (f *DiskFile) Sender() fileproto.Sender {
	return f.mailbox
}

// Close drains all queued requests, syncs and closes the file. The caller
// must guarantee no further sends on the mailbox.
func (f *DiskFile) Close() error {
	close(f.mailbox)
	<-f.done
	return errors.Join(f.file.Sync(), f.file.Close())
}

func (f *DiskFile) serve() {
	defer close(f.done)
	for msg := range f.mailbox {
		f.handle(msg)
	}
}

func (f *DiskFile) handle(msg fileproto.Message) {
	countRequest("disk", msg.Action)

	switch action := msg.Action.(type) {
	case fileproto.ReadAction:
		// Bytes past the end of the file are left zero.
		data := make([]byte, action.Size)
		_, err := f.file.ReadAt(data, int64(action.Offset))
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			err = nil
		}
		if err != nil {
			countError("disk", msg.Action)
		}
		klog.V(3).Infof("disk read offset=%d size=%d err=%v", action.Offset, action.Size, err)
		action.OnResult(fileproto.ReadResponse{ID: msg.ID, Offset: action.Offset, Data: data, Err: err})

	case fileproto.WriteAction:
		_, err := f.file.WriteAt(action.Data, int64(action.Offset))
		if err != nil {
			countError("disk", msg.Action)
		}
		klog.V(3).Infof("disk write offset=%d size=%d err=%v", action.Offset, len(action.Data), err)
		action.OnResult(fileproto.WriteResponse{ID: msg.ID, Offset: action.Offset, Err: err})

	case fileproto.InsertAction:
		info, err := f.file.Stat()
		var offset uint64
		if err == nil {
			offset = uint64(info.Size())
			_, err = f.file.WriteAt(action.Data, int64(offset))
		}
		if err != nil {
			countError("disk", msg.Action)
		}
		klog.V(3).Infof("disk insert offset=%d size=%d err=%v", offset, len(action.Data), err)
		action.OnResult(fileproto.InsertResponse{ID: msg.ID, Offset: offset, Err: err})
	}
}
