package filesource

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/open-mv-sandbox/daicon-go/daicontypes"
	"github.com/open-mv-sandbox/daicon-go/fileproto"
)

// Message is a request to a daicon source.
type Message struct {
	// ID identifies the request; it is echoed back in the response.
	ID     uuid.UUID
	Action Action
}

// Action is one of GetAction, SetAction or ListAction.
type Action interface {
	isSourceAction()
}

// GetAction fetches the payload associated with an id.
type GetAction struct {
	Id       daicontypes.Id
	OnResult func(GetResponse)
}

type GetResponse struct {
	ID   uuid.UUID
	Data []byte
	Err  error
}

// SetAction associates a payload with an id. The payload is appended to the
// file first; the index entry is published only after the payload write
// completed, and the response arrives only after the index flush was
// acknowledged.
type SetAction struct {
	Id       daicontypes.Id
	Data     []byte
	OnResult func(SetResponse)
}

type SetResponse struct {
	ID  uuid.UUID
	Err error
}

// ListAction asks for all entries in the source. The source does not
// enumerate entries; every ListAction is answered with ErrNotImplemented.
type ListAction struct {
	OnResult func(ListResponse)
}

type ListEntry struct {
	Id     daicontypes.Id
	Offset uint64
	Size   uint32
}

type ListResponse struct {
	ID      uuid.UUID
	Entries []ListEntry
	Err     error
}

func (GetAction) isSourceAction()  {}
func (SetAction) isSourceAction()  {}
func (ListAction) isSourceAction() {}

type serviceMsg interface{ isServiceMsg() }

type msgSource Message
type msgGetIndex indexGetResult
type msgDataInserted fileproto.InsertResponse
type msgCloseSource struct{}

func (msgSource) isServiceMsg()       {}
func (msgGetIndex) isServiceMsg()     {}
func (msgDataInserted) isServiceMsg() {}
func (msgCloseSource) isServiceMsg()  {}

type pendingGet struct {
	onResult func(GetResponse)
}

type pendingSet struct {
	id       daicontypes.Id
	size     uint32
	onResult func(SetResponse)
}

// Source is a live daicon source over a file backend.
type Source struct {
	mailbox chan serviceMsg
	quit    chan struct{}
	done    chan struct{}
	file    fileproto.Sender
	indices *indices

	getTasks map[uuid.UUID]pendingGet
	setTasks map[uuid.UUID]pendingSet
}

// Open opens a file as a daicon source.
//
// If you want to start from an existing table chain, set FirstTable in
// options. Otherwise the source starts with a fresh table written to the
// front of the file.
func Open(file fileproto.Sender, options Options) *Source {
	options = options.withDefaults()
	klog.V(1).Info("opening daicon source")

	s := &Source{
		mailbox:  make(chan serviceMsg, mailboxSize),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		file:     file,
		indices:  startIndices(file, options),
		getTasks: make(map[uuid.UUID]pendingGet),
		setTasks: make(map[uuid.UUID]pendingSet),
	}
	go s.run()
	return s
}

// Send submits a request asynchronously. The action's OnResult callback may
// be invoked from an internal goroutine and must not block.
func (s *Source) Send(msg Message) {
	s.post(msgSource(msg))
}

// Close tears down the source. All pending actions fail with ErrCancelled.
// Requests already handed to the file backend stay queued there; drain the
// backend after closing the source to make them durable.
func (s *Source) Close() error {
	s.post(msgCloseSource{})
	<-s.done
	return nil
}

func (s *Source) post(m serviceMsg) {
	select {
	case s.mailbox <- m:
	case <-s.quit:
	default:
		go func() {
			select {
			case s.mailbox <- m:
			case <-s.quit:
			}
		}()
	}
}

func (s *Source) run() {
	defer close(s.done)
	for m := range s.mailbox {
		switch msg := m.(type) {
		case msgSource:
			s.onMessage(Message(msg))
		case msgGetIndex:
			s.onGetIndexResult(indexGetResult(msg))
		case msgDataInserted:
			s.onDataInserted(fileproto.InsertResponse(msg))
		case msgCloseSource:
			close(s.quit)
			s.indices.post(msgCloseIndices{})
			<-s.indices.done
			s.abortTasks()
			return
		}
	}
}

func (s *Source) onMessage(msg Message) {
	switch action := msg.Action.(type) {
	case GetAction:
		s.onGet(msg.ID, action)
	case SetAction:
		s.onSet(msg.ID, action)
	case ListAction:
		action.OnResult(ListResponse{ID: msg.ID, Err: ErrNotImplemented})
	}
}

func (s *Source) onGet(id uuid.UUID, action GetAction) {
	klog.V(1).Infof("received get id=%s", action.Id)
	s.getTasks[id] = pendingGet{onResult: action.OnResult}

	s.indices.post(msgIndexGet{
		id: id,
		action: getAction{
			id: action.Id,
			onResult: func(r indexGetResult) {
				s.post(msgGetIndex(r))
			},
		},
	})
}

func (s *Source) onSet(id uuid.UUID, action SetAction) {
	klog.V(1).Infof("received set id=%s bytes=%d", action.Id, len(action.Data))
	s.setTasks[id] = pendingSet{
		id:       action.Id,
		size:     uint32(len(action.Data)),
		onResult: action.OnResult,
	}

	// Append the payload first. The index entry is only published once the
	// append has been acknowledged.
	insert := fileproto.InsertAction{
		Data: action.Data,
		OnResult: func(r fileproto.InsertResponse) {
			s.post(msgDataInserted(r))
		},
	}
	s.file <- fileproto.Message{ID: id, Action: insert}
}

func (s *Source) onGetIndexResult(r indexGetResult) {
	task, ok := s.getTasks[r.id]
	if !ok {
		klog.Warningf("stray index get result, ignoring")
		return
	}
	delete(s.getTasks, r.id)

	if r.err != nil {
		task.onResult(GetResponse{ID: r.id, Err: r.err})
		return
	}

	// We've got the location of the data, perform the payload read. The
	// response maps straight through to the caller.
	read := fileproto.ReadAction{
		Offset: r.offset,
		Size:   uint64(r.size),
		OnResult: func(fr fileproto.ReadResponse) {
			err := fr.Err
			if err != nil {
				err = fmt.Errorf("%w: %v", ErrInternal, err)
			}
			task.onResult(GetResponse{ID: fr.ID, Data: fr.Data, Err: err})
		},
	}
	s.file <- fileproto.Message{ID: r.id, Action: read}
}

func (s *Source) onDataInserted(r fileproto.InsertResponse) {
	task, ok := s.setTasks[r.ID]
	if !ok {
		klog.Warningf("stray data insert result, ignoring")
		return
	}
	delete(s.setTasks, r.ID)

	if r.Err != nil {
		err := r.Err
		if !errors.Is(err, fileproto.ErrNotSupported) && !errors.Is(err, fileproto.ErrOutOfSpace) {
			err = fmt.Errorf("%w: %v", ErrInternal, err)
		}
		task.onResult(SetResponse{ID: r.ID, Err: err})
		return
	}

	// The payload is in place, publish the index entry.
	s.indices.post(msgIndexSet{
		id: r.ID,
		action: setAction{
			id:     task.id,
			offset: r.Offset,
			size:   task.size,
			onResult: func(ir indexSetResult) {
				task.onResult(SetResponse{ID: ir.id, Err: ir.err})
			},
		},
	})
}

func (s *Source) abortTasks() {
	for id, task := range s.getTasks {
		task.onResult(GetResponse{ID: id, Err: ErrCancelled})
		delete(s.getTasks, id)
	}
	for id, task := range s.setTasks {
		task.onResult(SetResponse{ID: id, Err: ErrCancelled})
		delete(s.setTasks, id)
	}
}

// Get fetches the payload for id, blocking until the result arrives or ctx
// is done.
func (s *Source) Get(ctx context.Context, id daicontypes.Id) ([]byte, error) {
	ch := make(chan GetResponse, 1)
	s.Send(Message{
		ID:     uuid.New(),
		Action: GetAction{Id: id, OnResult: func(r GetResponse) { ch <- r }},
	})
	select {
	case r := <-ch:
		return r.Data, r.Err
	case <-s.done:
		return nil, ErrCancelled
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Set associates data with id, blocking until the entry is durably indexed
// or ctx is done.
func (s *Source) Set(ctx context.Context, id daicontypes.Id, data []byte) error {
	ch := make(chan SetResponse, 1)
	s.Send(Message{
		ID:     uuid.New(),
		Action: SetAction{Id: id, Data: data, OnResult: func(r SetResponse) { ch <- r }},
	})
	select {
	case r := <-ch:
		return r.Err
	case <-s.done:
		return ErrCancelled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// List asks the source for its entries. Listing is not implemented: the
// result is always ErrNotImplemented, unless the source is closed or ctx is
// done first.
func (s *Source) List(ctx context.Context) ([]ListEntry, error) {
	ch := make(chan ListResponse, 1)
	s.Send(Message{
		ID:     uuid.New(),
		Action: ListAction{OnResult: func(r ListResponse) { ch <- r }},
	})
	select {
	case r := <-ch:
		return r.Entries, r.Err
	case <-s.done:
		return nil, ErrCancelled
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
