package filesource

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/open-mv-sandbox/daicon-go/daicontypes"
	"github.com/open-mv-sandbox/daicon-go/fileproto"
)

// getAction asks the engine to resolve an id to an absolute payload offset
// and size.
type getAction struct {
	id       daicontypes.Id
	onResult func(indexGetResult)
}

type indexGetResult struct {
	id     uuid.UUID
	offset uint64
	size   uint32
	err    error
}

// setAction asks the engine to publish a new entry. The result is delivered
// only after the table flush carrying the entry has been acknowledged.
type setAction struct {
	id       daicontypes.Id
	offset   uint64
	size     uint32
	onResult func(indexSetResult)
}

type indexSetResult struct {
	id  uuid.UUID
	err error
}

type indicesMsg interface{ isIndicesMsg() }

type msgIndexGet struct {
	id     uuid.UUID
	action getAction
}

type msgIndexSet struct {
	id     uuid.UUID
	action setAction
}

type msgTableRead fileproto.ReadResponse
type msgTableWritten fileproto.WriteResponse
type msgTableInserted fileproto.InsertResponse
type msgCloseIndices struct{}

func (msgIndexGet) isIndicesMsg()     {}
func (msgIndexSet) isIndicesMsg()     {}
func (msgTableRead) isIndicesMsg()    {}
func (msgTableWritten) isIndicesMsg() {}
func (msgTableInserted) isIndicesMsg() {}
func (msgCloseIndices) isIndicesMsg() {}

// indices is the engine owning the table chain. It runs one goroutine
// draining its mailbox; every batch of messages is followed by a task update
// and a flush pass.
type indices struct {
	mailbox chan indicesMsg
	quit    chan struct{}
	done    chan struct{}
	file    fileproto.Sender

	capacity uint16

	tables []*table

	// reading is the offset of the table whose read response is outstanding,
	// or nil once the whole chain is resident.
	reading     *uint64
	readSlots   uint16
	readRetried bool
	visited     map[uint64]struct{}

	// chainErr records a failed chain traversal. Actions that need tables
	// beyond the resident ones fail with it.
	chainErr error

	// alloc is the table whose image insert is outstanding, or nil.
	alloc *table

	pendingGet   map[uuid.UUID]getAction
	pendingSet   map[uuid.UUID]setAction
	pendingFlush map[uuid.UUID][]flushWaiter
}

func startIndices(file fileproto.Sender, options Options) *indices {
	s := &indices{
		mailbox:      make(chan indicesMsg, mailboxSize),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
		file:         file,
		capacity:     options.AllocateCapacity,
		visited:      make(map[uint64]struct{}),
		pendingGet:   make(map[uuid.UUID]getAction),
		pendingSet:   make(map[uuid.UUID]setAction),
		pendingFlush: make(map[uuid.UUID][]flushWaiter),
	}

	if options.FirstTable != nil {
		offset := *options.FirstTable
		s.reading = &offset
		s.visited[offset] = struct{}{}
		s.readTable(offset, DefaultCapacity)
	} else {
		// Start with an empty table at the front of the file, written out
		// immediately.
		t := newTable(0, 0, s.capacity)
		t.markDirty()
		s.tables = append(s.tables, t)
		s.flushTables()
	}

	go s.run()
	return s
}

// post delivers a message without ever blocking the sender; if the mailbox is
// full the delivery is handed off to a goroutine. The engine does not depend
// on mailbox ordering: table reads and allocations have a single outstanding
// request each, and flush writes are matched by request id.
func (s *indices) post(m indicesMsg) {
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

func (s *indices) run() {
	defer close(s.done)
	for {
		if s.handle(<-s.mailbox) {
			s.abortPending()
			return
		}
	drain:
		for {
			select {
			case m := <-s.mailbox:
				if s.handle(m) {
					s.abortPending()
					return
				}
			default:
				break drain
			}
		}
		s.updateTasks()
		s.flushTables()
	}
}

// handle processes one message; it returns true when the engine should stop.
func (s *indices) handle(m indicesMsg) bool {
	switch msg := m.(type) {
	case msgIndexGet:
		klog.V(2).Infof("received get id=%s", msg.action.id)
		s.pendingGet[msg.id] = msg.action
	case msgIndexSet:
		klog.V(2).Infof("received set id=%s offset=%d size=%d", msg.action.id, msg.action.offset, msg.action.size)
		s.pendingSet[msg.id] = msg.action
	case msgTableRead:
		s.onTableRead(fileproto.ReadResponse(msg))
	case msgTableWritten:
		s.onTableWritten(fileproto.WriteResponse(msg))
	case msgTableInserted:
		s.onTableInserted(fileproto.InsertResponse(msg))
	case msgCloseIndices:
		close(s.quit)
		return true
	}
	return false
}

func (s *indices) readTable(offset uint64, slots uint16) {
	s.readSlots = slots
	action := fileproto.ReadAction{
		Offset: offset,
		Size:   daicontypes.TableSize(slots),
		OnResult: func(r fileproto.ReadResponse) {
			s.post(msgTableRead(r))
		},
	}
	s.file <- fileproto.Message{ID: uuid.New(), Action: action}
}

func (s *indices) onTableRead(r fileproto.ReadResponse) {
	if s.reading == nil {
		klog.Warningf("stray table read response, ignoring")
		return
	}
	offset := *s.reading

	if r.Err != nil {
		s.failChain(fmt.Errorf("failed to read table at offset %d: %w", offset, r.Err))
		return
	}

	var h daicontypes.Header
	if err := h.FromBytes(r.Data); err != nil {
		s.failChain(fmt.Errorf("%w: table at offset %d: %v", ErrMalformed, offset, err))
		return
	}
	if err := h.Validate(); err != nil {
		s.failChain(fmt.Errorf("%w: table at offset %d: %v", ErrMalformed, offset, err))
		return
	}

	// The initial read uses a capacity heuristic. If the header reports a
	// bigger table, or the backend returned fewer bytes than the valid
	// entries need, re-read once with the correct full size.
	needed := daicontypes.HeaderSize + int(h.Valid)*daicontypes.IndexSize
	if h.Capacity > s.readSlots || len(r.Data) < needed {
		if !s.readRetried {
			klog.V(2).Infof("re-reading table at offset %d with capacity %d", offset, h.Capacity)
			s.readRetried = true
			s.readTable(offset, h.Capacity)
			return
		}
		if len(r.Data) < needed {
			s.failChain(fmt.Errorf("%w: table at offset %d needs %d bytes, got %d", ErrShortRead, offset, needed, len(r.Data)))
			return
		}
	}

	entries, err := daicontypes.IndexSliceFromBytes(r.Data[daicontypes.HeaderSize:], int(h.Valid))
	if err != nil {
		s.failChain(fmt.Errorf("%w: table at offset %d: %v", ErrMalformed, offset, err))
		return
	}

	t := newTable(offset, h.Offset, h.Capacity)
	t.next = h.Next
	t.entries = entries
	s.tables = append(s.tables, t)
	klog.V(2).Infof("table resident offset=%d valid=%d capacity=%d next=%d", offset, h.Valid, h.Capacity, h.Next)

	if h.Next == 0 {
		s.reading = nil
		return
	}
	if _, seen := s.visited[h.Next]; seen {
		// A revisited offset means the chain loops; serve with what we have.
		klog.Warningf("table chain cycle at offset %d, stopping traversal", h.Next)
		s.reading = nil
		return
	}

	next := h.Next
	s.visited[next] = struct{}{}
	s.reading = &next
	s.readRetried = false
	s.readTable(next, DefaultCapacity)
}

func (s *indices) onTableWritten(r fileproto.WriteResponse) {
	waiters, ok := s.pendingFlush[r.ID]
	if !ok {
		klog.Warningf("stray table write response, ignoring")
		return
	}
	delete(s.pendingFlush, r.ID)

	err := r.Err
	if err != nil {
		err = fmt.Errorf("failed to flush table: %w", err)
	}
	for _, w := range waiters {
		w.onResult(indexSetResult{id: w.id, err: err})
	}
}

func (s *indices) onTableInserted(r fileproto.InsertResponse) {
	t := s.alloc
	s.alloc = nil
	if t == nil {
		klog.Warningf("stray table insert response, ignoring")
		return
	}

	if r.Err != nil {
		// Every pending set was waiting on this allocation.
		err := fmt.Errorf("failed to allocate table: %w", r.Err)
		for id, action := range s.pendingSet {
			action.onResult(indexSetResult{id: id, err: err})
			delete(s.pendingSet, id)
		}
		return
	}

	t.tableOffset = r.Offset
	if n := len(s.tables); n > 0 {
		prev := s.tables[n-1]
		prev.next = r.Offset
		prev.markDirty()
	}
	s.tables = append(s.tables, t)
	klog.V(2).Infof("allocated table offset=%d capacity=%d", r.Offset, t.capacity)
}

func (s *indices) failChain(err error) {
	klog.Errorf("chain traversal failed: %v", err)
	s.chainErr = err
	s.reading = nil
}

func (s *indices) updateTasks() {
	for id, action := range s.pendingGet {
		if offset, size, ok := findIn(s.tables, action.id); ok {
			klog.V(2).Infof("found entry id=%s offset=%d size=%d", action.id, offset, size)
			action.onResult(indexGetResult{id: id, offset: offset, size: size})
			delete(s.pendingGet, id)
			continue
		}
		if s.reading != nil {
			continue
		}
		err := s.chainErr
		if err == nil {
			err = ErrNotFound
		}
		action.onResult(indexGetResult{id: id, err: err})
		delete(s.pendingGet, id)
	}

	// Sets wait until the whole chain is resident.
	if s.reading != nil {
		return
	}
	for id, action := range s.pendingSet {
		if s.chainErr != nil {
			action.onResult(indexSetResult{id: id, err: s.chainErr})
			delete(s.pendingSet, id)
			continue
		}

		w := flushWaiter{id: id, onResult: action.onResult}
		if s.tryInsertAny(action, w) {
			delete(s.pendingSet, id)
			continue
		}

		// No resident table can hold the entry; allocate a fresh one sized
		// and based so the retry is guaranteed to fit.
		if s.alloc == nil {
			s.allocateTable(action)
		}
	}
}

func (s *indices) tryInsertAny(action setAction, w flushWaiter) bool {
	for _, t := range s.tables {
		if t.tryInsert(action.id, action.offset, action.size, w) {
			return true
		}
	}
	return false
}

func (s *indices) allocateTable(action setAction) {
	var base uint64
	if action.offset > math.MaxUint32 {
		base = action.offset
	}
	t := newTable(0, base, s.capacity)
	s.alloc = t

	insert := fileproto.InsertAction{
		Data: t.serialize(),
		OnResult: func(r fileproto.InsertResponse) {
			s.post(msgTableInserted(r))
		},
	}
	s.file <- fileproto.Message{ID: uuid.New(), Action: insert}
}

func (s *indices) flushTables() {
	for _, t := range s.tables {
		waiters, ok := t.pollFlush()
		if !ok {
			continue
		}

		id := uuid.New()
		s.pendingFlush[id] = waiters
		klog.V(2).Infof("flushing table offset=%d valid=%d", t.tableOffset, len(t.entries))

		write := fileproto.WriteAction{
			Offset: t.tableOffset,
			Data:   t.serialize(),
			OnResult: func(r fileproto.WriteResponse) {
				s.post(msgTableWritten(r))
			},
		}
		s.file <- fileproto.Message{ID: id, Action: write}
	}
}

func (s *indices) abortPending() {
	for id, action := range s.pendingGet {
		action.onResult(indexGetResult{id: id, err: ErrCancelled})
		delete(s.pendingGet, id)
	}
	for id, action := range s.pendingSet {
		action.onResult(indexSetResult{id: id, err: ErrCancelled})
		delete(s.pendingSet, id)
	}
	for id, waiters := range s.pendingFlush {
		for _, w := range waiters {
			w.onResult(indexSetResult{id: w.id, err: ErrCancelled})
		}
		delete(s.pendingFlush, id)
	}
}

func findIn(tables []*table, id daicontypes.Id) (uint64, uint32, bool) {
	for _, t := range tables {
		if offset, size, ok := t.find(id); ok {
			return offset, size, true
		}
	}
	return 0, 0, false
}
