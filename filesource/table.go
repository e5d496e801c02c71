package filesource

import (
	"math"

	"github.com/google/uuid"

	"github.com/open-mv-sandbox/daicon-go/daicontypes"
)

// flushWaiter is one set action waiting for its table flush to be
// acknowledged before it reports success.
type flushWaiter struct {
	id       uuid.UUID
	onResult func(indexSetResult)
}

// table is the cached in-memory state of one table in the chain.
//
// Capacity and base offset are immutable after creation; entries only ever
// grow, and only the serialized image changes slots [valid, capacity), which
// stay zeroed.
type table struct {
	// tableOffset is the absolute position of the header in the file.
	tableOffset uint64
	// baseOffset is the header's offset field, the base all entry offsets are
	// relative to.
	baseOffset uint64
	capacity   uint16
	// next is the absolute offset of the next table, or zero.
	next    uint64
	entries []daicontypes.Index

	// dirty holds the completions to invoke once the pending flush write is
	// acknowledged. isDirty can be set with an empty list, for tables that
	// need their image written out without any set waiting on it.
	dirty   []flushWaiter
	isDirty bool
}

func newTable(tableOffset, baseOffset uint64, capacity uint16) *table {
	return &table{
		tableOffset: tableOffset,
		baseOffset:  baseOffset,
		capacity:    capacity,
	}
}

// find scans the entries in insertion order and returns the absolute offset
// and size of the first entry matching id.
func (t *table) find(id daicontypes.Id) (uint64, uint32, bool) {
	for _, e := range t.entries {
		if e.Id == id {
			return t.baseOffset + uint64(e.Offset), e.Size, true
		}
	}
	return 0, 0, false
}

// tryInsert appends a new entry if the table has a free slot and the absolute
// offset is representable relative to this table's base. On success the
// waiter is queued for the next flush.
func (t *table) tryInsert(id daicontypes.Id, offset uint64, size uint32, w flushWaiter) bool {
	if len(t.entries) >= int(t.capacity) {
		return false
	}
	if offset < t.baseOffset || offset-t.baseOffset > math.MaxUint32 {
		return false
	}

	t.entries = append(t.entries, daicontypes.Index{
		Id:     id,
		Offset: uint32(offset - t.baseOffset),
		Size:   size,
	})
	t.dirty = append(t.dirty, w)
	t.isDirty = true
	return true
}

// markDirty schedules a flush without attaching a completion.
func (t *table) markDirty() {
	t.isDirty = true
}

// pollFlush atomically takes the dirty state. The caller is obligated to
// write the serialized table and invoke every returned waiter once the write
// is acknowledged.
func (t *table) pollFlush() ([]flushWaiter, bool) {
	if !t.isDirty {
		return nil, false
	}
	waiters := t.dirty
	t.dirty = nil
	t.isDirty = false
	return waiters, true
}

// serialize returns the full table image: header, valid entries, zeroed
// padding up to capacity.
func (t *table) serialize() []byte {
	data := make([]byte, daicontypes.TableSize(t.capacity))

	h := daicontypes.NewHeader()
	h.Capacity = t.capacity
	h.Valid = uint16(len(t.entries))
	h.Offset = t.baseOffset
	h.Next = t.next
	copy(data, h.Bytes())

	for i, e := range t.entries {
		copy(data[daicontypes.HeaderSize+i*daicontypes.IndexSize:], e.Bytes())
	}
	return data
}
