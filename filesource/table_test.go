package filesource

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/open-mv-sandbox/daicon-go/daicontypes"
)

func noopWaiter() flushWaiter {
	return flushWaiter{id: uuid.New(), onResult: func(indexSetResult) {}}
}

func TestTableFind(t *testing.T) {
	tb := newTable(0, 1000, 4)
	require.True(t, tb.tryInsert(7, 1100, 5, noopWaiter()))
	require.True(t, tb.tryInsert(9, 1200, 6, noopWaiter()))
	// Duplicate ids append; the earliest entry wins lookups.
	require.True(t, tb.tryInsert(7, 1300, 1, noopWaiter()))

	offset, size, ok := tb.find(7)
	require.True(t, ok)
	require.Equal(t, uint64(1100), offset)
	require.Equal(t, uint32(5), size)

	_, _, ok = tb.find(8)
	require.False(t, ok)
}

func TestTableTryInsertBounds(t *testing.T) {
	tb := newTable(0, 1000, 1)

	// Offset below the base is not representable.
	require.False(t, tb.tryInsert(1, 999, 1, noopWaiter()))
	// Offset too far past the base does not fit in 32 bits.
	require.False(t, tb.tryInsert(1, 1000+(1<<32), 1, noopWaiter()))

	require.True(t, tb.tryInsert(1, 1000, 1, noopWaiter()))
	// Full.
	require.False(t, tb.tryInsert(2, 1001, 1, noopWaiter()))
}

func TestTablePollFlush(t *testing.T) {
	tb := newTable(0, 0, 4)

	_, ok := tb.pollFlush()
	require.False(t, ok)

	require.True(t, tb.tryInsert(1, 100, 1, noopWaiter()))
	require.True(t, tb.tryInsert(2, 200, 2, noopWaiter()))

	waiters, ok := tb.pollFlush()
	require.True(t, ok)
	require.Len(t, waiters, 2)

	// Taking the dirty list leaves the table clean.
	_, ok = tb.pollFlush()
	require.False(t, ok)

	// An empty flush carries no waiters.
	tb.markDirty()
	waiters, ok = tb.pollFlush()
	require.True(t, ok)
	require.Empty(t, waiters)
}

func TestTableSerialize(t *testing.T) {
	tb := newTable(0, 0, 2)
	require.True(t, tb.tryInsert(0x37CB72A4, 3096, 5, noopWaiter()))

	data := tb.serialize()
	require.Len(t, data, int(daicontypes.TableSize(2)))

	var h daicontypes.Header
	require.NoError(t, h.FromBytes(data))
	require.NoError(t, h.Validate())
	require.Equal(t, uint16(2), h.Capacity)
	require.Equal(t, uint16(1), h.Valid)
	require.Equal(t, uint64(0), h.Offset)
	require.Equal(t, uint64(0), h.Next)

	var e daicontypes.Index
	require.NoError(t, e.FromBytes(data[daicontypes.HeaderSize:]))
	require.Equal(t, daicontypes.Index{Id: 0x37CB72A4, Offset: 3096, Size: 5}, e)

	// Unused slots stay zeroed.
	require.Equal(t, make([]byte, daicontypes.IndexSize), data[daicontypes.HeaderSize+daicontypes.IndexSize:])
}
