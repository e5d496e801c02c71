package filestore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/open-mv-sandbox/daicon-go/fileproto"
	"github.com/open-mv-sandbox/daicon-go/filestore"
)

func doRead(t *testing.T, sender fileproto.Sender, offset, size uint64) fileproto.ReadResponse {
	t.Helper()
	ch := make(chan fileproto.ReadResponse, 1)
	sender <- fileproto.Message{ID: uuid.New(), Action: fileproto.ReadAction{
		Offset:   offset,
		Size:     size,
		OnResult: func(r fileproto.ReadResponse) { ch <- r },
	}}
	return <-ch
}

func doWrite(t *testing.T, sender fileproto.Sender, offset uint64, data []byte) fileproto.WriteResponse {
	t.Helper()
	ch := make(chan fileproto.WriteResponse, 1)
	sender <- fileproto.Message{ID: uuid.New(), Action: fileproto.WriteAction{
		Offset:   offset,
		Data:     data,
		OnResult: func(r fileproto.WriteResponse) { ch <- r },
	}}
	return <-ch
}

func doInsert(t *testing.T, sender fileproto.Sender, data []byte) fileproto.InsertResponse {
	t.Helper()
	ch := make(chan fileproto.InsertResponse, 1)
	sender <- fileproto.Message{ID: uuid.New(), Action: fileproto.InsertAction{
		Data:     data,
		OnResult: func(r fileproto.InsertResponse) { ch <- r },
	}}
	return <-ch
}

func TestBufferReadWriteInsert(t *testing.T) {
	f := filestore.OpenBuffer([]byte("hello"))
	defer f.Close()
	sender := f.Sender()

	{
		r := doRead(t, sender, 0, 5)
		require.NoError(t, r.Err)
		require.Equal(t, []byte("hello"), r.Data)
	}
	{
		// Reading past the end yields a zero-filled tail.
		r := doRead(t, sender, 3, 4)
		require.NoError(t, r.Err)
		require.Equal(t, []byte{'l', 'o', 0, 0}, r.Data)
	}
	{
		r := doWrite(t, sender, 4, []byte("ow!"))
		require.NoError(t, r.Err)
		require.Equal(t, []byte("hellow!"), f.Bytes())
	}
	{
		r := doInsert(t, sender, []byte("more"))
		require.NoError(t, r.Err)
		require.Equal(t, uint64(7), r.Offset)
		require.Equal(t, []byte("hellow!more"), f.Bytes())
	}
}

func TestBufferInsertOrdering(t *testing.T) {
	f := filestore.OpenBuffer(nil)
	defer f.Close()
	sender := f.Sender()

	a := doInsert(t, sender, []byte("aa"))
	b := doInsert(t, sender, []byte("bbb"))
	c := doInsert(t, sender, []byte("c"))
	require.Equal(t, uint64(0), a.Offset)
	require.Equal(t, uint64(2), b.Offset)
	require.Equal(t, uint64(5), c.Offset)
}

func TestBufferOutOfSpace(t *testing.T) {
	f := filestore.OpenBufferWithLimit([]byte("12345"), 8)
	defer f.Close()
	sender := f.Sender()

	r := doInsert(t, sender, []byte("too long"))
	require.ErrorIs(t, r.Err, fileproto.ErrOutOfSpace)

	ok := doInsert(t, sender, []byte("abc"))
	require.NoError(t, ok.Err)
	require.Equal(t, uint64(5), ok.Offset)
}

func TestDiskReadWriteInsert(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.daicon")

	f, err := filestore.OpenDisk(path, true)
	require.NoError(t, err)
	sender := f.Sender()

	{
		r := doWrite(t, sender, 0, []byte("hello world"))
		require.NoError(t, r.Err)
	}
	{
		r := doInsert(t, sender, []byte("!"))
		require.NoError(t, r.Err)
		require.Equal(t, uint64(11), r.Offset)
	}
	{
		r := doRead(t, sender, 6, 8)
		require.NoError(t, r.Err)
		require.Equal(t, []byte{'w', 'o', 'r', 'l', 'd', '!', 0, 0}, r.Data)
	}

	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte("hello world!"), data)
}

func TestDiskReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.daicon")

	f, err := filestore.OpenDisk(path, true)
	require.NoError(t, err)
	doWrite(t, f.Sender(), 0, []byte("persisted"))
	require.NoError(t, f.Close())

	f, err = filestore.OpenDisk(path, false)
	require.NoError(t, err)
	r := doRead(t, f.Sender(), 0, 9)
	require.NoError(t, r.Err)
	require.Equal(t, []byte("persisted"), r.Data)
	require.NoError(t, f.Close())
}
