package daicontypes_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/open-mv-sandbox/daicon-go/daicontypes"
)

func TestHeaderBytes(t *testing.T) {
	h := daicontypes.NewHeader()
	h.Capacity = 256

	encoded := h.Bytes()
	require.Len(t, encoded, daicontypes.HeaderSize)

	// Signature is 0xFF followed by ASCII "dc0".
	require.Equal(t, []byte{0xFF, 'd', 'c', '0'}, encoded[0:4])
	// Capacity 256 little-endian.
	require.Equal(t, []byte{0x00, 0x01}, encoded[4:6])
	// Valid, offset and next are zero.
	require.Equal(t, make([]byte, 18), encoded[6:24])

	var decoded daicontypes.Header
	require.NoError(t, decoded.FromBytes(encoded))
	require.Equal(t, h, decoded)
}

func TestHeaderRoundTrip(t *testing.T) {
	h := daicontypes.Header{
		Signature: daicontypes.Signature,
		Capacity:  300,
		Valid:     7,
		Offset:    123456789,
		Next:      987654321,
	}

	var decoded daicontypes.Header
	require.NoError(t, decoded.FromBytes(h.Bytes()))
	require.Equal(t, h, decoded)
	require.True(t, decoded.IsValid())
	require.NoError(t, decoded.Validate())
}

func TestHeaderValidate(t *testing.T) {
	h := daicontypes.NewHeader()
	require.NoError(t, h.Validate())

	h.Signature = 0
	require.False(t, h.IsValid())
	require.Error(t, h.Validate())

	h = daicontypes.NewHeader()
	h.Capacity = 4
	h.Valid = 5
	require.Error(t, h.Validate())
}

func TestHeaderFromBytesShort(t *testing.T) {
	var h daicontypes.Header
	require.Error(t, h.FromBytes(make([]byte, daicontypes.HeaderSize-1)))
}

func TestTableSize(t *testing.T) {
	require.Equal(t, uint64(3096), daicontypes.TableSize(256))
}
