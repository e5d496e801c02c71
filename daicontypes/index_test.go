package daicontypes_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/open-mv-sandbox/daicon-go/daicontypes"
)

func TestIndexBytes(t *testing.T) {
	e := daicontypes.Index{
		Id:     0x37CB72A4,
		Offset: 3096,
		Size:   5,
	}

	encoded := e.Bytes()
	require.Equal(t, []byte{
		0xA4, 0x72, 0xCB, 0x37,
		0x18, 0x0C, 0x00, 0x00,
		0x05, 0x00, 0x00, 0x00,
	}, encoded)

	var decoded daicontypes.Index
	require.NoError(t, decoded.FromBytes(encoded))
	require.Equal(t, e, decoded)
}

func TestIndexSliceFromBytes(t *testing.T) {
	a := daicontypes.Index{Id: 1, Offset: 2, Size: 3}
	b := daicontypes.Index{Id: 4, Offset: 5, Size: 6}
	buf := append(a.Bytes(), b.Bytes()...)

	entries, err := daicontypes.IndexSliceFromBytes(buf, 2)
	require.NoError(t, err)
	require.Equal(t, []daicontypes.Index{a, b}, entries)

	_, err = daicontypes.IndexSliceFromBytes(buf, 3)
	require.Error(t, err)
}

func TestIdString(t *testing.T) {
	require.Equal(t, "0x37CB72A4", daicontypes.Id(0x37CB72A4).String())
	require.Equal(t, "0x00000001", daicontypes.Id(1).String())
}
