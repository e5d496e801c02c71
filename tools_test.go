package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/open-mv-sandbox/daicon-go/daicontypes"
)

func TestParseId(t *testing.T) {
	id, err := parseId("0x37CB72A4")
	require.NoError(t, err)
	require.Equal(t, daicontypes.Id(0x37CB72A4), id)

	id, err = parseId("0x00000000")
	require.NoError(t, err)
	require.Equal(t, daicontypes.Id(0), id)

	for _, bad := range []string{
		"",
		"37CB72A4",
		"0x37CB72A",
		"0x37CB72A4F",
		"0xZZZZZZZZ",
	} {
		_, err := parseId(bad)
		require.Error(t, err, "input %q", bad)
	}
}

func TestIsRemoteTarget(t *testing.T) {
	require.True(t, isRemoteTarget("http://example.com/file.daicon"))
	require.True(t, isRemoteTarget("https://example.com/file.daicon"))
	require.False(t, isRemoteTarget("/tmp/file.daicon"))
	require.False(t, isRemoteTarget("file.daicon"))
}
