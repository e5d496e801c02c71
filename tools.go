package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/open-mv-sandbox/daicon-go/daicontypes"
)

// parseId parses an entry id as the CLI accepts it: 0x followed by exactly 8
// hexadecimal characters.
func parseId(s string) (daicontypes.Id, error) {
	if len(s) != 10 || !strings.HasPrefix(s, "0x") {
		return 0, fmt.Errorf("id must be a hexadecimal, starting with 0x, followed by 8 characters")
	}
	value, err := strconv.ParseUint(s[2:], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("failed to parse id %q: %w", s, err)
	}
	return daicontypes.Id(value), nil
}

func isRemoteTarget(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
}
