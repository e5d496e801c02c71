package daicontypes

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Id is a daicon entry identifier.
type Id uint32

// String formats the id the way the CLI accepts it, 0x followed by 8 hex
// characters.
func (id Id) String() string {
	return fmt.Sprintf("0x%08X", uint32(id))
}

// Index is one entry in a daicon table, locating a payload relative to the
// owning table's base offset.
type Index struct {
	Id Id
	// Offset is the payload offset relative to the owning table's base
	// offset.
	Offset uint32
	// Size is the payload length in bytes.
	Size uint32
}

// Bytes returns the 12-byte little-endian image of the entry.
func (e Index) Bytes() []byte {
	buf := make([]byte, IndexSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(e.Id))
	binary.LittleEndian.PutUint32(buf[4:8], e.Offset)
	binary.LittleEndian.PutUint32(buf[8:12], e.Size)
	return buf
}

// FromBytes parses the entry from a byte slice.
func (e *Index) FromBytes(buf []byte) error {
	if len(buf) < IndexSize {
		return errors.New("invalid byte slice length")
	}
	_ = buf[IndexSize-1] // bounds check hint to compiler
	e.Id = Id(binary.LittleEndian.Uint32(buf[0:4]))
	e.Offset = binary.LittleEndian.Uint32(buf[4:8])
	e.Size = binary.LittleEndian.Uint32(buf[8:12])
	return nil
}

// IndexSliceFromBytes parses count entries from a byte slice.
func IndexSliceFromBytes(buf []byte, count int) ([]Index, error) {
	if len(buf) < count*IndexSize {
		return nil, errors.New("invalid byte slice length")
	}
	entries := make([]Index, count)
	for i := 0; i < count; i++ {
		if err := entries[i].FromBytes(buf[i*IndexSize : (i+1)*IndexSize]); err != nil {
			return nil, fmt.Errorf("failed to parse entry at index %d: %w", i, err)
		}
	}
	return entries, nil
}
