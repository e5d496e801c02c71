package daicontypes

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Header is the preamble of a daicon table.
//
// NewHeader pre-fills the signature; a zero-valued Header is not a valid
// header for a new table.
type Header struct {
	Signature uint32
	// Capacity is the amount of index slots of allocated space available in
	// this table.
	Capacity uint16
	// Valid is the amount of index slots that contain valid data in this
	// table, counted from slot zero.
	Valid uint16
	// Offset is the base offset all indices in this table are relative to.
	Offset uint64
	// Next is the absolute file offset of the next table, or zero if this is
	// the last table in the chain.
	Next uint64
}

// NewHeader returns an all-zero header with the signature pre-filled.
func NewHeader() Header {
	return Header{Signature: Signature}
}

// IsValid returns true if this header has a valid signature.
func (h Header) IsValid() bool {
	return h.Signature == Signature
}

// Bytes returns the 24-byte little-endian image of the header.
func (h Header) Bytes() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Signature)
	binary.LittleEndian.PutUint16(buf[4:6], h.Capacity)
	binary.LittleEndian.PutUint16(buf[6:8], h.Valid)
	binary.LittleEndian.PutUint64(buf[8:16], h.Offset)
	binary.LittleEndian.PutUint64(buf[16:24], h.Next)
	return buf
}

// FromBytes parses the header from a byte slice.
func (h *Header) FromBytes(buf []byte) error {
	if len(buf) < HeaderSize {
		return errors.New("invalid byte slice length")
	}
	_ = buf[HeaderSize-1] // bounds check hint to compiler
	h.Signature = binary.LittleEndian.Uint32(buf[0:4])
	h.Capacity = binary.LittleEndian.Uint16(buf[4:6])
	h.Valid = binary.LittleEndian.Uint16(buf[6:8])
	h.Offset = binary.LittleEndian.Uint64(buf[8:16])
	h.Next = binary.LittleEndian.Uint64(buf[16:24])
	return nil
}

// Validate checks the signature and the valid/capacity relation.
func (h Header) Validate() error {
	if !h.IsValid() {
		return fmt.Errorf("invalid signature: got %#010x, want %#010x", h.Signature, Signature)
	}
	if h.Valid > h.Capacity {
		return fmt.Errorf("valid count %d exceeds capacity %d", h.Valid, h.Capacity)
	}
	return nil
}
