// Package daicontypes contains the low-level daicon record types, for
// zero-allocation reading and writing of table bytes.
//
// A daicon table is a 24-byte Header followed by `capacity` 12-byte Index
// records, all little-endian. Payloads are located by `header.offset +
// index.offset` and are not self-describing.
package daicontypes

// Signature is the magic signature of a daicon 0.x.x header, literally
// equivalent to 0xFF followed by ASCII "dc0".
const Signature uint32 = 0x306364FF

const (
	// HeaderSize is the serialized size of a Header in bytes.
	HeaderSize = 24
	// IndexSize is the serialized size of an Index in bytes.
	IndexSize = 12
)

// TableSize returns the serialized size of a full table with the given
// capacity, header included.
func TableSize(capacity uint16) uint64 {
	return HeaderSize + IndexSize*uint64(capacity)
}
