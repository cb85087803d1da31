// Package wire provides the byte-order-aware integer wrappers used by the
// kernel's sock_diag wire format. Field byte order is record-specific, so
// each wrapper owns its own encode/decode rule instead of sharing one.
package wire

import "encoding/binary"

// U16BE is a 16-bit value stored on the wire as two big-endian bytes,
// used for the socket identity's port fields.
type U16BE [2]byte

// NewU16BE encodes val into a U16BE.
func NewU16BE(val uint16) U16BE {
	var u U16BE
	binary.BigEndian.PutUint16(u[:], val)
	return u
}

// Get decodes the logical host value.
func (u U16BE) Get() uint16 {
	return binary.BigEndian.Uint16(u[:])
}

// MarshalJSON renders the logical integer value, not the wire bytes.
func (u U16BE) MarshalJSON() ([]byte, error) {
	return marshalUint(uint64(u.Get()))
}

// UnmarshalJSON parses the logical integer value.
func (u *U16BE) UnmarshalJSON(b []byte) error {
	v, err := unmarshalUint(b)
	if err != nil {
		return err
	}
	*u = NewU16BE(uint16(v))
	return nil
}

// U64NE is a 64-bit value stored on the wire in the host's native byte
// order, matching the kernel's own encoding of tcp_info rate counters.
type U64NE [8]byte

// NewU64NE encodes val into a U64NE.
func NewU64NE(val uint64) U64NE {
	var u U64NE
	nativeEndian.PutUint64(u[:], val)
	return u
}

// Get decodes the logical host value.
func (u U64NE) Get() uint64 {
	return nativeEndian.Uint64(u[:])
}

// MarshalJSON renders the logical integer value, not the wire bytes.
func (u U64NE) MarshalJSON() ([]byte, error) {
	return marshalUint(u.Get())
}

// UnmarshalJSON parses the logical integer value.
func (u *U64NE) UnmarshalJSON(b []byte) error {
	v, err := unmarshalUint(b)
	if err != nil {
		return err
	}
	*u = NewU64NE(v)
	return nil
}

// NlU64 is a 64-bit value stored on the wire as two consecutive 32-bit
// native-endian words (low word first), because the kernel 4-byte aligns
// 64-bit attribute payloads rather than 8-byte aligning them.
type NlU64 [2]uint32

// NewNlU64 encodes val into an NlU64.
func NewNlU64(val uint64) NlU64 {
	return NlU64{uint32(val), uint32(val >> 32)}
}

// Get decodes the logical host value.
func (u NlU64) Get() uint64 {
	return uint64(u[0]) | uint64(u[1])<<32
}

// MarshalJSON renders the logical integer value, not the wire words.
func (u NlU64) MarshalJSON() ([]byte, error) {
	return marshalUint(u.Get())
}

// UnmarshalJSON parses the logical integer value.
func (u *NlU64) UnmarshalJSON(b []byte) error {
	v, err := unmarshalUint(b)
	if err != nil {
		return err
	}
	*u = NewNlU64(v)
	return nil
}
