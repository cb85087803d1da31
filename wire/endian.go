package wire

import (
	"encoding/binary"
	"unsafe"
)

// NativeEndian is the host's byte order, matching the kernel's own
// encoding of tcp_info counters, NlU64 words, and the binary sink's
// frame header and timestamp fields.
var NativeEndian binary.ByteOrder = func() binary.ByteOrder {
	var x uint16 = 1
	b := (*[2]byte)(unsafe.Pointer(&x))
	if b[0] == 1 {
		return binary.LittleEndian
	}
	return binary.BigEndian
}()

var nativeEndian = NativeEndian
