package inetdiag

import (
	"unsafe"

	"github.com/m-lab/tcpdiag/wire"
)

// ReqV2 is the dump request sent to the kernel, matching struct
// inet_diag_req_v2 from linux/inet_diag.h.
type ReqV2 struct {
	Family   uint8
	Protocol uint8
	Ext      uint8
	Pad      uint8
	States   uint32
	ID       SockID
}

// sizeofReqV2 is the size of the struct, following the teacher's own
// SizeofInetDiagReqV2 convention.
var sizeofReqV2 = int(unsafe.Sizeof(ReqV2{}))

// NewReqV2 builds a dump request for the given address family, states
// mask, and extension mask. A non-zero sport/dport restricts the dump to
// sockets whose local/remote port matches; zero leaves the corresponding
// socket id field zeroed, which the kernel treats as "don't filter on
// identity".
func NewReqV2(family uint8, states uint32, extensions uint8, sport, dport uint16) *ReqV2 {
	req := &ReqV2{
		Family:   family,
		Protocol: unix_IPPROTO_TCP,
		Ext:      extensions,
		States:   states,
	}
	if sport != 0 {
		req.ID.SPort = wire.NewU16BE(sport)
	}
	if dport != 0 {
		req.ID.DPort = wire.NewU16BE(dport)
	}
	return req
}

// unix_IPPROTO_TCP mirrors syscall.IPPROTO_TCP without importing the
// syscall package purely for one constant.
const unix_IPPROTO_TCP = 6

// Serialize renders req in the exact byte layout the kernel expects as
// the netlink request payload.
func (req *ReqV2) Serialize() []byte {
	return append([]byte{}, structBytes(req)...)
}

// Len returns the serialized size of req.
func (req *ReqV2) Len() int {
	return sizeofReqV2
}
