// Package netlink implements the sock_diag dump request/reply-drain
// cycle that pulls one sweep's worth of TCP socket samples out of the
// kernel, one request per address family.
package netlink

import "errors"

// Error types.
var (
	// ErrBadPid is used when the PID is mismatched between the netlink socket and the calling process.
	ErrBadPid = errors.New("netlink: bad pid, can't listen to netlink socket")

	// ErrBadSequence is used when the netlink response has a bad sequence number.
	ErrBadSequence = errors.New("netlink: bad sequence number in reply")

	// ErrBadMsgData is used when an NLMSG_ERROR reply is too short to hold an errno.
	ErrBadMsgData = errors.New("netlink: bad message data in NLMSG_ERROR reply")
)

// Query describes one per-family dump request: which connection states
// to match, which extension attributes to request, and optional
// local/remote port filters.
type Query struct {
	States     uint32
	Extensions uint8
	SPort      uint16
	DPort      uint16
}

// OnMessage is called once per SOCK_DIAG_BY_FAMILY reply payload, in the
// kernel's own attribute-list byte layout, before the next message (if
// any) is read off the socket. Returning an error aborts the dump.
type OnMessage func(data []byte) error
