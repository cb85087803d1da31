package netlink

import "errors"

// ErrUnsupported is returned by Dump on platforms without sock_diag.
var ErrUnsupported = errors.New("netlink: sock_diag dump is only supported on linux")

// Dump is unavailable outside linux; the collector still needs to build
// and link here so that cross-platform development (editing, testing
// the format-agnostic packages) doesn't require a Linux box.
func Dump(family uint8, q Query, onMsg OnMessage) error {
	return ErrUnsupported
}
