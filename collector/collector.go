// Package collector runs the paced sweep loop: on each tick, it queries
// the kernel for every requested address family and replays what it
// finds onto a sink.Sink, then sleeps until the next absolute deadline.
package collector

import (
	"syscall"

	"github.com/m-lab/tcpdiag/inetdiag"
)

// Config describes one run of the collector, mirroring the netlink
// command-line arguments: which address families to query, how to
// filter the dump, and how to pace repeated sweeps.
type Config struct {
	// Inet4/Inet6 select one address family. If both are false, both
	// AF_INET and AF_INET6 are queried every sweep.
	Inet4 bool
	Inet6 bool

	SPort         uint16
	DPort         uint16
	AllStates     bool
	AllExtensions bool

	// Period is the time between the start of one sweep and the start
	// of the next. A zero Period means "run exactly one sweep".
	Period float64

	// Count is the number of sweeps to run when Period is non-zero. Zero
	// means run forever.
	Count uint32
}

// states returns the connection-state mask this config's dump requests
// should use.
func (c Config) states() uint32 {
	if c.AllStates {
		return inetdiag.TCPFAll
	}
	return inetdiag.TCPFEstablished
}

// extensions returns the attribute extension mask this config's dump
// requests should use.
func (c Config) extensions() uint8 {
	if c.AllExtensions {
		return inetdiag.AllExtensions
	}
	return inetdiag.DefaultExtensions()
}

// families returns the address families to query this sweep, in the
// fixed order AF_INET before AF_INET6.
func (c Config) families() []uint8 {
	switch {
	case c.Inet4:
		return []uint8{syscall.AF_INET}
	case c.Inet6:
		return []uint8{syscall.AF_INET6}
	default:
		return []uint8{syscall.AF_INET, syscall.AF_INET6}
	}
}
