package inetdiag

import (
	"net"
	"strconv"

	"github.com/m-lab/tcpdiag/schema"
	"github.com/m-lab/tcpdiag/wire"
)

// SockID is the binary linux representation of a socket, as in
// linux/inet_diag.h. The address fields are a 16-byte slot holding either
// a raw IPv6 address or an IPv4 address left-justified with a
// zero-padded tail; which interpretation applies depends on the
// enclosing InetDiagMsg's Family byte, not on anything in SockID itself.
type SockID struct {
	SPort   wire.U16BE
	DPort   wire.U16BE
	Src     [16]byte
	Dst     [16]byte
	IfIndex uint32
	Cookie  wire.NlU64
}

// SockIDDesc is the tabular schema for SockID: six atomic columns.
var SockIDDesc = schema.Struct(
	schema.F("sport", schema.Atom()),
	schema.F("dport", schema.Atom()),
	schema.F("src", schema.Atom()),
	schema.F("dst", schema.Atom()),
	schema.F("ifindex", schema.Atom()),
	schema.F("cookie", schema.Atom()),
)

// SrcIP renders the source address slot under the given address family
// (2 for IPv4, 10 for IPv6).
func (s *SockID) SrcIP(family uint8) net.IP {
	return addrFromSlot(s.Src, family)
}

// DstIP renders the destination address slot under the given address
// family.
func (s *SockID) DstIP(family uint8) net.IP {
	return addrFromSlot(s.Dst, family)
}

func addrFromSlot(slot [16]byte, family uint8) net.IP {
	switch family {
	case 2:
		return net.IPv4(slot[0], slot[1], slot[2], slot[3])
	case 10:
		ip := make(net.IP, 16)
		copy(ip, slot[:])
		return ip
	default:
		return nil
	}
}

func addrToSlot(ip net.IP) [16]byte {
	var slot [16]byte
	if v4 := ip.To4(); v4 != nil {
		copy(slot[:4], v4)
		return slot
	}
	copy(slot[:], ip.To16())
	return slot
}

func (s *SockID) appendTabular(toks []string, family uint8) []string {
	toks = append(toks, strconv.FormatUint(uint64(s.SPort.Get()), 10))
	toks = append(toks, strconv.FormatUint(uint64(s.DPort.Get()), 10))
	toks = append(toks, s.SrcIP(family).String())
	toks = append(toks, s.DstIP(family).String())
	toks = append(toks, strconv.FormatUint(uint64(s.IfIndex), 10))
	toks = append(toks, strconv.FormatUint(s.Cookie.Get(), 10))
	return toks
}

func readSockIDTabular(next func() string, family uint8) (SockID, error) {
	var s SockID
	sport, err := strconv.ParseUint(next(), 10, 16)
	if err != nil {
		return s, err
	}
	dport, err := strconv.ParseUint(next(), 10, 16)
	if err != nil {
		return s, err
	}
	src := net.ParseIP(next())
	if src == nil {
		return s, ErrBadAttrLen
	}
	dst := net.ParseIP(next())
	if dst == nil {
		return s, ErrBadAttrLen
	}
	ifindex, err := strconv.ParseUint(next(), 10, 32)
	if err != nil {
		return s, err
	}
	cookie, err := strconv.ParseUint(next(), 10, 64)
	if err != nil {
		return s, err
	}
	s.SPort = wire.NewU16BE(uint16(sport))
	s.DPort = wire.NewU16BE(uint16(dport))
	s.Src = addrToSlot(src)
	s.Dst = addrToSlot(dst)
	s.IfIndex = uint32(ifindex)
	s.Cookie = wire.NewNlU64(cookie)
	_ = family
	return s, nil
}
