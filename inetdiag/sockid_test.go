package inetdiag_test

import (
	"testing"

	"github.com/m-lab/tcpdiag/inetdiag"
	"github.com/m-lab/tcpdiag/wire"
)

func TestSockIDAddressFamilyIPv4(t *testing.T) {
	var s inetdiag.SockID
	s.Src = [16]byte{192, 168, 1, 1}
	ip := s.SrcIP(2)
	if ip.String() != "192.168.1.1" {
		t.Errorf("got %v, want 192.168.1.1", ip)
	}
}

func TestSockIDAddressFamilyIPv6(t *testing.T) {
	var s inetdiag.SockID
	s.Src = [16]byte{0x20, 0x01, 0x0d, 0xb8}
	ip := s.SrcIP(10)
	if ip.String() != "2001:db8::" {
		t.Errorf("got %v, want 2001:db8::", ip)
	}
}

func TestSockIDUnknownFamilyYieldsNilIP(t *testing.T) {
	var s inetdiag.SockID
	if ip := s.SrcIP(99); ip != nil {
		t.Errorf("expected nil IP for unrecognized family, got %v", ip)
	}
}

func TestSockIDPortsAreBigEndianOnWire(t *testing.T) {
	var s inetdiag.SockID
	s.SPort = wire.NewU16BE(22)
	if s.SPort[0] != 0 || s.SPort[1] != 22 {
		t.Errorf("wire bytes = %v, want [0 22]", s.SPort)
	}
}
