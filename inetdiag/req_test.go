package inetdiag_test

import (
	"testing"

	"github.com/m-lab/tcpdiag/inetdiag"
)

func TestDefaultExtensionsSetsInfoCongBBRBits(t *testing.T) {
	ext := inetdiag.DefaultExtensions()
	// bit 1 (INET_DIAG_INFO), bit 3 (INET_DIAG_CONG), and the BBR alias
	// bit (INET_DIAG_VEGASINFO) must all be set; nothing else should be.
	want := uint8(1<<1 | 1<<3 | 1<<2)
	if ext != want {
		t.Errorf("DefaultExtensions() = %08b, want %08b", ext, want)
	}
}

func TestNewReqV2SerializesToExpectedLength(t *testing.T) {
	req := inetdiag.NewReqV2(2, inetdiag.TCPFEstablished, inetdiag.DefaultExtensions(), 443, 8080)
	data := req.Serialize()
	if len(data) != req.Len() {
		t.Errorf("Serialize() length %d != Len() %d", len(data), req.Len())
	}
	if req.ID.SPort.Get() != 443 {
		t.Errorf("SPort = %d, want 443", req.ID.SPort.Get())
	}
	if req.ID.DPort.Get() != 8080 {
		t.Errorf("DPort = %d, want 8080", req.ID.DPort.Get())
	}
}

func TestNewReqV2ZeroPortLeavesSockIDUnfiltered(t *testing.T) {
	req := inetdiag.NewReqV2(2, inetdiag.TCPFAll, inetdiag.AllExtensions, 0, 0)
	if req.ID.SPort.Get() != 0 {
		t.Errorf("expected zero SPort, got %d", req.ID.SPort.Get())
	}
	if req.ID.DPort.Get() != 0 {
		t.Errorf("expected zero DPort, got %d", req.ID.DPort.Get())
	}
}
