package wire_test

import (
	"encoding/json"
	"testing"

	"github.com/m-lab/tcpdiag/wire"
)

func TestU16BERoundTrip(t *testing.T) {
	u := wire.NewU16BE(443)
	if u.Get() != 443 {
		t.Errorf("got %d, want 443", u.Get())
	}
	// Port 443 must be stored big-endian: 0x01, 0xBB.
	if u[0] != 0x01 || u[1] != 0xBB {
		t.Errorf("wire bytes = %v, want [0x01 0xBB]", u)
	}
}

func TestU64NERoundTrip(t *testing.T) {
	want := uint64(123456789012345)
	u := wire.NewU64NE(want)
	if u.Get() != want {
		t.Errorf("got %d, want %d", u.Get(), want)
	}
}

func TestNlU64RoundTrip(t *testing.T) {
	want := uint64(0x1122334455667788)
	u := wire.NewNlU64(want)
	if u.Get() != want {
		t.Errorf("got %x, want %x", u.Get(), want)
	}
	if u[0] != 0x55667788 || u[1] != 0x11223344 {
		t.Errorf("words = %x, want [55667788 11223344]", u)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	type line struct {
		Port   wire.U16BE `json:"port"`
		Rate   wire.U64NE `json:"rate"`
		Cookie wire.NlU64 `json:"cookie"`
	}
	in := line{
		Port:   wire.NewU16BE(80),
		Rate:   wire.NewU64NE(9999),
		Cookie: wire.NewNlU64(42),
	}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"port":80,"rate":9999,"cookie":42}`
	if string(b) != want {
		t.Errorf("got %s, want %s", b, want)
	}
	var out line
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, in)
	}
}
