package inetdiag_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/m-lab/tcpdiag/inetdiag"
	"github.com/m-lab/tcpdiag/wire"
)

func sampleInetDiagMsg() inetdiag.InetDiagMsg {
	var m inetdiag.InetDiagMsg
	m.Family = 2
	m.State = 1
	m.ID.SPort = wire.NewU16BE(443)
	m.ID.DPort = wire.NewU16BE(54321)
	m.ID.Src = [16]byte{192, 168, 1, 1}
	m.ID.Dst = [16]byte{10, 0, 0, 1}
	m.ID.IfIndex = 2
	m.ID.Cookie = wire.NewNlU64(12345)
	m.Expires = 0
	m.RQueue = 1
	m.WQueue = 2
	m.UID = 1000
	m.Inode = 99
	return m
}

func TestInetDiagMsgJSONNestsSocketIdentityUnderID(t *testing.T) {
	m := sampleInetDiagMsg()
	b, err := m.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}

	var generic map[string]interface{}
	if err := json.Unmarshal(b, &generic); err != nil {
		t.Fatal(err)
	}
	for _, top := range []string{"sport", "dport", "src", "dst", "ifindex", "cookie"} {
		if _, ok := generic[top]; ok {
			t.Errorf("identity field %q leaked to the top level: %s", top, b)
		}
	}

	id, ok := generic["id"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected nested \"id\" object, got %s", b)
	}
	for _, field := range []string{"sport", "dport", "src", "dst", "ifindex", "cookie"} {
		if _, ok := id[field]; !ok {
			t.Errorf("id object missing field %q: %s", field, b)
		}
	}
	if !strings.Contains(string(b), `"src":"192.168.1.1"`) {
		t.Errorf("expected nested src address, got %s", b)
	}
}

func TestInetDiagMsgJSONRoundTrip(t *testing.T) {
	want := sampleInetDiagMsg()
	b, err := want.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}

	var got inetdiag.InetDiagMsg
	if err := got.UnmarshalJSON(b); err != nil {
		t.Fatal(err)
	}

	if got.Family != want.Family || got.State != want.State {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if got.ID.SPort.Get() != want.ID.SPort.Get() || got.ID.DPort.Get() != want.ID.DPort.Get() {
		t.Errorf("port mismatch: got %+v, want %+v", got.ID, want.ID)
	}
	if got.ID.Cookie.Get() != want.ID.Cookie.Get() {
		t.Errorf("cookie mismatch: got %v, want %v", got.ID.Cookie.Get(), want.ID.Cookie.Get())
	}
	if got.ID.SrcIP(got.Family).String() != want.ID.SrcIP(want.Family).String() {
		t.Errorf("src mismatch: got %v, want %v", got.ID.SrcIP(got.Family), want.ID.SrcIP(want.Family))
	}
}
