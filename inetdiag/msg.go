package inetdiag

import (
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"unsafe"

	"github.com/m-lab/tcpdiag/schema"
	"github.com/m-lab/tcpdiag/wire"
)

// InetDiagMsg is the fixed-size header every sock_diag reply begins with,
// exactly matching struct inet_diag_msg from linux/inet_diag.h. Its
// layout is read directly out of the kernel's netlink receive buffer via
// an unsafe cast, so field order and size here must not change.
type InetDiagMsg struct {
	Family  uint8
	State   uint8
	Timer   uint8
	Retrans uint8
	ID      SockID
	Expires uint32
	RQueue  uint32
	WQueue  uint32
	UID     uint32
	Inode   uint32
}

// sizeofInetDiagMsg is the size of the struct, following the teacher's
// own SizeofInetDiagReqV2 convention. Should be 0x48.
var sizeofInetDiagMsg = int(unsafe.Sizeof(InetDiagMsg{}))

// InetDiagMsgDesc is the tabular schema for InetDiagMsg: four scalar
// header fields followed by the nested socket identity.
var InetDiagMsgDesc = schema.Struct(
	schema.F("family", schema.Atom()),
	schema.F("state", schema.Atom()),
	schema.F("timer", schema.Atom()),
	schema.F("retrans", schema.Atom()),
	schema.F("id", SockIDDesc),
	schema.F("expires", schema.Atom()),
	schema.F("rqueue", schema.Atom()),
	schema.F("wqueue", schema.Atom()),
	schema.F("uid", schema.Atom()),
	schema.F("inode", schema.Atom()),
)

// ParseInetDiagMsg reinterprets the leading sizeofInetDiagMsg bytes of
// data as an InetDiagMsg without copying.
func ParseInetDiagMsg(data []byte) (*InetDiagMsg, error) {
	if len(data) < sizeofInetDiagMsg {
		return nil, ErrBadMsgData
	}
	return (*InetDiagMsg)(unsafe.Pointer(&data[0])), nil
}

// jsonSockID is the wire shape for SockID's JSON encoding, nested under
// the enclosing message's "id" key. The address fields need the
// enclosing Family byte to know how many bytes of the 16-byte slot are
// a meaningful address, so InetDiagMsg implements json.Marshaler/
// Unmarshaler directly rather than relying on struct tags on SockID.
type jsonSockID struct {
	SPort   uint16 `json:"sport"`
	DPort   uint16 `json:"dport"`
	Src     string `json:"src"`
	Dst     string `json:"dst"`
	IfIndex uint32 `json:"ifindex"`
	Cookie  uint64 `json:"cookie"`
}

// jsonInetDiagMsg is the wire shape for InetDiagMsg's JSON encoding.
type jsonInetDiagMsg struct {
	Family  uint8      `json:"family"`
	State   uint8      `json:"state"`
	Timer   uint8      `json:"timer"`
	Retrans uint8      `json:"retrans"`
	ID      jsonSockID `json:"id"`
	Expires uint32     `json:"expires"`
	RQueue  uint32     `json:"rqueue"`
	WQueue  uint32     `json:"wqueue"`
	UID     uint32     `json:"uid"`
	Inode   uint32     `json:"inode"`
}

// MarshalJSON renders addresses as strings, resolved against Family, and
// nests the socket identity under "id".
func (m InetDiagMsg) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonInetDiagMsg{
		Family:  m.Family,
		State:   m.State,
		Timer:   m.Timer,
		Retrans: m.Retrans,
		ID: jsonSockID{
			SPort:   m.ID.SPort.Get(),
			DPort:   m.ID.DPort.Get(),
			Src:     m.ID.SrcIP(m.Family).String(),
			Dst:     m.ID.DstIP(m.Family).String(),
			IfIndex: m.ID.IfIndex,
			Cookie:  m.ID.Cookie.Get(),
		},
		Expires: m.Expires,
		RQueue:  m.RQueue,
		WQueue:  m.WQueue,
		UID:     m.UID,
		Inode:   m.Inode,
	})
}

// UnmarshalJSON parses the object shape written by MarshalJSON.
func (m *InetDiagMsg) UnmarshalJSON(b []byte) error {
	var j jsonInetDiagMsg
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	src, err := parseAddr(j.ID.Src, j.Family)
	if err != nil {
		return err
	}
	dst, err := parseAddr(j.ID.Dst, j.Family)
	if err != nil {
		return err
	}
	*m = InetDiagMsg{
		Family:  j.Family,
		State:   j.State,
		Timer:   j.Timer,
		Retrans: j.Retrans,
		Expires: j.Expires,
		RQueue:  j.RQueue,
		WQueue:  j.WQueue,
		UID:     j.UID,
		Inode:   j.Inode,
	}
	m.ID.SPort = wire.NewU16BE(j.ID.SPort)
	m.ID.DPort = wire.NewU16BE(j.ID.DPort)
	m.ID.Src = addrToSlot(src)
	m.ID.Dst = addrToSlot(dst)
	m.ID.IfIndex = j.ID.IfIndex
	m.ID.Cookie = wire.NewNlU64(j.ID.Cookie)
	return nil
}

func parseAddr(s string, family uint8) (net.IP, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, fmt.Errorf("inetdiag: bad address %q", s)
	}
	_ = family
	return ip, nil
}

func (m *InetDiagMsg) appendTabular(toks []string) []string {
	toks = append(toks, strconv.FormatUint(uint64(m.Family), 10))
	toks = append(toks, strconv.FormatUint(uint64(m.State), 10))
	toks = append(toks, strconv.FormatUint(uint64(m.Timer), 10))
	toks = append(toks, strconv.FormatUint(uint64(m.Retrans), 10))
	toks = m.ID.appendTabular(toks, m.Family)
	toks = append(toks, strconv.FormatUint(uint64(m.Expires), 10))
	toks = append(toks, strconv.FormatUint(uint64(m.RQueue), 10))
	toks = append(toks, strconv.FormatUint(uint64(m.WQueue), 10))
	toks = append(toks, strconv.FormatUint(uint64(m.UID), 10))
	toks = append(toks, strconv.FormatUint(uint64(m.Inode), 10))
	return toks
}

func readInetDiagMsgTabular(next func() string) (InetDiagMsg, error) {
	var m InetDiagMsg
	family, err := strconv.ParseUint(next(), 10, 8)
	if err != nil {
		return m, err
	}
	m.Family = uint8(family)
	state, err := strconv.ParseUint(next(), 10, 8)
	if err != nil {
		return m, err
	}
	m.State = uint8(state)
	timer, err := strconv.ParseUint(next(), 10, 8)
	if err != nil {
		return m, err
	}
	m.Timer = uint8(timer)
	retrans, err := strconv.ParseUint(next(), 10, 8)
	if err != nil {
		return m, err
	}
	m.Retrans = uint8(retrans)
	id, err := readSockIDTabular(next, m.Family)
	if err != nil {
		return m, err
	}
	m.ID = id
	expires, err := strconv.ParseUint(next(), 10, 32)
	if err != nil {
		return m, err
	}
	m.Expires = uint32(expires)
	rqueue, err := strconv.ParseUint(next(), 10, 32)
	if err != nil {
		return m, err
	}
	m.RQueue = uint32(rqueue)
	wqueue, err := strconv.ParseUint(next(), 10, 32)
	if err != nil {
		return m, err
	}
	m.WQueue = uint32(wqueue)
	uid, err := strconv.ParseUint(next(), 10, 32)
	if err != nil {
		return m, err
	}
	m.UID = uint32(uid)
	inode, err := strconv.ParseUint(next(), 10, 32)
	if err != nil {
		return m, err
	}
	m.Inode = uint32(inode)
	return m, nil
}

// rtaAlignOf rounds length up to the next 4-byte netlink attribute
// boundary.
func rtaAlignOf(length int) int {
	return (length + 3) &^ 3
}
