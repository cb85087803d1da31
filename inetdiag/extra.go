package inetdiag

import (
	"bytes"
	"encoding/json"
	"unsafe"

	"github.com/m-lab/tcpdiag/schema"
)

// nlAttrHdr is the 4-byte attribute header preceding every TLV payload
// in a netlink attribute list, matching unix.RtAttr's layout.
type nlAttrHdr struct {
	Len  uint16
	Type uint16
}

const sizeofNlAttrHdr = 4

// Extra is a single sweep sample, borrowed directly from the kernel's
// netlink receive buffer: every pointer field except Cong (which points
// at a copied string) aliases into the underlying byte slice passed to
// Parse, so an Extra must not outlive the buffer it was parsed from.
type Extra struct {
	Base    *InetDiagMsg
	Cong    *string
	TCPInfo *TCPInfo
	BBR     *BBRInfo
	BBR3    *BBR3Info
}

// ExtraDesc is the tabular schema for Extra: the base message, the
// optional congestion control name, and the three optional attribute
// payloads, in that order.
var ExtraDesc = schema.Struct(
	schema.F("base", InetDiagMsgDesc),
	schema.F("cong", schema.Option(schema.Atom())),
	schema.F("tcp_info", schema.Option(TCPInfoDesc)),
	schema.F("bbr", schema.Option(BBRInfoDesc)),
	schema.F("bbr3", schema.Option(BBR3InfoDesc)),
)

// Parse walks data's attribute list (the bytes the kernel ships as one
// SOCK_DIAG_BY_FAMILY reply payload) and returns an Extra view over it.
// The returned Extra aliases data; it is not copied.
func Parse(data []byte) (*Extra, error) {
	base, err := ParseInetDiagMsg(data)
	if err != nil {
		return nil, err
	}
	e := &Extra{Base: base}
	off := rtaAlignOf(sizeofInetDiagMsg)
	for off < len(data) {
		if off+sizeofNlAttrHdr > len(data) {
			return nil, ErrBadAttrLen
		}
		hdr := (*nlAttrHdr)(unsafe.Pointer(&data[off]))
		attrLen := int(hdr.Len)
		if attrLen < sizeofNlAttrHdr || off+attrLen > len(data) {
			return nil, ErrBadAttrLen
		}
		payload := data[off+sizeofNlAttrHdr : off+attrLen]
		switch hdr.Type {
		case InetDiagCong:
			s, err := parseCongString(payload)
			if err != nil {
				return nil, err
			}
			e.Cong = &s
		case InetDiagInfo:
			if len(payload) >= sizeofTCPInfo {
				e.TCPInfo = (*TCPInfo)(unsafe.Pointer(&payload[0]))
			}
		case InetDiagBbrinfo:
			if len(payload) >= sizeofBBRInfo {
				e.BBR = (*BBRInfo)(unsafe.Pointer(&payload[0]))
				if len(payload) >= sizeofBBRInfo+sizeofBBR3Info {
					e.BBR3 = (*BBR3Info)(unsafe.Pointer(&payload[sizeofBBRInfo]))
				}
			}
		}
		off += rtaAlignOf(attrLen)
	}
	return e, nil
}

func parseCongString(payload []byte) (string, error) {
	i := bytes.IndexByte(payload, 0)
	if i < 0 {
		return "", ErrBadCongString
	}
	for _, c := range payload[:i] {
		if c >= 0x80 {
			return "", ErrBadCongString
		}
	}
	return string(payload[:i]), nil
}

// ToOwned copies everything Extra references into an independent value.
func (e *Extra) ToOwned() OwnedExtra {
	o := OwnedExtra{Base: *e.Base}
	if e.Cong != nil {
		s := *e.Cong
		o.Cong = &s
	}
	if e.TCPInfo != nil {
		t := *e.TCPInfo
		o.TCPInfo = &t
	}
	if e.BBR != nil {
		b := *e.BBR
		o.BBR = &b
	}
	if e.BBR3 != nil {
		b3 := *e.BBR3
		o.BBR3 = &b3
	}
	return o
}

// OwnedExtra is the same record as Extra with every optional field
// holding its own copy, used by format readers that must materialize a
// sample from text rather than borrow it from a kernel buffer.
type OwnedExtra struct {
	Base    InetDiagMsg
	Cong    *string
	TCPInfo *TCPInfo
	BBR     *BBRInfo
	BBR3    *BBR3Info
}

// ToBytes re-encodes o into the same attribute-list layout Parse reads,
// the inverse of Parse+ToOwned.
func (o *OwnedExtra) ToBytes() []byte {
	out := structBytes(&o.Base)
	if o.Cong != nil {
		out = append(out, encodeAttr(InetDiagCong, encodeCongString(*o.Cong))...)
	}
	if o.TCPInfo != nil {
		out = append(out, encodeAttr(InetDiagInfo, structBytes(o.TCPInfo))...)
	}
	if o.BBR != nil {
		payload := structBytes(o.BBR)
		if o.BBR3 != nil {
			payload = append(payload, structBytes(o.BBR3)...)
		}
		out = append(out, encodeAttr(InetDiagBbrinfo, payload)...)
	}
	return out
}

func encodeCongString(s string) []byte {
	return append([]byte(s), 0)
}

func encodeAttr(attrType uint16, payload []byte) []byte {
	hdr := nlAttrHdr{Len: uint16(sizeofNlAttrHdr + len(payload)), Type: attrType}
	buf := append([]byte{}, structBytes(&hdr)...)
	buf = append(buf, payload...)
	for len(buf)%4 != 0 {
		buf = append(buf, 0)
	}
	return buf
}

// structBytes reinterprets v's backing memory as a byte slice, the
// generic form of the teacher's per-type unsafe.Pointer casts.
func structBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))
}

type jsonExtra struct {
	Base    InetDiagMsg `json:"base"`
	Cong    *string     `json:"cong,omitempty"`
	TCPInfo *TCPInfo    `json:"tcp_info,omitempty"`
	BBR     *BBRInfo    `json:"bbr,omitempty"`
	BBR3    *BBR3Info   `json:"bbr3,omitempty"`
}

// MarshalJSON omits every attachment that was not present in the reply.
func (e *Extra) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonExtra{Base: *e.Base, Cong: e.Cong, TCPInfo: e.TCPInfo, BBR: e.BBR, BBR3: e.BBR3})
}

// MarshalJSON omits every attachment that was not present in the sample.
func (o OwnedExtra) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonExtra{Base: o.Base, Cong: o.Cong, TCPInfo: o.TCPInfo, BBR: o.BBR, BBR3: o.BBR3})
}

// UnmarshalJSON parses the object shape written by MarshalJSON.
func (o *OwnedExtra) UnmarshalJSON(b []byte) error {
	var j jsonExtra
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	o.Base = j.Base
	o.Cong = j.Cong
	o.TCPInfo = j.TCPInfo
	o.BBR = j.BBR
	o.BBR3 = j.BBR3
	return nil
}

// AppendTabular appends o's leaf values, in ExtraDesc order, to toks.
func (o *OwnedExtra) AppendTabular(toks []string) []string {
	toks = o.Base.appendTabular(toks)
	if o.Cong != nil {
		toks = append(toks, *o.Cong)
	} else {
		toks = append(toks, "_")
	}
	toks = appendOptional(toks, o.TCPInfo, schema.Columns(TCPInfoDesc), func(t *TCPInfo) []string { return t.appendTabular(nil) })
	toks = appendOptional(toks, o.BBR, schema.Columns(BBRInfoDesc), func(b *BBRInfo) []string { return b.appendTabular(nil) })
	toks = appendOptional(toks, o.BBR3, schema.Columns(BBR3InfoDesc), func(b *BBR3Info) []string { return b.appendTabular(nil) })
	return toks
}

func appendOptional[T any](toks []string, v *T, width int, render func(*T) []string) []string {
	if v == nil {
		for i := 0; i < width; i++ {
			toks = append(toks, "_")
		}
		return toks
	}
	return append(toks, render(v)...)
}

// ReadOwnedExtraTabular consumes ExtraDesc's columns from next, which
// yields one whitespace-separated token per call.
func ReadOwnedExtraTabular(next func() string) (OwnedExtra, error) {
	var o OwnedExtra
	base, err := readInetDiagMsgTabular(next)
	if err != nil {
		return o, err
	}
	o.Base = base
	cong := next()
	if cong != "_" {
		o.Cong = &cong
	}
	present, err := readOptionalTabular(next, schema.Columns(TCPInfoDesc), readTCPInfoTabular)
	if err != nil {
		return o, err
	}
	o.TCPInfo = present
	bbr, err := readOptionalTabular(next, schema.Columns(BBRInfoDesc), readBBRInfoTabular)
	if err != nil {
		return o, err
	}
	o.BBR = bbr
	bbr3, err := readOptionalTabular(next, schema.Columns(BBR3InfoDesc), readBBR3InfoTabular)
	if err != nil {
		return o, err
	}
	o.BBR3 = bbr3
	return o, nil
}

func readOptionalTabular[T any](next func() string, width int, read func(func() string) (T, error)) (*T, error) {
	toks := make([]string, 0, width)
	for i := 0; i < width; i++ {
		toks = append(toks, next())
	}
	if allSentinel(toks) {
		return nil, nil
	}
	i := 0
	v, err := read(func() string {
		t := toks[i]
		i++
		return t
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func allSentinel(toks []string) bool {
	for _, t := range toks {
		if t != "_" {
			return false
		}
	}
	return true
}
